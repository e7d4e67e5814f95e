package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// Generator picks a request code in [0, bound) for which occupied reports
// false. Implementations must terminate: when no free code exists they
// return an error wrapping ErrSpaceExhausted.
type Generator interface {
	Generate(occupied func(code int) bool, bound int) (int, error)
}

type ActivitySink interface {
	Record(ctx context.Context, entry ActivityEntry) error
	List(ctx context.Context, filter ActivityFilter) (ActivityPage, error)
}

type ActivityRetentionPruner interface {
	Prune(ctx context.Context, policy ActivityRetentionPolicy) (deleted int, err error)
}

// Callback receives the result payload of a single correlation space. It
// carries whatever receiver context it needs in its closure.
type Callback[P any] func(ctx context.Context, payload P)
