package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}

type failingRawLoader struct{}

func (failingRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	return nil, errors.New("raw config unavailable")
}

// sequenceGenerator hands out codes in order and ignores occupancy, which
// lets tests force collisions and out of range results.
type sequenceGenerator struct {
	mu    sync.Mutex
	codes []int
	calls int
}

func (g *sequenceGenerator) Generate(_ func(int) bool, _ int) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.calls >= len(g.codes) {
		return 0, ErrSpaceExhausted
	}
	code := g.codes[g.calls]
	g.calls++
	return code, nil
}

type failingGenerator struct {
	err error
}

func (g failingGenerator) Generate(func(int) bool, int) (int, error) {
	return 0, g.err
}

type blockingActivitySink struct {
	block chan struct{}
}

func (s *blockingActivitySink) Record(context.Context, ActivityEntry) error {
	<-s.block
	return nil
}

func (s *blockingActivitySink) List(context.Context, ActivityFilter) (ActivityPage, error) {
	return ActivityPage{}, nil
}

type errorActivitySink struct{}

func (errorActivitySink) Record(context.Context, ActivityEntry) error {
	return errors.New("primary unavailable")
}

func (errorActivitySink) List(context.Context, ActivityFilter) (ActivityPage, error) {
	return ActivityPage{}, errors.New("primary unavailable")
}

type bufferCapturingActivitySink struct {
	mu      sync.Mutex
	entries []ActivityEntry
}

func (s *bufferCapturingActivitySink) Record(_ context.Context, entry ActivityEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *bufferCapturingActivitySink) List(context.Context, ActivityFilter) (ActivityPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ActivityPage{Items: append([]ActivityEntry(nil), s.entries...), Total: len(s.entries)}, nil
}

func (s *bufferCapturingActivitySink) snapshot() []ActivityEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ActivityEntry(nil), s.entries...)
}

type stubPruner struct {
	deleted    int
	lastPolicy ActivityRetentionPolicy
}

func (s *stubPruner) Record(context.Context, ActivityEntry) error {
	return nil
}

func (s *stubPruner) List(context.Context, ActivityFilter) (ActivityPage, error) {
	return ActivityPage{}, nil
}

func (s *stubPruner) Prune(_ context.Context, policy ActivityRetentionPolicy) (int, error) {
	s.lastPolicy = policy
	return s.deleted, nil
}

func waitFor(t *testing.T, condition func() bool, message string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("%s", message)
}

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	base := []Option{
		WithLogger(stubLogger{}),
		WithLoggerProvider(stubLoggerProvider{logger: stubLogger{}}),
		WithGenerator(NewSeededGenerator(7, DefaultMaxDrawAttempts)),
	}
	svc, err := NewService(Config{}, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	t.Cleanup(svc.Close)
	return svc
}
