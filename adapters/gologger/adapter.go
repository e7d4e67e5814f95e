package gologger

import (
	"strings"

	job "github.com/goliatone/go-job"
	glog "github.com/goliatone/go-logger/glog"
)

// DefaultJobLoggerName names the logger used by queue delivery workers.
const DefaultJobLoggerName = "dispatcher.jobs"

// JobLoggers is one resolved logger seen through both the glog and go-job
// contracts.
type JobLoggers struct {
	Provider    glog.LoggerProvider
	Logger      glog.Logger
	JobProvider job.LoggerProvider
	JobLogger   job.Logger
}

// Resolve uses deterministic precedence provider > logger > nop.
func Resolve(name string, provider glog.LoggerProvider, logger glog.Logger) (glog.LoggerProvider, glog.Logger) {
	return glog.Resolve(loggerName(name), provider, logger)
}

func ToJobProvider(provider glog.LoggerProvider) job.LoggerProvider {
	if provider == nil {
		return nil
	}
	return job.GoLoggerProvider(provider)
}

func ToJobLogger(logger glog.Logger) job.Logger {
	if logger == nil {
		return nil
	}
	return job.GoLogger(logger)
}

// ResolveForJob resolves the dispatcher logger and bridges it for go-job
// workers. An empty name resolves DefaultJobLoggerName.
func ResolveForJob(name string, provider glog.LoggerProvider, logger glog.Logger) JobLoggers {
	resolvedProvider, resolvedLogger := Resolve(name, provider, logger)
	return JobLoggers{
		Provider:    resolvedProvider,
		Logger:      resolvedLogger,
		JobProvider: ToJobProvider(resolvedProvider),
		JobLogger:   ToJobLogger(resolvedLogger),
	}
}

func loggerName(name string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return DefaultJobLoggerName
}
