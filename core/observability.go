package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DurationMillis converts d to fractional milliseconds, the unit of every
// dispatcher duration metric. Sub-millisecond precision is kept because most
// register and deliver calls finish well under a millisecond.
func DurationMillis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func (s *Service) observeSpaceEvent(ctx context.Context, event spaceEvent) {
	if s == nil {
		return
	}
	fields := map[string]any{
		"space":  event.space,
		"action": string(event.action),
	}
	if event.code >= 0 {
		fields["code"] = event.code
	}
	if event.recovered != nil {
		fields["panic"] = fmt.Sprint(event.recovered)
	}

	switch event.action {
	case ActivityActionMiss:
		s.observeMiss(ctx, event.startedAt, fields)
	default:
		s.observeOperation(ctx, event.startedAt, string(event.action), event.err, fields)
	}
	s.recordActivity(ctx, event)
}

func (s *Service) observeOperation(
	ctx context.Context,
	startedAt time.Time,
	operation string,
	err error,
	fields map[string]any,
) {
	if s == nil {
		return
	}
	operation = normalizeOperation(operation)
	if operation == "" {
		operation = "unknown"
	}
	status := "success"
	if err != nil {
		status = "failure"
	}

	elapsed := DurationMillis(time.Since(startedAt))
	contextFields := cloneFields(fields)
	contextFields["event_type"] = operation
	contextFields["status"] = status
	contextFields["duration_ms"] = elapsed
	if err != nil {
		contextFields["error"] = err.Error()
	}

	tags := operationTags(operation, status, contextFields)
	s.recordCounter(ctx, "dispatcher."+operation+".total", 1, tags)
	s.recordHistogram(ctx, "dispatcher."+operation+".duration_ms", elapsed, tags)

	if err != nil {
		s.logError(ctx, operation+" failed", contextFields)
		return
	}
	s.logDebug(ctx, operation+" succeeded", contextFields)
}

// observeMiss counts deliveries for codes with no pending callback. Hosts
// redeliver routinely, so a miss is not a failure.
func (s *Service) observeMiss(ctx context.Context, startedAt time.Time, fields map[string]any) {
	operation := string(ActivityActionMiss)
	contextFields := cloneFields(fields)
	contextFields["event_type"] = operation
	contextFields["status"] = operation

	tags := operationTags(operation, operation, contextFields)
	s.recordCounter(ctx, "dispatcher."+operation+".total", 1, tags)
	s.recordHistogram(ctx, "dispatcher."+operation+".duration_ms", DurationMillis(time.Since(startedAt)), tags)
	s.logWithLevel(ctx, "info", "delivery ignored: no pending callback", contextFields)
}

func (s *Service) recordActivity(ctx context.Context, event spaceEvent) {
	if s == nil || s.activitySink == nil {
		return
	}
	metadata := map[string]any{
		"duration_ms": DurationMillis(time.Since(event.startedAt)),
	}
	if event.err != nil {
		metadata["error"] = event.err.Error()
	}
	if event.recovered != nil {
		metadata["panic"] = fmt.Sprint(event.recovered)
	}
	entry := ActivityEntry{
		Space:     event.space,
		Code:      event.code,
		Action:    event.action,
		Status:    activityStatus(event),
		Metadata:  metadata,
		CreatedAt: s.now(),
	}
	if err := s.activitySink.Record(ctx, entry); err != nil {
		s.logWithLevel(ctx, "warn", "activity record failed", map[string]any{
			"space":  event.space,
			"action": string(event.action),
			"error":  err.Error(),
		})
	}
}

func activityStatus(event spaceEvent) ActivityStatus {
	switch {
	case event.err != nil:
		return ActivityStatusError
	case event.action == ActivityActionMiss:
		return ActivityStatusWarn
	default:
		return ActivityStatusOK
	}
}

func operationTags(operation string, status string, fields map[string]any) map[string]string {
	tags := map[string]string{
		"operation": operation,
		"status":    status,
	}
	if value := strings.TrimSpace(fmt.Sprint(fields["space"])); value != "" && value != "<nil>" {
		tags["space"] = value
	}
	return tags
}

func (s *Service) logDebug(ctx context.Context, message string, fields map[string]any) {
	s.logWithLevel(ctx, "debug", message, fields)
}

func (s *Service) logError(ctx context.Context, message string, fields map[string]any) {
	s.logWithLevel(ctx, "error", message, fields)
}

func (s *Service) logWithLevel(ctx context.Context, level string, message string, fields map[string]any) {
	if s == nil || s.logger == nil {
		return
	}
	logger := s.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	args := flattenFields(fields)
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		logger.Error(message, args...)
	case "warn":
		logger.Warn(message, args...)
	case "debug":
		logger.Debug(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func (s *Service) recordCounter(ctx context.Context, name string, value int64, tags map[string]string) {
	if s == nil || s.metricsRecorder == nil {
		return
	}
	s.metricsRecorder.IncCounter(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func (s *Service) recordHistogram(ctx context.Context, name string, value float64, tags map[string]string) {
	if s == nil || s.metricsRecorder == nil {
		return
	}
	s.metricsRecorder.ObserveHistogram(ctx, strings.TrimSpace(name), value, cloneTags(tags))
}

func cloneFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	copied := make(map[string]any, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return copied
}

func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}

func normalizeOperation(operation string) string {
	operation = strings.TrimSpace(strings.ToLower(operation))
	operation = strings.ReplaceAll(operation, " ", "_")
	operation = strings.ReplaceAll(operation, "-", "_")
	return operation
}
