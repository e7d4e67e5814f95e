package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

type capturedCounter struct {
	name  string
	value int64
	tags  map[string]string
}

type capturedHistogram struct {
	name  string
	value float64
	tags  map[string]string
}

type captureMetricsRecorder struct {
	mu         sync.Mutex
	counters   []capturedCounter
	histograms []capturedHistogram
}

func (m *captureMetricsRecorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters = append(m.counters, capturedCounter{name: name, value: value, tags: cloneTags(tags)})
}

func (m *captureMetricsRecorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms = append(m.histograms, capturedHistogram{name: name, value: value, tags: cloneTags(tags)})
}

func (m *captureMetricsRecorder) snapshotHistograms() []capturedHistogram {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]capturedHistogram, len(m.histograms))
	copy(out, m.histograms)
	return out
}

func (m *captureMetricsRecorder) hasCounter(name string, status string, space string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, counter := range m.counters {
		if counter.name == name && counter.tags["status"] == status && counter.tags["space"] == space {
			return true
		}
	}
	return false
}

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

type captureLogger struct {
	mu       *sync.Mutex
	records  *[]capturedLog
	defaults map[string]any
}

func newCaptureLogger() *captureLogger {
	records := []capturedLog{}
	return &captureLogger{mu: &sync.Mutex{}, records: &records, defaults: map[string]any{}}
}

func (l *captureLogger) WithFields(fields map[string]any) Logger {
	merged := cloneFields(l.defaults)
	for key, value := range fields {
		merged[key] = value
	}
	return &captureLogger{mu: l.mu, records: l.records, defaults: merged}
}

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *captureLogger) WithContext(context.Context) Logger {
	return &captureLogger{mu: l.mu, records: l.records, defaults: cloneFields(l.defaults)}
}

func (l *captureLogger) record(level string, msg string, args ...any) {
	fields := cloneFields(l.defaults)
	for index := 0; index+1 < len(args); index += 2 {
		key, ok := args[index].(string)
		if !ok {
			continue
		}
		fields[key] = args[index+1]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, capturedLog{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) snapshot() []capturedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := *l.records
	out := make([]capturedLog, len(items))
	copy(out, items)
	return out
}

func newObservedService(t *testing.T) (*Service, *captureMetricsRecorder, *captureLogger) {
	t.Helper()
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	svc, err := NewService(DefaultConfig(),
		WithMetricsRecorder(metrics),
		WithLoggerProvider(stubLoggerProvider{logger: logger}),
		WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, metrics, logger
}

func TestServiceObservability_RegisterAndDeliver(t *testing.T) {
	svc, metrics, logger := newObservedService(t)

	code, err := svc.RegisterActivityCallback(context.Background(), func(context.Context, ActivityResult) {})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	svc.DeliverActivityResult(context.Background(), code, ResultOK, nil)

	if !metrics.hasCounter("dispatcher.register.total", "success", SpaceActivity) {
		t.Fatalf("expected dispatcher.register.total success counter")
	}
	if !metrics.hasCounter("dispatcher.deliver.total", "success", SpaceActivity) {
		t.Fatalf("expected dispatcher.deliver.total success counter")
	}
	if len(metrics.histograms) < 2 {
		t.Fatalf("expected duration histograms, got %d", len(metrics.histograms))
	}

	found := false
	for _, record := range logger.snapshot() {
		if record.msg == "deliver succeeded" && record.fields["code"] == code && record.fields["space"] == SpaceActivity {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected structured deliver log, got %#v", logger.snapshot())
	}
}

func TestDurationMillis_KeepsSubMillisecondPrecision(t *testing.T) {
	cases := []struct {
		duration time.Duration
		want     float64
	}{
		{0, 0},
		{999 * time.Nanosecond, 0},
		{250 * time.Microsecond, 0.25},
		{1500 * time.Microsecond, 1.5},
		{2 * time.Second, 2000},
	}
	for _, tc := range cases {
		if got := DurationMillis(tc.duration); got != tc.want {
			t.Fatalf("DurationMillis(%v): expected %v, got %v", tc.duration, tc.want, got)
		}
	}
}

func TestServiceObservability_DeliverDurationIsFractional(t *testing.T) {
	svc, metrics, _ := newObservedService(t)

	code, err := svc.RegisterActivityCallback(context.Background(), func(context.Context, ActivityResult) {
		time.Sleep(300 * time.Microsecond)
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	svc.DeliverActivityResult(context.Background(), code, ResultOK, nil)

	var observed []float64
	for _, histogram := range metrics.snapshotHistograms() {
		if histogram.name == "dispatcher.deliver.duration_ms" {
			observed = append(observed, histogram.value)
		}
	}
	if len(observed) != 1 {
		t.Fatalf("expected one deliver duration, got %v", observed)
	}
	if observed[0] < 0.3 {
		t.Fatalf("expected sub-millisecond callback time to be reported, got %vms", observed[0])
	}
}

func TestServiceObservability_MissIsNotAFailure(t *testing.T) {
	svc, metrics, logger := newObservedService(t)

	svc.DeliverPermissionResult(context.Background(), 3, true)

	if !metrics.hasCounter("dispatcher.miss.total", "miss", SpacePermission) {
		t.Fatalf("expected dispatcher.miss.total counter")
	}
	for _, record := range logger.snapshot() {
		if record.level == "error" {
			t.Fatalf("expected no error logs for a miss, got %#v", record)
		}
	}
}

func TestServiceObservability_PanicAndExhaustionAreFailures(t *testing.T) {
	metrics := &captureMetricsRecorder{}
	logger := newCaptureLogger()
	svc, err := NewService(DefaultConfig(),
		WithMetricsRecorder(metrics),
		WithLogger(logger),
		WithLoggerProvider(stubLoggerProvider{logger: logger}),
		WithGenerator(failingGenerator{err: ErrSpaceExhausted}),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	if _, err := svc.RegisterPermissionCallback(context.Background(), func(context.Context, PermissionResult) {}); err == nil {
		t.Fatalf("expected exhaustion error")
	}
	if !metrics.hasCounter("dispatcher.exhausted.total", "failure", SpacePermission) {
		t.Fatalf("expected dispatcher.exhausted.total failure counter")
	}

	other := newTestService(t, WithMetricsRecorder(metrics))
	code, err := other.RegisterActivityCallback(context.Background(), func(context.Context, ActivityResult) {
		panic("callback exploded")
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	other.DeliverActivityResult(context.Background(), code, ResultOK, nil)
	if !metrics.hasCounter("dispatcher.panic.total", "failure", SpaceActivity) {
		t.Fatalf("expected dispatcher.panic.total failure counter")
	}

	errorLogs := 0
	for _, record := range logger.snapshot() {
		if record.level == "error" {
			errorLogs++
		}
	}
	if errorLogs == 0 {
		t.Fatalf("expected exhaustion to be logged as error")
	}
}
