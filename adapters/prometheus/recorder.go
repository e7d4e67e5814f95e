package prometheus

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-dispatcher/core"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "dispatcher"

// StatsSource reports occupancy of every correlation space.
type StatsSource interface {
	AllSpaceStats(ctx context.Context) []core.SpaceStats
}

// Recorder implements core.MetricsRecorder on top of client_golang
// collectors. Service events land in the operation vectors; go-job worker
// events land in the job vectors.
type Recorder struct {
	operations        *prom.CounterVec
	operationDuration *prom.HistogramVec
	jobs              *prom.CounterVec
	jobDuration       *prom.HistogramVec
}

func NewRecorder() *Recorder {
	return &Recorder{
		operations: prom.NewCounterVec(
			prom.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Dispatch operations by space, operation and status.",
			},
			[]string{"space", "operation", "status"},
		),
		operationDuration: prom.NewHistogramVec(
			prom.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Dispatch operation latency, including callback execution for deliveries.",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"space", "operation"},
		),
		jobs: prom.NewCounterVec(
			prom.CounterOpts{
				Namespace: namespace,
				Name:      "job_events_total",
				Help:      "Queued result worker events by job id and phase.",
			},
			[]string{"job_id", "phase"},
		),
		jobDuration: prom.NewHistogramVec(
			prom.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Queued result processing latency.",
				Buckets:   prom.DefBuckets,
			},
			[]string{"job_id", "phase"},
		),
	}
}

// Register adds the recorder collectors to registerer.
func (r *Recorder) Register(registerer prom.Registerer) error {
	if r == nil {
		return fmt.Errorf("prometheus: recorder is not configured")
	}
	if registerer == nil {
		registerer = prom.DefaultRegisterer
	}
	for _, collector := range r.collectors() {
		if err := registerer.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

func (r *Recorder) collectors() []prom.Collector {
	return []prom.Collector{r.operations, r.operationDuration, r.jobs, r.jobDuration}
}

func (r *Recorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil || value <= 0 {
		return
	}
	if isJobMetric(name) {
		r.jobs.WithLabelValues(tags["job_id"], tags["phase"]).Add(float64(value))
		return
	}
	r.operations.WithLabelValues(tags["space"], operationName(name, tags), tags["status"]).Add(float64(value))
}

// ObserveHistogram expects millisecond values, the unit the service reports.
func (r *Recorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil || value < 0 {
		return
	}
	seconds := value / 1000
	if isJobMetric(name) {
		r.jobDuration.WithLabelValues(tags["job_id"], tags["phase"]).Observe(seconds)
		return
	}
	r.operationDuration.WithLabelValues(tags["space"], operationName(name, tags)).Observe(seconds)
}

func isJobMetric(name string) bool {
	return strings.HasPrefix(strings.TrimSpace(name), namespace+".job.")
}

// operationName prefers the operation tag and falls back to the middle
// segment of "dispatcher.<operation>.<suffix>".
func operationName(name string, tags map[string]string) string {
	if operation := strings.TrimSpace(tags["operation"]); operation != "" {
		return operation
	}
	parts := strings.Split(strings.TrimSpace(name), ".")
	if len(parts) >= 3 {
		return parts[1]
	}
	return "unknown"
}

// PendingCollector exports the number of pending callbacks and the code
// bound of every correlation space at scrape time.
type PendingCollector struct {
	source  StatsSource
	pending *prom.Desc
	bound   *prom.Desc
}

func NewPendingCollector(source StatsSource) *PendingCollector {
	return &PendingCollector{
		source: source,
		pending: prom.NewDesc(
			prom.BuildFQName(namespace, "", "pending_callbacks"),
			"Callbacks registered and not yet delivered or reclaimed.",
			[]string{"space"}, nil,
		),
		bound: prom.NewDesc(
			prom.BuildFQName(namespace, "", "space_bound"),
			"Exclusive upper bound of request codes in the space.",
			[]string{"space"}, nil,
		),
	}
}

func (c *PendingCollector) Describe(ch chan<- *prom.Desc) {
	ch <- c.pending
	ch <- c.bound
}

func (c *PendingCollector) Collect(ch chan<- prom.Metric) {
	if c == nil || c.source == nil {
		return
	}
	for _, stats := range c.source.AllSpaceStats(context.Background()) {
		ch <- prom.MustNewConstMetric(c.pending, prom.GaugeValue, float64(stats.Pending), stats.Space)
		ch <- prom.MustNewConstMetric(c.bound, prom.GaugeValue, float64(stats.Bound), stats.Space)
	}
}

var (
	_ core.MetricsRecorder = (*Recorder)(nil)
	_ prom.Collector       = (*PendingCollector)(nil)
	_ StatsSource          = (*core.Service)(nil)
)
