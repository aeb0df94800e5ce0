// =============================================================================
// BR Code Generator - Run Metrics
// =============================================================================
//
// The CLI is short lived, so counters are not scraped over HTTP. They are
// collected on a private registry and written in the Prometheus text format
// to the file configured as metrics_file (node_exporter textfile collector).
//
//   brcode_payloads_generated_total{profile}
//   brcode_payloads_failed_total{profile,reason}
//   brcode_file_duration_seconds{profile}
//
// =============================================================================

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder collects the counters of one run. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	registry  *prometheus.Registry
	generated *prometheus.CounterVec
	failed    *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// New returns a Recorder backed by its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		generated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "brcode_payloads_generated_total",
			Help: "Payloads generated, by merchant profile.",
		}, []string{"profile"}),
		failed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "brcode_payloads_failed_total",
			Help: "Rows that did not produce a payload, by merchant profile and reason.",
		}, []string{"profile", "reason"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "brcode_file_duration_seconds",
			Help:    "Time spent converting one order file.",
			Buckets: prometheus.ExponentialBuckets(0.005, 4, 8),
		}, []string{"profile"}),
	}
}

func (r *Recorder) PayloadGenerated(profile string) {
	if r == nil {
		return
	}
	r.generated.WithLabelValues(profile).Inc()
}

func (r *Recorder) PayloadFailed(profile, reason string) {
	if r == nil {
		return
	}
	r.failed.WithLabelValues(profile, reason).Inc()
}

func (r *Recorder) ObserveFile(profile string, d time.Duration) {
	if r == nil {
		return
	}
	r.duration.WithLabelValues(profile).Observe(d.Seconds())
}

// Gatherer exposes the registry, mostly for tests.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes the current values to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
