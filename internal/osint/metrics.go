package osint

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are registered on their own registry so tests and multiple
// aggregators never collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	ScansTotal       *prometheus.CounterVec
	ProviderFailures *prometheus.CounterVec
	CacheHits        *prometheus.CounterVec
	RateLimited      prometheus.Counter
	LeakFetches      *prometheus.CounterVec
	ScanDuration     prometheus.Histogram
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		ScansTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tilt_osint_scans_total",
			Help: "OSINT scans run, by mode (cached or forced).",
		}, []string{"mode"}),
		ProviderFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tilt_osint_provider_failures_total",
			Help: "Evidence provider calls that failed or timed out.",
		}, []string{"provider"}),
		CacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tilt_osint_cache_hits_total",
			Help: "Evidence served from the per-domain cache.",
		}, []string{"provider"}),
		RateLimited: f.NewCounter(prometheus.CounterOpts{
			Name: "tilt_osint_rate_limited_total",
			Help: "Forced scans rejected by the leak list throttle.",
		}),
		LeakFetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "tilt_osint_leak_list_fetches_total",
			Help: "Leak list downloads, by result.",
		}, []string{"result"}),
		ScanDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "tilt_osint_scan_duration_seconds",
			Help:    "Wall time of a full OSINT scan.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
