package trustlist

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the trust list aggregator.
// Tracks refresh outcomes, published certificate counts and kid collisions.
type Metrics struct {
	Refreshes             *prometheus.CounterVec
	RefreshDuration       prometheus.Histogram
	RemoteFetchFailures   prometheus.Counter
	CertificatesPublished prometheus.Gauge
	KeyIDCollisions       prometheus.Gauge
	LastSuccess           prometheus.Gauge
}

// NewMetrics registers the trust list metrics on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Refreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "hcert_trustlist_refreshes_total",
			Help: "Total number of trust list refreshes by result",
		}, []string{"result"}),
		RefreshDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "hcert_trustlist_refresh_duration_seconds",
			Help:    "Duration of trust list refreshes including remote fetches",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		RemoteFetchFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "hcert_trustlist_remote_fetch_failures_total",
			Help: "Total number of failed remote certificate fetches",
		}),
		CertificatesPublished: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hcert_trustlist_certificates",
			Help: "Number of certificates in the published trust list",
		}),
		KeyIDCollisions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hcert_trustlist_kid_collisions",
			Help: "Number of kids shared by more than one certificate in the published trust list",
		}),
		LastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "hcert_trustlist_last_success_timestamp_seconds",
			Help: "Unix time of the last published trust list",
		}),
	}
}

// ObserveRefresh records the result and duration of a refresh.
// Call with time.Now() at the start of the refresh.
func (m *Metrics) ObserveRefresh(start time.Time, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.Refreshes.WithLabelValues(result).Inc()
	m.RefreshDuration.Observe(time.Since(start).Seconds())
}

// ObservePublished records the snapshot that was just published
func (m *Metrics) ObservePublished(s *Snapshot) {
	if m == nil {
		return
	}
	m.CertificatesPublished.Set(float64(len(s.Repository.Certificates())))
	m.KeyIDCollisions.Set(float64(len(s.Repository.Collisions())))
	m.LastSuccess.Set(float64(s.CreatedAt.Unix()))
}

// IncrementRemoteFetchFailures records a failed connector
func (m *Metrics) IncrementRemoteFetchFailures() {
	if m == nil {
		return
	}
	m.RemoteFetchFailures.Inc()
}
