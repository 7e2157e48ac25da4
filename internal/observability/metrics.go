package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	SessionsActive   prometheus.Gauge
	Requests         *prometheus.CounterVec
	EngineErrors     *prometheus.CounterVec
	ArtifactsSwept   prometheus.Counter
	RoundTripSeconds prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of conversations held in the session store.",
		}),
		Requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		EngineErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_errors_total",
			Help:      "Inference engine failures by engine.",
		}, []string{"engine"}),
		ArtifactsSwept: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_swept_total",
			Help:      "Expired audio artifacts removed by the reaper.",
		}),
		RoundTripSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_trip_seconds",
			Help:      "End-to-end latency of the speech round-trip in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
	}
}

func (m *Metrics) ObserveRequest(endpoint, outcome string) {
	m.Requests.WithLabelValues(endpoint, outcome).Inc()
}

func (m *Metrics) ObserveRoundTrip(d time.Duration) {
	m.RoundTripSeconds.Observe(d.Seconds())
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
