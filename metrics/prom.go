package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "speechwire_frames_total",
			Help: "Protocol frames sent and received",
		},
		[]string{"direction", "msg_type"},
	)

	exchangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "speechwire_exchanges_total",
			Help: "Synthesis exchanges by outcome",
		},
		[]string{"outcome"},
	)

	audioBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "speechwire_audio_bytes_total",
			Help: "Audio bytes received from the speech service",
		},
	)

	activeExchanges = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "speechwire_active_exchanges",
			Help: "Exchanges currently in flight",
		},
	)

	exchangeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "speechwire_exchange_duration_seconds",
			Help:    "Wall time of one synthesis exchange",
			Buckets: prometheus.DefBuckets,
		},
	)

	restRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "speechwire_rest_requests_total",
			Help: "Calls to REST collaborators",
		},
		[]string{"operation", "outcome"},
	)
)

// Register registers all metrics with the provided registerer.
func Register(r prometheus.Registerer) {
	r.MustRegister(framesTotal, exchangesTotal, audioBytes, activeExchanges, exchangeDuration, restRequests)
}

// RecordFrame counts one frame in direction "in" or "out".
func RecordFrame(direction, msgType string) {
	framesTotal.WithLabelValues(direction, msgType).Inc()
}

// RecordExchange counts a finished exchange and its duration.
func RecordExchange(outcome string, d time.Duration) {
	exchangesTotal.WithLabelValues(outcome).Inc()
	exchangeDuration.Observe(d.Seconds())
}

// RecordAudioBytes adds n received audio bytes.
func RecordAudioBytes(n int) {
	audioBytes.Add(float64(n))
}

// ExchangeStarted and ExchangeEnded track the in-flight gauge.
func ExchangeStarted() { activeExchanges.Inc() }
func ExchangeEnded()   { activeExchanges.Dec() }

// RecordRESTRequest counts one REST call.
func RecordRESTRequest(operation string, success bool) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	restRequests.WithLabelValues(operation, outcome).Inc()
}
