package loader

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics updated by decode sessions.
type Metrics struct {
	SessionsOpened *prometheus.CounterVec
	SlicesDecoded  *prometheus.CounterVec
	BytesRead      *prometheus.CounterVec
	SliceFailures  *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	sessionsOpened := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "volumeio_sessions_opened_total",
		Help: "Total decode sessions opened",
	}, []string{"format"})

	slicesDecoded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "volumeio_slices_decoded_total",
		Help: "Total slices decoded into a volume",
	}, []string{"format"})

	bytesRead := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "volumeio_bytes_read_total",
		Help: "Total payload bytes read, including the range scan",
	}, []string{"format"})

	sliceFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "volumeio_slice_failures_total",
		Help: "Total slices that failed to decode",
	}, []string{"format", "kind"})

	reg.MustRegister(sessionsOpened, slicesDecoded, bytesRead, sliceFailures)

	return &Metrics{
		SessionsOpened: sessionsOpened,
		SlicesDecoded:  slicesDecoded,
		BytesRead:      bytesRead,
		SliceFailures:  sliceFailures,
	}
}

func (m *Metrics) opened(format string) {
	if m != nil {
		m.SessionsOpened.WithLabelValues(format).Inc()
	}
}

func (m *Metrics) read(format string, n int) {
	if m != nil {
		m.BytesRead.WithLabelValues(format).Add(float64(n))
	}
}

func (m *Metrics) decoded(format string) {
	if m != nil {
		m.SlicesDecoded.WithLabelValues(format).Inc()
	}
}

func (m *Metrics) failed(format, kind string) {
	if m != nil {
		m.SliceFailures.WithLabelValues(format, kind).Inc()
	}
}
