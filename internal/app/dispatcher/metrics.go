package dispatcher

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"whisper-asr-webservice/internal/app/errors"
	"whisper-asr-webservice/internal/app/model"
)

// Metrics counts requests by outcome. A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the request collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asr_requests_total",
			Help: "Transcription requests by engine, output format and outcome.",
		}, []string{"engine", "format", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "asr_request_duration_seconds",
			Help:    "End-to-end dispatch time including any model load.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"engine", "format"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration)
	}
	return m
}

func (m *Metrics) observe(engine model.EngineKind, format string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(string(engine), format, Outcome(err)).Inc()
	m.duration.WithLabelValues(string(engine), format).Observe(elapsed.Seconds())
}

// Outcome classifies err for metrics and logs
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errors.ErrValidation):
		return "invalid"
	case errors.Is(err, errors.ErrUnsupportedOption):
		return "unsupported"
	case errors.Is(err, errors.ErrCapacity):
		return "capacity"
	case errors.Is(err, errors.ErrLoad):
		return "load_failed"
	case errors.Is(err, errors.ErrFormat):
		return "format_failed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
