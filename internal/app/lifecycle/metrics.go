package lifecycle

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"whisper-asr-webservice/internal/app/model"
)

// Eviction reasons
const (
	ReasonIdle     = "idle"
	ReasonCapacity = "capacity"
	ReasonManual   = "manual"
	ReasonShutdown = "shutdown"
)

// Metrics exports lifecycle activity to Prometheus. A nil *Metrics records nothing.
type Metrics struct {
	loaded    prometheus.Gauge
	loads     *prometheus.CounterVec
	loadTime  *prometheus.HistogramVec
	evictions *prometheus.CounterVec
	refs      *prometheus.GaugeVec
}

// NewMetrics creates the lifecycle collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		loaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "asr_models_loaded",
			Help: "Number of models currently Ready.",
		}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asr_model_loads_total",
			Help: "Model load attempts by outcome.",
		}, []string{"engine", "model", "device", "result"}),
		loadTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "asr_model_load_duration_seconds",
			Help:    "Time spent loading a model.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"engine", "model"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "asr_model_evictions_total",
			Help: "Models unloaded, by reason.",
		}, []string{"engine", "model", "reason"}),
		refs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "asr_model_refs",
			Help: "In-flight holders of each loaded model.",
		}, []string{"engine", "model", "device"}),
	}
	if reg != nil {
		reg.MustRegister(m.loaded, m.loads, m.loadTime, m.evictions, m.refs)
	}
	return m
}

func (m *Metrics) observeLoad(key model.ModelKey, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.loads.WithLabelValues(string(key.Engine), key.Name, string(key.Device), result).Inc()
	if err == nil {
		m.loaded.Inc()
		m.loadTime.WithLabelValues(string(key.Engine), key.Name).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) observeEviction(key model.ModelKey, reason string) {
	if m == nil {
		return
	}
	m.loaded.Dec()
	m.evictions.WithLabelValues(string(key.Engine), key.Name, reason).Inc()
	m.refs.DeleteLabelValues(string(key.Engine), key.Name, string(key.Device))
}

func (m *Metrics) setRefs(key model.ModelKey, refs int) {
	if m == nil {
		return
	}
	m.refs.WithLabelValues(string(key.Engine), key.Name, string(key.Device)).Set(float64(refs))
}
