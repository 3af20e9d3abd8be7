package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/drip/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors fed by the engine hooks.
type Metrics struct {
	Steps    *prometheus.CounterVec
	Messages *prometheus.CounterVec
	Activity *prometheus.GaugeVec
	StepIdx  prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them on reg.
// reg may also be a *prometheus.Registry, in which case Handler serves it.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "drip_step_events_total",
				Help: "Engine transitions by event type and step action",
			},
			[]string{"event", "action"},
		),
		Messages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "drip_messages_total",
				Help: "Messages recorded in the transcript",
			},
			[]string{"originator", "kind"},
		),
		Activity: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "drip_status_label",
				Help: "1 for the presence label currently shown, 0 otherwise",
			},
			[]string{"label"},
		),
		StepIdx: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "drip_step_index",
			Help: "Last script position reported by the engine",
		}),
		gatherer: prometheus.DefaultGatherer,
	}
	reg.MustRegister(m.Steps, m.Messages, m.Activity, m.StepIdx)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// Hooks returns lifecycle hooks that update the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStep: func(_ context.Context, e *domain.StepEvent) {
			m.Steps.WithLabelValues(string(e.Type), string(e.Action)).Inc()
			m.StepIdx.Set(float64(e.StepIndex))
		},
		OnMessage: func(_ context.Context, msg domain.Message) {
			m.Messages.WithLabelValues(string(msg.Originator), string(msg.Kind)).Inc()
		},
		OnStatusChange: func(_ context.Context, label domain.StatusLabel) {
			for _, l := range []domain.StatusLabel{domain.LabelOnline, domain.LabelTyping, domain.LabelRecording} {
				v := 0.0
				if l == label {
					v = 1
				}
				m.Activity.WithLabelValues(string(l)).Set(v)
			}
		},
	}
}

// Handler serves the registry the metrics were registered on.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
