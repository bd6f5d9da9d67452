package metrics

import "github.com/prometheus/client_golang/prometheus"

// GenerationMetrics counts generation pipeline step outcomes.
type GenerationMetrics struct {
	steps *prometheus.CounterVec
}

func NewGenerationMetrics(reg prometheus.Registerer) *GenerationMetrics {
	if reg == nil {
		return &GenerationMetrics{}
	}
	steps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generation_steps_total",
		Help:      "Generation pipeline steps by step name and outcome.",
	}, []string{"step", "outcome"})
	reg.MustRegister(steps)
	return &GenerationMetrics{steps: steps}
}

func (m *GenerationMetrics) IncStep(step, outcome string) {
	if m == nil || m.steps == nil {
		return
	}
	m.steps.WithLabelValues(normalizeLabel(step), normalizeLabel(outcome)).Inc()
}
