package metrics

import "github.com/prometheus/client_golang/prometheus"

// Publish outcome labels.
const (
	PublishOutcomeSuccess      = "success"
	PublishOutcomeFailure      = "failure"
	PublishOutcomeDeadLettered = "dead_lettered"
)

// PublishMetrics counts publish attempts per platform, trigger and outcome.
type PublishMetrics struct {
	attempts *prometheus.CounterVec
}

func NewPublishMetrics(reg prometheus.Registerer) *PublishMetrics {
	if reg == nil {
		return &PublishMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "publish_attempts_total",
		Help:      "Publish attempts by platform, trigger and outcome.",
	}, []string{"platform", "trigger", "outcome"})
	reg.MustRegister(attempts)
	return &PublishMetrics{attempts: attempts}
}

func (m *PublishMetrics) Inc(platform, trigger, outcome string) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.WithLabelValues(normalizeLabel(platform), normalizeLabel(trigger), normalizeLabel(outcome)).Inc()
}
