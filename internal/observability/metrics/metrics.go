package metrics

import "github.com/prometheus/client_golang/prometheus"

// ClassifierLatencyMetric is the fully qualified name of the classifier
// latency histogram, used by the admin stats endpoint to snapshot it.
const ClassifierLatencyMetric = "vitrine_chat_classifier_latency_seconds"

// ChatMetrics exposes counters/histograms for the chat and booking flows.
type ChatMetrics struct {
	messagesTotal     *prometheus.CounterVec
	classifierLatency *prometheus.HistogramVec
	dispatchTotal     *prometheus.CounterVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vitrine",
			Subsystem: "chat",
			Name:      "messages_total",
			Help:      "Total inbound widget messages",
		}, []string{"intent", "stage"}),
		classifierLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vitrine",
			Subsystem: "chat",
			Name:      "classifier_latency_seconds",
			Help:      "Latency of intent classification calls",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 10, 15},
		}, []string{"model", "status"}),
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vitrine",
			Subsystem: "chat",
			Name:      "dispatch_total",
			Help:      "Total booking notification dispatch attempts",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.messagesTotal, m.classifierLatency, m.dispatchTotal)
	return m
}

func (m *ChatMetrics) ObserveMessage(intent, stage string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(intent, stage).Inc()
}

func (m *ChatMetrics) ObserveClassifier(model, status string, seconds float64) {
	if m == nil {
		return
	}
	m.classifierLatency.WithLabelValues(model, status).Observe(seconds)
}

func (m *ChatMetrics) ObserveDispatch(outcome string) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(outcome).Inc()
}
