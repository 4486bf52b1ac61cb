package metrics

import (
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const (
	namespace          = "clinic"
	webhookRequestsKey = "clinic_webhook_requests_total"
)

// WebhookMetrics counts voice assistant webhook calls by endpoint and outcome.
type WebhookMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	m := &WebhookMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "requests_total",
			Help:      "Total Retell webhook requests",
		}, []string{"endpoint", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "latency_seconds",
			Help:      "Latency of Retell webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requests, m.latency)
	return m
}

// Observe records one webhook call. outcome is a short machine label such as
// "accepted", "slot_taken" or "invalid_phone".
func (m *WebhookMetrics) Observe(endpoint, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(endpoint, outcome).Inc()
	m.latency.WithLabelValues(endpoint).Observe(seconds)
}

// OutboxMetrics tracks delivery of outbox events by the worker.
type OutboxMetrics struct {
	delivered *prometheus.CounterVec
	failed    *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	m := &OutboxMetrics{
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "delivered_total",
			Help:      "Outbox events delivered",
		}, []string{"type"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "failed_total",
			Help:      "Outbox delivery attempts that failed",
		}, []string{"type"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.delivered, m.failed)
	return m
}

func (m *OutboxMetrics) ObserveDelivery(eventType string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.failed.WithLabelValues(eventType).Inc()
		return
	}
	m.delivered.WithLabelValues(eventType).Inc()
}

// WebhookCount is one row of the dashboard's webhook counter table.
type WebhookCount struct {
	Endpoint string  `json:"endpoint"`
	Outcome  string  `json:"outcome"`
	Count    float64 `json:"count"`
}

// WebhookSnapshot reads the webhook counters back out of a gatherer.
func WebhookSnapshot(g prometheus.Gatherer) ([]WebhookCount, error) {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}
	out := []WebhookCount{}
	for _, mf := range families {
		if mf.GetName() != webhookRequestsKey {
			continue
		}
		for _, m := range mf.GetMetric() {
			out = append(out, WebhookCount{
				Endpoint: label(m, "endpoint"),
				Outcome:  label(m, "outcome"),
				Count:    m.GetCounter().GetValue(),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Endpoint != out[j].Endpoint {
			return out[i].Endpoint < out[j].Endpoint
		}
		return strings.Compare(out[i].Outcome, out[j].Outcome) < 0
	})
	return out, nil
}

func label(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
