package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookSnapshot(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWebhookMetrics(reg)
	m.Observe("appointment", "accepted", 0.02)
	m.Observe("appointment", "accepted", 0.03)
	m.Observe("appointment", "slot_taken", 0.01)
	m.Observe("cancel", "not_found", 0.01)

	snap, err := WebhookSnapshot(reg)
	require.NoError(t, err)
	assert.Equal(t, []WebhookCount{
		{Endpoint: "appointment", Outcome: "accepted", Count: 2},
		{Endpoint: "appointment", Outcome: "slot_taken", Count: 1},
		{Endpoint: "cancel", Outcome: "not_found", Count: 1},
	}, snap)
}

func TestWebhookSnapshotEmptyRegistry(t *testing.T) {
	snap, err := WebhookSnapshot(prometheus.NewRegistry())
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestOutboxMetricsCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.ObserveDelivery("appointment.booked.v1", nil)
	m.ObserveDelivery("appointment.booked.v1", errors.New("queue down"))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 2)
}

func TestMetricsNilSafe(t *testing.T) {
	var w *WebhookMetrics
	w.Observe("appointment", "accepted", 0.1)
	var o *OutboxMetrics
	o.ObserveDelivery("x", nil)
}
