package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IANDYI/journal-service/internal/core/domain"
	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedAck struct {
	acked   bool
	nacked  bool
	requeue bool
}

// fakeAcknowledger records how a delivery was settled
type fakeAcknowledger struct {
	result recordedAck
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.result.acked = true
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple bool, requeue bool) error {
	a.result.nacked = true
	a.result.requeue = requeue
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

type fakeBroadcaster struct {
	warnings []domain.DangerWarning
	err      error
}

func (b *fakeBroadcaster) BroadcastWarning(ctx context.Context, warning domain.DangerWarning) (int, error) {
	if b.err != nil {
		return 0, b.err
	}
	b.warnings = append(b.warnings, warning)
	return 1, nil
}

func delivery(t *testing.T, ack *fakeAcknowledger, body interface{}) amqp091.Delivery {
	t.Helper()
	var raw []byte
	switch v := body.(type) {
	case string:
		raw = []byte(v)
	default:
		var err error
		raw, err = json.Marshal(v)
		require.NoError(t, err)
	}
	return amqp091.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: raw}
}

func TestWarningConsumer_ProcessMessage(t *testing.T) {
	warning := domain.DangerWarning{
		ID:               uuid.New(),
		Week:             32,
		UserID:           "6f1c2a4e-0000-4000-8000-000000000001",
		SymptomID:        "blurredVision",
		Title:            "Pandangan kabur",
		Description:      "Penglihatan kabur atau berkunang-kunang.",
		EmergencyActions: []string{"Segera ke fasilitas kesehatan"},
		RaisedAt:         time.Date(2024, 9, 1, 7, 0, 0, 0, time.UTC),
	}

	broadcaster := &fakeBroadcaster{}
	consumer := &WarningConsumer{broadcaster: broadcaster}
	ack := &fakeAcknowledger{}

	consumer.processMessage(context.Background(), delivery(t, ack, NewWarningEvent(warning)))

	assert.True(t, ack.result.acked)
	assert.False(t, ack.result.nacked)
	require.Len(t, broadcaster.warnings, 1)
	assert.Equal(t, warning, broadcaster.warnings[0])
}

func TestWarningConsumer_InvalidMessagesAreDropped(t *testing.T) {
	tests := map[string]interface{}{
		"not json":          "{",
		"missing id":        WarningEvent{SymptomID: "fever"},
		"missing symptom":   WarningEvent{WarningID: uuid.New()},
		"wrong field types": `{"warning_id": 12}`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			broadcaster := &fakeBroadcaster{}
			consumer := &WarningConsumer{broadcaster: broadcaster}
			ack := &fakeAcknowledger{}

			consumer.processMessage(context.Background(), delivery(t, ack, body))

			assert.True(t, ack.result.nacked)
			assert.False(t, ack.result.requeue)
			assert.Empty(t, broadcaster.warnings)
		})
	}
}

func TestWarningConsumer_BroadcastFailureRequeues(t *testing.T) {
	consumer := &WarningConsumer{broadcaster: &fakeBroadcaster{err: errors.New("hub stopped")}}
	ack := &fakeAcknowledger{}

	consumer.processMessage(context.Background(), delivery(t, ack, WarningEvent{WarningID: uuid.New(), SymptomID: "fever"}))

	assert.True(t, ack.result.nacked)
	assert.True(t, ack.result.requeue)
}
