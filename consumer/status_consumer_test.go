package consumer_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"rate-analysis-service/consumer"
	"rate-analysis-service/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// ---- mock sink ----

type mockSink struct {
	applied []models.AnalysisStatus
}

func (m *mockSink) Apply(status models.AnalysisStatus) bool {
	m.applied = append(m.applied, status)
	return true
}

// ---- helper ----

func newConsumer(sink *mockSink) *consumer.StatusConsumer {
	return consumer.NewStatusConsumer(aws.Config{}, "http://localhost/queue", sink, nil, zap.NewNop())
}

func envelopeFor(t *testing.T, event models.AnalysisStatusEvent) string {
	t.Helper()
	inner, err := json.Marshal(event)
	assert.NoError(t, err)
	outer, err := json.Marshal(map[string]string{"Message": string(inner)})
	assert.NoError(t, err)
	return string(outer)
}

// ---- tests ----

func TestHandleMessage_UnwrapsEnvelope(t *testing.T) {
	sink := &mockSink{}
	c := newConsumer(sink)
	analysisID := uuid.New()

	body := envelopeFor(t, models.AnalysisStatusEvent{
		EventType:          models.EventTypeAnalysisStatus,
		AnalysisID:         analysisID,
		Status:             models.AnalysisStatusInProgress,
		TotalShipments:     100,
		ProcessedShipments: 40,
		Revision:           7,
		Timestamp:          time.Now(),
	})

	err := c.HandleMessage(context.Background(), body)
	assert.NoError(t, err)
	assert.Len(t, sink.applied, 1)
	assert.Equal(t, analysisID, sink.applied[0].AnalysisID)
	assert.Equal(t, 40.0, sink.applied[0].Percent)
	assert.Equal(t, int64(7), sink.applied[0].Revision)
}

func TestHandleMessage_RawDelivery(t *testing.T) {
	sink := &mockSink{}
	c := newConsumer(sink)

	inner, err := json.Marshal(models.AnalysisStatusEvent{
		EventType:  models.EventTypeAnalysisStatus,
		AnalysisID: uuid.New(),
		Status:     models.AnalysisStatusCompleted,
	})
	assert.NoError(t, err)

	assert.NoError(t, c.HandleMessage(context.Background(), string(inner)))
	assert.Len(t, sink.applied, 1)
}

func TestHandleMessage_UnparseableIsDropped(t *testing.T) {
	sink := &mockSink{}
	c := newConsumer(sink)

	err := c.HandleMessage(context.Background(), "not json at all {{")
	assert.NoError(t, err, "Garbage must be deleted, not retried forever")
	assert.Empty(t, sink.applied)
}

func TestHandleMessage_IgnoresOtherEventTypes(t *testing.T) {
	sink := &mockSink{}
	c := newConsumer(sink)

	body := envelopeFor(t, models.AnalysisStatusEvent{
		EventType:  "order_created",
		AnalysisID: uuid.New(),
	})

	assert.NoError(t, c.HandleMessage(context.Background(), body))
	assert.Empty(t, sink.applied)
}
