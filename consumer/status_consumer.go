// Package consumer feeds SNS status events from SQS into the live job
// trackers, so pollers see pushed progress between database polls.
package consumer

import (
	"context"
	"encoding/json"

	"rate-analysis-service/models"
	awspkg "rate-analysis-service/pkg/aws"

	"github.com/aws/aws-sdk-go-v2/aws"
	"go.uber.org/zap"
)

// StatusSink receives decoded status updates. It reports whether the update
// was accepted.
type StatusSink interface {
	Apply(status models.AnalysisStatus) bool
}

type StatusConsumer struct {
	consumer *awspkg.SQSConsumer
	sink     StatusSink
	metrics  *awspkg.MetricsClient
	logger   *zap.Logger
}

func NewStatusConsumer(cfg aws.Config, queueURL string, sink StatusSink, metrics *awspkg.MetricsClient, logger *zap.Logger) *StatusConsumer {
	return &StatusConsumer{
		consumer: awspkg.NewSQSConsumer(cfg, queueURL),
		sink:     sink,
		metrics:  metrics,
		logger:   logger,
	}
}

// Start polls the queue until ctx is cancelled.
func (c *StatusConsumer) Start(ctx context.Context) error {
	c.logger.Info("Status consumer started")
	return c.consumer.StartPolling(ctx, c.HandleMessage)
}

// snsEnvelope unwraps the SNS → SQS message wrapper
type snsEnvelope struct {
	Message string `json:"Message"`
}

// HandleMessage decodes one queue message and routes it to the sink. A nil
// return deletes the message; unparseable payloads are dropped rather than
// retried forever.
func (c *StatusConsumer) HandleMessage(_ context.Context, body string) error {
	var envelope snsEnvelope
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		c.logger.Error("failed to unmarshal SNS envelope", zap.Error(err))
		return nil
	}

	// Raw message delivery skips the envelope
	payload := envelope.Message
	if payload == "" {
		payload = body
	}

	var event models.AnalysisStatusEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		c.logger.Error("failed to unmarshal status event", zap.Error(err))
		return nil
	}
	if event.EventType != models.EventTypeAnalysisStatus {
		c.logger.Debug("ignoring event", zap.String("event_type", event.EventType))
		return nil
	}

	accepted := c.sink.Apply(event.ToStatus())
	if c.metrics != nil {
		_ = c.metrics.RecordCount(context.Background(), awspkg.MetricSQSMessages, nil)
	}

	c.logger.Debug("status event handled",
		zap.String("analysis_id", event.AnalysisID.String()),
		zap.String("status", event.Status),
		zap.Int64("revision", event.Revision),
		zap.Bool("accepted", accepted),
	)
	return nil
}
