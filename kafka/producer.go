package kafka

import (
	"context"
	"encoding/json"
	"log"

	"rate-analysis-service/models"

	"github.com/segmentio/kafka-go"
)

type Producer struct {
	writer *kafka.Writer
	topic  string
}

func NewProducer(brokers []string, topic string) (*Producer, error) {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}, nil
}

// SendLifecycleEvent publishes an analysis start/terminal event, keyed by
// analysis so one analysis's events stay ordered.
func (p *Producer) SendLifecycleEvent(event models.AnalysisLifecycleEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.AnalysisID),
		Value: data,
	}

	err = p.writer.WriteMessages(context.Background(), msg)
	if err != nil {
		log.Printf("failed to send Kafka message: %v", err)
	}
	return err
}

func (p *Producer) Close() {
	_ = p.writer.Close()
}
