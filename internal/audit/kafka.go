package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/markcoleman/Aggregator-the-agitator/internal/platform/kafka/producer"
)

// KafkaProducer is the subset of the Kafka producer surface the sink needs.
type KafkaProducer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// KafkaSink publishes audit events to a Kafka topic. Events are keyed by
// subject so one subject's events stay ordered within a partition.
type KafkaSink struct {
	producer KafkaProducer
	topic    string
}

// NewKafkaSink creates a Kafka-backed audit sink.
func NewKafkaSink(p KafkaProducer, topic string) *KafkaSink {
	return &KafkaSink{producer: p, topic: topic}
}

// Name identifies the sink in logs and health reporting.
func (s *KafkaSink) Name() string { return "kafka" }

// Append publishes the event, waiting for broker acknowledgement.
func (s *KafkaSink) Append(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	key := []byte(event.SubjectID.String())
	if len(key) == 0 {
		key = []byte(event.EventID)
	}

	return s.producer.Produce(ctx, &producer.Message{
		Topic: s.topic,
		Key:   key,
		Value: payload,
		Headers: map[string]string{
			"category": string(event.Category),
			"action":   string(event.Action),
		},
	})
}
