package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisSink appends audit events to a Redis stream, trimming it to
// approximately maxLen entries so the stream cannot grow without bound.
type RedisSink struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisSink creates a Redis-stream-backed audit sink.
func NewRedisSink(client *redis.Client, stream string, maxLen int64) *RedisSink {
	return &RedisSink{client: client, stream: stream, maxLen: maxLen}
}

// Name identifies the sink in logs and health reporting.
func (s *RedisSink) Name() string { return "redis" }

// Append adds the event to the stream.
func (s *RedisSink) Append(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	if err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"event":    payload,
			"category": string(event.Category),
			"action":   string(event.Action),
		},
	}).Err(); err != nil {
		return fmt.Errorf("xadd audit event: %w", err)
	}

	return nil
}
