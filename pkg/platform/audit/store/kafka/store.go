// Package kafka publishes audit events to a Kafka topic keyed by driver, so a
// driver's trail stays ordered within one partition.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "fleetops/pkg/platform/audit"
)

// Producer is the subset of *kgo.Client the sink needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Store writes events synchronously; Append returns only after the broker
// acknowledged the record.
type Store struct {
	client Producer
	topic  string
}

func New(client Producer, topic string) *Store {
	return &Store{client: client, topic: topic}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	return s.Publish(ctx, string(event.DriverID), string(event.Action), payload)
}

// Publish produces an already-encoded payload.
func (s *Store) Publish(ctx context.Context, key, eventType string, payload []byte) error {
	rec := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(key),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}
	if err := s.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}
