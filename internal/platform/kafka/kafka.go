// Package kafka builds the franz-go client used by the audit sink.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"fleetops/internal/platform/config"
)

// NewClient returns a producer that waits for all in-sync replicas and keeps
// per-key ordering. It returns nil when no brokers are configured.
func NewClient(cfg config.KafkaConfig) (*kgo.Client, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.AuditTopic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5*time.Millisecond),
		kgo.RecordRetries(10),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}

// EnsureTopic creates the audit topic if it does not exist yet.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32) error {
	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopic(ctx, partitions, -1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, resp.Err)
	}
	return nil
}

// Health pings the cluster.
func Health(ctx context.Context, client *kgo.Client) error {
	return client.Ping(ctx)
}
