//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/redpanda"
	"github.com/twmb/franz-go/pkg/kgo"
)

// RedpandaContainer wraps a Kafka-compatible broker.
type RedpandaContainer struct {
	Container testcontainers.Container
	Broker    string
}

// NewRedpandaContainer starts a single-node Redpanda broker with topic
// auto-creation enabled.
func NewRedpandaContainer(t *testing.T) *RedpandaContainer {
	t.Helper()

	ctx := context.Background()

	container, err := redpanda.Run(ctx, "docker.redpanda.com/redpandadata/redpanda:v24.2.4",
		redpanda.WithAutoCreateTopics(),
	)
	if err != nil {
		t.Fatalf("failed to start redpanda container: %v", err)
	}

	broker, err := container.KafkaSeedBroker(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get redpanda seed broker: %v", err)
	}

	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	return &RedpandaContainer{Container: container, Broker: broker}
}

// Consumer returns a client reading topic from the start.
func (r *RedpandaContainer) Consumer(t *testing.T, topic string) *kgo.Client {
	t.Helper()
	client, err := kgo.NewClient(
		kgo.SeedBrokers(r.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	if err != nil {
		t.Fatalf("failed to create kafka consumer: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}
