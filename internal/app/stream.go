package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"qualify/pkg/platform/audit/stream"
)

// errNoRelay means the outbox relay is not configured for this process.
var errNoRelay = errors.New("audit relay disabled")

// AuditRelay connects to Kafka, ensures the audit topic and returns a relay
// over the Postgres outbox. The returned close func releases the client.
// It returns errNoRelay when either Kafka brokers or Postgres are absent.
func (a *App) AuditRelay(ctx context.Context) (*stream.Relay, func(), error) {
	cfg := a.Config.Kafka
	if len(cfg.Brokers) == 0 || a.Outbox == nil {
		return nil, nil, errNoRelay
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(0),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka client: %w", err)
	}
	if err := stream.EnsureTopic(ctx, kadm.NewClient(client), cfg.AuditTopic, cfg.Partitions, cfg.ReplicationFactor); err != nil {
		client.Close()
		return nil, nil, err
	}
	relay, err := stream.NewRelay(a.Outbox, client, cfg.AuditTopic,
		stream.WithLogger(a.Logger),
		stream.WithBatchSize(cfg.RelayBatch),
		stream.WithInterval(cfg.RelayInterval),
	)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return relay, client.Close, nil
}

// RelayDisabled reports whether err means no relay is configured.
func RelayDisabled(err error) bool {
	return errors.Is(err, errNoRelay)
}
