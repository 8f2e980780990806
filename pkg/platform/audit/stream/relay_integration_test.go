//go:build integration

package stream_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	id "qualify/pkg/domain"
	audit "qualify/pkg/platform/audit"
	auditpg "qualify/pkg/platform/audit/store/postgres"
	"qualify/pkg/platform/audit/stream"
	"qualify/pkg/testutil/containers"
)

// =============================================================================
// Outbox Relay Integration Suite
// =============================================================================
// An entry appended to Postgres must arrive on the topic exactly as recorded,
// and its outbox row must be marked published.

type RelayIntegrationSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	kafka *containers.KafkaContainer
	store *auditpg.Store
}

func TestRelayIntegrationSuite(t *testing.T) {
	suite.Run(t, new(RelayIntegrationSuite))
}

func (s *RelayIntegrationSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.kafka = containers.NewKafkaContainer(s.T())
	s.store = auditpg.New(s.pg.DB)
}

func (s *RelayIntegrationSuite) TestAppendThenRelay() {
	ctx := context.Background()
	const topic = "qualify.audit.test"
	s.Require().NoError(stream.EnsureTopic(ctx, s.kafka.Admin, topic, 1, 1))
	s.Require().NoError(stream.EnsureTopic(ctx, s.kafka.Admin, topic, 1, 1), "second call is a no-op")

	recordID := id.NewRecordID()
	entry := audit.Entry{
		ID:             id.NewEntryID(),
		Type:           audit.EventTrainingOverdue,
		Source:         audit.SourceSystem,
		Subject:        audit.Subject{UserID: id.NewUserID(), RecordID: recordID},
		PreviousStatus: "PENDING",
		NewStatus:      "OVERDUE",
		Metadata:       audit.OverdueMetadata{DueDate: time.Now().Add(-time.Hour).UTC(), Trigger: "sweep"},
		Timestamp:      time.Now().UTC().Truncate(time.Microsecond),
	}
	s.Require().NoError(s.store.Append(ctx, entry))
	s.Require().NoError(s.store.Append(ctx, entry), "replayed append is idempotent")

	s.Run("update is rejected", func() {
		s.Error(s.store.Update(ctx, entry))
	})

	relay, err := stream.NewRelay(s.store, s.kafka.Client, topic)
	s.Require().NoError(err)
	n, err := relay.PublishOnce(ctx)
	s.Require().NoError(err)
	s.Equal(1, n)

	n, err = relay.PublishOnce(ctx)
	s.Require().NoError(err)
	s.Zero(n, "published rows are not relayed twice")

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.kafka.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	pollCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(pollCtx)
	s.Require().Empty(fetches.Errors())
	records := fetches.Records()
	s.Require().Len(records, 1)

	got, err := stream.Decode(records[0])
	s.Require().NoError(err)
	s.Equal(entry.ID, got.ID)
	s.Equal(recordID, got.Subject.RecordID)
	s.Equal("OVERDUE", got.NewStatus)
	s.Equal("sweep", got.Metadata.(audit.OverdueMetadata).Trigger)
}
