//go:build integration

package postgres_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"keygate/internal/platform/kafka"
	audit "keygate/pkg/platform/audit"
	"keygate/pkg/platform/audit/consumer"
	auditpg "keygate/pkg/platform/audit/store/postgres"
	"keygate/pkg/platform/audit/worker"
	"keygate/pkg/testutil/containers"
)

// recordingProducer captures published payloads in place of a real broker.
type recordingProducer struct {
	messages []kafka.Message
}

func (p *recordingProducer) Produce(_ context.Context, key, value []byte) error {
	p.messages = append(p.messages, kafka.Message{Key: key, Value: value})
	return nil
}

type AuditPipelineSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *auditpg.Store
}

func TestAuditPipelineSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(AuditPipelineSuite))
}

func (s *AuditPipelineSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = auditpg.New(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *AuditPipelineSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_outbox", "audit_entries"))
}

func (s *AuditPipelineSuite) newEntry(action audit.Action, entityID string) audit.Entry {
	return audit.Entry{
		ID:         uuid.New(),
		Timestamp:  time.Now().UTC().Truncate(time.Microsecond),
		Actor:      "support:jordan",
		Action:     action,
		EntityType: audit.EntityLicense,
		EntityID:   entityID,
		Reason:     "customer request",
		Decision:   audit.DecisionApplied,
		RequestID:  uuid.NewString(),
		Before:     map[string]any{"status": "active"},
		After:      map[string]any{"status": "revoked"},
	}
}

// An entry written to the outbox travels worker -> payload -> consumer and
// lands in audit_entries with its identity intact.
func (s *AuditPipelineSuite) TestOutboxToEntriesRoundTrip() {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	entry := s.newEntry(audit.ActionLicenseRevoked, "****-****-****-****-ABCD")
	s.Require().NoError(s.store.Append(ctx, entry))

	producer := &recordingProducer{}
	w := worker.New(s.postgres.DB, producer, log)
	s.Require().NoError(w.Drain(ctx))
	s.Require().Len(producer.messages, 1)

	c := consumer.New(s.store, log)
	s.Require().NoError(c.Handle(ctx, &producer.messages[0]))

	got, err := s.store.ListByEntity(ctx, audit.EntityLicense, entry.EntityID)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(entry.ID, got[0].ID)
	s.Equal(entry.Actor, got[0].Actor)
	s.Equal(audit.ActionLicenseRevoked, got[0].Action)
	s.Equal(audit.DecisionApplied, got[0].Decision)
	s.Equal(entry.RequestID, got[0].RequestID)
	s.Equal("revoked", got[0].After["status"])
	s.WithinDuration(entry.Timestamp, got[0].Timestamp, time.Microsecond)
}

// Drain removes published rows; a second drain finds nothing to publish.
func (s *AuditPipelineSuite) TestDrainConsumesOutbox() {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	for i := 0; i < 3; i++ {
		s.Require().NoError(s.store.Append(ctx, s.newEntry(audit.ActionBindingReset, "key-"+uuid.NewString())))
	}

	producer := &recordingProducer{}
	w := worker.New(s.postgres.DB, producer, log)
	s.Require().NoError(w.Drain(ctx))
	s.Len(producer.messages, 3)

	s.Require().NoError(w.Drain(ctx))
	s.Len(producer.messages, 3)
}

// Redelivery of the same payload must not duplicate the materialized entry.
func (s *AuditPipelineSuite) TestMaterializationIsIdempotent() {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	entry := s.newEntry(audit.ActionLicenseReissued, "****-****-****-****-EFGH")
	s.Require().NoError(s.store.Append(ctx, entry))

	producer := &recordingProducer{}
	w := worker.New(s.postgres.DB, producer, log)
	s.Require().NoError(w.Drain(ctx))
	s.Require().Len(producer.messages, 1)

	c := consumer.New(s.store, log)
	s.Require().NoError(c.Handle(ctx, &producer.messages[0]))
	s.Require().NoError(c.Handle(ctx, &producer.messages[0]))

	got, err := s.store.ListByEntity(ctx, audit.EntityLicense, entry.EntityID)
	s.Require().NoError(err)
	s.Len(got, 1)
}

// Without a broker the direct store materializes on Append, so admin audit
// reads see entries immediately and nothing is left waiting in the outbox.
func (s *AuditPipelineSuite) TestDirectModeMaterializesOnAppend() {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	direct := auditpg.NewDirect(s.postgres.DB)
	entry := s.newEntry(audit.ActionLicenseRevoked, "****-****-****-****-IJKL")
	s.Require().NoError(direct.Append(ctx, entry))

	got, err := direct.ListByEntity(ctx, audit.EntityLicense, entry.EntityID)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(entry.ID, got[0].ID)
	s.Equal("revoked", got[0].After["status"])

	recent, err := direct.ListRecent(ctx, 10)
	s.Require().NoError(err)
	s.Len(recent, 1)

	producer := &recordingProducer{}
	s.Require().NoError(worker.New(s.postgres.DB, producer, log).Drain(ctx))
	s.Empty(producer.messages)
}

func (s *AuditPipelineSuite) TestListRecentOrdersNewestFirst() {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Microsecond)

	for i := 0; i < 3; i++ {
		e := s.newEntry(audit.ActionTrialExtended, "key-recent")
		e.Timestamp = base.Add(time.Duration(i) * time.Second)
		s.Require().NoError(s.store.AppendWithID(ctx, e.ID, e))
	}

	got, err := s.store.ListRecent(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.WithinDuration(base.Add(2*time.Second), got[0].Timestamp, time.Microsecond)
	s.WithinDuration(base.Add(time.Second), got[1].Timestamp, time.Microsecond)
}
