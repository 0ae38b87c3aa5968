// Package admin is the remediation gateway support staff act through. Every
// operation requires a reason, destructive ones a confirmation phrase, and
// every call, applied or rejected, leaves exactly one audit entry.
package admin

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"keygate/internal/licensing/metrics"
	"keygate/internal/licensing/service/lifecycle"
	"keygate/internal/licensing/service/rebind"
	"keygate/internal/licensing/service/trial"
	"keygate/pkg/domain"
	"keygate/pkg/platform/audit"
	"keygate/pkg/platform/tx"
	"keygate/pkg/requestcontext"
)

const tracerName = "keygate/admin"

// Outcome carries the per-operation results callers need; fields are set
// depending on the command variant.
type Outcome struct {
	NewLicenseKey domain.LicenseKey
	ExpiresAt     time.Time
	NewEndDate    time.Time
}

type Gateway struct {
	lifecycle *lifecycle.Service
	rebinds   *rebind.Service
	trials    *trial.Service
	audits    *audit.Publisher
	runner    tx.Runner
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewGateway(lc *lifecycle.Service, rb *rebind.Service, tr *trial.Service, audits *audit.Publisher, runner tx.Runner, m *metrics.Metrics, logger *slog.Logger) *Gateway {
	return &Gateway{
		lifecycle: lc,
		rebinds:   rb,
		trials:    tr,
		audits:    audits,
		runner:    runner,
		metrics:   m,
		logger:    logger,
	}
}

// Execute runs one remediation command. The mutation and its audit entry
// commit in one transaction; rejected commands mutate nothing but are audited
// all the same, so gateway misuse is visible.
func (g *Gateway) Execute(ctx context.Context, cmd Command) (*Outcome, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "admin.execute")
	defer span.End()
	span.SetAttributes(attribute.String("admin.action", string(cmd.Action())))

	if err := cmd.validate(); err != nil {
		g.auditRejected(ctx, cmd)
		return nil, err
	}

	outcome := &Outcome{}
	err := g.runner.RunInTx(ctx, func(ctx context.Context) error {
		before, after, err := g.apply(ctx, cmd, outcome)
		if err != nil {
			return err
		}
		// A failed audit write aborts the transaction: the contract is no
		// unaudited mutations.
		return g.audit(ctx, cmd, audit.DecisionApplied, before, after)
	})
	if err != nil {
		// The transaction rolled back; record the rejection outside it.
		g.auditRejected(ctx, cmd)
		return nil, err
	}
	return outcome, nil
}

func (g *Gateway) apply(ctx context.Context, cmd Command, outcome *Outcome) (before, after map[string]any, err error) {
	switch c := cmd.(type) {
	case ReissueLicense:
		change, err := g.lifecycle.Reissue(ctx, c.Key)
		if err != nil {
			return nil, nil, err
		}
		outcome.NewLicenseKey = change.NewKey
		return change.Before, change.After, nil

	case RevokeLicense:
		change, err := g.lifecycle.Revoke(ctx, c.Key)
		if err != nil {
			return nil, nil, err
		}
		return change.Before, change.After, nil

	case ResetBinding:
		change, err := g.lifecycle.ResetBinding(ctx, c.Key)
		if err != nil {
			return nil, nil, err
		}
		return change.Before, change.After, nil

	case GrantRebindException:
		exc, err := g.rebinds.Grant(ctx, c.Key, c.Reason, c.Hours)
		if err != nil {
			return nil, nil, err
		}
		outcome.ExpiresAt = exc.ExpiresAt
		return nil, map[string]any{
			"expires_at": exc.ExpiresAt.UTC().Format(time.RFC3339),
			"hours":      c.Hours,
		}, nil

	case CompLicense:
		change, err := g.lifecycle.Comp(ctx, c.CustomerEmail, c.Product)
		if err != nil {
			return nil, nil, err
		}
		outcome.NewLicenseKey = change.NewKey
		return nil, change.After, nil

	case ExtendTrial:
		change, err := g.trials.Extend(ctx, c.Key, c.Days)
		if err != nil {
			return nil, nil, err
		}
		outcome.NewEndDate = change.Trial.EndDate
		return change.Before, change.After, nil
	}
	// Unreachable while Command stays closed.
	panic("admin: unknown command variant")
}

func (g *Gateway) audit(ctx context.Context, cmd Command, decision string, before, after map[string]any) error {
	entityType, entityID := cmd.Entity()
	entry := audit.Entry{
		Timestamp:  requestcontext.Now(ctx),
		Actor:      requestcontext.Actor(ctx),
		Action:     cmd.Action(),
		EntityType: entityType,
		EntityID:   entityID,
		Reason:     reasonOf(cmd),
		Decision:   decision,
		RequestID:  requestcontext.RequestID(ctx),
		Before:     before,
		After:      after,
	}
	if err := g.audits.Emit(ctx, entry); err != nil {
		return err
	}
	g.metrics.IncrementRemediation(string(cmd.Action()), decision)
	return nil
}

// auditRejected records a rejection best-effort: nothing mutated, so a lost
// entry costs visibility, not consistency.
func (g *Gateway) auditRejected(ctx context.Context, cmd Command) {
	if err := g.audit(ctx, cmd, audit.DecisionRejected, nil, nil); err != nil {
		g.logger.ErrorContext(ctx, "failed to record audit entry",
			"action", string(cmd.Action()), "error", err)
	}
}

func reasonOf(cmd Command) string {
	switch c := cmd.(type) {
	case ReissueLicense:
		return c.Reason
	case RevokeLicense:
		return c.Reason
	case ResetBinding:
		return c.Reason
	case GrantRebindException:
		return c.Reason
	case CompLicense:
		return c.Reason
	case ExtendTrial:
		return c.Reason
	}
	return ""
}
