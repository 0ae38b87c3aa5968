package models

import (
	"strings"
	"time"

	"keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
)

// TrialDuration is the window granted at trial creation.
const TrialDuration = 14 * 24 * time.Hour

// Extension bounds for a single extend action, in days.
const (
	MinExtendDays = 1
	MaxExtendDays = 90
)

// Trial is a time-boxed evaluation key.
//
// Invariants:
//   - EndDate only ever moves forward, and only through ApplyExtension.
//   - Expiry is derived from EndDate at read time. There is deliberately no
//     stored "expired" flag that could drift from EndDate.
type Trial struct {
	Key           domain.TrialKey `json:"key"`
	CustomerEmail string          `json:"customer_email"`
	IsActive      bool            `json:"is_active"`
	EndDate       time.Time       `json:"end_date"`
	ActivatedAt   time.Time       `json:"activated_at"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func NewTrial(key domain.TrialKey, customerEmail string, now time.Time) (*Trial, error) {
	customerEmail = strings.TrimSpace(customerEmail)
	if customerEmail == "" || !strings.Contains(customerEmail, "@") {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "customer email is not valid")
	}
	return &Trial{
		Key:           key,
		CustomerEmail: customerEmail,
		IsActive:      true,
		EndDate:       now.Add(TrialDuration),
		ActivatedAt:   now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Expired reports whether the trial window has lapsed at the given instant.
func (t *Trial) Expired(now time.Time) bool {
	return now.After(t.EndDate)
}

// Valid reports whether the trial is usable at the given instant.
func (t *Trial) Valid(now time.Time) bool {
	return t.IsActive && !t.Expired(now)
}

// CanExtend checks the extend action.
func (t *Trial) CanExtend(days int) error {
	if days < MinExtendDays || days > MaxExtendDays {
		return dErrors.New(dErrors.CodeValidation, "extension must be between 1 and 90 days")
	}
	if !t.IsActive {
		return dErrors.New(dErrors.CodeInvariantViolation, "trial has been deactivated")
	}
	return nil
}

// ApplyExtension extends from the later of now and the current end date, so
// an expired trial restarts from now and a live trial keeps its remaining
// time.
func (t *Trial) ApplyExtension(days int, now time.Time) {
	base := t.EndDate
	if now.After(base) {
		base = now
	}
	t.EndDate = base.AddDate(0, 0, days)
	t.UpdatedAt = now
}

// Snapshot captures the audit-relevant state.
func (t *Trial) Snapshot() map[string]any {
	return map[string]any{
		"key":       t.Key.Masked(),
		"is_active": t.IsActive,
		"end_date":  t.EndDate.UTC().Format(time.RFC3339),
	}
}
