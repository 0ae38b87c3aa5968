package models

import (
	"strings"
	"time"

	"keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
)

// LicenseStatus is the lifecycle state of a license.
type LicenseStatus string

const (
	StatusActive   LicenseStatus = "active"
	StatusRevoked  LicenseStatus = "revoked"
	StatusReplaced LicenseStatus = "replaced"
)

// Binding records the single device a license is bound to.
type Binding struct {
	Fingerprint string    `json:"fingerprint"`
	BoundAt     time.Time `json:"bound_at"`
}

// License is the aggregate root for one sold license.
//
// Invariants:
//   - At most one device binding at any instant.
//   - revoked and replaced are terminal: no operation transitions them back
//     to active, and neither state ever accepts a new binding.
//   - A bound license rejects activation from a different fingerprint unless
//     an active rebind exception exists (checked by the activation service;
//     the model only knows its own state).
//
// All mutation goes through Can*/Apply* pairs executed inside the store's
// per-key critical section. Nothing outside this package may assign fields.
type License struct {
	Key           domain.LicenseKey `json:"key"`
	Product       string            `json:"product"`
	PlanType      string            `json:"plan_type"`
	CustomerEmail string            `json:"customer_email"`
	Status        LicenseStatus     `json:"status"`
	Binding       *Binding          `json:"binding,omitempty"`

	ActivationCount       int       `json:"activation_count"`
	LastActivationAttempt time.Time `json:"last_activation_attempt"`

	// ReplacedBy links a replaced license to its successor.
	ReplacedBy domain.LicenseKey `json:"replaced_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Plan types. Comped licenses carry their own plan label so reporting can
// separate goodwill grants from revenue.
const (
	PlanStandard = "standard"
	PlanPro      = "pro"
	PlanComp     = "comp"
)

func NewLicense(key domain.LicenseKey, product, planType, customerEmail string, now time.Time) (*License, error) {
	product = strings.TrimSpace(product)
	planType = strings.TrimSpace(planType)
	customerEmail = strings.TrimSpace(customerEmail)
	if product == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "product cannot be empty")
	}
	if planType == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "plan type cannot be empty")
	}
	if customerEmail == "" || !strings.Contains(customerEmail, "@") {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "customer email is not valid")
	}
	return &License{
		Key:           key,
		Product:       product,
		PlanType:      planType,
		CustomerEmail: customerEmail,
		Status:        StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (l *License) IsActive() bool { return l.Status == StatusActive }

func (l *License) IsBound() bool { return l.Binding != nil }

// BoundTo reports whether the license is bound to the given fingerprint.
func (l *License) BoundTo(fingerprint string) bool {
	return l.Binding != nil && l.Binding.Fingerprint == fingerprint
}

// StatusDetail is the support-facing diagnostic distinguishing why a
// non-active license cannot activate.
func (l *License) StatusDetail() string {
	switch l.Status {
	case StatusRevoked:
		return "license has been revoked"
	case StatusReplaced:
		if l.ReplacedBy != "" {
			return "license was replaced by " + l.ReplacedBy.Masked()
		}
		return "license has been replaced"
	default:
		return ""
	}
}

// CanBind checks whether a binding to the given fingerprint may be applied.
// It does not consult rebind exceptions; the activation service layers that
// decision on top.
func (l *License) CanBind(fingerprint string) error {
	if fingerprint == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "fingerprint cannot be empty")
	}
	if l.Status != StatusActive {
		return dErrors.NewWithDetail(dErrors.CodeInvariantViolation,
			"license is not activatable", l.StatusDetail())
	}
	if l.Binding != nil && l.Binding.Fingerprint != fingerprint {
		return dErrors.New(dErrors.CodeInvariantViolation, "license is bound to another device")
	}
	return nil
}

// ApplyBinding binds the license to the fingerprint. Idempotent re-binding on
// the same fingerprint keeps the original BoundAt (a reinstall does not reset
// the binding's age) but still counts the activation.
func (l *License) ApplyBinding(fingerprint string, now time.Time) {
	if l.Binding == nil || l.Binding.Fingerprint != fingerprint {
		l.Binding = &Binding{Fingerprint: fingerprint, BoundAt: now}
	}
	l.ActivationCount++
	l.LastActivationAttempt = now
	l.UpdatedAt = now
}

// RecordAttempt updates the last-attempt timestamp without touching binding
// state. Called on failed activations.
func (l *License) RecordAttempt(now time.Time) {
	l.LastActivationAttempt = now
	l.UpdatedAt = now
}

// CanResetBinding checks whether the binding may be cleared.
func (l *License) CanResetBinding() error {
	if l.Status != StatusActive {
		return dErrors.NewWithDetail(dErrors.CodeKeyNotActivatable,
			"only active licenses can have their binding reset", l.StatusDetail())
	}
	return nil
}

// ApplyBindingReset clears the device binding, making the license
// re-activatable on any device.
func (l *License) ApplyBindingReset(now time.Time) {
	l.Binding = nil
	l.UpdatedAt = now
}

// CanRevoke checks the revoke transition. Revoking twice is an error so
// support notices the no-op.
func (l *License) CanRevoke() error {
	if l.Status != StatusActive {
		return dErrors.NewWithDetail(dErrors.CodeKeyNotActivatable,
			"license is not active", l.StatusDetail())
	}
	return nil
}

// ApplyRevocation moves the license to its terminal revoked state. The
// binding is kept on record for forensics; the verifier simply stops
// honoring the key for new activations.
func (l *License) ApplyRevocation(now time.Time) {
	l.Status = StatusRevoked
	l.UpdatedAt = now
}

// CanReplace checks the reissue transition. A replaced license cannot be
// replaced again: reissue is intentionally not idempotent.
func (l *License) CanReplace() error {
	if l.Status != StatusActive {
		return dErrors.NewWithDetail(dErrors.CodeKeyNotActivatable,
			"license is not active", l.StatusDetail())
	}
	return nil
}

// ApplyReplacement moves the license to its terminal replaced state and links
// the successor.
func (l *License) ApplyReplacement(successor domain.LicenseKey, now time.Time) {
	l.Status = StatusReplaced
	l.ReplacedBy = successor
	l.UpdatedAt = now
}

// Snapshot captures the audit-relevant state. Keys are masked: audit entries
// are widely readable and must not leak a usable key.
func (l *License) Snapshot() map[string]any {
	snap := map[string]any{
		"key":              l.Key.Masked(),
		"status":           string(l.Status),
		"plan_type":        l.PlanType,
		"activation_count": l.ActivationCount,
	}
	if l.Binding != nil {
		snap["fingerprint"] = l.Binding.Fingerprint
		snap["bound_at"] = l.Binding.BoundAt.UTC().Format(time.RFC3339)
	}
	if l.ReplacedBy != "" {
		snap["replaced_by"] = l.ReplacedBy.Masked()
	}
	return snap
}
