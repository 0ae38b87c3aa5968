// Package audit records every remediation action taken against a license or
// trial. Entries are append-only: nothing in this package can update or
// delete one once written.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// EntryCategory classifies audit entries by their primary purpose. This
// enables different retention policies and routing downstream.
type EntryCategory string

const (
	// CategoryCompliance covers entries with contractual significance:
	// revocations, reissues, comp grants. Long retention.
	CategoryCompliance EntryCategory = "compliance"

	// CategorySecurity covers entries relevant to misuse detection:
	// rejected confirmations, device mismatch remediation.
	CategorySecurity EntryCategory = "security"

	// CategoryOperations covers routine support actions: binding resets,
	// rebind exceptions, trial extensions.
	CategoryOperations EntryCategory = "operations"
)

// Decision states whether the requested action was applied or rejected at
// validation. Rejections are audited too, to detect gateway misuse.
const (
	DecisionApplied  = "applied"
	DecisionRejected = "rejected"
)

// Entity types auditable by the gateway.
const (
	EntityLicense = "license"
	EntityTrial   = "trial"
)

// Entry is the immutable record of one remediation action.
type Entry struct {
	ID         uuid.UUID
	Timestamp  time.Time
	Actor      string
	Action     Action
	EntityType string
	EntityID   string
	Reason     string
	Decision   string
	RequestID  string
	// Before and After hold the state snapshot around the mutation.
	// Empty for rejected actions (nothing changed).
	Before map[string]any
	After  map[string]any
}

// Action names one remediation operation. The set is closed: the gateway's
// command switch is the only producer.
type Action string

const (
	ActionLicenseReissued        Action = "license_reissued"
	ActionLicenseRevoked         Action = "license_revoked"
	ActionBindingReset           Action = "binding_reset"
	ActionRebindExceptionGranted Action = "rebind_exception_granted"
	ActionLicenseComped          Action = "license_comped"
	ActionTrialExtended          Action = "trial_extended"
)

// actionCategories maps each action to its category.
var actionCategories = map[Action]EntryCategory{
	ActionLicenseReissued:        CategoryCompliance,
	ActionLicenseRevoked:         CategoryCompliance,
	ActionLicenseComped:          CategoryCompliance,
	ActionBindingReset:           CategoryOperations,
	ActionRebindExceptionGranted: CategoryOperations,
	ActionTrialExtended:          CategoryOperations,
}

// Category returns the category for the action. Rejected actions always
// categorize as security regardless of the attempted action.
func (a Action) Category() EntryCategory {
	if c, ok := actionCategories[a]; ok {
		return c
	}
	return CategorySecurity
}
