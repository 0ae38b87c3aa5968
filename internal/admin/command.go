package admin

import (
	"keygate/internal/licensing/models"
	"keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
	"keygate/pkg/platform/audit"
)

// Confirmation phrases for destructive operations. Checked verbatim and
// case-sensitively: typing the phrase is the second factor, so near-misses
// must not pass.
const (
	ConfirmReissue = "REISSUE"
	ConfirmRevoke  = "REVOKE"
	ConfirmComp    = "COMP"
)

// Command is the closed set of remediation operations. Each variant carries
// exactly the inputs its operation needs; the gateway switches over the set
// exhaustively, so a new operation cannot be added without deciding its
// validation and audit behavior.
type Command interface {
	// Action names the operation for the audit trail.
	Action() audit.Action
	// Entity identifies the record the command targets.
	Entity() (entityType, entityID string)
	// validate checks reason and confirmation before any state is touched.
	validate() error

	isCommand()
}

// ReissueLicense replaces a license with a fresh key. Destructive: the old
// key becomes permanently non-activatable.
type ReissueLicense struct {
	Key          domain.LicenseKey
	Reason       string
	Confirmation string
}

// RevokeLicense terminally revokes a license. Destructive.
type RevokeLicense struct {
	Key          domain.LicenseKey
	Reason       string
	Confirmation string
}

// ResetBinding clears the device binding. Reversible by the customer simply
// re-activating, so a reason suffices.
type ResetBinding struct {
	Key    domain.LicenseKey
	Reason string
}

// GrantRebindException opens a time-boxed rebind window. Self-healing, so a
// reason suffices.
type GrantRebindException struct {
	Key    domain.LicenseKey
	Reason string
	Hours  int
}

// CompLicense issues a goodwill license. Destructive in the revenue sense:
// it creates an entitlement from nothing.
type CompLicense struct {
	CustomerEmail string
	Product       string
	Reason        string
	Confirmation  string
}

// ExtendTrial pushes a trial's end date out.
type ExtendTrial struct {
	Key    domain.TrialKey
	Reason string
	Days   int
}

func (ReissueLicense) isCommand()       {}
func (RevokeLicense) isCommand()        {}
func (ResetBinding) isCommand()         {}
func (GrantRebindException) isCommand() {}
func (CompLicense) isCommand()          {}
func (ExtendTrial) isCommand()          {}

func (ReissueLicense) Action() audit.Action       { return audit.ActionLicenseReissued }
func (RevokeLicense) Action() audit.Action        { return audit.ActionLicenseRevoked }
func (ResetBinding) Action() audit.Action         { return audit.ActionBindingReset }
func (GrantRebindException) Action() audit.Action { return audit.ActionRebindExceptionGranted }
func (CompLicense) Action() audit.Action          { return audit.ActionLicenseComped }
func (ExtendTrial) Action() audit.Action          { return audit.ActionTrialExtended }

func (c ReissueLicense) Entity() (string, string) { return audit.EntityLicense, c.Key.Masked() }
func (c RevokeLicense) Entity() (string, string)  { return audit.EntityLicense, c.Key.Masked() }
func (c ResetBinding) Entity() (string, string)   { return audit.EntityLicense, c.Key.Masked() }
func (c GrantRebindException) Entity() (string, string) {
	return audit.EntityLicense, c.Key.Masked()
}
func (c CompLicense) Entity() (string, string) { return audit.EntityLicense, c.CustomerEmail }
func (c ExtendTrial) Entity() (string, string) { return audit.EntityTrial, c.Key.Masked() }

func (c ReissueLicense) validate() error {
	if err := requireReason(c.Reason); err != nil {
		return err
	}
	return requireConfirmation(c.Confirmation, ConfirmReissue)
}

func (c RevokeLicense) validate() error {
	if err := requireReason(c.Reason); err != nil {
		return err
	}
	return requireConfirmation(c.Confirmation, ConfirmRevoke)
}

func (c ResetBinding) validate() error {
	return requireReason(c.Reason)
}

func (c GrantRebindException) validate() error {
	if err := requireReason(c.Reason); err != nil {
		return err
	}
	if c.Hours < models.MinRebindHours || c.Hours > models.MaxRebindHours {
		return dErrors.New(dErrors.CodeValidation, "rebind window must be between 1 and 168 hours")
	}
	return nil
}

func (c CompLicense) validate() error {
	if err := requireReason(c.Reason); err != nil {
		return err
	}
	if c.CustomerEmail == "" {
		return dErrors.New(dErrors.CodeValidation, "customer email is required")
	}
	if c.Product == "" {
		return dErrors.New(dErrors.CodeValidation, "product is required")
	}
	return requireConfirmation(c.Confirmation, ConfirmComp)
}

func (c ExtendTrial) validate() error {
	if err := requireReason(c.Reason); err != nil {
		return err
	}
	if c.Days < models.MinExtendDays || c.Days > models.MaxExtendDays {
		return dErrors.New(dErrors.CodeValidation, "extension must be between 1 and 90 days")
	}
	return nil
}

func requireReason(reason string) error {
	if reason == "" {
		return dErrors.New(dErrors.CodeValidation, "a reason is required for every remediation action")
	}
	return nil
}

func requireConfirmation(got, want string) error {
	if got != want {
		return dErrors.New(dErrors.CodeConfirmationMismatch,
			"confirmation phrase does not match")
	}
	return nil
}
