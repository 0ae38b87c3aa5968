package admin

import (
	"strings"

	dErrors "keygate/pkg/domain-errors"
)

// ReissueRequest is the HTTP body for POST /admin/licenses/{key}/reissue.
type ReissueRequest struct {
	Reason             string `json:"reason"`
	ConfirmationPhrase string `json:"confirmation_phrase"`
}

func (r *ReissueRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	return nil
}

// RevokeRequest is the HTTP body for POST /admin/licenses/{key}/revoke.
type RevokeRequest struct {
	Reason             string `json:"reason"`
	ConfirmationPhrase string `json:"confirmation_phrase"`
}

func (r *RevokeRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	return nil
}

// ResetBindingRequest is the HTTP body for POST /admin/licenses/{key}/reset-binding.
type ResetBindingRequest struct {
	Reason string `json:"reason"`
}

func (r *ResetBindingRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	return nil
}

// RebindExceptionRequest is the HTTP body for POST /admin/licenses/{key}/rebind-exception.
type RebindExceptionRequest struct {
	Reason string `json:"reason"`
	Hours  int    `json:"hours"`
}

func (r *RebindExceptionRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	return nil
}

// CompLicenseRequest is the HTTP body for POST /admin/licenses/comp.
type CompLicenseRequest struct {
	CustomerEmail      string `json:"customer_email"`
	Product            string `json:"product"`
	Reason             string `json:"reason"`
	ConfirmationPhrase string `json:"confirmation_phrase"`
}

func (r *CompLicenseRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	r.CustomerEmail = strings.TrimSpace(r.CustomerEmail)
	r.Product = strings.TrimSpace(r.Product)
	if r.CustomerEmail != "" && !strings.Contains(r.CustomerEmail, "@") {
		return dErrors.New(dErrors.CodeValidation, "customer_email is not valid")
	}
	return nil
}

// ExtendTrialRequest is the HTTP body for POST /admin/trials/{key}/extend.
type ExtendTrialRequest struct {
	Reason     string `json:"reason"`
	ExtendDays int    `json:"extend_days"`
}

func (r *ExtendTrialRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	return nil
}
