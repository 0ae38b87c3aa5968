package handler

import (
	"strings"

	"keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
)

// ActivateRequest is the HTTP request body for POST /licenses/activate.
type ActivateRequest struct {
	LicenseKey  string `json:"license_key"`
	Fingerprint string `json:"fingerprint"`

	parsedKey domain.LicenseKey
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *ActivateRequest) Validate() error {
	key, err := domain.ParseLicenseKey(r.LicenseKey)
	if err != nil {
		return err
	}
	r.parsedKey = key

	r.Fingerprint = strings.TrimSpace(r.Fingerprint)
	if r.Fingerprint == "" {
		return dErrors.New(dErrors.CodeValidation, "fingerprint is required")
	}
	if len(r.Fingerprint) > 128 {
		return dErrors.New(dErrors.CodeValidation, "fingerprint must be at most 128 characters")
	}
	return nil
}

// ParsedKey returns the validated license key.
func (r *ActivateRequest) ParsedKey() domain.LicenseKey {
	return r.parsedKey
}

// CreateTrialRequest is the HTTP request body for POST /trials.
type CreateTrialRequest struct {
	CustomerEmail string `json:"customer_email"`
}

// Validate validates the request.
func (r *CreateTrialRequest) Validate() error {
	r.CustomerEmail = strings.TrimSpace(r.CustomerEmail)
	if r.CustomerEmail == "" || !strings.Contains(r.CustomerEmail, "@") {
		return dErrors.New(dErrors.CodeValidation, "a valid customer_email is required")
	}
	return nil
}
