package models

import (
	"time"

	"github.com/google/uuid"

	"keygate/pkg/domain"
)

// AttemptResult is the outcome of one activation attempt.
type AttemptResult string

const (
	AttemptSuccess AttemptResult = "success"
	AttemptFail    AttemptResult = "fail"
)

// ActivationAttempt is the append-only record of one activation call. Exactly
// one is written per call, success or failure; mismatch reporting and fraud
// review read these.
type ActivationAttempt struct {
	ID          uuid.UUID         `json:"id"`
	LicenseKey  domain.LicenseKey `json:"license_key,omitempty"`
	TrialKey    domain.TrialKey   `json:"trial_key,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Result      AttemptResult     `json:"result"`
	ErrorID     string            `json:"error_id,omitempty"`
	Fingerprint string            `json:"fingerprint"`
	DeviceName  string            `json:"device_name,omitempty"`
}

// NewLicenseAttempt records an attempt against a license key.
func NewLicenseAttempt(key domain.LicenseKey, fingerprint, deviceName string, result AttemptResult, errorID string, now time.Time) ActivationAttempt {
	return ActivationAttempt{
		ID:          uuid.New(),
		LicenseKey:  key,
		Timestamp:   now,
		Result:      result,
		ErrorID:     errorID,
		Fingerprint: fingerprint,
		DeviceName:  deviceName,
	}
}
