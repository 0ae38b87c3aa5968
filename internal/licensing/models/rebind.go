package models

import (
	"time"

	"keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
)

// Grant bounds for a rebind exception, in hours.
const (
	MinRebindHours = 1
	MaxRebindHours = 168
)

// RebindException is a time-boxed waiver letting a bound license move to a
// new device without a full binding reset.
//
// Invariant: at most one active exception per key. Granting while one is
// active overwrites it; windows never stack.
type RebindException struct {
	Key       domain.LicenseKey `json:"key"`
	GrantedAt time.Time         `json:"granted_at"`
	ExpiresAt time.Time         `json:"expires_at"`
	Reason    string            `json:"reason"`
}

func NewRebindException(key domain.LicenseKey, reason string, hours int, now time.Time) (*RebindException, error) {
	if hours < MinRebindHours || hours > MaxRebindHours {
		return nil, dErrors.New(dErrors.CodeValidation, "rebind window must be between 1 and 168 hours")
	}
	return &RebindException{
		Key:       key,
		GrantedAt: now,
		ExpiresAt: now.Add(time.Duration(hours) * time.Hour),
		Reason:    reason,
	}, nil
}

// ActiveAt reports whether the exception still applies at the given instant.
// Expiry is checked lazily at read time; there is no background sweep.
func (e *RebindException) ActiveAt(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}
