package admin

import (
	"time"

	"keygate/internal/licensing/models"
	"keygate/pkg/platform/audit"
)

// OKResponse acknowledges an applied action with no extra payload.
type OKResponse struct {
	OK bool `json:"ok"`
}

// ReissueResponse carries the successor key, shown once in full so support
// can hand it to the customer. It is masked everywhere afterwards.
type ReissueResponse struct {
	NewLicenseKey string `json:"new_license_key"`
}

// RebindExceptionResponse reports when the granted window closes.
type RebindExceptionResponse struct {
	ExpiresAt time.Time `json:"expires_at"`
}

// CompLicenseResponse carries the issued goodwill key, shown once in full.
type CompLicenseResponse struct {
	LicenseKey string `json:"license_key"`
}

// ExtendTrialResponse reports the new trial end date.
type ExtendTrialResponse struct {
	NewEndDate time.Time `json:"new_end_date"`
}

// LicenseDetail is the support view of one license. The key is masked.
type LicenseDetail struct {
	Key             string     `json:"key"`
	Product         string     `json:"product"`
	PlanType        string     `json:"plan_type"`
	CustomerEmail   string     `json:"customer_email"`
	Status          string     `json:"status"`
	Fingerprint     string     `json:"fingerprint,omitempty"`
	BoundAt         *time.Time `json:"bound_at,omitempty"`
	ActivationCount int        `json:"activation_count"`
	ReplacedBy      string     `json:"replaced_by,omitempty"`
	RebindExpiresAt *time.Time `json:"rebind_exception_expires_at,omitempty"`
}

func FromLicense(l *models.License, exc *models.RebindException) LicenseDetail {
	detail := LicenseDetail{
		Key:             l.Key.Masked(),
		Product:         l.Product,
		PlanType:        l.PlanType,
		CustomerEmail:   l.CustomerEmail,
		Status:          string(l.Status),
		ActivationCount: l.ActivationCount,
	}
	if l.Binding != nil {
		detail.Fingerprint = l.Binding.Fingerprint
		boundAt := l.Binding.BoundAt.UTC()
		detail.BoundAt = &boundAt
	}
	if l.ReplacedBy != "" {
		detail.ReplacedBy = l.ReplacedBy.Masked()
	}
	if exc != nil {
		expiresAt := exc.ExpiresAt.UTC()
		detail.RebindExpiresAt = &expiresAt
	}
	return detail
}

// AttemptView is one row of a license's activation history.
type AttemptView struct {
	Timestamp   time.Time `json:"timestamp"`
	Result      string    `json:"result"`
	ErrorID     string    `json:"error_id,omitempty"`
	Fingerprint string    `json:"fingerprint"`
	DeviceName  string    `json:"device_name,omitempty"`
}

// AttemptsResponse is the JSON body for GET /admin/licenses/{key}/attempts.
type AttemptsResponse struct {
	Attempts []AttemptView `json:"attempts"`
}

func FromAttempts(attempts []models.ActivationAttempt) AttemptsResponse {
	out := AttemptsResponse{Attempts: make([]AttemptView, 0, len(attempts))}
	for _, a := range attempts {
		out.Attempts = append(out.Attempts, AttemptView{
			Timestamp:   a.Timestamp.UTC(),
			Result:      string(a.Result),
			ErrorID:     a.ErrorID,
			Fingerprint: a.Fingerprint,
			DeviceName:  a.DeviceName,
		})
	}
	return out
}

// AuditView is one audit entry as exposed to the support dashboard.
type AuditView struct {
	Timestamp  time.Time      `json:"timestamp"`
	Actor      string         `json:"actor"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Reason     string         `json:"reason"`
	Decision   string         `json:"decision"`
	Before     map[string]any `json:"before,omitempty"`
	After      map[string]any `json:"after,omitempty"`
}

// AuditResponse is the JSON body for GET /admin/audit.
type AuditResponse struct {
	Entries []AuditView `json:"entries"`
}

func FromAuditEntries(entries []audit.Entry) AuditResponse {
	out := AuditResponse{Entries: make([]AuditView, 0, len(entries))}
	for _, e := range entries {
		out.Entries = append(out.Entries, AuditView{
			Timestamp:  e.Timestamp.UTC(),
			Actor:      e.Actor,
			Action:     string(e.Action),
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			Reason:     e.Reason,
			Decision:   e.Decision,
			Before:     e.Before,
			After:      e.After,
		})
	}
	return out
}
