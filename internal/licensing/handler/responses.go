package handler

import (
	"time"

	"keygate/internal/licensing/models"
	"keygate/internal/licensing/service/activation"
)

// ActivateResponse is the JSON body returned on successful activation. The
// artifact is the signed file content the client writes to local storage.
type ActivateResponse struct {
	LicenseKey string    `json:"license_key"`
	Product    string    `json:"product"`
	PlanType   string    `json:"plan_type"`
	BoundAt    time.Time `json:"bound_at"`
	Artifact   string    `json:"artifact"`
}

func FromActivationResult(result *activation.Result) ActivateResponse {
	return ActivateResponse{
		LicenseKey: result.Key.Display(),
		Product:    result.Product,
		PlanType:   result.PlanType,
		BoundAt:    result.BoundAt.UTC(),
		Artifact:   result.Artifact,
	}
}

// TrialResponse is the JSON body returned on trial creation.
type TrialResponse struct {
	TrialKey string    `json:"trial_key"`
	EndDate  time.Time `json:"end_date"`
}

func FromTrial(tr *models.Trial) TrialResponse {
	return TrialResponse{
		TrialKey: tr.Key.Display(),
		EndDate:  tr.EndDate.UTC(),
	}
}
