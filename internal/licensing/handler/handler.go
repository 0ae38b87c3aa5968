package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"keygate/internal/licensing/models"
	"keygate/internal/licensing/service/activation"
	"keygate/pkg/domain"
	"keygate/pkg/platform/httputil"
	"keygate/pkg/requestcontext"
)

// ActivationService activates license keys.
type ActivationService interface {
	Activate(ctx context.Context, key domain.LicenseKey, fingerprint string) (*activation.Result, error)
}

// TrialService issues trial keys.
type TrialService interface {
	Create(ctx context.Context, customerEmail string) (*models.Trial, error)
}

// Handler wires the public licensing endpoints to their services.
type Handler struct {
	activations ActivationService
	trials      TrialService
	logger      *slog.Logger
}

// New constructs a licensing handler with its dependencies.
func New(activations ActivationService, trials TrialService, logger *slog.Logger) *Handler {
	return &Handler{
		activations: activations,
		trials:      trials,
		logger:      logger,
	}
}

// Register mounts the licensing endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/licenses/activate", h.HandleActivate)
	r.Post("/trials", h.HandleCreateTrial)
}

// HandleActivate handles POST /licenses/activate requests.
func (h *Handler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[ActivateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.activations.Activate(ctx, req.ParsedKey(), req.Fingerprint)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "activation served",
		"request_id", requestID,
		"key", result.Key.Masked(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromActivationResult(result))
}

// HandleCreateTrial handles POST /trials requests.
func (h *Handler) HandleCreateTrial(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateTrialRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	tr, err := h.trials.Create(ctx, req.CustomerEmail)
	if err != nil {
		h.logger.ErrorContext(ctx, "trial creation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromTrial(tr))
}
