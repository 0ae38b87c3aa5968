package admin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"keygate/internal/licensing/models"
	"keygate/pkg/domain"
	dErrors "keygate/pkg/domain-errors"
	"keygate/pkg/platform/httputil"
	"keygate/pkg/platform/sentinel"
	"keygate/pkg/requestcontext"
)

// LicenseReader serves the support read views.
type LicenseReader interface {
	FindByKey(ctx context.Context, key domain.LicenseKey) (*models.License, error)
}

// AttemptReader lists a license's activation history.
type AttemptReader interface {
	ListByLicenseKey(ctx context.Context, key domain.LicenseKey, limit int) ([]models.ActivationAttempt, error)
}

// ExceptionReader exposes the currently active rebind exception, if any.
type ExceptionReader interface {
	Active(ctx context.Context, key domain.LicenseKey) (*models.RebindException, error)
}

// Handler wires the remediation gateway and support read views to HTTP. All
// routes sit behind the admin token middleware.
type Handler struct {
	gateway    *Gateway
	licenses   LicenseReader
	attempts   AttemptReader
	exceptions ExceptionReader
	logger     *slog.Logger
}

func NewHandler(gateway *Gateway, licenses LicenseReader, attempts AttemptReader, exceptions ExceptionReader, logger *slog.Logger) *Handler {
	return &Handler{
		gateway:    gateway,
		licenses:   licenses,
		attempts:   attempts,
		exceptions: exceptions,
		logger:     logger,
	}
}

// Register mounts the admin endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/licenses/comp", h.HandleComp)
	r.Post("/licenses/{key}/reissue", h.HandleReissue)
	r.Post("/licenses/{key}/revoke", h.HandleRevoke)
	r.Post("/licenses/{key}/reset-binding", h.HandleResetBinding)
	r.Post("/licenses/{key}/rebind-exception", h.HandleRebindException)
	r.Post("/trials/{key}/extend", h.HandleExtendTrial)

	r.Get("/licenses/{key}", h.HandleGetLicense)
	r.Get("/licenses/{key}/attempts", h.HandleListAttempts)
	r.Get("/audit", h.HandleListAudit)
}

func (h *Handler) licenseKey(w http.ResponseWriter, r *http.Request) (domain.LicenseKey, bool) {
	key, err := domain.ParseLicenseKey(chi.URLParam(r, "key"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return key, true
}

// HandleReissue handles POST /admin/licenses/{key}/reissue.
func (h *Handler) HandleReissue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, ok := h.licenseKey(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReissueRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	outcome, err := h.gateway.Execute(ctx, ReissueLicense{
		Key:          key,
		Reason:       req.Reason,
		Confirmation: req.ConfirmationPhrase,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ReissueResponse{
		NewLicenseKey: outcome.NewLicenseKey.Display(),
	})
}

// HandleRevoke handles POST /admin/licenses/{key}/revoke.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, ok := h.licenseKey(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RevokeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	if _, err := h.gateway.Execute(ctx, RevokeLicense{
		Key:          key,
		Reason:       req.Reason,
		Confirmation: req.ConfirmationPhrase,
	}); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, OKResponse{OK: true})
}

// HandleResetBinding handles POST /admin/licenses/{key}/reset-binding.
func (h *Handler) HandleResetBinding(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, ok := h.licenseKey(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ResetBindingRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	if _, err := h.gateway.Execute(ctx, ResetBinding{Key: key, Reason: req.Reason}); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, OKResponse{OK: true})
}

// HandleRebindException handles POST /admin/licenses/{key}/rebind-exception.
func (h *Handler) HandleRebindException(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, ok := h.licenseKey(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RebindExceptionRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	outcome, err := h.gateway.Execute(ctx, GrantRebindException{
		Key:    key,
		Reason: req.Reason,
		Hours:  req.Hours,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, RebindExceptionResponse{
		ExpiresAt: outcome.ExpiresAt.UTC(),
	})
}

// HandleComp handles POST /admin/licenses/comp.
func (h *Handler) HandleComp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CompLicenseRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	outcome, err := h.gateway.Execute(ctx, CompLicense{
		CustomerEmail: req.CustomerEmail,
		Product:       req.Product,
		Reason:        req.Reason,
		Confirmation:  req.ConfirmationPhrase,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, CompLicenseResponse{
		LicenseKey: outcome.NewLicenseKey.Display(),
	})
}

// HandleExtendTrial handles POST /admin/trials/{key}/extend.
func (h *Handler) HandleExtendTrial(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, err := domain.ParseTrialKey(chi.URLParam(r, "key"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ExtendTrialRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	outcome, execErr := h.gateway.Execute(ctx, ExtendTrial{
		Key:    key,
		Reason: req.Reason,
		Days:   req.ExtendDays,
	})
	if execErr != nil {
		httputil.WriteError(w, execErr)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ExtendTrialResponse{
		NewEndDate: outcome.NewEndDate.UTC(),
	})
}

// HandleGetLicense handles GET /admin/licenses/{key}.
func (h *Handler) HandleGetLicense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, ok := h.licenseKey(w, r)
	if !ok {
		return
	}

	l, err := h.licenses.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			err = dErrors.New(dErrors.CodeNotFound, "license key not found")
		}
		httputil.WriteError(w, err)
		return
	}
	exc, err := h.exceptions.Active(ctx, key)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromLicense(l, exc))
}

// HandleListAttempts handles GET /admin/licenses/{key}/attempts.
func (h *Handler) HandleListAttempts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key, ok := h.licenseKey(w, r)
	if !ok {
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	attempts, err := h.attempts.ListByLicenseKey(ctx, key, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAttempts(attempts))
}

// HandleListAudit handles GET /admin/audit.
func (h *Handler) HandleListAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	entries, err := h.gateway.audits.ListRecent(ctx, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAuditEntries(entries))
}
