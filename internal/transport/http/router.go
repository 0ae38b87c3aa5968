// Package httptransport assembles the HTTP surface: public activation and
// trial endpoints, the token-guarded admin remediation API, metrics, and
// health.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	adminPkg "keygate/internal/admin"
	licensingHandler "keygate/internal/licensing/handler"
	adminMiddleware "keygate/pkg/platform/middleware/admin"
	"keygate/pkg/platform/middleware/metadata"
	"keygate/pkg/platform/middleware/requestid"
	"keygate/pkg/platform/middleware/requesttime"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Options carries everything the router mounts.
type Options struct {
	Licensing *licensingHandler.Handler
	Admin     *adminPkg.Handler

	// AdminCredentials maps actor labels to their API token for the admin
	// route guard.
	AdminCredentials map[string]string

	// Checks run on /healthz, keyed by dependency name. Nil values are
	// skipped so in-memory wiring needs no stubs.
	Checks map[string]HealthChecker

	Logger *slog.Logger
}

// NewRouter wires all endpoints with the shared middleware chain.
func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	opts.Licensing.Register(r)

	r.Route("/admin", func(r chi.Router) {
		r.Use(adminMiddleware.RequireAdminToken(opts.AdminCredentials, opts.Logger))
		opts.Admin.Register(r)
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/healthz", handleHealth(opts.Checks))

	return r
}

func handleHealth(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Health(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded","failing":"` + name + `"}`))
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
