// Package admin guards the remediation gateway with per-actor API tokens.
// Each accepted token is tied to an actor label so the audit trail names a
// person, not a shared credential.
package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"keygate/pkg/requestcontext"
	"keygate/pkg/secrets"
)

// RequireAdminToken authenticates X-Admin-Token against the credential map
// (actor label to stored token). Stored bcrypt hashes are verified as such;
// anything else is compared constant-time, which keeps local development
// usable with plaintext tokens.
func RequireAdminToken(credentials map[string]string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Admin-Token")
			actor := matchActor(credentials, token)
			if actor == "" {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"UNAUTHORIZED","message":"admin token required"}`))
				return
			}

			ctx := requestcontext.WithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func matchActor(credentials map[string]string, token string) string {
	if token == "" {
		return ""
	}
	for actor, stored := range credentials {
		if strings.HasPrefix(stored, "$2") {
			if secrets.Verify(token, stored) == nil {
				return actor
			}
			continue
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(stored)) == 1 {
			return actor
		}
	}
	return ""
}
