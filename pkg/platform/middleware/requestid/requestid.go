// Package requestid assigns each request a correlation ID, honoring one
// supplied by the caller so desktop client logs line up with server logs.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"keygate/pkg/requestcontext"
)

const headerName = "X-Request-ID"

// Middleware reads or mints the request ID, stores it in context, and echoes
// it on the response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerName)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(headerName, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
