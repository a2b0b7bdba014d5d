package identity

import (
	"net/http"
	"strings"

	"github.com/tessera-io/tessera/internal/platform/httpx"
)

// DefaultHeader is the gateway header carrying the verified subject.
const DefaultHeader = "X-Tessera-User"

// Middleware extracts the verified user id from the configured header and
// stores it as the request principal. Requests without an identity are
// rejected before reaching any handler.
func Middleware(header string) func(http.Handler) http.Handler {
	if header == "" {
		header = DefaultHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get(header))
			if userID == "" {
				httpx.RespondError(w, httpx.ErrUnauthorized)
				return
			}
			ctx := ContextWithPrincipal(r.Context(), Principal{UserID: userID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
