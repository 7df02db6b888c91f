package middleware

import (
	"net/http"
	"strings"

	"github.com/jardens/pricebasket/internal/owner"
)

// OwnerHeader optionally overrides the deployment's default owner, letting
// a shared instance scope records per user without a full auth layer.
const OwnerHeader = "X-Owner-ID"

// ResolveOwner attaches the owner identity to the request context: the
// header value when present, the configured default otherwise. Requests
// with no resolvable owner are rejected before reaching any handler.
func ResolveOwner(defaultOwner string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(OwnerHeader))
			if id == "" {
				id = defaultOwner
			}
			if id == "" {
				http.Error(w, "no owner identity", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(owner.With(r.Context(), id)))
		})
	}
}
