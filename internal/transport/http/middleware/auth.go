package httpmw

import (
	"context"
	"net/http"
	"strings"

	"github.com/codesync/codesync-backend/internal/domain"
	"github.com/codesync/codesync-backend/pkg/httputil"
)

type ctxKey string

const ctxKeyIdentity ctxKey = "identity"

type Authenticator interface {
	Authenticate(token string) (domain.Identity, error)
}

// AuthMiddleware requires a valid "Authorization: Bearer <jwt>" and stores the
// caller's identity in the request context.
func AuthMiddleware(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") || len(strings.TrimSpace(header[7:])) == 0 {
				httputil.Error(w, http.StatusUnauthorized, "No token")
				return
			}

			ident, err := auth.Authenticate(strings.TrimSpace(header[7:]))
			if err != nil {
				httputil.Error(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), ident)))
		})
	}
}

func WithIdentity(ctx context.Context, ident domain.Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, ident)
}

func IdentityFromCtx(ctx context.Context) (domain.Identity, bool) {
	ident, ok := ctx.Value(ctxKeyIdentity).(domain.Identity)
	return ident, ok
}
