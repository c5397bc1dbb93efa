package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/toolshop/storefront/api/responses"
	"github.com/toolshop/storefront/api/validators"
	"github.com/toolshop/storefront/internal/storefront"
	"github.com/toolshop/storefront/pkg/logger"
)

const maxSessionHeaderLength = 128

// SessionResolver hands out the session for an id.
type SessionResolver interface {
	Get(ctx context.Context, id string) (*storefront.Session, error)
}

// Session resolves the shopper session from header, issuing a new id when
// the header is absent. The id is echoed on every response.
func Session(resolver SessionResolver, header string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := validators.SanitizeString(r.Header.Get(header), maxSessionHeaderLength)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(header, id)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithSessionID(ctx, id)
			}

			sess, err := resolver.Get(ctx, id)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(ctx, sess)))
		})
	}
}
