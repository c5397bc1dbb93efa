package middleware

import (
	"context"

	"github.com/toolshop/storefront/internal/storefront"
)

type contextKey string

const ctxSession contextKey = "storefront_session"

// SessionFromContext returns the session resolved by the Session middleware.
func SessionFromContext(ctx context.Context) *storefront.Session {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxSession).(*storefront.Session); ok {
		return v
	}
	return nil
}

// WithSession injects the session into the context for downstream handlers.
func WithSession(ctx context.Context, sess *storefront.Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSession, sess)
}
