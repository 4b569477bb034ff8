package models

import (
	"context"
)

type sessionContextKey struct{}

// SessionContext carries supplementary identity data through context so
// backends can attach it to transaction metadata without widening the
// CreditStore interface. The user id itself is always passed explicitly;
// this is display/audit context only, never an ambient identity lookup.
type SessionContext struct {
	DisplayName string
	Email       string
}

// WithSessionContext attaches session display data to a context.
func WithSessionContext(ctx context.Context, sc *SessionContext) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sc)
}

// GetSessionContext retrieves session display data from a context, or nil if absent.
func GetSessionContext(ctx context.Context) *SessionContext {
	sc, _ := ctx.Value(sessionContextKey{}).(*SessionContext)
	return sc
}
