// Package identity carries the resolved caller through the request explicitly.
package identity

import "context"

// Caller is the authenticated principal for one request.
type Caller struct {
	UserID  uint
	TokenID string
}

// Authenticated reports whether the caller was resolved to a user.
func (c Caller) Authenticated() bool {
	return c.UserID != 0
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying caller.
func NewContext(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, ctxKey{}, caller)
}

// FromContext returns the caller stored on ctx, if any.
func FromContext(ctx context.Context) (Caller, bool) {
	if ctx == nil {
		return Caller{}, false
	}
	c, ok := ctx.Value(ctxKey{}).(Caller)
	return c, ok
}
