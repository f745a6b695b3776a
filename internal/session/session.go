// Package session carries the caller's bearer token and identity through request contexts.
package session

import "context"

type contextKey struct{}

// Caller identifies who a BFF request acts for.
type Caller struct {
	Token   string
	Subject string
	Role    string
}

// WithCaller stores the caller on ctx.
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, contextKey{}, caller)
}

// FromContext returns the caller stored on ctx.
func FromContext(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(contextKey{}).(Caller)
	return caller, ok
}

// Token returns the caller's bearer token or an empty string.
// It matches the gateway token provider signature.
func Token(ctx context.Context) (string, error) {
	caller, _ := FromContext(ctx)
	return caller.Token, nil
}

// Subject returns a stable key for the caller, falling back to "anonymous".
func Subject(ctx context.Context) string {
	caller, ok := FromContext(ctx)
	if !ok || caller.Subject == "" {
		return "anonymous"
	}
	return caller.Subject
}
