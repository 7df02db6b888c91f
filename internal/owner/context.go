// Package owner carries the owner identity every record is scoped to.
package owner

import "context"

type contextKey struct{}

// With returns a context carrying the owner id.
func With(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext extracts the owner id, reporting whether one was set.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok
}

// ID returns the owner id or the empty string when none is set.
func ID(ctx context.Context) string {
	id, _ := FromContext(ctx)
	return id
}
