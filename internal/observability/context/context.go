package context

import (
	"context"

	"github.com/mewayz/workspacebilling/internal/workspacecontext"
)

type requestIDKey struct{}

// WithRequestID stores the request correlation id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the request correlation id or an empty string.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}

// WorkspaceIDFromContext returns the workspace id or an empty string.
func WorkspaceIDFromContext(ctx context.Context) string {
	value, _ := workspacecontext.WorkspaceIDFromContext(ctx)
	return value
}

// ActorIDFromContext returns the actor id or an empty string.
func ActorIDFromContext(ctx context.Context) string {
	value, _ := workspacecontext.ActorIDFromContext(ctx)
	return value
}
