package workspacecontext

import (
	"context"
	"strings"
)

// WorkspaceContextKey is the request context key for the workspace in scope.
type WorkspaceContextKey struct{}

// ActorContextKey is the request context key for the authenticated actor.
type ActorContextKey struct{}

// WithWorkspaceID stores the workspace ID in the context.
func WithWorkspaceID(ctx context.Context, workspaceID string) context.Context {
	return context.WithValue(ctx, WorkspaceContextKey{}, strings.TrimSpace(workspaceID))
}

// WorkspaceIDFromContext returns the workspace ID from context, if set.
func WorkspaceIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(WorkspaceContextKey{}).(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// WithActorID stores the authenticated actor ID in the context.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, ActorContextKey{}, strings.TrimSpace(actorID))
}

// ActorIDFromContext returns the actor ID from context, if set.
func ActorIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, ok := ctx.Value(ActorContextKey{}).(string)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}
