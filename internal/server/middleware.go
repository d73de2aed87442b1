package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mewayz/workspacebilling/internal/workspacecontext"
)

const (
	HeaderActorID        = "X-Actor-Id"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// ActorRequired trusts the gateway-set actor header; requests without one are rejected.
func ActorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := strings.TrimSpace(c.GetHeader(HeaderActorID))
		if actorID == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Request = c.Request.WithContext(workspacecontext.WithActorID(c.Request.Context(), actorID))
		c.Next()
	}
}

// WorkspaceScope binds the :id path parameter as the workspace in scope.
func WorkspaceScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		workspaceID := strings.TrimSpace(c.Param("id"))
		if workspaceID == "" {
			AbortWithError(c, newValidationError("workspace_id", "invalid_workspace", "invalid workspace id"))
			return
		}

		c.Request = c.Request.WithContext(workspacecontext.WithWorkspaceID(c.Request.Context(), workspaceID))
		c.Next()
	}
}

func actorID(c *gin.Context) string {
	value, _ := workspacecontext.ActorIDFromContext(c.Request.Context())
	return value
}

func workspaceID(c *gin.Context) string {
	value, _ := workspacecontext.WorkspaceIDFromContext(c.Request.Context())
	return value
}
