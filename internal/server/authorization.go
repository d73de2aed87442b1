package server

import (
	"github.com/gin-gonic/gin"
)

// authorize gates a workspace route on the actor's role-derived permissions.
func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authorizeWithContext(c, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) authorizeWithContext(c *gin.Context, object string, action string) error {
	actor := actorID(c)
	if actor == "" {
		return ErrUnauthorized
	}
	workspace := workspaceID(c)
	if workspace == "" {
		return ErrNotFound
	}
	if s.authzSvc == nil {
		return ErrForbidden
	}
	return s.authzSvc.Authorize(c.Request.Context(), actor, workspace, object, action)
}
