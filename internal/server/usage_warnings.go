package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	warningdomain "github.com/mewayz/workspacebilling/internal/usagewarning/domain"
)

func (s *Server) ListUsageWarnings(c *gin.Context) {
	includeResolved, err := parseOptionalBool(c.Query("include_resolved"))
	if err != nil {
		AbortWithError(c, newValidationError("include_resolved", "invalid_include_resolved", "invalid include_resolved"))
		return
	}

	req := warningdomain.ListRequest{WorkspaceID: workspaceID(c)}
	if includeResolved != nil {
		req.IncludeResolved = *includeResolved
	}

	resp, err := s.warningSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ResolveUsageWarning(c *gin.Context) {
	resp, err := s.warningSvc.Resolve(c.Request.Context(), warningdomain.ResolveRequest{
		WorkspaceID: workspaceID(c),
		WarningID:   strings.TrimSpace(c.Param("warning_id")),
		ActorID:     actorID(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
