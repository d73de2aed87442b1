package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	featureaccessdomain "github.com/mewayz/workspacebilling/internal/featureaccess/domain"
)

func (s *Server) GetFeatureAccess(c *gin.Context) {
	feature := strings.TrimSpace(c.Query("feature"))
	if feature == "" {
		AbortWithError(c, newValidationError("feature", "required", "feature is required"))
		return
	}
	c.Set("feature", feature)

	resp, err := s.featureSvc.HasAccess(c.Request.Context(), featureaccessdomain.AccessRequest{
		WorkspaceID: workspaceID(c),
		Feature:     feature,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
