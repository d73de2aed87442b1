package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	usagedomain "github.com/mewayz/workspacebilling/internal/usage/domain"
)

type trackUsageRequest struct {
	Feature  string         `json:"feature" binding:"required"`
	Amount   *int64         `json:"amount"`
	Metadata map[string]any `json:"metadata"`
}

func (s *Server) GetUsageLimits(c *gin.Context) {
	resp, err := s.usageSvc.GetUsageLimits(c.Request.Context(), workspaceID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) TrackUsage(c *gin.Context) {
	var req trackUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}
	feature := strings.TrimSpace(req.Feature)
	c.Set("feature", feature)

	resp, err := s.usageSvc.TrackUsage(c.Request.Context(), usagedomain.TrackUsageRequest{
		WorkspaceID:    workspaceID(c),
		Feature:        feature,
		Amount:         req.Amount,
		ActorID:        actorID(c),
		Metadata:       req.Metadata,
		IdempotencyKey: strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"data": resp})
}

func (s *Server) CheckUsageLimit(c *gin.Context) {
	feature := strings.TrimSpace(c.Query("feature"))
	if feature == "" {
		AbortWithError(c, newValidationError("feature", "required", "feature is required"))
		return
	}
	c.Set("feature", feature)

	amount, err := parseOptionalInt64(c.Query("amount"))
	if err != nil {
		AbortWithError(c, newValidationError("amount", "invalid_amount", "invalid amount"))
		return
	}

	req := usagedomain.CheckUsageRequest{
		WorkspaceID: workspaceID(c),
		Feature:     feature,
	}
	if amount != nil {
		req.Amount = *amount
	}

	resp, err := s.usageSvc.CheckUsageLimit(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
