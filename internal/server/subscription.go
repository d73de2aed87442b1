package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	historydomain "github.com/mewayz/workspacebilling/internal/billinghistory/domain"
	bundledomain "github.com/mewayz/workspacebilling/internal/bundle/domain"
	subscriptiondomain "github.com/mewayz/workspacebilling/internal/subscription/domain"
	usagedomain "github.com/mewayz/workspacebilling/internal/usage/domain"
)

type createSubscriptionRequest struct {
	Bundles      []string `json:"bundles" binding:"required"`
	BillingCycle string   `json:"billing_cycle"`
}

type modifyBundlesRequest struct {
	Action  string   `json:"action" binding:"required,oneof=add remove"`
	Bundles []string `json:"bundles" binding:"required"`
}

type changeBundlesRequest struct {
	Bundles []string `json:"bundles" binding:"required"`
}

type cancelSubscriptionRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

type subscriptionOverview struct {
	Subscription subscriptiondomain.SubscriptionResponse `json:"subscription"`
	Usage        usagedomain.UsageLimitsResponse         `json:"usage"`
	Catalog      []bundleView                            `json:"catalog"`
}

func (s *Server) CreateSubscription(c *gin.Context) {
	var req createSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	cycle := bundledomain.BillingCycle(strings.ToLower(strings.TrimSpace(req.BillingCycle)))
	if cycle == "" {
		cycle = bundledomain.BillingCycleMonthly
	}

	resp, err := s.subscriptionSvc.Create(c.Request.Context(), subscriptiondomain.CreateSubscriptionRequest{
		WorkspaceID:  workspaceID(c),
		BundleIDs:    normalizeBundleIDs(req.Bundles),
		BillingCycle: cycle,
		ActorID:      actorID(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetSubscription(c *gin.Context) {
	ctx := c.Request.Context()
	workspace := workspaceID(c)

	sub, err := s.subscriptionSvc.Get(ctx, workspace)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	usage, err := s.usageSvc.GetUsageLimits(ctx, workspace)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": subscriptionOverview{
		Subscription: sub,
		Usage:        usage,
		Catalog:      s.bundleViews(),
	}})
}

func (s *Server) ModifyBundles(c *gin.Context) {
	var req modifyBundlesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	resp, err := s.subscriptionSvc.ModifyBundles(c.Request.Context(), subscriptiondomain.ModifyBundlesRequest{
		WorkspaceID: workspaceID(c),
		Action:      historydomain.Action(strings.ToLower(strings.TrimSpace(req.Action))),
		BundleIDs:   normalizeBundleIDs(req.Bundles),
		ActorID:     actorID(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpgradeSubscription(c *gin.Context) {
	s.changeBundles(c, s.subscriptionSvc.Upgrade)
}

func (s *Server) DowngradeSubscription(c *gin.Context) {
	s.changeBundles(c, s.subscriptionSvc.Downgrade)
}

func (s *Server) changeBundles(c *gin.Context, change func(context.Context, subscriptiondomain.ChangeBundlesRequest) (subscriptiondomain.ModifyBundlesResponse, error)) {
	var req changeBundlesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindingError(err))
		return
	}

	resp, err := change(c.Request.Context(), subscriptiondomain.ChangeBundlesRequest{
		WorkspaceID: workspaceID(c),
		BundleIDs:   normalizeBundleIDs(req.Bundles),
		ActorID:     actorID(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelSubscription(c *gin.Context) {
	var req cancelSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		AbortWithError(c, bindingError(err))
		return
	}

	resp, err := s.subscriptionSvc.Cancel(c.Request.Context(), subscriptiondomain.CancelSubscriptionRequest{
		WorkspaceID: workspaceID(c),
		ActorID:     actorID(c),
		Reason:      strings.TrimSpace(req.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func normalizeBundleIDs(raw []string) []bundledomain.BundleID {
	if len(raw) == 0 {
		return nil
	}

	out := make([]bundledomain.BundleID, 0, len(raw))
	for _, id := range raw {
		out = append(out, bundledomain.BundleID(strings.ToLower(strings.TrimSpace(id))))
	}
	return out
}
