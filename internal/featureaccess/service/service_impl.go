package service

import (
	"context"
	"strings"

	"github.com/mewayz/workspacebilling/internal/bundle/catalog"
	featuredomain "github.com/mewayz/workspacebilling/internal/featureaccess/domain"
	subscriptiondomain "github.com/mewayz/workspacebilling/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Log             *zap.Logger
	Catalog         *catalog.Catalog
	SubscriptionSvc subscriptiondomain.Service
}

type Service struct {
	log             *zap.Logger
	catalog         *catalog.Catalog
	subscriptionsvc subscriptiondomain.Service
}

func NewService(p ServiceParam) featuredomain.Service {
	return &Service{
		log:             p.Log.Named("featureaccess.service"),
		catalog:         p.Catalog,
		subscriptionsvc: p.SubscriptionSvc,
	}
}

// HasAccess answers from a single snapshot lookup and never writes.
func (s *Service) HasAccess(ctx context.Context, req featuredomain.AccessRequest) (featuredomain.AccessResponse, error) {
	workspaceID := strings.TrimSpace(req.WorkspaceID)
	if workspaceID == "" {
		return featuredomain.AccessResponse{}, featuredomain.ErrInvalidWorkspace
	}
	feature := strings.TrimSpace(req.Feature)
	if feature == "" {
		return featuredomain.AccessResponse{}, featuredomain.ErrInvalidFeature
	}

	snapshot, err := s.subscriptionsvc.Snapshot(ctx, workspaceID)
	if err != nil {
		return featuredomain.AccessResponse{}, err
	}

	resp := featuredomain.AccessResponse{WorkspaceID: workspaceID, Feature: feature}
	freeTier := s.catalog.FreeTier()

	if !snapshot.Live {
		resp.Source = featuredomain.SourceFreeTier
		resp.HasAccess = freeTier.HasFeature(feature)
		if resp.HasAccess {
			resp.Reason = featuredomain.ReasonFreeTier
		} else {
			resp.Reason = featuredomain.ReasonPaidRequired
		}
		return resp, nil
	}

	resp.Source = featuredomain.SourceSubscription
	if _, ok := s.catalog.Features(snapshot.Bundles)[feature]; ok {
		resp.HasAccess = true
		resp.Reason = featuredomain.ReasonFromBundles
		return resp, nil
	}
	if freeTier.HasFeature(feature) {
		resp.HasAccess = true
		resp.Source = featuredomain.SourceFreeTier
		resp.Reason = featuredomain.ReasonFreeTier
		return resp, nil
	}
	resp.Reason = featuredomain.ReasonNotInBundles
	return resp, nil
}
