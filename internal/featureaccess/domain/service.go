package domain

import (
	"context"
	"errors"
)

type Source string

const (
	SourceFreeTier     Source = "free_tier"
	SourceSubscription Source = "subscription"
)

const (
	ReasonFreeTier     = "included in free tier"
	ReasonPaidRequired = "requires paid subscription"
	ReasonFromBundles  = "from subscription"
	ReasonNotInBundles = "not included in current bundles"
)

type AccessRequest struct {
	WorkspaceID string
	Feature     string
}

type AccessResponse struct {
	WorkspaceID string `json:"workspace_id"`
	Feature     string `json:"feature"`
	HasAccess   bool   `json:"has_access"`
	Reason      string `json:"reason"`
	Source      Source `json:"source"`
}

type Service interface {
	HasAccess(ctx context.Context, req AccessRequest) (AccessResponse, error)
}

var (
	ErrInvalidWorkspace = errors.New("invalid_workspace")
	ErrInvalidFeature   = errors.New("invalid_feature")
)
