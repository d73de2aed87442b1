package domain

import (
	"context"
	"errors"
	"time"

	historydomain "github.com/mewayz/workspacebilling/internal/billinghistory/domain"
	bundledomain "github.com/mewayz/workspacebilling/internal/bundle/domain"
)

type CreateSubscriptionRequest struct {
	WorkspaceID  string
	BundleIDs    []bundledomain.BundleID
	BillingCycle bundledomain.BillingCycle
	ActorID      string
}

type ModifyBundlesRequest struct {
	WorkspaceID string
	Action      historydomain.Action
	BundleIDs   []bundledomain.BundleID
	ActorID     string
}

type ChangeBundlesRequest struct {
	WorkspaceID string
	BundleIDs   []bundledomain.BundleID
	ActorID     string
}

type CancelSubscriptionRequest struct {
	WorkspaceID string
	ActorID     string
	Reason      string
}

type PricingResponse struct {
	BaseTotal      float64   `json:"base_total"`
	DiscountRate   float64   `json:"discount_rate"`
	DiscountAmount float64   `json:"discount_amount"`
	TotalAmount    float64   `json:"total_amount"`
	Currency       string    `json:"currency"`
	CalculatedAt   time.Time `json:"calculated_at"`
}

type SubscriptionResponse struct {
	ID                 string                    `json:"id"`
	WorkspaceID        string                    `json:"workspace_id"`
	Bundles            []bundledomain.BundleID   `json:"bundles"`
	BillingCycle       bundledomain.BillingCycle `json:"billing_cycle"`
	Status             SubscriptionStatus        `json:"status"`
	Pricing            PricingResponse           `json:"pricing"`
	AutoRenew          bool                      `json:"auto_renew"`
	CurrentPeriodStart time.Time                 `json:"current_period_start"`
	CurrentPeriodEnd   time.Time                 `json:"current_period_end"`
	CreatedAt          time.Time                 `json:"created_at"`
	ModifiedAt         time.Time                 `json:"modified_at"`
	CancelledAt        *time.Time                `json:"cancelled_at,omitempty"`
	CancelledBy        *string                   `json:"cancelled_by,omitempty"`
	CancellationReason *string                   `json:"cancellation_reason,omitempty"`
}

func (s Subscription) Response() SubscriptionResponse {
	pricing := s.Pricing.Data()
	return SubscriptionResponse{
		ID:           s.ID.String(),
		WorkspaceID:  s.WorkspaceID,
		Bundles:      s.BundleIDs(),
		BillingCycle: s.BillingCycle,
		Status:       s.Status,
		Pricing: PricingResponse{
			BaseTotal:      bundledomain.CentsToAmount(pricing.BaseTotalCents),
			DiscountRate:   float64(pricing.DiscountRateBps) / 10000,
			DiscountAmount: bundledomain.CentsToAmount(pricing.DiscountAmountCents),
			TotalAmount:    bundledomain.CentsToAmount(pricing.TotalAmountCents),
			Currency:       pricing.Currency,
			CalculatedAt:   pricing.CalculatedAt,
		},
		AutoRenew:          s.AutoRenew,
		CurrentPeriodStart: s.CurrentPeriodStart,
		CurrentPeriodEnd:   s.CurrentPeriodEnd,
		CreatedAt:          s.CreatedAt,
		ModifiedAt:         s.ModifiedAt,
		CancelledAt:        s.CancelledAt,
		CancelledBy:        s.CancelledBy,
		CancellationReason: s.CancellationReason,
	}
}

type ModifyBundlesResponse struct {
	Subscription   SubscriptionResponse    `json:"subscription"`
	Changed        bool                    `json:"changed"`
	BundlesChanged []bundledomain.BundleID `json:"bundles_changed"`
	PreviousAmount float64                 `json:"previous_amount"`
	AmountDelta    float64                 `json:"amount_delta"`
}

type Service interface {
	Create(ctx context.Context, req CreateSubscriptionRequest) (SubscriptionResponse, error)
	// Get returns the live subscription, falling back to the most recently cancelled one.
	Get(ctx context.Context, workspaceID string) (SubscriptionResponse, error)
	ModifyBundles(ctx context.Context, req ModifyBundlesRequest) (ModifyBundlesResponse, error)
	Upgrade(ctx context.Context, req ChangeBundlesRequest) (ModifyBundlesResponse, error)
	Downgrade(ctx context.Context, req ChangeBundlesRequest) (ModifyBundlesResponse, error)
	Cancel(ctx context.Context, req CancelSubscriptionRequest) (SubscriptionResponse, error)
	// Snapshot resolves the live bundle set, served from cache when available.
	Snapshot(ctx context.Context, workspaceID string) (Snapshot, error)
}

var (
	ErrInvalidWorkspace       = errors.New("invalid_workspace")
	ErrInvalidActor           = errors.New("invalid_actor")
	ErrInvalidAction          = errors.New("invalid_action")
	ErrAlreadySubscribed      = errors.New("already_subscribed")
	ErrSubscriptionNotFound   = errors.New("subscription_not_found")
	ErrCannotRemoveLastBundle = errors.New("cannot_remove_last_bundle")
	ErrConcurrentModification = errors.New("concurrent_modification")
	ErrWorkspaceBusy          = errors.New("workspace_busy")
)
