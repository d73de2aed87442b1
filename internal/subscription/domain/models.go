// Package domain contains workspace subscription models and the live-subscription predicate.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	bundledomain "github.com/mewayz/workspacebilling/internal/bundle/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SubscriptionStatus represents lifecycle states for a workspace subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// PricingSnapshot freezes the price computed when the bundle set last changed.
type PricingSnapshot struct {
	BaseTotalCents      int64     `json:"base_total_cents"`
	DiscountRateBps     int64     `json:"discount_rate_bps"`
	DiscountAmountCents int64     `json:"discount_amount_cents"`
	TotalAmountCents    int64     `json:"total_amount_cents"`
	Currency            string    `json:"currency"`
	CalculatedAt        time.Time `json:"calculated_at"`
}

func SnapshotFromBreakdown(b bundledomain.PricingBreakdown, at time.Time) PricingSnapshot {
	return PricingSnapshot{
		BaseTotalCents:      b.BaseTotalCents,
		DiscountRateBps:     b.DiscountRateBps,
		DiscountAmountCents: b.DiscountAmountCents,
		TotalAmountCents:    b.TotalAmountCents,
		Currency:            b.Currency,
		CalculatedAt:        at,
	}
}

// Subscription is a workspace's bundle subscription. At most one row per workspace is not cancelled.
type Subscription struct {
	ID                 snowflake.ID                        `gorm:"primaryKey"`
	WorkspaceID        string                              `gorm:"type:text;not null;index;uniqueIndex:ux_workspace_subscriptions_live,where:status <> 'cancelled'"`
	Bundles            datatypes.JSONSlice[string]         `gorm:"not null"`
	BillingCycle       bundledomain.BillingCycle           `gorm:"type:text;not null"`
	Status             SubscriptionStatus                  `gorm:"type:text;not null"`
	Pricing            datatypes.JSONType[PricingSnapshot] `gorm:"not null"`
	AutoRenew          bool                                `gorm:"not null"`
	CurrentPeriodStart time.Time                           `gorm:"not null"`
	CurrentPeriodEnd   time.Time                           `gorm:"not null"`
	CreatedBy          string                              `gorm:"type:text;not null"`
	CancelledAt        *time.Time                          `gorm:""`
	CancelledBy        *string                             `gorm:"type:text"`
	CancellationReason *string                             `gorm:"type:text"`
	Version            int64                               `gorm:"not null;default:1"`
	CreatedAt          time.Time                           `gorm:"not null"`
	ModifiedAt         time.Time                           `gorm:"not null"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "workspace_subscriptions" }

func (s Subscription) BundleIDs() []bundledomain.BundleID {
	out := make([]bundledomain.BundleID, 0, len(s.Bundles))
	for _, id := range s.Bundles {
		out = append(out, bundledomain.BundleID(id))
	}
	return out
}

func (s Subscription) IsLive() bool {
	return s.Status != SubscriptionStatusCancelled
}

// NotCancelled is the single predicate for "live subscription" queries.
func NotCancelled(db *gorm.DB) *gorm.DB {
	return db.Where("status <> ?", SubscriptionStatusCancelled)
}

// Snapshot is the cacheable view of a workspace's live bundles.
type Snapshot struct {
	WorkspaceID    string                    `json:"workspace_id"`
	Live           bool                      `json:"live"`
	SubscriptionID snowflake.ID              `json:"subscription_id,omitempty"`
	Bundles        []bundledomain.BundleID   `json:"bundles,omitempty"`
	BillingCycle   bundledomain.BillingCycle `json:"billing_cycle,omitempty"`
}

func SnapshotOf(workspaceID string, sub *Subscription) Snapshot {
	if sub == nil || !sub.IsLive() {
		return Snapshot{WorkspaceID: workspaceID}
	}
	return Snapshot{
		WorkspaceID:    workspaceID,
		Live:           true,
		SubscriptionID: sub.ID,
		Bundles:        sub.BundleIDs(),
		BillingCycle:   sub.BillingCycle,
	}
}
