// Package domain contains the bundle catalog, feature registry and pricing models.
package domain

import "strings"

// BundleID identifies a purchasable bundle.
type BundleID string

const (
	BundleCreator     BundleID = "creator"
	BundleEcommerce   BundleID = "ecommerce"
	BundleSocialMedia BundleID = "social_media"
	BundleEducation   BundleID = "education"
	BundleBusiness    BundleID = "business"
	BundleOperations  BundleID = "operations"
)

// ParseBundleIDs splits a comma separated list, trimming blanks.
func ParseBundleIDs(raw string) []BundleID {
	parts := strings.Split(raw, ",")
	out := make([]BundleID, 0, len(parts))
	for _, part := range parts {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		out = append(out, BundleID(part))
	}
	return out
}

// BillingCycle is the payment interval of a subscription.
type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleYearly  BillingCycle = "yearly"
)

func (c BillingCycle) Valid() bool {
	return c == BillingCycleMonthly || c == BillingCycleYearly
}

// ResetPolicy controls when a feature's usage counter starts over.
type ResetPolicy string

const (
	ResetMonthly ResetPolicy = "monthly"
	ResetWeekly  ResetPolicy = "weekly"
	ResetDaily   ResetPolicy = "daily"
	ResetNever   ResetPolicy = "never"
)

func (p ResetPolicy) Valid() bool {
	switch p {
	case ResetMonthly, ResetWeekly, ResetDaily, ResetNever:
		return true
	default:
		return false
	}
}

// Unlimited marks a limit without a numeric cap.
const Unlimited int64 = -1

// Bundle is a static catalog entry. Prices are in minor units (cents).
type Bundle struct {
	ID                BundleID         `json:"id"`
	Name              string           `json:"name"`
	Description       string           `json:"description"`
	MonthlyPriceCents int64            `json:"-"`
	YearlyPriceCents  int64            `json:"-"`
	Features          []string         `json:"features"`
	Limits            map[string]int64 `json:"limits"`
}

// PriceCents returns the bundle price for the billing cycle.
func (b Bundle) PriceCents(cycle BillingCycle) int64 {
	if cycle == BillingCycleYearly {
		return b.YearlyPriceCents
	}
	return b.MonthlyPriceCents
}

// HasFeature reports whether the bundle unlocks the feature flag.
func (b Bundle) HasFeature(feature string) bool {
	for _, f := range b.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// FeatureRule is one row of the trackable-feature registry.
type FeatureRule struct {
	Feature      string      `json:"feature"`
	LimitKey     string      `json:"limit_key"`
	ResetPolicy  ResetPolicy `json:"reset_policy"`
	OwningBundle BundleID    `json:"owning_bundle"`
}

// FreeTier is what a workspace without a live subscription gets.
type FreeTier struct {
	Features []string         `json:"features"`
	Limits   map[string]int64 `json:"limits"`
}

func (f FreeTier) HasFeature(feature string) bool {
	for _, candidate := range f.Features {
		if candidate == feature {
			return true
		}
	}
	return false
}
