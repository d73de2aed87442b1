// Package pricing prices bundle selections with the multi-bundle discount.
package pricing

import (
	"fmt"
	"math"

	"github.com/mewayz/workspacebilling/internal/bundle/catalog"
	"github.com/mewayz/workspacebilling/internal/bundle/domain"
	"github.com/mewayz/workspacebilling/internal/config"
)

const bpsScale = 10000

// Calculator is pure: identical input and configuration always yield identical output.
type Calculator struct {
	catalog *catalog.Catalog
	cfg     *config.PricingConfigHolder
}

func NewCalculator(c *catalog.Catalog, cfg *config.PricingConfigHolder) *Calculator {
	return &Calculator{catalog: c, cfg: cfg}
}

// DiscountRateBps returns the discount for a number of distinct bundles, in basis points.
func DiscountRateBps(count int) int64 {
	switch {
	case count >= 4:
		return 4000
	case count == 3:
		return 3000
	case count == 2:
		return 2000
	default:
		return 0
	}
}

// Dedupe collapses repeated ids, keeping the order of first appearance.
func Dedupe(ids []domain.BundleID) []domain.BundleID {
	seen := make(map[domain.BundleID]struct{}, len(ids))
	out := make([]domain.BundleID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (c *Calculator) Calculate(ids []domain.BundleID, cycle domain.BillingCycle) (domain.PricingBreakdown, error) {
	if len(ids) == 0 {
		return domain.PricingBreakdown{}, domain.ErrEmptyBundleSet
	}
	if !cycle.Valid() {
		return domain.PricingBreakdown{}, fmt.Errorf("%w: %q", domain.ErrInvalidBillingCycle, cycle)
	}

	unique := Dedupe(ids)
	if err := c.catalog.ValidateBundleIDs(unique); err != nil {
		return domain.PricingBreakdown{}, err
	}

	cfg := c.cfg.Get()

	items := make([]domain.PricingItem, 0, len(unique))
	var base int64
	for _, id := range unique {
		b, _ := c.catalog.Bundle(id)
		price := b.PriceCents(cycle)
		base += price
		items = append(items, domain.PricingItem{
			BundleID: id,
			Name:     b.Name,
			Price:    domain.CentsToAmount(price),
		})
	}

	bps := DiscountRateBps(len(unique))
	total := applyDiscount(base, bps)
	discount := base - total

	competitor := int64(math.Round(float64(base) * cfg.SavingsMultiplier))
	savings := competitor - total
	var savingsPct float64
	if competitor > 0 {
		savingsPct = math.Round(float64(savings)*10000/float64(competitor)) / 100
	}

	return domain.PricingBreakdown{
		Bundles:           unique,
		BillingCycle:      cycle,
		BundleCount:       len(unique),
		Items:             items,
		Currency:          cfg.Currency,
		BaseTotal:         domain.CentsToAmount(base),
		DiscountRate:      float64(bps) / bpsScale,
		DiscountAmount:    domain.CentsToAmount(discount),
		TotalAmount:       domain.CentsToAmount(total),
		CompetitorCost:    domain.CentsToAmount(competitor),
		SavingsAmount:     domain.CentsToAmount(savings),
		SavingsPercentage: savingsPct,

		BaseTotalCents:      base,
		DiscountRateBps:     bps,
		DiscountAmountCents: discount,
		TotalAmountCents:    total,
	}, nil
}

// applyDiscount rounds half away from zero; amounts are never negative.
func applyDiscount(base, bps int64) int64 {
	return (base*(bpsScale-bps) + bpsScale/2) / bpsScale
}
