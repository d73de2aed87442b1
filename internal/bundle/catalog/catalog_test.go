package catalog

import (
	"errors"
	"testing"

	"github.com/mewayz/workspacebilling/internal/bundle/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	bundles := c.Bundles()
	require.Len(t, bundles, 6)
	assert.Equal(t, domain.BundleCreator, bundles[0].ID)

	prices := map[domain.BundleID]int64{}
	for _, b := range bundles {
		prices[b.ID] = b.MonthlyPriceCents
	}
	assert.Equal(t, int64(1900), prices[domain.BundleCreator])
	assert.Equal(t, int64(2400), prices[domain.BundleEcommerce])
	assert.Equal(t, int64(2400), prices[domain.BundleSocialMedia])
	assert.Equal(t, int64(1500), prices[domain.BundleEducation])

	social, ok := c.Bundle(domain.BundleSocialMedia)
	require.True(t, ok)
	assert.Equal(t, int64(1000), social.Limits["instagram_searches"])
}

func TestRuleUnknownFeature(t *testing.T) {
	c := MustDefault()

	_, err := c.Rule("teleportation")
	assert.ErrorIs(t, err, domain.ErrUnknownFeature)

	rule, err := c.Rule("ai_image_generation")
	require.NoError(t, err)
	assert.Equal(t, "ai_credits", rule.LimitKey)
	assert.Equal(t, domain.ResetMonthly, rule.ResetPolicy)
}

func TestCombinedLimit(t *testing.T) {
	c := MustDefault()

	t.Run("max across bundles", func(t *testing.T) {
		limit := c.CombinedLimit([]domain.BundleID{domain.BundleCreator, domain.BundleEducation}, "ai_credits")
		assert.Equal(t, int64(500), limit)

		limit = c.CombinedLimit([]domain.BundleID{domain.BundleEducation, domain.BundleBusiness}, "ai_credits")
		assert.Equal(t, int64(1000), limit)
	})

	t.Run("unlimited dominates finite caps", func(t *testing.T) {
		limit := c.CombinedLimit([]domain.BundleID{domain.BundleCreator, domain.BundleBusiness}, "websites")
		assert.Equal(t, domain.Unlimited, limit)

		limit = c.CombinedLimit([]domain.BundleID{domain.BundleBusiness, domain.BundleOperations}, "crm_contacts")
		assert.Equal(t, int64(5000), limit)
	})

	t.Run("free tier baseline", func(t *testing.T) {
		assert.Equal(t, int64(1), c.CombinedLimit(nil, "bio_links"))
		assert.Equal(t, int64(0), c.CombinedLimit(nil, "instagram_searches"))
		assert.Equal(t, int64(1), c.CombinedLimit([]domain.BundleID{domain.BundleSocialMedia}, "forms"))
	})

	t.Run("undefined key", func(t *testing.T) {
		assert.Equal(t, int64(0), c.CombinedLimit([]domain.BundleID{domain.BundleEducation}, "products"))
	})
}

func TestCombinedLimits(t *testing.T) {
	c := MustDefault()

	limits := c.CombinedLimits([]domain.BundleID{domain.BundleSocialMedia})
	assert.Equal(t, int64(1000), limits["instagram_searches"])
	assert.Equal(t, int64(1), limits["bio_links"])
	_, hasProducts := limits["products"]
	assert.False(t, hasProducts)
}

func TestNewRejectsInconsistentRegistry(t *testing.T) {
	bundles := []domain.Bundle{{
		ID:     "solo",
		Limits: map[string]int64{"widgets": 5, "orphan": 1},
	}}

	cases := []struct {
		name  string
		rules []domain.FeatureRule
	}{
		{
			name:  "orphan limit key",
			rules: []domain.FeatureRule{{Feature: "widgets", LimitKey: "widgets", ResetPolicy: domain.ResetNever, OwningBundle: "solo"}},
		},
		{
			name: "missing owner",
			rules: []domain.FeatureRule{
				{Feature: "widgets", LimitKey: "widgets", ResetPolicy: domain.ResetNever, OwningBundle: "ghost"},
				{Feature: "orphan", LimitKey: "orphan", ResetPolicy: domain.ResetNever, OwningBundle: "solo"},
			},
		},
		{
			name: "bad reset policy",
			rules: []domain.FeatureRule{
				{Feature: "widgets", LimitKey: "widgets", ResetPolicy: "hourly", OwningBundle: "solo"},
				{Feature: "orphan", LimitKey: "orphan", ResetPolicy: domain.ResetNever, OwningBundle: "solo"},
			},
		},
		{
			name: "owner lacks limit key",
			rules: []domain.FeatureRule{
				{Feature: "widgets", LimitKey: "gadgets", ResetPolicy: domain.ResetNever, OwningBundle: "solo"},
				{Feature: "orphan", LimitKey: "orphan", ResetPolicy: domain.ResetNever, OwningBundle: "solo"},
			},
		},
		{
			name: "shared limit key with mixed reset policies",
			rules: []domain.FeatureRule{
				{Feature: "widgets", LimitKey: "widgets", ResetPolicy: domain.ResetMonthly, OwningBundle: "solo"},
				{Feature: "widget_exports", LimitKey: "widgets", ResetPolicy: domain.ResetNever, OwningBundle: "solo"},
				{Feature: "orphan", LimitKey: "orphan", ResetPolicy: domain.ResetNever, OwningBundle: "solo"},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(bundles, tc.rules, domain.FreeTier{})
			assert.True(t, errors.Is(err, domain.ErrInvalidCatalog), "got %v", err)
		})
	}
}

func TestValidateBundleIDs(t *testing.T) {
	c := MustDefault()

	assert.NoError(t, c.ValidateBundleIDs([]domain.BundleID{domain.BundleCreator, domain.BundleOperations}))
	assert.ErrorIs(t, c.ValidateBundleIDs([]domain.BundleID{domain.BundleCreator, "gold"}), domain.ErrInvalidBundle)
}
