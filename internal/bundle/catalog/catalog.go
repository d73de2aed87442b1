package catalog

import (
	"fmt"
	"sort"

	"github.com/mewayz/workspacebilling/internal/bundle/domain"
)

// Catalog is the immutable bundle catalog plus the trackable-feature registry.
// It is validated once at construction and safe for concurrent use.
type Catalog struct {
	order    []domain.BundleID
	bundles  map[domain.BundleID]domain.Bundle
	rules    map[string]domain.FeatureRule
	ruleKeys []string
	freeTier domain.FreeTier
}

// Default returns the production catalog.
func Default() (*Catalog, error) {
	return New(defaultBundles(), defaultRules(), defaultFreeTier())
}

// MustDefault panics when the built-in catalog is inconsistent.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// New builds and validates a catalog.
func New(bundles []domain.Bundle, rules []domain.FeatureRule, freeTier domain.FreeTier) (*Catalog, error) {
	c := &Catalog{
		order:    make([]domain.BundleID, 0, len(bundles)),
		bundles:  make(map[domain.BundleID]domain.Bundle, len(bundles)),
		rules:    make(map[string]domain.FeatureRule, len(rules)),
		freeTier: freeTier,
	}
	for _, b := range bundles {
		if _, dup := c.bundles[b.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate bundle %q", domain.ErrInvalidCatalog, b.ID)
		}
		c.order = append(c.order, b.ID)
		c.bundles[b.ID] = b
	}
	for _, r := range rules {
		if _, dup := c.rules[r.Feature]; dup {
			return nil, fmt.Errorf("%w: duplicate registry feature %q", domain.ErrInvalidCatalog, r.Feature)
		}
		c.rules[r.Feature] = r
		c.ruleKeys = append(c.ruleKeys, r.Feature)
	}
	sort.Strings(c.ruleKeys)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that every registry feature resolves to a limit in its owning bundle,
// and that every limit key anywhere in the catalog is reachable from the registry.
func (c *Catalog) Validate() error {
	if len(c.bundles) == 0 {
		return fmt.Errorf("%w: no bundles", domain.ErrInvalidCatalog)
	}
	for _, id := range c.order {
		b := c.bundles[id]
		if b.MonthlyPriceCents < 0 || b.YearlyPriceCents < 0 {
			return fmt.Errorf("%w: bundle %q has a negative price", domain.ErrInvalidCatalog, id)
		}
		for key, limit := range b.Limits {
			if limit < domain.Unlimited {
				return fmt.Errorf("%w: bundle %q limit %q is %d", domain.ErrInvalidCatalog, id, key, limit)
			}
		}
	}

	// Features sharing a limit key must reset together.
	type keyOwner struct {
		feature string
		policy  domain.ResetPolicy
	}
	policies := make(map[string]keyOwner, len(c.rules))
	for _, feature := range c.ruleKeys {
		r := c.rules[feature]
		if r.LimitKey == "" {
			return fmt.Errorf("%w: feature %q has no limit key", domain.ErrInvalidCatalog, feature)
		}
		if !r.ResetPolicy.Valid() {
			return fmt.Errorf("%w: feature %q has reset policy %q", domain.ErrInvalidCatalog, feature, r.ResetPolicy)
		}
		owner, ok := c.bundles[r.OwningBundle]
		if !ok {
			return fmt.Errorf("%w: feature %q owned by unknown bundle %q", domain.ErrInvalidCatalog, feature, r.OwningBundle)
		}
		if _, ok := owner.Limits[r.LimitKey]; !ok {
			return fmt.Errorf("%w: bundle %q does not define limit %q for feature %q", domain.ErrInvalidCatalog, r.OwningBundle, r.LimitKey, feature)
		}
		if prev, ok := policies[r.LimitKey]; ok && prev.policy != r.ResetPolicy {
			return fmt.Errorf("%w: limit %q resets %s for %q but %s for %q", domain.ErrInvalidCatalog,
				r.LimitKey, prev.policy, prev.feature, r.ResetPolicy, feature)
		}
		policies[r.LimitKey] = keyOwner{feature: feature, policy: r.ResetPolicy}
	}

	for _, id := range c.order {
		for key := range c.bundles[id].Limits {
			if _, ok := policies[key]; !ok {
				return fmt.Errorf("%w: limit %q of bundle %q is not tracked by any feature", domain.ErrInvalidCatalog, key, id)
			}
		}
	}
	for key := range c.freeTier.Limits {
		if _, ok := policies[key]; !ok {
			return fmt.Errorf("%w: free tier limit %q is not tracked by any feature", domain.ErrInvalidCatalog, key)
		}
	}
	return nil
}

// Bundles returns bundles in catalog order.
func (c *Catalog) Bundles() []domain.Bundle {
	out := make([]domain.Bundle, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.bundles[id])
	}
	return out
}

func (c *Catalog) Bundle(id domain.BundleID) (domain.Bundle, bool) {
	b, ok := c.bundles[id]
	return b, ok
}

// ValidateBundleIDs returns ErrInvalidBundle for the first unknown id.
func (c *Catalog) ValidateBundleIDs(ids []domain.BundleID) error {
	for _, id := range ids {
		if _, ok := c.bundles[id]; !ok {
			return fmt.Errorf("%w: %q", domain.ErrInvalidBundle, id)
		}
	}
	return nil
}

// Rule resolves a trackable feature.
func (c *Catalog) Rule(feature string) (domain.FeatureRule, error) {
	r, ok := c.rules[feature]
	if !ok {
		return domain.FeatureRule{}, fmt.Errorf("%w: %q", domain.ErrUnknownFeature, feature)
	}
	return r, nil
}

// Rules returns the registry sorted by feature key.
func (c *Catalog) Rules() []domain.FeatureRule {
	out := make([]domain.FeatureRule, 0, len(c.ruleKeys))
	for _, key := range c.ruleKeys {
		out = append(out, c.rules[key])
	}
	return out
}

func (c *Catalog) FreeTier() domain.FreeTier {
	return c.freeTier
}

// CombinedLimit resolves the effective cap for limitKey across active bundles.
// Any unlimited grant wins; otherwise the largest finite cap applies. The free tier
// limit is the baseline every workspace starts from, and keys nobody defines cap at zero.
func (c *Catalog) CombinedLimit(active []domain.BundleID, limitKey string) int64 {
	limit, ok := c.freeTier.Limits[limitKey]
	if ok && limit == domain.Unlimited {
		return domain.Unlimited
	}
	for _, id := range active {
		b, ok := c.bundles[id]
		if !ok {
			continue
		}
		value, ok := b.Limits[limitKey]
		if !ok {
			continue
		}
		if value == domain.Unlimited {
			return domain.Unlimited
		}
		if value > limit {
			limit = value
		}
	}
	return limit
}

// CombinedLimits resolves every limit key granted by the free tier or the active bundles.
func (c *Catalog) CombinedLimits(active []domain.BundleID) map[string]int64 {
	out := make(map[string]int64)
	for key := range c.freeTier.Limits {
		out[key] = c.CombinedLimit(active, key)
	}
	for _, id := range active {
		for key := range c.bundles[id].Limits {
			out[key] = c.CombinedLimit(active, key)
		}
	}
	return out
}

// Features unions the feature flags of the active bundles.
func (c *Catalog) Features(active []domain.BundleID) map[string]struct{} {
	out := make(map[string]struct{})
	for _, id := range active {
		for _, f := range c.bundles[id].Features {
			out[f] = struct{}{}
		}
	}
	return out
}
