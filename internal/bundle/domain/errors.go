package domain

import "errors"

var (
	ErrInvalidBundle       = errors.New("invalid_bundle")
	ErrEmptyBundleSet      = errors.New("empty_bundle_set")
	ErrInvalidBillingCycle = errors.New("invalid_billing_cycle")
	ErrUnknownFeature      = errors.New("unknown_feature")
	ErrInvalidCatalog      = errors.New("invalid_catalog")
)
