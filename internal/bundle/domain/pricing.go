package domain

// PricingItem is one priced bundle inside a breakdown.
type PricingItem struct {
	BundleID BundleID `json:"bundle_id"`
	Name     string   `json:"name"`
	Price    float64  `json:"price"`
}

// PricingBreakdown is the deterministic result of pricing a bundle set.
// Cent fields are authoritative; decimal fields are derived for display.
type PricingBreakdown struct {
	Bundles           []BundleID    `json:"bundles"`
	BillingCycle      BillingCycle  `json:"billing_cycle"`
	BundleCount       int           `json:"bundle_count"`
	Items             []PricingItem `json:"items"`
	Currency          string        `json:"currency"`
	BaseTotal         float64       `json:"base_total"`
	DiscountRate      float64       `json:"discount_rate"`
	DiscountAmount    float64       `json:"discount_amount"`
	TotalAmount       float64       `json:"total_amount"`
	CompetitorCost    float64       `json:"competitor_cost"`
	SavingsAmount     float64       `json:"savings_amount"`
	SavingsPercentage float64       `json:"savings_percentage"`

	BaseTotalCents      int64 `json:"base_total_cents"`
	DiscountRateBps     int64 `json:"discount_rate_bps"`
	DiscountAmountCents int64 `json:"discount_amount_cents"`
	TotalAmountCents    int64 `json:"total_amount_cents"`
}

// CentsToAmount renders minor units as a decimal amount.
func CentsToAmount(cents int64) float64 {
	return float64(cents) / 100
}
