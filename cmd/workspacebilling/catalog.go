package main

import (
	"encoding/json"
	"fmt"

	"github.com/mewayz/workspacebilling/internal/bundle/catalog"
	"github.com/mewayz/workspacebilling/internal/bundle/domain"
	"github.com/spf13/cobra"
)

type bundleListing struct {
	ID           domain.BundleID  `json:"id"`
	Name         string           `json:"name"`
	MonthlyPrice float64          `json:"monthly_price"`
	YearlyPrice  float64          `json:"yearly_price"`
	Features     []string         `json:"features"`
	Limits       map[string]int64 `json:"limits"`
}

type catalogListing struct {
	Bundles  []bundleListing      `json:"bundles"`
	Registry []domain.FeatureRule `json:"registry"`
	FreeTier domain.FreeTier      `json:"free_tier"`
}

func newCatalogCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Validate and print the bundle catalog and feature registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := catalog.Default()
			if err != nil {
				return fmt.Errorf("catalog is invalid: %w", err)
			}

			listing := catalogListing{
				Registry: c.Rules(),
				FreeTier: c.FreeTier(),
			}
			for _, b := range c.Bundles() {
				listing.Bundles = append(listing.Bundles, bundleListing{
					ID:           b.ID,
					Name:         b.Name,
					MonthlyPrice: domain.CentsToAmount(b.MonthlyPriceCents),
					YearlyPrice:  domain.CentsToAmount(b.YearlyPriceCents),
					Features:     b.Features,
					Limits:       b.Limits,
				})
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(listing)
		},
	}
}
