package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	bundledomain "github.com/mewayz/workspacebilling/internal/bundle/domain"
	"github.com/mewayz/workspacebilling/internal/bundle/pricing"
)

type bundleView struct {
	ID           bundledomain.BundleID `json:"id"`
	Name         string                `json:"name"`
	Description  string                `json:"description"`
	MonthlyPrice float64               `json:"monthly_price"`
	YearlyPrice  float64               `json:"yearly_price"`
	Features     []string              `json:"features"`
	Limits       map[string]int64      `json:"limits"`
}

// availableBundlesResponse.Discounts maps a bundle count to the rate applied to it.
type availableBundlesResponse struct {
	Bundles   []bundleView          `json:"bundles"`
	FreeTier  bundledomain.FreeTier `json:"free_tier"`
	Discounts map[int]float64       `json:"discounts"`
}

func (s *Server) bundleViews() []bundleView {
	bundles := s.catalog.Bundles()
	out := make([]bundleView, 0, len(bundles))
	for _, b := range bundles {
		out = append(out, bundleView{
			ID:           b.ID,
			Name:         b.Name,
			Description:  b.Description,
			MonthlyPrice: bundledomain.CentsToAmount(b.MonthlyPriceCents),
			YearlyPrice:  bundledomain.CentsToAmount(b.YearlyPriceCents),
			Features:     b.Features,
			Limits:       b.Limits,
		})
	}
	return out
}

func (s *Server) ListAvailableBundles(c *gin.Context) {
	bundles := s.bundleViews()
	discounts := make(map[int]float64, len(bundles))
	for count := 1; count <= len(bundles); count++ {
		discounts[count] = float64(pricing.DiscountRateBps(count)) / 10000
	}

	c.JSON(http.StatusOK, gin.H{"data": availableBundlesResponse{
		Bundles:   bundles,
		FreeTier:  s.catalog.FreeTier(),
		Discounts: discounts,
	}})
}

func (s *Server) CalculatePricing(c *gin.Context) {
	ids := bundledomain.ParseBundleIDs(c.Query("bundles"))

	cycle := bundledomain.BillingCycle(strings.ToLower(strings.TrimSpace(c.Query("billing_cycle"))))
	if cycle == "" {
		cycle = bundledomain.BillingCycleMonthly
	}

	resp, err := s.calculator.Calculate(ids, cycle)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
