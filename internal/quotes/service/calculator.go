package service

import (
	"cleanbroker/internal/quotes/domain"
)

// tierRates holds the pricing constants for one service tier.
// All amounts are integer cents; perSqftCents is cents per square foot.
type tierRates struct {
	baseCents        int64
	perBedroomCents  int64
	perBathroomCents int64
	perSqftCents     int64
	minCents         int64
	maxCents         int64
}

var tierTable = map[domain.ServiceTier]tierRates{
	domain.TierStandard: {
		baseCents:        8000,
		perBedroomCents:  1000,
		perBathroomCents: 800,
		perSqftCents:     5,
		minCents:         8000,
		maxCents:         40000,
	},
	domain.TierDeep: {
		baseCents:        15000,
		perBedroomCents:  1800,
		perBathroomCents: 1200,
		perSqftCents:     8,
		minCents:         15000,
		maxCents:         60000,
	},
	domain.TierPostConstruction: {
		baseCents:        20000,
		perBedroomCents:  2200,
		perBathroomCents: 1500,
		perSqftCents:     12,
		minCents:         20000,
		maxCents:         80000,
	},
}

// StructuralInputs are the quote attributes that drive the base price.
type StructuralInputs struct {
	Tier          domain.ServiceTier
	Bedrooms      int
	Bathrooms     int
	SquareFootage int
}

// PriceBreakdown is the result of a price computation.
type PriceBreakdown struct {
	BaseCents       int64
	AdditionalCents int64
	TotalCents      int64
	// Selections holds the priced additional services with their catalog
	// price snapshotted; requested keys missing from the catalog are
	// excluded entirely, never priced at zero.
	Selections []domain.SelectionSnapshot
}

// ComputeTotal derives the base price from the structural inputs, clamps it
// to the tier's bounds, and adds the catalog price of every requested
// additional service that exists in the active catalog. Pure function.
func ComputeTotal(in StructuralInputs, requestedKeys []string, catalogPrices map[string]int64) PriceBreakdown {
	rates, ok := tierTable[in.Tier]
	if !ok {
		rates = tierTable[domain.TierStandard]
	}

	base := rates.baseCents +
		int64(in.Bedrooms)*rates.perBedroomCents +
		int64(in.Bathrooms)*rates.perBathroomCents +
		int64(in.SquareFootage)*rates.perSqftCents
	base = clamp(base, rates.minCents, rates.maxCents)

	selections := make([]domain.SelectionSnapshot, 0, len(requestedKeys))
	var additional int64
	for _, key := range requestedKeys {
		price, active := catalogPrices[key]
		if !active {
			continue
		}
		selections = append(selections, domain.SelectionSnapshot{
			ServiceKey: key,
			PriceCents: price,
		})
		additional += price
	}

	return PriceBreakdown{
		BaseCents:       base,
		AdditionalCents: additional,
		TotalCents:      base + additional,
		Selections:      selections,
	}
}

// SumSelections totals an already-snapshotted ledger, used when the admin
// re-prices without changing the selections.
func SumSelections(selections []domain.SelectionSnapshot) int64 {
	var total int64
	for _, sel := range selections {
		total += sel.PriceCents
	}
	return total
}

func clamp(v, min, max int64) int64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
