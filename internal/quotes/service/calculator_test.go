package service

import (
	"testing"

	"cleanbroker/internal/quotes/domain"
)

func TestComputeTotal_StandardTierScenario(t *testing.T) {
	// 3 bedrooms, 2 bathrooms, 1200 sqft at the standard tier:
	// 8000 + 3*1000 + 2*800 + 1200*5 = 18600, inside [8000, 40000].
	in := StructuralInputs{
		Tier:          domain.TierStandard,
		Bedrooms:      3,
		Bathrooms:     2,
		SquareFootage: 1200,
	}

	result := ComputeTotal(in, nil, nil)

	if result.BaseCents != 18600 {
		t.Fatalf("expected base 18600, got %d", result.BaseCents)
	}
	if result.AdditionalCents != 0 {
		t.Fatalf("expected no additional charge, got %d", result.AdditionalCents)
	}
	if result.TotalCents != 18600 {
		t.Fatalf("expected total 18600, got %d", result.TotalCents)
	}
}

func TestComputeTotal_WithAdditionalService(t *testing.T) {
	in := StructuralInputs{
		Tier:          domain.TierStandard,
		Bedrooms:      3,
		Bathrooms:     2,
		SquareFootage: 1200,
	}
	catalog := map[string]int64{"window_cleaning": 4000}

	result := ComputeTotal(in, []string{"window_cleaning"}, catalog)

	if result.AdditionalCents != 4000 {
		t.Fatalf("expected additional 4000, got %d", result.AdditionalCents)
	}
	if result.TotalCents != 22600 {
		t.Fatalf("expected total 22600, got %d", result.TotalCents)
	}
	if len(result.Selections) != 1 || result.Selections[0].ServiceKey != "window_cleaning" || result.Selections[0].PriceCents != 4000 {
		t.Fatalf("expected one snapshotted selection window_cleaning=4000, got %+v", result.Selections)
	}
}

func TestComputeTotal_ClampsToTierBounds(t *testing.T) {
	tests := []struct {
		name string
		in   StructuralInputs
		want int64
	}{
		{
			name: "zero rooms floor at tier minimum",
			in:   StructuralInputs{Tier: domain.TierStandard},
			want: 8000,
		},
		{
			name: "oversized property capped at tier maximum",
			in:   StructuralInputs{Tier: domain.TierStandard, Bedrooms: 12, Bathrooms: 8, SquareFootage: 9000},
			want: 40000,
		},
		{
			name: "deep tier minimum",
			in:   StructuralInputs{Tier: domain.TierDeep},
			want: 15000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ComputeTotal(tt.in, nil, nil)
			if result.BaseCents != tt.want {
				t.Fatalf("expected base %d, got %d", tt.want, result.BaseCents)
			}
			if result.TotalCents != tt.want {
				t.Fatalf("expected total %d, got %d", tt.want, result.TotalCents)
			}
		})
	}
}

func TestComputeTotal_UnknownServiceKeysExcluded(t *testing.T) {
	in := StructuralInputs{Tier: domain.TierStandard, Bedrooms: 1}
	catalog := map[string]int64{"fridge_cleaning": 2500}

	// "oven_cleaning" was deactivated mid-flight: it must be excluded
	// entirely, not priced at zero.
	result := ComputeTotal(in, []string{"fridge_cleaning", "oven_cleaning"}, catalog)

	if len(result.Selections) != 1 {
		t.Fatalf("expected 1 selection, got %d", len(result.Selections))
	}
	if result.Selections[0].ServiceKey != "fridge_cleaning" {
		t.Fatalf("expected fridge_cleaning kept, got %s", result.Selections[0].ServiceKey)
	}
	if result.AdditionalCents != 2500 {
		t.Fatalf("expected additional 2500, got %d", result.AdditionalCents)
	}
}

func TestComputeTotal_TotalEqualsBasePlusAdditional(t *testing.T) {
	catalog := map[string]int64{
		"window_cleaning": 4000,
		"fridge_cleaning": 2500,
		"laundry":         1500,
	}
	inputs := []StructuralInputs{
		{Tier: domain.TierStandard, Bedrooms: 1, Bathrooms: 1, SquareFootage: 500},
		{Tier: domain.TierDeep, Bedrooms: 4, Bathrooms: 3, SquareFootage: 2200},
		{Tier: domain.TierPostConstruction, Bedrooms: 0, Bathrooms: 0, SquareFootage: 0},
	}

	for _, in := range inputs {
		result := ComputeTotal(in, []string{"window_cleaning", "laundry"}, catalog)
		if result.TotalCents != result.BaseCents+result.AdditionalCents {
			t.Fatalf("total %d != base %d + additional %d", result.TotalCents, result.BaseCents, result.AdditionalCents)
		}
		rates := tierTable[in.Tier]
		if result.BaseCents < rates.minCents || result.BaseCents > rates.maxCents {
			t.Fatalf("base %d outside [%d, %d] for tier %s", result.BaseCents, rates.minCents, rates.maxCents, in.Tier)
		}
	}
}

func TestSumSelections(t *testing.T) {
	total := SumSelections([]domain.SelectionSnapshot{
		{ServiceKey: "window_cleaning", PriceCents: 4000},
		{ServiceKey: "laundry", PriceCents: 1500},
	})
	if total != 5500 {
		t.Fatalf("expected 5500, got %d", total)
	}
}
