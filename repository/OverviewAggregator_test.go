package repository

import (
	"testing"

	"backend/models"
)

func builtMatrix(t *testing.T) *models.ComparisonMatrix {
	t.Helper()
	products := []models.Product{
		{ProductID: 1, Code: "PRD-0001", Name: "Sunflower Oil 5L", Category: "Oils & Fats", BaseQuantity: 10, BasePrice: 100},
		{ProductID: 2, Code: "PRD-0002", Name: "Olive Oil 1L", Category: "Oils & Fats", BaseQuantity: 4, BasePrice: 30},
		{ProductID: 3, Code: "PRD-0003", Name: "Basmati Rice 25kg", Category: "Staples", BaseQuantity: 5, BasePrice: 40},
	}
	suppliers := []models.ComparisonSupplier{
		{SupplierID: 20, Code: "SUP-002", Name: "Metro Wholesale"},
		{SupplierID: 10, Code: "SUP-001", Name: "Fresh Foods Ltd"},
	}
	b := NewMatrixBuilder("2024-06", "North", nil, products, suppliers)
	b.ApplyDemand(nil)
	b.PopulatePrices([]models.QuoteRow{
		{QuotationID: 1, SupplierID: 10, ItemID: 1, ProductID: 1, InitialPrice: 95},
		{QuotationID: 1, SupplierID: 10, ItemID: 2, ProductID: 2, InitialPrice: 28},
		{QuotationID: 2, SupplierID: 20, ItemID: 3, ProductID: 1, InitialPrice: 98},
		{QuotationID: 2, SupplierID: 20, ItemID: 4, ProductID: 3, InitialPrice: 41},
	})
	b.ApplyPreviousPrices("2024-05", []models.PreviousItemRow{
		{ProductID: 1, SupplierID: 10, ApprovedPrice: 92},
		// supplier 20 has no previous data for product 1, and none for
		// product 3: its previous sums stay partial/absent.
	})
	return b.Result()
}

func findSupplier(t *testing.T, groups []models.RegionGroup, category string, supplierID int) models.SupplierPerformance {
	t.Helper()
	for _, rg := range groups {
		for _, cg := range rg.Categories {
			if cg.Category != category {
				continue
			}
			for _, sp := range cg.Suppliers {
				if sp.SupplierID == supplierID {
					return sp
				}
			}
		}
	}
	t.Fatalf("supplier %d not found in category %q", supplierID, category)
	return models.SupplierPerformance{}
}

func TestBuildGroupedOverviewTotals(t *testing.T) {
	groups := BuildGroupedOverview(builtMatrix(t))

	sp := findSupplier(t, groups, "Oils & Fats", 10)
	if sp.ProductCount != 2 {
		t.Errorf("product count = %d, want 2", sp.ProductCount)
	}
	// Base quantities apply uniformly: 95*10 + 28*4.
	if !almostEqual(sp.TotalCurrentValue, 95*10+28*4) {
		t.Errorf("current value = %v", sp.TotalCurrentValue)
	}
	if !almostEqual(sp.TotalBaseValue, 100*10+30*4) {
		t.Errorf("base value = %v", sp.TotalBaseValue)
	}
	if !almostEqual(sp.TotalInitialValue, sp.TotalCurrentValue) {
		t.Errorf("initial value = %v, want same as current (no negotiation)", sp.TotalInitialValue)
	}
}

func TestBuildGroupedOverviewPartialPreviousSums(t *testing.T) {
	groups := BuildGroupedOverview(builtMatrix(t))

	sp10 := findSupplier(t, groups, "Oils & Fats", 10)
	if !sp10.HasAnyPreviousData {
		t.Error("supplier 10 should carry previous data")
	}
	// Only product 1 contributes: 92*10. Product 2 has no previous entry.
	if !almostEqual(sp10.TotalPreviousValue, 92*10) {
		t.Errorf("previous value = %v, want partial sum %v", sp10.TotalPreviousValue, 92*10.0)
	}
	wantDiff := sp10.TotalCurrentValue - 920
	if !almostEqual(sp10.VarianceVsPrevious.Difference, wantDiff) {
		t.Errorf("variance vs previous = %+v", sp10.VarianceVsPrevious)
	}

	sp20 := findSupplier(t, groups, "Oils & Fats", 20)
	if sp20.HasAnyPreviousData {
		t.Error("supplier 20 has no previous items, flag must stay false")
	}
	if sp20.VarianceVsPrevious.Difference != 0 || sp20.VarianceVsPrevious.Percentage != 0 {
		t.Errorf("variance vs previous computed without data: %+v", sp20.VarianceVsPrevious)
	}
}

func TestBuildGroupedOverviewSorting(t *testing.T) {
	groups := BuildGroupedOverview(builtMatrix(t))
	if len(groups) != 1 {
		t.Fatalf("regions = %d, want 1", len(groups))
	}

	var categories []string
	for _, cg := range groups[0].Categories {
		categories = append(categories, cg.Category)
	}
	if len(categories) != 2 || categories[0] != "Oils & Fats" || categories[1] != "Staples" {
		t.Errorf("categories not alphabetical: %v", categories)
	}

	oils := groups[0].Categories[0]
	if len(oils.Suppliers) != 2 {
		t.Fatalf("suppliers in Oils & Fats = %d, want 2", len(oils.Suppliers))
	}
	if oils.Suppliers[0].SupplierCode != "SUP-001" || oils.Suppliers[1].SupplierCode != "SUP-002" {
		t.Errorf("suppliers not sorted by code: %s, %s", oils.Suppliers[0].SupplierCode, oils.Suppliers[1].SupplierCode)
	}
}

func TestVarianceAgainstZeroReference(t *testing.T) {
	v := varianceAgainst(500, 0)
	if v.Difference != 500 {
		t.Errorf("difference = %v, want 500", v.Difference)
	}
	if v.Percentage != 0 {
		t.Errorf("percentage = %v, want 0 on zero denominator", v.Percentage)
	}
}

func TestBuildGroupedOverviewEmptyMatrix(t *testing.T) {
	b := NewMatrixBuilder("2024-06", "North", nil, nil, nil)
	b.ApplyDemand(nil)
	groups := BuildGroupedOverview(b.Result())
	if len(groups) != 0 {
		t.Errorf("empty matrix produced %d region groups", len(groups))
	}
}
