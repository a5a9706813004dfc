package repository

import (
	"database/sql"
	"math"
	"testing"

	"backend/models"
)

func testProducts() []models.Product {
	return []models.Product{
		{ProductID: 1, Code: "PRD-0001", Name: "Sunflower Oil 5L", Unit: "pcs", Category: "Oils & Fats", BaseQuantity: 10, BasePrice: 100},
		{ProductID: 2, Code: "PRD-0002", Name: "Basmati Rice 25kg", Unit: "bag", Category: "Staples", BaseQuantity: 5, BasePrice: 40},
		{ProductID: 3, Code: "PRD-0003", Name: "Tomato Paste 4kg", Unit: "tin", Category: "Canned", BaseQuantity: 0, BasePrice: 12},
	}
}

func testSuppliers() []models.ComparisonSupplier {
	return []models.ComparisonSupplier{
		{SupplierID: 10, Code: "SUP-001", Name: "Fresh Foods Ltd", Status: "active"},
		{SupplierID: 20, Code: "SUP-002", Name: "Metro Wholesale", Status: "active"},
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestResolveDemandQuantities(t *testing.T) {
	products := testProducts()

	tests := []struct {
		name       string
		demands    map[int]float64
		productID  int
		wantQty    float64
		wantSource string
	}{
		{"kitchen demand wins", map[int]float64{1: 25}, 1, 25, DemandSourceKitchen},
		{"missing demand falls back to base", map[int]float64{1: 25}, 2, 5, DemandSourceBase},
		{"zero demand falls back to base", map[int]float64{2: 0}, 2, 5, DemandSourceBase},
		{"zero base floors to one", nil, 3, 1, DemandSourceBase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved := ResolveDemandQuantities(products, tt.demands)
			var got models.ResolvedDemand
			for _, d := range resolved {
				if d.ProductID == tt.productID {
					got = d
				}
			}
			if got.ProductID != tt.productID {
				t.Fatalf("product %d missing from resolution", tt.productID)
			}
			if got.Quantity != tt.wantQty {
				t.Errorf("quantity = %v, want %v", got.Quantity, tt.wantQty)
			}
			if got.Source != tt.wantSource {
				t.Errorf("source = %q, want %q", got.Source, tt.wantSource)
			}
		})
	}
}

func TestResolveDemandQuantitiesNeverZero(t *testing.T) {
	resolved := ResolveDemandQuantities(testProducts(), map[int]float64{1: -3, 3: 0})
	for _, d := range resolved {
		if d.Quantity <= 0 {
			t.Errorf("product %d resolved to non-positive quantity %v", d.ProductID, d.Quantity)
		}
	}
}

func TestNewMatrixBuilderSkeleton(t *testing.T) {
	b := NewMatrixBuilder("2024-06", "North", []string{"Oils & Fats"}, testProducts(), testSuppliers())
	m := b.Result()

	if len(m.Products) != 3 {
		t.Fatalf("products = %d, want 3", len(m.Products))
	}
	for _, p := range m.Products {
		if p.Quotes == nil {
			t.Errorf("product %d has nil quote map", p.ProductID)
		}
		if len(p.Quotes) != 0 {
			t.Errorf("product %d skeleton already has quotes", p.ProductID)
		}
	}
	for _, s := range m.Suppliers {
		if s.QuotedProducts != 0 || s.BestPriceCount != 0 {
			t.Errorf("supplier %d counters not zeroed: %+v", s.SupplierID, s)
		}
	}
}

func TestNewMatrixBuilderEmptyProducts(t *testing.T) {
	b := NewMatrixBuilder("2024-06", "North", nil, nil, testSuppliers())
	m := b.Result()
	if m.Products == nil || len(m.Products) != 0 {
		t.Errorf("empty selection should give an empty, non-nil product list, got %#v", m.Products)
	}
}

func TestPopulatePrices(t *testing.T) {
	b := NewMatrixBuilder("2024-06", "North", nil, testProducts(), testSuppliers())
	b.ApplyDemand(ResolveDemandQuantities(testProducts(), map[int]float64{1: 25}))

	rows := []models.QuoteRow{
		{QuotationID: 1, QuotationStatus: "negotiation", SupplierID: 10, ItemID: 100, ProductID: 1,
			InitialPrice: 90, NegotiatedPrice: sql.NullFloat64{Float64: 85, Valid: true}, VatPercentage: 19, Currency: "EUR"},
		{QuotationID: 2, QuotationStatus: "pending", SupplierID: 20, ItemID: 200, ProductID: 1,
			InitialPrice: 95, VatPercentage: 19, Currency: "EUR"},
		// dangling product: must be skipped, not crash
		{QuotationID: 2, QuotationStatus: "pending", SupplierID: 20, ItemID: 201, ProductID: 999,
			InitialPrice: 5, Currency: "EUR"},
	}
	b.PopulatePrices(rows)
	m := b.Result()

	p := m.Products[0]
	q10, ok := p.Quotes[10]
	if !ok {
		t.Fatal("supplier 10 quote missing")
	}
	if !q10.HasPrice || !almostEqual(q10.PricePerUnit, 85) {
		t.Errorf("supplier 10 price = %v (hasPrice=%v), want 85 from negotiated", q10.PricePerUnit, q10.HasPrice)
	}
	if !almostEqual(q10.TotalPrice, 85*25) {
		t.Errorf("total = %v, want %v", q10.TotalPrice, 85*25.0)
	}
	if !almostEqual(q10.VatAmount, 85*25*0.19) {
		t.Errorf("vat = %v, want %v", q10.VatAmount, 85*25*0.19)
	}
	if !almostEqual(q10.TotalWithVAT, q10.TotalPrice+q10.VatAmount) {
		t.Errorf("total with VAT = %v", q10.TotalWithVAT)
	}

	q20 := p.Quotes[20]
	if !almostEqual(q20.PricePerUnit, 95) {
		t.Errorf("supplier 20 price = %v, want 95 from initial", q20.PricePerUnit)
	}

	for _, s := range m.Suppliers {
		switch s.SupplierID {
		case 10, 20:
			if s.QuotedProducts != 1 {
				t.Errorf("supplier %d quoted products = %d, want 1", s.SupplierID, s.QuotedProducts)
			}
		}
	}
}

func TestPopulatePricesApprovedWins(t *testing.T) {
	b := NewMatrixBuilder("2024-06", "North", nil, testProducts(), testSuppliers())
	b.ApplyDemand(nil)

	b.PopulatePrices([]models.QuoteRow{
		{QuotationID: 1, SupplierID: 10, ItemID: 100, ProductID: 1, InitialPrice: 90,
			NegotiatedPrice: sql.NullFloat64{Float64: 85, Valid: true},
			ApprovedPrice:   sql.NullFloat64{Float64: 82, Valid: true}},
	})

	q := b.Result().Products[0].Quotes[10]
	if !almostEqual(q.PricePerUnit, 82) {
		t.Errorf("price = %v, want approved 82", q.PricePerUnit)
	}
}

func TestPopulatePricesNonPositiveEffective(t *testing.T) {
	b := NewMatrixBuilder("2024-06", "North", nil, testProducts(), testSuppliers())
	b.ApplyDemand(nil)

	b.PopulatePrices([]models.QuoteRow{
		{QuotationID: 1, SupplierID: 10, ItemID: 100, ProductID: 1, InitialPrice: 0},
	})

	m := b.Result()
	q := m.Products[0].Quotes[10]
	if q.HasPrice {
		t.Error("zero effective price must not count as priced")
	}
	if m.Suppliers[0].QuotedProducts != 0 {
		t.Errorf("quoted products = %d, want 0", m.Suppliers[0].QuotedProducts)
	}
}

func TestSelectBestPrices(t *testing.T) {
	b := NewMatrixBuilder("2024-06", "North", nil, testProducts(), testSuppliers())
	b.ApplyDemand(nil)
	b.PopulatePrices([]models.QuoteRow{
		{QuotationID: 1, SupplierID: 10, ItemID: 100, ProductID: 1, InitialPrice: 90},
		{QuotationID: 2, SupplierID: 20, ItemID: 200, ProductID: 1, InitialPrice: 95},
	})
	b.SelectBestPrices()
	m := b.Result()

	p := m.Products[0]
	if !p.HasBestPrice || p.BestSupplierID != 10 || !almostEqual(p.BestPrice, 90) {
		t.Errorf("best = supplier %d at %v (has=%v), want supplier 10 at 90", p.BestSupplierID, p.BestPrice, p.HasBestPrice)
	}
	if !p.Quotes[10].HasBestPrice {
		t.Error("winning quote not flagged")
	}
	if p.Quotes[20].HasBestPrice {
		t.Error("losing quote flagged as best")
	}
	if m.Suppliers[0].BestPriceCount != 1 {
		t.Errorf("supplier 10 best price count = %d, want 1", m.Suppliers[0].BestPriceCount)
	}
}

func TestSelectBestPricesTieFirstColumnWins(t *testing.T) {
	b := NewMatrixBuilder("2024-06", "North", nil, testProducts(), testSuppliers())
	b.ApplyDemand(nil)
	b.PopulatePrices([]models.QuoteRow{
		{QuotationID: 1, SupplierID: 10, ItemID: 100, ProductID: 1, InitialPrice: 90},
		{QuotationID: 2, SupplierID: 20, ItemID: 200, ProductID: 1, InitialPrice: 90},
	})
	b.SelectBestPrices()

	p := b.Result().Products[0]
	if p.BestSupplierID != 10 {
		t.Errorf("tie went to supplier %d, want first column supplier 10", p.BestSupplierID)
	}
}

func TestSelectBestPricesNoValidPrice(t *testing.T) {
	b := NewMatrixBuilder("2024-06", "North", nil, testProducts(), testSuppliers())
	b.ApplyDemand(nil)
	b.SelectBestPrices()

	for _, p := range b.Result().Products {
		if p.HasBestPrice || p.BestSupplierID != 0 || p.BestPrice != 0 {
			t.Errorf("product %d has best price markers without any quote", p.ProductID)
		}
	}
}

func TestApplyPreviousPrices(t *testing.T) {
	b := NewMatrixBuilder("2024-06", "North", nil, testProducts(), testSuppliers())
	b.ApplyDemand(nil)
	b.PopulatePrices([]models.QuoteRow{
		{QuotationID: 1, SupplierID: 10, ItemID: 100, ProductID: 1, InitialPrice: 110},
		{QuotationID: 2, SupplierID: 20, ItemID: 200, ProductID: 1, InitialPrice: 95},
	})

	// Descending updated_at order: the 100 row is the most recent for
	// (product 1, supplier 10) and must win over the stale 90 row.
	b.ApplyPreviousPrices("2024-05", []models.PreviousItemRow{
		{ProductID: 1, SupplierID: 10, ApprovedPrice: 100},
		{ProductID: 1, SupplierID: 10, ApprovedPrice: 90},
		{ProductID: 1, SupplierID: 20, ApprovedPrice: 96},
	})

	m := b.Result()
	if m.PreviousPeriod != "2024-05" {
		t.Errorf("previous period = %q", m.PreviousPeriod)
	}

	p := m.Products[0]
	if p.PreviousApprovedPrice == nil {
		t.Fatal("previous approved price missing")
	}
	// Best approved of the previous period across suppliers: min(100, 90, 96).
	if !almostEqual(p.PreviousApprovedPrice.Price, 90) || p.PreviousApprovedPrice.Period != "2024-05" {
		t.Errorf("previous approved = %+v, want 90 @ 2024-05", p.PreviousApprovedPrice)
	}

	q10 := p.Quotes[10]
	if !q10.HasPreviousPrice || !almostEqual(q10.PreviousPrice, 100) {
		t.Errorf("supplier 10 previous = %v (has=%v), want most recent 100", q10.PreviousPrice, q10.HasPreviousPrice)
	}
	if !almostEqual(q10.VariancePercentage, 10) {
		t.Errorf("variance = %v, want +10%%", q10.VariancePercentage)
	}
	if q10.Trend != TrendUp {
		t.Errorf("trend = %q, want up", q10.Trend)
	}

	q20 := p.Quotes[20]
	if !almostEqual(q20.VariancePercentage, (95.0-96.0)/96.0*100) {
		t.Errorf("supplier 20 variance = %v", q20.VariancePercentage)
	}
	if q20.Trend != TrendDown {
		t.Errorf("supplier 20 trend = %q, want down", q20.Trend)
	}
}

func TestApplyPreviousPricesNoPreviousPeriod(t *testing.T) {
	b := NewMatrixBuilder("2024-06", "North", nil, testProducts(), testSuppliers())
	b.ApplyDemand(nil)
	b.ApplyPreviousPrices("", nil)

	m := b.Result()
	if m.PreviousPeriod != "" {
		t.Errorf("previous period set to %q without data", m.PreviousPeriod)
	}
	for _, p := range m.Products {
		if p.PreviousApprovedPrice != nil {
			t.Errorf("product %d got previous price without a previous period", p.ProductID)
		}
	}
}

func TestTrendOf(t *testing.T) {
	tests := []struct {
		variance float64
		want     string
	}{
		{1.2, TrendUp},
		{0.51, TrendUp},
		{0.5, TrendStable},
		{0, TrendStable},
		{-0.5, TrendStable},
		{-0.51, TrendDown},
		{-3.4, TrendDown},
	}
	for _, tt := range tests {
		if got := TrendOf(tt.variance); got != tt.want {
			t.Errorf("TrendOf(%v) = %q, want %q", tt.variance, got, tt.want)
		}
	}
}
