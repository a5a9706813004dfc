package models

import "database/sql"

// ComparisonMatrix is the derived product x supplier price grid for one
// period/region/category selection. It is rebuilt on every query and never
// persisted.
type ComparisonMatrix struct {
	Period             string               `json:"period" example:"2024-06"`
	Region             string               `json:"region" example:"North"`
	Categories         []string             `json:"categories" example:"Oils & Fats"`
	Products           []ComparisonProduct  `json:"products"`
	Suppliers          []ComparisonSupplier `json:"suppliers"`
	AvailableSuppliers []ComparisonSupplier `json:"available_suppliers"`
	PreviousPeriod     string               `json:"previous_period,omitempty" example:"2024-05"`
	GroupedOverview    []RegionGroup        `json:"grouped_overview"`
}

// ComparisonProduct is one grid row. Quotes is keyed by supplier id and only
// holds fully formed entries: a supplier either has a quote here or no key at
// all.
type ComparisonProduct struct {
	ProductID             int                     `json:"product_id" example:"1"`
	Code                  string                  `json:"code" example:"PRD-0042"`
	Name                  string                  `json:"name" example:"Sunflower Oil 5L"`
	Unit                  string                  `json:"unit" example:"pcs"`
	Category              string                  `json:"category" example:"Oils & Fats"`
	BaseQuantity          float64                 `json:"base_quantity" example:"10"`
	BasePrice             float64                 `json:"base_price" example:"100.00"`
	ResolvedQuantity      float64                 `json:"resolved_quantity" example:"25"`
	QuantitySource        string                  `json:"quantity_source" example:"kitchen_demand"`
	Quotes                map[int]*SupplierQuote  `json:"quotes"`
	BestSupplierID        int                     `json:"best_supplier_id,omitempty" example:"1"`
	BestPrice             float64                 `json:"best_price,omitempty" example:"85.00"`
	HasBestPrice          bool                    `json:"has_best_price" example:"true"`
	PreviousApprovedPrice *PreviousApprovedPrice  `json:"previous_approved_price,omitempty"`
}

// PreviousApprovedPrice tags the best approved price of the previous period
// with the period it came from.
type PreviousApprovedPrice struct {
	Price  float64 `json:"price" example:"88.00"`
	Period string  `json:"period" example:"2024-05"`
}

// SupplierQuote is one grid cell: one supplier's price for one product.
type SupplierQuote struct {
	QuotationID        int     `json:"quotation_id" example:"1"`
	ItemID             int     `json:"item_id" example:"1"`
	SupplierID         int     `json:"supplier_id" example:"1"`
	QuotationStatus    string  `json:"quotation_status" example:"negotiation"`
	InitialPrice       float64 `json:"initial_price" example:"90.00"`
	NegotiatedPrice    float64 `json:"negotiated_price,omitempty" example:"85.00"`
	HasNegotiated      bool    `json:"has_negotiated" example:"true"`
	ApprovedPrice      float64 `json:"approved_price,omitempty" example:"0"`
	HasApproved        bool    `json:"has_approved" example:"false"`
	PricePerUnit       float64 `json:"price_per_unit" example:"85.00"`
	TotalPrice         float64 `json:"total_price" example:"2125.00"`
	VatPercentage      float64 `json:"vat_percentage" example:"19"`
	VatAmount          float64 `json:"vat_amount" example:"403.75"`
	TotalWithVAT       float64 `json:"total_with_vat" example:"2528.75"`
	Currency           string  `json:"currency" example:"EUR"`
	HasPrice           bool    `json:"has_price" example:"true"`
	HasBestPrice       bool    `json:"has_best_price" example:"true"`
	PreviousPrice      float64 `json:"previous_price,omitempty" example:"80.00"`
	HasPreviousPrice   bool    `json:"has_previous_price" example:"true"`
	VariancePercentage float64 `json:"variance_percentage,omitempty" example:"6.25"`
	Trend              string  `json:"trend,omitempty" example:"up"`
}

// ComparisonSupplier is one grid column with coverage stats for the period.
type ComparisonSupplier struct {
	SupplierID      int    `json:"supplier_id" example:"1"`
	Code            string `json:"code" example:"SUP-007"`
	Name            string `json:"name" example:"Fresh Foods Ltd"`
	Status          string `json:"status" example:"active"`
	QuotationID     int    `json:"quotation_id" example:"1"`
	QuotationStatus string `json:"quotation_status" example:"negotiation"`
	QuotedProducts  int    `json:"quoted_products" example:"38"`
	BestPriceCount  int    `json:"best_price_count" example:"12"`
}

// Variance is an absolute and relative difference against a reference value.
type Variance struct {
	Difference float64 `json:"difference" example:"-230.50"`
	Percentage float64 `json:"percentage" example:"-2.1"`
}

// SupplierPerformance is one leaf of the grouped overview: a supplier's
// totals inside one region/category group. Previous-period sums can be
// partial; HasAnyPreviousData says whether at least one item contributed.
type SupplierPerformance struct {
	SupplierID         int      `json:"supplier_id" example:"1"`
	SupplierCode       string   `json:"supplier_code" example:"SUP-007"`
	SupplierName       string   `json:"supplier_name" example:"Fresh Foods Ltd"`
	ProductCount       int      `json:"product_count" example:"14"`
	TotalBaseValue     float64  `json:"total_base_value" example:"14000.00"`
	TotalInitialValue  float64  `json:"total_initial_value" example:"13600.00"`
	TotalCurrentValue  float64  `json:"total_current_value" example:"13100.00"`
	TotalPreviousValue float64  `json:"total_previous_value" example:"12900.00"`
	HasAnyPreviousData bool     `json:"has_any_previous_data" example:"true"`
	VarianceVsBase     Variance `json:"variance_vs_base"`
	VarianceVsInitial  Variance `json:"variance_vs_initial"`
	VarianceVsPrevious Variance `json:"variance_vs_previous"`
}

// CategoryGroup groups supplier performance rows under one category.
type CategoryGroup struct {
	Category  string                `json:"category" example:"Oils & Fats"`
	Suppliers []SupplierPerformance `json:"suppliers"`
}

// RegionGroup groups categories under one region.
type RegionGroup struct {
	Region     string          `json:"region" example:"North"`
	Categories []CategoryGroup `json:"categories"`
}

// QuoteRow is one joined row of (quotation, supplier, quote item, product)
// as fetched for matrix population.
type QuoteRow struct {
	QuotationID     int
	QuotationStatus string
	Region          string
	SupplierID      int
	ItemID          int
	ProductID       int
	Quantity        float64
	InitialPrice    float64
	NegotiatedPrice sql.NullFloat64
	ApprovedPrice   sql.NullFloat64
	VatPercentage   float64
	Currency        string
}

// PreviousItemRow is one approved quote item of the previous period, fetched
// in descending updated_at order so the first row seen per (product,
// supplier) is the most recent one.
type PreviousItemRow struct {
	ProductID     int
	SupplierID    int
	ApprovedPrice float64
}

// ResolvedDemand is the outcome of demand resolution for one product.
type ResolvedDemand struct {
	ProductID int     `json:"product_id" example:"1"`
	Quantity  float64 `json:"quantity" example:"25"`
	Source    string  `json:"source" example:"kitchen_demand"`
}
