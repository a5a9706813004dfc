package models

import (
	"database/sql"
	"time"
)

// Quotation lifecycle statuses. pending is the initial state set by import,
// approved and cancelled are terminal.
const (
	QuotationStatusPending     = "pending"
	QuotationStatusNegotiation = "negotiation"
	QuotationStatusApproved    = "approved"
	QuotationStatusCancelled   = "cancelled"
)

const PriceTypeApproved = "approved"

// Quotation represents the quotations table: one supplier submission for a
// period and region.
type Quotation struct {
	QuotationID  int       `json:"quotation_id" example:"1"`
	Reference    string    `json:"reference" example:"Q-AB12345"`
	Period       string    `json:"period" example:"2024-06"`
	Region       string    `json:"region" example:"North"`
	SupplierID   int       `json:"supplier_id" example:"1"`
	SupplierName string    `json:"supplier_name,omitempty" example:"Fresh Foods Ltd"`
	SupplierCode string    `json:"supplier_code,omitempty" example:"SUP-007"`
	Status       string    `json:"status" example:"pending"`
	ItemCount    int       `json:"item_count,omitempty" example:"42"`
	TotalValue   float64   `json:"total_value,omitempty" example:"15230.50"`
	CreatedBy    string    `json:"created_by" example:"admin"`
	CreatedAt    time.Time `json:"created_at" example:"2024-06-01T10:30:00Z"`
	UpdatedAt    time.Time `json:"updated_at" example:"2024-06-01T10:30:00Z"`
}

// QuoteItem represents the quote_items table: one priced product line inside
// a quotation. NegotiatedPrice and ApprovedPrice stay NULL until the
// lifecycle machine writes them; prices are only ever added or overwritten,
// never cleared.
type QuoteItem struct {
	ItemID          int             `json:"item_id" example:"1"`
	QuotationID     int             `json:"quotation_id" example:"1"`
	ProductID       int             `json:"product_id" example:"1"`
	ProductCode     string          `json:"product_code,omitempty" example:"PRD-0042"`
	ProductName     string          `json:"product_name,omitempty" example:"Sunflower Oil 5L"`
	Quantity        float64         `json:"quantity" example:"10"`
	InitialPrice    float64         `json:"initial_price" example:"90.00"`
	NegotiatedPrice sql.NullFloat64 `json:"negotiated_price" swaggertype:"number"`
	ApprovedPrice   sql.NullFloat64 `json:"approved_price" swaggertype:"number"`
	VatPercentage   float64         `json:"vat_percentage" example:"19"`
	Currency        string          `json:"currency" example:"EUR"`
	CreatedAt       time.Time       `json:"created_at" example:"2024-06-01T10:30:00Z"`
	UpdatedAt       time.Time       `json:"updated_at" example:"2024-06-01T10:30:00Z"`
}

// KitchenPeriodDemand represents the kitchen_period_demands table: a
// per-product quantity override for a period. When no active demand exists
// the engine falls back to Product.BaseQuantity.
type KitchenPeriodDemand struct {
	ID        int       `json:"id" example:"1"`
	KitchenID int       `json:"kitchen_id" example:"1"`
	ProductID int       `json:"product_id" example:"1"`
	Period    string    `json:"period" example:"2024-06"`
	Quantity  float64   `json:"quantity" example:"25"`
	Status    string    `json:"status" example:"active"`
	CreatedAt time.Time `json:"created_at" example:"2024-05-20T10:30:00Z"`
	UpdatedAt time.Time `json:"updated_at" example:"2024-05-20T10:30:00Z"`
}

// PriceHistoryRecord represents the price_history table. Append-only: one row
// per (product, supplier) written at approval time when a positive final
// price exists.
type PriceHistoryRecord struct {
	HistoryID  int       `json:"history_id" example:"1"`
	ProductID  int       `json:"product_id" example:"1"`
	SupplierID int       `json:"supplier_id" example:"1"`
	Period     string    `json:"period" example:"2024-06"`
	Region     string    `json:"region" example:"North"`
	Price      float64   `json:"price" example:"85.00"`
	PriceType  string    `json:"price_type" example:"approved"`
	CreatedAt  time.Time `json:"created_at" example:"2024-06-15T10:30:00Z"`
}

// BatchQuotationRequest carries the quotation ids for batch negotiate/approve.
type BatchQuotationRequest struct {
	QuotationIDs []int `json:"quotation_ids" binding:"required" example:"1,2,3"`
}

// ApproveQuotationRequest carries optional per-item price overrides for a
// single approval. Keys are item ids. Batch approval does not accept
// overrides.
type ApproveQuotationRequest struct {
	PriceOverrides map[int]float64 `json:"price_overrides,omitempty"`
}

// NegotiatedPriceRequest updates one item's negotiated price during the
// negotiation phase.
type NegotiatedPriceRequest struct {
	NegotiatedPrice float64 `json:"negotiated_price" binding:"required" example:"85.00"`
}

// BatchNegotiateResult reports a batch negotiate outcome.
type BatchNegotiateResult struct {
	UpdatedCount      int      `json:"updated_count" example:"3"`
	AffectedSuppliers []string `json:"affected_suppliers" example:"Fresh Foods Ltd,Metro Supply"`
}

// BatchApproveResult reports a batch approve outcome.
type BatchApproveResult struct {
	ApprovedCount     int      `json:"approved_count" example:"3"`
	ApprovedIDs       []int    `json:"approved_ids" example:"1,3,7"`
	AffectedSuppliers []string `json:"affected_suppliers" example:"Fresh Foods Ltd,Metro Supply"`
}

// ApproveResult reports a single approval outcome.
type ApproveResult struct {
	QuotationID        int     `json:"quotation_id" example:"1"`
	ApprovedItems      int     `json:"approved_items" example:"42"`
	TotalApprovedValue float64 `json:"total_approved_value" example:"15230.50"`
	HistoryRowsWritten int     `json:"history_rows_written" example:"42"`
}
