package repository

import (
	"database/sql"
	"testing"

	"backend/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		wantErr bool
	}{
		{"pending to negotiation", models.QuotationStatusPending, models.QuotationStatusNegotiation, false},
		{"negotiation to negotiation is idempotent", models.QuotationStatusNegotiation, models.QuotationStatusNegotiation, false},
		{"pending to approved", models.QuotationStatusPending, models.QuotationStatusApproved, false},
		{"negotiation to approved", models.QuotationStatusNegotiation, models.QuotationStatusApproved, false},
		{"pending to cancelled", models.QuotationStatusPending, models.QuotationStatusCancelled, false},
		{"negotiation to cancelled", models.QuotationStatusNegotiation, models.QuotationStatusCancelled, false},
		{"approved is terminal", models.QuotationStatusApproved, models.QuotationStatusNegotiation, true},
		{"approved rejects re-approval", models.QuotationStatusApproved, models.QuotationStatusApproved, true},
		{"cancelled is terminal", models.QuotationStatusCancelled, models.QuotationStatusNegotiation, true},
		{"cancelled rejects approval", models.QuotationStatusCancelled, models.QuotationStatusApproved, true},
		{"unknown source status", "draft", models.QuotationStatusNegotiation, true},
		{"unknown target status", models.QuotationStatusPending, "archived", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanTransition(tt.from, tt.to)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CanTransition(%q, %q) error = %v, wantErr %v", tt.from, tt.to, err, tt.wantErr)
			}
			if err != nil && !IsKind(err, KindInvalidStateTransition) {
				t.Errorf("error kind = %q, want invalid_state_transition", KindOf(err))
			}
		})
	}
}

func TestEffectiveItemPrice(t *testing.T) {
	tests := []struct {
		name string
		item models.QuoteItem
		want float64
	}{
		{
			"approved wins",
			models.QuoteItem{
				InitialPrice:    90,
				NegotiatedPrice: sql.NullFloat64{Float64: 85, Valid: true},
				ApprovedPrice:   sql.NullFloat64{Float64: 82, Valid: true},
			},
			82,
		},
		{
			"negotiated beats initial",
			models.QuoteItem{
				InitialPrice:    90,
				NegotiatedPrice: sql.NullFloat64{Float64: 85, Valid: true},
			},
			85,
		},
		{
			"initial as fallback",
			models.QuoteItem{InitialPrice: 90},
			90,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EffectiveItemPrice(tt.item); got != tt.want {
				t.Errorf("EffectiveItemPrice() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFinalApprovalPrice(t *testing.T) {
	override := 79.5
	zeroOverride := 0.0

	tests := []struct {
		name       string
		initial    float64
		negotiated sql.NullFloat64
		override   *float64
		wantPrice  float64
		wantOK     bool
	}{
		{"override wins", 90, sql.NullFloat64{Float64: 85, Valid: true}, &override, 79.5, true},
		{"negotiated without override", 90, sql.NullFloat64{Float64: 85, Valid: true}, nil, 85, true},
		{"initial as last resort", 90, sql.NullFloat64{}, nil, 90, true},
		{"zero override leaves item unpriced", 90, sql.NullFloat64{Float64: 85, Valid: true}, &zeroOverride, 0, false},
		{"zero initial leaves item unpriced", 0, sql.NullFloat64{}, nil, 0, false},
		{"negative negotiated leaves item unpriced", 90, sql.NullFloat64{Float64: -5, Valid: true}, nil, -5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FinalApprovalPrice(tt.initial, tt.negotiated, tt.override)
			if got != tt.wantPrice || ok != tt.wantOK {
				t.Errorf("FinalApprovalPrice() = (%v, %v), want (%v, %v)", got, ok, tt.wantPrice, tt.wantOK)
			}
		})
	}
}

func TestEngineErrorKinds(t *testing.T) {
	err := NewEngineError(KindEmptyResultSet, "no eligible quotations")
	if !IsKind(err, KindEmptyResultSet) {
		t.Error("kind lost on plain engine error")
	}

	wrapped := WrapEngineError(KindNotFound, "quotation 7", sql.ErrNoRows)
	if !IsKind(wrapped, KindNotFound) {
		t.Error("kind lost on wrapped engine error")
	}
	if KindOf(sql.ErrNoRows) != "" {
		t.Error("plain errors must not report a kind")
	}
}
