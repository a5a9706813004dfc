package repository

import (
	"reflect"
	"strings"
	"testing"
)

func TestValidatePeriod(t *testing.T) {
	valid := []string{"2024-01", "2024-06", "2024-12", "1999-09"}
	for _, p := range valid {
		if err := ValidatePeriod(p); err != nil {
			t.Errorf("ValidatePeriod(%q) = %v, want nil", p, err)
		}
	}

	invalid := []string{"", "2024", "2024-13", "2024-00", "2024-6", "24-06", "2024/06", "2024-06-01", "june 2024"}
	for _, p := range invalid {
		err := ValidatePeriod(p)
		if err == nil {
			t.Errorf("ValidatePeriod(%q) accepted a malformed period", p)
			continue
		}
		if !IsKind(err, KindValidation) {
			t.Errorf("ValidatePeriod(%q) kind = %q, want validation", p, KindOf(err))
		}
	}
}

func TestValidateRegion(t *testing.T) {
	if err := ValidateRegion("North"); err != nil {
		t.Errorf("ValidateRegion(North) = %v", err)
	}
	if err := ValidateRegion(""); err == nil {
		t.Error("empty region accepted")
	}
	if err := ValidateRegion("   "); err == nil {
		t.Error("blank region accepted")
	}
	if err := ValidateRegion(strings.Repeat("x", 101)); err == nil {
		t.Error("oversized region accepted")
	}
}

func TestNormalizeCategories(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"trim and sort", []string{" Staples", "Oils & Fats "}, []string{"Oils & Fats", "Staples"}},
		{"dedupe", []string{"Staples", "Staples", " Staples "}, []string{"Staples"}},
		{"drop empties", []string{"", "  ", "Canned"}, []string{"Canned"}},
		{"empty selection means all", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeCategories(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeCategories(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestGenerateQuotationReference(t *testing.T) {
	ref := GenerateQuotationReference()
	if !strings.HasPrefix(ref, "Q-") {
		t.Errorf("reference %q missing Q- prefix", ref)
	}
	if len(ref) != 9 {
		t.Errorf("reference %q length = %d, want 9", ref, len(ref))
	}
}
