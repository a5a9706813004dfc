package repository

import (
	"fmt"
	"math/rand"
	"regexp"
	"sort"
	"strings"
	"time"
)

func GenerateRandomCode() string {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	letters := "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	prefix := string(letters[rng.Intn(len(letters))]) + string(letters[rng.Intn(len(letters))])
	number := rng.Intn(90000) + 10000

	return fmt.Sprintf("%s%d", prefix, number)
}

// GenerateQuotationReference builds a reference like "Q-AB12345" for an
// imported quotation.
func GenerateQuotationReference() string {
	return "Q-" + GenerateRandomCode()
}

// periodPattern matches the "YYYY-MM" period format. Keeping periods in this
// shape makes lexicographic comparison chronological, which the
// previous-period lookup relies on.
var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ValidatePeriod rejects malformed period identifiers.
func ValidatePeriod(period string) error {
	if !periodPattern.MatchString(period) {
		return NewEngineError(KindValidation, fmt.Sprintf("invalid period %q, expected YYYY-MM", period))
	}
	return nil
}

// ValidateRegion rejects empty or oversized region names.
func ValidateRegion(region string) error {
	region = strings.TrimSpace(region)
	if region == "" || len(region) > 100 {
		return NewEngineError(KindValidation, "region must be a non-empty string of at most 100 characters")
	}
	return nil
}

// NormalizeCategories trims, de-duplicates and sorts a category selection.
// An empty selection means "all categories".
func NormalizeCategories(categories []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, cat := range categories {
		cat = strings.TrimSpace(cat)
		if cat == "" || seen[cat] {
			continue
		}
		seen[cat] = true
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}
