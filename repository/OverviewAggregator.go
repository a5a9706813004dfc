package repository

import (
	"sort"

	"backend/models"
)

// varianceAgainst computes {difference, percentage} of current against a
// reference total. A zero reference yields a zero percentage instead of a
// division by zero.
func varianceAgainst(current, reference float64) models.Variance {
	v := models.Variance{Difference: current - reference}
	if reference != 0 {
		v.Percentage = v.Difference / reference * 100
	}
	return v
}

type overviewAccumulator struct {
	performance models.SupplierPerformance
}

// BuildGroupedOverview rolls the populated grid up into the
// Region -> Category -> Supplier performance summary. Monetary totals use
// the product base quantity uniformly, not the demand-resolved quantity the
// per-unit pricing uses, so groups stay comparable across periods with
// different demand. Previous-period totals are partial sums: they only
// accumulate items with a supplier-specific previous price, flagged through
// HasAnyPreviousData.
func BuildGroupedOverview(matrix *models.ComparisonMatrix) []models.RegionGroup {
	supplierInfo := make(map[int]models.ComparisonSupplier, len(matrix.Suppliers))
	for _, s := range matrix.Suppliers {
		supplierInfo[s.SupplierID] = s
	}

	// region -> category -> supplier id -> accumulator
	groups := make(map[string]map[string]map[int]*overviewAccumulator)

	for i := range matrix.Products {
		product := &matrix.Products[i]
		for supplierID, quote := range product.Quotes {
			if !quote.HasPrice {
				continue
			}

			region := matrix.Region
			if groups[region] == nil {
				groups[region] = make(map[string]map[int]*overviewAccumulator)
			}
			if groups[region][product.Category] == nil {
				groups[region][product.Category] = make(map[int]*overviewAccumulator)
			}
			acc := groups[region][product.Category][supplierID]
			if acc == nil {
				info := supplierInfo[supplierID]
				acc = &overviewAccumulator{performance: models.SupplierPerformance{
					SupplierID:   supplierID,
					SupplierCode: info.Code,
					SupplierName: info.Name,
				}}
				groups[region][product.Category][supplierID] = acc
			}

			perf := &acc.performance
			perf.ProductCount++
			perf.TotalBaseValue += product.BasePrice * product.BaseQuantity
			perf.TotalInitialValue += quote.InitialPrice * product.BaseQuantity
			perf.TotalCurrentValue += quote.PricePerUnit * product.BaseQuantity
			if quote.HasPreviousPrice {
				perf.TotalPreviousValue += quote.PreviousPrice * product.BaseQuantity
				perf.HasAnyPreviousData = true
			}
		}
	}

	regions := make([]string, 0, len(groups))
	for region := range groups {
		regions = append(regions, region)
	}
	sort.Strings(regions)

	out := make([]models.RegionGroup, 0, len(groups))
	for _, region := range regions {
		categories := make([]string, 0, len(groups[region]))
		for category := range groups[region] {
			categories = append(categories, category)
		}
		sort.Strings(categories)

		regionGroup := models.RegionGroup{Region: region}
		for _, category := range categories {
			suppliers := make([]models.SupplierPerformance, 0, len(groups[region][category]))
			for _, acc := range groups[region][category] {
				perf := acc.performance
				perf.VarianceVsBase = varianceAgainst(perf.TotalCurrentValue, perf.TotalBaseValue)
				perf.VarianceVsInitial = varianceAgainst(perf.TotalCurrentValue, perf.TotalInitialValue)
				if perf.HasAnyPreviousData {
					perf.VarianceVsPrevious = varianceAgainst(perf.TotalCurrentValue, perf.TotalPreviousValue)
				}
				suppliers = append(suppliers, perf)
			}
			sort.Slice(suppliers, func(i, j int) bool {
				return suppliers[i].SupplierCode < suppliers[j].SupplierCode
			})
			regionGroup.Categories = append(regionGroup.Categories, models.CategoryGroup{
				Category:  category,
				Suppliers: suppliers,
			})
		}
		out = append(out, regionGroup)
	}
	return out
}
