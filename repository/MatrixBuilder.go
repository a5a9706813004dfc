package repository

import (
	"log"

	"backend/models"
)

// Demand resolution sources.
const (
	DemandSourceKitchen = "kitchen_demand"
	DemandSourceBase    = "base_quantity"
)

// Variance trend labels. A variance inside the +-0.5% band is "stable".
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"

	trendThreshold = 0.5
)

// ResolveDemandQuantities resolves the quantity to use per product for a
// period. demands maps product id to the active kitchen demand quantity for
// the period; products without an entry fall back to their base quantity.
// The resolved quantity is never zero: it floors to 1.
func ResolveDemandQuantities(products []models.Product, demands map[int]float64) []models.ResolvedDemand {
	resolved := make([]models.ResolvedDemand, 0, len(products))
	for _, p := range products {
		d := models.ResolvedDemand{ProductID: p.ProductID}
		if qty, ok := demands[p.ProductID]; ok && qty > 0 {
			d.Quantity = qty
			d.Source = DemandSourceKitchen
		} else {
			d.Quantity = p.BaseQuantity
			d.Source = DemandSourceBase
		}
		if d.Quantity <= 0 {
			d.Quantity = 1
		}
		resolved = append(resolved, d)
	}
	return resolved
}

// MatrixBuilder constructs a ComparisonMatrix in two phases: the constructor
// allocates a fully indexed skeleton where every product already owns an
// empty quote map, then the populate methods fill it in. Callers read the
// matrix only through Result, after every phase they need has run, so no
// read path ever sees a half-initialized entry. The builder is not safe for
// concurrent use; the fetches feeding it run concurrently, the merge does
// not.
type MatrixBuilder struct {
	matrix        *models.ComparisonMatrix
	productIndex  map[int]int
	supplierIndex map[int]int
}

// NewMatrixBuilder allocates the skeleton. products are the active products
// of the selected categories, suppliers the ones with any quotation in the
// period/region. Zero products is fine: the result is an empty matrix, not
// an error.
func NewMatrixBuilder(period, region string, categories []string, products []models.Product, suppliers []models.ComparisonSupplier) *MatrixBuilder {
	b := &MatrixBuilder{
		matrix: &models.ComparisonMatrix{
			Period:          period,
			Region:          region,
			Categories:      categories,
			Products:        make([]models.ComparisonProduct, 0, len(products)),
			Suppliers:       make([]models.ComparisonSupplier, 0, len(suppliers)),
			GroupedOverview: []models.RegionGroup{},
		},
		productIndex:  make(map[int]int, len(products)),
		supplierIndex: make(map[int]int, len(suppliers)),
	}

	for _, p := range products {
		b.productIndex[p.ProductID] = len(b.matrix.Products)
		b.matrix.Products = append(b.matrix.Products, models.ComparisonProduct{
			ProductID:    p.ProductID,
			Code:         p.Code,
			Name:         p.Name,
			Unit:         p.Unit,
			Category:     p.Category,
			BaseQuantity: p.BaseQuantity,
			BasePrice:    p.BasePrice,
			Quotes:       make(map[int]*models.SupplierQuote),
		})
	}

	for _, s := range suppliers {
		if _, ok := b.supplierIndex[s.SupplierID]; ok {
			continue
		}
		s.QuotedProducts = 0
		s.BestPriceCount = 0
		b.supplierIndex[s.SupplierID] = len(b.matrix.Suppliers)
		b.matrix.Suppliers = append(b.matrix.Suppliers, s)
	}

	b.matrix.AvailableSuppliers = b.matrix.Suppliers

	return b
}

// ApplyDemand stores the resolved quantity per product. Products missing
// from resolved keep their base quantity (floored to 1) so pricing never
// multiplies by zero.
func (b *MatrixBuilder) ApplyDemand(resolved []models.ResolvedDemand) {
	byProduct := make(map[int]models.ResolvedDemand, len(resolved))
	for _, d := range resolved {
		byProduct[d.ProductID] = d
	}
	for i := range b.matrix.Products {
		p := &b.matrix.Products[i]
		if d, ok := byProduct[p.ProductID]; ok {
			p.ResolvedQuantity = d.Quantity
			p.QuantitySource = d.Source
			continue
		}
		p.ResolvedQuantity = p.BaseQuantity
		p.QuantitySource = DemandSourceBase
		if p.ResolvedQuantity <= 0 {
			p.ResolvedQuantity = 1
		}
	}
}

// effectiveQuotePrice applies the price precedence: approved, then
// negotiated, then initial.
func effectiveQuotePrice(row models.QuoteRow) float64 {
	if row.ApprovedPrice.Valid {
		return row.ApprovedPrice.Float64
	}
	if row.NegotiatedPrice.Valid {
		return row.NegotiatedPrice.Float64
	}
	return row.InitialPrice
}

// PopulatePrices merges the joined quotation rows into the grid. Rows whose
// product or supplier is not part of the skeleton are logged and skipped;
// one dangling row must not abort the whole build.
func (b *MatrixBuilder) PopulatePrices(rows []models.QuoteRow) {
	for _, row := range rows {
		pi, ok := b.productIndex[row.ProductID]
		if !ok {
			log.Printf("comparison matrix: skipping quote item %d, unknown product %d", row.ItemID, row.ProductID)
			continue
		}
		si, ok := b.supplierIndex[row.SupplierID]
		if !ok {
			log.Printf("comparison matrix: skipping quote item %d, unknown supplier %d", row.ItemID, row.SupplierID)
			continue
		}

		product := &b.matrix.Products[pi]

		quote := &models.SupplierQuote{
			QuotationID:     row.QuotationID,
			ItemID:          row.ItemID,
			SupplierID:      row.SupplierID,
			QuotationStatus: row.QuotationStatus,
			InitialPrice:    row.InitialPrice,
			VatPercentage:   row.VatPercentage,
			Currency:        row.Currency,
		}
		if row.NegotiatedPrice.Valid {
			quote.NegotiatedPrice = row.NegotiatedPrice.Float64
			quote.HasNegotiated = true
		}
		if row.ApprovedPrice.Valid {
			quote.ApprovedPrice = row.ApprovedPrice.Float64
			quote.HasApproved = true
		}

		effective := effectiveQuotePrice(row)
		if effective > 0 {
			quote.PricePerUnit = effective
			quote.TotalPrice = effective * product.ResolvedQuantity
			quote.VatAmount = quote.TotalPrice * row.VatPercentage / 100
			quote.TotalWithVAT = quote.TotalPrice + quote.VatAmount
			quote.HasPrice = true
			b.matrix.Suppliers[si].QuotedProducts++
		}

		product.Quotes[row.SupplierID] = quote
	}
}

// SelectBestPrices marks, per product, the minimum valid price per unit.
// Suppliers are scanned in column order and compared with strict less-than,
// so the first supplier to reach the minimum keeps it on ties. Products
// without any valid price stay unmarked.
func (b *MatrixBuilder) SelectBestPrices() {
	for i := range b.matrix.Products {
		product := &b.matrix.Products[i]

		bestSupplier := 0
		bestPrice := 0.0
		found := false
		for _, s := range b.matrix.Suppliers {
			quote, ok := product.Quotes[s.SupplierID]
			if !ok || !quote.HasPrice {
				continue
			}
			if !found || quote.PricePerUnit < bestPrice {
				found = true
				bestPrice = quote.PricePerUnit
				bestSupplier = s.SupplierID
			}
		}

		if !found {
			continue
		}
		product.BestSupplierID = bestSupplier
		product.BestPrice = bestPrice
		product.HasBestPrice = true
		product.Quotes[bestSupplier].HasBestPrice = true
		b.matrix.Suppliers[b.supplierIndex[bestSupplier]].BestPriceCount++
	}
}

// ApplyPreviousPrices enriches the grid with the previous approved period.
// items must be ordered by updated_at descending: the first row seen per
// (product, supplier) wins, which keeps the most recent approved price on
// duplicates. A missing previous period (empty prevPeriod, no items) leaves
// the matrix untouched.
func (b *MatrixBuilder) ApplyPreviousPrices(prevPeriod string, items []models.PreviousItemRow) {
	if prevPeriod == "" {
		return
	}
	b.matrix.PreviousPeriod = prevPeriod

	bestByProduct := make(map[int]float64)
	bySupplier := make(map[[2]int]float64)
	for _, item := range items {
		if item.ApprovedPrice <= 0 {
			continue
		}
		if best, ok := bestByProduct[item.ProductID]; !ok || item.ApprovedPrice < best {
			bestByProduct[item.ProductID] = item.ApprovedPrice
		}
		key := [2]int{item.ProductID, item.SupplierID}
		if _, ok := bySupplier[key]; !ok {
			bySupplier[key] = item.ApprovedPrice
		}
	}

	for i := range b.matrix.Products {
		product := &b.matrix.Products[i]
		if best, ok := bestByProduct[product.ProductID]; ok {
			product.PreviousApprovedPrice = &models.PreviousApprovedPrice{
				Price:  best,
				Period: prevPeriod,
			}
		}

		for supplierID, quote := range product.Quotes {
			if !quote.HasPrice {
				continue
			}
			prev, ok := bySupplier[[2]int{product.ProductID, supplierID}]
			if !ok {
				continue
			}
			quote.PreviousPrice = prev
			quote.HasPreviousPrice = true
			quote.VariancePercentage = (quote.PricePerUnit - prev) / prev * 100
			quote.Trend = TrendOf(quote.VariancePercentage)
		}
	}
}

// TrendOf classifies a variance percentage: above +0.5 is up, below -0.5 is
// down, everything in between (the thresholds included) is stable.
func TrendOf(variancePercentage float64) string {
	switch {
	case variancePercentage > trendThreshold:
		return TrendUp
	case variancePercentage < -trendThreshold:
		return TrendDown
	default:
		return TrendStable
	}
}

// Result hands out the built matrix. Call it once every populate phase the
// caller needs has completed.
func (b *MatrixBuilder) Result() *models.ComparisonMatrix {
	return b.matrix
}
