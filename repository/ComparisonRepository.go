package repository

import (
	"database/sql"
	"fmt"
	"sync"

	"backend/models"
	"backend/utils"

	"github.com/lib/pq"
)

// FetchActiveProducts returns the active products of the selected
// categories, ordered for stable grid rows. An empty category selection
// means all categories.
func FetchActiveProducts(db *sql.DB, categories []string) ([]models.Product, error) {
	ctx, cancel := utils.DefaultQueryContext()
	defer cancel()

	query := `
		SELECT product_id, code, name, unit, category, base_quantity, base_price, status
		FROM products
		WHERE status = 'active'`
	args := []interface{}{}
	if len(categories) > 0 {
		query += ` AND category = ANY($1)`
		args = append(args, pq.Array(categories))
	}
	query += ` ORDER BY category, code`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ProductID, &p.Code, &p.Name, &p.Unit, &p.Category,
			&p.BaseQuantity, &p.BasePrice, &p.Status); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// FetchSuppliersForPeriod returns the suppliers that submitted any quotation
// for the period/region, each carrying its quotation id and status. The
// list is quotation-status-aware so the UI can grey out cancelled
// submissions.
func FetchSuppliersForPeriod(db *sql.DB, period, region string) ([]models.ComparisonSupplier, error) {
	ctx, cancel := utils.DefaultQueryContext()
	defer cancel()

	query := `
		SELECT s.supplier_id, s.code, s.name, s.status, q.quotation_id, q.status
		FROM quotations q
		JOIN suppliers s ON s.supplier_id = q.supplier_id
		WHERE q.period = $1 AND q.region = $2
		ORDER BY s.code`

	rows, err := db.QueryContext(ctx, query, period, region)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch suppliers for period %s: %w", period, err)
	}
	defer rows.Close()

	var suppliers []models.ComparisonSupplier
	for rows.Next() {
		var s models.ComparisonSupplier
		if err := rows.Scan(&s.SupplierID, &s.Code, &s.Name, &s.Status,
			&s.QuotationID, &s.QuotationStatus); err != nil {
			return nil, fmt.Errorf("failed to scan supplier: %w", err)
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}

// FetchKitchenDemands returns the active kitchen demand per product for a
// period, summed across kitchens.
func FetchKitchenDemands(db *sql.DB, period string) (map[int]float64, error) {
	ctx, cancel := utils.DefaultQueryContext()
	defer cancel()

	query := `
		SELECT product_id, SUM(quantity)
		FROM kitchen_period_demands
		WHERE period = $1 AND status = 'active'
		GROUP BY product_id`

	rows, err := db.QueryContext(ctx, query, period)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch kitchen demands: %w", err)
	}
	defer rows.Close()

	demands := make(map[int]float64)
	for rows.Next() {
		var productID int
		var quantity float64
		if err := rows.Scan(&productID, &quantity); err != nil {
			return nil, fmt.Errorf("failed to scan kitchen demand: %w", err)
		}
		demands[productID] = quantity
	}
	return demands, rows.Err()
}

// FetchQuoteRows returns the joined (quotation, supplier, item, product)
// rows for the grid. Cancelled quotations and inactive suppliers are
// excluded here; inactive products drop out through the product join.
func FetchQuoteRows(db *sql.DB, period, region string, categories []string) ([]models.QuoteRow, error) {
	ctx, cancel := utils.SlowQueryContext()
	defer cancel()

	query := `
		SELECT q.quotation_id, q.status, q.region, q.supplier_id,
		       qi.item_id, qi.product_id, qi.quantity, qi.initial_price,
		       qi.negotiated_price, qi.approved_price, qi.vat_percentage, qi.currency
		FROM quotations q
		JOIN suppliers s ON s.supplier_id = q.supplier_id
		JOIN quote_items qi ON qi.quotation_id = q.quotation_id
		JOIN products p ON p.product_id = qi.product_id
		WHERE q.period = $1 AND q.region = $2
		  AND q.status <> 'cancelled'
		  AND s.status = 'active'
		  AND p.status = 'active'`
	args := []interface{}{period, region}
	if len(categories) > 0 {
		query += ` AND p.category = ANY($3)`
		args = append(args, pq.Array(categories))
	}
	query += ` ORDER BY qi.item_id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote rows: %w", err)
	}
	defer rows.Close()

	var out []models.QuoteRow
	for rows.Next() {
		var r models.QuoteRow
		if err := rows.Scan(&r.QuotationID, &r.QuotationStatus, &r.Region, &r.SupplierID,
			&r.ItemID, &r.ProductID, &r.Quantity, &r.InitialPrice,
			&r.NegotiatedPrice, &r.ApprovedPrice, &r.VatPercentage, &r.Currency); err != nil {
			return nil, fmt.Errorf("failed to scan quote row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// FetchPreviousApprovedPeriod returns the most recent period before the
// current one that has an approved quotation in the region, or "" if there
// is none. Periods are YYYY-MM strings, so the string MAX is the
// chronological maximum.
func FetchPreviousApprovedPeriod(db *sql.DB, period, region string) (string, error) {
	ctx, cancel := utils.FastQueryContext()
	defer cancel()

	var prev string
	err := db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(period), '')
		FROM quotations
		WHERE region = $1 AND period < $2 AND status = 'approved'`,
		region, period).Scan(&prev)
	if err != nil {
		return "", fmt.Errorf("failed to fetch previous approved period: %w", err)
	}
	return prev, nil
}

// FetchPreviousApprovedItems returns the approved items of the previous
// period, newest first, so the caller keeps the most recently updated
// approved price per (product, supplier).
func FetchPreviousApprovedItems(db *sql.DB, prevPeriod, region string, categories []string) ([]models.PreviousItemRow, error) {
	if prevPeriod == "" {
		return nil, nil
	}

	ctx, cancel := utils.DefaultQueryContext()
	defer cancel()

	query := `
		SELECT qi.product_id, q.supplier_id, qi.approved_price
		FROM quotations q
		JOIN quote_items qi ON qi.quotation_id = q.quotation_id
		JOIN products p ON p.product_id = qi.product_id
		WHERE q.period = $1 AND q.region = $2 AND q.status = 'approved'
		  AND qi.approved_price IS NOT NULL`
	args := []interface{}{prevPeriod, region}
	if len(categories) > 0 {
		query += ` AND p.category = ANY($3)`
		args = append(args, pq.Array(categories))
	}
	query += ` ORDER BY qi.updated_at DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch previous approved items: %w", err)
	}
	defer rows.Close()

	var out []models.PreviousItemRow
	for rows.Next() {
		var r models.PreviousItemRow
		if err := rows.Scan(&r.ProductID, &r.SupplierID, &r.ApprovedPrice); err != nil {
			return nil, fmt.Errorf("failed to scan previous item: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// BuildComparisonMatrix runs the full grid build for one
// period/region/category selection. The independent reads run concurrently;
// the merge over the shared grid happens single-threaded after all of them
// completed.
func BuildComparisonMatrix(db *sql.DB, period, region string, categories []string) (*models.ComparisonMatrix, error) {
	if err := ValidatePeriod(period); err != nil {
		return nil, err
	}
	if err := ValidateRegion(region); err != nil {
		return nil, err
	}
	categories = NormalizeCategories(categories)

	var (
		products  []models.Product
		suppliers []models.ComparisonSupplier
		demands   map[int]float64
		quoteRows []models.QuoteRow
		prevPer   string
		prevItems []models.PreviousItemRow
	)

	var wg sync.WaitGroup
	errs := make([]error, 5)

	wg.Add(5)
	go func() {
		defer wg.Done()
		products, errs[0] = FetchActiveProducts(db, categories)
	}()
	go func() {
		defer wg.Done()
		suppliers, errs[1] = FetchSuppliersForPeriod(db, period, region)
	}()
	go func() {
		defer wg.Done()
		demands, errs[2] = FetchKitchenDemands(db, period)
	}()
	go func() {
		defer wg.Done()
		quoteRows, errs[3] = FetchQuoteRows(db, period, region, categories)
	}()
	go func() {
		defer wg.Done()
		prevPer, errs[4] = FetchPreviousApprovedPeriod(db, period, region)
		if errs[4] != nil || prevPer == "" {
			return
		}
		prevItems, errs[4] = FetchPreviousApprovedItems(db, prevPer, region, categories)
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	builder := NewMatrixBuilder(period, region, categories, products, suppliers)
	builder.ApplyDemand(ResolveDemandQuantities(products, demands))
	builder.PopulatePrices(quoteRows)
	builder.SelectBestPrices()
	builder.ApplyPreviousPrices(prevPer, prevItems)

	matrix := builder.Result()
	matrix.GroupedOverview = BuildGroupedOverview(matrix)
	return matrix, nil
}

// ListAllCategories returns every category of active products, for filter
// population before a period is chosen.
func ListAllCategories(db *sql.DB) ([]string, error) {
	ctx, cancel := utils.FastQueryContext()
	defer cancel()

	rows, err := db.QueryContext(ctx, `
		SELECT DISTINCT category FROM products
		WHERE status = 'active' AND category <> ''
		ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// ListRegions returns the regions with at least one non-cancelled quotation
// in the period.
func ListRegions(db *sql.DB, period string) ([]string, error) {
	if err := ValidatePeriod(period); err != nil {
		return nil, err
	}

	ctx, cancel := utils.FastQueryContext()
	defer cancel()

	rows, err := db.QueryContext(ctx, `
		SELECT DISTINCT region FROM quotations
		WHERE period = $1 AND status <> 'cancelled'
		ORDER BY region`, period)
	if err != nil {
		return nil, fmt.Errorf("failed to list regions: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// ListCategoriesForPeriodRegion returns the categories quoted in the
// period/region through non-cancelled quotations.
func ListCategoriesForPeriodRegion(db *sql.DB, period, region string) ([]string, error) {
	if err := ValidatePeriod(period); err != nil {
		return nil, err
	}
	if err := ValidateRegion(region); err != nil {
		return nil, err
	}

	ctx, cancel := utils.FastQueryContext()
	defer cancel()

	rows, err := db.QueryContext(ctx, `
		SELECT DISTINCT p.category
		FROM quotations q
		JOIN quote_items qi ON qi.quotation_id = q.quotation_id
		JOIN products p ON p.product_id = qi.product_id
		WHERE q.period = $1 AND q.region = $2 AND q.status <> 'cancelled'
		  AND p.category <> ''
		ORDER BY p.category`, period, region)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories for region: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan value: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
