package repository

import (
	"database/sql"
	"fmt"
	"sort"

	"backend/models"

	"github.com/lib/pq"
)

// CanTransition checks one quotation status transition against the
// lifecycle machine. pending -> negotiation, negotiation -> negotiation
// (idempotent), {pending, negotiation} -> approved and {pending,
// negotiation} -> cancelled are the only allowed moves; approved and
// cancelled are terminal.
func CanTransition(from, to string) error {
	switch from {
	case models.QuotationStatusApproved:
		return NewEngineError(KindInvalidStateTransition, "quotation is already approved")
	case models.QuotationStatusCancelled:
		return NewEngineError(KindInvalidStateTransition, "quotation is cancelled")
	case models.QuotationStatusPending, models.QuotationStatusNegotiation:
	default:
		return NewEngineError(KindInvalidStateTransition, fmt.Sprintf("unknown quotation status %q", from))
	}

	switch to {
	case models.QuotationStatusNegotiation, models.QuotationStatusApproved, models.QuotationStatusCancelled:
		return nil
	default:
		return NewEngineError(KindInvalidStateTransition, fmt.Sprintf("unknown target status %q", to))
	}
}

// EffectiveItemPrice applies the price precedence on a quote item:
// approved, then negotiated, then initial.
func EffectiveItemPrice(item models.QuoteItem) float64 {
	if item.ApprovedPrice.Valid {
		return item.ApprovedPrice.Float64
	}
	if item.NegotiatedPrice.Valid {
		return item.NegotiatedPrice.Float64
	}
	return item.InitialPrice
}

// FinalApprovalPrice resolves the price written at approval time: the
// explicit override when one was given for the item, else the negotiated
// price, else the initial price. The bool is false when the result is not
// positive, in which case the item stays unpriced and gets no history row.
func FinalApprovalPrice(initial float64, negotiated sql.NullFloat64, override *float64) (float64, bool) {
	var final float64
	switch {
	case override != nil:
		final = *override
	case negotiated.Valid:
		final = negotiated.Float64
	default:
		final = initial
	}
	return final, final > 0
}

// fetchQuotationForUpdate locks one quotation row inside a transaction and
// returns its header fields.
func fetchQuotationForUpdate(tx *sql.Tx, quotationID int) (period, region string, supplierID int, status string, err error) {
	err = tx.QueryRow(`
		SELECT period, region, supplier_id, status
		FROM quotations
		WHERE quotation_id = $1
		FOR UPDATE`, quotationID).Scan(&period, &region, &supplierID, &status)
	if err == sql.ErrNoRows {
		err = NewEngineError(KindNotFound, fmt.Sprintf("quotation %d not found", quotationID))
		return
	}
	if err != nil {
		err = fmt.Errorf("failed to fetch quotation %d: %w", quotationID, err)
	}
	return
}

// NegotiateOne moves a single quotation to negotiation. Calling it on a
// quotation that is already negotiating is a no-op that still succeeds.
func NegotiateOne(db *sql.DB, quotationID int) error {
	var status string
	err := db.QueryRow(`SELECT status FROM quotations WHERE quotation_id = $1`, quotationID).Scan(&status)
	if err == sql.ErrNoRows {
		return NewEngineError(KindNotFound, fmt.Sprintf("quotation %d not found", quotationID))
	}
	if err != nil {
		return fmt.Errorf("failed to fetch quotation %d: %w", quotationID, err)
	}
	if err := CanTransition(status, models.QuotationStatusNegotiation); err != nil {
		return err
	}

	_, err = db.Exec(`
		UPDATE quotations SET status = $1, updated_at = NOW()
		WHERE quotation_id = $2 AND status IN ($3, $1)`,
		models.QuotationStatusNegotiation, quotationID, models.QuotationStatusPending)
	if err != nil {
		return fmt.Errorf("failed to update quotation %d: %w", quotationID, err)
	}
	return nil
}

// CancelOne moves a single quotation to cancelled. Status only; prices and
// history are untouched.
func CancelOne(db *sql.DB, quotationID int) error {
	var status string
	err := db.QueryRow(`SELECT status FROM quotations WHERE quotation_id = $1`, quotationID).Scan(&status)
	if err == sql.ErrNoRows {
		return NewEngineError(KindNotFound, fmt.Sprintf("quotation %d not found", quotationID))
	}
	if err != nil {
		return fmt.Errorf("failed to fetch quotation %d: %w", quotationID, err)
	}
	if err := CanTransition(status, models.QuotationStatusCancelled); err != nil {
		return err
	}

	_, err = db.Exec(`
		UPDATE quotations SET status = $1, updated_at = NOW()
		WHERE quotation_id = $2 AND status IN ($3, $4)`,
		models.QuotationStatusCancelled, quotationID,
		models.QuotationStatusPending, models.QuotationStatusNegotiation)
	if err != nil {
		return fmt.Errorf("failed to cancel quotation %d: %w", quotationID, err)
	}
	return nil
}

// BatchNegotiate bulk-moves the eligible subset of the given quotations to
// negotiation. Ids that are already approved or cancelled drop out of both
// the mutation and the result. An empty eligible set is an error, not a
// silent success.
func BatchNegotiate(db *sql.DB, quotationIDs []int) (*models.BatchNegotiateResult, error) {
	if len(quotationIDs) == 0 {
		return nil, NewEngineError(KindValidation, "no quotation ids given")
	}

	rows, err := db.Query(`
		UPDATE quotations SET status = $1, updated_at = NOW()
		WHERE quotation_id = ANY($2) AND status IN ($3, $1)
		RETURNING supplier_id`,
		models.QuotationStatusNegotiation, pq.Array(quotationIDs), models.QuotationStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to batch negotiate: %w", err)
	}
	defer rows.Close()

	var supplierIDs []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan supplier id: %w", err)
		}
		supplierIDs = append(supplierIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(supplierIDs) == 0 {
		return nil, NewEngineError(KindEmptyResultSet, "no eligible quotations to negotiate")
	}

	names, err := fetchSupplierNames(db, supplierIDs)
	if err != nil {
		return nil, err
	}

	return &models.BatchNegotiateResult{
		UpdatedCount:      len(supplierIDs),
		AffectedSuppliers: names,
	}, nil
}

// ApproveOne approves a single quotation in one transaction: per-item final
// prices (override ?? negotiated ?? initial) are written as approved
// prices, one history row is inserted per positively priced item, and the
// quotation moves to approved. Items without a positive final price stay
// unpriced; the quotation approves anyway.
func ApproveOne(db *sql.DB, quotationID int, overrides map[int]float64) (*models.ApproveResult, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	period, region, supplierID, status, err := fetchQuotationForUpdate(tx, quotationID)
	if err != nil {
		return nil, err
	}
	if err := CanTransition(status, models.QuotationStatusApproved); err != nil {
		return nil, err
	}

	itemRows, err := tx.Query(`
		SELECT item_id, product_id, quantity, initial_price, negotiated_price
		FROM quote_items
		WHERE quotation_id = $1`, quotationID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote items: %w", err)
	}

	type pendingItem struct {
		itemID     int
		productID  int
		quantity   float64
		finalPrice float64
	}
	var toFinalize []pendingItem
	for itemRows.Next() {
		var (
			itemID, productID int
			quantity, initial float64
			negotiated        sql.NullFloat64
		)
		if err := itemRows.Scan(&itemID, &productID, &quantity, &initial, &negotiated); err != nil {
			itemRows.Close()
			return nil, fmt.Errorf("failed to scan quote item: %w", err)
		}
		var override *float64
		if v, ok := overrides[itemID]; ok {
			override = &v
		}
		final, ok := FinalApprovalPrice(initial, negotiated, override)
		if !ok {
			continue
		}
		toFinalize = append(toFinalize, pendingItem{itemID, productID, quantity, final})
	}
	if err := itemRows.Close(); err != nil {
		return nil, err
	}

	result := &models.ApproveResult{QuotationID: quotationID}
	for _, item := range toFinalize {
		if _, err := tx.Exec(`
			UPDATE quote_items SET approved_price = $1, updated_at = NOW()
			WHERE item_id = $2`, item.finalPrice, item.itemID); err != nil {
			return nil, fmt.Errorf("failed to finalize item %d: %w", item.itemID, err)
		}
		if _, err := tx.Exec(`
			INSERT INTO price_history (product_id, supplier_id, period, region, price, price_type, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
			item.productID, supplierID, period, region, item.finalPrice, models.PriceTypeApproved); err != nil {
			return nil, fmt.Errorf("failed to insert price history for item %d: %w", item.itemID, err)
		}
		result.ApprovedItems++
		result.HistoryRowsWritten++
		result.TotalApprovedValue += item.finalPrice * item.quantity
	}

	if _, err := tx.Exec(`
		UPDATE quotations SET status = $1, updated_at = NOW()
		WHERE quotation_id = $2`, models.QuotationStatusApproved, quotationID); err != nil {
		return nil, fmt.Errorf("failed to update quotation status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit approval: %w", err)
	}
	return result, nil
}

// ApproveMany approves a batch of quotations in one transaction: (1) the
// status update re-filters on current status inside the same write, so ids
// approved by a concurrent caller silently drop out instead of being
// reprocessed; (2) every item under the affected quotations gets
// approved_price = negotiated ?? initial (batch mode takes no per-item
// overrides); (3) one history row per positively priced item. The three
// steps commit or roll back together, so no reader ever observes an
// approved quotation with unfinalized prices.
func ApproveMany(db *sql.DB, quotationIDs []int) (*models.BatchApproveResult, error) {
	if len(quotationIDs) == 0 {
		return nil, NewEngineError(KindValidation, "no quotation ids given")
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(`
		UPDATE quotations SET status = $1, updated_at = NOW()
		WHERE quotation_id = ANY($2) AND status IN ($3, $4)
		RETURNING quotation_id, supplier_id`,
		models.QuotationStatusApproved, pq.Array(quotationIDs),
		models.QuotationStatusPending, models.QuotationStatusNegotiation)
	if err != nil {
		return nil, fmt.Errorf("failed to batch update quotation status: %w", err)
	}

	var affectedIDs, supplierIDs []int
	for rows.Next() {
		var quotationID, supplierID int
		if err := rows.Scan(&quotationID, &supplierID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan affected quotation: %w", err)
		}
		affectedIDs = append(affectedIDs, quotationID)
		supplierIDs = append(supplierIDs, supplierID)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	if len(affectedIDs) == 0 {
		return nil, NewEngineError(KindEmptyResultSet, "no eligible quotations to approve")
	}

	if _, err := tx.Exec(`
		UPDATE quote_items
		SET approved_price = COALESCE(negotiated_price, initial_price), updated_at = NOW()
		WHERE quotation_id = ANY($1)`, pq.Array(affectedIDs)); err != nil {
		return nil, fmt.Errorf("failed to finalize quote items: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO price_history (product_id, supplier_id, period, region, price, price_type, created_at)
		SELECT qi.product_id, q.supplier_id, q.period, q.region, qi.approved_price, $1, NOW()
		FROM quote_items qi
		JOIN quotations q ON q.quotation_id = qi.quotation_id
		WHERE qi.quotation_id = ANY($2) AND qi.approved_price > 0`,
		models.PriceTypeApproved, pq.Array(affectedIDs)); err != nil {
		return nil, fmt.Errorf("failed to insert price history: %w", err)
	}

	// Names come from the same transaction so a commit is never reported
	// as a failure afterwards.
	names, err := fetchSupplierNames(tx, supplierIDs)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit batch approval: %w", err)
	}

	return &models.BatchApproveResult{
		ApprovedCount:     len(affectedIDs),
		ApprovedIDs:       affectedIDs,
		AffectedSuppliers: names,
	}, nil
}

// ActiveQuotationRef looks up a non-cancelled quotation for the
// (supplier, period, region) slot. Each slot holds at most one such
// quotation, so a hit means the slot is taken.
func ActiveQuotationRef(db *sql.DB, supplierID int, period, region string) (string, bool, error) {
	var reference string
	err := db.QueryRow(`
		SELECT reference FROM quotations
		WHERE supplier_id = $1 AND period = $2 AND region = $3 AND status <> $4`,
		supplierID, period, region, models.QuotationStatusCancelled).Scan(&reference)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to check quotation slot: %w", err)
	}
	return reference, true, nil
}

// UpdateNegotiatedPrice writes one item's negotiated price. Only allowed
// while the owning quotation is still pending or negotiating; the price can
// be overwritten but never cleared.
func UpdateNegotiatedPrice(db *sql.DB, itemID int, price float64) error {
	if price <= 0 {
		return NewEngineError(KindValidation, "negotiated price must be positive")
	}

	var status string
	err := db.QueryRow(`
		SELECT q.status
		FROM quote_items qi
		JOIN quotations q ON q.quotation_id = qi.quotation_id
		WHERE qi.item_id = $1`, itemID).Scan(&status)
	if err == sql.ErrNoRows {
		return NewEngineError(KindNotFound, fmt.Sprintf("quote item %d not found", itemID))
	}
	if err != nil {
		return fmt.Errorf("failed to fetch quote item %d: %w", itemID, err)
	}
	if err := CanTransition(status, models.QuotationStatusNegotiation); err != nil {
		return err
	}

	_, err = db.Exec(`
		UPDATE quote_items SET negotiated_price = $1, updated_at = NOW()
		WHERE item_id = $2`, price, itemID)
	if err != nil {
		return fmt.Errorf("failed to update negotiated price for item %d: %w", itemID, err)
	}
	return nil
}

// rowQuerier lets the name lookup run on either a plain connection or an
// open transaction.
type rowQuerier interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

// fetchSupplierNames returns the distinct, sorted supplier names for a set
// of supplier ids.
func fetchSupplierNames(q rowQuerier, supplierIDs []int) ([]string, error) {
	distinct := make(map[int]bool, len(supplierIDs))
	var ids []int
	for _, id := range supplierIDs {
		if !distinct[id] {
			distinct[id] = true
			ids = append(ids, id)
		}
	}

	rows, err := q.Query(`
		SELECT name FROM suppliers WHERE supplier_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch supplier names: %w", err)
	}
	defer rows.Close()

	names, err := scanStrings(rows)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}
