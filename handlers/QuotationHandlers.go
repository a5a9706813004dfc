package handlers

import (
	"backend/models"
	"backend/repository"
	"database/sql"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetQuotations lists the quotations of a period/region with item counts
// and effective totals.
// @Summary List quotations
// @Description Lists quotations for a period, optionally filtered by region. Each row carries its item count and effective total. Requires Authorization header.
// @Tags Quotations
// @Produce json
// @Param period query string true "Period (YYYY-MM)"
// @Param region query string false "Region"
// @Success 200 {array} models.Quotation
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/quotations [get]
func GetQuotations(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, _, ok := RequireManager(db, c)
		if !ok {
			return
		}

		period := c.Query("period")
		if err := repository.ValidatePeriod(period); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid period", "details": err.Error()})
			return
		}
		region := c.Query("region")

		query := `
			SELECT q.quotation_id, q.reference, q.period, q.region, q.supplier_id,
			       s.name, s.code, q.status, q.created_by, q.created_at, q.updated_at,
			       COUNT(qi.item_id),
			       COALESCE(SUM(COALESCE(qi.approved_price, qi.negotiated_price, qi.initial_price) * qi.quantity), 0)
			FROM quotations q
			JOIN suppliers s ON s.supplier_id = q.supplier_id
			LEFT JOIN quote_items qi ON qi.quotation_id = q.quotation_id
			WHERE q.period = $1`
		args := []interface{}{period}
		if region != "" {
			query += ` AND q.region = $2`
			args = append(args, region)
		}
		query += `
			GROUP BY q.quotation_id, q.reference, q.period, q.region, q.supplier_id,
			         s.name, s.code, q.status, q.created_by, q.created_at, q.updated_at
			ORDER BY s.code`

		rows, err := db.Query(query, args...)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch quotations", "details": err.Error()})
			return
		}
		defer rows.Close()

		var quotations []models.Quotation
		for rows.Next() {
			var q models.Quotation
			if err := rows.Scan(&q.QuotationID, &q.Reference, &q.Period, &q.Region, &q.SupplierID,
				&q.SupplierName, &q.SupplierCode, &q.Status, &q.CreatedBy, &q.CreatedAt, &q.UpdatedAt,
				&q.ItemCount, &q.TotalValue); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan quotation", "details": err.Error()})
				return
			}
			quotations = append(quotations, q)
		}

		if len(quotations) == 0 {
			c.JSON(http.StatusOK, []models.Quotation{})
			return
		}
		c.JSON(http.StatusOK, quotations)
	}
}

// GetQuoteItems lists the items of one quotation.
// @Summary List quote items
// @Description Lists the priced product lines of a quotation. Requires Authorization header.
// @Tags Quotations
// @Produce json
// @Param id path int true "Quotation ID"
// @Success 200 {array} models.QuoteItem
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/quotations/{id}/items [get]
func GetQuoteItems(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, _, ok := RequireManager(db, c)
		if !ok {
			return
		}

		quotationID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quotation ID"})
			return
		}

		var exists int
		err = db.QueryRow(`SELECT quotation_id FROM quotations WHERE quotation_id = $1`, quotationID).Scan(&exists)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Quotation not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		rows, err := db.Query(`
			SELECT qi.item_id, qi.quotation_id, qi.product_id, p.code, p.name,
			       qi.quantity, qi.initial_price, qi.negotiated_price, qi.approved_price,
			       qi.vat_percentage, qi.currency, qi.created_at, qi.updated_at
			FROM quote_items qi
			JOIN products p ON p.product_id = qi.product_id
			WHERE qi.quotation_id = $1
			ORDER BY p.code`, quotationID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch quote items", "details": err.Error()})
			return
		}
		defer rows.Close()

		var items []models.QuoteItem
		for rows.Next() {
			var item models.QuoteItem
			if err := rows.Scan(&item.ItemID, &item.QuotationID, &item.ProductID, &item.ProductCode, &item.ProductName,
				&item.Quantity, &item.InitialPrice, &item.NegotiatedPrice, &item.ApprovedPrice,
				&item.VatPercentage, &item.Currency, &item.CreatedAt, &item.UpdatedAt); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan quote item", "details": err.Error()})
				return
			}
			items = append(items, item)
		}

		c.JSON(http.StatusOK, items)
	}
}

// NegotiateQuotation moves one quotation to negotiation.
// @Summary Negotiate quotation
// @Description Moves a pending quotation to negotiation. Calling it on a quotation already in negotiation is a no-op. Requires Authorization header.
// @Tags Quotations
// @Produce json
// @Param id path int true "Quotation ID"
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/quotation_negotiate/{id} [put]
func NegotiateQuotation(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, userName, ok := RequireManager(db, c)
		if !ok {
			return
		}

		quotationID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quotation ID"})
			return
		}

		if err := repository.NegotiateOne(db, quotationID); err != nil {
			c.JSON(engineErrorStatus(err), gin.H{"error": "Failed to negotiate quotation", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Quotation moved to negotiation"})

		period, region := quotationScope(db, quotationID)
		logQuotationEvent(db, session, userName, "Negotiate",
			fmt.Sprintf("Quotation %d moved to negotiation", quotationID), period, region)
	}
}

// BatchNegotiateQuotations moves a batch of quotations to negotiation.
// @Summary Batch negotiate quotations
// @Description Moves the eligible (pending/negotiation) subset of the given quotations to negotiation. Fails when no quotation is eligible. Requires Authorization header.
// @Tags Quotations
// @Accept json
// @Produce json
// @Param body body models.BatchQuotationRequest true "Quotation IDs"
// @Success 200 {object} models.BatchNegotiateResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /api/quotations_negotiate [post]
func BatchNegotiateQuotations(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, userName, ok := RequireManager(db, c)
		if !ok {
			return
		}

		var req models.BatchQuotationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON input", "details": err.Error()})
			return
		}

		result, err := repository.BatchNegotiate(db, req.QuotationIDs)
		if err != nil {
			c.JSON(engineErrorStatus(err), gin.H{"error": "Failed to batch negotiate", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, result)

		logQuotationEvent(db, session, userName, "Negotiate",
			fmt.Sprintf("Batch negotiation of %d quotations", result.UpdatedCount), "", "")
	}
}

// UpdateQuoteItemPrice writes one item's negotiated price.
// @Summary Update negotiated price
// @Description Sets the negotiated price of a quote item while the quotation is still pending or negotiating. Requires Authorization header.
// @Tags Quotations
// @Accept json
// @Produce json
// @Param item_id path int true "Quote item ID"
// @Param body body models.NegotiatedPriceRequest true "Negotiated price"
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/quote_item_price/{item_id} [put]
func UpdateQuoteItemPrice(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, _, ok := RequireManager(db, c)
		if !ok {
			return
		}

		itemID, err := strconv.Atoi(c.Param("item_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quote item ID"})
			return
		}

		var req models.NegotiatedPriceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON input", "details": err.Error()})
			return
		}

		if err := repository.UpdateNegotiatedPrice(db, itemID, req.NegotiatedPrice); err != nil {
			c.JSON(engineErrorStatus(err), gin.H{"error": "Failed to update negotiated price", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Negotiated price updated"})
	}
}

// ApproveQuotation approves one quotation with optional per-item overrides.
// @Summary Approve quotation
// @Description Approves a pending/negotiating quotation: finalizes every item price (override, else negotiated, else initial) and writes one history row per positively priced item, all in one transaction. Requires the approver role.
// @Tags Quotations
// @Accept json
// @Produce json
// @Param id path int true "Quotation ID"
// @Param body body models.ApproveQuotationRequest false "Optional per-item price overrides"
// @Success 200 {object} models.ApproveResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/quotation_approve/{id} [put]
func ApproveQuotation(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, userName, ok := RequireApprover(db, c)
		if !ok {
			return
		}

		quotationID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quotation ID"})
			return
		}

		var req models.ApproveQuotationRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON input", "details": err.Error()})
				return
			}
		}

		result, err := repository.ApproveOne(db, quotationID, req.PriceOverrides)
		if err != nil {
			c.JSON(engineErrorStatus(err), gin.H{"error": "Failed to approve quotation", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, result)

		period, region := quotationScope(db, quotationID)
		logQuotationEvent(db, session, userName, "Approve",
			fmt.Sprintf("Approved quotation %d (%d items)", quotationID, result.ApprovedItems), period, region)

		notifyQuotationApproved(db, quotationID, userName)
	}
}

// BatchApproveQuotations approves a batch of quotations atomically.
// @Summary Batch approve quotations
// @Description Approves the eligible subset of the given quotations in one transaction: status update, price finalization and history insertion commit or roll back together. Requires the approver role.
// @Tags Quotations
// @Accept json
// @Produce json
// @Param body body models.BatchQuotationRequest true "Quotation IDs"
// @Success 200 {object} models.BatchApproveResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /api/quotations_approve [post]
func BatchApproveQuotations(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, userName, ok := RequireApprover(db, c)
		if !ok {
			return
		}

		var req models.BatchQuotationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON input", "details": err.Error()})
			return
		}

		result, err := repository.ApproveMany(db, req.QuotationIDs)
		if err != nil {
			c.JSON(engineErrorStatus(err), gin.H{"error": "Failed to batch approve", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, result)

		logQuotationEvent(db, session, userName, "Approve",
			fmt.Sprintf("Batch approval of %d quotations", result.ApprovedCount), "", "")

		// Only the ids the batch actually approved get notified; ineligible
		// ids in the request stay silent.
		for _, quotationID := range result.ApprovedIDs {
			notifyQuotationApproved(db, quotationID, userName)
		}
	}
}

// CancelQuotation cancels one quotation. Status only: prices and history
// stay untouched.
// @Summary Cancel quotation
// @Description Cancels a pending/negotiating quotation. Terminal states reject the transition. Requires Authorization header.
// @Tags Quotations
// @Produce json
// @Param id path int true "Quotation ID"
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /api/quotation_cancel/{id} [put]
func CancelQuotation(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, userName, ok := RequireManager(db, c)
		if !ok {
			return
		}

		quotationID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quotation ID"})
			return
		}

		if err := repository.CancelOne(db, quotationID); err != nil {
			c.JSON(engineErrorStatus(err), gin.H{"error": "Failed to cancel quotation", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Quotation cancelled"})

		period, region := quotationScope(db, quotationID)
		logQuotationEvent(db, session, userName, "Cancel",
			fmt.Sprintf("Cancelled quotation %d", quotationID), period, region)
	}
}

// quotationScope fetches the period/region of a quotation for audit rows.
// Failures just leave the scope empty.
func quotationScope(db *sql.DB, quotationID int) (string, string) {
	var period, region string
	_ = db.QueryRow(`SELECT period, region FROM quotations WHERE quotation_id = $1`, quotationID).
		Scan(&period, &region)
	return period, region
}
