package handlers

import (
	"backend/models"
	"backend/repository"
	"backend/storage"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// DownloadQuotationTemplate downloads an empty quotation Excel template.
func DownloadQuotationTemplate(c *gin.Context) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Quotation"
	index, err := f.NewSheet(sheet)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating sheet"})
		return
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"ProductCode", "Quantity", "InitialPrice", "VatPercentage", "Currency"}
	for i, col := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, col)
	}
	sample := []interface{}{"PRD-0042", 10, 90.00, 19, "EUR"}
	for i, v := range sample {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		f.SetCellValue(sheet, cell, v)
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment;filename=quotation_template.xlsx")
	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing Excel file"})
	}
}

// ImportQuotationExcel godoc
// @Summary      Import a supplier quotation from Excel
// @Description  Creates one pending quotation for the supplier/period/region and inserts one quote item per valid row. The whole file imports in one transaction. Rejects the import when a non-cancelled quotation already holds the supplier/period/region slot.
// @Tags         import
// @Accept       multipart/form-data
// @Produce      json
// @Param        supplier_id  formData  int     true  "Supplier ID"
// @Param        period       formData  string  true  "Period (YYYY-MM)"
// @Param        region       formData  string  true  "Region"
// @Param        file         formData  file    true  "Excel file"
// @Success      200  {object}  models.ImportQuotationResponse
// @Failure      400  {object}  models.ErrorResponse
// @Failure      401  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse
// @Router       /api/import_quotation [post]
func ImportQuotationExcel(c *gin.Context) {
	db := storage.GetDB()

	session, userName, ok := RequireManager(db, c)
	if !ok {
		return
	}

	supplierID, err := strconv.Atoi(c.PostForm("supplier_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid supplier_id"})
		return
	}
	period := c.PostForm("period")
	if err := repository.ValidatePeriod(period); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid period", "details": err.Error()})
		return
	}
	region := c.PostForm("region")
	if err := repository.ValidateRegion(region); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid region", "details": err.Error()})
		return
	}

	var supplierStatus string
	err = db.QueryRow(`SELECT status FROM suppliers WHERE supplier_id = $1`, supplierID).Scan(&supplierStatus)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Supplier not found"})
		return
	}
	if supplierStatus != "active" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Supplier is not active"})
		return
	}

	// One quotation per (supplier, period, region); a cancelled one frees
	// the slot.
	existingRef, taken, err := repository.ActiveQuotationRef(db, supplierID, period, region)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check existing quotations", "details": err.Error()})
		return
	}
	if taken {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "A quotation for this supplier, period and region already exists",
			"details": fmt.Sprintf("existing quotation %s must be cancelled before re-importing", existingRef),
		})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file not found"})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to open file"})
		return
	}
	defer src.Close()

	f, err := excelize.OpenReader(src)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid Excel file", "details": err.Error()})
		return
	}
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read sheet", "details": err.Error()})
		return
	}
	if len(rows) < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file has no data rows"})
		return
	}

	columnIndices := make(map[string]int)
	for i, col := range rows[0] {
		columnIndices[strings.TrimSpace(col)] = i
	}
	requiredColumns := []string{"ProductCode", "InitialPrice"}
	for _, col := range requiredColumns {
		if _, exists := columnIndices[col]; !exists {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("missing required column: %s", col)})
			return
		}
	}

	cellAt := func(row []string, name string) string {
		idx, exists := columnIndices[name]
		if !exists || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	tx, err := db.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start transaction"})
		return
	}
	defer tx.Rollback()

	batchID := uuid.New().String()
	reference := repository.GenerateQuotationReference()

	var quotationID int
	err = tx.QueryRow(`
		INSERT INTO quotations (reference, period, region, supplier_id, status, import_batch_id, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING quotation_id`,
		reference, period, region, supplierID, models.QuotationStatusPending, batchID, userName).Scan(&quotationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create quotation", "details": err.Error()})
		return
	}

	imported, skipped := 0, 0
	for _, row := range rows[1:] {
		productCode := cellAt(row, "ProductCode")
		if productCode == "" {
			skipped++
			continue
		}

		var productID int
		var baseQuantity float64
		err := tx.QueryRow(`
			SELECT product_id, base_quantity FROM products
			WHERE code = $1 AND status = 'active'`, productCode).Scan(&productID, &baseQuantity)
		if err != nil {
			skipped++
			continue
		}

		initialPrice, err := strconv.ParseFloat(cellAt(row, "InitialPrice"), 64)
		if err != nil || initialPrice <= 0 {
			skipped++
			continue
		}

		quantity := baseQuantity
		if raw := cellAt(row, "Quantity"); raw != "" {
			if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed > 0 {
				quantity = parsed
			}
		}

		vat := 0.0
		if raw := cellAt(row, "VatPercentage"); raw != "" {
			if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed >= 0 {
				vat = parsed
			}
		}

		currency := cellAt(row, "Currency")
		if currency == "" {
			currency = "EUR"
		}

		_, err = tx.Exec(`
			INSERT INTO quote_items (quotation_id, product_id, quantity, initial_price, vat_percentage, currency, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())`,
			quotationID, productID, quantity, initialPrice, vat, currency)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to insert quote item", "details": err.Error()})
			return
		}
		imported++
	}

	if imported == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no valid rows in file", "skipped_rows": skipped})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to commit import", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.ImportQuotationResponse{
		BatchID:       batchID,
		QuotationID:   quotationID,
		Reference:     reference,
		ImportedItems: imported,
		SkippedRows:   skipped,
	})

	entry := models.ActivityLog{
		EventContext: "Import",
		EventName:    "Post",
		Description:  fmt.Sprintf("Imported quotation %s with %d items", reference, imported),
		UserName:     userName,
		HostName:     session.HostName,
		IPAddress:    session.IPAddress,
		Period:       period,
		Region:       region,
		CreatedAt:    time.Now(),
	}
	if logErr := SaveActivityLog(db, entry); logErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to log activity",
			"details": logErr.Error(),
		})
		return
	}
}
