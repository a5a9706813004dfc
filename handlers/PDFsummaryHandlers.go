package handlers

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	"backend/models"
	"backend/repository"

	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// pdfTableHeader writes a styled header row for the approval tables.
func pdfTableHeader(pdf *gofpdf.Fpdf, widths []float64, labels []string) {
	pdf.SetFillColor(50, 50, 50)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 9)
	for i, label := range labels {
		ln := 0
		if i == len(labels)-1 {
			ln = 1
		}
		pdf.CellFormat(widths[i], 8, label, "1", ln, "C", true, 0, "")
	}
	pdf.SetFillColor(255, 255, 255)
	pdf.SetTextColor(0, 0, 0)
}

// GenerateApprovalSummaryPDF generates a PDF approval summary for a period and region
// @Summary Generate PDF approval summary
// @Description Generate a PDF report with quotation lifecycle counts, approved totals per supplier and the approved price lines for a period/region
// @Tags PDF
// @Accept json
// @Produce application/pdf
// @Param period path string true "Period (YYYY-MM)"
// @Param region path string true "Region"
// @Success 200 {file} file "PDF file"
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/approval_pdf_summary/{period}/{region} [get]
func GenerateApprovalSummaryPDF(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, userName, ok := RequireManager(db, c)
		if !ok {
			return
		}

		period := c.Param("period")
		if err := repository.ValidatePeriod(period); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid period", "details": err.Error()})
			return
		}
		region := c.Param("region")
		if err := repository.ValidateRegion(region); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid region", "details": err.Error()})
			return
		}

		// Lifecycle counts for the header block.
		statusCounts := map[string]int{}
		rows, err := db.Query(`
			SELECT status, COUNT(*) FROM quotations
			WHERE period = $1 AND region = $2
			GROUP BY status`, period, region)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch quotation counts", "details": err.Error()})
			return
		}
		for rows.Next() {
			var status string
			var count int
			if err := rows.Scan(&status, &count); err != nil {
				rows.Close()
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan counts", "details": err.Error()})
				return
			}
			statusCounts[status] = count
		}
		rows.Close()

		type approvedLine struct {
			SupplierName string
			SupplierCode string
			ProductCode  string
			ProductName  string
			Quantity     float64
			Initial      float64
			Approved     float64
			Total        float64
		}

		lineRows, err := db.Query(`
			SELECT s.name, s.code, p.code, p.name, qi.quantity, qi.initial_price,
			       qi.approved_price, qi.approved_price * qi.quantity
			FROM quotations q
			JOIN suppliers s ON s.supplier_id = q.supplier_id
			JOIN quote_items qi ON qi.quotation_id = q.quotation_id
			JOIN products p ON p.product_id = qi.product_id
			WHERE q.period = $1 AND q.region = $2 AND q.status = 'approved'
			  AND qi.approved_price IS NOT NULL
			ORDER BY s.code, p.code`, period, region)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch approved lines", "details": err.Error()})
			return
		}
		defer lineRows.Close()

		var lines []approvedLine
		var supplierOrder []string
		supplierTotals := map[string]float64{}
		var grandTotal float64
		for lineRows.Next() {
			var l approvedLine
			if err := lineRows.Scan(&l.SupplierName, &l.SupplierCode, &l.ProductCode, &l.ProductName,
				&l.Quantity, &l.Initial, &l.Approved, &l.Total); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan approved line", "details": err.Error()})
				return
			}
			if _, seen := supplierTotals[l.SupplierCode]; !seen {
				supplierOrder = append(supplierOrder, l.SupplierCode)
			}
			lines = append(lines, l)
			supplierTotals[l.SupplierCode] += l.Total
			grandTotal += l.Total
		}

		titleCaser := cases.Title(language.English)
		regionTitle := titleCaser.String(region)

		pdf := gofpdf.New("P", "mm", "A4", "")
		pdf.AddPage()

		pdf.SetFillColor(0, 0, 0)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Arial", "B", 18)
		pdf.CellFormat(190, 12, "Procurement Approval Summary", "1", 1, "C", true, 0, "")
		pdf.SetFillColor(255, 255, 255)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(8)

		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(190, 8, fmt.Sprintf("Period: %s | Region: %s", period, regionTitle))
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 10)
		pdf.Cell(190, 6, fmt.Sprintf("Generated by: %s", userName))
		pdf.Ln(4)
		pdf.Cell(190, 6, fmt.Sprintf("Generated on: %s", time.Now().Format("2006-01-02 15:04:05")))
		pdf.Ln(10)

		pdf.SetFillColor(240, 240, 240)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(190, 10, "Quotation Lifecycle", "1", 1, "C", true, 0, "")
		pdf.SetFillColor(255, 255, 255)
		pdf.Ln(5)

		pdfTableHeader(pdf, []float64{47.5, 47.5, 47.5, 47.5}, []string{"Status", "Count", "Status", "Count"})
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(47.5, 8, "Pending", "1", 0, "L", false, 0, "")
		pdf.CellFormat(47.5, 8, fmt.Sprintf("%d", statusCounts[models.QuotationStatusPending]), "1", 0, "C", false, 0, "")
		pdf.CellFormat(47.5, 8, "Approved", "1", 0, "L", false, 0, "")
		pdf.CellFormat(47.5, 8, fmt.Sprintf("%d", statusCounts[models.QuotationStatusApproved]), "1", 1, "C", false, 0, "")
		pdf.CellFormat(47.5, 8, "Negotiation", "1", 0, "L", false, 0, "")
		pdf.CellFormat(47.5, 8, fmt.Sprintf("%d", statusCounts[models.QuotationStatusNegotiation]), "1", 0, "C", false, 0, "")
		pdf.CellFormat(47.5, 8, "Cancelled", "1", 0, "L", false, 0, "")
		pdf.CellFormat(47.5, 8, fmt.Sprintf("%d", statusCounts[models.QuotationStatusCancelled]), "1", 1, "C", false, 0, "")
		pdf.Ln(10)

		pdf.SetFillColor(0, 0, 0)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(190, 10, "Approved Totals per Supplier", "1", 1, "C", true, 0, "")
		pdf.SetFillColor(255, 255, 255)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(5)

		pdfTableHeader(pdf, []float64{95, 95}, []string{"Supplier", "Approved Value"})
		pdf.SetFont("Arial", "", 9)
		for _, code := range supplierOrder {
			pdf.CellFormat(95, 8, code, "1", 0, "L", false, 0, "")
			pdf.CellFormat(95, 8, fmt.Sprintf("%.2f", supplierTotals[code]), "1", 1, "R", false, 0, "")
		}
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(95, 8, "Grand Total", "1", 0, "L", false, 0, "")
		pdf.CellFormat(95, 8, fmt.Sprintf("%.2f", grandTotal), "1", 1, "R", false, 0, "")
		pdf.Ln(10)

		pdf.SetFillColor(0, 0, 0)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(190, 10, "Approved Price Lines", "1", 1, "C", true, 0, "")
		pdf.SetFillColor(255, 255, 255)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(5)

		lineWidths := []float64{25, 25, 55, 20, 20, 20, 25}
		lineLabels := []string{"Supplier", "Code", "Product", "Qty", "Initial", "Approved", "Total"}
		pdfTableHeader(pdf, lineWidths, lineLabels)

		pdf.SetFont("Arial", "", 8)
		for _, l := range lines {
			if pdf.GetY() > 250 {
				pdf.AddPage()
				pdfTableHeader(pdf, lineWidths, lineLabels)
				pdf.SetFont("Arial", "", 8)
			}

			name := l.ProductName
			if len(name) > 32 {
				name = name[:29] + "..."
			}
			pdf.CellFormat(25, 6, l.SupplierCode, "1", 0, "C", false, 0, "")
			pdf.CellFormat(25, 6, l.ProductCode, "1", 0, "C", false, 0, "")
			pdf.CellFormat(55, 6, name, "1", 0, "L", false, 0, "")
			pdf.CellFormat(20, 6, fmt.Sprintf("%g", l.Quantity), "1", 0, "C", false, 0, "")
			pdf.CellFormat(20, 6, fmt.Sprintf("%.2f", l.Initial), "1", 0, "R", false, 0, "")
			pdf.CellFormat(20, 6, fmt.Sprintf("%.2f", l.Approved), "1", 0, "R", false, 0, "")
			pdf.CellFormat(25, 6, fmt.Sprintf("%.2f", l.Total), "1", 1, "R", false, 0, "")
		}

		pdf.SetY(-20)
		pdf.SetFont("Arial", "I", 8)
		pdf.Cell(190, 6, "This is a computer-generated report. Generated on: "+time.Now().Format("2006-01-02 15:04:05"))

		c.Header("Content-Type", "application/pdf")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=approval_summary_%s_%s.pdf", period, sanitizeFilename(region)))
		if err := pdf.Output(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate PDF"})
			return
		}

		activityLog := models.ActivityLog{
			EventContext: "PDF Generation",
			EventName:    "Approval Summary",
			Description:  "Generated PDF approval summary",
			UserName:     userName,
			HostName:     session.HostName,
			IPAddress:    session.IPAddress,
			Period:       period,
			Region:       region,
			CreatedAt:    time.Now(),
		}
		if logErr := SaveActivityLog(db, activityLog); logErr != nil {
			log.Printf("Failed to log PDF generation activity: %v", logErr)
		}
	}
}
