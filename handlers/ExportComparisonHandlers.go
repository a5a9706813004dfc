package handlers

import (
	"backend/repository"
	"backend/storage"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// sanitizeFilename strips characters that break Content-Disposition.
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	for _, ch := range []string{" ", "/", "\\", ":", "*", "?", "\"", "<", ">", "|"} {
		name = strings.ReplaceAll(name, ch, "-")
	}
	return name
}

// ExportComparisonCSV exports the comparison matrix as a flat CSV.
// @Summary Export comparison matrix as CSV
// @Tags export
// @Produce text/csv
// @Param period query string true "Period (YYYY-MM)"
// @Param region query string true "Region"
// @Param categories query string false "Comma-separated categories"
// @Success 200 {file} file "CSV file"
// @Failure 400 {object} models.ErrorResponse
// @Router /api/export_csv_comparison [get]
func ExportComparisonCSV(c *gin.Context) {
	db := storage.GetDB()

	_, _, ok := RequireManager(db, c)
	if !ok {
		return
	}

	period := c.Query("period")
	region := c.Query("region")
	categories := splitCategories(c.Query("categories"))

	matrix, err := repository.BuildComparisonMatrix(db, period, region, categories)
	if err != nil {
		c.JSON(engineErrorStatus(err), gin.H{"error": "Failed to build comparison matrix", "details": err.Error()})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment;filename=comparison_%s_%s.csv", period, sanitizeFilename(region)))

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	header := []string{"ProductCode", "ProductName", "Category", "Unit", "Quantity", "QuantitySource"}
	for _, s := range matrix.Suppliers {
		header = append(header, s.Code)
	}
	header = append(header, "BestSupplier", "BestPrice", "PreviousApproved")
	if err := writer.Write(header); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing CSV header"})
		return
	}

	supplierName := make(map[int]string, len(matrix.Suppliers))
	for _, s := range matrix.Suppliers {
		supplierName[s.SupplierID] = s.Code
	}

	for _, p := range matrix.Products {
		row := []string{
			p.Code, p.Name, p.Category, p.Unit,
			fmt.Sprintf("%g", p.ResolvedQuantity), p.QuantitySource,
		}
		for _, s := range matrix.Suppliers {
			if q, okQ := p.Quotes[s.SupplierID]; okQ {
				row = append(row, fmt.Sprintf("%.2f", q.PricePerUnit))
			} else {
				row = append(row, "")
			}
		}
		best, prev := "", ""
		price := ""
		if p.HasBestPrice {
			best = supplierName[p.BestSupplierID]
			price = fmt.Sprintf("%.2f", p.BestPrice)
		}
		if p.PreviousApprovedPrice != nil {
			prev = fmt.Sprintf("%.2f", p.PreviousApprovedPrice.Price)
		}
		row = append(row, best, price, prev)

		if err := writer.Write(row); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing CSV row"})
			return
		}
	}
}

// ExportComparisonExcel exports the comparison matrix and the grouped
// overview to Excel.
// @Summary Export comparison matrix to Excel
// @Tags export
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param period query string true "Period (YYYY-MM)"
// @Param region query string true "Region"
// @Param categories query string false "Comma-separated categories"
// @Success 200 {file} file "Excel file"
// @Failure 400 {object} models.ErrorResponse
// @Router /api/export_excel_comparison [get]
func ExportComparisonExcel(c *gin.Context) {
	db := storage.GetDB()

	_, _, ok := RequireManager(db, c)
	if !ok {
		return
	}

	period := c.Query("period")
	region := c.Query("region")
	categories := splitCategories(c.Query("categories"))

	matrix, err := repository.BuildComparisonMatrix(db, period, region, categories)
	if err != nil {
		c.JSON(engineErrorStatus(err), gin.H{"error": "Failed to build comparison matrix", "details": err.Error()})
		return
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error closing Excel file"})
		}
	}()

	sheetName := "Comparison"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating sheet"})
		return
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:   true,
			Size:   12,
			Family: "Arial",
			Color:  "#FFFFFF",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#4472C4"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "#000000", Style: 1},
			{Type: "top", Color: "#000000", Style: 1},
			{Type: "right", Color: "#000000", Style: 1},
			{Type: "bottom", Color: "#000000", Style: 1},
		},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating header style"})
		return
	}

	bestStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:   true,
			Size:   11,
			Family: "Arial",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#C6EFCE"},
			Pattern: 1,
		},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating best price style"})
		return
	}

	baseHeaders := []string{"Product Code", "Product Name", "Category", "Unit", "Quantity", "Source"}
	for i, col := range baseHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating cell name"})
			return
		}
		f.SetCellValue(sheetName, cell, col)
	}

	supplierStartCol := len(baseHeaders) + 1
	for i, s := range matrix.Suppliers {
		cell, err := excelize.CoordinatesToCellName(supplierStartCol+i, 1)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating supplier cell name"})
			return
		}
		f.SetCellValue(sheetName, cell, fmt.Sprintf("%s (%s)", s.Name, s.Code))
	}

	trailingHeaders := []string{"Best Supplier", "Best Price", "Previous Approved", "Variance %"}
	trailingStartCol := supplierStartCol + len(matrix.Suppliers)
	for i, col := range trailingHeaders {
		cell, err := excelize.CoordinatesToCellName(trailingStartCol+i, 1)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating trailing cell name"})
			return
		}
		f.SetCellValue(sheetName, cell, col)
	}

	totalColumns := trailingStartCol + len(trailingHeaders) - 1
	startCell, _ := excelize.CoordinatesToCellName(1, 1)
	endCell, _ := excelize.CoordinatesToCellName(totalColumns, 1)
	f.SetCellStyle(sheetName, startCell, endCell, headerStyle)
	f.SetRowHeight(sheetName, 1, 25)

	supplierCode := make(map[int]string, len(matrix.Suppliers))
	for _, s := range matrix.Suppliers {
		supplierCode[s.SupplierID] = s.Code
	}

	row := 2
	for _, p := range matrix.Products {
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), p.Code)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), p.Name)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), p.Category)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), p.Unit)
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), p.ResolvedQuantity)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), p.QuantitySource)

		for i, s := range matrix.Suppliers {
			cell, err := excelize.CoordinatesToCellName(supplierStartCol+i, row)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating quote cell name"})
				return
			}
			q, okQ := p.Quotes[s.SupplierID]
			if !okQ {
				continue
			}
			f.SetCellValue(sheetName, cell, q.PricePerUnit)
			if p.HasBestPrice && p.BestSupplierID == s.SupplierID {
				f.SetCellStyle(sheetName, cell, cell, bestStyle)
			}
		}

		if p.HasBestPrice {
			bestCell, _ := excelize.CoordinatesToCellName(trailingStartCol, row)
			priceCell, _ := excelize.CoordinatesToCellName(trailingStartCol+1, row)
			f.SetCellValue(sheetName, bestCell, supplierCode[p.BestSupplierID])
			f.SetCellValue(sheetName, priceCell, p.BestPrice)
		}
		if p.PreviousApprovedPrice != nil {
			prevCell, _ := excelize.CoordinatesToCellName(trailingStartCol+2, row)
			f.SetCellValue(sheetName, prevCell, p.PreviousApprovedPrice.Price)
			if p.HasBestPrice && p.PreviousApprovedPrice.Price != 0 {
				varCell, _ := excelize.CoordinatesToCellName(trailingStartCol+3, row)
				variance := (p.BestPrice - p.PreviousApprovedPrice.Price) / p.PreviousApprovedPrice.Price * 100
				f.SetCellValue(sheetName, varCell, variance)
			}
		}
		row++
	}

	for i := 1; i <= totalColumns; i++ {
		col, err := excelize.CoordinatesToCellName(i, 1)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating column name"})
			return
		}
		f.SetColWidth(sheetName, col, col, 18)
	}

	// Second sheet: the grouped overview per region/category/supplier.
	overviewSheet := "Overview"
	if _, err := f.NewSheet(overviewSheet); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating overview sheet"})
		return
	}

	overviewHeaders := []string{"Region", "Category", "Supplier", "Quoted Products", "Total Value", "Previous Value", "Variance %"}
	for i, col := range overviewHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating overview cell name"})
			return
		}
		f.SetCellValue(overviewSheet, cell, col)
	}
	ovStart, _ := excelize.CoordinatesToCellName(1, 1)
	ovEnd, _ := excelize.CoordinatesToCellName(len(overviewHeaders), 1)
	f.SetCellStyle(overviewSheet, ovStart, ovEnd, headerStyle)

	ovRow := 2
	for _, rg := range matrix.GroupedOverview {
		for _, cg := range rg.Categories {
			for _, sp := range cg.Suppliers {
				f.SetCellValue(overviewSheet, fmt.Sprintf("A%d", ovRow), rg.Region)
				f.SetCellValue(overviewSheet, fmt.Sprintf("B%d", ovRow), cg.Category)
				f.SetCellValue(overviewSheet, fmt.Sprintf("C%d", ovRow), sp.SupplierCode)
				f.SetCellValue(overviewSheet, fmt.Sprintf("D%d", ovRow), sp.ProductCount)
				f.SetCellValue(overviewSheet, fmt.Sprintf("E%d", ovRow), sp.TotalCurrentValue)
				if sp.HasAnyPreviousData {
					f.SetCellValue(overviewSheet, fmt.Sprintf("F%d", ovRow), sp.TotalPreviousValue)
					f.SetCellValue(overviewSheet, fmt.Sprintf("G%d", ovRow), sp.VarianceVsPrevious.Percentage)
				}
				ovRow++
			}
		}
	}
	for i := 1; i <= len(overviewHeaders); i++ {
		col, _ := excelize.CoordinatesToCellName(i, 1)
		f.SetColWidth(overviewSheet, col, col, 20)
	}

	filename := fmt.Sprintf("comparison_%s_%s.xlsx", period, sanitizeFilename(region))
	escaped := url.PathEscape(filename)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"; filename*=UTF-8''%s", filename, escaped))

	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error writing Excel file"})
		return
	}
}
