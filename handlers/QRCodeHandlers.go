package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"
)

// addLabel adds text to an image at the specified position with larger font
func addLabel(img *image.RGBA, x, y int, label string, fontSize float64) {
	col := color.RGBA{0, 0, 0, 255}

	face := inconsolata.Regular8x16
	if fontSize > 16 {
		face = inconsolata.Bold8x16
	}

	point := fixed.Point26_6{
		X: fixed.Int26_6(x * 64),
		Y: fixed.Int26_6(y * 64),
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  point,
	}
	d.DrawString(label)
}

// addLabelBold adds bold text with larger font for labels
func addLabelBold(img *image.RGBA, x, y int, label string) {
	col := color.RGBA{30, 30, 30, 255}
	face := inconsolata.Bold8x16

	point := fixed.Point26_6{
		X: fixed.Int26_6(x * 64),
		Y: fixed.Int26_6(y * 64),
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  point,
	}
	d.DrawString(label)
}

// GenerateQuotationQRCode godoc
// @Summary      Generate a quotation label as JPEG with QR code
// @Description  Renders a QR code encoding the quotation reference and status, with a printable label block underneath.
// @Tags         qr
// @Param        id   path      int  true  "Quotation ID"
// @Success      200  {file}    file  "JPEG image"
// @Failure      400  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/quotation_qr/{id} [get]
func GenerateQuotationQRCode(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		quotationID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quotation ID"})
			return
		}

		var reference, period, region, status, supplierName, supplierCode string
		var itemCount int
		err = db.QueryRow(`
			SELECT q.reference, q.period, q.region, q.status, s.name, s.code,
			       (SELECT COUNT(*) FROM quote_items qi WHERE qi.quotation_id = q.quotation_id)
			FROM quotations q
			JOIN suppliers s ON s.supplier_id = q.supplier_id
			WHERE q.quotation_id = $1`, quotationID).
			Scan(&reference, &period, &region, &status, &supplierName, &supplierCode, &itemCount)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "Quotation not found"})
				return
			}
			log.Printf("Error fetching quotation details: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch quotation details"})
			return
		}

		qrData := struct {
			ID        int    `json:"id"`
			Reference string `json:"reference"`
			Status    string `json:"status"`
			Period    string `json:"period"`
			Region    string `json:"region"`
		}{
			ID:        quotationID,
			Reference: reference,
			Status:    status,
			Period:    period,
			Region:    region,
		}

		jsonData, err := json.Marshal(qrData)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to marshal quotation data"})
			return
		}

		qr, err := qrcode.New(string(jsonData), qrcode.Medium)
		if err != nil {
			c.String(http.StatusInternalServerError, "QR code generation failed")
			return
		}

		qrImg := qr.Image(512)

		qrSize := qrImg.Bounds().Dy()
		padding := 30
		lineHeight := 28
		textAreaHeight := 5*lineHeight + padding
		totalHeight := qrSize + padding + textAreaHeight

		combinedImg := image.NewRGBA(image.Rect(0, 0, qrSize, totalHeight))
		draw.Draw(combinedImg, combinedImg.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)

		qrRect := image.Rect(0, 0, qrSize, qrSize)
		draw.Draw(combinedImg, qrRect, qrImg, image.Point{}, draw.Src)

		separatorY := qrSize + padding/2
		for x := 0; x < qrSize; x++ {
			combinedImg.Set(x, separatorY, color.RGBA{200, 200, 200, 255})
		}

		startY := qrSize + padding + lineHeight
		xPos := 20

		supplierDisplay := supplierName
		if len(supplierDisplay) > 30 {
			supplierDisplay = supplierDisplay[:27] + "..."
		}

		addLabelBold(combinedImg, xPos, startY, "Reference:")
		addLabel(combinedImg, xPos+120, startY, reference, 16)

		addLabelBold(combinedImg, xPos, startY+lineHeight, "Supplier:")
		addLabel(combinedImg, xPos+120, startY+lineHeight, supplierDisplay, 16)

		addLabelBold(combinedImg, xPos, startY+2*lineHeight, "Period:")
		addLabel(combinedImg, xPos+120, startY+2*lineHeight, period, 16)

		addLabelBold(combinedImg, xPos, startY+3*lineHeight, "Region:")
		addLabel(combinedImg, xPos+120, startY+3*lineHeight, region, 16)

		addLabelBold(combinedImg, xPos, startY+4*lineHeight, "Status:")
		addLabel(combinedImg, xPos+120, startY+4*lineHeight, status+" / "+strconv.Itoa(itemCount)+" items", 16)

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, combinedImg, nil); err != nil {
			c.String(http.StatusInternalServerError, "JPEG encoding failed")
			return
		}

		c.Data(http.StatusOK, "image/jpeg", buf.Bytes())
	}
}
