package handlers

import (
	"backend/models"
	"backend/repository"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CreateKitchenDemandRequest is the payload for creating a demand row.
type CreateKitchenDemandRequest struct {
	KitchenID int     `json:"kitchen_id" binding:"required" example:"1"`
	ProductID int     `json:"product_id" binding:"required" example:"1"`
	Period    string  `json:"period" binding:"required" example:"2024-06"`
	Quantity  float64 `json:"quantity" binding:"required" example:"25"`
}

// UpdateKitchenDemandRequest is the payload for updating a demand quantity.
type UpdateKitchenDemandRequest struct {
	Quantity float64 `json:"quantity" binding:"required" example:"30"`
}

// GetKitchenDemands godoc
// @Summary      List kitchen period demands
// @Description  Lists demand rows, optionally filtered by period, kitchen, product and status.
// @Tags         kitchen-demands
// @Param        period      query  string  false  "Period (YYYY-MM)"
// @Param        kitchen_id  query  int     false  "Kitchen ID"
// @Param        product_id  query  int     false  "Product ID"
// @Param        status      query  string  false  "Status (active/closed)"
// @Success      200  {array}   models.KitchenPeriodDemandGorm
// @Failure      400  {object}  models.ErrorResponse
// @Router       /api/kitchen_demands [get]
func GetKitchenDemands(gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := gdb.Model(&models.KitchenPeriodDemandGorm{})

		if period := c.Query("period"); period != "" {
			if err := repository.ValidatePeriod(period); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid period format, expected YYYY-MM"})
				return
			}
			query = query.Where("period = ?", period)
		}
		if kitchenID := c.Query("kitchen_id"); kitchenID != "" {
			id, err := strconv.Atoi(kitchenID)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid kitchen_id"})
				return
			}
			query = query.Where("kitchen_id = ?", id)
		}
		if productID := c.Query("product_id"); productID != "" {
			id, err := strconv.Atoi(productID)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid product_id"})
				return
			}
			query = query.Where("product_id = ?", id)
		}
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}

		var demands []models.KitchenPeriodDemandGorm
		if err := query.Order("period DESC, kitchen_id, product_id").Find(&demands).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch kitchen demands", "details": err.Error()})
			return
		}

		if demands == nil {
			demands = []models.KitchenPeriodDemandGorm{}
		}
		c.JSON(http.StatusOK, demands)
	}
}

// CreateKitchenDemand godoc
// @Summary      Create a kitchen period demand
// @Description  Records the quantity a kitchen needs of a product for a period. One active row per (kitchen, product, period).
// @Tags         kitchen-demands
// @Accept       json
// @Param        demand  body  CreateKitchenDemandRequest  true  "Demand"
// @Success      201  {object}  models.KitchenPeriodDemandGorm
// @Failure      400  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse
// @Router       /api/kitchen_demands [post]
func CreateKitchenDemand(db *sql.DB, gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, userName, ok := RequireManager(db, c)
		if !ok {
			return
		}

		var req CreateKitchenDemandRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}
		if err := repository.ValidatePeriod(req.Period); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid period format, expected YYYY-MM"})
			return
		}
		if req.Quantity <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity must be positive"})
			return
		}

		var existing models.KitchenPeriodDemandGorm
		err := gdb.Where("kitchen_id = ? AND product_id = ? AND period = ? AND status = 'active'",
			req.KitchenID, req.ProductID, req.Period).First(&existing).Error
		if err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "An active demand already exists for this kitchen, product and period"})
			return
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check existing demand", "details": err.Error()})
			return
		}

		demand := models.KitchenPeriodDemandGorm{
			KitchenID: req.KitchenID,
			ProductID: req.ProductID,
			Period:    req.Period,
			Quantity:  req.Quantity,
			Status:    "active",
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := gdb.Create(&demand).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create kitchen demand", "details": err.Error()})
			return
		}

		c.JSON(http.StatusCreated, demand)

		logDemandEvent(db, session, userName, "Create",
			"Created demand for product "+strconv.Itoa(req.ProductID)+" in period "+req.Period, req.Period)
	}
}

// UpdateKitchenDemand godoc
// @Summary      Update a kitchen period demand quantity
// @Tags         kitchen-demands
// @Accept       json
// @Param        id      path  int                         true  "Demand ID"
// @Param        demand  body  UpdateKitchenDemandRequest  true  "New quantity"
// @Success      200  {object}  models.KitchenPeriodDemandGorm
// @Failure      400  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/kitchen_demands/{id} [put]
func UpdateKitchenDemand(db *sql.DB, gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, userName, ok := RequireManager(db, c)
		if !ok {
			return
		}

		demandID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid demand ID"})
			return
		}

		var req UpdateKitchenDemandRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}
		if req.Quantity <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity must be positive"})
			return
		}

		var demand models.KitchenPeriodDemandGorm
		if err := gdb.First(&demand, demandID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Kitchen demand not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch kitchen demand", "details": err.Error()})
			return
		}
		if demand.Status != "active" {
			c.JSON(http.StatusConflict, gin.H{"error": "Only active demands can be updated"})
			return
		}

		demand.Quantity = req.Quantity
		demand.UpdatedAt = time.Now()
		if err := gdb.Save(&demand).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update kitchen demand", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, demand)

		logDemandEvent(db, session, userName, "Update",
			"Updated demand "+strconv.Itoa(demandID)+" to quantity "+strconv.FormatFloat(req.Quantity, 'f', 2, 64), demand.Period)
	}
}

// CloseKitchenDemand godoc
// @Summary      Close a kitchen period demand
// @Description  Closed demands no longer feed the demand resolver; the product falls back to its base quantity.
// @Tags         kitchen-demands
// @Param        id  path  int  true  "Demand ID"
// @Success      200  {object}  models.MessageResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/kitchen_demands/{id}/close [post]
func CloseKitchenDemand(db *sql.DB, gdb *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, userName, ok := RequireManager(db, c)
		if !ok {
			return
		}

		demandID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid demand ID"})
			return
		}

		result := gdb.Model(&models.KitchenPeriodDemandGorm{}).
			Where("id = ? AND status = 'active'", demandID).
			Updates(map[string]interface{}{"status": "closed", "updated_at": time.Now()})
		if result.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to close kitchen demand", "details": result.Error.Error()})
			return
		}
		if result.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Active kitchen demand not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Kitchen demand closed"})

		logDemandEvent(db, session, userName, "Close", "Closed demand "+strconv.Itoa(demandID), "")
	}
}

func logDemandEvent(db *sql.DB, session models.Session, userName, eventName, description, period string) {
	entry := models.ActivityLog{
		EventContext: "KitchenDemand",
		EventName:    eventName,
		Description:  description,
		UserName:     userName,
		HostName:     session.HostName,
		IPAddress:    session.IPAddress,
		Period:       period,
		CreatedAt:    time.Now(),
	}
	if err := SaveActivityLog(db, entry); err != nil {
		log.Printf("Failed to log kitchen demand activity: %v", err)
	}
}
