package handlers

import (
	"backend/models"
	"backend/repository"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// engineErrorStatus maps an engine error kind to an HTTP status. Unknown
// errors fall through to 500.
func engineErrorStatus(err error) int {
	switch repository.KindOf(err) {
	case repository.KindUnauthorized:
		return http.StatusUnauthorized
	case repository.KindValidation:
		return http.StatusBadRequest
	case repository.KindNotFound:
		return http.StatusNotFound
	case repository.KindInvalidStateTransition:
		return http.StatusConflict
	case repository.KindEmptyResultSet:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// splitCategories parses the comma-separated categories query parameter.
func splitCategories(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

// GetComparisonMatrix builds the product x supplier comparison grid.
// @Summary Build comparison matrix
// @Description Builds the full product x supplier price grid for a period/region/category selection, with best prices, previous-period variance and the grouped overview. Requires Authorization header.
// @Tags Comparison
// @Accept json
// @Produce json
// @Param period query string true "Period (YYYY-MM)"
// @Param region query string true "Region"
// @Param categories query string false "Comma-separated categories (empty = all)"
// @Success 200 {object} models.ComparisonMatrix
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/comparison_matrix [get]
func GetComparisonMatrix(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, userName, ok := RequireManager(db, c)
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

		c.JSON(http.StatusOK, matrix)

		entry := models.ActivityLog{
			EventContext: "Comparison",
			EventName:    "GET",
			Description:  "Built comparison matrix",
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
}

// GetCategories returns all product categories for filter population.
// @Summary List categories
// @Description Returns all categories of active products. Requires Authorization header.
// @Tags Comparison
// @Produce json
// @Success 200 {object} models.FilterOptionsResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/categories [get]
func GetCategories(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, _, ok := RequireManager(db, c)
		if !ok {
			return
		}

		categories, err := repository.ListAllCategories(db)
		if err != nil {
			c.JSON(engineErrorStatus(err), gin.H{"error": "Failed to fetch categories", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, models.FilterOptionsResponse{Categories: categories})
	}
}

// GetRegions returns the regions quoted in a period.
// @Summary List regions for a period
// @Description Returns all regions with a non-cancelled quotation in the period. Requires Authorization header.
// @Tags Comparison
// @Produce json
// @Param period path string true "Period (YYYY-MM)"
// @Success 200 {object} models.FilterOptionsResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/regions/{period} [get]
func GetRegions(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, _, ok := RequireManager(db, c)
		if !ok {
			return
		}

		period := c.Param("period")
		regions, err := repository.ListRegions(db, period)
		if err != nil {
			c.JSON(engineErrorStatus(err), gin.H{"error": "Failed to fetch regions", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, models.FilterOptionsResponse{Period: period, Regions: regions})
	}
}

// GetRegionCategories returns the categories quoted in a period/region.
// @Summary List categories for a period and region
// @Description Returns the categories reachable through non-cancelled quotations of the period/region. Requires Authorization header.
// @Tags Comparison
// @Produce json
// @Param period path string true "Period (YYYY-MM)"
// @Param region path string true "Region"
// @Success 200 {object} models.FilterOptionsResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /api/regions/{period}/{region}/categories [get]
func GetRegionCategories(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, _, ok := RequireManager(db, c)
		if !ok {
			return
		}

		period := c.Param("period")
		region := c.Param("region")
		categories, err := repository.ListCategoriesForPeriodRegion(db, period, region)
		if err != nil {
			c.JSON(engineErrorStatus(err), gin.H{"error": "Failed to fetch categories", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, models.FilterOptionsResponse{
			Period:     period,
			Region:     region,
			Categories: categories,
		})
	}
}
