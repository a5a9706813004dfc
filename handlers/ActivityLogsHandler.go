package handlers

import (
	"backend/models"
	"database/sql"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetActivityLogsHandler godoc
// @Summary      Get activity logs
// @Tags         activity-logs
// @Param        page   query  int  false  "Page"
// @Param        limit  query  int  false  "Limit"
// @Success      200    {object}  object
// @Router       /api/logs [get]
func GetActivityLogsHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		pageStr := c.DefaultQuery("page", "1")
		limitStr := c.DefaultQuery("limit", "10")

		page, err := strconv.Atoi(pageStr)
		if err != nil || page < 1 {
			page = 1
		}

		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			limit = 10
		}

		offset := (page - 1) * limit

		var totalRecords int
		countQuery := `SELECT COUNT(*) FROM activity_logs`
		if err := db.QueryRow(countQuery).Scan(&totalRecords); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error counting logs"})
			return
		}

		totalPages := int(math.Ceil(float64(totalRecords) / float64(limit)))
		hasNext := page < totalPages
		hasPrev := page > 1

		query := `
			SELECT id, created_at, user_name, host_name, event_context, ip_address,
				   description, event_name, period, region
			FROM activity_logs
			ORDER BY created_at DESC
			LIMIT $1 OFFSET $2
		`

		rows, err := db.Query(query, limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error querying logs"})
			return
		}
		defer rows.Close()

		var logs []models.ActivityLog
		for rows.Next() {
			entry, err := scanActivityLog(rows)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error scanning logs"})
				return
			}
			logs = append(logs, entry)
		}

		c.JSON(http.StatusOK, gin.H{
			"logs": logs,
			"pagination": gin.H{
				"current_page":  page,
				"page_size":     limit,
				"total_records": totalRecords,
				"total_pages":   totalPages,
				"has_next":      hasNext,
				"has_prev":      hasPrev,
			},
		})
	}
}

func scanActivityLog(rows *sql.Rows) (models.ActivityLog, error) {
	var (
		entry        models.ActivityLog
		userName     sql.NullString
		hostName     sql.NullString
		eventContext sql.NullString
		ipAddress    sql.NullString
		description  sql.NullString
		eventName    sql.NullString
		period       sql.NullString
		region       sql.NullString
	)

	err := rows.Scan(
		&entry.ID, &entry.CreatedAt, &userName, &hostName, &eventContext, &ipAddress,
		&description, &eventName, &period, &region,
	)
	if err != nil {
		return models.ActivityLog{}, err
	}

	entry.UserName = getStringOrEmpty(userName)
	entry.HostName = getStringOrEmpty(hostName)
	entry.EventContext = getStringOrEmpty(eventContext)
	entry.IPAddress = getStringOrEmpty(ipAddress)
	entry.Description = getStringOrEmpty(description)
	entry.EventName = getStringOrEmpty(eventName)
	entry.Period = getStringOrEmpty(period)
	entry.Region = getStringOrEmpty(region)
	return entry, nil
}

func getStringOrEmpty(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// SearchActivityLogsHandler godoc
// @Summary      Search activity logs
// @Tags         activity-logs
// @Param        q  query  string  false  "Search query"
// @Success      200  {object}  object
// @Router       /api/log/search [get]
func SearchActivityLogsHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		filters := map[string]interface{}{
			"user_name":     c.Query("user_name"),
			"host_name":     c.Query("host_name"),
			"event_context": c.Query("event_context"),
			"ip_address":    c.Query("ip_address"),
			"description":   c.Query("description"),
			"event_name":    c.Query("event_name"),
			"period":        c.Query("period"),
			"region":        c.Query("region"),
		}

		// Optional match type for event_context (default: contains)
		eventContextMatch := c.DefaultQuery("event_context_match", "contains")

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
		if page < 1 {
			page = 1
		}
		if limit < 1 {
			limit = 10
		}
		offset := (page - 1) * limit

		whereClauses := []string{}
		args := []interface{}{}
		argIndex := 1

		for key, value := range filters {
			strVal := strings.TrimSpace(fmt.Sprintf("%v", value))
			if strVal == "" {
				continue
			}

			switch key {
			case "period":
				whereClauses = append(whereClauses, fmt.Sprintf("%s = $%d", key, argIndex))
				args = append(args, strVal)

			case "event_context":
				if eventContextMatch == "exact" {
					whereClauses = append(whereClauses, fmt.Sprintf("%s = $%d", key, argIndex))
					args = append(args, strVal)
				} else {
					whereClauses = append(whereClauses, fmt.Sprintf("%s ILIKE $%d", key, argIndex))
					args = append(args, "%"+strVal+"%")
				}

			default:
				whereClauses = append(whereClauses, fmt.Sprintf("%s ILIKE $%d", key, argIndex))
				args = append(args, "%"+strVal+"%")
			}
			argIndex++
		}

		countQuery := `SELECT COUNT(*) FROM activity_logs`
		if len(whereClauses) > 0 {
			countQuery += " WHERE " + strings.Join(whereClauses, " AND ")
		}

		var totalRecords int
		err := db.QueryRow(countQuery, args...).Scan(&totalRecords)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error counting logs"})
			return
		}

		totalPages := int(math.Ceil(float64(totalRecords) / float64(limit)))
		hasNext := page < totalPages
		hasPrev := page > 1

		selectQuery := `
			SELECT id, created_at, user_name, host_name, event_context, ip_address,
				   description, event_name, period, region
			FROM activity_logs
		`
		if len(whereClauses) > 0 {
			selectQuery += " WHERE " + strings.Join(whereClauses, " AND ")
		}
		selectQuery += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)

		args = append(args, limit, offset)

		rows, err := db.Query(selectQuery, args...)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error searching logs"})
			return
		}
		defer rows.Close()

		var logs []models.ActivityLog
		for rows.Next() {
			entry, err := scanActivityLog(rows)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error scanning logs"})
				return
			}
			logs = append(logs, entry)
		}

		c.JSON(http.StatusOK, gin.H{
			"logs": logs,
			"pagination": gin.H{
				"current_page":  page,
				"page_size":     limit,
				"total_records": totalRecords,
				"total_pages":   totalPages,
				"has_next":      hasNext,
				"has_prev":      hasPrev,
			},
		})
	}
}
