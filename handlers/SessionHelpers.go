package handlers

import (
	"backend/models"
	"database/sql"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Helper to fetch session details
func GetSessionDetails(db *sql.DB, sessionID string) (models.Session, string, error) {
	var session models.Session
	var userName string

	query := `
        SELECT s.user_id, CONCAT(u.first_name, ' ', u.last_name) AS user_name, s.host_name, s.ip_address
        FROM session s
        JOIN users u ON s.user_id = u.id
        WHERE s.session_id = $1 AND s.expires_at > NOW()`

	err := db.QueryRow(query, sessionID).Scan(
		&session.UserID,
		&userName,
		&session.HostName,
		&session.IPAddress,
	)
	if err != nil {
		return models.Session{}, "", err
	}
	return session, userName, nil
}

// roleForSession returns the role name of the session's user.
func roleForSession(db *sql.DB, sessionID string) (string, error) {
	var roleName string
	err := db.QueryRow(`
		SELECT r.role_name
		FROM session s
		JOIN users u ON s.user_id = u.id
		JOIN roles r ON u.role_id = r.role_id
		WHERE s.session_id = $1 AND s.expires_at > NOW()`, sessionID).Scan(&roleName)
	return roleName, err
}

// RequireManager checks the Authorization header and requires at least the
// manager role (manager, approver or admin). Returns the caller's session
// and display name, or false after writing the error response.
func RequireManager(db *sql.DB, c *gin.Context) (models.Session, string, bool) {
	return requireRole(db, c, map[string]bool{
		"manager":  true,
		"approver": true,
		"admin":    true,
	})
}

// RequireApprover checks the Authorization header and requires the elevated
// approval role (approver or admin). Price finalization goes through here.
func RequireApprover(db *sql.DB, c *gin.Context) (models.Session, string, bool) {
	return requireRole(db, c, map[string]bool{
		"approver": true,
		"admin":    true,
	})
}

func requireRole(db *sql.DB, c *gin.Context, allowed map[string]bool) (models.Session, string, bool) {
	sessionID := strings.TrimSpace(c.GetHeader("Authorization"))
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session-id header is required"})
		return models.Session{}, "", false
	}

	session, userName, err := GetSessionDetails(db, sessionID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
		return models.Session{}, "", false
	}

	roleName, err := roleForSession(db, sessionID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Failed to resolve role", "details": err.Error()})
		return models.Session{}, "", false
	}
	if !allowed[strings.ToLower(roleName)] {
		c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
		return models.Session{}, "", false
	}

	return session, userName, true
}

// Helper to save activity logs
func SaveActivityLog(db *sql.DB, entry models.ActivityLog) error {
	query := `
    INSERT INTO activity_logs (
        created_at, user_name, host_name, event_context, ip_address,
        description, event_name, period, region
    ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := db.Exec(query,
		entry.CreatedAt, entry.UserName, entry.HostName, entry.EventContext, entry.IPAddress,
		entry.Description, entry.EventName, entry.Period, entry.Region,
	)
	return err
}

// logQuotationEvent writes the audit row for a lifecycle mutation. Logging
// failures are not fatal to the request.
func logQuotationEvent(db *sql.DB, session models.Session, userName, eventName, description, period, region string) {
	entry := models.ActivityLog{
		EventContext: "Quotation",
		EventName:    eventName,
		Description:  description,
		UserName:     userName,
		HostName:     session.HostName,
		IPAddress:    session.IPAddress,
		Period:       period,
		Region:       region,
		CreatedAt:    time.Now(),
	}
	if err := SaveActivityLog(db, entry); err != nil {
		log.Printf("Failed to log quotation activity: %v", err)
	}
}
