package handlers

import (
	"backend/models"
	"backend/services"
	"database/sql"
	"fmt"
	"log"
	"os"
)

// Global FCM service - will be set from main.go
var GlobalFCMService *services.FCMService

// Global email service - will be set from main.go
var GlobalEmailService *services.EmailService

// SetFCMService sets the global FCM service
func SetFCMService(fcmService *services.FCMService) {
	GlobalFCMService = fcmService
}

// SetEmailService sets the global email service
func SetEmailService(emailService *services.EmailService) {
	GlobalEmailService = emailService
}

// SendNotificationHelper is a convenience function to send push notifications
// This can be called from any handler without needing to pass fcmService
func SendNotificationHelper(db *sql.DB, userID int, title, body string, data map[string]string, action string) {
	SendPushNotification(db, GlobalFCMService, userID, title, body, data, action)
}

// SendNotificationToUsersHelper sends notifications to multiple users
func SendNotificationToUsersHelper(db *sql.DB, userIDs []int, title, body string, data map[string]string) {
	SendPushNotificationToUsers(db, GlobalFCMService, userIDs, title, body, data)
}

// sendNotificationToRole sends notifications to every active user holding one
// of the given roles.
func sendNotificationToRole(db *sql.DB, roleNames []string, title, body string, data map[string]string) {
	if len(roleNames) == 0 {
		return
	}

	args := make([]interface{}, len(roleNames))
	placeholders := ""
	for i, name := range roleNames {
		if i > 0 {
			placeholders += ","
		}
		placeholders += fmt.Sprintf("$%d", i+1)
		args[i] = name
	}

	query := fmt.Sprintf(`
		SELECT u.id
		FROM users u
		JOIN roles r ON u.role_id = r.role_id
		WHERE LOWER(r.role_name) IN (%s) AND u.suspended = false`, placeholders)

	rows, err := db.Query(query, args...)
	if err != nil {
		log.Printf("Error fetching users by role for notification: %v", err)
		return
	}
	defer rows.Close()

	var userIDs []int
	for rows.Next() {
		var userID int
		if err := rows.Scan(&userID); err != nil {
			log.Printf("Error scanning user ID: %v", err)
			continue
		}
		userIDs = append(userIDs, userID)
	}

	if len(userIDs) > 0 {
		SendNotificationToUsersHelper(db, userIDs, title, body, data)
	}
}

// notifyQuotationApproved notifies managers and approvers that a quotation was
// approved and emails the supplier contact. Failures are logged, never
// surfaced to the caller.
func notifyQuotationApproved(db *sql.DB, quotationID int, approverName string) {
	var (
		reference     string
		period        string
		region        string
		supplierName  string
		supplierEmail sql.NullString
		approvedValue float64
		approvedItems int
	)
	err := db.QueryRow(`
		SELECT q.reference, q.period, q.region, s.name, s.email,
		       COALESCE(SUM(qi.approved_price * qi.quantity), 0),
		       COUNT(qi.item_id)
		FROM quotations q
		JOIN suppliers s ON s.supplier_id = q.supplier_id
		LEFT JOIN quote_items qi ON qi.quotation_id = q.quotation_id AND qi.approved_price IS NOT NULL
		WHERE q.quotation_id = $1
		GROUP BY q.reference, q.period, q.region, s.name, s.email`, quotationID).
		Scan(&reference, &period, &region, &supplierName, &supplierEmail, &approvedValue, &approvedItems)
	if err != nil {
		log.Printf("Error fetching quotation %d for approval notification: %v", quotationID, err)
		return
	}

	title := "Quotation approved"
	body := fmt.Sprintf("Quotation %s (%s, %s / %s) approved by %s", reference, supplierName, period, region, approverName)
	data := map[string]string{
		"quotation_id": fmt.Sprintf("%d", quotationID),
		"reference":    reference,
		"action":       "quotation_approved",
	}

	sendNotificationToRole(db, []string{"manager", "approver", "admin"}, title, body, data)

	if GlobalEmailService != nil && supplierEmail.Valid && supplierEmail.String != "" {
		emailData := models.EmailData{
			Email:         supplierEmail.String,
			UserName:      supplierName,
			SupplierName:  supplierName,
			Reference:     reference,
			Period:        period,
			Region:        region,
			ApprovedValue: fmt.Sprintf("%.2f", approvedValue),
			ApprovedItems: fmt.Sprintf("%d", approvedItems),
			SupportEmail:  os.Getenv("SUPPORT_EMAIL"),
			LoginURL:      os.Getenv("APP_LOGIN_URL"),
		}
		if err := GlobalEmailService.SendQuotationApprovedEmail(emailData); err != nil {
			log.Printf("Error sending approval email for quotation %d: %v", quotationID, err)
		}
	}
}
