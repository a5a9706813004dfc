package handlers

import (
	"backend/models"
	"backend/services"
	"context"
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// sessionUserID resolves the Authorization header to a user id. Writes the
// error response and returns false when the session is missing or stale.
func sessionUserID(db *sql.DB, c *gin.Context) (int, bool) {
	sessionID := c.GetHeader("Authorization")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Authorization header is required"})
		return 0, false
	}

	var userID int
	err := db.QueryRow(`
		SELECT user_id FROM session
		WHERE session_id = $1 AND expires_at > NOW()`, sessionID).Scan(&userID)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session"})
		return 0, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching session", "details": err.Error()})
		return 0, false
	}
	return userID, true
}

// CreateNotificationHandler stores an in-app notification for the caller.
// Approval fan-out writes rows through the FCM service instead; this endpoint
// covers self-created reminders (e.g. a buyer flagging a quotation to revisit).
// @Summary Create notification
// @Description Creates an in-app notification for the current user. Requires Authorization header.
// @Tags Notifications
// @Accept json
// @Produce json
// @Param body body models.Notification true "Notification"
// @Success 200 {object} models.Notification
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/notifications [post]
func CreateNotificationHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := sessionUserID(db, c)
		if !ok {
			return
		}

		var notif models.Notification
		if err := c.BindJSON(&notif); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}

		notif.UserID = userID
		notif.Status = "unread"
		now := time.Now()
		notif.CreatedAt = now
		notif.UpdatedAt = now

		err := db.QueryRow(`
			INSERT INTO notifications (user_id, message, status, action, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			notif.UserID, notif.Message, notif.Status, notif.Action, notif.CreatedAt, notif.UpdatedAt).Scan(&notif.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to insert notification", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, notif)
	}
}

// GetMyNotificationsHandler lists the caller's notifications, newest first.
// Approval pushes land here alongside self-created reminders.
// @Summary Get my notifications
// @Description Returns the current user's notifications, newest first. Requires Authorization header.
// @Tags Notifications
// @Produce json
// @Success 200 {array} models.Notification
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/notifications [get]
func GetMyNotificationsHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := sessionUserID(db, c)
		if !ok {
			return
		}

		rows, err := db.Query(`
			SELECT id, user_id, message, status, action, created_at, updated_at
			FROM notifications
			WHERE user_id = $1
			ORDER BY created_at DESC`, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notifications", "details": err.Error()})
			return
		}
		defer rows.Close()

		notifications := []models.Notification{}
		for rows.Next() {
			var n models.Notification
			if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Status, &n.Action, &n.CreatedAt, &n.UpdatedAt); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error scanning notification"})
				return
			}
			notifications = append(notifications, n)
		}

		c.JSON(http.StatusOK, notifications)
	}
}

// MarkNotificationAsReadHandler marks one of the caller's notifications read.
// @Summary Mark notification as read
// @Description Marks one of the current user's notifications as read. Requires Authorization header.
// @Tags Notifications
// @Produce json
// @Param id path int true "Notification ID"
// @Success 200 {object} models.MessageResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/notifications/{id}/read [put]
func MarkNotificationAsReadHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := sessionUserID(db, c)
		if !ok {
			return
		}
		notifID := c.Param("id")

		result, err := db.Exec(`
			UPDATE notifications SET status = 'read', updated_at = $1
			WHERE id = $2 AND user_id = $3`, time.Now(), notifID, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification", "details": err.Error()})
			return
		}
		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
	}
}

// MarkAllNotificationsAsReadHandler clears the caller's unread backlog.
// @Summary Mark all notifications as read
// @Description Marks all of the current user's unread notifications as read. Requires Authorization header.
// @Tags Notifications
// @Produce json
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/notifications/read-all [put]
func MarkAllNotificationsAsReadHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := sessionUserID(db, c)
		if !ok {
			return
		}

		result, err := db.Exec(`
			UPDATE notifications SET status = 'read', updated_at = $1
			WHERE user_id = $2 AND status = 'unread'`, time.Now(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notifications", "details": err.Error()})
			return
		}
		rowsAffected, _ := result.RowsAffected()

		c.JSON(http.StatusOK, gin.H{
			"message":       "All notifications marked as read",
			"rows_affected": rowsAffected,
		})
	}
}

// DeleteNotificationHandler deletes one of the caller's notifications.
// @Summary Delete notification
// @Description Deletes one of the current user's notifications. Requires Authorization header.
// @Tags Notifications
// @Produce json
// @Param id path int true "Notification ID"
// @Success 200 {object} models.MessageResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/notifications/{id} [delete]
func DeleteNotificationHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := sessionUserID(db, c)
		if !ok {
			return
		}
		notifID := c.Param("id")

		result, err := db.Exec(`
			DELETE FROM notifications WHERE id = $1 AND user_id = $2`, notifID, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete notification", "details": err.Error()})
			return
		}
		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Notification deleted"})
	}
}

// RegisterFCMTokenHandler binds a device token to the caller so approval
// pushes reach them.
// @Summary Register FCM token
// @Description Registers the current user's device token for push notifications. Requires Authorization header.
// @Tags Notifications
// @Accept json
// @Produce json
// @Param body body object true "token"
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/fcm/register-token [post]
func RegisterFCMTokenHandler(db *sql.DB, fcmService *services.FCMService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := sessionUserID(db, c)
		if !ok {
			return
		}

		var request struct {
			Token string `json:"token" binding:"required"`
		}
		if err := c.BindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. Token is required."})
			return
		}

		if fcmService != nil {
			if err := fcmService.SaveFCMToken(userID, request.Token); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save FCM token", "details": err.Error()})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"message": "FCM token registered successfully"})
	}
}

// RemoveFCMTokenHandler unbinds the caller's device token, e.g. on logout.
// @Summary Remove FCM token
// @Description Removes the current user's device token. Requires Authorization header.
// @Tags Notifications
// @Produce json
// @Success 200 {object} models.MessageResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/fcm/remove-token [delete]
func RemoveFCMTokenHandler(db *sql.DB, fcmService *services.FCMService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := sessionUserID(db, c)
		if !ok {
			return
		}

		if fcmService != nil {
			if err := fcmService.RemoveFCMToken(userID); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove FCM token", "details": err.Error()})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"message": "FCM token removed successfully"})
	}
}

// SendPushNotification pushes to one user and records the in-app row.
func SendPushNotification(db *sql.DB, fcmService *services.FCMService, userID int, title, body string, data map[string]string, action string) {
	if fcmService == nil {
		log.Printf("FCM service unavailable, skipping push to user %d", userID)
		return
	}

	if err := fcmService.SendNotificationWithDB(context.Background(), userID, title, body, data, action); err != nil {
		log.Printf("Failed to push notification to user %d: %v", userID, err)
	}
}

// SendPushNotificationToUsers pushes to a set of users and records one
// in-app row per user. Used by the approval fan-out.
func SendPushNotificationToUsers(db *sql.DB, fcmService *services.FCMService, userIDs []int, title, body string, data map[string]string) {
	if len(userIDs) == 0 {
		return
	}
	if fcmService == nil {
		log.Printf("FCM service unavailable, skipping push to users %v", userIDs)
		return
	}

	if err := fcmService.SendNotificationToUsers(context.Background(), userIDs, title, body, data); err != nil {
		log.Printf("Failed to push notifications to users %v: %v", userIDs, err)
	}

	for _, userID := range userIDs {
		if _, err := db.Exec(`
			INSERT INTO notifications (user_id, message, status, action, created_at, updated_at)
			VALUES ($1, $2, 'unread', $3, NOW(), NOW())`, userID, body, data["action"]); err != nil {
			log.Printf("Failed to store notification for user %d: %v", userID, err)
		}
	}
}
