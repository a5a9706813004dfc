package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"backend/models"
	"backend/storage"
	"backend/utils"

	"github.com/gin-gonic/gin"
)

// CreateUserRequest is the payload for creating a user account.
type CreateUserRequest struct {
	EmployeeId string `json:"employee_id" binding:"required" example:"EMP001"`
	Email      string `json:"email" binding:"required,email" example:"user@example.com"`
	Password   string `json:"password" binding:"required" example:""`
	FirstName  string `json:"first_name" binding:"required" example:"John"`
	LastName   string `json:"last_name" binding:"required" example:"Doe"`
	PhoneNo    string `json:"phone_no" example:"9876543210"`
	RoleID     int    `json:"role_id" binding:"required" example:"1"`
}

// UpdateUserRequest is the payload for updating a user account. Empty
// fields are left unchanged.
type UpdateUserRequest struct {
	FirstName string `json:"first_name" example:"John"`
	LastName  string `json:"last_name" example:"Doe"`
	PhoneNo   string `json:"phone_no" example:"9876543210"`
	RoleID    int    `json:"role_id" example:"1"`
	Password  string `json:"password" example:""`
}

func scanUserRow(row *sql.Row) (models.User, error) {
	var user models.User
	var phoneNo sql.NullString
	err := row.Scan(
		&user.ID, &user.EmployeeId, &user.Email, &user.FirstName, &user.LastName,
		&phoneNo, &user.RoleID, &user.RoleName, &user.Suspended, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return models.User{}, err
	}
	if phoneNo.Valid {
		user.PhoneNo = phoneNo.String
	}
	return user, nil
}

func getUserByID(db *sql.DB, id int) (models.User, error) {
	row := db.QueryRow(`
		SELECT u.id, u.employee_id, u.email, u.first_name, u.last_name,
		       u.phone_no, u.role_id, r.role_name, u.suspended, u.created_at, u.updated_at
		FROM users u
		JOIN roles r ON u.role_id = r.role_id
		WHERE u.id = $1`, id)
	return scanUserRow(row)
}

// GetUser godoc
// @Summary      Get a user by ID
// @Tags         users
// @Param        id  path  int  true  "User ID"
// @Success      200  {object}  models.User
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/users/{id} [get]
func GetUser(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, _, ok := RequireManager(db, c)
		if !ok {
			return
		}

		userID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return
		}

		user, err := getUserByID(db, userID)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user", "details": err.Error()})
			return
		}
		user.Password = ""

		c.JSON(http.StatusOK, user)
	}
}

// GetAllUsers godoc
// @Summary      List users
// @Tags         users
// @Success      200  {array}   models.User
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/users [get]
func GetAllUsers(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, _, ok := RequireManager(db, c)
		if !ok {
			return
		}

		rows, err := db.Query(`
			SELECT u.id, u.employee_id, u.email, u.first_name, u.last_name,
			       u.phone_no, u.role_id, r.role_name, u.suspended, u.created_at, u.updated_at
			FROM users u
			JOIN roles r ON u.role_id = r.role_id
			ORDER BY u.first_name, u.last_name`)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users", "details": err.Error()})
			return
		}
		defer rows.Close()

		users := []models.User{}
		for rows.Next() {
			var user models.User
			var phoneNo sql.NullString
			if err := rows.Scan(
				&user.ID, &user.EmployeeId, &user.Email, &user.FirstName, &user.LastName,
				&phoneNo, &user.RoleID, &user.RoleName, &user.Suspended, &user.CreatedAt, &user.UpdatedAt,
			); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan user"})
				return
			}
			if phoneNo.Valid {
				user.PhoneNo = phoneNo.String
			}
			users = append(users, user)
		}

		c.JSON(http.StatusOK, users)
	}
}

// GetUserFromSession godoc
// @Summary      Get the authenticated user
// @Tags         users
// @Success      200  {object}  models.User
// @Failure      401  {object}  models.ErrorResponse
// @Router       /api/get_user [get]
func GetUserFromSession(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader("Authorization")
		if sessionID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Authorization header is missing"})
			return
		}

		user, err := storage.GetUserBySessionID(db, sessionID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid session", "details": err.Error()})
			return
		}
		user.Password = ""

		c.JSON(http.StatusOK, user)
	}
}

// CreateUser godoc
// @Summary      Create a user
// @Tags         users
// @Accept       json
// @Param        user  body  CreateUserRequest  true  "User"
// @Success      201  {object}  models.User
// @Failure      400  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse
// @Router       /api/users [post]
func CreateUser(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, userName, ok := RequireApprover(db, c)
		if !ok {
			return
		}

		var req CreateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		var exists bool
		if err := db.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`, req.Email).Scan(&exists); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check existing user", "details": err.Error()})
			return
		}
		if exists {
			c.JSON(http.StatusConflict, gin.H{"error": "A user with this email already exists"})
			return
		}

		hashed, err := utils.HashPassword(req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}

		var userID int
		err = db.QueryRow(`
			INSERT INTO users (employee_id, email, password, first_name, last_name, phone_no, role_id, suspended, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, false, NOW(), NOW())
			RETURNING id`,
			req.EmployeeId, req.Email, hashed, req.FirstName, req.LastName, req.PhoneNo, req.RoleID,
		).Scan(&userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user", "details": err.Error()})
			return
		}

		user, err := getUserByID(db, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "User created but failed to retrieve"})
			return
		}
		user.Password = ""

		c.JSON(http.StatusCreated, user)

		// Welcome email is best-effort.
		if GlobalEmailService != nil {
			emailData := models.EmailData{
				Email:        req.Email,
				UserName:     req.FirstName + " " + req.LastName,
				SupportEmail: os.Getenv("SUPPORT_EMAIL"),
				LoginURL:     os.Getenv("APP_LOGIN_URL"),
			}
			if err := GlobalEmailService.SendTemplatedEmail("welcome_user", emailData, nil); err != nil {
				fmt.Printf("Failed to send welcome email to %s: %v\n", req.Email, err)
			}
		}

		entry := models.ActivityLog{
			EventContext: "User",
			EventName:    "Create",
			Description:  fmt.Sprintf("User '%s' created", req.Email),
			UserName:     userName,
			HostName:     session.HostName,
			IPAddress:    session.IPAddress,
			CreatedAt:    time.Now(),
		}
		if logErr := SaveActivityLog(db, entry); logErr != nil {
			fmt.Printf("Failed to log activity: %v\n", logErr)
		}
	}
}

// UpdateUser godoc
// @Summary      Update a user
// @Tags         users
// @Accept       json
// @Param        id    path  int                true  "User ID"
// @Param        user  body  UpdateUserRequest  true  "Fields to update"
// @Success      200  {object}  models.User
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/users/{id} [put]
func UpdateUser(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, userName, ok := RequireApprover(db, c)
		if !ok {
			return
		}

		userID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return
		}

		var req UpdateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input", "details": err.Error()})
			return
		}

		current, err := getUserByID(db, userID)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user", "details": err.Error()})
			return
		}

		if req.FirstName == "" {
			req.FirstName = current.FirstName
		}
		if req.LastName == "" {
			req.LastName = current.LastName
		}
		if req.PhoneNo == "" {
			req.PhoneNo = current.PhoneNo
		}
		if req.RoleID == 0 {
			req.RoleID = current.RoleID
		}

		if req.Password != "" {
			hashed, err := utils.HashPassword(req.Password)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
				return
			}
			_, err = db.Exec(`
				UPDATE users SET first_name = $1, last_name = $2, phone_no = $3, role_id = $4, password = $5, updated_at = NOW()
				WHERE id = $6`,
				req.FirstName, req.LastName, req.PhoneNo, req.RoleID, hashed, userID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user", "details": err.Error()})
				return
			}
		} else {
			_, err = db.Exec(`
				UPDATE users SET first_name = $1, last_name = $2, phone_no = $3, role_id = $4, updated_at = NOW()
				WHERE id = $5`,
				req.FirstName, req.LastName, req.PhoneNo, req.RoleID, userID)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user", "details": err.Error()})
				return
			}
		}

		user, err := getUserByID(db, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "User updated but failed to retrieve"})
			return
		}
		user.Password = ""

		c.JSON(http.StatusOK, user)

		entry := models.ActivityLog{
			EventContext: "User",
			EventName:    "Update",
			Description:  fmt.Sprintf("User '%s' updated", current.Email),
			UserName:     userName,
			HostName:     session.HostName,
			IPAddress:    session.IPAddress,
			CreatedAt:    time.Now(),
		}
		if logErr := SaveActivityLog(db, entry); logErr != nil {
			fmt.Printf("Failed to log activity: %v\n", logErr)
		}
	}
}

// SuspendUser godoc
// @Summary      Suspend or reinstate a user
// @Description  Suspending a user deletes their sessions; they cannot log in until reinstated.
// @Tags         users
// @Param        id       path   int   true  "User ID"
// @Param        suspend  query  bool  true  "true to suspend, false to reinstate"
// @Success      200  {object}  models.MessageResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/users/{id}/suspend [put]
func SuspendUser(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, userName, ok := RequireApprover(db, c)
		if !ok {
			return
		}

		userID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return
		}
		suspend := c.DefaultQuery("suspend", "true") == "true"

		result, err := db.Exec(`UPDATE users SET suspended = $1, updated_at = NOW() WHERE id = $2`, suspend, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user", "details": err.Error()})
			return
		}
		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		if suspend {
			if err := storage.DeleteSession(db, userID); err != nil {
				fmt.Printf("Failed to delete sessions for suspended user %d: %v\n", userID, err)
			}
		}

		message := "User reinstated"
		eventName := "Reinstate"
		if suspend {
			message = "User suspended"
			eventName = "Suspend"
		}
		c.JSON(http.StatusOK, gin.H{"message": message})

		entry := models.ActivityLog{
			EventContext: "User",
			EventName:    eventName,
			Description:  fmt.Sprintf("User %d: %s", userID, message),
			UserName:     userName,
			HostName:     session.HostName,
			IPAddress:    session.IPAddress,
			CreatedAt:    time.Now(),
		}
		if logErr := SaveActivityLog(db, entry); logErr != nil {
			fmt.Printf("Failed to log activity: %v\n", logErr)
		}
	}
}

// DeleteUser godoc
// @Summary      Delete a user
// @Tags         users
// @Param        id  path  int  true  "User ID"
// @Success      200  {object}  models.MessageResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/users/{id} [delete]
func DeleteUser(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, userName, ok := RequireApprover(db, c)
		if !ok {
			return
		}

		userID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return
		}
		if userID == session.UserID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete your own account"})
			return
		}

		if err := storage.DeleteSession(db, userID); err != nil {
			fmt.Printf("Failed to delete sessions for user %d: %v\n", userID, err)
		}

		result, err := db.Exec(`DELETE FROM users WHERE id = $1`, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user", "details": err.Error()})
			return
		}
		rowsAffected, _ := result.RowsAffected()
		if rowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "User deleted"})

		entry := models.ActivityLog{
			EventContext: "User",
			EventName:    "Delete",
			Description:  fmt.Sprintf("User %d deleted", userID),
			UserName:     userName,
			HostName:     session.HostName,
			IPAddress:    session.IPAddress,
			CreatedAt:    time.Now(),
		}
		if logErr := SaveActivityLog(db, entry); logErr != nil {
			fmt.Printf("Failed to log activity: %v\n", logErr)
		}
	}
}
