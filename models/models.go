package models

import (
	"time"

	_ "github.com/lib/pq"
)

type User struct {
	ID          int       `json:"id" example:"1"`
	EmployeeId  string    `json:"employee_id" example:"EMP001"`
	Email       string    `json:"email" example:"user@example.com"`
	Password    string    `json:"password" example:""`
	FirstName   string    `json:"first_name" example:"John"`
	LastName    string    `json:"last_name" example:"Doe"`
	CreatedAt   time.Time `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt   time.Time `json:"updated_at" example:"2024-01-15T10:30:00Z"`
	FirstAccess time.Time `json:"first_access,omitempty" example:"2024-01-15T10:30:00Z"`
	LastAccess  time.Time `json:"last_access,omitempty" example:"2024-01-15T10:30:00Z"`
	IsAdmin     bool      `json:"is_admin" example:"false"`
	PhoneNo     string    `json:"phone_no" example:"9876543210"`
	RoleID      int       `json:"role_id" example:"1"`
	RoleName    string    `json:"role_name" example:"Approver"`
	Suspended   bool      `json:"suspended" example:"false"`
}

type Session struct {
	UserID                int       `json:"user_id" example:"1"`
	SessionID             string    `json:"session_id" example:""`
	HostName              string    `json:"host_name" example:"user@example.com"`
	IPAddress             string    `json:"ip_address" example:"192.168.1.10"`
	Timestamp             time.Time `json:"timestp" example:"2024-01-15T10:30:00Z"`
	ExpiresAt             time.Time `json:"expires_at" example:"2024-01-16T10:30:00Z"`
	RefreshToken          string    `json:"refresh_token,omitempty" example:""`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at,omitempty" example:"2024-01-30T10:30:00Z"`
}

// Product represents the products table. Reference data for the pricing
// engine: base_quantity and base_price are the fallback demand and the
// reference price used for variance against base.
type Product struct {
	ProductID    int       `json:"product_id" example:"1"`
	Code         string    `json:"code" example:"PRD-0042"`
	Name         string    `json:"name" example:"Sunflower Oil 5L"`
	Unit         string    `json:"unit" example:"pcs"`
	Category     string    `json:"category" example:"Oils & Fats"`
	BaseQuantity float64   `json:"base_quantity" example:"10"`
	BasePrice    float64   `json:"base_price" example:"100.00"`
	Status       string    `json:"status" example:"active"`
	CreatedAt    time.Time `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt    time.Time `json:"updated_at" example:"2024-01-15T10:30:00Z"`
}

// Supplier represents the suppliers table.
type Supplier struct {
	SupplierID int       `json:"supplier_id" example:"1"`
	Code       string    `json:"code" example:"SUP-007"`
	Name       string    `json:"name" example:"Fresh Foods Ltd"`
	Email      string    `json:"email" example:"sales@freshfoods.example"`
	Phone      string    `json:"phone" example:"9876543210"`
	Status     string    `json:"status" example:"active"`
	CreatedAt  time.Time `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt  time.Time `json:"updated_at" example:"2024-01-15T10:30:00Z"`
}

// Kitchen represents the kitchens table, a consuming site inside a region.
type Kitchen struct {
	KitchenID int       `json:"kitchen_id" example:"1"`
	Code      string    `json:"code" example:"KIT-03"`
	Name      string    `json:"name" example:"Central Kitchen North"`
	Region    string    `json:"region" example:"North"`
	Status    string    `json:"status" example:"active"`
	CreatedAt time.Time `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt time.Time `json:"updated_at" example:"2024-01-15T10:30:00Z"`
}

// Notification is an in-app notification row, written alongside FCM pushes.
type Notification struct {
	ID        int       `json:"id" example:"1"`
	UserID    int       `json:"user_id" example:"1"`
	Message   string    `json:"message" example:"Quotation Q-AB12345 approved"`
	Status    string    `json:"status" example:"unread"`
	Action    string    `json:"action" example:"quotation_approved"`
	CreatedAt time.Time `json:"created_at" example:"2024-06-15T10:30:00Z"`
	UpdatedAt time.Time `json:"updated_at" example:"2024-06-15T10:30:00Z"`
}

// LoginRequest is the credential payload for /api/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required" example:"user@example.com"`
	Password string `json:"password" binding:"required" example:""`
	IP       string `json:"ip" binding:"required" example:"192.168.1.10"`
}

type ActivityLog struct {
	ID           int       `json:"id" example:"1"`
	EventContext string    `json:"event_context" example:"Quotation"`
	EventName    string    `json:"event_name" example:"Approve"`
	Description  string    `json:"description" example:"Approved quotation Q-AB12345"`
	UserName     string    `json:"user_name" example:"John Doe"`
	HostName     string    `json:"host_name" example:"user@example.com"`
	IPAddress    string    `json:"ip_address" example:"192.168.1.10"`
	Period       string    `json:"period" example:"2024-06"`
	Region       string    `json:"region" example:"North"`
	CreatedAt    time.Time `json:"created_at" example:"2024-01-15T10:30:00Z"`
}
