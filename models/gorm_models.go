package models

import (
	"time"

	"gorm.io/gorm"
)

// GORM-compatible models for the tables managed through the GORM side of the
// storage layer (kitchen demand management and the activity log). The engine
// core reads these tables through database/sql like everything else.

// KitchenPeriodDemandGorm represents the kitchen_period_demands table.
type KitchenPeriodDemandGorm struct {
	ID        int       `gorm:"primaryKey;column:id" json:"id"`
	KitchenID int       `gorm:"column:kitchen_id;not null;index:idx_demand_kitchen" json:"kitchen_id"`
	ProductID int       `gorm:"column:product_id;not null;index:idx_demand_product_period" json:"product_id"`
	Period    string    `gorm:"column:period;type:varchar(7);not null;index:idx_demand_product_period" json:"period"`
	Quantity  float64   `gorm:"column:quantity;type:numeric(12,2);not null" json:"quantity"`
	Status    string    `gorm:"column:status;not null;default:'active'" json:"status"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName specifies the table name for KitchenPeriodDemandGorm
func (KitchenPeriodDemandGorm) TableName() string {
	return "kitchen_period_demands"
}

// ActivityLogGorm represents the activity_logs table.
type ActivityLogGorm struct {
	ID           int       `gorm:"primaryKey;column:id" json:"id"`
	EventContext string    `gorm:"column:event_context" json:"event_context"`
	EventName    string    `gorm:"column:event_name" json:"event_name"`
	Description  string    `gorm:"column:description" json:"description"`
	UserName     string    `gorm:"column:user_name" json:"user_name"`
	HostName     string    `gorm:"column:host_name" json:"host_name"`
	IPAddress    string    `gorm:"column:ip_address" json:"ip_address"`
	Period       string    `gorm:"column:period;type:varchar(7)" json:"period"`
	Region       string    `gorm:"column:region" json:"region"`
	CreatedAt    time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName specifies the table name for ActivityLogGorm
func (ActivityLogGorm) TableName() string {
	return "activity_logs"
}

// AutoMigrateModels creates/updates the GORM-managed tables.
func AutoMigrateModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&KitchenPeriodDemandGorm{},
		&ActivityLogGorm{},
	)
}
