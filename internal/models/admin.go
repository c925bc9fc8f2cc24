// internal/models/admin.go
package models

import (
	"github.com/google/uuid"
)

type AuditLog struct {
	BaseModel
	UserID       *uuid.UUID `json:"user_id" gorm:"type:uuid;index"`
	Action       string     `json:"action" gorm:"size:100;not null;index"`
	ResourceType string     `json:"resource_type" gorm:"size:50;not null;index"`
	ResourceID   *uuid.UUID `json:"resource_id" gorm:"type:uuid;index"`
	NewValues    JSONB      `json:"new_values" gorm:"type:jsonb"`
	IPAddress    string     `json:"ip_address" gorm:"size:45"`
	UserAgent    string     `json:"user_agent" gorm:"type:text"`
}

// DashboardStats backs the back-office landing page.
type DashboardStats struct {
	OrdersByStatus map[OrderStatus]int64 `json:"orders_by_status"`
	TotalOrders    int64                 `json:"total_orders"`
	Revenue        float64               `json:"revenue"`
	Customers      int64                 `json:"customers"`
	Products       int64                 `json:"products"`
	LowStock       int64                 `json:"low_stock"`
}
