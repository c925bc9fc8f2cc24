// internal/models/order.go
package models

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
}

func (s OrderStatus) Valid() bool {
	for _, status := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo reports whether next is a legal single step from s.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Order struct {
	BaseModel
	UserID           uuid.UUID    `json:"user_id" gorm:"type:uuid;not null;index"`
	Items            OrderItems   `json:"items" gorm:"type:jsonb;not null"`
	Total            float64      `json:"total" gorm:"type:decimal(12,2);not null"`
	Status           OrderStatus  `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	PaymentMethod    string       `json:"payment_method" gorm:"size:50;not null"`
	PaymentReference string       `json:"payment_reference,omitempty" gorm:"size:255"`
	ShippingInfo     ShippingInfo `json:"shipping_info" gorm:"embedded;embeddedPrefix:shipping_"`
	PaymentProofURL  string       `json:"payment_proof_url,omitempty" gorm:"type:text"`
	PaymentProofKey  string       `json:"-" gorm:"type:text"`
}

type ShippingInfo struct {
	Country           string `json:"country" gorm:"size:100"`
	Department        string `json:"department" gorm:"size:100;not null"`
	City              string `json:"city" gorm:"size:100;not null"`
	Address           string `json:"address" gorm:"size:255;not null"`
	Details           string `json:"details,omitempty" gorm:"type:text"`
	RecipientDocument string `json:"recipient_document" gorm:"size:30;not null"`
}

// OrderItem is the frozen copy of a cart line at placement time.
type OrderItem struct {
	ProductID  uuid.UUID  `json:"product_id"`
	ProviderID *uuid.UUID `json:"provider_id,omitempty"`
	Name       string     `json:"name"`
	Price      float64    `json:"price"`
	Quantity   int        `json:"quantity"`
	Size       string     `json:"size,omitempty"`
	Color      string     `json:"color,omitempty"`
	Images     []string   `json:"images,omitempty"`
}

type OrderItems []OrderItem

func (o OrderItems) Value() (driver.Value, error) {
	if o == nil {
		return json.Marshal([]OrderItem{})
	}
	return json.Marshal(o)
}

func (o *OrderItems) Scan(value interface{}) error {
	if value == nil {
		*o = nil
		return nil
	}
	bytes, err := scanBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, o)
}

// Clone returns a deep copy so callers never share slices with the stored order.
func (o OrderItems) Clone() OrderItems {
	if o == nil {
		return nil
	}
	out := make(OrderItems, len(o))
	for i, item := range o {
		out[i] = item
		if item.ProviderID != nil {
			id := *item.ProviderID
			out[i].ProviderID = &id
		}
		if item.Images != nil {
			out[i].Images = append([]string(nil), item.Images...)
		}
	}
	return out
}

// QuantitiesByProduct sums quantities of lines sharing a product.
func (o OrderItems) QuantitiesByProduct() map[uuid.UUID]int {
	totals := make(map[uuid.UUID]int, len(o))
	for _, item := range o {
		totals[item.ProductID] += item.Quantity
	}
	return totals
}
