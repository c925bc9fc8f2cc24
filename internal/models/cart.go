// internal/models/cart.go
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CartItem is one pending selection. Key is derived from the product and
// variant so the same selection always lands on the same line.
type CartItem struct {
	UserID    uuid.UUID `json:"-" gorm:"type:uuid;primaryKey"`
	Key       string    `json:"id" gorm:"size:400;primaryKey"`
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index"`
	Quantity  int       `json:"quantity" gorm:"not null;check:quantity >= 1"`
	Size      string    `json:"size,omitempty" gorm:"size:50"`
	Color     string    `json:"color,omitempty" gorm:"size:50"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var keySegment = strings.NewReplacer("%", "%25", "-", "%2D")

// CartKey builds "<productID>-<size>-<color>" with empty segments kept.
// Dashes and percent signs inside size or color are percent-encoded, so
// two different variants never share a key.
func CartKey(productID uuid.UUID, size, color string) string {
	return productID.String() + "-" + keySegment.Replace(size) + "-" + keySegment.Replace(color)
}

// CartLine is a cart item joined with the live product.
type CartLine struct {
	CartItem
	Product *Product `json:"product"`
}

func (l CartLine) LineTotal() float64 {
	if l.Product == nil {
		return 0
	}
	return l.Product.Price * float64(l.Quantity)
}
