// internal/models/product.go
package models

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Product struct {
	BaseModel
	Name        string         `json:"name" gorm:"size:255;not null;index"`
	Description string         `json:"description" gorm:"type:text"`
	Price       float64        `json:"price" gorm:"type:decimal(12,2);not null"`
	Stock       int            `json:"stock" gorm:"not null;default:0;check:stock >= 0"`
	CategoryID  *uuid.UUID     `json:"category_id,omitempty" gorm:"type:uuid;index"`
	ProviderID  *uuid.UUID     `json:"provider_id,omitempty" gorm:"type:uuid;index"`
	ProductType ProductType    `json:"product_type" gorm:"type:varchar(30);not null;default:'sin talla y color'"`
	Images      pq.StringArray `json:"images" gorm:"type:text[]"`
	Sizes       pq.StringArray `json:"sizes,omitempty" gorm:"type:text[]"`
	Colors      ColorOptions   `json:"colors,omitempty" gorm:"type:jsonb"`
}

// FirstImage is the thumbnail shown in carts and order lines.
func (p *Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

func (p *Product) HasSize(size string) bool {
	for _, s := range p.Sizes {
		if s == size {
			return true
		}
	}
	return false
}

func (p *Product) HasColor(color string) bool {
	for _, c := range p.Colors {
		if c.Name == color {
			return true
		}
	}
	return false
}

type ColorOption struct {
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

type ColorOptions []ColorOption

func (c ColorOptions) Value() (driver.Value, error) {
	if c == nil {
		return nil, nil
	}
	return json.Marshal(c)
}

func (c *ColorOptions) Scan(value interface{}) error {
	if value == nil {
		*c = nil
		return nil
	}
	bytes, err := scanBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, c)
}

type Category struct {
	BaseModel
	Name        string `json:"name" gorm:"size:100;not null;uniqueIndex"`
	Description string `json:"description" gorm:"type:text"`
	Image       string `json:"image" gorm:"type:text"`
}

type Provider struct {
	BaseModel
	Name  string `json:"name" gorm:"size:150;not null"`
	Phone string `json:"phone" gorm:"size:30;not null"`
}
