// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields. Deletes are hard deletes.
type BaseModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns the key client side so the in-memory store and
// Postgres produce the same identifiers.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	b.EnsureID()
	return nil
}

func (b *BaseModel) EnsureID() {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, err := scanBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, j)
}

func scanBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, errors.New("unsupported jsonb source type")
	}
}

// Enums
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleAdmin    UserRole = "admin"
)

type ProductType string

const (
	ProductTypeNoVariant    ProductType = "sin talla y color"
	ProductTypeSizeOnly     ProductType = "solo talla"
	ProductTypeSizeAndColor ProductType = "talla y color"
)

func (t ProductType) Valid() bool {
	switch t {
	case ProductTypeNoVariant, ProductTypeSizeOnly, ProductTypeSizeAndColor:
		return true
	}
	return false
}

func (t ProductType) RequiresSize() bool {
	return t == ProductTypeSizeOnly || t == ProductTypeSizeAndColor
}

func (t ProductType) RequiresColor() bool {
	return t == ProductTypeSizeAndColor
}
