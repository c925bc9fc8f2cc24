// internal/services/errors.go
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/javajoker/storefront-backend/internal/models"
)

var (
	ErrAuthRequired       = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrCannotDeleteAdmin  = errors.New("admin accounts cannot be deleted")

	ErrProductNotFound  = errors.New("product not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryExists   = errors.New("category already exists")
	ErrProviderNotFound = errors.New("provider not found")
	ErrImagesRequired   = errors.New("at least one image is required")

	ErrFileTooLarge       = errors.New("file too large")
	ErrFileTypeNotAllowed = errors.New("file type not allowed")
	ErrInvalidImage       = errors.New("invalid image file")
	ErrFileNotFound       = errors.New("file not found")

	ErrCartItemNotFound = errors.New("cart item not found")
	ErrVariantRequired  = errors.New("size or color selection required")
	ErrInvalidVariant   = errors.New("size or color not offered for this product")
	ErrInvalidCartField = errors.New("only size or color can be changed")
	ErrOutOfStock       = errors.New("product out of stock")
	ErrCartEmpty        = errors.New("cart is empty")
	ErrCartChanged      = errors.New("cart changed during checkout")

	ErrShippingIncomplete   = errors.New("shipping information incomplete")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrPaymentProofRequired = errors.New("payment proof required")
	ErrProofTooLarge        = errors.New("payment proof too large")
	ErrPaymentUnverified    = errors.New("card payment not verified")
	ErrPaymentUnavailable   = errors.New("card payments are not configured")
	ErrOrderNotFound        = errors.New("order not found")
	ErrInvalidTransition    = errors.New("invalid order status transition")
	ErrStatusConflict       = errors.New("order status changed concurrently")
	ErrInsufficientStock    = errors.New("insufficient stock")
)

// TransitionError reports a status change the order lifecycle does not allow.
type TransitionError struct {
	From models.OrderStatus
	To   models.OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

type StockShortage struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// InsufficientStockError lists every product that cannot cover an order.
type InsufficientStockError struct {
	Shortages []StockShortage
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInsufficientStock, strings.Join(e.ProductNames(), ", "))
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

func (e *InsufficientStockError) ProductNames() []string {
	names := make([]string, len(e.Shortages))
	for i, s := range e.Shortages {
		names[i] = s.Name
	}
	return names
}
