// internal/services/cart_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/events"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/store"
)

type CartService struct {
	store  store.Store
	bus    events.Bus
	config *config.Config
}

type Variant struct {
	Size  string `json:"size,omitempty"`
	Color string `json:"color,omitempty"`
}

type AddToCartRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Size      string    `json:"size,omitempty" validate:"max=50"`
	Color     string    `json:"color,omitempty" validate:"max=50"`
}

type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity,omitempty"`
	Delta    *int `json:"delta,omitempty"`
}

type UpdateVariantRequest struct {
	Field string `json:"field" validate:"required,cart_field"`
	Value string `json:"value" validate:"max=50"`
}

// Cart is the user's cart joined with live product data.
type Cart struct {
	Lines       []models.CartLine `json:"items"`
	Subtotal    float64           `json:"subtotal"`
	ShippingFee float64           `json:"shipping_fee"`
	Total       float64           `json:"total"`

	items []models.CartItem
}

func NewCartService(st store.Store, bus events.Bus, config *config.Config) *CartService {
	return &CartService{
		store:  st,
		bus:    bus,
		config: config,
	}
}

// AddOrIncrement adds one unit of a product variant, creating the line if
// needed.
func (s *CartService) AddOrIncrement(ctx context.Context, userID, productID uuid.UUID, variant Variant) (*models.CartItem, error) {
	if userID == uuid.Nil {
		return nil, ErrAuthRequired
	}

	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	variant, err = normalizeVariant(product, variant)
	if err != nil {
		return nil, err
	}

	if product.Stock < 1 {
		return nil, ErrOutOfStock
	}

	key := models.CartKey(product.ID, variant.Size, variant.Color)
	item := &models.CartItem{
		UserID:    userID,
		Key:       key,
		ProductID: product.ID,
		Quantity:  1,
		Size:      variant.Size,
		Color:     variant.Color,
	}

	if err := s.store.IncrementCartItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}

	s.notify(ctx, userID, item)
	return item, nil
}

// SetQuantity writes qty, never below one.
func (s *CartService) SetQuantity(ctx context.Context, userID uuid.UUID, key string, qty int) (*models.CartItem, error) {
	return s.updateItem(ctx, userID, key, func(_ store.Store, item *models.CartItem) error {
		item.Quantity = clampQuantity(qty)
		return nil
	})
}

// ChangeQuantity applies a +/- step, never going below one.
func (s *CartService) ChangeQuantity(ctx context.Context, userID uuid.UUID, key string, delta int) (*models.CartItem, error) {
	return s.updateItem(ctx, userID, key, func(_ store.Store, item *models.CartItem) error {
		item.Quantity = clampQuantity(item.Quantity + delta)
		return nil
	})
}

// SetVariant changes size or color of a line in place. The line key is left
// as is so the client keeps addressing the same line.
func (s *CartService) SetVariant(ctx context.Context, userID uuid.UUID, key, field, value string) (*models.CartItem, error) {
	if field != "size" && field != "color" {
		return nil, ErrInvalidCartField
	}

	return s.updateItem(ctx, userID, key, func(tx store.Store, item *models.CartItem) error {
		product, err := tx.GetProduct(ctx, item.ProductID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if field == "size" {
			if product != nil && value != "" && len(product.Sizes) > 0 && !product.HasSize(value) {
				return ErrInvalidVariant
			}
			item.Size = value
		} else {
			if product != nil && value != "" && len(product.Colors) > 0 && !product.HasColor(value) {
				return ErrInvalidVariant
			}
			item.Color = value
		}
		return nil
	})
}

func (s *CartService) Remove(ctx context.Context, userID uuid.UUID, key string) error {
	if userID == uuid.Nil {
		return ErrAuthRequired
	}

	if err := s.store.DeleteCartItem(ctx, userID, key); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrCartItemNotFound
		}
		return fmt.Errorf("failed to remove cart item: %w", err)
	}

	publish(ctx, s.bus, events.CartTopic(userID), events.TypeCartChanged, key, map[string]interface{}{"removed": true})
	return nil
}

// Load joins the stored lines with current products. Lines whose product
// has been deleted are left out.
func (s *CartService) Load(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	if userID == uuid.Nil {
		return nil, ErrAuthRequired
	}

	items, err := s.store.ListCartItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.store.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart products: %w", err)
	}

	lines := make([]models.CartLine, 0, len(items))
	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok {
			continue
		}
		lines = append(lines, models.CartLine{CartItem: item, Product: product})
	}

	return &Cart{
		Lines:       lines,
		Subtotal:    s.Subtotal(lines),
		ShippingFee: s.config.Payment.ShippingFee,
		Total:       s.Total(lines),
		items:       items,
	}, nil
}

func (s *CartService) Subtotal(lines []models.CartLine) float64 {
	var subtotal float64
	for _, line := range lines {
		subtotal += line.LineTotal()
	}
	return subtotal
}

func (s *CartService) Total(lines []models.CartLine) float64 {
	return s.Subtotal(lines) + s.config.Payment.ShippingFee
}

func (s *CartService) updateItem(ctx context.Context, userID uuid.UUID, key string, mutate func(store.Store, *models.CartItem) error) (*models.CartItem, error) {
	if userID == uuid.Nil {
		return nil, ErrAuthRequired
	}

	var item *models.CartItem
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		var err error
		item, err = tx.GetCartItem(ctx, userID, key)
		if err != nil {
			return err
		}
		if err := mutate(tx, item); err != nil {
			return err
		}
		return tx.PutCartItem(ctx, item)
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrCartItemNotFound
		case errors.Is(err, ErrInvalidVariant):
			return nil, err
		}
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}

	s.notify(ctx, userID, item)
	return item, nil
}

func (s *CartService) notify(ctx context.Context, userID uuid.UUID, item *models.CartItem) {
	publish(ctx, s.bus, events.CartTopic(userID), events.TypeCartChanged, item.Key, item)
}

func clampQuantity(qty int) int {
	if qty < 1 {
		return 1
	}
	return qty
}

// normalizeVariant checks the selection against the product type and drops
// fields the product does not use.
func normalizeVariant(product *models.Product, variant Variant) (Variant, error) {
	if !product.ProductType.RequiresSize() {
		variant.Size = ""
	}
	if !product.ProductType.RequiresColor() {
		variant.Color = ""
	}

	if product.ProductType.RequiresSize() && variant.Size == "" {
		return variant, ErrVariantRequired
	}
	if product.ProductType.RequiresColor() && variant.Color == "" {
		return variant, ErrVariantRequired
	}

	if variant.Size != "" && len(product.Sizes) > 0 && !product.HasSize(variant.Size) {
		return variant, ErrInvalidVariant
	}
	if variant.Color != "" && len(product.Colors) > 0 && !product.HasColor(variant.Color) {
		return variant, ErrInvalidVariant
	}
	return variant, nil
}
