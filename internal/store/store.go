// Package store is the persistence boundary of the storefront. Services only
// talk to the Store interface; gormstore backs it with Postgres and memstore
// keeps everything in process.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/utils"
)

var ErrNotFound = errors.New("record not found")

type ProductFilter struct {
	utils.PaginationParams
	CategoryID *uuid.UUID
	ExcludeID  *uuid.UUID
	MaxStock   *int
}

type OrderFilter struct {
	utils.PaginationParams
	UserID *uuid.UUID
	Status models.OrderStatus
}

type CustomerFilter struct {
	utils.PaginationParams
}

type Store interface {
	// WithTx runs fn against a transactional view of the store. Writes made
	// through tx are committed only when fn returns nil.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	ListCustomers(ctx context.Context, filter CustomerFilter) ([]models.User, int64, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
	CountUsers(ctx context.Context, role models.UserRole) (int64, error)

	CreateProduct(ctx context.Context, product *models.Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	// GetProducts returns the products that exist among ids.
	GetProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	// DecrementStock subtracts qty only if stock >= qty and reports whether
	// the write happened.
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error)

	CreateCategory(ctx context.Context, category *models.Category) error
	GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	UpdateCategory(ctx context.Context, category *models.Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error

	CreateProvider(ctx context.Context, provider *models.Provider) error
	GetProvider(ctx context.Context, id uuid.UUID) (*models.Provider, error)
	GetProviders(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Provider, error)
	ListProviders(ctx context.Context) ([]models.Provider, error)
	UpdateProvider(ctx context.Context, provider *models.Provider) error
	DeleteProvider(ctx context.Context, id uuid.UUID) error

	GetCartItem(ctx context.Context, userID uuid.UUID, key string) (*models.CartItem, error)
	ListCartItems(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	// PutCartItem inserts or replaces the line identified by (UserID, Key).
	PutCartItem(ctx context.Context, item *models.CartItem) error
	// IncrementCartItem inserts item or adds item.Quantity to the existing
	// line in a single write. item is updated with the stored line.
	IncrementCartItem(ctx context.Context, item *models.CartItem) error
	DeleteCartItem(ctx context.Context, userID uuid.UUID, key string) error
	ClearCart(ctx context.Context, userID uuid.UUID) error
	// RemoveCartItems deletes each of items only while the stored line still
	// has the same product, quantity and variant, and returns how many lines
	// were removed.
	RemoveCartItems(ctx context.Context, userID uuid.UUID, items []models.CartItem) (int64, error)

	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error)
	// CompareAndSetOrderStatus moves the order to next only if its current
	// status is expected and reports whether the write happened.
	CompareAndSetOrderStatus(ctx context.Context, id uuid.UUID, expected, next models.OrderStatus) (bool, error)
	DeleteOrdersByUser(ctx context.Context, userID uuid.UUID) error
	OrderStatusCounts(ctx context.Context) (map[models.OrderStatus]int64, error)
	Revenue(ctx context.Context, status models.OrderStatus) (float64, error)

	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ErrDuplicate is returned when a unique field (user email, category name)
// is already taken.
var ErrDuplicate = errors.New("duplicate record")
