// Package gormstore implements store.Store on PostgreSQL through gorm.
package gormstore

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/storefront-backend/internal/database"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/store"
	"github.com/javajoker/storefront-backend/internal/utils"
)

var productSortFields = []string{"created_at", "price", "name", "stock"}

type Store struct {
	db *gorm.DB
	tx bool
}

var _ store.Store = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Store) error) error {
	if s.tx {
		return fn(s)
	}
	return database.WithTransaction(s.conn(ctx), func(tx *gorm.DB) error {
		return fn(&Store{db: tx, tx: true})
	})
}

// locked adds FOR UPDATE to reads made inside a transaction, so a
// read-modify-write holds the rows it read until commit.
func (s *Store) locked(db *gorm.DB) *gorm.DB {
	if s.tx {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return store.ErrDuplicate
	default:
		return err
	}
}

func affected(result *gorm.DB) error {
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func likePattern(search string) string {
	replacer := strings.NewReplacer("%", "\\%", "_", "\\_")
	return "%" + strings.ToLower(replacer.Replace(search)) + "%"
}

// Users

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(user.Email)
	return translate(s.conn(ctx).Create(user).Error)
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.conn(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.conn(ctx).Where("email = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	return affected(s.conn(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Select("*").Omit("id", "created_at").
		Updates(user))
}

func (s *Store) ListCustomers(ctx context.Context, filter store.CustomerFilter) ([]models.User, int64, error) {
	query := s.conn(ctx).Model(&models.User{}).Where("role = ?", models.UserRoleCustomer)

	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where(
			"lower(full_name) LIKE ? OR lower(last_name) LIKE ? OR phone LIKE ? OR recipient_document LIKE ? OR email LIKE ?",
			pattern, pattern, pattern, pattern, pattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	users := []models.User{}
	query = utils.ApplySort(query, filter.PaginationParams, []string{"created_at", "full_name"})
	query = utils.ApplyPagination(query, filter.PaginationParams)
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *Store) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return affected(s.conn(ctx).Where("id = ?", id).Delete(&models.User{}))
}

func (s *Store) CountUsers(ctx context.Context, role models.UserRole) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.User{}).Where("role = ?", role).Count(&n).Error
	return n, err
}

// Products

func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	return translate(s.conn(ctx).Create(product).Error)
}

func (s *Store) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := s.conn(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (s *Store) GetProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	out := make(map[uuid.UUID]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var products []models.Product
	if err := s.conn(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	for i := range products {
		out[products[i].ID] = &products[i]
	}
	return out, nil
}

func (s *Store) ListProducts(ctx context.Context, filter store.ProductFilter) ([]models.Product, int64, error) {
	query := s.conn(ctx).Model(&models.Product{})

	if filter.Search != "" {
		query = query.Where("lower(name) LIKE ?", likePattern(filter.Search))
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.ExcludeID != nil {
		query = query.Where("id <> ?", *filter.ExcludeID)
	}
	if filter.MaxStock != nil {
		query = query.Where("stock <= ?", *filter.MaxStock)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	products := []models.Product{}
	query = utils.ApplySort(query, filter.PaginationParams, productSortFields)
	query = utils.ApplyPagination(query, filter.PaginationParams)
	if err := query.Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	return affected(s.conn(ctx).Model(&models.Product{}).
		Where("id = ?", product.ID).
		Select("*").Omit("id", "created_at").
		Updates(product))
}

func (s *Store) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return affected(s.conn(ctx).Where("id = ?", id).Delete(&models.Product{}))
}

func (s *Store) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	result := s.conn(ctx).Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 1 {
		return true, nil
	}

	if _, err := s.GetProduct(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

// Categories

func (s *Store) CreateCategory(ctx context.Context, category *models.Category) error {
	return translate(s.conn(ctx).Create(category).Error)
}

func (s *Store) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := s.conn(ctx).Where("id = ?", id).First(&category).Error; err != nil {
		return nil, translate(err)
	}
	return &category, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories := []models.Category{}
	err := s.conn(ctx).Order("name").Find(&categories).Error
	return categories, err
}

func (s *Store) UpdateCategory(ctx context.Context, category *models.Category) error {
	return affected(s.conn(ctx).Model(&models.Category{}).
		Where("id = ?", category.ID).
		Select("*").Omit("id", "created_at").
		Updates(category))
}

func (s *Store) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return affected(s.conn(ctx).Where("id = ?", id).Delete(&models.Category{}))
}

// Providers

func (s *Store) CreateProvider(ctx context.Context, provider *models.Provider) error {
	return translate(s.conn(ctx).Create(provider).Error)
}

func (s *Store) GetProvider(ctx context.Context, id uuid.UUID) (*models.Provider, error) {
	var provider models.Provider
	if err := s.conn(ctx).Where("id = ?", id).First(&provider).Error; err != nil {
		return nil, translate(err)
	}
	return &provider, nil
}

func (s *Store) GetProviders(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Provider, error) {
	out := make(map[uuid.UUID]*models.Provider, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var providers []models.Provider
	if err := s.conn(ctx).Where("id IN ?", ids).Find(&providers).Error; err != nil {
		return nil, err
	}
	for i := range providers {
		out[providers[i].ID] = &providers[i]
	}
	return out, nil
}

func (s *Store) ListProviders(ctx context.Context) ([]models.Provider, error) {
	providers := []models.Provider{}
	err := s.conn(ctx).Order("name").Find(&providers).Error
	return providers, err
}

func (s *Store) UpdateProvider(ctx context.Context, provider *models.Provider) error {
	return affected(s.conn(ctx).Model(&models.Provider{}).
		Where("id = ?", provider.ID).
		Select("*").Omit("id", "created_at").
		Updates(provider))
}

func (s *Store) DeleteProvider(ctx context.Context, id uuid.UUID) error {
	return affected(s.conn(ctx).Where("id = ?", id).Delete(&models.Provider{}))
}

// Cart

func (s *Store) GetCartItem(ctx context.Context, userID uuid.UUID, key string) (*models.CartItem, error) {
	var item models.CartItem
	if err := s.locked(s.conn(ctx)).Where("user_id = ? AND key = ?", userID, key).First(&item).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (s *Store) ListCartItems(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	items := []models.CartItem{}
	err := s.locked(s.conn(ctx)).Where("user_id = ?", userID).Order("created_at").Order("key").Find(&items).Error
	return items, err
}

func (s *Store) PutCartItem(ctx context.Context, item *models.CartItem) error {
	return s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"product_id", "quantity", "size", "color", "updated_at"}),
	}).Create(item).Error
}

func (s *Store) IncrementCartItem(ctx context.Context, item *models.CartItem) error {
	return s.conn(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + ?", item.Quantity),
			"updated_at": gorm.Expr("excluded.updated_at"),
		}),
	}, clause.Returning{}).Create(item).Error
}

func (s *Store) DeleteCartItem(ctx context.Context, userID uuid.UUID, key string) error {
	return affected(s.conn(ctx).Where("user_id = ? AND key = ?", userID, key).Delete(&models.CartItem{}))
}

func (s *Store) ClearCart(ctx context.Context, userID uuid.UUID) error {
	return s.conn(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
}

func (s *Store) RemoveCartItems(ctx context.Context, userID uuid.UUID, items []models.CartItem) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}

	lines := make([][]interface{}, 0, len(items))
	for _, item := range items {
		lines = append(lines, []interface{}{item.Key, item.ProductID, item.Quantity, item.Size, item.Color})
	}

	result := s.conn(ctx).
		Where("user_id = ?", userID).
		Where("(key, product_id, quantity, size, color) IN ?", lines).
		Delete(&models.CartItem{})
	return result.RowsAffected, result.Error
}

// Orders

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	return translate(s.conn(ctx).Create(order).Error)
}

func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.conn(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (s *Store) ListOrders(ctx context.Context, filter store.OrderFilter) ([]models.Order, int64, error) {
	query := s.conn(ctx).Model(&models.Order{})

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orders := []models.Order{}
	query = utils.ApplySort(query, filter.PaginationParams, []string{"created_at", "total"})
	query = utils.ApplyPagination(query, filter.PaginationParams)
	if err := query.Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (s *Store) CompareAndSetOrderStatus(ctx context.Context, id uuid.UUID, expected, next models.OrderStatus) (bool, error) {
	result := s.conn(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, expected).
		Update("status", next)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 1 {
		return true, nil
	}

	if _, err := s.GetOrder(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (s *Store) DeleteOrdersByUser(ctx context.Context, userID uuid.UUID) error {
	return s.conn(ctx).Where("user_id = ?", userID).Delete(&models.Order{}).Error
}

func (s *Store) OrderStatusCounts(ctx context.Context) (map[models.OrderStatus]int64, error) {
	var rows []struct {
		Status models.OrderStatus
		Count  int64
	}
	err := s.conn(ctx).Model(&models.Order{}).
		Select("status, count(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.OrderStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (s *Store) Revenue(ctx context.Context, status models.OrderStatus) (float64, error) {
	var sum float64
	err := s.conn(ctx).Model(&models.Order{}).
		Select("COALESCE(SUM(total), 0)").
		Where("status = ?", status).
		Scan(&sum).Error
	return sum, err
}

// Audit

func (s *Store) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	return s.conn(ctx).Create(log).Error
}
