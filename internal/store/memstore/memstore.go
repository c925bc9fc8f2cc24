// Package memstore is an in-process implementation of store.Store used for
// local development and tests. Every entity is copied on the way in and on
// the way out so callers never alias stored state.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/store"
	"github.com/javajoker/storefront-backend/internal/utils"
)

type dataset struct {
	users      map[uuid.UUID]*models.User
	products   map[uuid.UUID]*models.Product
	categories map[uuid.UUID]*models.Category
	providers  map[uuid.UUID]*models.Provider
	carts      map[uuid.UUID]map[string]*models.CartItem
	orders     map[uuid.UUID]*models.Order
	auditLogs  []models.AuditLog
	lastTime   time.Time
}

func newDataset() *dataset {
	return &dataset{
		users:      make(map[uuid.UUID]*models.User),
		products:   make(map[uuid.UUID]*models.Product),
		categories: make(map[uuid.UUID]*models.Category),
		providers:  make(map[uuid.UUID]*models.Provider),
		carts:      make(map[uuid.UUID]map[string]*models.CartItem),
		orders:     make(map[uuid.UUID]*models.Order),
	}
}

func (d *dataset) clone() *dataset {
	c := newDataset()
	for id, u := range d.users {
		c.users[id] = copyUser(u)
	}
	for id, p := range d.products {
		c.products[id] = copyProduct(p)
	}
	for id, cat := range d.categories {
		v := *cat
		c.categories[id] = &v
	}
	for id, p := range d.providers {
		v := *p
		c.providers[id] = &v
	}
	for uid, lines := range d.carts {
		cart := make(map[string]*models.CartItem, len(lines))
		for key, item := range lines {
			v := *item
			cart[key] = &v
		}
		c.carts[uid] = cart
	}
	for id, o := range d.orders {
		c.orders[id] = copyOrder(o)
	}
	c.auditLogs = append(c.auditLogs, d.auditLogs...)
	c.lastTime = d.lastTime
	return c
}

// now returns a strictly increasing timestamp so newest-first ordering is
// stable even when the clock does not advance between writes.
func (d *dataset) now() time.Time {
	t := time.Now()
	if !t.After(d.lastTime) {
		t = d.lastTime.Add(time.Microsecond)
	}
	d.lastTime = t
	return t
}

type Store struct {
	mu   *sync.Mutex
	data *dataset
	tx   bool
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{mu: &sync.Mutex{}, data: newDataset()}
}

func (s *Store) do(ctx context.Context, fn func(d *dataset) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.tx {
		return fn(s.data)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// WithTx runs fn on a private copy of the dataset and publishes the copy
// only if fn succeeds. Transactions are serialised by the store mutex.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.tx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Store{mu: s.mu, data: s.data.clone(), tx: true}
	if err := fn(tx); err != nil {
		return err
	}
	s.data = tx.data
	return nil
}

// Users

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return s.do(ctx, func(d *dataset) error {
		email := strings.ToLower(user.Email)
		for _, u := range d.users {
			if strings.ToLower(u.Email) == email {
				return store.ErrDuplicate
			}
		}
		user.EnsureID()
		user.CreatedAt = d.now()
		user.UpdatedAt = user.CreatedAt
		d.users[user.ID] = copyUser(user)
		return nil
	})
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var out *models.User
	err := s.do(ctx, func(d *dataset) error {
		u, ok := d.users[id]
		if !ok {
			return store.ErrNotFound
		}
		out = copyUser(u)
		return nil
	})
	return out, err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var out *models.User
	err := s.do(ctx, func(d *dataset) error {
		email = strings.ToLower(email)
		for _, u := range d.users {
			if strings.ToLower(u.Email) == email {
				out = copyUser(u)
				return nil
			}
		}
		return store.ErrNotFound
	})
	return out, err
}

func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	return s.do(ctx, func(d *dataset) error {
		if _, ok := d.users[user.ID]; !ok {
			return store.ErrNotFound
		}
		user.UpdatedAt = d.now()
		d.users[user.ID] = copyUser(user)
		return nil
	})
}

func (s *Store) ListCustomers(ctx context.Context, filter store.CustomerFilter) ([]models.User, int64, error) {
	out := []models.User{}
	var total int64
	err := s.do(ctx, func(d *dataset) error {
		search := strings.ToLower(filter.Search)
		for _, u := range d.users {
			if u.Role != models.UserRoleCustomer {
				continue
			}
			if search != "" && !matchesAny(search, u.FullName, u.LastName, u.Phone, u.RecipientDocument, u.Email) {
				continue
			}
			out = append(out, *copyUser(u))
		}
		sort.Slice(out, func(i, j int) bool {
			return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
		})
		total = int64(len(out))
		out = paginate(out, filter.PaginationParams)
		return nil
	})
	return out, total, err
}

func (s *Store) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return s.do(ctx, func(d *dataset) error {
		if _, ok := d.users[id]; !ok {
			return store.ErrNotFound
		}
		delete(d.users, id)
		return nil
	})
}

func (s *Store) CountUsers(ctx context.Context, role models.UserRole) (int64, error) {
	var n int64
	err := s.do(ctx, func(d *dataset) error {
		for _, u := range d.users {
			if u.Role == role {
				n++
			}
		}
		return nil
	})
	return n, err
}

// Products

func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	return s.do(ctx, func(d *dataset) error {
		product.EnsureID()
		product.CreatedAt = d.now()
		product.UpdatedAt = product.CreatedAt
		d.products[product.ID] = copyProduct(product)
		return nil
	})
}

func (s *Store) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var out *models.Product
	err := s.do(ctx, func(d *dataset) error {
		p, ok := d.products[id]
		if !ok {
			return store.ErrNotFound
		}
		out = copyProduct(p)
		return nil
	})
	return out, err
}

func (s *Store) GetProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	out := make(map[uuid.UUID]*models.Product, len(ids))
	err := s.do(ctx, func(d *dataset) error {
		for _, id := range ids {
			if p, ok := d.products[id]; ok {
				out[id] = copyProduct(p)
			}
		}
		return nil
	})
	return out, err
}

func (s *Store) ListProducts(ctx context.Context, filter store.ProductFilter) ([]models.Product, int64, error) {
	out := []models.Product{}
	var total int64
	err := s.do(ctx, func(d *dataset) error {
		search := strings.ToLower(filter.Search)
		for _, p := range d.products {
			if search != "" && !matchesAny(search, p.Name) {
				continue
			}
			if filter.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *filter.CategoryID) {
				continue
			}
			if filter.ExcludeID != nil && p.ID == *filter.ExcludeID {
				continue
			}
			if filter.MaxStock != nil && p.Stock > *filter.MaxStock {
				continue
			}
			out = append(out, *copyProduct(p))
		}
		sortProducts(out, filter.PaginationParams)
		total = int64(len(out))
		out = paginate(out, filter.PaginationParams)
		return nil
	})
	return out, total, err
}

func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	return s.do(ctx, func(d *dataset) error {
		existing, ok := d.products[product.ID]
		if !ok {
			return store.ErrNotFound
		}
		product.CreatedAt = existing.CreatedAt
		product.UpdatedAt = d.now()
		d.products[product.ID] = copyProduct(product)
		return nil
	})
}

func (s *Store) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return s.do(ctx, func(d *dataset) error {
		if _, ok := d.products[id]; !ok {
			return store.ErrNotFound
		}
		delete(d.products, id)
		return nil
	})
}

func (s *Store) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	applied := false
	err := s.do(ctx, func(d *dataset) error {
		p, ok := d.products[id]
		if !ok {
			return store.ErrNotFound
		}
		if p.Stock < qty {
			return nil
		}
		p.Stock -= qty
		p.UpdatedAt = d.now()
		applied = true
		return nil
	})
	return applied, err
}

// Categories

func (s *Store) CreateCategory(ctx context.Context, category *models.Category) error {
	return s.do(ctx, func(d *dataset) error {
		for _, c := range d.categories {
			if strings.EqualFold(c.Name, category.Name) {
				return store.ErrDuplicate
			}
		}
		category.EnsureID()
		category.CreatedAt = d.now()
		category.UpdatedAt = category.CreatedAt
		v := *category
		d.categories[category.ID] = &v
		return nil
	})
}

func (s *Store) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var out *models.Category
	err := s.do(ctx, func(d *dataset) error {
		c, ok := d.categories[id]
		if !ok {
			return store.ErrNotFound
		}
		v := *c
		out = &v
		return nil
	})
	return out, err
}

func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	out := []models.Category{}
	err := s.do(ctx, func(d *dataset) error {
		for _, c := range d.categories {
			out = append(out, *c)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return nil
	})
	return out, err
}

func (s *Store) UpdateCategory(ctx context.Context, category *models.Category) error {
	return s.do(ctx, func(d *dataset) error {
		existing, ok := d.categories[category.ID]
		if !ok {
			return store.ErrNotFound
		}
		for _, c := range d.categories {
			if c.ID != category.ID && strings.EqualFold(c.Name, category.Name) {
				return store.ErrDuplicate
			}
		}
		category.CreatedAt = existing.CreatedAt
		category.UpdatedAt = d.now()
		v := *category
		d.categories[category.ID] = &v
		return nil
	})
}

func (s *Store) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return s.do(ctx, func(d *dataset) error {
		if _, ok := d.categories[id]; !ok {
			return store.ErrNotFound
		}
		delete(d.categories, id)
		return nil
	})
}

// Providers

func (s *Store) CreateProvider(ctx context.Context, provider *models.Provider) error {
	return s.do(ctx, func(d *dataset) error {
		provider.EnsureID()
		provider.CreatedAt = d.now()
		provider.UpdatedAt = provider.CreatedAt
		v := *provider
		d.providers[provider.ID] = &v
		return nil
	})
}

func (s *Store) GetProvider(ctx context.Context, id uuid.UUID) (*models.Provider, error) {
	var out *models.Provider
	err := s.do(ctx, func(d *dataset) error {
		p, ok := d.providers[id]
		if !ok {
			return store.ErrNotFound
		}
		v := *p
		out = &v
		return nil
	})
	return out, err
}

func (s *Store) GetProviders(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Provider, error) {
	out := make(map[uuid.UUID]*models.Provider, len(ids))
	err := s.do(ctx, func(d *dataset) error {
		for _, id := range ids {
			if p, ok := d.providers[id]; ok {
				v := *p
				out[id] = &v
			}
		}
		return nil
	})
	return out, err
}

func (s *Store) ListProviders(ctx context.Context) ([]models.Provider, error) {
	out := []models.Provider{}
	err := s.do(ctx, func(d *dataset) error {
		for _, p := range d.providers {
			out = append(out, *p)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return nil
	})
	return out, err
}

func (s *Store) UpdateProvider(ctx context.Context, provider *models.Provider) error {
	return s.do(ctx, func(d *dataset) error {
		existing, ok := d.providers[provider.ID]
		if !ok {
			return store.ErrNotFound
		}
		provider.CreatedAt = existing.CreatedAt
		provider.UpdatedAt = d.now()
		v := *provider
		d.providers[provider.ID] = &v
		return nil
	})
}

func (s *Store) DeleteProvider(ctx context.Context, id uuid.UUID) error {
	return s.do(ctx, func(d *dataset) error {
		if _, ok := d.providers[id]; !ok {
			return store.ErrNotFound
		}
		delete(d.providers, id)
		return nil
	})
}

// Cart

func (s *Store) GetCartItem(ctx context.Context, userID uuid.UUID, key string) (*models.CartItem, error) {
	var out *models.CartItem
	err := s.do(ctx, func(d *dataset) error {
		item, ok := d.carts[userID][key]
		if !ok {
			return store.ErrNotFound
		}
		v := *item
		out = &v
		return nil
	})
	return out, err
}

func (s *Store) ListCartItems(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	out := []models.CartItem{}
	err := s.do(ctx, func(d *dataset) error {
		for _, item := range d.carts[userID] {
			out = append(out, *item)
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].Key < out[j].Key
			}
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
		return nil
	})
	return out, err
}

func (s *Store) PutCartItem(ctx context.Context, item *models.CartItem) error {
	return s.do(ctx, func(d *dataset) error {
		cart, ok := d.carts[item.UserID]
		if !ok {
			cart = make(map[string]*models.CartItem)
			d.carts[item.UserID] = cart
		}
		now := d.now()
		if existing, ok := cart[item.Key]; ok {
			item.CreatedAt = existing.CreatedAt
		} else {
			item.CreatedAt = now
		}
		item.UpdatedAt = now
		v := *item
		cart[item.Key] = &v
		return nil
	})
}

func (s *Store) IncrementCartItem(ctx context.Context, item *models.CartItem) error {
	return s.do(ctx, func(d *dataset) error {
		cart, ok := d.carts[item.UserID]
		if !ok {
			cart = make(map[string]*models.CartItem)
			d.carts[item.UserID] = cart
		}
		now := d.now()
		if existing, ok := cart[item.Key]; ok {
			existing.Quantity += item.Quantity
			existing.UpdatedAt = now
			*item = *existing
			return nil
		}
		item.CreatedAt = now
		item.UpdatedAt = now
		v := *item
		cart[item.Key] = &v
		return nil
	})
}

func (s *Store) DeleteCartItem(ctx context.Context, userID uuid.UUID, key string) error {
	return s.do(ctx, func(d *dataset) error {
		if _, ok := d.carts[userID][key]; !ok {
			return store.ErrNotFound
		}
		delete(d.carts[userID], key)
		return nil
	})
}

func (s *Store) ClearCart(ctx context.Context, userID uuid.UUID) error {
	return s.do(ctx, func(d *dataset) error {
		delete(d.carts, userID)
		return nil
	})
}

func (s *Store) RemoveCartItems(ctx context.Context, userID uuid.UUID, items []models.CartItem) (int64, error) {
	var removed int64
	err := s.do(ctx, func(d *dataset) error {
		cart := d.carts[userID]
		for _, item := range items {
			stored, ok := cart[item.Key]
			if !ok || stored.ProductID != item.ProductID || stored.Quantity != item.Quantity ||
				stored.Size != item.Size || stored.Color != item.Color {
				continue
			}
			delete(cart, item.Key)
			removed++
		}
		return nil
	})
	return removed, err
}

// Orders

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	return s.do(ctx, func(d *dataset) error {
		order.EnsureID()
		order.CreatedAt = d.now()
		order.UpdatedAt = order.CreatedAt
		d.orders[order.ID] = copyOrder(order)
		return nil
	})
}

func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var out *models.Order
	err := s.do(ctx, func(d *dataset) error {
		o, ok := d.orders[id]
		if !ok {
			return store.ErrNotFound
		}
		out = copyOrder(o)
		return nil
	})
	return out, err
}

func (s *Store) ListOrders(ctx context.Context, filter store.OrderFilter) ([]models.Order, int64, error) {
	out := []models.Order{}
	var total int64
	err := s.do(ctx, func(d *dataset) error {
		for _, o := range d.orders {
			if filter.UserID != nil && o.UserID != *filter.UserID {
				continue
			}
			if filter.Status != "" && o.Status != filter.Status {
				continue
			}
			out = append(out, *copyOrder(o))
		}
		asc := !filter.PaginationParams.Descending()
		sort.Slice(out, func(i, j int) bool {
			if asc {
				return newerFirst(out[j].CreatedAt, out[i].CreatedAt, out[j].ID, out[i].ID)
			}
			return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
		})
		total = int64(len(out))
		out = paginate(out, filter.PaginationParams)
		return nil
	})
	return out, total, err
}

func (s *Store) CompareAndSetOrderStatus(ctx context.Context, id uuid.UUID, expected, next models.OrderStatus) (bool, error) {
	applied := false
	err := s.do(ctx, func(d *dataset) error {
		o, ok := d.orders[id]
		if !ok {
			return store.ErrNotFound
		}
		if o.Status != expected {
			return nil
		}
		o.Status = next
		o.UpdatedAt = d.now()
		applied = true
		return nil
	})
	return applied, err
}

func (s *Store) DeleteOrdersByUser(ctx context.Context, userID uuid.UUID) error {
	return s.do(ctx, func(d *dataset) error {
		for id, o := range d.orders {
			if o.UserID == userID {
				delete(d.orders, id)
			}
		}
		return nil
	})
}

func (s *Store) OrderStatusCounts(ctx context.Context) (map[models.OrderStatus]int64, error) {
	counts := make(map[models.OrderStatus]int64)
	err := s.do(ctx, func(d *dataset) error {
		for _, o := range d.orders {
			counts[o.Status]++
		}
		return nil
	})
	return counts, err
}

func (s *Store) Revenue(ctx context.Context, status models.OrderStatus) (float64, error) {
	var sum float64
	err := s.do(ctx, func(d *dataset) error {
		for _, o := range d.orders {
			if o.Status == status {
				sum += o.Total
			}
		}
		return nil
	})
	return sum, err
}

// Audit

func (s *Store) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	return s.do(ctx, func(d *dataset) error {
		log.EnsureID()
		log.CreatedAt = d.now()
		log.UpdatedAt = log.CreatedAt
		d.auditLogs = append(d.auditLogs, *log)
		return nil
	})
}

// AuditLogs returns a copy of every audit entry recorded so far.
func (s *Store) AuditLogs() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AuditLog(nil), s.data.auditLogs...)
}

// helpers

func copyUser(u *models.User) *models.User {
	v := *u
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		v.LastLoginAt = &t
	}
	return &v
}

func copyProduct(p *models.Product) *models.Product {
	v := *p
	if p.CategoryID != nil {
		id := *p.CategoryID
		v.CategoryID = &id
	}
	if p.ProviderID != nil {
		id := *p.ProviderID
		v.ProviderID = &id
	}
	if p.Images != nil {
		v.Images = append([]string(nil), p.Images...)
	}
	if p.Sizes != nil {
		v.Sizes = append([]string(nil), p.Sizes...)
	}
	if p.Colors != nil {
		v.Colors = append(models.ColorOptions(nil), p.Colors...)
	}
	return &v
}

func copyOrder(o *models.Order) *models.Order {
	v := *o
	v.Items = o.Items.Clone()
	return &v
}

func matchesAny(search string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

func newerFirst(a, b time.Time, aID, bID uuid.UUID) bool {
	if a.Equal(b) {
		return aID.String() < bID.String()
	}
	return a.After(b)
}

var productSortFields = []string{"created_at", "price", "name", "stock"}

func sortProducts(products []models.Product, params utils.PaginationParams) {
	field := params.SortField(productSortFields)
	desc := params.Descending()
	sort.Slice(products, func(i, j int) bool {
		a, b := products[i], products[j]
		var less, equal bool
		switch field {
		case "price":
			less, equal = a.Price < b.Price, a.Price == b.Price
		case "name":
			less, equal = a.Name < b.Name, a.Name == b.Name
		case "stock":
			less, equal = a.Stock < b.Stock, a.Stock == b.Stock
		default:
			less, equal = a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
		}
		if equal {
			return a.ID.String() < b.ID.String()
		}
		if desc {
			return !less
		}
		return less
	})
}

func paginate[T any](items []T, params utils.PaginationParams) []T {
	if params.Limit <= 0 {
		return items
	}
	offset := params.Offset()
	if offset >= len(items) {
		return []T{}
	}
	end := offset + params.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
