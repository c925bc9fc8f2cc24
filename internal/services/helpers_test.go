package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/events"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/store"
	"github.com/javajoker/storefront-backend/internal/store/memstore"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Store:       config.StoreConfig{Driver: config.StoreDriverMemory, LowStockThreshold: 5},
		JWT:         config.JWTConfig{SecretKey: "test-secret", AccessTokenTTL: 24, RefreshTokenTTL: 168},
		Admin:       config.AdminConfig{Email: "admin@tienda.co", Password: "Admin12345"},
		Storage:     config.StorageConfig{MaxProofSize: 1024},
		Payment: config.PaymentConfig{
			Currency:             "cop",
			ShippingFee:          1500,
			CashOnDeliveryMethod: "Contraentrega",
			CardMethod:           "Tarjeta",
			AcceptedMethods:      []string{"Contraentrega", "Daviplata", "Nequi", "Bancolombia", "Tarjeta"},
		},
	}
}

// fakeBlobs records uploads in memory and can be told to fail.
type fakeBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	putErr  error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: make(map[string][]byte)}
}

func (f *fakeBlobs) Put(ctx context.Context, key string, data []byte, contentType string) (*UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.objects[key] = data
	return &UploadResult{URL: "https://cdn.test/" + key, Key: key, Size: int64(len(data)), MimeType: contentType}, nil
}

func (f *fakeBlobs) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeBlobs) DeleteByURL(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, url)
	return nil
}

func (f *fakeBlobs) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

type fakePayments struct {
	verified map[string]float64
}

func (f *fakePayments) CreatePaymentIntent(ctx context.Context, userID uuid.UUID, amount float64, idempotencyKey string) (*PaymentIntentResponse, error) {
	return &PaymentIntentResponse{PaymentID: "pi_" + idempotencyKey[:8], Amount: amount, Currency: "cop", Status: "requires_payment_method"}, nil
}

func (f *fakePayments) VerifyPayment(ctx context.Context, intentID string, amount float64) error {
	paid, ok := f.verified[intentID]
	if !ok || paid != amount {
		return ErrPaymentUnverified
	}
	return nil
}

// failingStore makes CreateOrder fail to exercise the placement rollback.
type failingStore struct {
	*memstore.Store
}

var errStoreDown = errors.New("store unavailable")

func (f failingStore) WithTx(ctx context.Context, fn func(tx store.Store) error) error {
	return f.Store.WithTx(ctx, func(tx store.Store) error {
		return fn(failingStore{Store: tx.(*memstore.Store)})
	})
}

func (f failingStore) CreateOrder(ctx context.Context, order *models.Order) error {
	return errStoreDown
}

type testEnv struct {
	cfg      *config.Config
	store    *memstore.Store
	hub      *events.Hub
	blobs    *fakeBlobs
	payments *fakePayments
	carts    *CartService
	orders   *OrderService
	products *ProductService
	admin    *AdminService
	auth     *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		cfg:      testConfig(),
		store:    memstore.New(),
		hub:      events.NewHub(),
		blobs:    newFakeBlobs(),
		payments: &fakePayments{verified: map[string]float64{}},
	}
	t.Cleanup(func() { env.hub.Close() })

	env.carts = NewCartService(env.store, env.hub, env.cfg)
	env.orders = NewOrderService(env.store, env.hub, env.blobs, env.payments, env.carts, env.cfg)
	env.products = NewProductService(env.store, env.hub, env.blobs)
	env.admin = NewAdminService(env.store, env.hub, env.blobs, env.cfg)
	env.auth = NewAuthService(env.store, env.cfg)
	return env
}

func (env *testEnv) seedProduct(t *testing.T, name string, price float64, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:        name,
		Price:       price,
		Stock:       stock,
		ProductType: models.ProductTypeNoVariant,
		Images:      pq.StringArray{"https://cdn.test/" + name + ".jpg"},
	}
	require.NoError(t, env.store.CreateProduct(context.Background(), product))
	return product
}

func (env *testEnv) seedCustomer(t *testing.T) *models.User {
	t.Helper()
	user := &models.User{
		Email:    uuid.NewString() + "@correo.co",
		Role:     models.UserRoleCustomer,
		FullName: "Ana",
		LastName: "Pérez",
		Phone:    "3001234567",
	}
	require.NoError(t, user.SetPassword("Secreto123"))
	require.NoError(t, env.store.CreateUser(context.Background(), user))
	return user
}

func (env *testEnv) addToCart(t *testing.T, userID uuid.UUID, product *models.Product, qty int) {
	t.Helper()
	ctx := context.Background()
	item, err := env.carts.AddOrIncrement(ctx, userID, product.ID, Variant{})
	require.NoError(t, err)
	if qty != 1 {
		_, err = env.carts.SetQuantity(ctx, userID, item.Key, qty)
		require.NoError(t, err)
	}
}

func validShipping(method string) *PlaceOrderRequest {
	return &PlaceOrderRequest{
		PaymentMethod:     method,
		Country:           "Colombia",
		Department:        "Antioquia",
		City:              "Medellín",
		Address:           "Calle 10 # 20-30",
		RecipientDocument: "1020304050",
	}
}
