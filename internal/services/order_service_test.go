package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/store"
	"github.com/javajoker/storefront-backend/internal/store/memstore"
	"github.com/javajoker/storefront-backend/internal/utils"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// receipt is a PNG of size bytes; size must be at least 8.
func receipt(size int) *PaymentProof {
	body := append(append([]byte{}, pngSignature...), make([]byte, size-len(pngSignature))...)
	return &PaymentProof{
		Filename: "comprobante.PNG",
		Size:     int64(size),
		Body:     bytes.NewReader(body),
	}
}

func (env *testEnv) orderCount(t *testing.T) int64 {
	t.Helper()
	_, total, err := env.store.ListOrders(context.Background(), store.OrderFilter{})
	require.NoError(t, err)
	return total
}

func (env *testEnv) cartSize(t *testing.T, userID uuid.UUID) int {
	t.Helper()
	items, err := env.store.ListCartItems(context.Background(), userID)
	require.NoError(t, err)
	return len(items)
}

func (env *testEnv) placeCOD(t *testing.T, userID uuid.UUID, lines map[*models.Product]int) *models.Order {
	t.Helper()
	for product, qty := range lines {
		env.addToCart(t, userID, product, qty)
	}
	order, err := env.orders.PlaceOrder(context.Background(), userID, validShipping("Contraentrega"), nil)
	require.NoError(t, err)
	return order
}

func TestPlaceOrderCashOnDeliveryWithoutProof(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedCustomer(t)
	product := env.seedProduct(t, "blusa", 20000, 10)
	env.addToCart(t, user.ID, product, 2)

	order, err := env.orders.PlaceOrder(ctx, user.ID, validShipping("Contraentrega"), nil)
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, 41500.0, order.Total)
	assert.Equal(t, "Contraentrega", order.PaymentMethod)
	assert.Empty(t, order.PaymentProofURL)
	assert.Equal(t, "Antioquia", order.ShippingInfo.Department)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "blusa", order.Items[0].Name)
	assert.Equal(t, 2, order.Items[0].Quantity)

	assert.Zero(t, env.cartSize(t, user.ID))
	assert.Zero(t, env.blobs.count())

	stored, err := env.store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.Items, stored.Items)

	// Placement does not touch stock.
	got, err := env.store.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Stock)
}

func TestPlaceOrderBankTransferRequiresProof(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedCustomer(t)
	env.addToCart(t, user.ID, env.seedProduct(t, "falda", 45000, 3), 1)

	_, err := env.orders.PlaceOrder(context.Background(), user.ID, validShipping("Nequi"), nil)
	assert.ErrorIs(t, err, ErrPaymentProofRequired)

	assert.Zero(t, env.orderCount(t))
	assert.Equal(t, 1, env.cartSize(t, user.ID))
	assert.Zero(t, env.blobs.count())
}

func TestPlaceOrderBankTransferUploadsProof(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedCustomer(t)
	env.addToCart(t, user.ID, env.seedProduct(t, "falda", 45000, 3), 1)

	order, err := env.orders.PlaceOrder(context.Background(), user.ID, validShipping("Daviplata"), receipt(100))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(order.PaymentProofKey, "payment_proofs/"+user.ID.String()+"_"))
	assert.True(t, strings.HasSuffix(order.PaymentProofKey, ".png"))
	assert.Equal(t, "https://cdn.test/"+order.PaymentProofKey, order.PaymentProofURL)
	assert.Equal(t, 1, env.blobs.count())
	assert.Zero(t, env.cartSize(t, user.ID))
}

func TestPlaceOrderPreconditions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedCustomer(t)

	_, err := env.orders.PlaceOrder(ctx, user.ID, validShipping("Contraentrega"), nil)
	assert.ErrorIs(t, err, ErrCartEmpty)

	env.addToCart(t, user.ID, env.seedProduct(t, "vestido", 99000, 2), 1)

	incomplete := map[string]func(r *PlaceOrderRequest){
		"department": func(r *PlaceOrderRequest) { r.Department = "" },
		"city":       func(r *PlaceOrderRequest) { r.City = "  " },
		"address":    func(r *PlaceOrderRequest) { r.Address = "" },
		"document":   func(r *PlaceOrderRequest) { r.RecipientDocument = "" },
	}
	for name, mutate := range incomplete {
		req := validShipping("Contraentrega")
		mutate(req)
		_, err := env.orders.PlaceOrder(ctx, user.ID, req, nil)
		assert.ErrorIs(t, err, ErrShippingIncomplete, name)
	}

	_, err = env.orders.PlaceOrder(ctx, user.ID, validShipping("Bitcoin"), nil)
	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)

	_, err = env.orders.PlaceOrder(ctx, user.ID, validShipping("Bancolombia"), receipt(2048))
	assert.ErrorIs(t, err, ErrProofTooLarge)

	_, err = env.orders.PlaceOrder(ctx, uuid.Nil, validShipping("Contraentrega"), nil)
	assert.ErrorIs(t, err, ErrAuthRequired)

	assert.Zero(t, env.orderCount(t))
	assert.Zero(t, env.blobs.count())
	assert.Equal(t, 1, env.cartSize(t, user.ID))
}

func TestPlaceOrderUploadFailureWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedCustomer(t)
	env.addToCart(t, user.ID, env.seedProduct(t, "chaqueta", 150000, 1), 1)
	env.blobs.putErr = errors.New("s3 down")

	_, err := env.orders.PlaceOrder(context.Background(), user.ID, validShipping("Nequi"), receipt(10))
	require.Error(t, err)

	assert.Zero(t, env.orderCount(t))
	assert.Equal(t, 1, env.cartSize(t, user.ID))
}

func TestPlaceOrderStoreFailureDiscardsProof(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedCustomer(t)
	env.addToCart(t, user.ID, env.seedProduct(t, "chaqueta", 150000, 1), 1)

	orders := NewOrderService(failingStore{Store: env.store}, env.hub, env.blobs, env.payments, env.carts, env.cfg)
	_, err := orders.PlaceOrder(context.Background(), user.ID, validShipping("Nequi"), receipt(10))
	assert.ErrorIs(t, err, errStoreDown)

	assert.Zero(t, env.orderCount(t))
	assert.Equal(t, 1, env.cartSize(t, user.ID))
	assert.Zero(t, env.blobs.count())
	require.Len(t, env.blobs.deleted, 1)
	assert.True(t, strings.HasPrefix(env.blobs.deleted[0], "payment_proofs/"))
}

func TestPlaceOrderProofMustBeImageOrPDF(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedCustomer(t)
	env.addToCart(t, user.ID, env.seedProduct(t, "cinturón", 35000, 4), 1)

	page := []byte("<html><script>alert(document.cookie)</script></html>")
	rejected := map[string]*PaymentProof{
		"html file":          {Filename: "comprobante.html", Size: int64(len(page)), Body: bytes.NewReader(page)},
		"html renamed image": {Filename: "comprobante.png", Size: int64(len(page)), Body: bytes.NewReader(page)},
		"svg":                {Filename: "comprobante.svg", Size: 4, Body: strings.NewReader("<svg")},
	}
	for name, proof := range rejected {
		_, err := env.orders.PlaceOrder(ctx, user.ID, validShipping("Nequi"), proof)
		assert.ErrorIs(t, err, ErrFileTypeNotAllowed, name)
	}
	assert.Zero(t, env.blobs.count())
	assert.Zero(t, env.orderCount(t))

	pdf := []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")
	order, err := env.orders.PlaceOrder(ctx, user.ID, validShipping("Nequi"), &PaymentProof{
		Filename: "Comprobante.PDF",
		Size:     int64(len(pdf)),
		Body:     bytes.NewReader(pdf),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(order.PaymentProofKey, ".pdf"))
	assert.Equal(t, pdf, env.blobs.objects[order.PaymentProofKey])
}

// cartRaceStore changes a cart line after checkout has read the cart and
// before the cart is cleared.
type cartRaceStore struct {
	*memstore.Store
}

func (r cartRaceStore) WithTx(ctx context.Context, fn func(tx store.Store) error) error {
	return r.Store.WithTx(ctx, func(tx store.Store) error {
		return fn(cartRaceStore{Store: tx.(*memstore.Store)})
	})
}

func (r cartRaceStore) RemoveCartItems(ctx context.Context, userID uuid.UUID, items []models.CartItem) (int64, error) {
	bumped := items[0]
	bumped.Quantity++
	if err := r.Store.PutCartItem(ctx, &bumped); err != nil {
		return 0, err
	}
	return r.Store.RemoveCartItems(ctx, userID, items)
}

func TestPlaceOrderFailsWhenCartChangesBeforeClear(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedCustomer(t)
	env.addToCart(t, user.ID, env.seedProduct(t, "bufanda", 30000, 5), 1)

	orders := NewOrderService(cartRaceStore{Store: env.store}, env.hub, env.blobs, env.payments, env.carts, env.cfg)
	_, err := orders.PlaceOrder(ctx, user.ID, validShipping("Nequi"), receipt(32))
	assert.ErrorIs(t, err, ErrCartChanged)

	assert.Zero(t, env.orderCount(t))
	items, err := env.store.ListCartItems(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Quantity)

	assert.Zero(t, env.blobs.count())
	require.Len(t, env.blobs.deleted, 1)
}

func TestPlaceOrderCardPayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedCustomer(t)
	env.addToCart(t, user.ID, env.seedProduct(t, "gafas", 50000, 5), 1)

	req := validShipping("Tarjeta")
	_, err := env.orders.PlaceOrder(ctx, user.ID, req, nil)
	assert.ErrorIs(t, err, ErrPaymentProofRequired)

	req.PaymentIntentID = "pi_unpaid"
	_, err = env.orders.PlaceOrder(ctx, user.ID, req, nil)
	assert.ErrorIs(t, err, ErrPaymentUnverified)

	env.payments.verified["pi_short"] = 50000
	req.PaymentIntentID = "pi_short"
	_, err = env.orders.PlaceOrder(ctx, user.ID, req, nil)
	assert.ErrorIs(t, err, ErrPaymentUnverified)
	assert.Zero(t, env.orderCount(t))

	env.payments.verified["pi_paid"] = 51500
	req.PaymentIntentID = "pi_paid"
	order, err := env.orders.PlaceOrder(ctx, user.ID, req, nil)
	require.NoError(t, err)
	assert.Equal(t, "pi_paid", order.PaymentReference)
	assert.Zero(t, env.blobs.count())
}

func TestPrepareCardPaymentIsStableForSameCart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedCustomer(t)

	_, err := env.orders.PrepareCardPayment(ctx, user.ID)
	assert.ErrorIs(t, err, ErrCartEmpty)

	product := env.seedProduct(t, "gafas", 50000, 5)
	env.addToCart(t, user.ID, product, 1)

	first, err := env.orders.PrepareCardPayment(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 51500.0, first.Amount)

	again, err := env.orders.PrepareCardPayment(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, first.PaymentID, again.PaymentID)

	env.addToCart(t, user.ID, product, 1)
	changed, err := env.orders.PrepareCardPayment(ctx, user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.PaymentID, changed.PaymentID)
}

func TestOrderItemsAreFrozenAtPlacement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedCustomer(t)
	product := env.seedProduct(t, "sombrero", 25000, 5)
	order := env.placeCOD(t, user.ID, map[*models.Product]int{product: 1})

	product.Name = "sombrero nuevo"
	product.Price = 99999
	product.Images = nil
	require.NoError(t, env.store.UpdateProduct(ctx, product))

	stored, err := env.store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "sombrero", stored.Items[0].Name)
	assert.Equal(t, 25000.0, stored.Items[0].Price)
	assert.Equal(t, []string{"https://cdn.test/sombrero.jpg"}, stored.Items[0].Images)
	assert.Equal(t, 26500.0, stored.Total)
}

// assertNoEmptyValues fails on any null or empty string in a decoded JSON
// document.
func assertNoEmptyValues(t *testing.T, path string, v interface{}) {
	t.Helper()
	switch value := v.(type) {
	case nil:
		t.Errorf("%s is null", path)
	case string:
		assert.NotEmpty(t, value, path)
	case map[string]interface{}:
		for k, child := range value {
			assertNoEmptyValues(t, path+"."+k, child)
		}
	case []interface{}:
		for i, child := range value {
			assertNoEmptyValues(t, fmt.Sprintf("%s[%d]", path, i), child)
		}
	}
}

func TestPlacedOrderHasNoAbsentFields(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedCustomer(t)
	product := env.seedProduct(t, "pulsera", 12000, 5)
	order := env.placeCOD(t, user.ID, map[*models.Product]int{product: 1})

	stored, err := env.store.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)

	raw, err := json.Marshal(stored)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assertNoEmptyValues(t, "order", doc)

	items := doc["items"].([]interface{})
	item := items[0].(map[string]interface{})
	assert.NotContains(t, item, "size")
	assert.NotContains(t, item, "color")
}

func TestUpdateStatusDecrementsStockOnlyWhenProcessing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedCustomer(t)
	product := env.seedProduct(t, "camisa", 20000, 10)
	order := env.placeCOD(t, user.ID, map[*models.Product]int{product: 3})

	stock := func() int {
		got, err := env.store.GetProduct(ctx, product.ID)
		require.NoError(t, err)
		return got.Stock
	}

	updated, err := env.orders.UpdateStatus(ctx, order.ID, models.OrderStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, updated.Status)
	assert.Equal(t, 7, stock())

	_, err = env.orders.UpdateStatus(ctx, order.ID, models.OrderStatusProcessing)
	var transitionErr *TransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, 7, stock())

	_, err = env.orders.UpdateStatus(ctx, order.ID, models.OrderStatusShipped)
	require.NoError(t, err)
	_, err = env.orders.UpdateStatus(ctx, order.ID, models.OrderStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, 7, stock())

	cancelled := env.placeCOD(t, user.ID, map[*models.Product]int{product: 2})
	_, err = env.orders.UpdateStatus(ctx, cancelled.ID, models.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, 7, stock())
}

func TestUpdateStatusRejectsInvalidTransitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedCustomer(t)
	order := env.placeCOD(t, user.ID, map[*models.Product]int{env.seedProduct(t, "bufanda", 18000, 5): 1})

	_, err := env.orders.UpdateStatus(ctx, order.ID, models.OrderStatusShipped)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = env.orders.UpdateStatus(ctx, order.ID, models.OrderStatusCancelled)
	require.NoError(t, err)

	_, err = env.orders.UpdateStatus(ctx, order.ID, models.OrderStatusPending)
	var transitionErr *TransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, models.OrderStatusCancelled, transitionErr.From)

	_, err = env.orders.UpdateStatus(ctx, uuid.New(), models.OrderStatusProcessing)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestUpdateStatusIsAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedCustomer(t)
	plenty := env.seedProduct(t, "medias", 8000, 10)
	scarce := env.seedProduct(t, "tenis", 200000, 5)
	order := env.placeCOD(t, user.ID, map[*models.Product]int{plenty: 2, scarce: 5})

	// Someone else's order takes most of the scarce product first.
	scarce.Stock = 1
	require.NoError(t, env.store.UpdateProduct(ctx, scarce))

	_, err := env.orders.UpdateStatus(ctx, order.ID, models.OrderStatusProcessing)
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, []string{"tenis"}, stockErr.ProductNames())
	assert.Equal(t, 5, stockErr.Shortages[0].Requested)
	assert.Equal(t, 1, stockErr.Shortages[0].Available)

	got, err := env.store.GetProduct(ctx, plenty.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Stock)

	stored, err := env.store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
}

func TestUpdateStatusSkipsDeletedProducts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedCustomer(t)
	kept := env.seedProduct(t, "collar", 40000, 4)
	gone := env.seedProduct(t, "arete", 10000, 4)
	order := env.placeCOD(t, user.ID, map[*models.Product]int{kept: 1, gone: 1})

	require.NoError(t, env.store.DeleteProduct(ctx, gone.ID))

	_, err := env.orders.UpdateStatus(ctx, order.ID, models.OrderStatusProcessing)
	require.NoError(t, err)

	got, err := env.store.GetProduct(ctx, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)
}

func TestConcurrentProcessingOnlyOneSucceeds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.seedProduct(t, "edición limitada", 300000, 4)

	first := env.placeCOD(t, env.seedCustomer(t).ID, map[*models.Product]int{product: 3})
	second := env.placeCOD(t, env.seedCustomer(t).ID, map[*models.Product]int{product: 3})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []uuid.UUID{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = env.orders.UpdateStatus(ctx, id, models.OrderStatusProcessing)
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrInsufficientStock)
		}
	}
	assert.Equal(t, 1, succeeded)

	got, err := env.store.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stock)
}

func TestConcurrentUpdatesOfSameOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.seedProduct(t, "bolso", 70000, 10)
	order := env.placeCOD(t, env.seedCustomer(t).ID, map[*models.Product]int{product: 2})

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.orders.UpdateStatus(ctx, order.ID, models.OrderStatusProcessing)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)

	got, err := env.store.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, got.Stock)
}

func TestOrderVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.seedCustomer(t)
	other := env.seedCustomer(t)
	order := env.placeCOD(t, owner.ID, map[*models.Product]int{env.seedProduct(t, "cartera", 65000, 3): 1})

	got, err := env.orders.GetOrder(ctx, owner.ID, false, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	_, err = env.orders.GetOrder(ctx, other.ID, false, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = env.orders.GetOrder(ctx, other.ID, true, order.ID)
	assert.NoError(t, err)
}

func TestListMyOrdersNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedCustomer(t)
	product := env.seedProduct(t, "vestido", 99000, 10)

	older := env.placeCOD(t, user.ID, map[*models.Product]int{product: 1})
	newer := env.placeCOD(t, user.ID, map[*models.Product]int{product: 2})
	env.placeCOD(t, env.seedCustomer(t).ID, map[*models.Product]int{product: 1})

	orders, total, err := env.orders.ListMyOrders(ctx, user.ID, utils.PaginationParams{Page: 1, Limit: 10, Order: "asc"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, orders, 2)
	assert.Equal(t, newer.ID, orders[0].ID)
	assert.Equal(t, older.ID, orders[1].ID)

	pending, total, err := env.orders.ListOrders(ctx, models.OrderStatusPending, utils.PaginationParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, pending, 3)
}

func TestConfirmationGroupsByProvider(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.seedCustomer(t)

	provider := &models.Provider{Name: "Textiles Andinos", Phone: "+57 300 111 2233"}
	require.NoError(t, env.store.CreateProvider(ctx, provider))

	product := env.seedProduct(t, "poncho", 120000, 3)
	product.ProviderID = &provider.ID
	require.NoError(t, env.store.UpdateProduct(ctx, product))
	loose := env.seedProduct(t, "llavero", 5000, 3)

	order := env.placeCOD(t, user.ID, map[*models.Product]int{product: 1, loose: 2})

	confirmation, err := env.orders.Confirmation(ctx, user.ID, false, order.ID)
	require.NoError(t, err)
	require.Len(t, confirmation.Providers, 1)

	contact := confirmation.Providers[0]
	assert.Equal(t, "Textiles Andinos", contact.Name)
	require.Len(t, contact.Items, 1)
	assert.Equal(t, "poncho", contact.Items[0].Name)
	assert.True(t, strings.HasPrefix(contact.WhatsAppURL, "https://wa.me/573001112233?text="))
	assert.Contains(t, contact.WhatsAppURL, order.ID.String())
}

func TestSameCart(t *testing.T) {
	productID := uuid.New()
	a := models.CartItem{Key: "k1", ProductID: productID, Quantity: 1}
	b := models.CartItem{Key: "k2", ProductID: productID, Quantity: 2, Size: "M"}

	assert.True(t, sameCart([]models.CartItem{a, b}, []models.CartItem{b, a}))

	bumped := b
	bumped.Quantity = 3
	assert.False(t, sameCart([]models.CartItem{a, b}, []models.CartItem{a, bumped}))
	assert.False(t, sameCart([]models.CartItem{a, b}, []models.CartItem{a}))
}
