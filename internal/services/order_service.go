// internal/services/order_service.go
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/events"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/store"
	"github.com/javajoker/storefront-backend/internal/utils"
)

const proofFolder = "payment_proofs"

type OrderService struct {
	store    store.Store
	bus      events.Bus
	blobs    BlobStore
	payments CardPayments
	carts    *CartService
	config   *config.Config
}

// PlaceOrderRequest is the checkout form. It binds from multipart forms
// (bank transfer with proof) and from JSON (cash on delivery, card).
type PlaceOrderRequest struct {
	PaymentMethod     string `form:"payment_method" json:"payment_method" validate:"required,max=50"`
	Country           string `form:"country" json:"country" validate:"max=100"`
	Department        string `form:"department" json:"department" validate:"max=100"`
	City              string `form:"city" json:"city" validate:"max=100"`
	Address           string `form:"address" json:"address" validate:"max=255"`
	Details           string `form:"details" json:"details" validate:"max=1000"`
	RecipientDocument string `form:"recipient_document" json:"recipient_document" validate:"max=30"`
	PaymentIntentID   string `form:"payment_intent_id" json:"payment_intent_id" validate:"max=255"`
}

func (r *PlaceOrderRequest) shippingInfo() models.ShippingInfo {
	return models.ShippingInfo{
		Country:           strings.TrimSpace(r.Country),
		Department:        strings.TrimSpace(r.Department),
		City:              strings.TrimSpace(r.City),
		Address:           strings.TrimSpace(r.Address),
		Details:           strings.TrimSpace(r.Details),
		RecipientDocument: strings.TrimSpace(r.RecipientDocument),
	}
}

// PaymentProof is the uploaded transfer receipt.
type PaymentProof struct {
	Filename string
	Size     int64
	Body     io.Reader
}

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" validate:"required,order_status"`
}

type ProviderContact struct {
	ProviderID  uuid.UUID          `json:"provider_id"`
	Name        string             `json:"name"`
	Phone       string             `json:"phone"`
	WhatsAppURL string             `json:"whatsapp_url"`
	Items       []models.OrderItem `json:"items"`
}

// OrderConfirmation backs the success screen shown after checkout.
type OrderConfirmation struct {
	Order     *models.Order     `json:"order"`
	Providers []ProviderContact `json:"providers"`
}

func NewOrderService(st store.Store, bus events.Bus, blobs BlobStore, payments CardPayments, carts *CartService, config *config.Config) *OrderService {
	return &OrderService{
		store:    st,
		bus:      bus,
		blobs:    blobs,
		payments: payments,
		carts:    carts,
		config:   config,
	}
}

// PlaceOrder turns the user's cart into an order. Every precondition is
// checked before anything is written; the order insert and the cart clear
// commit together.
func (s *OrderService) PlaceOrder(ctx context.Context, userID uuid.UUID, req *PlaceOrderRequest, proof *PaymentProof) (*models.Order, error) {
	if userID == uuid.Nil {
		return nil, ErrAuthRequired
	}

	shipping := req.shippingInfo()
	if shipping.Department == "" || shipping.City == "" || shipping.Address == "" || shipping.RecipientDocument == "" {
		return nil, ErrShippingIncomplete
	}

	method := strings.TrimSpace(req.PaymentMethod)
	if !s.config.Payment.Accepts(method) {
		return nil, ErrInvalidPaymentMethod
	}

	cart, err := s.carts.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart.Lines) == 0 {
		return nil, ErrCartEmpty
	}

	isCard := method == s.config.Payment.CardMethod
	needsProof := method != s.config.Payment.CashOnDeliveryMethod && !isCard
	if needsProof && (proof == nil || proof.Body == nil) {
		return nil, ErrPaymentProofRequired
	}
	if isCard && strings.TrimSpace(req.PaymentIntentID) == "" {
		return nil, ErrPaymentProofRequired
	}
	if needsProof && s.config.Storage.MaxProofSize > 0 && proof.Size > s.config.Storage.MaxProofSize {
		return nil, ErrProofTooLarge
	}

	order := &models.Order{
		UserID:        userID,
		Items:         snapshotItems(cart.Lines),
		Total:         cart.Total,
		Status:        models.OrderStatusPending,
		PaymentMethod: method,
		ShippingInfo:  shipping,
	}

	if isCard {
		if s.payments == nil {
			return nil, ErrPaymentUnavailable
		}
		if err := s.payments.VerifyPayment(ctx, req.PaymentIntentID, order.Total); err != nil {
			return nil, err
		}
		order.PaymentReference = req.PaymentIntentID
	}

	if needsProof {
		uploaded, err := s.uploadProof(ctx, userID, proof)
		if err != nil {
			return nil, err
		}
		order.PaymentProofURL = uploaded.URL
		order.PaymentProofKey = uploaded.Key
	}

	err = s.store.WithTx(ctx, func(tx store.Store) error {
		current, err := tx.ListCartItems(ctx, userID)
		if err != nil {
			return err
		}
		if !sameCart(cart.items, current) {
			return ErrCartChanged
		}
		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		removed, err := tx.RemoveCartItems(ctx, userID, current)
		if err != nil {
			return err
		}
		if removed != int64(len(current)) {
			return ErrCartChanged
		}
		return nil
	})
	if err != nil {
		s.discardProof(order.PaymentProofKey)
		if errors.Is(err, ErrCartChanged) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to place order: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"order_id":       order.ID,
		"user_id":        userID,
		"payment_method": method,
		"total":          order.Total,
	}).Info("Order placed")

	publish(ctx, s.bus, events.TopicOrders, events.TypeOrderPlaced, order.ID.String(), order)
	publish(ctx, s.bus, events.CartTopic(userID), events.TypeCartChanged, "", map[string]interface{}{"cleared": true})

	return order, nil
}

// PrepareCardPayment creates a Stripe payment intent for the current cart
// total. Repeated calls for an unchanged cart reuse the same intent.
func (s *OrderService) PrepareCardPayment(ctx context.Context, userID uuid.UUID) (*PaymentIntentResponse, error) {
	if s.payments == nil {
		return nil, ErrPaymentUnavailable
	}

	cart, err := s.carts.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart.Lines) == 0 {
		return nil, ErrCartEmpty
	}

	return s.payments.CreatePaymentIntent(ctx, userID, cart.Total, cartFingerprint(userID, cart))
}

func (s *OrderService) uploadProof(ctx context.Context, userID uuid.UUID, proof *PaymentProof) (*UploadResult, error) {
	data, err := io.ReadAll(proof.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read payment proof: %w", err)
	}
	if s.config.Storage.MaxProofSize > 0 && int64(len(data)) > s.config.Storage.MaxProofSize {
		return nil, ErrProofTooLarge
	}

	contentType, err := proofContentType(proof.Filename, data)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s/%s_%d%s", proofFolder, userID, time.Now().UnixMilli(), strings.ToLower(filepath.Ext(proof.Filename)))
	uploaded, err := s.blobs.Put(ctx, key, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload payment proof: %w", err)
	}
	return uploaded, nil
}

func (s *OrderService) discardProof(key string) {
	if key == "" {
		return
	}
	// The request context may already be cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.blobs.Delete(ctx, key); err != nil {
		logrus.WithError(err).WithField("key", key).Error("Failed to delete orphaned payment proof")
	}
}

// UpdateStatus moves an order one step through its lifecycle. Stock is
// taken when an order goes from pending to processing.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, next models.OrderStatus) (*models.Order, error) {
	var order *models.Order
	var decremented []uuid.UUID

	err := s.store.WithTx(ctx, func(tx store.Store) error {
		var err error
		order, err = tx.GetOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		if !order.Status.CanTransitionTo(next) {
			return &TransitionError{From: order.Status, To: next}
		}

		decremented = nil
		if order.Status == models.OrderStatusPending && next == models.OrderStatusProcessing {
			decremented, err = reserveStock(ctx, tx, order)
			if err != nil {
				return err
			}
		}

		applied, err := tx.CompareAndSetOrderStatus(ctx, order.ID, order.Status, next)
		if err != nil {
			return err
		}
		if !applied {
			return ErrStatusConflict
		}
		return nil
	})
	if err != nil {
		var stockErr *InsufficientStockError
		var transitionErr *TransitionError
		switch {
		case errors.As(err, &stockErr), errors.As(err, &transitionErr),
			errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrStatusConflict):
			return nil, err
		}
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	previous := order.Status
	order.Status = next

	logrus.WithFields(logrus.Fields{
		"order_id": order.ID,
		"from":     previous,
		"to":       next,
	}).Info("Order status updated")

	publish(ctx, s.bus, events.TopicOrders, events.TypeOrderStatusChanged, order.ID.String(), map[string]interface{}{
		"from":  previous,
		"to":    next,
		"order": order,
	})
	for _, id := range decremented {
		publish(ctx, s.bus, events.TopicProducts, events.TypeProductUpdated, id.String(), nil)
	}

	return order, nil
}

// reserveStock validates every product before touching any of them, then
// decrements each with a conditional update. Products deleted since the
// order was placed are skipped.
func reserveStock(ctx context.Context, tx store.Store, order *models.Order) ([]uuid.UUID, error) {
	quantities := order.Items.QuantitiesByProduct()
	names := make(map[uuid.UUID]string, len(order.Items))
	ids := make([]uuid.UUID, 0, len(quantities))
	for _, item := range order.Items {
		if _, seen := names[item.ProductID]; !seen {
			names[item.ProductID] = item.Name
			ids = append(ids, item.ProductID)
		}
	}

	products, err := tx.GetProducts(ctx, ids)
	if err != nil {
		return nil, err
	}

	var shortages []StockShortage
	var present []uuid.UUID
	for _, id := range ids {
		product, ok := products[id]
		if !ok {
			logrus.WithFields(logrus.Fields{
				"order_id":   order.ID,
				"product_id": id,
			}).Warn("Product no longer exists, skipping stock update")
			continue
		}
		present = append(present, id)
		if product.Stock < quantities[id] {
			shortages = append(shortages, StockShortage{
				ProductID: id,
				Name:      product.Name,
				Requested: quantities[id],
				Available: product.Stock,
			})
		}
	}
	if len(shortages) > 0 {
		return nil, &InsufficientStockError{Shortages: shortages}
	}

	for _, id := range present {
		applied, err := tx.DecrementStock(ctx, id, quantities[id])
		if err != nil {
			return nil, err
		}
		if !applied {
			product := products[id]
			return nil, &InsufficientStockError{Shortages: []StockShortage{{
				ProductID: id,
				Name:      product.Name,
				Requested: quantities[id],
				Available: product.Stock,
			}}}
		}
	}

	return present, nil
}

func (s *OrderService) ListMyOrders(ctx context.Context, userID uuid.UUID, params utils.PaginationParams) ([]models.Order, int64, error) {
	if userID == uuid.Nil {
		return nil, 0, ErrAuthRequired
	}
	params.Sort = "created_at"
	params.Order = "desc"
	return s.store.ListOrders(ctx, store.OrderFilter{UserID: &userID, PaginationParams: params})
}

func (s *OrderService) ListOrders(ctx context.Context, status models.OrderStatus, params utils.PaginationParams) ([]models.Order, int64, error) {
	return s.store.ListOrders(ctx, store.OrderFilter{Status: status, PaginationParams: params})
}

// GetOrder returns an order visible to the requester: its owner or an admin.
func (s *OrderService) GetOrder(ctx context.Context, requesterID uuid.UUID, isAdmin bool, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if !isAdmin && order.UserID != requesterID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// Confirmation groups the order lines by provider with a prefilled WhatsApp
// chat link for each.
func (s *OrderService) Confirmation(ctx context.Context, requesterID uuid.UUID, isAdmin bool, orderID uuid.UUID) (*OrderConfirmation, error) {
	order, err := s.GetOrder(ctx, requesterID, isAdmin, orderID)
	if err != nil {
		return nil, err
	}

	providerOf := make(map[uuid.UUID]uuid.UUID)
	var missing []uuid.UUID
	for _, item := range order.Items {
		if item.ProviderID != nil {
			providerOf[item.ProductID] = *item.ProviderID
		} else {
			missing = append(missing, item.ProductID)
		}
	}
	if len(missing) > 0 {
		products, err := s.store.GetProducts(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("failed to load products: %w", err)
		}
		for id, product := range products {
			if product.ProviderID != nil {
				providerOf[id] = *product.ProviderID
			}
		}
	}

	providerIDs := make([]uuid.UUID, 0, len(providerOf))
	seen := make(map[uuid.UUID]bool)
	for _, item := range order.Items {
		if id, ok := providerOf[item.ProductID]; ok && !seen[id] {
			seen[id] = true
			providerIDs = append(providerIDs, id)
		}
	}
	providers, err := s.store.GetProviders(ctx, providerIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load providers: %w", err)
	}

	contacts := make([]ProviderContact, 0, len(providerIDs))
	for _, id := range providerIDs {
		provider, ok := providers[id]
		if !ok {
			continue
		}
		contact := ProviderContact{ProviderID: id, Name: provider.Name, Phone: provider.Phone}
		for _, item := range order.Items {
			if providerOf[item.ProductID] == id {
				contact.Items = append(contact.Items, item)
			}
		}
		contact.WhatsAppURL = whatsAppURL(provider.Phone, order, contact.Items)
		contacts = append(contacts, contact)
	}

	return &OrderConfirmation{Order: order, Providers: contacts}, nil
}

// ProofURL returns a short-lived link to the payment proof of an order.
func (s *OrderService) ProofURL(order *models.Order) (string, error) {
	if order.PaymentProofKey == "" {
		return order.PaymentProofURL, nil
	}
	presigner, ok := s.blobs.(interface {
		GeneratePresignedURL(string, time.Duration) (string, error)
	})
	if !ok {
		return order.PaymentProofURL, nil
	}
	return presigner.GeneratePresignedURL(order.PaymentProofKey, 15*time.Minute)
}

func snapshotItems(lines []models.CartLine) models.OrderItems {
	items := make(models.OrderItems, 0, len(lines))
	for _, line := range lines {
		product := line.Product
		item := models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  clampQuantity(line.Quantity),
			Size:      strings.TrimSpace(line.Size),
			Color:     strings.TrimSpace(line.Color),
		}
		if product.ProviderID != nil {
			id := *product.ProviderID
			item.ProviderID = &id
		}
		for _, image := range product.Images {
			if image != "" {
				item.Images = append(item.Images, image)
			}
		}
		items = append(items, item)
	}
	return items
}

func sameCart(before, after []models.CartItem) bool {
	if len(before) != len(after) {
		return false
	}
	index := make(map[string]models.CartItem, len(before))
	for _, item := range before {
		index[item.Key] = item
	}
	for _, item := range after {
		prev, ok := index[item.Key]
		if !ok || prev.Quantity != item.Quantity || prev.Size != item.Size ||
			prev.Color != item.Color || prev.ProductID != item.ProductID {
			return false
		}
	}
	return true
}

func cartFingerprint(userID uuid.UUID, cart *Cart) string {
	parts := make([]string, 0, len(cart.Lines)+2)
	parts = append(parts, userID.String(), strconv.FormatFloat(cart.Total, 'f', 2, 64))
	for _, line := range cart.Lines {
		parts = append(parts, fmt.Sprintf("%s:%d:%s:%s", line.Key, line.Quantity, line.Size, line.Color))
	}
	sort.Strings(parts[2:])
	return utils.HashString(strings.Join(parts, "|"))
}

func whatsAppURL(phone string, order *models.Order, items []models.OrderItem) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	var msg bytes.Buffer
	msg.WriteString("Hola, acabo de realizar un pedido con los siguientes productos:\n\n")
	for _, item := range items {
		fmt.Fprintf(&msg, "%s - Cantidad: %d - Precio: %s\n", item.Name, item.Quantity, formatAmount(item.Price*float64(item.Quantity)))
	}
	fmt.Fprintf(&msg, "\nTotal del pedido: %s\n", formatAmount(order.Total))
	fmt.Fprintf(&msg, "ID del pedido: %s\n", order.ID)
	fmt.Fprintf(&msg, "Fecha del pedido: %s", order.CreatedAt.Format("2006-01-02 15:04"))

	return "https://wa.me/" + digits.String() + "?" + url.Values{"text": {msg.String()}}.Encode()
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}
