// internal/handlers/payment.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/utils"
)

type PaymentHandler struct {
	orderService   *services.OrderService
	paymentService *services.PaymentService
	config         *config.Config
}

func NewPaymentHandler(orderService *services.OrderService, paymentService *services.PaymentService, config *config.Config) *PaymentHandler {
	return &PaymentHandler{
		orderService:   orderService,
		paymentService: paymentService,
		config:         config,
	}
}

type checkoutOptions struct {
	PaymentMethods       []string `json:"payment_methods"`
	CashOnDeliveryMethod string   `json:"cash_on_delivery_method"`
	CardMethod           string   `json:"card_method,omitempty"`
	ShippingFee          float64  `json:"shipping_fee"`
	Currency             string   `json:"currency"`
	PublishableKey       string   `json:"publishable_key,omitempty"`
}

// GET /payments/options
func (h *PaymentHandler) GetCheckoutOptions(c *gin.Context) {
	cfg := h.config.Payment
	options := checkoutOptions{
		CashOnDeliveryMethod: cfg.CashOnDeliveryMethod,
		ShippingFee:          cfg.ShippingFee,
		Currency:             cfg.Currency,
	}

	for _, method := range cfg.AcceptedMethods {
		if method == cfg.CardMethod && !h.paymentService.Enabled() {
			continue
		}
		options.PaymentMethods = append(options.PaymentMethods, method)
	}
	if h.paymentService.Enabled() {
		options.CardMethod = cfg.CardMethod
		options.PublishableKey = cfg.StripePublishableKey
	}

	utils.SuccessResponse(c, options)
}

// POST /payments/intent
// The amount is always the server-side cart total.
func (h *PaymentHandler) CreatePaymentIntent(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	response, err := h.orderService.PrepareCardPayment(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedMessageResponse(c, i18n.KeyPaymentIntentCreated, response)
}
