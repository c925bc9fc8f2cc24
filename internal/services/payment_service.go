// internal/services/payment_service.go
package services

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"

	"github.com/javajoker/storefront-backend/internal/config"
)

// CardPayments verifies card payments made outside the order request.
type CardPayments interface {
	CreatePaymentIntent(ctx context.Context, userID uuid.UUID, amount float64, idempotencyKey string) (*PaymentIntentResponse, error)
	VerifyPayment(ctx context.Context, intentID string, amount float64) error
}

type PaymentService struct {
	config *config.Config
}

var _ CardPayments = (*PaymentService)(nil)

type PaymentIntentResponse struct {
	ClientSecret   string  `json:"client_secret"`
	PaymentID      string  `json:"payment_id"`
	Status         string  `json:"status"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	PublishableKey string  `json:"publishable_key,omitempty"`
}

func NewPaymentService(config *config.Config) *PaymentService {
	// Initialize Stripe
	stripe.Key = config.Payment.StripeSecretKey

	return &PaymentService{
		config: config,
	}
}

func (s *PaymentService) Enabled() bool {
	return s.config.Payment.StripeSecretKey != ""
}

func (s *PaymentService) CreatePaymentIntent(ctx context.Context, userID uuid.UUID, amount float64, idempotencyKey string) (*PaymentIntentResponse, error) {
	if !s.Enabled() {
		return nil, ErrPaymentUnavailable
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toMinorUnits(amount)),
		Currency: stripe.String(s.config.Payment.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("user_id", userID.String())
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return &PaymentIntentResponse{
		ClientSecret:   pi.ClientSecret,
		PaymentID:      pi.ID,
		Status:         string(pi.Status),
		Amount:         amount,
		Currency:       s.config.Payment.Currency,
		PublishableKey: s.config.Payment.StripePublishableKey,
	}, nil
}

// VerifyPayment accepts an intent only once it has succeeded for exactly
// the expected amount.
func (s *PaymentService) VerifyPayment(ctx context.Context, intentID string, amount float64) error {
	if !s.Enabled() {
		return ErrPaymentUnavailable
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(intentID, params)
	if err != nil {
		return fmt.Errorf("failed to get payment intent: %w", err)
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return fmt.Errorf("%w: status %s", ErrPaymentUnverified, pi.Status)
	}
	if pi.Amount != toMinorUnits(amount) {
		return fmt.Errorf("%w: paid %d, expected %d", ErrPaymentUnverified, pi.Amount, toMinorUnits(amount))
	}
	if string(pi.Currency) != s.config.Payment.Currency {
		return fmt.Errorf("%w: currency %s", ErrPaymentUnverified, pi.Currency)
	}

	return nil
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
