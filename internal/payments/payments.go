package payments

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/paymentintent"
)

// ErrNotConfigured is returned when no payment provider key is set.
var ErrNotConfigured = errors.New("payments not configured")

// Intent is what the client needs to confirm a payment.
type Intent struct {
	ID           string `json:"paymentIntentId"`
	ClientSecret string `json:"clientSecret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// Intents creates payment intents for an amount in minor units.
type Intents interface {
	Create(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*Intent, error)
}

type intentCreator interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeIntents creates Stripe PaymentIntents with automatic payment methods.
type StripeIntents struct {
	pi intentCreator
}

func NewStripeIntents(secretKey string) *StripeIntents {
	return &StripeIntents{pi: &paymentintent.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey}}
}

func (s *StripeIntents) Create(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := s.pi.New(params)
	if err != nil {
		return nil, err
	}
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

// Disabled is used when STRIPE_SECRET_KEY is empty.
type Disabled struct{}

func (Disabled) Create(context.Context, int64, string, map[string]string) (*Intent, error) {
	return nil, ErrNotConfigured
}
