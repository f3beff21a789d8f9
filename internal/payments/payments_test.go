package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80"
)

type mockCreator struct{ mock.Mock }

func (m *mockCreator) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	args := m.Called(params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.PaymentIntent), args.Error(1)
}

func TestStripeIntents_Create(t *testing.T) {
	creator := new(mockCreator)
	creator.On("New", mock.MatchedBy(func(p *stripe.PaymentIntentParams) bool {
		return *p.Amount == 2130 && *p.Currency == "inr" && p.Metadata["userId"] == "7"
	})).Return(&stripe.PaymentIntent{
		ID:           "pi_123",
		ClientSecret: "pi_123_secret",
		Amount:       2130,
		Currency:     stripe.CurrencyINR,
	}, nil).Once()

	s := &StripeIntents{pi: creator}
	intent, err := s.Create(context.Background(), 2130, "inr", map[string]string{"userId": "7"})
	require.NoError(t, err)
	assert.Equal(t, &Intent{ID: "pi_123", ClientSecret: "pi_123_secret", Amount: 2130, Currency: "inr"}, intent)
	creator.AssertExpectations(t)
}

func TestStripeIntents_Error(t *testing.T) {
	creator := new(mockCreator)
	creator.On("New", mock.Anything).Return(nil, errors.New("card_declined")).Once()

	_, err := (&StripeIntents{pi: creator}).Create(context.Background(), 100, "inr", nil)
	assert.ErrorContains(t, err, "card_declined")
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.Create(context.Background(), 1, "inr", nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
