package paymentstripe

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"

	"github.com/samadsayyed/donation-portal-sub000/lib/myerrors"
)

//go:generate mockgen -source=payer.go -package paymentstripe -destination payer_mock.go Payer
type Payer interface {
	UseAPIKey(key string)
	CreatePaymentIntent(ctx context.Context, params stripe.PaymentIntentParams) (stripe.PaymentIntent, error)
}

type stripePayer struct{}

func NewPayer() Payer {
	return &stripePayer{}
}

func (p *stripePayer) UseAPIKey(apiKey string) {
	stripe.Key = apiKey
}

func (p *stripePayer) CreatePaymentIntent(ctx context.Context, params stripe.PaymentIntentParams) (stripe.PaymentIntent, error) {
	intent, err := paymentintent.New(&params)
	if err != nil {
		return stripe.PaymentIntent{}, myerrors.NewInvalidInputError(fmt.Errorf("error creating payment intent: %s", err))
	}

	return *intent, nil
}
