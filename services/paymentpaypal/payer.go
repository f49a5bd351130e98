package paymentpaypal

import (
	"context"
	"fmt"

	"github.com/plutov/paypal/v4"

	"github.com/samadsayyed/donation-portal-sub000/lib/myerrors"
)

//go:generate mockgen -source=payer.go -package paymentpaypal -destination payer_mock.go Payer
type Payer interface {
	Configure(ctx context.Context, clientID string, clientSecret string) error
	CaptureOrder(ctx context.Context, orderID string) (*paypal.CaptureOrderResponse, error)
}

type paypalPayer struct {
	apiBase string
	client  *paypal.Client
}

func NewPayer(apiBase string) Payer {
	if apiBase == "" {
		apiBase = paypal.APIBaseSandBox
	}
	return &paypalPayer{apiBase: apiBase}
}

func (p *paypalPayer) Configure(ctx context.Context, clientID string, clientSecret string) error {
	client, err := paypal.NewClient(clientID, clientSecret, p.apiBase)
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error creating paypal client: %s", err))
	}

	_, err = client.GetAccessToken(ctx)
	if err != nil {
		return myerrors.NewUnavailableError(fmt.Errorf("error authenticating with paypal: %s", err))
	}

	p.client = client
	return nil
}

func (p *paypalPayer) CaptureOrder(ctx context.Context, orderID string) (*paypal.CaptureOrderResponse, error) {
	response, err := p.client.CaptureOrder(ctx, orderID, paypal.CaptureOrderRequest{})
	if err != nil {
		return nil, myerrors.NewInvalidInputError(fmt.Errorf("error capturing order %s: %s", orderID, err))
	}

	return response, nil
}
