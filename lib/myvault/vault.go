package myvault

import (
	"context"

	"github.com/samadsayyed/donation-portal-sub000/lib/mystore"
)

const (
	// Keys under which the payment gateway credentials are stored
	StripeCredentials = "stripe"
	PayPalCredentials = "paypal"
)

// Credentials holds what a payment gateway adapter needs to authenticate
type Credentials struct {
	APIKey       string
	ClientID     string
	ClientSecret string
}

type VaultReader interface {
	Get(c context.Context, uid string) (Credentials, bool, error)
}

//go:generate mockgen -source=vault.go -package myvault -destination vault_mock.go Vault
type Vault interface {
	Put(c context.Context, uid string, value Credentials) error
	Get(c context.Context, uid string) (Credentials, bool, error)
}

func New(c context.Context) (Vault, func(), error) {
	return mystore.New[Credentials](c)
}
