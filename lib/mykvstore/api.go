package mykvstore

import (
	"context"
	"time"

	"github.com/samadsayyed/donation-portal-sub000/lib/mystore"
	"github.com/samadsayyed/donation-portal-sub000/lib/mytime"
)

// Store is a key-value store in which every entry carries a deadline.
// Get enforces the deadline: an expired entry is reported as absent.
//
//go:generate mockgen -source=api.go -package mykvstore -destination kvstore_mock.go Store
type Store interface {
	Put(c context.Context, key string, value any, ttl time.Duration) error
	Get(c context.Context, key string, target any) (bool, error)
	Delete(c context.Context, key string) error
}

func New(c context.Context, nower mytime.Nower) (Store, func(), error) {
	store, cleanup, err := mystore.New[Entry](c)
	if err != nil {
		return nil, nil, err
	}

	return &expiringStore{
		store: store,
		nower: nower,
	}, cleanup, nil
}
