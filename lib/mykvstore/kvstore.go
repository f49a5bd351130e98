package mykvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/samadsayyed/donation-portal-sub000/lib/mystore"
	"github.com/samadsayyed/donation-portal-sub000/lib/mytime"
)

type Entry struct {
	Key       string
	Payload   string `datastore:",noindex"`
	ExpiresAt time.Time
}

type expiringStore struct {
	store mystore.Store[Entry]
	nower mytime.Nower
}

func NewWithStore(store mystore.Store[Entry], nower mytime.Nower) Store {
	return &expiringStore{
		store: store,
		nower: nower,
	}
}

func (s *expiringStore) Put(c context.Context, key string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("error marshalling value for key %s: %s", key, err)
	}

	return s.store.Put(c, key, Entry{
		Key:       key,
		Payload:   string(payload),
		ExpiresAt: s.nower.Now().Add(ttl),
	})
}

func (s *expiringStore) Get(c context.Context, key string, target any) (bool, error) {
	entry, found, err := s.store.Get(c, key)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	if !s.nower.Now().Before(entry.ExpiresAt) {
		// Lazily remove the stale entry
		err = s.store.Delete(c, key)
		if err != nil {
			return false, err
		}
		return false, nil
	}

	err = json.Unmarshal([]byte(entry.Payload), target)
	if err != nil {
		return false, fmt.Errorf("error unmarshalling value for key %s: %s", key, err)
	}

	return true, nil
}

func (s *expiringStore) Delete(c context.Context, key string) error {
	return s.store.Delete(c, key)
}
