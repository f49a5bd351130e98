package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/samadsayyed/donation-portal-sub000/lib/myerrors"
	"github.com/samadsayyed/donation-portal-sub000/lib/mylog"
	"github.com/samadsayyed/donation-portal-sub000/lib/mypublisher"
	"github.com/samadsayyed/donation-portal-sub000/lib/mystore"
	"github.com/samadsayyed/donation-portal-sub000/lib/mytime"
	"github.com/samadsayyed/donation-portal-sub000/lib/myuuid"
	"github.com/samadsayyed/donation-portal-sub000/services/cartevents"
	"github.com/samadsayyed/donation-portal-sub000/services/donationapi"
)

const participantNameSeparator = ","

type service struct {
	cartStore mystore.Store[CartLine]
	publisher mypublisher.Publisher
	nower     mytime.Nower
	uuider    myuuid.UUIDer
	logger    mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(cartStore mystore.Store[CartLine], publisher mypublisher.Publisher, nower mytime.Nower, uuider myuuid.UUIDer, logger mylog.Logger) *service {
	return &service{
		cartStore: cartStore,
		publisher: publisher,
		nower:     nower,
		uuider:    uuider,
		logger:    logger,
	}
}

func (s *service) create(c context.Context, owner donationapi.Owner, line CartLine) ([]CartLine, error) {
	err := owner.Validate()
	if err != nil {
		return nil, err
	}
	if line.DonationAmount <= 0 {
		return nil, myerrors.NewInvalidInputErrorf("donation amount must be positive")
	}
	if line.Quantity < 1 {
		line.Quantity = 1
	}
	if line.AnimalShare < 1 {
		line.AnimalShare = 1
	}
	if line.Currency == "" {
		line.Currency = "GBP"
	}

	line.UID = s.uuider.Create()
	line.DonorID = owner.DonorID
	line.SessionID = owner.SessionID
	line.OwnerUID = owner.UID()
	line.CreatedAt = s.nower.Now()
	line.ParticipantNames = make([]string, line.SlotCount())

	s.logger.Log(c, line.UID, mylog.SeverityInfo, "Adding line %s (%s) to cart of %s", line.UID, line.ProgramName, line.OwnerUID)

	err = s.cartStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent

		err := s.cartStore.Put(c, line.UID, line)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing cart line: %s", err))
		}

		err = s.publisher.Publish(c, cartevents.TopicName, cartevents.CartLineAdded{
			CartUID:       line.UID,
			OwnerUID:      line.OwnerUID,
			ProgramName:   line.ProgramName,
			AmountInPence: line.DonationAmount,
			Quantity:      line.Quantity,
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error publishing event: %s", err))
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// re-read after write keeps the caller's view aligned with the store
	return s.list(c, owner)
}

func (s *service) list(c context.Context, owner donationapi.Owner) ([]CartLine, error) {
	// auth state may still be loading on the caller's side: no identity
	// simply means an empty cart, not an error
	if owner.UID() == "" {
		return []CartLine{}, nil
	}

	lines, err := s.cartStore.Query(c, []mystore.Filter{
		{Field: "OwnerUID", Compare: "=", Value: owner.UID()},
	}, "CreatedAt")
	if err != nil {
		return nil, myerrors.NewInternalError(fmt.Errorf("error fetching cart of %s: %s", owner.UID(), err))
	}

	return lines, nil
}

func (s *service) updateQuantity(c context.Context, cartUID string, newQuantity int) ([]CartLine, error) {
	if newQuantity < 1 {
		return nil, myerrors.NewInvalidInputErrorf("quantity must be at least 1")
	}

	now := s.nower.Now()

	var owner donationapi.Owner
	err := s.cartStore.RunInTransaction(c, func(c context.Context) error {
		line, found, err := s.cartStore.Get(c, cartUID)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error fetching cart line %s: %s", cartUID, err))
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("cart line with uid %s not found", cartUID))
		}

		line.Quantity = newQuantity
		// slot count changed: previously entered names are discarded
		line.ParticipantNames = make([]string, line.SlotCount())
		line.LastModified = &now

		err = s.cartStore.Put(c, cartUID, line)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing cart line %s: %s", cartUID, err))
		}

		owner = donationapi.Owner{DonorID: line.DonorID, SessionID: line.SessionID}

		return s.publisher.Publish(c, cartevents.TopicName, cartevents.CartLineUpdated{
			CartUID:  line.UID,
			OwnerUID: line.OwnerUID,
			Quantity: line.Quantity,
		})
	})
	if err != nil {
		return nil, err
	}

	return s.list(c, owner)
}

func (s *service) remove(c context.Context, cartUID string) ([]CartLine, error) {
	var owner donationapi.Owner
	err := s.cartStore.RunInTransaction(c, func(c context.Context) error {
		line, found, err := s.cartStore.Get(c, cartUID)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error fetching cart line %s: %s", cartUID, err))
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("cart line with uid %s not found", cartUID))
		}

		err = s.cartStore.Delete(c, cartUID)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error deleting cart line %s: %s", cartUID, err))
		}

		owner = donationapi.Owner{DonorID: line.DonorID, SessionID: line.SessionID}

		return s.publisher.Publish(c, cartevents.TopicName, cartevents.CartLineRemoved{
			CartUID:  line.UID,
			OwnerUID: line.OwnerUID,
		})
	})
	if err != nil {
		return nil, err
	}

	return s.list(c, owner)
}

func (s *service) updateParticipants(c context.Context, cartUID string, joinedNames string) ([]CartLine, error) {
	return s.setParticipants(c, cartUID, splitParticipantNames(joinedNames))
}

func (s *service) setParticipants(c context.Context, cartUID string, names []string) ([]CartLine, error) {
	now := s.nower.Now()

	var owner donationapi.Owner
	err := s.cartStore.RunInTransaction(c, func(c context.Context) error {
		line, found, err := s.cartStore.Get(c, cartUID)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error fetching cart line %s: %s", cartUID, err))
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("cart line with uid %s not found", cartUID))
		}

		if len(names) != line.SlotCount() {
			return myerrors.NewInvalidInputErrorf("expected %d participant names, got %d", line.SlotCount(), len(names))
		}

		line.ParticipantNames = names
		line.LastModified = &now

		err = s.cartStore.Put(c, cartUID, line)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing cart line %s: %s", cartUID, err))
		}

		owner = donationapi.Owner{DonorID: line.DonorID, SessionID: line.SessionID}

		return s.publisher.Publish(c, cartevents.TopicName, cartevents.CartLineUpdated{
			CartUID:  line.UID,
			OwnerUID: line.OwnerUID,
			Quantity: line.Quantity,
		})
	})
	if err != nil {
		return nil, err
	}

	return s.list(c, owner)
}

// clearOwner removes every line of an owner, invoked by the deferred
// cleanup task after a completed donation
func (s *service) clearOwner(c context.Context, ownerUID string) error {
	return s.cartStore.RunInTransaction(c, func(c context.Context) error {
		lines, err := s.cartStore.Query(c, []mystore.Filter{
			{Field: "OwnerUID", Compare: "=", Value: ownerUID},
		}, "CreatedAt")
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error fetching cart of %s: %s", ownerUID, err))
		}

		for _, line := range lines {
			err = s.cartStore.Delete(c, line.UID)
			if err != nil {
				return myerrors.NewInternalError(fmt.Errorf("error deleting cart line %s: %s", line.UID, err))
			}
		}

		return nil
	})
}

func splitParticipantNames(joined string) []string {
	if strings.TrimSpace(joined) == "" {
		return []string{}
	}
	parts := strings.Split(joined, participantNameSeparator)
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		names = append(names, strings.TrimSpace(part))
	}
	return names
}
