package donor

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/samadsayyed/donation-portal-sub000/lib/myerrors"
	"github.com/samadsayyed/donation-portal-sub000/lib/mylog"
	"github.com/samadsayyed/donation-portal-sub000/lib/mystore"
	"github.com/samadsayyed/donation-portal-sub000/lib/mytime"
	"github.com/samadsayyed/donation-portal-sub000/lib/myuuid"
	"github.com/samadsayyed/donation-portal-sub000/services/donationapi"
	"github.com/samadsayyed/donation-portal-sub000/services/payment"
)

const minPasswordLength = 8

// Donations is the payment core view needed for a donor's giving history
type Donations interface {
	ListDonations(c context.Context, owner donationapi.Owner) ([]payment.DonationRecord, error)
}

type service struct {
	donorStore   mystore.Store[Donor]
	addressStore mystore.Store[Address]
	donations    Donations
	nower        mytime.Nower
	uuider       myuuid.UUIDer
	logger       mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(donorStore mystore.Store[Donor], addressStore mystore.Store[Address], donations Donations,
	nower mytime.Nower, uuider myuuid.UUIDer, logger mylog.Logger) *service {
	return &service{
		donorStore:   donorStore,
		addressStore: addressStore,
		donations:    donations,
		nower:        nower,
		uuider:       uuider,
		logger:       logger,
	}
}

func (s *service) findByEmail(c context.Context, email string) (Donor, bool, error) {
	donors, err := s.donorStore.Query(c, []mystore.Filter{
		{Field: "Email", Compare: "=", Value: normalizeEmail(email)},
	}, "CreatedAt")
	if err != nil {
		return Donor{}, false, myerrors.NewInternalError(fmt.Errorf("error fetching donor by email: %s", err))
	}
	if len(donors) == 0 {
		return Donor{}, false, nil
	}
	return donors[0], true, nil
}

func (s *service) fetch(c context.Context, donorUID string) (Donor, error) {
	donor, found, err := s.donorStore.Get(c, donorUID)
	if err != nil {
		return Donor{}, myerrors.NewInternalError(fmt.Errorf("error fetching donor %s: %s", donorUID, err))
	}
	if !found {
		return Donor{}, myerrors.NewNotFoundError(fmt.Errorf("donor with uid %s not found", donorUID))
	}
	return donor, nil
}

func (s *service) signup(c context.Context, donor Donor, password string) (Donor, error) {
	donor.Email = normalizeEmail(donor.Email)
	if donor.Email == "" {
		return Donor{}, myerrors.NewInvalidInputErrorf("email is required")
	}
	if donor.FirstName == "" || donor.LastName == "" {
		return Donor{}, myerrors.NewInvalidInputErrorf("first and last name are required")
	}
	if len(password) < minPasswordLength {
		return Donor{}, myerrors.NewInvalidInputErrorf("password must be at least %d characters", minPasswordLength)
	}

	_, exists, err := s.findByEmail(c, donor.Email)
	if err != nil {
		return Donor{}, err
	}
	if exists {
		return Donor{}, myerrors.NewInvalidInputErrorf("an account with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Donor{}, myerrors.NewInternalError(fmt.Errorf("error hashing password: %s", err))
	}

	donor.UID = s.uuider.Create()
	donor.PasswordHash = hash
	donor.CreatedAt = s.nower.Now()
	donor.LastModified = nil

	err = s.donorStore.Put(c, donor.UID, donor)
	if err != nil {
		return Donor{}, myerrors.NewInternalError(fmt.Errorf("error storing donor: %s", err))
	}

	s.logger.Log(c, donor.UID, mylog.SeverityInfo, "Donor %s signed up", donor.UID)

	return donor, nil
}

func (s *service) login(c context.Context, email string, password string) (Donor, error) {
	donor, found, err := s.findByEmail(c, email)
	if err != nil {
		return Donor{}, err
	}
	if !found {
		return Donor{}, myerrors.NewAuthenticationError(fmt.Errorf("unknown email or wrong password"))
	}

	err = bcrypt.CompareHashAndPassword(donor.PasswordHash, []byte(password))
	if err != nil {
		return Donor{}, myerrors.NewAuthenticationError(fmt.Errorf("unknown email or wrong password"))
	}

	s.logger.Log(c, donor.UID, mylog.SeverityInfo, "Donor %s logged in", donor.UID)

	return donor, nil
}

func (s *service) emailExists(c context.Context, email string) (bool, error) {
	_, exists, err := s.findByEmail(c, email)
	return exists, err
}

func (s *service) update(c context.Context, donorUID string, update Donor) (Donor, error) {
	now := s.nower.Now()

	var updated Donor
	err := s.donorStore.RunInTransaction(c, func(c context.Context) error {
		donor, err := s.fetch(c, donorUID)
		if err != nil {
			return err
		}

		if update.Title != "" {
			donor.Title = update.Title
		}
		if update.FirstName != "" {
			donor.FirstName = update.FirstName
		}
		if update.LastName != "" {
			donor.LastName = update.LastName
		}
		if update.Phone != "" {
			donor.Phone = update.Phone
		}
		if update.Email != "" {
			email := normalizeEmail(update.Email)
			if email != donor.Email {
				_, exists, err := s.findByEmail(c, email)
				if err != nil {
					return err
				}
				if exists {
					return myerrors.NewInvalidInputErrorf("an account with this email already exists")
				}
				donor.Email = email
			}
		}
		donor.LastModified = &now

		err = s.donorStore.Put(c, donorUID, donor)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing donor %s: %s", donorUID, err))
		}
		updated = donor
		return nil
	})
	if err != nil {
		return Donor{}, err
	}
	return updated, nil
}

func (s *service) updatePassword(c context.Context, donorUID string, currentPassword string, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return myerrors.NewInvalidInputErrorf("password must be at least %d characters", minPasswordLength)
	}

	donor, err := s.fetch(c, donorUID)
	if err != nil {
		return err
	}

	err = bcrypt.CompareHashAndPassword(donor.PasswordHash, []byte(currentPassword))
	if err != nil {
		return myerrors.NewAuthenticationError(fmt.Errorf("current password does not match"))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error hashing password: %s", err))
	}

	now := s.nower.Now()
	donor.PasswordHash = hash
	donor.LastModified = &now

	err = s.donorStore.Put(c, donorUID, donor)
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error storing donor %s: %s", donorUID, err))
	}
	return nil
}

func (s *service) addAddress(c context.Context, donorUID string, address Address, makeDefault bool) (Address, error) {
	donor, err := s.fetch(c, donorUID)
	if err != nil {
		return Address{}, err
	}

	if address.Postcode == "" || address.Address1 == "" || address.City == "" {
		return Address{}, myerrors.NewInvalidInputErrorf("postcode, address1 and city are required")
	}

	address.UID = s.uuider.Create()
	address.DonorUID = donorUID
	address.CreatedAt = s.nower.Now()

	err = s.addressStore.Put(c, address.UID, address)
	if err != nil {
		return Address{}, myerrors.NewInternalError(fmt.Errorf("error storing address: %s", err))
	}

	if makeDefault || donor.DefaultAddressID == "" {
		now := s.nower.Now()
		donor.DefaultAddressID = address.UID
		donor.LastModified = &now
		err = s.donorStore.Put(c, donorUID, donor)
		if err != nil {
			return Address{}, myerrors.NewInternalError(fmt.Errorf("error storing donor %s: %s", donorUID, err))
		}
	}

	return address, nil
}

func (s *service) listAddresses(c context.Context, donorUID string) ([]Address, error) {
	addresses, err := s.addressStore.Query(c, []mystore.Filter{
		{Field: "DonorUID", Compare: "=", Value: donorUID},
	}, "CreatedAt")
	if err != nil {
		return nil, myerrors.NewInternalError(fmt.Errorf("error fetching addresses of %s: %s", donorUID, err))
	}
	return addresses, nil
}

func (s *service) donationHistory(c context.Context, donorUID string) ([]payment.DonationRecord, error) {
	_, err := s.fetch(c, donorUID)
	if err != nil {
		return nil, err
	}
	return s.donations.ListDonations(c, donationapi.Owner{DonorID: donorUID})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
