package payment

import (
	"context"
	"fmt"

	"github.com/samadsayyed/donation-portal-sub000/lib/myerrors"
	"github.com/samadsayyed/donation-portal-sub000/lib/mykvstore"
	"github.com/samadsayyed/donation-portal-sub000/lib/mylog"
	"github.com/samadsayyed/donation-portal-sub000/lib/mypublisher"
	"github.com/samadsayyed/donation-portal-sub000/lib/myqueue"
	"github.com/samadsayyed/donation-portal-sub000/lib/mystore"
	"github.com/samadsayyed/donation-portal-sub000/lib/mytime"
	"github.com/samadsayyed/donation-portal-sub000/lib/myuuid"
	"github.com/samadsayyed/donation-portal-sub000/lib/randtoken"
	"github.com/samadsayyed/donation-portal-sub000/services/donationapi"
	"github.com/samadsayyed/donation-portal-sub000/services/donationevents"
)

type service struct {
	referenceStore   mystore.Store[PaymentReference]
	transactionStore mystore.Store[TransactionRecord]
	donationStore    mystore.Store[DonationRecord]
	kvStore          mykvstore.Store
	queue            myqueue.TaskQueuer
	publisher        mypublisher.Publisher
	nower            mytime.Nower
	uuider           myuuid.UUIDer
	logger           mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(referenceStore mystore.Store[PaymentReference], transactionStore mystore.Store[TransactionRecord],
	donationStore mystore.Store[DonationRecord], kvStore mykvstore.Store, queue myqueue.TaskQueuer,
	publisher mypublisher.Publisher, nower mytime.Nower, uuider myuuid.UUIDer, logger mylog.Logger) *service {
	return &service{
		referenceStore:   referenceStore,
		transactionStore: transactionStore,
		donationStore:    donationStore,
		kvStore:          kvStore,
		queue:            queue,
		publisher:        publisher,
		nower:            nower,
		uuider:           uuider,
		logger:           logger,
	}
}

// issueReference hands out the payment reference of a checkout attempt.
// The same unconsumed reference is returned on re-request for that attempt,
// so retries correlate to a single reference while concurrent attempts of
// one owner each keep their own.
func (s *service) issueReference(c context.Context, owner donationapi.Owner, attemptUID string) (PaymentReference, error) {
	err := owner.Validate()
	if err != nil {
		return PaymentReference{}, err
	}
	if attemptUID == "" {
		return PaymentReference{}, myerrors.NewInvalidInputErrorf("reference requires a checkout attempt")
	}

	existing, err := s.referenceStore.Query(c, []mystore.Filter{
		{Field: "AttemptUID", Compare: "=", Value: attemptUID},
		{Field: "Consumed", Compare: "=", Value: false},
	}, "CreatedAt")
	if err != nil {
		return PaymentReference{}, myerrors.NewInternalError(fmt.Errorf("error fetching references of %s: %s", attemptUID, err))
	}
	if len(existing) > 0 {
		if existing[0].OwnerUID != owner.UID() {
			return PaymentReference{}, myerrors.NewAuthenticationError(
				fmt.Errorf("attempt %s does not belong to caller", attemptUID))
		}
		return existing[0], nil
	}

	token, err := randtoken.New(randtoken.PaymentReferenceLength)
	if err != nil {
		return PaymentReference{}, myerrors.NewInternalError(fmt.Errorf("error generating reference: %s", err))
	}

	reference := PaymentReference{
		Reference:  token,
		AttemptUID: attemptUID,
		DonorID:    owner.DonorID,
		SessionID:  owner.SessionID,
		OwnerUID:   owner.UID(),
		CreatedAt:  s.nower.Now(),
	}

	err = s.referenceStore.Put(c, reference.Reference, reference)
	if err != nil {
		return PaymentReference{}, myerrors.NewInternalError(fmt.Errorf("error storing reference: %s", err))
	}

	s.logger.Log(c, reference.Reference, mylog.SeverityInfo, "Issued payment reference %s for attempt %s of %s",
		reference.Reference, attemptUID, owner.UID())

	return reference, nil
}

// createTransaction records the submitted checkout form against its
// reference. Keyed by reference: a retried submit overwrites its own record.
func (s *service) createTransaction(c context.Context, record TransactionRecord) error {
	if record.ReferenceNo == "" {
		return myerrors.NewInvalidInputErrorf("transaction without reference")
	}

	return s.transactionStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent

		reference, found, err := s.referenceStore.Get(c, record.ReferenceNo)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error fetching reference %s: %s", record.ReferenceNo, err))
		}
		if !found {
			return myerrors.NewInvalidInputErrorf("unknown reference %s", record.ReferenceNo)
		}
		if reference.Consumed {
			return myerrors.NewInvalidInputErrorf("reference %s already used", record.ReferenceNo)
		}

		record.CreatedAt = s.nower.Now()

		err = s.transactionStore.Put(c, record.ReferenceNo, record)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing transaction: %s", err))
		}

		return nil
	})
}

func (s *service) hasDonationForReference(c context.Context, referenceNo string) (bool, error) {
	donations, err := s.donationStore.Query(c, []mystore.Filter{
		{Field: "ReferenceNo", Compare: "=", Value: referenceNo},
	}, "CreatedAt")
	if err != nil {
		return false, myerrors.NewInternalError(fmt.Errorf("error fetching donations of reference %s: %s", referenceNo, err))
	}
	return len(donations) > 0, nil
}

// createSingleDonation writes the terminal donation record. The reference
// is consumed in the same transaction, which makes a replayed confirmation
// fail before a second record can exist.
func (s *service) createSingleDonation(c context.Context, owner donationapi.Owner, transactionID string,
	amountInPence int64, currency string, method string, referenceNo string, coveredFee string) (DonationRecord, string, error) {

	err := owner.Validate()
	if err != nil {
		return DonationRecord{}, "", err
	}
	if method != MethodStripe && method != MethodPayPal {
		return DonationRecord{}, "", myerrors.NewInvalidInputErrorf("unsupported payment method %s", method)
	}
	if amountInPence <= 0 {
		return DonationRecord{}, "", myerrors.NewInvalidInputErrorf("donation amount must be positive")
	}
	if currency == "" {
		currency = "GBP"
	}
	if coveredFee != donationapi.Yes {
		coveredFee = donationapi.No
	}

	now := s.nower.Now()

	donation := DonationRecord{
		UID:           s.uuider.Create(),
		TransactionID: transactionID,
		ReferenceNo:   referenceNo,
		DonorID:       owner.DonorID,
		SessionID:     owner.SessionID,
		OwnerUID:      owner.UID(),
		AmountInPence: amountInPence,
		Currency:      currency,
		Status:        StatusCompleted,
		Method:        method,
		CoveredFee:    coveredFee,
		CreatedAt:     now,
	}

	err = s.referenceStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent

		reference, found, err := s.referenceStore.Get(c, referenceNo)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error fetching reference %s: %s", referenceNo, err))
		}
		if !found {
			return myerrors.NewInvalidInputErrorf("unknown reference %s", referenceNo)
		}
		if reference.Consumed {
			return myerrors.NewInvalidInputErrorf("reference %s already used", referenceNo)
		}
		if reference.OwnerUID != owner.UID() {
			return myerrors.NewAuthenticationError(fmt.Errorf("reference %s does not belong to caller", referenceNo))
		}

		err = s.donationStore.Put(c, donation.UID, donation)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing donation: %s", err))
		}

		reference.Consumed = true
		reference.ConsumedAt = &now
		err = s.referenceStore.Put(c, referenceNo, reference)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error consuming reference %s: %s", referenceNo, err))
		}

		return s.publisher.Publish(c, donationevents.TopicName, donationevents.DonationCompleted{
			DonationUID:   donation.UID,
			OwnerUID:      donation.OwnerUID,
			ReferenceNo:   referenceNo,
			Method:        method,
			AmountInPence: amountInPence,
			CoveredFee:    coveredFee == donationapi.Yes,
		})
	})
	if err != nil {
		return DonationRecord{}, "", err
	}

	s.logger.Log(c, donation.UID, mylog.SeverityInfo, "Donation %s completed via %s for %s", donation.UID, method, donation.OwnerUID)

	// The donation record is committed and the reference consumed; a
	// failure from here on must not make the caller report a failed
	// payment that actually succeeded.
	err = s.queue.Enqueue(c, myqueue.Task{
		UID:            "clear-cart-" + donation.UID,
		WebhookURLPath: "/jobs/cart/" + donation.OwnerUID + "/clear",
		Payload:        []byte("{}"),
	})
	if err != nil {
		s.logger.Log(c, donation.UID, mylog.SeverityWarn, "Error enqueuing cart cleanup for %s: %s", donation.UID, err)
	}

	payload, err := s.successPayloadForReference(c, referenceNo)
	if err != nil {
		s.logger.Log(c, donation.UID, mylog.SeverityWarn, "Error composing success payload of %s: %s", referenceNo, err)
		payload = ""
	}

	return donation, payload, nil
}

// successPayloadForReference encodes the snapshot the checkout flow parked
// for this reference. A missing snapshot yields an empty payload, not an
// error: the donation itself stands.
func (s *service) successPayloadForReference(c context.Context, referenceNo string) (string, error) {
	snapshot := SuccessSnapshot{}
	found, err := s.kvStore.Get(c, SnapshotKey(referenceNo), &snapshot)
	if err != nil {
		return "", myerrors.NewInternalError(fmt.Errorf("error fetching snapshot of %s: %s", referenceNo, err))
	}
	if !found {
		return "", nil
	}

	payload, err := EncodeSuccessPayload(snapshot)
	if err != nil {
		return "", myerrors.NewInternalError(err)
	}
	return payload, nil
}

func (s *service) listDonations(c context.Context, owner donationapi.Owner) ([]DonationRecord, error) {
	err := owner.Validate()
	if err != nil {
		return nil, err
	}

	donations, err := s.donationStore.Query(c, []mystore.Filter{
		{Field: "OwnerUID", Compare: "=", Value: owner.UID()},
	}, "CreatedAt")
	if err != nil {
		return nil, myerrors.NewInternalError(fmt.Errorf("error fetching donations of %s: %s", owner.UID(), err))
	}
	return donations, nil
}
