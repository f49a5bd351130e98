package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samadsayyed/donation-portal-sub000/lib/myerrors"
	"github.com/samadsayyed/donation-portal-sub000/lib/mykvstore"
	"github.com/samadsayyed/donation-portal-sub000/lib/mylog"
	"github.com/samadsayyed/donation-portal-sub000/lib/mypublisher"
	"github.com/samadsayyed/donation-portal-sub000/lib/myqueue"
	"github.com/samadsayyed/donation-portal-sub000/lib/mystore"
	"github.com/samadsayyed/donation-portal-sub000/lib/mytime"
	"github.com/samadsayyed/donation-portal-sub000/lib/myuuid"
	"github.com/samadsayyed/donation-portal-sub000/services/cart"
	"github.com/samadsayyed/donation-portal-sub000/services/checkoutevents"
	"github.com/samadsayyed/donation-portal-sub000/services/donationapi"
	"github.com/samadsayyed/donation-portal-sub000/services/payment"
)

const (
	// preferenceTTL is the rolling deadline on step-2 answers
	preferenceTTL = 24 * time.Hour
	// reconcileDelay is how long an attempt may await payment before the
	// reconciliation job decides its fate
	reconcileDelay = 24 * time.Hour
)

type Cart interface {
	List(c context.Context, owner donationapi.Owner) ([]cart.CartLine, error)
	UpdateParticipants(c context.Context, cartUID string, joinedNames string) ([]cart.CartLine, error)
	SetParticipants(c context.Context, cartUID string, names []string) ([]cart.CartLine, error)
}

type Payments interface {
	IssueReference(c context.Context, owner donationapi.Owner, attemptUID string) (payment.PaymentReference, error)
	CreateTransaction(c context.Context, record payment.TransactionRecord) error
	HasDonationForReference(c context.Context, referenceNo string) (bool, error)
}

// DonorDirectory resolves the first name behind a donor uid, for the
// on-behalf-of-myself toggle
type DonorDirectory interface {
	FirstName(c context.Context, donorUID string) (string, error)
}

type service struct {
	attemptStore mystore.Store[Attempt]
	kvStore      mykvstore.Store
	cart         Cart
	payments     Payments
	donors       DonorDirectory
	queue        myqueue.TaskQueuer
	publisher    mypublisher.Publisher
	nower        mytime.Nower
	uuider       myuuid.UUIDer
	logger       mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(attemptStore mystore.Store[Attempt], kvStore mykvstore.Store, cartService Cart,
	payments Payments, donors DonorDirectory, queue myqueue.TaskQueuer, publisher mypublisher.Publisher,
	nower mytime.Nower, uuider myuuid.UUIDer, logger mylog.Logger) *service {
	return &service{
		attemptStore: attemptStore,
		kvStore:      kvStore,
		cart:         cartService,
		payments:     payments,
		donors:       donors,
		queue:        queue,
		publisher:    publisher,
		nower:        nower,
		uuider:       uuider,
		logger:       logger,
	}
}

func (s *service) start(c context.Context, owner donationapi.Owner) (Attempt, error) {
	err := owner.Validate()
	if err != nil {
		return Attempt{}, err
	}

	attempt := Attempt{
		UID:              s.uuider.Create(),
		DonorID:          owner.DonorID,
		SessionID:        owner.SessionID,
		OwnerUID:         owner.UID(),
		Step:             stepParticipants,
		Status:           StatusOpen,
		Submitted:        donationapi.No,
		OnBehalfOfMyself: donationapi.No,
		CreatedAt:        s.nower.Now(),
	}

	err = s.attemptStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent

		err := s.attemptStore.Put(c, attempt.UID, attempt)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing attempt: %s", err))
		}

		return s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.CheckoutStarted{
			AttemptUID: attempt.UID,
			OwnerUID:   attempt.OwnerUID,
		})
	})
	if err != nil {
		return Attempt{}, err
	}

	s.logger.Log(c, attempt.UID, mylog.SeverityInfo, "Checkout attempt %s started for %s", attempt.UID, attempt.OwnerUID)

	return attempt, nil
}

func (s *service) fetch(c context.Context, attemptUID string) (Attempt, error) {
	attempt, found, err := s.attemptStore.Get(c, attemptUID)
	if err != nil {
		return Attempt{}, myerrors.NewInternalError(fmt.Errorf("error fetching attempt %s: %s", attemptUID, err))
	}
	if !found {
		return Attempt{}, myerrors.NewNotFoundError(fmt.Errorf("attempt with uid %s not found", attemptUID))
	}
	return attempt, nil
}

func (s *service) owner(attempt Attempt) donationapi.Owner {
	return donationapi.Owner{DonorID: attempt.DonorID, SessionID: attempt.SessionID}
}

func (s *service) details(c context.Context, attemptUID string) (Attempt, []cart.CartLine, *donationapi.Preferences, error) {
	attempt, err := s.fetch(c, attemptUID)
	if err != nil {
		return Attempt{}, nil, nil, err
	}

	lines, err := s.cart.List(c, s.owner(attempt))
	if err != nil {
		return Attempt{}, nil, nil, err
	}

	prefs := donationapi.Preferences{}
	found, err := s.kvStore.Get(c, preferencesKey(attemptUID), &prefs)
	if err != nil {
		return Attempt{}, nil, nil, myerrors.NewInternalError(fmt.Errorf("error fetching preferences of %s: %s", attemptUID, err))
	}
	if !found {
		return attempt, lines, nil, nil
	}
	return attempt, lines, &prefs, nil
}

func (s *service) guardEditable(attempt Attempt) error {
	if attempt.IsSubmitted() {
		return myerrors.NewInvalidInputErrorf("attempt %s is submitted and can no longer be edited", attempt.UID)
	}
	if attempt.Status != StatusOpen {
		return myerrors.NewInvalidInputErrorf("attempt %s is %s", attempt.UID, attempt.Status)
	}
	return nil
}

func (s *service) setParticipants(c context.Context, attemptUID string, cartUID string, joinedNames string) ([]cart.CartLine, error) {
	attempt, err := s.fetch(c, attemptUID)
	if err != nil {
		return nil, err
	}
	if err := s.guardEditable(attempt); err != nil {
		return nil, err
	}

	return s.cart.UpdateParticipants(c, cartUID, joinedNames)
}

// setOnBehalfOfMyself fills every name slot of every participant line with
// the donor's own first name, or clears them again. Anonymous sessions
// have no name to fill with.
func (s *service) setOnBehalfOfMyself(c context.Context, attemptUID string, on bool) ([]cart.CartLine, error) {
	attempt, err := s.fetch(c, attemptUID)
	if err != nil {
		return nil, err
	}
	if err := s.guardEditable(attempt); err != nil {
		return nil, err
	}

	owner := s.owner(attempt)
	if !owner.IsAuthenticated() {
		return nil, myerrors.NewAuthenticationError(fmt.Errorf("on-behalf-of-myself requires a signed-in donor"))
	}

	firstName := ""
	if on {
		firstName, err = s.donors.FirstName(c, owner.DonorID)
		if err != nil {
			return nil, err
		}
	}

	lines, err := s.cart.List(c, owner)
	if err != nil {
		return nil, err
	}

	for _, line := range lines {
		if line.ParticipantRequired != donationapi.Yes {
			continue
		}
		names := make([]string, line.SlotCount())
		for i := range names {
			names[i] = firstName
		}
		lines, err = s.cart.SetParticipants(c, line.UID, names)
		if err != nil {
			return nil, err
		}
	}

	flag := donationapi.No
	if on {
		flag = donationapi.Yes
	}
	attempt.OnBehalfOfMyself = flag
	now := s.nower.Now()
	attempt.LastModified = &now

	err = s.attemptStore.Put(c, attempt.UID, attempt)
	if err != nil {
		return nil, myerrors.NewInternalError(fmt.Errorf("error storing attempt %s: %s", attempt.UID, err))
	}

	return lines, nil
}

func (s *service) savePreferences(c context.Context, attemptUID string, prefs donationapi.Preferences) error {
	attempt, err := s.fetch(c, attemptUID)
	if err != nil {
		return err
	}
	if err := s.guardEditable(attempt); err != nil {
		return err
	}
	if err := prefs.Validate(); err != nil {
		return err
	}

	err = s.kvStore.Put(c, preferencesKey(attemptUID), prefs, preferenceTTL)
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error storing preferences of %s: %s", attemptUID, err))
	}
	return nil
}

func (s *service) next(c context.Context, attemptUID string) (Attempt, error) {
	attempt, err := s.fetch(c, attemptUID)
	if err != nil {
		return Attempt{}, err
	}
	if err := s.guardEditable(attempt); err != nil {
		return Attempt{}, err
	}

	switch attempt.Step {
	case stepParticipants:
		err = s.verifyParticipantsComplete(c, s.owner(attempt))
		if err != nil {
			return Attempt{}, err
		}
	case stepPreferences:
		prefs := donationapi.Preferences{}
		found, err := s.kvStore.Get(c, preferencesKey(attemptUID), &prefs)
		if err != nil {
			return Attempt{}, myerrors.NewInternalError(fmt.Errorf("error fetching preferences of %s: %s", attemptUID, err))
		}
		if !found {
			return Attempt{}, myerrors.NewInvalidInputErrorf("donation preferences not saved yet")
		}
	default:
		return Attempt{}, myerrors.NewInvalidInputErrorf("step %d is the last step, submit the payment form instead", attempt.Step)
	}

	attempt.Step++
	now := s.nower.Now()
	attempt.LastModified = &now

	err = s.attemptStore.Put(c, attempt.UID, attempt)
	if err != nil {
		return Attempt{}, myerrors.NewInternalError(fmt.Errorf("error storing attempt %s: %s", attempt.UID, err))
	}
	return attempt, nil
}

func (s *service) previous(c context.Context, attemptUID string) (Attempt, error) {
	attempt, err := s.fetch(c, attemptUID)
	if err != nil {
		return Attempt{}, err
	}
	if err := s.guardEditable(attempt); err != nil {
		return Attempt{}, err
	}
	if attempt.Step <= stepParticipants {
		return Attempt{}, myerrors.NewInvalidInputErrorf("already at the first step")
	}

	attempt.Step--
	now := s.nower.Now()
	attempt.LastModified = &now

	err = s.attemptStore.Put(c, attempt.UID, attempt)
	if err != nil {
		return Attempt{}, myerrors.NewInternalError(fmt.Errorf("error storing attempt %s: %s", attempt.UID, err))
	}
	return attempt, nil
}

func (s *service) verifyParticipantsComplete(c context.Context, owner donationapi.Owner) error {
	lines, err := s.cart.List(c, owner)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return myerrors.NewInvalidInputErrorf("cart is empty")
	}

	for _, line := range lines {
		if line.ParticipantRequired != donationapi.Yes {
			continue
		}
		for _, name := range line.ParticipantNames {
			if strings.TrimSpace(name) == "" {
				return myerrors.NewInvalidInputErrorf("program %s needs a name for each of its %d slots", line.ProgramName, line.SlotCount())
			}
		}
	}
	return nil
}

// submit is the single irreversible action of an attempt. It stays
// retryable until a donation record exists against the reference: the
// reference is reused, the transaction record is overwritten and the
// reconciliation task keeps its uid.
func (s *service) submit(c context.Context, tx donationapi.Transaction) (Attempt, error) {
	attempt, err := s.fetch(c, tx.AttemptUID)
	if err != nil {
		return Attempt{}, err
	}
	if attempt.Status != StatusOpen && attempt.Status != StatusAwaitingPayment {
		return Attempt{}, myerrors.NewInvalidInputErrorf("attempt %s is %s", attempt.UID, attempt.Status)
	}
	if attempt.Step != stepPayment {
		return Attempt{}, myerrors.NewInvalidInputErrorf("attempt %s is at step %d, not ready to submit", attempt.UID, attempt.Step)
	}

	owner := s.owner(attempt)

	if attempt.ReferenceNo != "" {
		paid, err := s.payments.HasDonationForReference(c, attempt.ReferenceNo)
		if err != nil {
			return Attempt{}, err
		}
		if paid {
			return Attempt{}, myerrors.NewInvalidInputErrorf("attempt %s is already paid", attempt.UID)
		}
	}

	tx.Gateway = strings.ToLower(strings.TrimSpace(tx.Gateway))
	if tx.Gateway != donationapi.GatewayStripe && tx.Gateway != donationapi.GatewayPayPal {
		return Attempt{}, myerrors.NewInvalidInputErrorf("unsupported gateway %q", tx.Gateway)
	}

	err = tx.Guest.Validate()
	if err != nil {
		return Attempt{}, err
	}

	prefs := tx.Prefs
	if prefs.Validate() != nil {
		// fall back on what step 2 saved
		stored := donationapi.Preferences{}
		found, err := s.kvStore.Get(c, preferencesKey(attempt.UID), &stored)
		if err != nil {
			return Attempt{}, myerrors.NewInternalError(fmt.Errorf("error fetching preferences of %s: %s", attempt.UID, err))
		}
		if !found {
			return Attempt{}, myerrors.NewInvalidInputErrorf("donation preferences missing")
		}
		prefs = stored
	}

	lines, err := s.cart.List(c, owner)
	if err != nil {
		return Attempt{}, err
	}
	if len(lines) == 0 {
		return Attempt{}, myerrors.NewInvalidInputErrorf("cart is empty")
	}

	if attempt.ReferenceNo == "" {
		reference, err := s.payments.IssueReference(c, owner, attempt.UID)
		if err != nil {
			return Attempt{}, err
		}
		attempt.ReferenceNo = reference.Reference
	}

	var total int64
	snapshot := payment.SuccessSnapshot{
		ReferenceNo: attempt.ReferenceNo,
		FirstName:   tx.Guest.FirstName,
	}
	for _, line := range lines {
		total += line.LineTotal()
		snapshot.Lines = append(snapshot.Lines, payment.SnapshotLine{
			ProgramName:   line.ProgramName,
			AmountInPence: line.LineTotal(),
		})
	}

	err = s.kvStore.Put(c, payment.SnapshotKey(attempt.ReferenceNo), snapshot, preferenceTTL)
	if err != nil {
		return Attempt{}, myerrors.NewInternalError(fmt.Errorf("error storing snapshot of %s: %s", attempt.UID, err))
	}

	err = s.payments.CreateTransaction(c, payment.TransactionRecord{
		ReferenceNo:   attempt.ReferenceNo,
		AttemptUID:    attempt.UID,
		DonorID:       attempt.DonorID,
		SessionID:     attempt.SessionID,
		OwnerUID:      attempt.OwnerUID,
		Guest:         tx.Guest,
		Prefs:         prefs,
		AmountInPence: total,
		Currency:      "GBP",
		Gateway:       tx.Gateway,
	})
	if err != nil {
		return Attempt{}, err
	}

	attempt.Submitted = donationapi.Yes
	attempt.Status = StatusAwaitingPayment
	now := s.nower.Now()
	attempt.LastModified = &now

	err = s.attemptStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent

		err := s.attemptStore.Put(c, attempt.UID, attempt)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing attempt %s: %s", attempt.UID, err))
		}

		return s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.CheckoutSubmitted{
			AttemptUID:    attempt.UID,
			OwnerUID:      attempt.OwnerUID,
			ReferenceNo:   attempt.ReferenceNo,
			AmountInPence: total,
		})
	})
	if err != nil {
		return Attempt{}, err
	}

	err = s.queue.Enqueue(c, myqueue.Task{
		UID:            "reconcile-" + attempt.UID,
		WebhookURLPath: "/jobs/checkout/" + attempt.UID + "/reconcile",
		Payload:        []byte("{}"),
		Delay:          reconcileDelay,
	})
	if err != nil {
		return Attempt{}, myerrors.NewInternalError(fmt.Errorf("error enqueuing reconciliation: %s", err))
	}

	s.logger.Log(c, attempt.UID, mylog.SeverityInfo, "Attempt %s submitted with reference %s, awaiting payment of %d", attempt.UID, attempt.ReferenceNo, total)

	return attempt, nil
}

// reconcile decides the fate of an attempt the delayed task brings back:
// completed when its reference was paid, expired when it was abandoned.
func (s *service) reconcile(c context.Context, attemptUID string) (Attempt, error) {
	attempt, err := s.fetch(c, attemptUID)
	if err != nil {
		return Attempt{}, err
	}
	if attempt.Status != StatusAwaitingPayment {
		return attempt, nil
	}

	paid, err := s.payments.HasDonationForReference(c, attempt.ReferenceNo)
	if err != nil {
		return Attempt{}, err
	}

	now := s.nower.Now()
	attempt.LastModified = &now

	if paid {
		attempt.Status = StatusCompleted
		err = s.attemptStore.Put(c, attempt.UID, attempt)
		if err != nil {
			return Attempt{}, myerrors.NewInternalError(fmt.Errorf("error storing attempt %s: %s", attempt.UID, err))
		}
		return attempt, nil
	}

	attempt.Status = StatusExpired
	err = s.attemptStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent

		err := s.attemptStore.Put(c, attempt.UID, attempt)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing attempt %s: %s", attempt.UID, err))
		}

		return s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.CheckoutExpired{
			AttemptUID:  attempt.UID,
			OwnerUID:    attempt.OwnerUID,
			ReferenceNo: attempt.ReferenceNo,
		})
	})
	if err != nil {
		return Attempt{}, err
	}

	s.logger.Log(c, attempt.UID, mylog.SeverityInfo, "Attempt %s expired without payment", attempt.UID)

	return attempt, nil
}
