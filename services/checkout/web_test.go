package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/samadsayyed/donation-portal-sub000/lib/mykvstore"
	"github.com/samadsayyed/donation-portal-sub000/lib/mypublisher"
	"github.com/samadsayyed/donation-portal-sub000/lib/myqueue"
	"github.com/samadsayyed/donation-portal-sub000/lib/mystore"
	"github.com/samadsayyed/donation-portal-sub000/lib/mytime"
	"github.com/samadsayyed/donation-portal-sub000/lib/myuuid"
	"github.com/samadsayyed/donation-portal-sub000/lib/randtoken"
	"github.com/samadsayyed/donation-portal-sub000/services/cart"
	"github.com/samadsayyed/donation-portal-sub000/services/donationapi"
	"github.com/samadsayyed/donation-portal-sub000/services/payment"
)

const sessionUID = "abcdEFGH12345678"

func TestCheckoutWizard(t *testing.T) {

	t.Run("Start attempt", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		f := setup(t, ctrl)

		attempt := startAttempt(t, f)
		assert.Equal(t, stepParticipants, attempt.Step)
		assert.Equal(t, StatusOpen, attempt.Status)
		assert.Equal(t, donationapi.No, attempt.Submitted)
	})

	t.Run("Step one requires every participant name", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		f := setup(t, ctrl)

		storeGoatLine(t, f, 2)
		attempt := startAttempt(t, f)

		postJSON(t, f.router, "/checkout/"+attempt.UID+"/next", "{}", 400)

		postJSON(t, f.router, "/checkout/"+attempt.UID+"/participants",
			`{"cart_id":"line-1","participant_name":"Ali, Fatima"}`, 200)

		attempt = parseAttempt(t, postJSON(t, f.router, "/checkout/"+attempt.UID+"/next", "{}", 200))
		assert.Equal(t, stepPreferences, attempt.Step)
	})

	t.Run("Whitespace names do not count", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		f := setup(t, ctrl)

		storeGoatLine(t, f, 2)
		attempt := startAttempt(t, f)

		postJSON(t, f.router, "/checkout/"+attempt.UID+"/participants",
			`{"cart_id":"line-1","participant_name":"Ali,  "}`, 200)
		postJSON(t, f.router, "/checkout/"+attempt.UID+"/next", "{}", 400)
	})

	t.Run("Step two requires saved preferences", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		f := setup(t, ctrl)

		attempt := attemptAtStep(t, f, stepPreferences)

		postJSON(t, f.router, "/checkout/"+attempt.UID+"/next", "{}", 400)

		postJSON(t, f.router, "/checkout/"+attempt.UID+"/preferences",
			`{"preferences":{"gift_aid":"Y","email":"Y","phone":"N","post":"N","sms":"N"}}`, 200)

		attempt = parseAttempt(t, postJSON(t, f.router, "/checkout/"+attempt.UID+"/next", "{}", 200))
		assert.Equal(t, stepPayment, attempt.Step)

		// no forward transition past the last step
		postJSON(t, f.router, "/checkout/"+attempt.UID+"/next", "{}", 400)
	})

	t.Run("Partial preferences are rejected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		f := setup(t, ctrl)

		attempt := attemptAtStep(t, f, stepPreferences)

		postJSON(t, f.router, "/checkout/"+attempt.UID+"/preferences",
			`{"preferences":{"gift_aid":"Y","email":"Y"}}`, 400)
	})

	t.Run("Previous steps back but not before the first", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		f := setup(t, ctrl)

		attempt := attemptAtStep(t, f, stepPreferences)

		attempt = parseAttempt(t, postJSON(t, f.router, "/checkout/"+attempt.UID+"/previous", "{}", 200))
		assert.Equal(t, stepParticipants, attempt.Step)

		postJSON(t, f.router, "/checkout/"+attempt.UID+"/previous", "{}", 400)
	})

	t.Run("On behalf of myself requires a signed-in donor", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		f := setup(t, ctrl)

		attempt := startAttempt(t, f)
		postJSON(t, f.router, "/checkout/"+attempt.UID+"/participants",
			`{"on_behalf_of_myself":"Y"}`, 403)
	})

	t.Run("On behalf of myself fills and clears every slot", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		f := setup(t, ctrl)

		line := goatLine(2)
		line.DonorID = "donor-1"
		line.SessionID = ""
		line.OwnerUID = "donor-1"
		assert.NoError(t, f.cartStore.Put(f.c, line.UID, line))

		attempt := parseAttempt(t, postJSON(t, f.router, "/checkout/start", `{"owner":{"donor_id":"donor-1"}}`, 200))

		got := parseCart(t, postJSON(t, f.router, "/checkout/"+attempt.UID+"/participants",
			`{"on_behalf_of_myself":"Y"}`, 200))
		assert.Equal(t, []string{"Yusuf", "Yusuf"}, got.Cart[0].ParticipantNames)

		got = parseCart(t, postJSON(t, f.router, "/checkout/"+attempt.UID+"/participants",
			`{"on_behalf_of_myself":"N"}`, 200))
		assert.Equal(t, []string{"", ""}, got.Cart[0].ParticipantNames)
	})
}

func TestCheckoutSubmit(t *testing.T) {

	t.Run("Submit freezes the attempt and records the transaction", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		f := setup(t, ctrl)

		attempt := attemptAtStep(t, f, stepPayment)

		got := submitTransaction(t, f, attempt.UID, validGuestForm(), 200)
		assert.Equal(t, donationapi.Yes, got.Submitted)
		assert.Equal(t, StatusAwaitingPayment, got.Status)
		assert.Len(t, got.ReferenceNo, randtoken.PaymentReferenceLength)

		record, found, err := f.transactionStore.Get(f.c, got.ReferenceNo)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, attempt.UID, record.AttemptUID)
		assert.Equal(t, int64(7000), record.AmountInPence)
		assert.Equal(t, "Aisha", record.Guest.FirstName)

		snapshot := payment.SuccessSnapshot{}
		foundSnapshot, err := f.kvStore.Get(f.c, payment.SnapshotKey(got.ReferenceNo), &snapshot)
		assert.NoError(t, err)
		assert.True(t, foundSnapshot)
		assert.Equal(t, int64(7000), snapshot.Lines[0].AmountInPence)

		// frozen: no more edits, no more step changes
		postJSON(t, f.router, "/checkout/"+attempt.UID+"/preferences",
			`{"preferences":{"gift_aid":"N","email":"N","phone":"N","post":"N","sms":"N"}}`, 400)
		postJSON(t, f.router, "/checkout/"+attempt.UID+"/previous", "{}", 400)
	})

	t.Run("Missing guest fields are enumerated", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		f := setup(t, ctrl)

		attempt := attemptAtStep(t, f, stepPayment)

		form := validGuestForm()
		form.Set("attemptUid", attempt.UID)
		form.Del("guest.phone")
		form.Del("guest.city")

		response := postForm(t, f.router, form.Encode(), 400)
		assert.Contains(t, response, "missing required fields")
		assert.Contains(t, response, "phone")
		assert.Contains(t, response, "city")
	})

	t.Run("Phone with too few digits is rejected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		f := setup(t, ctrl)

		attempt := attemptAtStep(t, f, stepPayment)

		form := validGuestForm()
		form.Set("attemptUid", attempt.UID)
		form.Set("guest.phone", "0123-456")

		response := postForm(t, f.router, form.Encode(), 400)
		assert.Contains(t, response, "at least 10 digits")
	})

	t.Run("Retry reuses the reference until payment lands", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		f := setup(t, ctrl)

		attempt := attemptAtStep(t, f, stepPayment)

		first := submitTransaction(t, f, attempt.UID, validGuestForm(), 200)
		second := submitTransaction(t, f, attempt.UID, validGuestForm(), 200)
		assert.Equal(t, first.ReferenceNo, second.ReferenceNo)

		records, err := f.transactionStore.List(f.c)
		assert.NoError(t, err)
		assert.Len(t, records, 1)
	})

	t.Run("Concurrent attempts keep their own reference and transaction", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		f := setup(t, ctrl)

		first := attemptAtStep(t, f, stepPayment)
		first = submitTransaction(t, f, first.UID, validGuestForm(), 200)

		second := attemptAtStep(t, f, stepPayment)
		second = submitTransaction(t, f, second.UID, validGuestForm(), 200)

		assert.NotEqual(t, first.ReferenceNo, second.ReferenceNo)

		firstRecord, found, err := f.transactionStore.Get(f.c, first.ReferenceNo)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, first.UID, firstRecord.AttemptUID)

		secondRecord, found, err := f.transactionStore.Get(f.c, second.ReferenceNo)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, second.UID, secondRecord.AttemptUID)
	})

	t.Run("Unknown gateway is rejected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		f := setup(t, ctrl)

		attempt := attemptAtStep(t, f, stepPayment)

		form := validGuestForm()
		form.Set("gateway", "giropay")
		submitTransaction(t, f, attempt.UID, form, 400)

		stored, found, err := f.attemptStore.Get(f.c, attempt.UID)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, donationapi.No, stored.Submitted)
		assert.Equal(t, StatusOpen, stored.Status)
	})

	t.Run("Paid attempt cannot be resubmitted", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		f := setup(t, ctrl)

		attempt := attemptAtStep(t, f, stepPayment)
		submitted := submitTransaction(t, f, attempt.UID, validGuestForm(), 200)

		storeDonation(t, f, submitted.ReferenceNo)

		form := validGuestForm()
		form.Set("attemptUid", attempt.UID)
		postForm(t, f.router, form.Encode(), 400)
	})
}

func TestCheckoutReconcile(t *testing.T) {

	t.Run("Unpaid attempt expires", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		f := setup(t, ctrl)

		attempt := attemptAtStep(t, f, stepPayment)
		submitted := submitTransaction(t, f, attempt.UID, validGuestForm(), 200)

		got := reconcile(t, f, submitted.UID)
		assert.Equal(t, StatusExpired, got.Status)
	})

	t.Run("Paid attempt completes", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		f := setup(t, ctrl)

		attempt := attemptAtStep(t, f, stepPayment)
		submitted := submitTransaction(t, f, attempt.UID, validGuestForm(), 200)

		storeDonation(t, f, submitted.ReferenceNo)

		got := reconcile(t, f, submitted.UID)
		assert.Equal(t, StatusCompleted, got.Status)
	})

	t.Run("Open attempt is left alone", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		f := setup(t, ctrl)

		attempt := startAttempt(t, f)

		got := reconcile(t, f, attempt.UID)
		assert.Equal(t, StatusOpen, got.Status)
	})
}

func goatLine(quantity int) cart.CartLine {
	return cart.CartLine{
		UID:                 "line-1",
		SessionID:           sessionUID,
		OwnerUID:            sessionUID,
		ProgramUID:          "prog_goat_share",
		ProgramName:         "Goat Share",
		DonationAmount:      3500,
		Currency:            "GBP",
		Quantity:            quantity,
		ParticipantRequired: donationapi.Yes,
		AnimalShare:         1,
		ParticipantNames:    make([]string, quantity),
		CreatedAt:           mytime.ExampleTime,
	}
}

func storeGoatLine(t *testing.T, f fixture, quantity int) {
	line := goatLine(quantity)
	assert.NoError(t, f.cartStore.Put(f.c, line.UID, line))
}

func startAttempt(t *testing.T, f fixture) Attempt {
	body := fmt.Sprintf(`{"owner":{"session_id":"%s"}}`, sessionUID)
	return parseAttempt(t, postJSON(t, f.router, "/checkout/start", body, 200))
}

// attemptAtStep drives an attempt through the wizard endpoints up to the
// wanted step
func attemptAtStep(t *testing.T, f fixture, step int) Attempt {
	storeGoatLine(t, f, 2)
	attempt := startAttempt(t, f)

	if step > stepParticipants {
		postJSON(t, f.router, "/checkout/"+attempt.UID+"/participants",
			`{"cart_id":"line-1","participant_name":"Ali, Fatima"}`, 200)
		attempt = parseAttempt(t, postJSON(t, f.router, "/checkout/"+attempt.UID+"/next", "{}", 200))
	}
	if step > stepPreferences {
		postJSON(t, f.router, "/checkout/"+attempt.UID+"/preferences",
			`{"preferences":{"gift_aid":"Y","email":"Y","phone":"N","post":"N","sms":"N"}}`, 200)
		attempt = parseAttempt(t, postJSON(t, f.router, "/checkout/"+attempt.UID+"/next", "{}", 200))
	}

	assert.Equal(t, step, attempt.Step)
	return attempt
}

func validGuestForm() url.Values {
	return url.Values{
		"gateway":             {"stripe"},
		"owner.sessionId":     {sessionUID},
		"guest.title":         {"Ms"},
		"guest.firstName":     {"Aisha"},
		"guest.lastName":      {"Khan"},
		"guest.email":         {"aisha@example.org"},
		"guest.phone":         {"+44 7700 900123"},
		"guest.country":       {"GB"},
		"guest.postcode":      {"M1 1AE"},
		"guest.address1":      {"1 Mosque Street"},
		"guest.city":          {"Manchester"},
		"guest.address2":      {"Flat 2"},
		"preferences.giftAid": {"Y"},
		"preferences.email":   {"Y"},
		"preferences.phone":   {"N"},
		"preferences.post":    {"N"},
		"preferences.sms":     {"N"},
	}
}

func submitTransaction(t *testing.T, f fixture, attemptUID string, form url.Values, wantStatus int) Attempt {
	form.Set("attemptUid", attemptUID)
	body := postForm(t, f.router, form.Encode(), wantStatus)

	attempt := Attempt{}
	if wantStatus == 200 {
		assert.NoError(t, json.Unmarshal([]byte(body), &attempt))
	}
	return attempt
}

func postForm(t *testing.T, router *mux.Router, body string, wantStatus int) string {
	request, err := http.NewRequest(http.MethodPost, "/payment/transaction", strings.NewReader(body))
	assert.NoError(t, err)
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)
	assert.Equal(t, wantStatus, response.Code)
	return response.Body.String()
}

func postJSON(t *testing.T, router *mux.Router, path string, body string, wantStatus int) string {
	request, err := http.NewRequest(http.MethodPost, path, strings.NewReader(body))
	assert.NoError(t, err)
	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)
	assert.Equal(t, wantStatus, response.Code, response.Body.String())
	return response.Body.String()
}

func parseAttempt(t *testing.T, body string) Attempt {
	attempt := Attempt{}
	assert.NoError(t, json.Unmarshal([]byte(body), &attempt))
	return attempt
}

func parseCart(t *testing.T, body string) cartResponse {
	got := cartResponse{}
	assert.NoError(t, json.Unmarshal([]byte(body), &got))
	return got
}

func reconcile(t *testing.T, f fixture, attemptUID string) Attempt {
	request, err := http.NewRequest(http.MethodPut, "/jobs/checkout/"+attemptUID+"/reconcile", nil)
	assert.NoError(t, err)
	response := httptest.NewRecorder()
	f.router.ServeHTTP(response, request)
	assert.Equal(t, 200, response.Code)
	return parseAttempt(t, response.Body.String())
}

func storeDonation(t *testing.T, f fixture, referenceNo string) {
	assert.NoError(t, f.donationStore.Put(f.c, "donation-1", payment.DonationRecord{
		UID:         "donation-1",
		ReferenceNo: referenceNo,
		SessionID:   sessionUID,
		OwnerUID:    sessionUID,
		Status:      payment.StatusCompleted,
		CreatedAt:   mytime.ExampleTime,
	}))
}

type donorDirectoryStub struct {
	firstName string
}

func (d donorDirectoryStub) FirstName(c context.Context, donorUID string) (string, error) {
	return d.firstName, nil
}

type fixture struct {
	c                context.Context
	router           *mux.Router
	cartStore        mystore.Store[cart.CartLine]
	attemptStore     mystore.Store[Attempt]
	transactionStore mystore.Store[payment.TransactionRecord]
	donationStore    mystore.Store[payment.DonationRecord]
	kvStore          mykvstore.Store
}

func setup(t *testing.T, ctrl *gomock.Controller) fixture {
	c := context.TODO()
	router := mux.NewRouter()

	cartStore, _, _ := mystore.NewInMemoryStore[cart.CartLine](c)
	attemptStore, _, _ := mystore.NewInMemoryStore[Attempt](c)
	referenceStore, _, _ := mystore.NewInMemoryStore[payment.PaymentReference](c)
	transactionStore, _, _ := mystore.NewInMemoryStore[payment.TransactionRecord](c)
	donationStore, _, _ := mystore.NewInMemoryStore[payment.DonationRecord](c)
	entryStore, _, _ := mystore.NewInMemoryStore[mykvstore.Entry](c)

	nower := mytime.NewMockNower(ctrl)
	nower.EXPECT().Now().Return(mytime.ExampleTime).AnyTimes()

	sequence := 0
	uuider := myuuid.NewMockUUIDer(ctrl)
	uuider.EXPECT().Create().DoAndReturn(func() string {
		sequence++
		return fmt.Sprintf("uid-%d", sequence)
	}).AnyTimes()

	queue := myqueue.NewMockTaskQueuer(ctrl)
	queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	publisher := mypublisher.NewMockPublisher(ctrl)
	publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	kvStore := mykvstore.NewWithStore(entryStore, nower)
	cartService := cart.NewWebService(cartStore, publisher, nower, uuider)
	paymentService := payment.NewWebService(referenceStore, transactionStore, donationStore, kvStore, queue, publisher, nower, uuider)

	ws := NewWebService(attemptStore, kvStore, cartService, paymentService, donorDirectoryStub{firstName: "Yusuf"},
		queue, publisher, nower, uuider)
	ws.RegisterEndpoints(c, router)

	return fixture{
		c:                c,
		router:           router,
		cartStore:        cartStore,
		attemptStore:     attemptStore,
		transactionStore: transactionStore,
		donationStore:    donationStore,
		kvStore:          kvStore,
	}
}
