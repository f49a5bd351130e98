package paymentpaypal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/plutov/paypal/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/samadsayyed/donation-portal-sub000/lib/mykvstore"
	"github.com/samadsayyed/donation-portal-sub000/lib/mypublisher"
	"github.com/samadsayyed/donation-portal-sub000/lib/myqueue"
	"github.com/samadsayyed/donation-portal-sub000/lib/mystore"
	"github.com/samadsayyed/donation-portal-sub000/lib/mytime"
	"github.com/samadsayyed/donation-portal-sub000/lib/myuuid"
	"github.com/samadsayyed/donation-portal-sub000/lib/myvault"
	"github.com/samadsayyed/donation-portal-sub000/services/payment"
)

const sessionUID = "abcdEFGH12345678"

func TestCapture(t *testing.T) {

	t.Run("Completed capture records the donation", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := setup(t, ctrl)

		f.vault.EXPECT().Get(gomock.Any(), myvault.PayPalCredentials).Return(myvault.Credentials{
			ClientID:     "client-1",
			ClientSecret: "secret-1",
		}, true, nil)
		f.payer.EXPECT().Configure(gomock.Any(), "client-1", "secret-1").Return(nil)
		f.payer.EXPECT().CaptureOrder(gomock.Any(), "order-1").Return(&paypal.CaptureOrderResponse{
			ID:     "capture-1",
			Status: "COMPLETED",
		}, nil)

		storeReference(t, f, "ref-1")

		body := `{"owner":{"session_id":"abcdEFGH12345678"},"order_id":"order-1","amount":5000,"reference_no":"ref-1","covered_fee":"Y"}`
		response := postCapture(t, f.router, body)
		assert.Equal(t, 200, response.Code)

		got := captureResponse{}
		assert.NoError(t, json.Unmarshal(response.Body.Bytes(), &got))
		assert.Equal(t, "capture-1", got.Donation.TransactionID)
		assert.Equal(t, payment.MethodPayPal, got.Donation.Method)
		assert.Equal(t, int64(5115), got.Donation.AmountInPence)
		assert.Equal(t, payment.StatusCompleted, got.Donation.Status)

		reference, found, err := f.referenceStore.Get(f.c, "ref-1")
		assert.NoError(t, err)
		assert.True(t, found)
		assert.True(t, reference.Consumed)
	})

	t.Run("Incomplete capture leaves no donation", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := setup(t, ctrl)

		f.vault.EXPECT().Get(gomock.Any(), myvault.PayPalCredentials).Return(myvault.Credentials{
			ClientID:     "client-1",
			ClientSecret: "secret-1",
		}, true, nil)
		f.payer.EXPECT().Configure(gomock.Any(), "client-1", "secret-1").Return(nil)
		f.payer.EXPECT().CaptureOrder(gomock.Any(), "order-1").Return(&paypal.CaptureOrderResponse{
			ID:     "capture-1",
			Status: "PENDING",
		}, nil)

		storeReference(t, f, "ref-1")

		body := `{"owner":{"session_id":"abcdEFGH12345678"},"order_id":"order-1","amount":5000,"reference_no":"ref-1"}`
		response := postCapture(t, f.router, body)
		assert.Equal(t, 400, response.Code)

		donations, err := f.donationStore.List(f.c)
		assert.NoError(t, err)
		assert.Empty(t, donations)
	})

	t.Run("Unconfigured gateway", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := setup(t, ctrl)

		f.vault.EXPECT().Get(gomock.Any(), myvault.PayPalCredentials).Return(myvault.Credentials{}, false, nil)

		body := `{"owner":{"session_id":"abcdEFGH12345678"},"order_id":"order-1","amount":5000,"reference_no":"ref-1"}`
		response := postCapture(t, f.router, body)
		assert.Equal(t, 503, response.Code)
	})

	t.Run("Order id is required", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		f := setup(t, ctrl)

		body := `{"owner":{"session_id":"abcdEFGH12345678"},"amount":5000,"reference_no":"ref-1"}`
		response := postCapture(t, f.router, body)
		assert.Equal(t, 400, response.Code)
	})
}

func postCapture(t *testing.T, router *mux.Router, body string) *httptest.ResponseRecorder {
	request, err := http.NewRequest(http.MethodPost, "/payment/paypal/capture", strings.NewReader(body))
	assert.NoError(t, err)
	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)
	return response
}

func storeReference(t *testing.T, f fixture, referenceNo string) {
	assert.NoError(t, f.referenceStore.Put(f.c, referenceNo, payment.PaymentReference{
		Reference: referenceNo,
		SessionID: sessionUID,
		OwnerUID:  sessionUID,
		CreatedAt: mytime.ExampleTime,
	}))
}

type fixture struct {
	c              context.Context
	router         *mux.Router
	payer          *MockPayer
	vault          *myvault.MockVaultReader
	referenceStore mystore.Store[payment.PaymentReference]
	donationStore  mystore.Store[payment.DonationRecord]
}

func setup(t *testing.T, ctrl *gomock.Controller) fixture {
	c := context.TODO()
	router := mux.NewRouter()

	referenceStore, _, _ := mystore.NewInMemoryStore[payment.PaymentReference](c)
	transactionStore, _, _ := mystore.NewInMemoryStore[payment.TransactionRecord](c)
	donationStore, _, _ := mystore.NewInMemoryStore[payment.DonationRecord](c)
	entryStore, _, _ := mystore.NewInMemoryStore[mykvstore.Entry](c)

	nower := mytime.NewMockNower(ctrl)
	nower.EXPECT().Now().Return(mytime.ExampleTime).AnyTimes()
	uuider := myuuid.NewMockUUIDer(ctrl)
	uuider.EXPECT().Create().Return("donation-1").AnyTimes()
	queue := myqueue.NewMockTaskQueuer(ctrl)
	queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	publisher := mypublisher.NewMockPublisher(ctrl)
	publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	kvStore := mykvstore.NewWithStore(entryStore, nower)
	donations := payment.NewWebService(referenceStore, transactionStore, donationStore, kvStore, queue, publisher, nower, uuider)

	payer := NewMockPayer(ctrl)
	vault := myvault.NewMockVaultReader(ctrl)

	ws := NewWebService(payer, vault, donations)
	ws.RegisterEndpoints(c, router)

	return fixture{
		c:              c,
		router:         router,
		payer:          payer,
		vault:          vault,
		referenceStore: referenceStore,
		donationStore:  donationStore,
	}
}
