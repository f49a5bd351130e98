package paymentstripe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v74"
	"go.uber.org/mock/gomock"

	"github.com/samadsayyed/donation-portal-sub000/lib/myvault"
)

func TestPaymentIntent(t *testing.T) {

	t.Run("Covered fee is added to the charge", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		router, payer, vault := setup(t, ctrl)

		vault.EXPECT().Get(gomock.Any(), myvault.StripeCredentials).Return(myvault.Credentials{APIKey: "sk_test_123"}, true, nil)
		payer.EXPECT().UseAPIKey("sk_test_123")
		payer.EXPECT().CreatePaymentIntent(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, params stripe.PaymentIntentParams) (stripe.PaymentIntent, error) {
				assert.Equal(t, int64(5110), *params.Amount)
				assert.Equal(t, "gbp", *params.Currency)
				assert.Equal(t, "ref-1", params.Metadata["reference_no"])
				return stripe.PaymentIntent{ClientSecret: "pi_secret_123"}, nil
			})

		body := `{"owner":{"session_id":"abcdEFGH12345678"},"amount":5000,"reference_no":"ref-1","covered_fee":"Y"}`
		response := postIntent(t, router, body)
		assert.Equal(t, 200, response.Code)

		got := paymentIntentResponse{}
		assert.NoError(t, json.Unmarshal(response.Body.Bytes(), &got))
		assert.Equal(t, "pi_secret_123", got.ClientSecret)
		assert.Equal(t, int64(5110), got.Amount)
		assert.Equal(t, "ref-1", got.ReferenceNo)
	})

	t.Run("Uncovered fee charges the amount as-is", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		router, payer, vault := setup(t, ctrl)

		vault.EXPECT().Get(gomock.Any(), myvault.StripeCredentials).Return(myvault.Credentials{APIKey: "sk_test_123"}, true, nil)
		payer.EXPECT().UseAPIKey("sk_test_123")
		payer.EXPECT().CreatePaymentIntent(gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, params stripe.PaymentIntentParams) (stripe.PaymentIntent, error) {
				assert.Equal(t, int64(5000), *params.Amount)
				return stripe.PaymentIntent{ClientSecret: "pi_secret_123"}, nil
			})

		body := `{"owner":{"session_id":"abcdEFGH12345678"},"amount":5000,"reference_no":"ref-1","covered_fee":"N"}`
		response := postIntent(t, router, body)
		assert.Equal(t, 200, response.Code)
	})

	t.Run("Unconfigured gateway", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		router, _, vault := setup(t, ctrl)

		vault.EXPECT().Get(gomock.Any(), myvault.StripeCredentials).Return(myvault.Credentials{}, false, nil)

		body := `{"owner":{"session_id":"abcdEFGH12345678"},"amount":5000,"reference_no":"ref-1"}`
		response := postIntent(t, router, body)
		assert.Equal(t, 503, response.Code)
	})

	t.Run("Reference is required", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		router, _, _ := setup(t, ctrl)

		body := `{"owner":{"session_id":"abcdEFGH12345678"},"amount":5000}`
		response := postIntent(t, router, body)
		assert.Equal(t, 400, response.Code)
	})
}

func postIntent(t *testing.T, router *mux.Router, body string) *httptest.ResponseRecorder {
	request, err := http.NewRequest(http.MethodPost, "/payment/stripe/paymentIntent", strings.NewReader(body))
	assert.NoError(t, err)
	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)
	return response
}

func setup(t *testing.T, ctrl *gomock.Controller) (*mux.Router, *MockPayer, *myvault.MockVaultReader) {
	c := context.TODO()
	router := mux.NewRouter()

	payer := NewMockPayer(ctrl)
	vault := myvault.NewMockVaultReader(ctrl)

	ws := NewWebService(payer, vault)
	ws.RegisterEndpoints(c, router)

	return router, payer, vault
}
