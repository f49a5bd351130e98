package paymentstripe

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/samadsayyed/donation-portal-sub000/lib/mycontext"
	"github.com/samadsayyed/donation-portal-sub000/lib/myerrors"
	"github.com/samadsayyed/donation-portal-sub000/lib/myhttp"
	"github.com/samadsayyed/donation-portal-sub000/lib/mylog"
	"github.com/samadsayyed/donation-portal-sub000/lib/myvault"
	"github.com/samadsayyed/donation-portal-sub000/services/donationapi"
)

type webService struct {
	logger  mylog.Logger
	service *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(payer Payer, vault myvault.VaultReader) *webService {
	logger := mylog.New("paymentstripe")
	return &webService{
		logger:  logger,
		service: newService(payer, vault, logger),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/payment/stripe/paymentIntent", s.paymentIntentPage()).Methods("POST")
}

type paymentIntentRequest struct {
	Owner       donationapi.Owner `json:"owner"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	ReferenceNo string            `json:"reference_no"`
	CoveredFee  string            `json:"covered_fee"`
}

type paymentIntentResponse struct {
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	ReferenceNo  string `json:"reference_no"`
}

func (s *webService) paymentIntentPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req := paymentIntentRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}
		if req.Currency == "" {
			req.Currency = "GBP"
		}

		clientSecret, total, err := s.service.createPaymentIntent(c, req.Owner, req.ReferenceNo,
			req.Amount, req.Currency, req.CoveredFee == donationapi.Yes)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, paymentIntentResponse{
			ClientSecret: clientSecret,
			Amount:       total,
			Currency:     req.Currency,
			ReferenceNo:  req.ReferenceNo,
		})
	}
}
