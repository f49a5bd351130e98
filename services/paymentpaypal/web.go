package paymentpaypal

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
	"github.com/samadsayyed/donation-portal-sub000/services/payment"
)

type webService struct {
	logger  mylog.Logger
	service *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(payer Payer, vault myvault.VaultReader, donations Donations) *webService {
	logger := mylog.New("paymentpaypal")
	return &webService{
		logger:  logger,
		service: newService(payer, vault, donations, logger),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/payment/paypal/capture", s.capturePage()).Methods("POST")
}

type captureRequest struct {
	Owner       donationapi.Owner `json:"owner"`
	OrderID     string            `json:"order_id"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	ReferenceNo string            `json:"reference_no"`
	CoveredFee  string            `json:"covered_fee"`
}

type captureResponse struct {
	Donation       payment.DonationRecord `json:"donation"`
	SuccessPayload string                 `json:"success_payload,omitempty"`
}

func (s *webService) capturePage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req := captureRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}

		donation, payload, err := s.service.capture(c, req.Owner, req.OrderID, req.ReferenceNo,
			req.Amount, req.Currency, req.CoveredFee)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, captureResponse{
			Donation:       donation,
			SuccessPayload: payload,
		})
	}
}
