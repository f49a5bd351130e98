package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/samadsayyed/donation-portal-sub000/lib/mycontext"
	"github.com/samadsayyed/donation-portal-sub000/lib/myerrors"
	"github.com/samadsayyed/donation-portal-sub000/lib/myhttp"
	"github.com/samadsayyed/donation-portal-sub000/lib/mykvstore"
	"github.com/samadsayyed/donation-portal-sub000/lib/mylog"
	"github.com/samadsayyed/donation-portal-sub000/lib/mypublisher"
	"github.com/samadsayyed/donation-portal-sub000/lib/myqueue"
	"github.com/samadsayyed/donation-portal-sub000/lib/mystore"
	"github.com/samadsayyed/donation-portal-sub000/lib/mytime"
	"github.com/samadsayyed/donation-portal-sub000/lib/myuuid"
	"github.com/samadsayyed/donation-portal-sub000/services/donationapi"
)

type webService struct {
	logger  mylog.Logger
	service *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(referenceStore mystore.Store[PaymentReference], transactionStore mystore.Store[TransactionRecord],
	donationStore mystore.Store[DonationRecord], kvStore mykvstore.Store, queue myqueue.TaskQueuer,
	publisher mypublisher.Publisher, nower mytime.Nower, uuider myuuid.UUIDer) *webService {
	logger := mylog.New("payment")
	return &webService{
		logger:  logger,
		service: newService(referenceStore, transactionStore, donationStore, kvStore, queue, publisher, nower, uuider, logger),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/payment/reference/{ownerUID}", s.referencePage()).Methods("GET")
	router.HandleFunc("/payment/create-single-donation", s.createDonationPage()).Methods("POST")
	router.HandleFunc("/payment/success/{payload}", s.successPage()).Methods("GET")
}

// IssueReference exposes reference issuing to the checkout flow, bypassing HTTP
func (s *webService) IssueReference(c context.Context, owner donationapi.Owner, attemptUID string) (PaymentReference, error) {
	return s.service.issueReference(c, owner, attemptUID)
}

// CreateTransaction exposes transaction recording to the checkout flow, bypassing HTTP
func (s *webService) CreateTransaction(c context.Context, record TransactionRecord) error {
	return s.service.createTransaction(c, record)
}

// HasDonationForReference is used by the checkout reconciliation job
func (s *webService) HasDonationForReference(c context.Context, referenceNo string) (bool, error) {
	return s.service.hasDonationForReference(c, referenceNo)
}

// CreateSingleDonation exposes donation confirmation to the gateway
// adapters, bypassing HTTP
func (s *webService) CreateSingleDonation(c context.Context, owner donationapi.Owner, transactionID string,
	amountInPence int64, currency string, method string, referenceNo string, coveredFee string) (DonationRecord, string, error) {
	return s.service.createSingleDonation(c, owner, transactionID, amountInPence, currency, method, referenceNo, coveredFee)
}

// ListDonations exposes donation history to the donor account endpoints
func (s *webService) ListDonations(c context.Context, owner donationapi.Owner) ([]DonationRecord, error) {
	return s.service.listDonations(c, owner)
}

type createDonationRequest struct {
	Owner         donationapi.Owner `json:"owner"`
	TransactionID string            `json:"transaction_id"`
	Amount        int64             `json:"amount"`
	Currency      string            `json:"currency"`
	Method        string            `json:"method"`
	ReferenceNo   string            `json:"reference_no"`
	CoveredFee    string            `json:"covered_fee"`
}

type createDonationResponse struct {
	Donation       DonationRecord `json:"donation"`
	SuccessPayload string         `json:"success_payload,omitempty"`
}

func (s *webService) referencePage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		owner := donationapi.Owner{
			DonorID:   mycontext.DonorID(c),
			SessionID: mycontext.SessionID(c),
		}
		ownerUID := mux.Vars(r)["ownerUID"]

		if err := owner.Validate(); err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}
		if owner.UID() != ownerUID {
			errorWriter.WriteError(c, w, 2, myerrors.NewAuthenticationError(
				fmt.Errorf("reference requested for a different owner")))
			return
		}

		reference, err := s.service.issueReference(c, owner, r.URL.Query().Get("attempt"))
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, reference)
	}
}

func (s *webService) createDonationPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req := createDonationRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}

		donation, payload, err := s.service.createSingleDonation(c, req.Owner, req.TransactionID,
			req.Amount, req.Currency, req.Method, req.ReferenceNo, req.CoveredFee)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, createDonationResponse{
			Donation:       donation,
			SuccessPayload: payload,
		})
	}
}

func (s *webService) successPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		payload := mux.Vars(r)["payload"]

		snapshot, err := DecodeSuccessPayload(payload)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, snapshot)
	}
}
