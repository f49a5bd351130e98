package checkout

import (
	"context"
	"encoding/json"
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
	"github.com/samadsayyed/donation-portal-sub000/services/cart"
	"github.com/samadsayyed/donation-portal-sub000/services/donationapi"
)

type webService struct {
	logger  mylog.Logger
	service *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(attemptStore mystore.Store[Attempt], kvStore mykvstore.Store, cartService Cart,
	payments Payments, donors DonorDirectory, queue myqueue.TaskQueuer, publisher mypublisher.Publisher,
	nower mytime.Nower, uuider myuuid.UUIDer) *webService {
	logger := mylog.New("checkout")
	return &webService{
		logger:  logger,
		service: newService(attemptStore, kvStore, cartService, payments, donors, queue, publisher, nower, uuider, logger),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/checkout/start", s.startPage()).Methods("POST")
	router.HandleFunc("/checkout/{attemptUID}", s.detailsPage()).Methods("GET")
	router.HandleFunc("/checkout/{attemptUID}/participants", s.participantsPage()).Methods("POST")
	router.HandleFunc("/checkout/{attemptUID}/preferences", s.preferencesPage()).Methods("POST")
	router.HandleFunc("/checkout/{attemptUID}/next", s.nextPage()).Methods("POST")
	router.HandleFunc("/checkout/{attemptUID}/previous", s.previousPage()).Methods("POST")

	// the gateway UI posts the step-3 form here
	router.HandleFunc("/payment/transaction", s.transactionPage()).Methods("POST")

	// Delayed verdict on attempts that went off to pay and never came back
	router.HandleFunc("/jobs/checkout/{attemptUID}/reconcile", s.reconcileJob()).Methods("PUT")
}

type startRequest struct {
	Owner donationapi.Owner `json:"owner"`
}

type participantsRequest struct {
	CartUID     string `json:"cart_id"`
	JoinedNames string `json:"participant_name"`
	// OnBehalfOfMyself, when present, overrides the per-line update
	OnBehalfOfMyself *string `json:"on_behalf_of_myself,omitempty"`
}

type preferencesRequest struct {
	Prefs donationapi.Preferences `json:"preferences"`
}

type detailsResponse struct {
	Attempt     Attempt                  `json:"attempt"`
	Cart        []cart.CartLine          `json:"cart"`
	Preferences *donationapi.Preferences `json:"preferences,omitempty"`
}

type cartResponse struct {
	Cart []cart.CartLine `json:"cart"`
}

func (s *webService) startPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req := startRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}

		attempt, err := s.service.start(c, req.Owner)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, attempt)
	}
}

func (s *webService) detailsPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		attemptUID := mux.Vars(r)["attemptUID"]

		attempt, lines, prefs, err := s.service.details(c, attemptUID)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, detailsResponse{
			Attempt:     attempt,
			Cart:        lines,
			Preferences: prefs,
		})
	}
}

func (s *webService) participantsPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		attemptUID := mux.Vars(r)["attemptUID"]

		req := participantsRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}

		var lines []cart.CartLine
		if req.OnBehalfOfMyself != nil {
			lines, err = s.service.setOnBehalfOfMyself(c, attemptUID, *req.OnBehalfOfMyself == donationapi.Yes)
		} else {
			lines, err = s.service.setParticipants(c, attemptUID, req.CartUID, req.JoinedNames)
		}
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, cartResponse{Cart: lines})
	}
}

func (s *webService) preferencesPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		attemptUID := mux.Vars(r)["attemptUID"]

		req := preferencesRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}

		err = s.service.savePreferences(c, attemptUID, req.Prefs)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.EmptyResponse{})
	}
}

func (s *webService) nextPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		attempt, err := s.service.next(c, mux.Vars(r)["attemptUID"])
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, attempt)
	}
}

func (s *webService) previousPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		attempt, err := s.service.previous(c, mux.Vars(r)["attemptUID"])
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, attempt)
	}
}

func (s *webService) transactionPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		tx, err := donationapi.NewTransactionFromRequest(r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		attempt, err := s.service.submit(c, tx)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, attempt)
	}
}

func (s *webService) reconcileJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		attemptUID := mux.Vars(r)["attemptUID"]

		s.logger.Log(c, attemptUID, mylog.SeverityInfo, "Reconciling attempt %s", attemptUID)

		attempt, err := s.service.reconcile(c, attemptUID)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, attempt)
	}
}
