package selection

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/samadsayyed/donation-portal-sub000/lib/mycontext"
	"github.com/samadsayyed/donation-portal-sub000/lib/myerrors"
	"github.com/samadsayyed/donation-portal-sub000/lib/myhttp"
	"github.com/samadsayyed/donation-portal-sub000/lib/mylog"
	"github.com/samadsayyed/donation-portal-sub000/lib/mystore"
	"github.com/samadsayyed/donation-portal-sub000/lib/mytime"
	"github.com/samadsayyed/donation-portal-sub000/services/cart"
	"github.com/samadsayyed/donation-portal-sub000/services/donationapi"
)

type webService struct {
	logger  mylog.Logger
	service *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(stateStore mystore.Store[State], catalogService Catalog, cartService CartCreator, nower mytime.Nower) *webService {
	logger := mylog.New("selection")
	return &webService{
		logger:  logger,
		service: newService(stateStore, catalogService, cartService, nower, logger),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/selection", s.statePage()).Methods("GET")
	router.HandleFunc("/selection/select", s.selectPage()).Methods("POST")
	router.HandleFunc("/selection/confirm-amount", s.confirmAmountPage()).Methods("POST")
}

type selectRequest struct {
	Owner donationapi.Owner `json:"owner"`
	Stage string            `json:"stage"`
	Value string            `json:"value"`
}

type confirmAmountRequest struct {
	Owner  donationapi.Owner `json:"owner"`
	Amount string            `json:"amount"`
}

type cartResponse struct {
	Cart []cart.CartLine `json:"cart"`
}

func (s *webService) statePage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		owner := donationapi.Owner{
			DonorID:   mycontext.DonorID(c),
			SessionID: mycontext.SessionID(c),
		}

		state, err := s.service.get(c, owner)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, state)
	}
}

func (s *webService) selectPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req := selectRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}

		state, err := s.service.selectValue(c, req.Owner, req.Stage, req.Value)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, state)
	}
}

func (s *webService) confirmAmountPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req := confirmAmountRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}

		lines, err := s.service.confirmAmount(c, req.Owner, req.Amount)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, cartResponse{Cart: lines})
	}
}
