package cart

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/samadsayyed/donation-portal-sub000/lib/mycontext"
	"github.com/samadsayyed/donation-portal-sub000/lib/myerrors"
	"github.com/samadsayyed/donation-portal-sub000/lib/myhttp"
	"github.com/samadsayyed/donation-portal-sub000/lib/mylog"
	"github.com/samadsayyed/donation-portal-sub000/lib/mypublisher"
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
func NewWebService(cartStore mystore.Store[CartLine], publisher mypublisher.Publisher, nower mytime.Nower, uuider myuuid.UUIDer) *webService {
	logger := mylog.New("cart")
	return &webService{
		logger:  logger,
		service: newService(cartStore, publisher, nower, uuider, logger),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/cart/create", s.createPage()).Methods("POST")
	router.HandleFunc("/cart/cart", s.listPage()).Methods("POST")
	router.HandleFunc("/cart/quantity", s.quantityPage()).Methods("POST")
	router.HandleFunc("/cart/delete", s.deletePage()).Methods("POST")
	router.HandleFunc("/cart/update-participant", s.participantPage()).Methods("POST")

	// Deferred cleanup of the cart of an owner whose donation completed
	router.HandleFunc("/jobs/cart/{ownerUID}/clear", s.clearOwnerJob()).Methods("PUT")
}

// Create exposes cart creation to the selection flow, bypassing HTTP
func (s *webService) Create(c context.Context, owner donationapi.Owner, line CartLine) ([]CartLine, error) {
	return s.service.create(c, owner, line)
}

// List exposes the cart contents to the checkout wizard, bypassing HTTP
func (s *webService) List(c context.Context, owner donationapi.Owner) ([]CartLine, error) {
	return s.service.list(c, owner)
}

// UpdateParticipants is used by the checkout wizard when step 1 completes
func (s *webService) UpdateParticipants(c context.Context, cartUID string, joinedNames string) ([]CartLine, error) {
	return s.service.updateParticipants(c, cartUID, joinedNames)
}

// SetParticipants fills or clears every name slot of a line at once,
// used by the wizard's on-behalf-of-myself toggle
func (s *webService) SetParticipants(c context.Context, cartUID string, names []string) ([]CartLine, error) {
	return s.service.setParticipants(c, cartUID, names)
}

type createRequest struct {
	Owner donationapi.Owner `json:"owner"`
	Line  CartLine          `json:"line"`
}

type listRequest struct {
	Owner donationapi.Owner `json:"owner"`
}

type quantityRequest struct {
	CartUID  string `json:"cart_id"`
	Quantity int    `json:"quantity"`
}

type deleteRequest struct {
	CartUID string `json:"cart_id"`
}

type participantRequest struct {
	CartUID string `json:"cart_id"`
	// Names are joined into a single comma separated value for transport
	JoinedNames string `json:"participant_name"`
}

type cartResponse struct {
	Cart []CartLine `json:"cart"`
}

func (s *webService) createPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req := createRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}

		lines, err := s.service.create(c, req.Owner, req.Line)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, cartResponse{Cart: lines})
	}
}

func (s *webService) listPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req := listRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}

		lines, err := s.service.list(c, req.Owner)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, cartResponse{Cart: lines})
	}
}

func (s *webService) quantityPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req := quantityRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}

		lines, err := s.service.updateQuantity(c, req.CartUID, req.Quantity)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, cartResponse{Cart: lines})
	}
}

func (s *webService) deletePage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req := deleteRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}

		lines, err := s.service.remove(c, req.CartUID)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, cartResponse{Cart: lines})
	}
}

func (s *webService) participantPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req := participantRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}

		lines, err := s.service.updateParticipants(c, req.CartUID, req.JoinedNames)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, cartResponse{Cart: lines})
	}
}

func (s *webService) clearOwnerJob() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		ownerUID := mux.Vars(r)["ownerUID"]

		s.logger.Log(c, ownerUID, mylog.SeverityInfo, "Clearing cart of %s", ownerUID)

		err := s.service.clearOwner(c, ownerUID)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.EmptyResponse{})
	}
}
