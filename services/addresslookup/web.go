package addresslookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/samadsayyed/donation-portal-sub000/lib/mycontext"
	"github.com/samadsayyed/donation-portal-sub000/lib/myerrors"
	"github.com/samadsayyed/donation-portal-sub000/lib/myhttp"
	"github.com/samadsayyed/donation-portal-sub000/lib/mylog"
)

type webService struct {
	logger mylog.Logger
	client Lookuper
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(client Lookuper) *webService {
	return &webService{
		logger: mylog.New("addresslookup"),
		client: client,
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/address/lookup", s.lookupPage()).Methods("POST")
}

type lookupRequest struct {
	Postcode string `json:"postcode"`
}

type lookupResponse struct {
	Addresses []Candidate `json:"addresses"`
}

func (s *webService) lookupPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req := lookupRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}

		postcode := strings.TrimSpace(req.Postcode)
		if postcode == "" {
			errorWriter.WriteError(c, w, 2, myerrors.NewInvalidInputErrorf("postcode is required"))
			return
		}

		if s.client == nil {
			errorWriter.WriteError(c, w, 3, myerrors.NewUnavailableError(fmt.Errorf("address lookup not configured")))
			return
		}

		addresses, err := s.client.Lookup(c, postcode)
		if err != nil {
			errorWriter.WriteError(c, w, 4, myerrors.NewUnavailableError(err))
			return
		}

		errorWriter.Write(c, w, http.StatusOK, lookupResponse{Addresses: addresses})
	}
}
