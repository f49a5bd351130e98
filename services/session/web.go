package session

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
)

type webService struct {
	logger  mylog.Logger
	service *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(sessionStore mystore.Store[Session], nower mytime.Nower) *webService {
	logger := mylog.New("session")
	return &webService{
		logger:  logger,
		service: newService(sessionStore, nower, logger),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/session", s.resolveSessionPage()).Methods("POST")
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
}

func (s *webService) resolveSessionPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req := sessionRequest{}
		if r.Body != nil && r.ContentLength != 0 {
			err := json.NewDecoder(r.Body).Decode(&req)
			if err != nil {
				errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
				return
			}
		}

		session, err := s.service.resolveToken(c, req.SessionID)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, sessionResponse{
			SessionID: session.Token,
		})
	}
}
