package donor

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
	"github.com/samadsayyed/donation-portal-sub000/lib/myuuid"
	"github.com/samadsayyed/donation-portal-sub000/services/payment"
)

type webService struct {
	logger  mylog.Logger
	service *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(donorStore mystore.Store[Donor], addressStore mystore.Store[Address], donations Donations,
	nower mytime.Nower, uuider myuuid.UUIDer) *webService {
	logger := mylog.New("donor")
	return &webService{
		logger:  logger,
		service: newService(donorStore, addressStore, donations, nower, uuider, logger),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/signup", s.signupPage()).Methods("POST")
	router.HandleFunc("/login", s.loginPage()).Methods("POST")
	router.HandleFunc("/logout", s.logoutPage()).Methods("POST")
	router.HandleFunc("/donor/email", s.emailPage()).Methods("POST")
	router.HandleFunc("/donor/update-donor", s.updatePage()).Methods("POST")
	router.HandleFunc("/donor/update-donor-password", s.updatePasswordPage()).Methods("POST")
	router.HandleFunc("/donor/add-new-address", s.addAddressPage()).Methods("POST")
	router.HandleFunc("/donor/address/{donorUID}", s.addressesPage()).Methods("GET")
	router.HandleFunc("/donor/one-off-transaction", s.historyPage()).Methods("POST")
}

// FirstName resolves the given name behind a donor uid, for the checkout
// wizard's on-behalf-of-myself toggle
func (s *webService) FirstName(c context.Context, donorUID string) (string, error) {
	donor, err := s.service.fetch(c, donorUID)
	if err != nil {
		return "", err
	}
	return donor.FirstName, nil
}

type signupRequest struct {
	Donor    Donor  `json:"donor"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type emailResponse struct {
	Exists bool `json:"exists"`
}

type updateRequest struct {
	DonorUID string `json:"donor_id"`
	Donor    Donor  `json:"donor"`
}

type updatePasswordRequest struct {
	DonorUID        string `json:"donor_id"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type addAddressRequest struct {
	DonorUID    string  `json:"donor_id"`
	Address     Address `json:"address"`
	MakeDefault bool    `json:"make_default"`
}

type historyRequest struct {
	DonorUID string `json:"donor_id"`
}

type historyResponse struct {
	Donations []payment.DonationRecord `json:"donations"`
}

// identityFromRequest prefers the authenticated header over the body, so
// a signed-in donor cannot act on someone else's account
func identityFromRequest(c context.Context, bodyUID string) (string, error) {
	headerUID := mycontext.DonorID(c)
	if headerUID != "" {
		return headerUID, nil
	}
	if bodyUID != "" {
		return bodyUID, nil
	}
	return "", myerrors.NewInvalidInputErrorf("missing donor id")
}

func (s *webService) signupPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req := signupRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}

		donor, err := s.service.signup(c, req.Donor, req.Password)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, donor)
	}
}

func (s *webService) loginPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req := loginRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}

		donor, err := s.service.login(c, req.Email, req.Password)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, donor)
	}
}

func (s *webService) logoutPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		// identity lives client-side, nothing to tear down here
		errorWriter.Write(c, w, http.StatusOK, myhttp.EmptyResponse{})
	}
}

func (s *webService) emailPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req := emailRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}

		exists, err := s.service.emailExists(c, req.Email)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, emailResponse{Exists: exists})
	}
}

func (s *webService) updatePage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req := updateRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}

		donorUID, err := identityFromRequest(c, req.DonorUID)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		donor, err := s.service.update(c, donorUID, req.Donor)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, donor)
	}
}

func (s *webService) updatePasswordPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req := updatePasswordRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}

		donorUID, err := identityFromRequest(c, req.DonorUID)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		err = s.service.updatePassword(c, donorUID, req.CurrentPassword, req.NewPassword)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.EmptyResponse{})
	}
}

func (s *webService) addAddressPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req := addAddressRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}

		donorUID, err := identityFromRequest(c, req.DonorUID)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		address, err := s.service.addAddress(c, donorUID, req.Address, req.MakeDefault)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, address)
	}
}

func (s *webService) addressesPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		donorUID := mux.Vars(r)["donorUID"]

		addresses, err := s.service.listAddresses(c, donorUID)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, addresses)
	}
}

func (s *webService) historyPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req := historyRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}

		donorUID, err := identityFromRequest(c, req.DonorUID)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		donations, err := s.service.donationHistory(c, donorUID)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, historyResponse{Donations: donations})
	}
}
