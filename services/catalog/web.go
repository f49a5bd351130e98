package catalog

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/samadsayyed/donation-portal-sub000/lib/mycontext"
	"github.com/samadsayyed/donation-portal-sub000/lib/myhttp"
	"github.com/samadsayyed/donation-portal-sub000/lib/mylog"
	"github.com/samadsayyed/donation-portal-sub000/lib/mystore"
)

type webService struct {
	logger  mylog.Logger
	service *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(categoryStore mystore.Store[Category], programStore mystore.Store[Program], countryStore mystore.Store[Country]) *webService {
	logger := mylog.New("catalog")
	return &webService{
		logger:  logger,
		service: newService(categoryStore, programStore, countryStore, logger),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/catalog/categories", s.categoriesPage()).Methods("GET")
	router.HandleFunc("/catalog/programs/{categoryUID}", s.programsPage()).Methods("GET")
	router.HandleFunc("/catalog/rates/{programUID}", s.ratesPage()).Methods("GET")

	// The frontend fetches program countries under this legacy path
	router.HandleFunc("/country/{programUID}", s.countriesPage()).Methods("GET")
}

func (s *webService) Seed(c context.Context) error {
	return s.service.Seed(c)
}

// GetCategory exposes category lookup to the selection flow, bypassing HTTP
func (s *webService) GetCategory(c context.Context, categoryUID string) (Category, error) {
	return s.service.getCategory(c, categoryUID)
}

// GetProgram exposes program lookup to the selection flow, bypassing HTTP
func (s *webService) GetProgram(c context.Context, programUID string) (Program, error) {
	return s.service.getProgram(c, programUID)
}

// ListCountries exposes the country dimension to the selection flow, bypassing HTTP
func (s *webService) ListCountries(c context.Context, programUID string) ([]Country, error) {
	return s.service.listCountries(c, programUID)
}

func (s *webService) categoriesPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		categories, err := s.service.listCategories(c)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, categories)
	}
}

func (s *webService) programsPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		categoryUID := mux.Vars(r)["categoryUID"]

		programs, err := s.service.listPrograms(c, categoryUID)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, programs)
	}
}

func (s *webService) ratesPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		programUID := mux.Vars(r)["programUID"]

		program, err := s.service.getProgram(c, programUID)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, program)
	}
}

func (s *webService) countriesPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		programUID := mux.Vars(r)["programUID"]

		countries, err := s.service.listCountries(c, programUID)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, countries)
	}
}
