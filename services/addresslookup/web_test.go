package addresslookup

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

func TestAddressLookup(t *testing.T) {

	t.Run("Lookup returns candidates", func(t *testing.T) {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/find/M1%201AA", r.URL.EscapedPath())
			assert.Equal(t, "test-key", r.URL.Query().Get("api-key"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"addresses":[{"address1":"1 High Street","city":"Manchester","postcode":"M1 1AA","country":"United Kingdom"}]}`))
		}))
		defer upstream.Close()

		router := setup(NewLookupClient(upstream.URL, "test-key"))

		response := lookup(t, router, `{"postcode":"M1 1AA"}`)
		assert.Equal(t, 200, response.Code)
		got := lookupResponse{}
		assert.NoError(t, json.Unmarshal(response.Body.Bytes(), &got))
		assert.Len(t, got.Addresses, 1)
		assert.Equal(t, "1 High Street", got.Addresses[0].Address1)
		assert.Equal(t, "Manchester", got.Addresses[0].City)
	})

	t.Run("Lookup without postcode", func(t *testing.T) {
		router := setup(NewLookupClient("http://localhost:0", "test-key"))

		response := lookup(t, router, `{}`)
		assert.Equal(t, 400, response.Code)
		assert.Contains(t, response.Body.String(), "postcode is required")
	})

	t.Run("Lookup when not configured", func(t *testing.T) {
		router := setup(nil)

		response := lookup(t, router, `{"postcode":"M1 1AA"}`)
		assert.Equal(t, 503, response.Code)
		assert.Contains(t, response.Body.String(), "not configured")
	})

	t.Run("Upstream failure surfaces as unavailable", func(t *testing.T) {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer upstream.Close()

		router := setup(NewLookupClient(upstream.URL, "test-key"))

		response := lookup(t, router, `{"postcode":"M1 1AA"}`)
		assert.Equal(t, 503, response.Code)
		assert.Contains(t, response.Body.String(), "returned status 500")
	})
}

func setup(client Lookuper) *mux.Router {
	c := context.TODO()
	router := mux.NewRouter()
	ws := NewWebService(client)
	ws.RegisterEndpoints(c, router)
	return router
}

func lookup(t *testing.T, router *mux.Router, body string) *httptest.ResponseRecorder {
	request, err := http.NewRequest(http.MethodPost, "/address/lookup", strings.NewReader(body))
	assert.NoError(t, err)
	request.Header.Set("Content-Type", "application/json")
	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)
	return response
}
