package donor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/samadsayyed/donation-portal-sub000/lib/mystore"
	"github.com/samadsayyed/donation-portal-sub000/lib/mytime"
	"github.com/samadsayyed/donation-portal-sub000/lib/myuuid"
	"github.com/samadsayyed/donation-portal-sub000/services/donationapi"
	"github.com/samadsayyed/donation-portal-sub000/services/payment"
)

func TestDonorService(t *testing.T) {

	t.Run("Signup and login", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		_, router, _, _, _ := setup(t, ctrl)

		donor := signupDonor(t, router, "zaid@example.com", "s3cretpass")
		assert.Equal(t, "donor-1", donor.UID)
		assert.Equal(t, "Zaid", donor.FirstName)
		assert.Empty(t, donor.PasswordHash)

		loggedIn := login(t, router, "zaid@example.com", "s3cretpass", 200)
		assert.Equal(t, "donor-1", loggedIn.UID)
	})

	t.Run("Signup with short password", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		_, router, _, _, _ := setup(t, ctrl)

		body := `{"donor":{"first_name":"Zaid","last_name":"Khan","email":"zaid@example.com"},"password":"short"}`
		response := postJSON(t, router, "/signup", body, "")
		assert.Equal(t, 400, response.Code)
		assert.Contains(t, response.Body.String(), "at least 8 characters")
	})

	t.Run("Signup with duplicate email", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		_, router, _, _, _ := setup(t, ctrl)

		signupDonor(t, router, "zaid@example.com", "s3cretpass")

		// same address with different case counts as taken
		body := `{"donor":{"first_name":"Other","last_name":"Person","email":"ZAID@Example.com"},"password":"anotherpass"}`
		response := postJSON(t, router, "/signup", body, "")
		assert.Equal(t, 400, response.Code)
		assert.Contains(t, response.Body.String(), "already exists")
	})

	t.Run("Login with wrong password", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		_, router, _, _, _ := setup(t, ctrl)

		signupDonor(t, router, "zaid@example.com", "s3cretpass")

		response := postJSON(t, router, "/login", `{"email":"zaid@example.com","password":"wrongpass"}`, "")
		assert.Equal(t, 403, response.Code)
		assert.Contains(t, response.Body.String(), "unknown email or wrong password")
	})

	t.Run("Login with unknown email", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		_, router, _, _, _ := setup(t, ctrl)

		response := postJSON(t, router, "/login", `{"email":"nobody@example.com","password":"whatever1"}`, "")
		assert.Equal(t, 403, response.Code)
	})

	t.Run("Logout always succeeds", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		_, router, _, _, _ := setup(t, ctrl)

		response := postJSON(t, router, "/logout", `{}`, "")
		assert.Equal(t, 200, response.Code)
	})

	t.Run("Email availability check", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		_, router, _, _, _ := setup(t, ctrl)

		signupDonor(t, router, "zaid@example.com", "s3cretpass")

		response := postJSON(t, router, "/donor/email", `{"email":"Zaid@Example.com"}`, "")
		assert.Equal(t, 200, response.Code)
		got := emailResponse{}
		assert.NoError(t, json.Unmarshal(response.Body.Bytes(), &got))
		assert.True(t, got.Exists)

		response = postJSON(t, router, "/donor/email", `{"email":"fresh@example.com"}`, "")
		assert.Equal(t, 200, response.Code)
		got = emailResponse{}
		assert.NoError(t, json.Unmarshal(response.Body.Bytes(), &got))
		assert.False(t, got.Exists)
	})

	t.Run("Update donor details", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		_, router, _, _, _ := setup(t, ctrl)

		donor := signupDonor(t, router, "zaid@example.com", "s3cretpass")

		body := `{"donor":{"phone":"+44 7700 900123","email":"New@Example.com"}}`
		response := postJSON(t, router, "/donor/update-donor", body, donor.UID)
		assert.Equal(t, 200, response.Code)
		updated := Donor{}
		assert.NoError(t, json.Unmarshal(response.Body.Bytes(), &updated))
		assert.Equal(t, "+44 7700 900123", updated.Phone)
		assert.Equal(t, "new@example.com", updated.Email)
		assert.Equal(t, "Zaid", updated.FirstName)
		assert.NotNil(t, updated.LastModified)
	})

	t.Run("Update without identity", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		_, router, _, _, _ := setup(t, ctrl)

		response := postJSON(t, router, "/donor/update-donor", `{"donor":{"phone":"123"}}`, "")
		assert.Equal(t, 400, response.Code)
		assert.Contains(t, response.Body.String(), "missing donor id")
	})

	t.Run("Update email to one already taken", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		_, router, _, _, _ := setup(t, ctrl)

		signupDonor(t, router, "zaid@example.com", "s3cretpass")
		other := signupDonor(t, router, "other@example.com", "s3cretpass")

		response := postJSON(t, router, "/donor/update-donor", `{"donor":{"email":"zaid@example.com"}}`, other.UID)
		assert.Equal(t, 400, response.Code)
		assert.Contains(t, response.Body.String(), "already exists")
	})

	t.Run("Change password", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		_, router, _, _, _ := setup(t, ctrl)

		donor := signupDonor(t, router, "zaid@example.com", "s3cretpass")

		body := `{"current_password":"s3cretpass","new_password":"evenM0reSecret"}`
		response := postJSON(t, router, "/donor/update-donor-password", body, donor.UID)
		assert.Equal(t, 200, response.Code)

		login(t, router, "zaid@example.com", "s3cretpass", 403)
		login(t, router, "zaid@example.com", "evenM0reSecret", 200)
	})

	t.Run("Change password with wrong current password", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		_, router, _, _, _ := setup(t, ctrl)

		donor := signupDonor(t, router, "zaid@example.com", "s3cretpass")

		body := `{"current_password":"wrongpass","new_password":"evenM0reSecret"}`
		response := postJSON(t, router, "/donor/update-donor-password", body, donor.UID)
		assert.Equal(t, 403, response.Code)

		login(t, router, "zaid@example.com", "s3cretpass", 200)
	})

	t.Run("First address becomes the default", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		_, router, donorStore, _, _ := setup(t, ctrl)

		donor := signupDonor(t, router, "zaid@example.com", "s3cretpass")

		address := addAddress(t, router, donor.UID, `{"address":{"postcode":"M1 1AA","address1":"1 High Street","city":"Manchester","country":"United Kingdom"}}`)
		assert.Equal(t, "uid-2", address.UID)

		stored, found, err := donorStore.Get(context.TODO(), donor.UID)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, address.UID, stored.DefaultAddressID)
	})

	t.Run("Second address only default when requested", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		_, router, donorStore, _, _ := setup(t, ctrl)

		donor := signupDonor(t, router, "zaid@example.com", "s3cretpass")

		first := addAddress(t, router, donor.UID, `{"address":{"postcode":"M1 1AA","address1":"1 High Street","city":"Manchester"}}`)
		addAddress(t, router, donor.UID, `{"address":{"postcode":"LS1 1AA","address1":"2 Low Street","city":"Leeds"}}`)

		stored, _, _ := donorStore.Get(context.TODO(), donor.UID)
		assert.Equal(t, first.UID, stored.DefaultAddressID)

		third := addAddress(t, router, donor.UID, `{"address":{"postcode":"B1 1AA","address1":"3 Mid Street","city":"Birmingham"},"make_default":true}`)

		stored, _, _ = donorStore.Get(context.TODO(), donor.UID)
		assert.Equal(t, third.UID, stored.DefaultAddressID)

		addresses := listAddresses(t, router, donor.UID)
		assert.Len(t, addresses, 3)
	})

	t.Run("Address requires postcode and street", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		_, router, _, _, _ := setup(t, ctrl)

		donor := signupDonor(t, router, "zaid@example.com", "s3cretpass")

		response := postJSON(t, router, "/donor/add-new-address", `{"address":{"city":"Manchester"}}`, donor.UID)
		assert.Equal(t, 400, response.Code)
		assert.Contains(t, response.Body.String(), "postcode, address1 and city are required")
	})

	t.Run("Donation history", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		_, router, _, _, donations := setup(t, ctrl)

		donor := signupDonor(t, router, "zaid@example.com", "s3cretpass")
		donations.records = []payment.DonationRecord{
			{UID: "dntn-1", ReferenceNo: "ref-1", AmountInPence: 5110, Method: payment.MethodStripe, Status: payment.StatusCompleted},
		}

		response := postJSON(t, router, "/donor/one-off-transaction", `{}`, donor.UID)
		assert.Equal(t, 200, response.Code)
		got := historyResponse{}
		assert.NoError(t, json.Unmarshal(response.Body.Bytes(), &got))
		assert.Len(t, got.Donations, 1)
		assert.Equal(t, "ref-1", got.Donations[0].ReferenceNo)
		assert.Equal(t, donationapi.Owner{DonorID: donor.UID}, donations.lastOwner)
	})

	t.Run("Donation history of unknown donor", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		_, router, _, _, _ := setup(t, ctrl)

		response := postJSON(t, router, "/donor/one-off-transaction", `{"donor_id":"ghost"}`, "")
		assert.Equal(t, 404, response.Code)
	})

	t.Run("First name lookup", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		c, router, _, ws, _ := setup(t, ctrl)

		donor := signupDonor(t, router, "zaid@example.com", "s3cretpass")

		name, err := ws.FirstName(c, donor.UID)
		assert.NoError(t, err)
		assert.Equal(t, "Zaid", name)

		_, err = ws.FirstName(c, "ghost")
		assert.Error(t, err)
	})
}

type donationsStub struct {
	records   []payment.DonationRecord
	lastOwner donationapi.Owner
}

func (s *donationsStub) ListDonations(c context.Context, owner donationapi.Owner) ([]payment.DonationRecord, error) {
	s.lastOwner = owner
	return s.records, nil
}

func setup(t *testing.T, ctrl *gomock.Controller) (context.Context, *mux.Router, mystore.Store[Donor], *webService, *donationsStub) {
	c := context.TODO()
	router := mux.NewRouter()

	donorStore, _, _ := mystore.NewInMemoryStore[Donor](c)
	addressStore, _, _ := mystore.NewInMemoryStore[Address](c)
	donations := &donationsStub{}
	nower := mytime.NewMockNower(ctrl)
	nower.EXPECT().Now().Return(mytime.ExampleTime).AnyTimes()
	uuider := myuuid.NewMockUUIDer(ctrl)
	sequence := 0
	uuider.EXPECT().Create().DoAndReturn(func() string {
		sequence++
		return fmt.Sprintf("uid-%d", sequence)
	}).AnyTimes()

	ws := NewWebService(donorStore, addressStore, donations, nower, uuider)
	ws.RegisterEndpoints(c, router)

	return c, router, donorStore, ws, donations
}

func signupDonor(t *testing.T, router *mux.Router, email string, password string) Donor {
	body := fmt.Sprintf(`{"donor":{"title":"Mr","first_name":"Zaid","last_name":"Khan","email":"%s"},"password":"%s"}`, email, password)
	response := postJSON(t, router, "/signup", body, "")
	assert.Equal(t, 200, response.Code)
	donor := Donor{}
	assert.NoError(t, json.Unmarshal(response.Body.Bytes(), &donor))
	return donor
}

func login(t *testing.T, router *mux.Router, email string, password string, expectedStatus int) Donor {
	body := fmt.Sprintf(`{"email":"%s","password":"%s"}`, email, password)
	response := postJSON(t, router, "/login", body, "")
	assert.Equal(t, expectedStatus, response.Code)
	donor := Donor{}
	if response.Code == 200 {
		assert.NoError(t, json.Unmarshal(response.Body.Bytes(), &donor))
	}
	return donor
}

func addAddress(t *testing.T, router *mux.Router, donorUID string, body string) Address {
	response := postJSON(t, router, "/donor/add-new-address", body, donorUID)
	assert.Equal(t, 200, response.Code)
	address := Address{}
	assert.NoError(t, json.Unmarshal(response.Body.Bytes(), &address))
	return address
}

func listAddresses(t *testing.T, router *mux.Router, donorUID string) []Address {
	request, err := http.NewRequest(http.MethodGet, "/donor/address/"+donorUID, nil)
	assert.NoError(t, err)
	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)
	assert.Equal(t, 200, response.Code)
	addresses := []Address{}
	assert.NoError(t, json.Unmarshal(response.Body.Bytes(), &addresses))
	return addresses
}

func postJSON(t *testing.T, router *mux.Router, path string, body string, donorUID string) *httptest.ResponseRecorder {
	request, err := http.NewRequest(http.MethodPost, path, strings.NewReader(body))
	assert.NoError(t, err)
	request.Header.Set("Content-Type", "application/json")
	if donorUID != "" {
		request.Header.Set("user_id", donorUID)
	}
	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)
	return response
}
