package donationapi

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	formcodec "github.com/go-playground/form/v4"

	"github.com/samadsayyed/donation-portal-sub000/lib/myerrors"
)

const (
	Yes = "Y"
	No  = "N"

	// The only gateways the donation flow supports
	GatewayStripe = "stripe"
	GatewayPayPal = "paypal"
)

// Owner identifies who a cart, attempt or donation belongs to:
// an authenticated donor or an anonymous device session, never both.
type Owner struct {
	DonorID   string `json:"donor_id" form:"donorId"`
	SessionID string `json:"session_id" form:"sessionId"`
}

func (o Owner) Validate() error {
	if o.DonorID == "" && o.SessionID == "" {
		return myerrors.NewInvalidInputErrorf("missing owner: donor_id or session_id required")
	}
	if o.DonorID != "" && o.SessionID != "" {
		return myerrors.NewInvalidInputErrorf("ambiguous owner: donor_id and session_id are mutually exclusive")
	}
	return nil
}

func (o Owner) UID() string {
	if o.DonorID != "" {
		return o.DonorID
	}
	return o.SessionID
}

func (o Owner) IsAuthenticated() bool {
	return o.DonorID != ""
}

// PersonalInfo is what step 3 of the checkout collects
type PersonalInfo struct {
	Title     string `json:"title" form:"title"`
	FirstName string `json:"first_name" form:"firstName"`
	LastName  string `json:"last_name" form:"lastName"`
	Email     string `json:"email" form:"email"`
	Phone     string `json:"phone" form:"phone"`
	Country   string `json:"country" form:"country"`
	Postcode  string `json:"postcode" form:"postcode"`
	Address1  string `json:"address1" form:"address1"`
	City      string `json:"city" form:"city"`
	CityID    string `json:"city_id" form:"cityId"`
	Address2  string `json:"address2" form:"address2"`
}

// requiredFields lists name/value pairs in the order they are reported back
func (p PersonalInfo) requiredFields() []struct{ name, value string } {
	return []struct{ name, value string }{
		{"title", p.Title},
		{"firstName", p.FirstName},
		{"lastName", p.LastName},
		{"email", p.Email},
		{"phone", p.Phone},
		{"country", p.Country},
		{"postcode", p.Postcode},
		{"address1", p.Address1},
		{"city", p.City},
		{"address2", p.Address2},
	}
}

func (p PersonalInfo) MissingFields() []string {
	missing := []string{}
	for _, f := range p.requiredFields() {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

func (p PersonalInfo) Validate() error {
	if missing := p.MissingFields(); len(missing) > 0 {
		return myerrors.NewInvalidInputErrorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	digits := PhoneDigits(p.Phone)
	if len(digits) < 10 {
		return myerrors.NewInvalidInputErrorf("phone number must contain at least 10 digits")
	}
	if len(digits) > 15 {
		return myerrors.NewInvalidInputErrorf("phone number must contain at most 15 digits")
	}

	return nil
}

// PhoneDigits strips everything but digits from a phone number
func PhoneDigits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Preferences captures the gift-aid opt-in and the four contact channels
type Preferences struct {
	GiftAid string `json:"gift_aid" form:"giftAid"`
	Email   string `json:"email" form:"email"`
	Phone   string `json:"phone" form:"phone"`
	Post    string `json:"post" form:"post"`
	SMS     string `json:"sms" form:"sms"`
}

// SelectAll is true iff all four contact channels are opted in
func (p Preferences) SelectAll() bool {
	return p.Email == Yes && p.Phone == Yes && p.Post == Yes && p.SMS == Yes
}

// WithAllChannels returns a copy with all four channels set at once
func (p Preferences) WithAllChannels(on bool) Preferences {
	flag := No
	if on {
		flag = Yes
	}
	p.Email = flag
	p.Phone = flag
	p.Post = flag
	p.SMS = flag
	return p
}

func (p Preferences) Validate() error {
	for name, value := range map[string]string{
		"giftAid": p.GiftAid,
		"email":   p.Email,
		"phone":   p.Phone,
		"post":    p.Post,
		"sms":     p.SMS,
	} {
		if value != Yes && value != No {
			return myerrors.NewInvalidInputErrorf("preference %s must be %q or %q", name, Yes, No)
		}
	}
	return nil
}

// Transaction is the body of the checkout submission (step 3)
type Transaction struct {
	AttemptUID string       `form:"attemptUid"`
	Owner      Owner        `form:"owner"`
	Gateway    string       `form:"gateway"`
	Guest      PersonalInfo `form:"guest"`
	Prefs      Preferences  `form:"preferences"`
}

// NewTransactionFromRequest decodes a multipart or url-encoded submission
func NewTransactionFromRequest(r *http.Request) (Transaction, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		err := r.ParseMultipartForm(1 << 20)
		if err != nil {
			return Transaction{}, myerrors.NewInvalidInputError(err)
		}
		return NewTransactionFromValues(url.Values(r.MultipartForm.Value))
	}

	err := r.ParseForm()
	if err != nil {
		return Transaction{}, myerrors.NewInvalidInputError(err)
	}
	return NewTransactionFromValues(r.Form)
}

func NewTransactionFromValues(values url.Values) (Transaction, error) {
	transaction := Transaction{}
	err := formcodec.NewDecoder().Decode(&transaction, values)
	if err != nil {
		return transaction, myerrors.NewInvalidInputError(fmt.Errorf("error decoding form: %s", err))
	}
	return transaction, nil
}
