package payment

import (
	"time"

	"github.com/samadsayyed/donation-portal-sub000/services/donationapi"
)

const (
	MethodStripe = "STRIPE"
	MethodPayPal = "PAYPAL"

	StatusCompleted = "Completed"
)

// PaymentReference correlates one checkout attempt with the gateway round
// trip. A reference is single use: once a donation record exists against
// it, replays are rejected.
type PaymentReference struct {
	Reference  string     `json:"reference_no"`
	AttemptUID string     `json:"attempt_uid"`
	DonorID    string     `json:"donor_id,omitempty"`
	SessionID  string     `json:"session_id,omitempty"`
	OwnerUID   string     `json:"-"`
	Consumed   bool       `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	ConsumedAt *time.Time `json:"-"`
}

// TransactionRecord captures what the donor submitted at checkout step 3,
// keyed by reference so a retried submit overwrites rather than duplicates.
type TransactionRecord struct {
	ReferenceNo   string                   `json:"reference_no"`
	AttemptUID    string                   `json:"attempt_uid"`
	DonorID       string                   `json:"donor_id,omitempty"`
	SessionID     string                   `json:"session_id,omitempty"`
	OwnerUID      string                   `json:"-"`
	Guest         donationapi.PersonalInfo `json:"guest"`
	Prefs         donationapi.Preferences  `json:"preferences"`
	AmountInPence int64                    `json:"amount_in_pence"`
	Currency      string                   `json:"currency"`
	Gateway       string                   `json:"gateway"`
	CreatedAt     time.Time                `json:"created_at"`
}

// DonationRecord is the terminal record of a confirmed donation.
type DonationRecord struct {
	UID           string    `json:"donation_id"`
	TransactionID string    `json:"transaction_id"`
	ReferenceNo   string    `json:"reference_no"`
	DonorID       string    `json:"donor_id,omitempty"`
	SessionID     string    `json:"session_id,omitempty"`
	OwnerUID      string    `json:"-"`
	AmountInPence int64     `json:"amount_in_pence"`
	Currency      string    `json:"currency"`
	Status        string    `json:"status"`
	Method        string    `json:"method"`
	CoveredFee    string    `json:"covered_fee"`
	CreatedAt     time.Time `json:"created_at"`
}

// SuccessSnapshot is what the thank-you page shows. The checkout flow
// stores it when the donor submits; the success endpoint serves it from
// the opaque payload.
type SuccessSnapshot struct {
	ReferenceNo string         `json:"reference_no"`
	FirstName   string         `json:"first_name"`
	Lines       []SnapshotLine `json:"lines"`
}

// SnapshotLine carries the per-line sum of amount times quantity.
type SnapshotLine struct {
	ProgramName   string `json:"program_name"`
	AmountInPence int64  `json:"amount_in_pence"`
}

// SnapshotKey is where the checkout flow parks the success snapshot for a
// reference, pending payment confirmation.
func SnapshotKey(referenceNo string) string {
	return "snapshot-" + referenceNo
}
