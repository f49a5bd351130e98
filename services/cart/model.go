package cart

import (
	"time"
)

// CartLine is one pending donation selection prior to payment.
// Ownership is donor XOR session, captured in OwnerUID for querying.
type CartLine struct {
	UID          string     `json:"cart_id"`
	DonorID      string     `json:"donor_id,omitempty"`
	SessionID    string     `json:"session_id,omitempty"`
	OwnerUID     string     `json:"-"`
	CategoryUID  string     `json:"category_uid"`
	ProgramUID   string     `json:"program_uid"`
	ProgramName  string     `json:"program_name"`
	ProgramImage string     `json:"program_image"`
	CountryUID   string     `json:"country_uid,omitempty"`
	// DonationAmount is per unit, in pence
	DonationAmount int64  `json:"donation_amount"`
	PoundAmount    string `json:"pound_amount"`
	Currency       string `json:"currency"`
	Quantity       int    `json:"quantity"`
	// ParticipantRequired is "Y" when every name slot must be filled
	ParticipantRequired string `json:"participant_required"`
	AnimalShare         int    `json:"animal_share"`
	ParticipantNames    []string `json:"participant_names"`
	CreatedAt           time.Time  `json:"created_at"`
	LastModified        *time.Time `json:"last_modified,omitempty"`
}

// SlotCount is the number of participant-name slots for this line
func (l CartLine) SlotCount() int {
	share := l.AnimalShare
	if share < 1 {
		share = 1
	}
	return l.Quantity * share
}

// LineTotal is quantity times the per-unit amount, in pence
func (l CartLine) LineTotal() int64 {
	return l.DonationAmount * int64(l.Quantity)
}
