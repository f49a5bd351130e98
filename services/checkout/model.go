package checkout

import "time"

const (
	StatusOpen            = "open"
	StatusAwaitingPayment = "awaiting_payment"
	StatusCompleted       = "completed"
	StatusExpired         = "expired"
)

const (
	stepParticipants = 1
	stepPreferences  = 2
	stepPayment      = 3
)

// Attempt is one pass through the three-step checkout wizard. Once the
// donor submits, the attempt freezes and only payment confirmation or the
// reconciliation job move it further.
type Attempt struct {
	UID              string     `json:"attempt_uid"`
	DonorID          string     `json:"donor_id,omitempty"`
	SessionID        string     `json:"session_id,omitempty"`
	OwnerUID         string     `json:"-"`
	Step             int        `json:"step"`
	Status           string     `json:"status"`
	ReferenceNo      string     `json:"reference_no,omitempty"`
	Submitted        string     `json:"submitted"`
	OnBehalfOfMyself string     `json:"on_behalf_of_myself"`
	CreatedAt        time.Time  `json:"created_at"`
	LastModified     *time.Time `json:"last_modified,omitempty"`
}

func (a Attempt) IsSubmitted() bool {
	return a.Submitted == "Y"
}

// preferencesKey is where the wizard parks step-2 answers, with a rolling
// 24h deadline
func preferencesKey(attemptUID string) string {
	return "prefs-" + attemptUID
}
