package selection

import "time"

const (
	StageCategory = "category"
	StageProgram  = "program"
	StageCountry  = "country"
	StageAmount   = "amount"
)

// State is the per-owner position in the guided selection flow. The stage
// pointer only moves forward; confirming an amount resets it.
type State struct {
	OwnerUID     string    `json:"-"`
	DonorID      string    `json:"donor_id,omitempty"`
	SessionID    string    `json:"session_id,omitempty"`
	Stage        string    `json:"stage"`
	CategoryUID  string    `json:"category_uid,omitempty"`
	ProgramUID   string    `json:"program_uid,omitempty"`
	CountryUID   string    `json:"country_uid,omitempty"`
	LastModified time.Time `json:"last_modified"`
}
