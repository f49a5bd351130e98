package catalog

type Category struct {
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

type Program struct {
	UID         string `json:"uid"`
	CategoryUID string `json:"category_uid"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	// HasCountries tells the selection flow whether the country stage applies
	HasCountries bool `json:"has_countries"`
	// ParticipantRequired marks programs that need a name per sponsored slot
	ParticipantRequired string `json:"participant_required"`
	// AnimalShare is the number of name slots per unit of quantity
	AnimalShare int `json:"animal_share"`
	// RecommendedAmounts are the predefined amounts in pence
	RecommendedAmounts []int64 `json:"recommended_amounts"`
	// AnyAmount permits a custom amount next to the predefined ones
	AnyAmount bool `json:"any_amount"`
}

type Country struct {
	UID        string `json:"uid"`
	ProgramUID string `json:"program_uid"`
	Name       string `json:"name"`
}
