package donor

import "time"

// Donor is a registered account holder. Anonymous sessions never get a
// Donor record; they donate as guests.
type Donor struct {
	UID              string     `json:"donor_id"`
	Title            string     `json:"title"`
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	Email            string     `json:"email"`
	Phone            string     `json:"phone"`
	PasswordHash     []byte     `json:"-"`
	DefaultAddressID string     `json:"default_address_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	LastModified     *time.Time `json:"last_modified,omitempty"`
}

// Address is one saved delivery/billing address of a donor
type Address struct {
	UID       string    `json:"address_id"`
	DonorUID  string    `json:"-"`
	Country   string    `json:"country"`
	Postcode  string    `json:"postcode"`
	Address1  string    `json:"address1"`
	Address2  string    `json:"address2"`
	City      string    `json:"city"`
	CreatedAt time.Time `json:"created_at"`
}
