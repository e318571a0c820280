package types

import "strings"

// Address is the shipping address snapshot frozen into an order at checkout.
// It is stored as JSONB, never as a reference to a live address record.
type Address struct {
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
	Phone      *string `json:"phone,omitempty"`
}

// Validate reports the missing required fields, empty when complete.
func (a Address) Validate() []string {
	var missing []string
	if strings.TrimSpace(a.Line1) == "" {
		missing = append(missing, "address.line1")
	}
	if strings.TrimSpace(a.City) == "" {
		missing = append(missing, "address.city")
	}
	if strings.TrimSpace(a.State) == "" {
		missing = append(missing, "address.state")
	}
	if strings.TrimSpace(a.PostalCode) == "" {
		missing = append(missing, "address.postal_code")
	}
	if strings.TrimSpace(a.Country) == "" {
		missing = append(missing, "address.country")
	}
	return missing
}
