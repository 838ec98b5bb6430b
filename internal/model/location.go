package model

import "time"

// Location is a normalized point of interest discovered through the
// places search. ExternalID is the upstream system's stable identifier
// and the conflict key for upserts; re-ingesting the same identifier
// overwrites every other field.
type Location struct {
	ExternalID  string    `json:"external_id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Address     string    `json:"address"`
	City        string    `json:"city"`
	County      string    `json:"county"`
	State       string    `json:"state"`
	CountryCode string    `json:"country_code"`
	PostalCode  string    `json:"postal_code"`
	IsOpen      bool      `json:"is_open"`
	Lat         float64   `json:"lat"`
	Long        float64   `json:"long"`
	WebsiteURI  string    `json:"website_uri"`
	FirstSeenAt time.Time `json:"first_seen_at"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}
