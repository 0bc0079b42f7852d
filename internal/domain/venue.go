package domain

import "errors"

// Classification status of a persisted venue.
const (
	StatusConfirmed = "confirmed"
	StatusUncertain = "uncertain"
)

var (
	ErrNotFound    = errors.New("venue not found")
	ErrRunInFlight = errors.New("run already in flight for location")
)

// Candidate is a venue discovered in one maps pass, not yet persisted.
// Name is the identity key together with the location query.
type Candidate struct {
	Name    string
	Address *string
	Rating  *float64
	Reviews *int
	Website *string // sometimes already present on the maps card
}

// VenueRecord is the persisted, classified result of one enrichment pass.
type VenueRecord struct {
	ID            int64
	Name          string
	LocationQuery string
	Address       *string
	Rating        *float64
	Reviews       *int
	Website       *string
	Instagram     *string
	Status        string
	StepLog       []string
}

// SocialProfile is the minimal signal the verifier extracts from a live
// profile page. Followers/verified stay placeholders without authentication.
type SocialProfile struct {
	Username  string
	Bio       string
	Verified  bool
	Followers int
}

// Classify derives the confidence label: a social link plus any
// corroborating signal (website or rating) is confirmed, everything else
// uncertain. No social link is always uncertain.
func Classify(instagram string, website string, rating *float64) string {
	if instagram != "" && (website != "" || rating != nil) {
		return StatusConfirmed
	}
	return StatusUncertain
}
