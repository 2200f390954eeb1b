// Package domain holds the value types shared by the registration client,
// the session controller and the development backend.
package domain

// Country is an entry of the country list served by GET /countries.
type Country struct {
	Code string `json:"code" yaml:"code"`
	Name string `json:"name" yaml:"name"`
}

// Registration is a stored username/country pair.
// ID is assigned by the backend and may be empty on the client side.
type Registration struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username"`
	Country  string `json:"country"`
}

// RegisterRequest is the POST /register body.
type RegisterRequest struct {
	Username string `json:"username"`
	Country  string `json:"country"`
}

// AvailabilityResult is derived client-side from the registration list.
type AvailabilityResult struct {
	Available bool `json:"available"`
}

// Availability is the tri-state shown next to the username field.
type Availability int

const (
	// AvailabilityUnknown means no check has completed for the current username.
	AvailabilityUnknown Availability = iota
	AvailabilityAvailable
	AvailabilityTaken
)

func (a Availability) String() string {
	switch a {
	case AvailabilityAvailable:
		return "available"
	case AvailabilityTaken:
		return "taken"
	default:
		return "unknown"
	}
}

// AvailabilityFrom maps a check result onto the tri-state.
func AvailabilityFrom(r AvailabilityResult) Availability {
	if r.Available {
		return AvailabilityAvailable
	}
	return AvailabilityTaken
}

// FindUsername returns the registration whose username equals username exactly.
func FindUsername(regs []Registration, username string) (Registration, bool) {
	for _, r := range regs {
		if r.Username == username {
			return r, true
		}
	}
	return Registration{}, false
}
