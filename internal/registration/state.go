package registration

import (
	"github.com/zjrosen/regform/internal/domain"
)

// Phase is the submit state machine position.
//
//	Idle -> Validating -> Submitting -> Idle
//	           |
//	           +-> Idle (form invalid)
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseSubmitting
)

func (p Phase) String() string {
	switch p {
	case PhaseValidating:
		return "validating"
	case PhaseSubmitting:
		return "submitting"
	default:
		return "idle"
	}
}

// Outcome records how the last submit attempt ended.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSuccess
	OutcomeFailure
	OutcomeRejected // form was invalid, nothing was sent
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeRejected:
		return "rejected"
	default:
		return "none"
	}
}

// FailureMessage is shown when the backend refuses or cannot be reached.
const FailureMessage = "Registration failed. Please try again."

// State is an immutable snapshot of the session, published after every change.
type State struct {
	Username string
	Country  string

	// FieldErrors holds the visible error text per field. Fields that were
	// never interacted with are absent even when invalid.
	FieldErrors map[string]string
	Valid       bool

	Availability domain.Availability
	Checking     bool
	Generation   uint64

	Countries []domain.Country
	// CountriesLoaded is set once a fetch has finished, successfully or not.
	CountriesLoaded bool

	Phase        Phase
	Outcome      Outcome
	Registered   domain.Registration // set on OutcomeSuccess
	ErrorMessage string
}

// FieldError returns the visible error text for field, or "".
func (s State) FieldError(field string) string {
	return s.FieldErrors[field]
}

// Submitting reports whether a registration request is in flight.
func (s State) Submitting() bool {
	return s.Phase == PhaseSubmitting
}
