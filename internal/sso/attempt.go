package sso

import "github.com/spec-kit/helpdesk-service/internal/domain"

// AttemptState is the outcome of one login attempt against one endpoint.
// Every attempt starts Unreached and ends in exactly one of the other states.
type AttemptState int

const (
	AttemptUnreached AttemptState = iota
	// AttemptAccepted: the provider confirmed the credentials.
	AttemptAccepted
	// AttemptRejected: the provider explicitly refused the credentials.
	AttemptRejected
	// AttemptUnreachable: no verdict could be obtained from the provider.
	AttemptUnreachable
)

func (s AttemptState) String() string {
	switch s {
	case AttemptAccepted:
		return "accepted"
	case AttemptRejected:
		return "rejected"
	case AttemptUnreachable:
		return "unreachable"
	default:
		return "unreached"
	}
}

// Attempt records a single provider round trip.
type Attempt struct {
	Endpoint string
	State    AttemptState
	// Identity is set when State is AttemptAccepted.
	Identity domain.Identity
	// Message is the provider's own wording, if any.
	Message string
	// Err is the transport or protocol failure behind AttemptUnreachable.
	Err error
}

// Final reports whether the attempt ends the login sequence. Only an
// unreachable provider lets the gateway move on to the next one.
func (a Attempt) Final() bool {
	return a.State == AttemptAccepted || a.State == AttemptRejected
}
