// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Shared vocabulary between the reactor, the worker pool and request handlers:
// readiness interest, connection role and lifecycle, and the action a handler
// hands back to the reactor once it is done with a connection.

package api

// Interest selects the readiness a registration waits for.
type Interest uint8

const (
	InterestRead Interest = 1 << iota
	InterestWrite
)

func (i Interest) String() string {
	switch i {
	case InterestRead:
		return "read"
	case InterestWrite:
		return "write"
	case InterestRead | InterestWrite:
		return "read|write"
	default:
		return "none"
	}
}

// Readiness is the decoded event mask delivered by a poller.
type Readiness uint8

const (
	ReadyRead Readiness = 1 << iota
	ReadyWrite
	ReadyHangup
	ReadyError
)

// Closing reports whether the peer hung up or the socket failed.
func (r Readiness) Closing() bool {
	return r&(ReadyHangup|ReadyError) != 0
}

// Role tags a registration so dispatch never compares raw descriptors.
type Role uint8

const (
	RoleClient Role = iota
	RoleListener
)

func (r Role) String() string {
	if r == RoleListener {
		return "listener"
	}
	return "client"
}

// ConnState is the lifecycle of a connection inside the reactor.
type ConnState int32

const (
	StateRegistered ConnState = iota
	StateDispatched
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateDispatched:
		return "dispatched"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// NextAction is returned by a request handler and applied to the registration.
type NextAction uint8

const (
	ActionRearmRead NextAction = iota
	ActionSwitchToWrite
	ActionClose
)

func (a NextAction) String() string {
	switch a {
	case ActionRearmRead:
		return "rearm-read"
	case ActionSwitchToWrite:
		return "switch-to-write"
	default:
		return "close"
	}
}

// OverflowPolicy decides what the reactor does when the task queue rejects a submission.
type OverflowPolicy uint8

const (
	// OverflowReject answers 503 and closes the connection.
	OverflowReject OverflowPolicy = iota
	// OverflowRetry re-arms the registration so the event is delivered again.
	OverflowRetry
)

func (p OverflowPolicy) String() string {
	if p == OverflowRetry {
		return "retry"
	}
	return "reject"
}

// ParseOverflowPolicy maps "reject" or "retry" to a policy.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch s {
	case "reject", "":
		return OverflowReject, nil
	case "retry":
		return OverflowRetry, nil
	}
	return OverflowReject, ErrInvalidArgument
}
