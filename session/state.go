package session

import "fmt"

// Phase enumerates connection lifecycle phases.
type Phase int

const (
	PhaseDisconnected Phase = iota
	PhaseConnecting
	PhaseConnected
	PhaseError
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	case PhaseError:
		return "error"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ConnectionState is the externally observable connection state. Exactly one
// value is current at any time; only the session mutates it.
//
// PhaseConnected covers two lifecycle milestones: link establishment
// (Ready=false) and service-discovery completion (Ready=true). I/O becomes
// possible only once Ready is true.
type ConnectionState struct {
	Phase Phase
	// Ready reports that service discovery completed and the link accepts
	// I/O. Meaningful only when Phase is PhaseConnected.
	Ready bool
	// Err holds the failure description when Phase is PhaseError.
	Err string
}

// String implements fmt.Stringer.
func (s ConnectionState) String() string {
	switch s.Phase {
	case PhaseConnected:
		if s.Ready {
			return "connected (ready)"
		}
		return "connected"
	case PhaseError:
		return "error: " + s.Err
	default:
		return s.Phase.String()
	}
}

// StateDisconnected returns the initial and terminal-reentrant state.
func StateDisconnected() ConnectionState {
	return ConnectionState{Phase: PhaseDisconnected}
}

// StateConnecting returns the state published while a connect request is in
// flight.
func StateConnecting() ConnectionState {
	return ConnectionState{Phase: PhaseConnecting}
}

// StateConnected returns the connected state with the given readiness.
func StateConnected(ready bool) ConnectionState {
	return ConnectionState{Phase: PhaseConnected, Ready: ready}
}

// StateError returns an error state with the given description.
func StateError(format string, args ...interface{}) ConnectionState {
	return ConnectionState{Phase: PhaseError, Err: fmt.Sprintf(format, args...)}
}
