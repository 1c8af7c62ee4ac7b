package device

// State is the device lifecycle phase. Transitions only move forward:
// INIT -> CONNECTING -> RUNNING -> STOPPING -> TERMINATED, with RUNNING
// able to fall into STOPPING from either a signal, a control command, or a
// fatal error.
type State int32

const (
	StateInit State = iota
	StateConnecting
	StateRunning
	StateStopping
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateConnecting:
		return "CONNECTING"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}
