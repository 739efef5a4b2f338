package session

// State is the lifecycle state of a Session.
type State int

// Session states. Unavailable is terminal.
const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateVoting
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateVoting:
		return "voting"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
