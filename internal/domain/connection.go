package domain

// ConnectionState is the realtime connection lifecycle state. It is owned
// exclusively by the connection manager and mutated only by its internal
// event handlers.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	Reconnecting
	Failed
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// ConnectionStatus is an observable snapshot of the connection.
type ConnectionStatus struct {
	State     ConnectionState `json:"state"`
	LastError error           `json:"-"`
	Attempts  int             `json:"attempts"`
	SessionID string          `json:"session_id,omitempty"` // present only while Connected
}
