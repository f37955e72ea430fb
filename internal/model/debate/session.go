package debate

// ConnectionStatus is the state of the live transport for the active debate.
type ConnectionStatus string

const (
	StatusIdle       ConnectionStatus = "idle"
	StatusConnecting ConnectionStatus = "connecting"
	StatusOpen       ConnectionStatus = "open"
	StatusError      ConnectionStatus = "error"
	StatusClosed     ConnectionStatus = "closed"
)

// SessionState is a point-in-time view of the live session.
type SessionState struct {
	ActiveDebateID   *string          `json:"activeDebateId"`
	CurrentRound     int              `json:"currentRound"`
	ConnectionStatus ConnectionStatus `json:"connectionStatus"`
	Events           []Event          `json:"events"`
}

// EmptySession returns the idle baseline a session starts from and resets to.
func EmptySession() SessionState {
	return SessionState{
		ConnectionStatus: StatusIdle,
		Events:           []Event{},
	}
}
