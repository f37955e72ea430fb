package debate

import "encoding/json"

// EventType is the discriminator carried in the "type" field of every debate event.
type EventType string

const (
	TypeSeatMessage         EventType = "seat_message"
	TypeMessage             EventType = "message"
	TypeConversationSummary EventType = "conversation_summary"
	TypeScore               EventType = "score"
	TypePairwise            EventType = "pairwise"
	TypeSystemNotice        EventType = "system_notice"
)

// Event is one entry of a debate's event log. The concrete value is one of
// SeatMessage, ConversationSummary, Score, Pairwise, SystemNotice or Unknown.
type Event interface {
	Type() EventType
}

// SeatMessage is a turn spoken by a debate seat. Both "seat_message" and the
// older "message" discriminator decode into it.
type SeatMessage struct {
	Kind     EventType `json:"-"`
	Round    int       `json:"round"`
	SeatName string    `json:"seat_name"`
	Content  string    `json:"content"`
	Stance   string    `json:"stance,omitempty"`
}

func (m SeatMessage) Type() EventType {
	if m.Kind == TypeMessage {
		return TypeMessage
	}
	return TypeSeatMessage
}

// ConversationSummary is a scribe note summarising the debate so far.
type ConversationSummary struct {
	Round    int    `json:"round"`
	SeatName string `json:"seat_name,omitempty"`
	Content  string `json:"content"`
	Stance   string `json:"stance,omitempty"`
}

func (ConversationSummary) Type() EventType { return TypeConversationSummary }

// Score is an individual judge's numeric verdict on a persona.
// Score stays nil when the producer omitted it.
type Score struct {
	Persona string    `json:"persona"`
	Judge   string    `json:"judge"`
	Score   *float64  `json:"score"`
	At      Timestamp `json:"at"`
}

func (Score) Type() EventType { return TypeScore }

// Valid reports whether the event carries the fields needed for voting.
func (s Score) Valid() bool {
	return s.Persona != "" && s.Judge != "" && s.Score != nil
}

// Pairwise is a head-to-head comparison naming a single winner.
type Pairwise struct {
	Winner string    `json:"winner"`
	Judge  string    `json:"judge,omitempty"`
	At     Timestamp `json:"at"`
}

func (Pairwise) Type() EventType { return TypePairwise }

// Valid reports whether the event names a winner.
func (p Pairwise) Valid() bool {
	return p.Winner != ""
}

// SystemNotice is an out-of-band operational message such as a retry or a
// degraded provider route.
type SystemNotice struct {
	Content  string `json:"content"`
	Role     string `json:"role,omitempty"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

func (SystemNotice) Type() EventType { return TypeSystemNotice }

// Unknown keeps events whose type is not recognised, or whose fields could not
// be decoded into the declared variant, so they stay visible in the timeline.
type Unknown struct {
	Kind EventType
	Raw  json.RawMessage
}

func (u Unknown) Type() EventType { return u.Kind }
