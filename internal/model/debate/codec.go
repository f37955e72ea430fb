package debate

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrInvalidEvent is returned when a payload is not a JSON object at all.
// Payloads that are objects but carry unexpected fields decode to Unknown instead.
var ErrInvalidEvent = errors.New("invalid debate event")

// DecodeEvent decodes a single JSON event, picking the variant from its "type" field.
func DecodeEvent(data []byte) (Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed json", ErrInvalidEvent)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: expected object, got %s", ErrInvalidEvent, root.Type)
	}

	kind := EventType(root.Get("type").String())
	raw := append(json.RawMessage(nil), data...)

	var (
		event Event
		err   error
	)
	switch kind {
	case TypeSeatMessage, TypeMessage:
		var m SeatMessage
		err = json.Unmarshal(data, &m)
		m.Kind = kind
		event = m
	case TypeConversationSummary:
		var s ConversationSummary
		err = json.Unmarshal(data, &s)
		event = s
	case TypeScore:
		var s Score
		err = json.Unmarshal(data, &s)
		event = s
	case TypePairwise:
		var p Pairwise
		err = json.Unmarshal(data, &p)
		event = p
	case TypeSystemNotice:
		var n SystemNotice
		err = json.Unmarshal(data, &n)
		event = n
	default:
		return Unknown{Kind: kind, Raw: raw}, nil
	}

	if err != nil {
		// Field types did not match the declared variant; keep it in the log as-is.
		return Unknown{Kind: kind, Raw: raw}, nil
	}
	return event, nil
}

// DecodeEvents decodes a JSON array of events in order.
func DecodeEvents(data []byte) ([]Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed json", ErrInvalidEvent)
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, fmt.Errorf("%w: expected array, got %s", ErrInvalidEvent, root.Type)
	}

	items := root.Array()
	events := make([]Event, 0, len(items))
	for i, item := range items {
		event, err := DecodeEvent([]byte(item.Raw))
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		events = append(events, event)
	}
	return events, nil
}

func (m SeatMessage) MarshalJSON() ([]byte, error) {
	type wire SeatMessage
	return json.Marshal(struct {
		Type EventType `json:"type"`
		wire
	}{m.Type(), wire(m)})
}

func (s ConversationSummary) MarshalJSON() ([]byte, error) {
	type wire ConversationSummary
	return json.Marshal(struct {
		Type EventType `json:"type"`
		wire
	}{TypeConversationSummary, wire(s)})
}

func (s Score) MarshalJSON() ([]byte, error) {
	type wire Score
	return json.Marshal(struct {
		Type EventType `json:"type"`
		wire
	}{TypeScore, wire(s)})
}

func (p Pairwise) MarshalJSON() ([]byte, error) {
	type wire Pairwise
	return json.Marshal(struct {
		Type EventType `json:"type"`
		wire
	}{TypePairwise, wire(p)})
}

func (n SystemNotice) MarshalJSON() ([]byte, error) {
	type wire SystemNotice
	return json.Marshal(struct {
		Type EventType `json:"type"`
		wire
	}{TypeSystemNotice, wire(n)})
}

func (u Unknown) MarshalJSON() ([]byte, error) {
	if len(u.Raw) > 0 {
		return u.Raw, nil
	}
	return json.Marshal(map[string]EventType{"type": u.Kind})
}
