package timeline

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/agora/backend/internal/model/debate"
)

// Layout tells a renderer how to place an entry.
type Layout string

const (
	LayoutSeat    Layout = "seat"
	LayoutScribe  Layout = "scribe"
	LayoutVerdict Layout = "verdict"
	LayoutNotice  Layout = "notice"
	LayoutUnknown Layout = "unknown"
)

// ScribeName labels summaries that arrive without a seat.
const ScribeName = "Scribe"

// Entry is a presentation-neutral line of the debate timeline.
type Entry struct {
	Index   int              `json:"index"`
	Type    debate.EventType `json:"type"`
	Layout  Layout           `json:"layout"`
	Round   int              `json:"round,omitempty"`
	Speaker string           `json:"speaker,omitempty"`
	Stance  string           `json:"stance,omitempty"`
	Text    string           `json:"text"`
}

// Project maps every event to an entry, in log order.
func Project(events []debate.Event) []Entry {
	entries := make([]Entry, 0, len(events))
	for i, event := range events {
		entry := Describe(event)
		entry.Index = i
		entries = append(entries, entry)
	}
	return entries
}

// Describe renders a single event.
func Describe(event debate.Event) Entry {
	switch e := event.(type) {
	case debate.SeatMessage:
		return Entry{
			Type:    e.Type(),
			Layout:  LayoutSeat,
			Round:   e.Round,
			Speaker: e.SeatName,
			Stance:  e.Stance,
			Text:    e.Content,
		}
	case debate.ConversationSummary:
		speaker := e.SeatName
		if speaker == "" {
			speaker = ScribeName
		}
		return Entry{
			Type:    e.Type(),
			Layout:  LayoutScribe,
			Round:   e.Round,
			Speaker: speaker,
			Stance:  e.Stance,
			Text:    e.Content,
		}
	case debate.Score:
		if !e.Valid() {
			return unknown(e.Type())
		}
		return Entry{
			Type:    e.Type(),
			Layout:  LayoutVerdict,
			Speaker: e.Judge,
			Text:    fmt.Sprintf("%s scored %s", e.Persona, formatScore(*e.Score)),
		}
	case debate.Pairwise:
		if !e.Valid() {
			return unknown(e.Type())
		}
		return Entry{
			Type:    e.Type(),
			Layout:  LayoutVerdict,
			Speaker: e.Judge,
			Text:    fmt.Sprintf("%s wins the head-to-head", e.Winner),
		}
	case debate.SystemNotice:
		return Entry{
			Type:    e.Type(),
			Layout:  LayoutNotice,
			Speaker: noticeSource(e),
			Text:    e.Content,
		}
	default:
		kind := debate.EventType("")
		if event != nil {
			kind = event.Type()
		}
		return unknown(kind)
	}
}

func unknown(kind debate.EventType) Entry {
	label := string(kind)
	if label == "" {
		label = "untyped"
	}
	return Entry{
		Type:   kind,
		Layout: LayoutUnknown,
		Text:   fmt.Sprintf("unrecognised %s event", label),
	}
}

func noticeSource(n debate.SystemNotice) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{n.Role, n.Provider, n.Model} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " / ")
}

func formatScore(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}
