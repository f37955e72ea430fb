package session

import (
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/zhouzirui/agora/backend/internal/model/debate"
)

// Listener receives the session snapshot produced by each store action.
// Listeners run synchronously and must not call back into the store.
type Listener func(debate.SessionState)

type listenerEntry struct {
	id string
	fn Listener
}

// Store is the single authoritative container for the live debate session.
// All mutation goes through its action methods; reads return copies.
type Store struct {
	mu        sync.RWMutex
	notifyMu  sync.Mutex
	state     debate.SessionState
	listeners []listenerEntry
}

// NewStore returns a store at the idle baseline.
func NewStore() *Store {
	return &Store{state: debate.EmptySession()}
}

// Snapshot returns a consistent view of the current session. The events slice
// is a copy owned by the caller.
func (s *Store) Snapshot() debate.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Events returns a copy of the event log.
func (s *Store) Events() []debate.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]debate.Event(nil), s.state.Events...)
}

// SetActiveDebate sets the subject of the session. Events are kept; callers
// switching debates reset first.
func (s *Store) SetActiveDebate(id *string) {
	s.apply(func(state *debate.SessionState) {
		if id == nil {
			state.ActiveDebateID = nil
			return
		}
		value := *id
		state.ActiveDebateID = &value
	})
}

// SetRound overwrites the advisory round counter.
func (s *Store) SetRound(round int) {
	s.apply(func(state *debate.SessionState) {
		state.CurrentRound = round
	})
}

// SetConnectionStatus overwrites the connection status. Any status may follow any other.
func (s *Store) SetConnectionStatus(status debate.ConnectionStatus) {
	s.apply(func(state *debate.SessionState) {
		state.ConnectionStatus = status
	})
}

// AddEvent appends to the end of the log.
func (s *Store) AddEvent(event debate.Event) {
	s.apply(func(state *debate.SessionState) {
		state.Events = append(state.Events, event)
	})
}

// SetEvents replaces the whole log, e.g. when hydrating from a non-live source.
func (s *Store) SetEvents(events []debate.Event) {
	s.apply(func(state *debate.SessionState) {
		state.Events = append(make([]debate.Event, 0, len(events)), events...)
	})
}

// Reset restores the empty idle baseline.
func (s *Store) Reset() {
	s.apply(func(state *debate.SessionState) {
		*state = debate.EmptySession()
	})
}

// Subscribe registers a listener and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	id := uuid.NewString()

	s.mu.Lock()
	s.listeners = append(s.listeners, listenerEntry{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// apply runs one action atomically and then notifies listeners in action order.
func (s *Store) apply(mutate func(*debate.SessionState)) {
	s.mu.Lock()
	mutate(&s.state)
	if len(s.listeners) == 0 {
		s.mu.Unlock()
		return
	}
	snapshot := s.snapshotLocked()
	listeners := append([]listenerEntry(nil), s.listeners...)

	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	for _, l := range listeners {
		l.fn(snapshot)
	}
}

func (s *Store) snapshotLocked() debate.SessionState {
	snapshot := s.state
	if s.state.ActiveDebateID != nil {
		id := *s.state.ActiveDebateID
		snapshot.ActiveDebateID = &id
	}
	snapshot.Events = slices.Clone(s.state.Events)
	return snapshot
}
