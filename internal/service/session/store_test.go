package session_test

import (
	"sync"
	"testing"

	"github.com/zhouzirui/agora/backend/internal/model/debate"
	"github.com/zhouzirui/agora/backend/internal/service/session"
)

func strPtr(v string) *string { return &v }

func TestStoreStartsIdle(t *testing.T) {
	store := session.NewStore()
	state := store.Snapshot()

	if state.ActiveDebateID != nil {
		t.Fatalf("expected no active debate, got %q", *state.ActiveDebateID)
	}
	if state.ConnectionStatus != debate.StatusIdle {
		t.Fatalf("expected idle status, got %s", state.ConnectionStatus)
	}
	if len(state.Events) != 0 || state.CurrentRound != 0 {
		t.Fatalf("expected empty session, got %+v", state)
	}
}

func TestStoreAddEventAppendsInOrder(t *testing.T) {
	store := session.NewStore()
	store.AddEvent(debate.SeatMessage{Round: 1, SeatName: "Pro", Content: "first"})
	store.AddEvent(debate.SeatMessage{Round: 1, SeatName: "Con", Content: "second"})
	store.AddEvent(debate.SeatMessage{Round: 1, SeatName: "Pro", Content: "first"})

	events := store.Snapshot().Events
	if len(events) != 3 {
		t.Fatalf("expected duplicates to be kept, got %d events", len(events))
	}
	if events[1].(debate.SeatMessage).Content != "second" {
		t.Fatalf("expected arrival order to be kept")
	}
}

func TestStoreSetActiveDebateKeepsEvents(t *testing.T) {
	store := session.NewStore()
	store.AddEvent(debate.SystemNotice{Content: "warmup"})
	store.SetActiveDebate(strPtr("debate-1"))

	state := store.Snapshot()
	if state.ActiveDebateID == nil || *state.ActiveDebateID != "debate-1" {
		t.Fatalf("expected active debate debate-1, got %v", state.ActiveDebateID)
	}
	if len(state.Events) != 1 {
		t.Fatalf("expected events to be kept, got %d", len(state.Events))
	}

	store.SetActiveDebate(nil)
	if store.Snapshot().ActiveDebateID != nil {
		t.Fatal("expected active debate to be cleared")
	}
}

func TestStoreSetRoundOverwrites(t *testing.T) {
	store := session.NewStore()
	store.SetRound(3)
	store.SetRound(2)

	if got := store.Snapshot().CurrentRound; got != 2 {
		t.Fatalf("expected round 2, got %d", got)
	}
}

func TestStoreStatusHasNoTransitionTable(t *testing.T) {
	store := session.NewStore()
	for _, status := range []debate.ConnectionStatus{
		debate.StatusClosed, debate.StatusOpen, debate.StatusIdle, debate.StatusError, debate.StatusConnecting,
	} {
		store.SetConnectionStatus(status)
		if got := store.Snapshot().ConnectionStatus; got != status {
			t.Fatalf("expected %s, got %s", status, got)
		}
	}
}

func TestStoreSetEventsReplaces(t *testing.T) {
	store := session.NewStore()
	store.AddEvent(debate.SystemNotice{Content: "live"})

	replacement := []debate.Event{
		debate.SeatMessage{Content: "a"},
		debate.SeatMessage{Content: "b"},
	}
	store.SetEvents(replacement)
	replacement[0] = debate.SystemNotice{Content: "mutated"}

	events := store.Snapshot().Events
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if _, ok := events[0].(debate.SeatMessage); !ok {
		t.Fatalf("expected store to own its copy, got %T", events[0])
	}
}

func TestStoreReset(t *testing.T) {
	store := session.NewStore()
	store.SetActiveDebate(strPtr("debate-1"))
	store.SetRound(4)
	store.SetConnectionStatus(debate.StatusOpen)
	store.AddEvent(debate.SystemNotice{Content: "x"})

	store.Reset()

	state := store.Snapshot()
	if len(state.Events) != 0 {
		t.Fatalf("expected no events, got %d", len(state.Events))
	}
	if state.ConnectionStatus != debate.StatusIdle {
		t.Fatalf("expected idle, got %s", state.ConnectionStatus)
	}
	if state.ActiveDebateID != nil {
		t.Fatal("expected no active debate")
	}
	if state.CurrentRound != 0 {
		t.Fatalf("expected round 0, got %d", state.CurrentRound)
	}
}

func TestStoreSnapshotIsIsolated(t *testing.T) {
	store := session.NewStore()
	store.AddEvent(debate.SystemNotice{Content: "one"})

	snapshot := store.Snapshot()
	_ = append(snapshot.Events, debate.SystemNotice{Content: "injected"})
	store.AddEvent(debate.SystemNotice{Content: "two"})

	events := store.Snapshot().Events
	if events[1].(debate.SystemNotice).Content != "two" {
		t.Fatalf("expected caller append not to leak into the store")
	}
	if len(snapshot.Events) != 1 {
		t.Fatalf("expected earlier snapshot to stay at 1 event, got %d", len(snapshot.Events))
	}

	snapshot.Events[0] = debate.SystemNotice{Content: "overwritten"}
	if got := store.Snapshot().Events[0].(debate.SystemNotice).Content; got != "one" {
		t.Fatalf("expected caller writes not to reach the store, got %q", got)
	}
}

func TestStoreListenersSeeEveryAction(t *testing.T) {
	store := session.NewStore()

	var seen []int
	unsubscribe := store.Subscribe(func(state debate.SessionState) {
		seen = append(seen, len(state.Events))
	})

	store.AddEvent(debate.SystemNotice{Content: "a"})
	store.AddEvent(debate.SystemNotice{Content: "b"})
	store.Reset()
	unsubscribe()
	unsubscribe()
	store.AddEvent(debate.SystemNotice{Content: "c"})

	want := []int{1, 2, 0}
	if len(seen) != len(want) {
		t.Fatalf("expected %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, seen)
		}
	}
}

func TestStoreConcurrentAppends(t *testing.T) {
	store := session.NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.AddEvent(debate.SystemNotice{Content: "tick"})
			_ = store.Snapshot()
		}()
	}
	wg.Wait()

	if got := len(store.Events()); got != 50 {
		t.Fatalf("expected 50 events, got %d", got)
	}
}
