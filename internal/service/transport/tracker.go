package transport

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/zhouzirui/agora/backend/internal/model/debate"
)

// ErrDebateIDRequired is returned by Open when no debate is named.
var ErrDebateIDRequired = errors.New("debate id is required")

// Callbacks are invoked by a subscription for every delivered event and failure.
type Callbacks struct {
	OnEvent func(debate.Event)
	OnError func(error)
}

// Subscription is a live push feed that can be stopped.
type Subscription interface {
	Close()
}

// Subscriber opens push feeds for a single debate. Retry and backoff are its
// own business; the tracker only reacts to what it reports.
type Subscriber interface {
	Subscribe(ctx context.Context, debateID string, cb Callbacks) (Subscription, error)
}

// Sink receives delivered events and status changes.
type Sink interface {
	AddEvent(debate.Event)
	SetConnectionStatus(debate.ConnectionStatus)
}

// Tracker observes one debate feed at a time and mirrors its connection state
// into the sink.
type Tracker struct {
	mu         sync.Mutex
	sink       Sink
	subscriber Subscriber

	debateID   string
	status     debate.ConnectionStatus
	generation uint64
	delivered  bool
	sub        Subscription
	cancel     context.CancelFunc
}

// NewTracker creates an idle tracker.
func NewTracker(sink Sink, subscriber Subscriber) *Tracker {
	return &Tracker{
		sink:       sink,
		subscriber: subscriber,
		status:     debate.StatusIdle,
	}
}

// Status returns the tracker's current connection status.
func (t *Tracker) Status() debate.ConnectionStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// DebateID returns the debate currently (or last) observed.
func (t *Tracker) DebateID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.debateID
}

// Open starts observing debateID. Any previous feed is stopped first so its
// events cannot leak into the new session. Connection failures are reported
// through the status, not the returned error.
func (t *Tracker) Open(ctx context.Context, debateID string) error {
	debateID = strings.TrimSpace(debateID)
	if debateID == "" {
		return ErrDebateIDRequired
	}

	t.mu.Lock()
	stop := t.detachLocked()
	t.generation++
	gen := t.generation
	t.debateID = debateID
	t.delivered = false
	subCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.setStatusLocked(debate.StatusConnecting)
	t.mu.Unlock()
	stop()

	log.Printf("[transport] connecting debate=%s", debateID)

	sub, err := t.subscriber.Subscribe(subCtx, debateID, Callbacks{
		OnEvent: func(event debate.Event) { t.deliver(gen, event) },
		OnError: func(err error) { t.fail(gen, err) },
	})
	if err != nil {
		t.fail(gen, err)
		return nil
	}

	t.mu.Lock()
	if gen != t.generation {
		// Closed or re-opened while the feed was being established.
		t.mu.Unlock()
		sub.Close()
		return nil
	}
	t.sub = sub
	t.mu.Unlock()
	return nil
}

// Close stops the feed and marks the session closed. Calling it again is a no-op.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.status == debate.StatusClosed || t.status == debate.StatusIdle {
		t.mu.Unlock()
		return
	}
	t.generation++
	stop := t.detachLocked()
	t.setStatusLocked(debate.StatusClosed)
	debateID := t.debateID
	t.mu.Unlock()

	stop()
	log.Printf("[transport] closed debate=%s", debateID)
}

func (t *Tracker) deliver(gen uint64, event debate.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.generation {
		return
	}
	if !t.delivered {
		t.delivered = true
		if t.status == debate.StatusConnecting {
			t.setStatusLocked(debate.StatusOpen)
			log.Printf("[transport] open debate=%s", t.debateID)
		}
	}
	t.sink.AddEvent(event)
}

func (t *Tracker) fail(gen uint64, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.generation {
		return
	}
	t.setStatusLocked(debate.StatusError)
	log.Printf("[transport] error debate=%s: %v", t.debateID, err)
}

// detachLocked forgets the current feed and returns a func that stops it.
// The returned func runs after the lock is released because a subscription
// may be blocked delivering into this tracker.
func (t *Tracker) detachLocked() func() {
	cancel, sub := t.cancel, t.sub
	t.cancel, t.sub = nil, nil
	return func() {
		if cancel != nil {
			cancel()
		}
		if sub != nil {
			sub.Close()
		}
	}
}

func (t *Tracker) setStatusLocked(status debate.ConnectionStatus) {
	t.status = status
	t.sink.SetConnectionStatus(status)
}
