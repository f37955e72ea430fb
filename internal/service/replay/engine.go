// Package replay plays back the event list of a completed debate: an index
// pointer that the user can seek, and an auto-advance timer while playing.
package replay

import (
	"context"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/zhouzirui/agora/backend/internal/model/debate"
)

// DefaultPeriod is the auto-advance interval.
const DefaultPeriod = 1200 * time.Millisecond

// NotStarted is the index of an engine created with WithScrubFromStart before
// its first step.
const NotStarted = -1

// LoadStatus is the read state of the engine's data.
type LoadStatus string

const (
	LoadIdle    LoadStatus = "idle"
	LoadLoading LoadStatus = "loading"
	LoadReady   LoadStatus = "ready"
	LoadError   LoadStatus = "error"
)

// Fetcher loads the full event list of a finished debate.
type Fetcher interface {
	FetchEvents(ctx context.Context, debateID string) ([]debate.Event, error)
}

// State is a snapshot of the engine.
type State struct {
	DebateID string         `json:"debateId,omitempty"`
	Events   []debate.Event `json:"events"`
	Index    int            `json:"index"`
	Playing  bool           `json:"playing"`
	Status   LoadStatus     `json:"status"`
	Error    string         `json:"error,omitempty"`
}

// Current returns the event at Index, if any.
func (s State) Current() (debate.Event, bool) {
	if s.Index < 0 || s.Index >= len(s.Events) {
		return nil, false
	}
	return s.Events[s.Index], true
}

// Option configures an Engine.
type Option func(*Engine)

// WithPeriod overrides the auto-advance interval.
func WithPeriod(period time.Duration) Option {
	return func(e *Engine) {
		if period > 0 {
			e.period = period
		}
	}
}

// WithScheduler replaces the wall-clock ticker, mainly for tests.
func WithScheduler(s Scheduler) Option {
	return func(e *Engine) {
		if s != nil {
			e.scheduler = s
		}
	}
}

// WithScrubFromStart starts the index at NotStarted so the first tick shows
// the first event.
func WithScrubFromStart() Option {
	return func(e *Engine) {
		e.startIndex = NotStarted
	}
}

type changeListener struct {
	id uint64
	fn func(State)
}

// Engine is a playback controller over a fixed event list. At the last index
// it stays playing and holds; a longer list loaded later resumes advancing.
type Engine struct {
	mu       sync.Mutex
	notifyMu sync.Mutex

	period     time.Duration
	scheduler  Scheduler
	startIndex int

	debateID string
	events   []debate.Event
	index    int
	playing  bool
	status   LoadStatus
	loadErr  error

	stopTimer  func()
	cancelLoad context.CancelFunc
	timerGen   uint64
	loadGen    uint64
	closed     bool

	listeners []changeListener
	nextID    uint64
	done      chan struct{}
}

// New creates a paused engine with no events.
func New(opts ...Option) *Engine {
	e := &Engine{
		period:    DefaultPeriod,
		scheduler: TickerScheduler{},
		status:    LoadIdle,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.index = e.startIndex
	return e
}

// State returns a snapshot. The events slice is a copy owned by the caller.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

// Load fetches the events of debateID and replaces the current list. The
// engine never retries; a failure leaves it in LoadError with no events.
// Close or a newer Load cancels the fetch and its result is discarded.
func (e *Engine) Load(ctx context.Context, fetcher Fetcher, debateID string) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.abortLoadLocked()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.cancelLoad = cancel
	gen := e.loadGen
	e.debateID = debateID
	e.status = LoadLoading
	e.loadErr = nil
	e.publishLocked()

	events, err := fetcher.FetchEvents(ctx, debateID)

	e.mu.Lock()
	if e.closed || gen != e.loadGen {
		e.mu.Unlock()
		log.Printf("[replay] discarding stale load debate=%s", debateID)
		return nil
	}
	if err != nil {
		e.events = nil
		e.index = e.startIndex
		e.haltLocked()
		e.status = LoadError
		e.loadErr = err
		e.publishLocked()
		log.Printf("[replay] load failed debate=%s: %v", debateID, err)
		return err
	}
	e.replaceLocked(events)
	e.publishLocked()
	log.Printf("[replay] loaded debate=%s events=%d", debateID, len(events))
	return nil
}

// SetEvents replaces the list directly, re-clamping the index if it shrank.
func (e *Engine) SetEvents(events []debate.Event) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.abortLoadLocked()
	e.replaceLocked(events)
	e.publishLocked()
}

// SetIndex seeks to i, clamped to the list. It does nothing on an empty list.
func (e *Engine) SetIndex(i int) {
	e.mu.Lock()
	if e.closed || len(e.events) == 0 {
		e.mu.Unlock()
		return
	}
	e.index = clamp(i, len(e.events))
	e.publishLocked()
}

// Play starts auto-advancing. It is a no-op on an empty list.
func (e *Engine) Play() {
	e.mu.Lock()
	if e.closed || len(e.events) == 0 || e.playing {
		e.mu.Unlock()
		return
	}
	e.playing = true
	e.startTimerLocked()
	e.publishLocked()
}

// Pause stops auto-advancing.
func (e *Engine) Pause() {
	e.mu.Lock()
	if e.closed || !e.playing {
		e.mu.Unlock()
		return
	}
	e.haltLocked()
	e.publishLocked()
}

// RestartFromBeginning seeks to the first event and plays.
func (e *Engine) RestartFromBeginning() {
	e.SetIndex(0)
	e.Play()
}

// OnChange registers fn to receive every new state; the returned func removes it.
// fn must not call back into the engine.
func (e *Engine) OnChange(fn func(State)) (remove func()) {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.listeners = append(e.listeners, changeListener{id: id, fn: fn})
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, l := range e.listeners {
			if l.id == id {
				e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

// Close tears the engine down: the timer stops, pending loads are ignored and
// later calls are no-ops.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.abortLoadLocked()
	e.haltLocked()
	e.listeners = nil
	close(e.done)
}

// Done is closed once the engine has been closed.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

func (e *Engine) tick(gen uint64) {
	e.mu.Lock()
	if e.closed || !e.playing || gen != e.timerGen {
		e.mu.Unlock()
		return
	}
	if e.index >= len(e.events)-1 {
		// Hold at the end; stay playing.
		e.mu.Unlock()
		return
	}
	e.index++
	e.publishLocked()
}

func (e *Engine) replaceLocked(events []debate.Event) {
	e.events = append(make([]debate.Event, 0, len(events)), events...)
	e.status = LoadReady
	e.loadErr = nil

	switch {
	case len(e.events) == 0:
		e.index = e.startIndex
		e.haltLocked()
	case e.index > len(e.events)-1:
		e.index = len(e.events) - 1
	}
}

// abortLoadLocked invalidates any in-flight Load.
func (e *Engine) abortLoadLocked() {
	e.loadGen++
	if e.cancelLoad != nil {
		e.cancelLoad()
		e.cancelLoad = nil
	}
}

func (e *Engine) startTimerLocked() {
	e.timerGen++
	gen := e.timerGen
	e.stopTimer = e.scheduler.Every(e.period, func() { e.tick(gen) })
}

func (e *Engine) haltLocked() {
	e.playing = false
	e.timerGen++
	if e.stopTimer != nil {
		e.stopTimer()
		e.stopTimer = nil
	}
}

// publishLocked releases e.mu and delivers the new state to listeners in
// the order changes were made.
func (e *Engine) publishLocked() {
	if len(e.listeners) == 0 {
		e.mu.Unlock()
		return
	}
	state := e.stateLocked()
	listeners := append([]changeListener(nil), e.listeners...)

	e.notifyMu.Lock()
	e.mu.Unlock()
	defer e.notifyMu.Unlock()

	for _, l := range listeners {
		l.fn(state)
	}
}

func (e *Engine) stateLocked() State {
	state := State{
		DebateID: e.debateID,
		Events:   slices.Clone(e.events),
		Index:    e.index,
		Playing:  e.playing,
		Status:   e.status,
	}
	if state.Events == nil {
		state.Events = []debate.Event{}
	}
	if e.loadErr != nil {
		state.Error = e.loadErr.Error()
	}
	return state
}

func clamp(i, length int) int {
	if i < 0 {
		return 0
	}
	if i > length-1 {
		return length - 1
	}
	return i
}
