package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/zhouzirui/agora/backend/internal/model/debate"
	"github.com/zhouzirui/agora/backend/internal/service/transport"
)

type recorder struct {
	events chan debate.Event
	errs   chan error
}

func newRecorder() *recorder {
	return &recorder{events: make(chan debate.Event, 16), errs: make(chan error, 4)}
}

func (r *recorder) callbacks() transport.Callbacks {
	return transport.Callbacks{
		OnEvent: func(e debate.Event) { r.events <- e },
		OnError: func(err error) { r.errs <- err },
	}
}

func (r *recorder) nextEvent(t *testing.T) debate.Event {
	t.Helper()
	select {
	case e := <-r.events:
		return e
	case err := <-r.errs:
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return nil
}

func (r *recorder) nextError(t *testing.T) error {
	t.Helper()
	select {
	case err := <-r.errs:
		return err
	case e := <-r.events:
		t.Fatalf("unexpected event %T", e)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error")
	}
	return nil
}

func TestSSESubscriberDeliversFrames(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/debates/debate-1/stream" {
			http.NotFound(w, r)
			return
		}
		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")

		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "data: {\"type\":\"seat_message\",\"round\":1,\"seat_name\":\"Pro\",\"content\":\"hi\"}\n\n")
		fmt.Fprint(w, "event: heartbeat\ndata: {}\n\n")
		fmt.Fprint(w, "data: not-json\n\n")
		fmt.Fprint(w, "data: {\"type\":\"score\",\r\ndata: \"persona\":\"X\",\"judge\":\"J\",\"score\":8}\r\n\r\n")
		flusher.Flush()
		<-r.Context().Done()
	}))
	defer server.Close()

	rec := newRecorder()
	sub, err := NewSSESubscriber(server.URL+"/api", nil).Subscribe(context.Background(), "debate-1", rec.callbacks())
	if err != nil {
		t.Fatalf("Subscribe err: %v", err)
	}
	defer sub.Close()

	if msg, ok := rec.nextEvent(t).(debate.SeatMessage); !ok || msg.Content != "hi" {
		t.Fatalf("expected seat message, got %+v", msg)
	}
	score, ok := rec.nextEvent(t).(debate.Score)
	if !ok || score.Persona != "X" {
		t.Fatalf("expected multi-line score frame, got %+v", score)
	}
}

func TestSSESubscriberReportsStatusAndEnd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/debates/missing/stream" {
			http.Error(w, "nope", http.StatusNotFound)
			return
		}
		fmt.Fprint(w, "data: {\"type\":\"system_notice\",\"content\":\"bye\"}\n\n")
	}))
	defer server.Close()

	rec := newRecorder()
	sub, _ := NewSSESubscriber(server.URL, nil).Subscribe(context.Background(), "missing", rec.callbacks())
	defer sub.Close()
	if err := rec.nextError(t); !errors.Is(err, ErrUnexpectedStatus) {
		t.Fatalf("expected ErrUnexpectedStatus, got %v", err)
	}

	rec = newRecorder()
	sub2, _ := NewSSESubscriber(server.URL, nil).Subscribe(context.Background(), "short", rec.callbacks())
	defer sub2.Close()
	rec.nextEvent(t)
	if err := rec.nextError(t); !errors.Is(err, ErrStreamEnded) {
		t.Fatalf("expected ErrStreamEnded, got %v", err)
	}
}

func TestSSESubscriberRemoteErrorFrame(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "event: error\ndata: upstream judge unavailable\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer server.Close()

	rec := newRecorder()
	sub, _ := NewSSESubscriber(server.URL, nil).Subscribe(context.Background(), "debate-1", rec.callbacks())
	defer sub.Close()

	if err := rec.nextError(t); !errors.Is(err, ErrRemote) {
		t.Fatalf("expected ErrRemote, got %v", err)
	}
}

func TestSSESubscriberCloseIsSilent(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	rec := newRecorder()
	sub, _ := NewSSESubscriber(server.URL, nil).Subscribe(context.Background(), "debate-1", rec.callbacks())
	<-started
	sub.Close()

	select {
	case err := <-rec.errs:
		t.Fatalf("expected no error after Close, got %v", err)
	case <-time.After(200 * time.Millisecond):
	}
}
