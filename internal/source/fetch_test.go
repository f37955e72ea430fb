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
)

func newFetchServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/debates/done/events":
			fmt.Fprint(w, `{"data":[{"type":"seat_message","round":1,"seat_name":"Pro","content":"a"},{"type":"score","persona":"X","judge":"J","score":8}]}`)
		case "/debates/failed/events":
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":"debate not found"}`)
		case "/debates/broken/events":
			fmt.Fprint(w, `{"data":`)
		case "/debates/empty/events":
			fmt.Fprint(w, `{"data":[]}`)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
}

func TestHTTPFetcherReturnsEventsInOrder(t *testing.T) {
	server := newFetchServer(t)
	defer server.Close()

	events, err := NewHTTPFetcher(server.URL, time.Second).FetchEvents(context.Background(), "done")
	if err != nil {
		t.Fatalf("FetchEvents err: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[1].Type() != debate.TypeScore {
		t.Fatalf("expected score second, got %s", events[1].Type())
	}
}

func TestHTTPFetcherEmptyList(t *testing.T) {
	server := newFetchServer(t)
	defer server.Close()

	events, err := NewHTTPFetcher(server.URL, time.Second).FetchEvents(context.Background(), "empty")
	if err != nil {
		t.Fatalf("FetchEvents err: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}

func TestHTTPFetcherFailures(t *testing.T) {
	server := newFetchServer(t)
	defer server.Close()

	fetcher := NewHTTPFetcher(server.URL, time.Second)
	for _, id := range []string{"failed", "broken", "unknown"} {
		if _, err := fetcher.FetchEvents(context.Background(), id); !errors.Is(err, ErrFetchFailed) {
			t.Fatalf("%s: expected ErrFetchFailed, got %v", id, err)
		}
	}

	_, err := fetcher.FetchEvents(context.Background(), "failed")
	if err == nil || err.Error() != "replay fetch failed: debate not found" {
		t.Fatalf("expected remote error message, got %v", err)
	}
}
