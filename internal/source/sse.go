package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/zhouzirui/agora/backend/internal/model/debate"
	"github.com/zhouzirui/agora/backend/internal/service/transport"
)

// SSESubscriber streams debate events over Server-Sent Events from
// {BaseURL}/debates/{id}/stream.
type SSESubscriber struct {
	BaseURL string
	Client  *http.Client
}

// NewSSESubscriber creates an SSE subscriber. A nil client uses a client
// without timeout, since the stream is long-lived.
func NewSSESubscriber(baseURL string, client *http.Client) *SSESubscriber {
	if client == nil {
		client = &http.Client{}
	}
	return &SSESubscriber{BaseURL: baseURL, Client: client}
}

// Subscribe starts reading the feed in the background.
func (s *SSESubscriber) Subscribe(ctx context.Context, debateID string, cb transport.Callbacks) (transport.Subscription, error) {
	target, err := debateURL(s.BaseURL, debateID, "stream")
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(subCtx, http.MethodGet, target, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build sse request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	go s.run(subCtx, req, cb)
	return cancelSubscription(cancel), nil
}

func (s *SSESubscriber) run(ctx context.Context, req *http.Request, cb transport.Callbacks) {
	resp, err := s.Client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			cb.OnError(fmt.Errorf("sse connect: %w", err))
		}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		cb.OnError(fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode))
		return
	}

	reader := bufio.NewReader(resp.Body)
	var frame sseFrame
	for {
		line, readErr := reader.ReadString('\n')
		if line != "" {
			if frame.feed(strings.TrimRight(line, "\r\n")) {
				dispatch(frame, cb)
				frame = sseFrame{}
			}
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(readErr, io.EOF) {
				readErr = ErrStreamEnded
			}
			cb.OnError(readErr)
			return
		}
	}
}

// sseFrame accumulates the fields of one SSE message.
type sseFrame struct {
	event string
	data  []string
}

// feed consumes one line and reports whether the frame is complete.
func (f *sseFrame) feed(line string) bool {
	switch {
	case line == "":
		return len(f.data) > 0
	case strings.HasPrefix(line, ":"):
		// comment / keep-alive
	case strings.HasPrefix(line, "data:"):
		f.data = append(f.data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
	case strings.HasPrefix(line, "event:"):
		f.event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
	}
	return false
}

func dispatch(frame sseFrame, cb transport.Callbacks) {
	payload := strings.Join(frame.data, "\n")

	switch frame.event {
	case "heartbeat", "ping":
		return
	case "error":
		cb.OnError(fmt.Errorf("%w: %s", ErrRemote, payload))
		return
	}

	event, err := debate.DecodeEvent([]byte(payload))
	if err != nil {
		log.Printf("[sse] dropping undecodable frame: %v", err)
		return
	}
	cb.OnEvent(event)
}
