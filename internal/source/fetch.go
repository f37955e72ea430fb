package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/zhouzirui/agora/backend/internal/model/debate"
)

const maxReplayBody = 32 << 20

// HTTPFetcher loads the complete event list of a finished debate from
// {BaseURL}/debates/{id}/events. The body is either {"data": [...]} or
// {"error": "..."}.
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPFetcher creates a fetcher; timeout bounds the whole request.
func NewHTTPFetcher(baseURL string, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

// FetchEvents returns the events in the order the server lists them.
func (f *HTTPFetcher) FetchEvents(ctx context.Context, debateID string) ([]debate.Event, error) {
	target, err := debateURL(f.BaseURL, debateID, "events")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplayBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrFetchFailed, err)
	}

	if gjson.ValidBytes(body) {
		if remote := gjson.GetBytes(body, "error"); remote.Exists() && remote.Type != gjson.Null {
			return nil, fmt.Errorf("%w: %s", ErrFetchFailed, remote.String())
		}
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: %w %d", ErrFetchFailed, ErrUnexpectedStatus, resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: malformed json", ErrFetchFailed)
	}

	data := gjson.GetBytes(body, "data")
	if !data.Exists() {
		return nil, fmt.Errorf("%w: response has no data", ErrFetchFailed)
	}

	events, err := debate.DecodeEvents([]byte(data.Raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	return events, nil
}
