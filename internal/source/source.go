// Package source talks to the remote debate API: live push feeds for the
// transport tracker and the one-shot event fetch that hydrates replays.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrStreamEnded is reported when the server closes a live feed.
	ErrStreamEnded = errors.New("event stream ended")
	// ErrUnexpectedStatus is reported for non-2xx responses.
	ErrUnexpectedStatus = errors.New("unexpected response status")
	// ErrRemote wraps an error pushed by the server on the feed itself.
	ErrRemote = errors.New("remote error")
	// ErrFetchFailed wraps every replay fetch failure.
	ErrFetchFailed = errors.New("replay fetch failed")
)

// cancelSubscription stops a feed by cancelling its context. It never waits
// for the reader goroutine.
type cancelSubscription context.CancelFunc

func (c cancelSubscription) Close() { c() }

// debateURL joins the API base with /debates/{id}/{leaf}.
func debateURL(base, debateID, leaf string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid api base url %q: %w", base, err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/debates/" + url.PathEscape(debateID) + "/" + leaf
	return u.String(), nil
}
