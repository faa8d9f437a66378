// Package shorts classifies YouTube uploads as short-form clips.
//
// YouTube serves a short at /shorts/{id} and redirects every other video to its
// watch page, so following redirects from that path and checking where the
// request lands is enough to tell the two apart.
package shorts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DefaultBaseURL is the site the probe runs against.
const DefaultBaseURL = "https://www.youtube.com"

// ErrUnexpectedStatus is returned when the probe lands on a non-2xx response.
var ErrUnexpectedStatus = errors.New("unexpected shorts probe status")

// Prober implements resolve.ShortsClassifier with one HEAD request per video.
type Prober struct {
	client  *http.Client
	baseURL string
}

// NewProber returns a Prober. A nil client means http.DefaultClient; an empty
// baseURL means DefaultBaseURL. The client must follow redirects.
func NewProber(client *http.Client, baseURL string) *Prober {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Prober{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// IsShort reports whether videoID stays on a /shorts/ path after redirects.
// Transport failures and a final non-2xx status (rate limiting, server errors,
// a removed video) are errors; the caller's failure policy decides those.
func (p *Prober) IsShort(ctx context.Context, videoID string) (bool, error) {
	probeURL := p.baseURL + "/shorts/" + url.PathEscape(videoID)

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, probeURL, nil)
	if err != nil {
		return false, fmt.Errorf("build shorts probe for %s: %w", videoID, err)
	}
	req.Header.Set("User-Agent", "ytdigest/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("shorts probe for %s: %w", videoID, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	// redirects are followed, so a 3xx here is as unexpected as a 4xx/5xx
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("shorts probe for %s: %w: %d", videoID, ErrUnexpectedStatus, resp.StatusCode)
	}

	finalPath := "/shorts/"
	if resp.Request != nil && resp.Request.URL != nil {
		finalPath = resp.Request.URL.Path
	}
	return strings.HasPrefix(finalPath, "/shorts/"), nil
}
