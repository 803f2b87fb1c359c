package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxPageBytes = 10 << 20

// ErrChallengeUnresolved means the site kept serving an anti-bot page past the wait budget.
var ErrChallengeUnresolved = errors.New("anti-bot challenge not resolved")

// challengeMarkers are fragments that identify interstitial challenge pages.
var challengeMarkers = []string{
	"cf-browser-verification",
	"challenge-platform",
	"cf-chl-",
	"<title>just a moment",
	"attention required! | cloudflare",
	"g-recaptcha",
	"h-captcha",
	"px-captcha",
}

// IsChallengePage reports whether body looks like an anti-bot interstitial.
func IsChallengePage(status int, body string) bool {
	lower := strings.ToLower(body)
	for _, m := range challengeMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return status == http.StatusTooManyRequests
}

// HTTPPageFetcher downloads pages and waits out challenge pages for at most
// challengeWait, retrying with a growing delay.
type HTTPPageFetcher struct {
	client        Doer
	challengeWait time.Duration
	initialDelay  time.Duration
	sleep         func(ctx context.Context, d time.Duration) error
}

// NewHTTPPageFetcher creates a fetcher. challengeWait bounds the total time spent
// waiting for a challenge to clear.
func NewHTTPPageFetcher(client Doer, challengeWait time.Duration) *HTTPPageFetcher {
	return &HTTPPageFetcher{
		client:        client,
		challengeWait: challengeWait,
		initialDelay:  time.Second,
		sleep:         sleepCtx,
	}
}

// Fetch implements PageFetcher.
func (f *HTTPPageFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	deadline := time.Now().Add(f.challengeWait)
	delay := f.initialDelay
	for attempt := 1; ; attempt++ {
		status, body, err := f.get(ctx, pageURL)
		if err != nil {
			return "", err
		}
		if !IsChallengePage(status, body) {
			if status < 200 || status >= 300 {
				return "", fmt.Errorf("unexpected status %d from %s", status, pageURL)
			}
			return body, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", fmt.Errorf("%w after %d attempts", ErrChallengeUnresolved, attempt)
		}
		if delay > remaining {
			delay = remaining
		}
		if err := f.sleep(ctx, delay); err != nil {
			return "", err
		}
		delay *= 2
	}
}

func (f *HTTPPageFetcher) get(ctx context.Context, pageURL string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return 0, "", err
	}
	return resp.StatusCode, string(b), nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
