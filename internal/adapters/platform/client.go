package platform

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"reviewhub/internal/adapters/observability"
	"reviewhub/internal/domain"
)

// Sentinels wrap the domain ones so callers can errors.Is against either.
var (
	ErrNotFound     = fmt.Errorf("platform: %w", domain.ErrNotFound)
	ErrUnauthorized = fmt.Errorf("platform: %w", domain.ErrUnauthorized)
	ErrForbidden    = fmt.Errorf("platform: forbidden: %w", domain.ErrUnauthorized)
)

type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: base,
		hc:   &http.Client{Timeout: 20 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// GetReviews fetches up to count reviews for a connected profile. Payloads
// are kept as raw maps; field extraction is the mappers' job.
func (c *Client) GetReviews(ctx context.Context, remoteID string, count int) ([]map[string]any, error) {
	url := fmt.Sprintf("%s/profiles/%s/reviews?limit=%d", c.base, remoteID, count)
	var out []map[string]any
	return out, c.get(ctx, url, "reviews", &out)
}

// get performs a GET with client-side rate limiting, retries, and JSON decode
// into out. Retries on 429 and transient 5xx, honoring Retry-After when
// provided.
func (c *Client) get(ctx context.Context, url, endpoint string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		// build a fresh request each attempt
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		if c.key != "" {
			req.Header.Set("X-API-Key", c.key)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "reviewhub/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			// network error or context canceled
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("platform", endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			return err

		case http.StatusNoContent:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			// Prefer server-provided Retry-After; otherwise exponential backoff.
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			// read a small error body for diagnostics
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential backoff delay with concurrency-safe jitter.
// i = retry attempt (0,1,2,...). Base doubles each attempt (200ms, 400ms,
// 800ms...), with up to +50% random jitter to avoid thundering herds.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
