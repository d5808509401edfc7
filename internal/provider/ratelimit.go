package provider

import (
	"crypto/tls"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	defaultMaxRetries          = 5
	defaultMaxTransientRetries = 2
	transientBaseDelay         = 500 * time.Millisecond
)

// RateLimitTransport wraps an http.RoundTripper with rate limiting, 429
// retry and a bounded retry of transient gateway errors (502, 503, 504).
type RateLimitTransport struct {
	ReqPerSec        float64           // 0 = unlimited (retry-only)
	Base             http.RoundTripper // nil = http.DefaultTransport
	TransientRetries int               // 0 = default, negative = none

	once    sync.Once
	limiter chan struct{}
}

func (t *RateLimitTransport) init() {
	if t.ReqPerSec > 0 {
		t.limiter = make(chan struct{}, 1)
		interval := time.Duration(float64(time.Second) / t.ReqPerSec)
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for range ticker.C {
				select {
				case t.limiter <- struct{}{}:
				default:
				}
			}
		}()
	}
}

func (t *RateLimitTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *RateLimitTransport) transientRetries() int {
	switch {
	case t.TransientRetries < 0:
		return 0
	case t.TransientRetries == 0:
		return defaultMaxTransientRetries
	default:
		return t.TransientRetries
	}
}

func isTransient(code int) bool {
	return code == http.StatusBadGateway || code == http.StatusServiceUnavailable || code == http.StatusGatewayTimeout
}

// RoundTrip implements http.RoundTripper.
func (t *RateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.once.Do(t.init)

	transient := 0
	for attempt := 0; ; attempt++ {
		if t.limiter != nil {
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-t.limiter:
			}
		}

		resp, err := t.base().RoundTrip(req)
		if err != nil {
			return nil, err
		}

		var delay time.Duration
		switch {
		case resp.StatusCode == http.StatusTooManyRequests && attempt < defaultMaxRetries:
			// Retry-After, else exponential (1s, 2s, 4s...)
			delay = time.Duration(1<<uint(attempt)) * time.Second
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
					delay = time.Duration(secs) * time.Second
				}
			}
		case isTransient(resp.StatusCode) && transient < t.transientRetries():
			delay = transientBaseDelay << uint(transient)
			transient++
		default:
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(delay):
		}
	}
}

// NewHTTPClient returns a client whose transport rate limits and retries.
func NewHTTPClient(reqPerSec float64, insecureSkipVerify bool) *http.Client {
	base := http.DefaultTransport.(*http.Transport).Clone()
	if insecureSkipVerify {
		base.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-hosted instances
	}
	return &http.Client{Transport: &RateLimitTransport{ReqPerSec: reqPerSec, Base: base}}
}
