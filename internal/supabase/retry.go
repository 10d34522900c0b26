package supabase

import (
	"math"
	"math/rand"
	"net/http"
	"time"
)

// RetryConfig configures retries on transient request failures.
type RetryConfig struct {
	// MaxRetries is the number of attempts after the first. Zero disables retries.
	MaxRetries int
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff caps the exponential backoff.
	MaxBackoff time.Duration
	// Multiplier grows the backoff each attempt.
	Multiplier float64
	// Jitter adds +/- this fraction of randomness to each delay (0..1).
	Jitter float64
}

// DefaultRetryConfig retries three times on 429/5xx with exponential backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.1,
	}
}

var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

func (rc RetryConfig) shouldRetry(attempt int, resp *response, err error) bool {
	if rc.MaxRetries <= 0 || attempt >= rc.MaxRetries {
		return false
	}
	if err != nil {
		// Network-level failure; the request may not have been sent.
		return true
	}
	return resp != nil && retryableStatus[resp.StatusCode]
}

func (rc RetryConfig) backoff(attempt int) time.Duration {
	base := rc.InitialBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	mult := rc.Multiplier
	if mult <= 1 {
		mult = 2.0
	}
	d := time.Duration(float64(base) * math.Pow(mult, float64(attempt-1)))
	if rc.MaxBackoff > 0 && d > rc.MaxBackoff {
		d = rc.MaxBackoff
	}
	if rc.Jitter > 0 {
		delta := rc.Jitter * float64(d)
		d = time.Duration(float64(d) - delta + rand.Float64()*2*delta)
	}
	return d
}
