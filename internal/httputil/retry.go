// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the external service clients.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// RetryBaseDelay controls the base duration for exponential backoff.
// Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

// RetryMaxDelay caps a single backoff wait.
var RetryMaxDelay = 30 * time.Second

// Retryable reports whether a response status is transient: 429 or a
// gateway/server 5xx. Client errors such as 400 or 401 are never retried.
func Retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// DoWithRetry executes an HTTP request and, when maxRetries > 0, retries
// transient failures (Retryable statuses and network timeouts) with
// exponential backoff: RetryBaseDelay, then doubling, capped at RetryMaxDelay.
//
// With maxRetries <= 0 the request is sent exactly once. Request bodies are
// replayed through req.GetBody, so requests built with bytes.Reader or
// bytes.Buffer bodies are safe to retry. On each retried response the body
// is drained and closed before sleeping. If the context is cancelled during
// a backoff wait the function returns ctx.Err(). After exhausting retries
// the last response is returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	log := zerolog.Ctx(ctx)

	for attempt := 0; ; attempt++ {
		attemptReq := req.Clone(ctx)
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewinding request body: %w", err)
			}
			attemptReq.Body = body
		}

		resp, err := client.Do(attemptReq)
		if err != nil {
			if attempt >= maxRetries || !isTimeout(err) || ctx.Err() != nil {
				return nil, err
			}
			log.Warn().Err(err).Int("attempt", attempt+1).Int("max_retries", maxRetries).Msg("request timed out, retrying")
		} else {
			if !Retryable(resp.StatusCode) || attempt >= maxRetries {
				return resp, nil
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			log.Warn().Int("status", resp.StatusCode).Int("attempt", attempt+1).Int("max_retries", maxRetries).Msg("transient response, retrying")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff(attempt)):
		}
	}
}

func backoff(attempt int) time.Duration {
	d := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
	if d > RetryMaxDelay {
		return RetryMaxDelay
	}
	return d
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
