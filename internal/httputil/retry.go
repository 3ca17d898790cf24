// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers for model providers reached over
// plain HTTP.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// RetryBaseDelay controls the base duration for exponential backoff on
// throttled responses. Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

// MaxRetryAfter caps the wait taken from a Retry-After header.
var MaxRetryAfter = time.Minute

// StatusOverloaded is the non-standard status some providers return when
// the model is temporarily overloaded.
const StatusOverloaded = 529

// Throttled reports whether status signals rate limiting or overload.
func Throttled(status int) bool {
	return status == http.StatusTooManyRequests || status == StatusOverloaded
}

// DoWithRetry executes req and retries throttled responses (429 and 529)
// with exponential backoff starting at RetryBaseDelay. A Retry-After header
// given in seconds replaces the computed delay, capped at MaxRetryAfter.
//
// When maxRetries is 0 or less req is sent once. The body of each throttled
// response is drained and closed before sleeping. If ctx is cancelled during
// a wait the function returns ctx.Err(). After exhausting retries the last
// throttled response is returned so the caller can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	maxRetries = max(maxRetries, 0)

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if !Throttled(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		backoff := retryDelay(resp.Header.Get("Retry-After"), attempt)
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		logrus.WithFields(logrus.Fields{
			"url":     req.URL.Redacted(),
			"status":  resp.StatusCode,
			"attempt": attempt + 1,
		}).Debugf("throttled, retrying in %v", backoff)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}

func retryDelay(retryAfter string, attempt int) time.Duration {
	if secs, err := strconv.Atoi(retryAfter); err == nil && secs >= 0 {
		return min(time.Duration(secs)*time.Second, MaxRetryAfter)
	}
	return time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay
}
