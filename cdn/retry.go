/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package cdn

import (
	"context"
	"time"
)

// Default retry policy for registry and tarball requests.
const (
	DefaultAttempts = 5
	DefaultDelay    = time.Second
)

// Logger receives diagnostics about retried requests.
type Logger interface {
	Warning(format string, args ...any)
	Debug(format string, args ...any)
}

// RetryFetcher wraps a Fetcher with a bounded number of attempts separated
// by a fixed delay. The delay does not grow between attempts.
type RetryFetcher struct {
	next     Fetcher
	attempts int
	delay    time.Duration
	logger   Logger
	// sleep waits d unless ctx ends first, reporting whether it waited.
	sleep func(ctx context.Context, d time.Duration) bool
}

// NewRetryFetcher wraps next with the default policy.
func NewRetryFetcher(next Fetcher) *RetryFetcher {
	return &RetryFetcher{
		next:     next,
		attempts: DefaultAttempts,
		delay:    DefaultDelay,
		sleep:    sleepContext,
	}
}

// WithPolicy returns a new RetryFetcher using the given attempt count and delay.
// Attempt counts below one are treated as one.
func (r *RetryFetcher) WithPolicy(attempts int, delay time.Duration) *RetryFetcher {
	return &RetryFetcher{
		next:     r.next,
		attempts: max(attempts, 1),
		delay:    max(delay, 0),
		logger:   r.logger,
		sleep:    r.sleep,
	}
}

// WithLogger returns a new RetryFetcher that reports failed attempts to logger.
func (r *RetryFetcher) WithLogger(logger Logger) *RetryFetcher {
	return &RetryFetcher{
		next:     r.next,
		attempts: r.attempts,
		delay:    r.delay,
		logger:   logger,
		sleep:    r.sleep,
	}
}

// Attempts returns the maximum number of attempts per request.
func (r *RetryFetcher) Attempts() int {
	return r.attempts
}

// Delay returns the fixed pause between attempts.
func (r *RetryFetcher) Delay() time.Duration {
	return r.delay
}

// Fetch tries the wrapped fetcher up to Attempts times. When every attempt
// fails the error from the last attempt is returned unchanged.
func (r *RetryFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	attempts := max(r.attempts, 1)
	sleep := r.sleep
	if sleep == nil {
		sleep = sleepContext
	}
	var lastErr error

	for i := range attempts {
		body, err := r.next.Fetch(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if r.logger != nil {
			r.logger.Debug("attempt %d/%d for %s failed: %v", i+1, attempts, url, err)
		}

		if i < attempts-1 && !sleep(ctx, r.delay) {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
