package gopool

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

// RetryableFunc is retried until it succeeds or attempts run out.
type RetryableFunc func() error

type RetryableFuncWithData[T any] func() (T, error)

type retryConfig struct {
	attempts uint
	delay    time.Duration
	backoff  bool
	retryIf  func(error) bool
	onRetry  func(n uint, err error)
	context  context.Context
}

type RetryOption func(*retryConfig)

// RetryAttempts sets the total number of calls, default 3. Zero is treated
// as one.
func RetryAttempts(n uint) RetryOption {
	return func(c *retryConfig) {
		c.attempts = n
	}
}

// RetryDelay sets the pause before each retry, default none.
func RetryDelay(d time.Duration) RetryOption {
	return func(c *retryConfig) {
		c.delay = d
	}
}

// RetryBackOff doubles the delay after every failed attempt.
func RetryBackOff() RetryOption {
	return func(c *retryConfig) {
		c.backoff = true
	}
}

// RetryIf limits retries to errors for which fn returns true.
func RetryIf(fn func(error) bool) RetryOption {
	return func(c *retryConfig) {
		if fn != nil {
			c.retryIf = fn
		}
	}
}

// OnRetry is called before every retry with the 1-based attempt number that
// just failed.
func OnRetry(fn func(n uint, err error)) RetryOption {
	return func(c *retryConfig) {
		if fn != nil {
			c.onRetry = fn
		}
	}
}

func RetryContext(ctx context.Context) RetryOption {
	return func(c *retryConfig) {
		c.context = ctx
	}
}

func Retry(fn RetryableFunc, opts ...RetryOption) error {
	_, err := RetryWithData(func() (struct{}, error) {
		return struct{}{}, fn()
	}, opts...)
	return err
}

// RetryWithData calls fn until it succeeds. When every attempt fails the
// returned RetryError holds each failure in order.
func RetryWithData[T any](fn RetryableFuncWithData[T], opts ...RetryOption) (T, error) {
	var zero T
	c := &retryConfig{
		attempts: 3,
		retryIf:  func(error) bool { return true },
		onRetry:  func(uint, error) {},
		context:  context.Background(),
	}
	for _, o := range opts {
		o(c)
	}
	// retry-go retries forever on zero attempts.
	if c.attempts == 0 {
		c.attempts = 1
	}
	if err := c.context.Err(); err != nil {
		return zero, err
	}

	delayType := retry.FixedDelay
	if c.backoff {
		delayType = retry.BackOffDelay
	}
	v, err := retry.DoWithData(retry.RetryableFuncWithData[T](fn),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(delayType),
		retry.RetryIf(func(err error) bool {
			return retry.IsRecoverable(err) && c.retryIf(err)
		}),
		retry.OnRetry(func(n uint, err error) {
			// n is 0-based and the hook also fires after the final attempt.
			if n+1 < c.attempts {
				c.onRetry(n+1, err)
			}
		}),
		retry.Context(c.context),
	)
	if err == nil {
		return v, nil
	}
	if errs, ok := err.(retry.Error); ok {
		return zero, newRetryError(errs)
	}
	return zero, err
}

// RetryError lists the error of every failed attempt.
type RetryError []error

func newRetryError(errs []error) RetryError {
	out := make(RetryError, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}

func (e RetryError) Error() string {
	lines := make([]string, len(e))
	for i, err := range e {
		lines[i] = fmt.Sprintf("#%d: %s", i+1, err)
	}
	return fmt.Sprintf("all %d attempts failed:\n%s", len(e), strings.Join(lines, "\n"))
}

// Unwrap exposes every attempt to errors.Is and errors.As.
func (e RetryError) Unwrap() []error {
	return e
}

// Last returns the error of the final attempt.
func (e RetryError) Last() error {
	if len(e) == 0 {
		return nil
	}
	return e[len(e)-1]
}

// Unrecoverable marks err so that Retry stops immediately.
func Unrecoverable(err error) error {
	return retry.Unrecoverable(err)
}
