package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goretry "github.com/sethvargo/go-retry"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrExhausted is returned once the attempt cap has been spent.
var ErrExhausted = errors.New("retries exhausted")

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Do returns it without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Policy defines retry behavior: an attempt cap and a delay policy.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries uint64
	Delay      time.Duration
	// Exponential doubles the delay on each retry, capped at MaxDelay.
	Exponential bool
	MaxDelay    time.Duration
	// OnRetry is called before each sleep.
	OnRetry func(attempt int, err error)
}

// Constant returns a policy with a fixed inter-attempt delay.
func Constant(maxRetries uint64, delay time.Duration) Policy {
	return Policy{MaxRetries: maxRetries, Delay: delay}
}

// Exponential returns a doubling policy capped at maxDelay.
func Exponential(maxRetries uint64, delay, maxDelay time.Duration) Policy {
	return Policy{MaxRetries: maxRetries, Delay: delay, Exponential: true, MaxDelay: maxDelay}
}

func (p Policy) backoff() goretry.Backoff {
	delay := p.Delay
	if delay <= 0 {
		delay = time.Millisecond
	}

	var b goretry.Backoff
	if p.Exponential {
		b = goretry.NewExponential(delay)
		if p.MaxDelay > 0 {
			b = goretry.WithCappedDuration(p.MaxDelay, b)
		}
	} else {
		b = goretry.NewConstant(delay)
	}
	return goretry.WithMaxRetries(p.MaxRetries, b)
}

// ErrorAction determines how to handle an error.
type ErrorAction int

const (
	ActionRetry ErrorAction = iota
	ActionFatal
)

// ClassifyError determines the action for a given error.
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionRetry
	}
	var perm *permanentError
	if errors.As(err, &perm) || errors.Is(err, context.Canceled) {
		return ActionFatal
	}

	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.InvalidArgument, codes.Unimplemented, codes.Unauthenticated, codes.PermissionDenied:
			return ActionFatal
		}
	}

	// JSON-RPC request errors
	// -32700: Parse error, -32600: Invalid Request, -32601: Method not found
	s := err.Error()
	if strings.Contains(s, "-32700") || strings.Contains(s, "-32600") ||
		strings.Contains(s, "-32601") || strings.Contains(strings.ToLower(s), "unsupported protocol scheme") {
		return ActionFatal
	}

	// Default to Retry (Network, 5xx, timeouts, etc)
	return ActionRetry
}

// Do runs op until it succeeds, returns a fatal error, or the policy is spent.
// The returned error wraps ErrExhausted and the last operation error when the
// cap is hit.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	attempts := 0
	var lastErr error

	err := goretry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		attempts++
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if ClassifyError(err) == ActionFatal {
			return err
		}
		if p.OnRetry != nil && uint64(attempts) <= p.MaxRetries {
			p.OnRetry(attempts, err)
		}
		return goretry.RetryableError(err)
	})
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if lastErr != nil && ClassifyError(lastErr) == ActionFatal {
		return lastErr
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr)
}
