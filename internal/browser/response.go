package browser

import (
	"context"
	"fmt"
	"time"
)

// awaitResponse runs trigger in the background and collects the first URL
// delivered on found.
//
// The timeout bounds the wait for a matching response only. The trigger
// carries its own timeout and always runs to completion; its error is
// returned unchanged and takes precedence over a match. A match that
// arrives after the timeout has fired is ignored. Cancelling ctx returns
// at once without waiting for the trigger.
func awaitResponse(ctx context.Context, found <-chan string, timeout time.Duration, trigger func() error) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	done := make(chan error, 1)
	go func() { done <- trigger() }()

	var (
		matched  string
		timedOut bool
	)
	for {
		select {
		case err := <-done:
			if err != nil {
				return "", err
			}
			if matched != "" {
				return matched, nil
			}
			if timedOut {
				return "", fmt.Errorf("%w within %s", ErrNoMatch, timeout)
			}
			// Navigation finished first; keep waiting for the response.
			done = nil
		case u := <-found:
			matched = u
			found = nil
			timer.Stop()
			if done == nil {
				return matched, nil
			}
		case <-timer.C:
			timedOut = true
			found = nil
			if done == nil {
				return "", fmt.Errorf("%w within %s", ErrNoMatch, timeout)
			}
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

// offer delivers u on found without blocking once a URL is already queued.
func offer(found chan<- string, u string) {
	select {
	case found <- u:
	default:
	}
}
