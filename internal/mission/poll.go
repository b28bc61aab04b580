// Package mission contains the mission queue manager and the step
// executor that drives one step to completion against the actuator.
package mission

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel outcomes of a poll loop.
var (
	// ErrPollTimeout means the loop exceeded its bound without reaching a
	// terminal state.
	ErrPollTimeout = errors.New("poll timeout")

	// ErrStalled means the robot kept reporting "moving" with no position
	// progress for longer than the stall threshold.
	ErrStalled = errors.New("move stalled")

	// ErrCancelled means the owning mission was cancelled mid-poll.
	ErrCancelled = errors.New("mission cancelled")
)

// PollPolicy bounds a poll-until-terminal loop. A zero StallAfter
// disables stall detection.
type PollPolicy struct {
	Interval   time.Duration
	Timeout    time.Duration
	StallAfter time.Duration
}

// pollUntilTerminal invokes poll on the policy interval until poll
// reports done, an error occurs, the timeout elapses, or cancelled
// returns true. The first poll happens after one interval, matching the
// second-scale latency of the underlying link.
func pollUntilTerminal(ctx context.Context, policy PollPolicy, cancelled func() bool, poll func(ctx context.Context) (bool, error)) error {
	deadline := time.Now().Add(policy.Timeout)
	ticker := time.NewTicker(policy.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if cancelled != nil && cancelled() {
			return ErrCancelled
		}

		done, err := poll(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w after %s", ErrPollTimeout, policy.Timeout)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
