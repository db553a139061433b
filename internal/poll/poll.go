// Package poll drives a long-running remote operation to a terminal state
// by checking it repeatedly with exponential backoff.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// State of a polled operation.
type State string

const (
	Pending   State = "pending"
	Running   State = "running"
	Succeeded State = "succeeded"
	Failed    State = "failed"
	TimedOut  State = "timed_out"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed || s == TimedOut
}

// ErrTimedOut is returned in Outcome.Err when attempts or the context run out.
var ErrTimedOut = errors.New("operation did not finish in time")

// CheckFunc inspects the operation once. done=true ends polling with
// Succeeded; a non-nil error ends it with Failed.
type CheckFunc func(ctx context.Context) (done bool, err error)

// Outcome is the terminal result of Run.
type Outcome struct {
	State    State
	Attempts int
	Err      error
}

// Poller checks an operation until it finishes. Zero MaxAttempts polls until
// the context ends. With Interval equal to MaxInterval the period is fixed.
type Poller struct {
	Interval    time.Duration
	MaxInterval time.Duration
	MaxAttempts int
	Multiplier  float64

	// OnTransition, when set, is called on every state change.
	OnTransition func(from, to State)

	sleep func(ctx context.Context, d time.Duration) error
}

// Fixed polls every interval at most maxAttempts times.
func Fixed(interval time.Duration, maxAttempts int) *Poller {
	return &Poller{Interval: interval, MaxInterval: interval, MaxAttempts: maxAttempts}
}

func (p *Poller) policy() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.RandomizationFactor = 0
	if p.Interval > 0 {
		b.InitialInterval = p.Interval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	if p.Multiplier > 0 {
		b.Multiplier = p.Multiplier
	}
	b.Reset()
	return b
}

// Run checks immediately, then after each backoff interval, until check
// reports done, fails, attempts are exhausted or ctx ends.
func (p *Poller) Run(ctx context.Context, check CheckFunc) Outcome {
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	b := p.policy()

	state := Pending
	move := func(to State) {
		if p.OnTransition != nil && to != state {
			p.OnTransition(state, to)
		}
		state = to
	}

	move(Running)
	for attempt := 1; ; attempt++ {
		done, err := check(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			move(TimedOut)
			return Outcome{State: state, Attempts: attempt, Err: fmt.Errorf("%w: %w", ErrTimedOut, ctx.Err())}
		case err != nil:
			move(Failed)
			return Outcome{State: state, Attempts: attempt, Err: err}
		case done:
			move(Succeeded)
			return Outcome{State: state, Attempts: attempt}
		}

		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			move(TimedOut)
			return Outcome{State: state, Attempts: attempt, Err: fmt.Errorf("%w after %d attempts", ErrTimedOut, attempt)}
		}
		if err := sleep(ctx, b.NextBackOff()); err != nil {
			move(TimedOut)
			return Outcome{State: state, Attempts: attempt, Err: fmt.Errorf("%w: %w", ErrTimedOut, err)}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
