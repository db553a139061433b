package poll

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func recordSleeps(p *Poller) *[]time.Duration {
	var got []time.Duration
	p.sleep = func(_ context.Context, d time.Duration) error {
		got = append(got, d)
		return nil
	}
	return &got
}

func TestRun_Succeeds(t *testing.T) {
	p := Fixed(20*time.Second, 10)
	sleeps := recordSleeps(p)
	var transitions []State
	p.OnTransition = func(_, to State) { transitions = append(transitions, to) }

	n := 0
	out := p.Run(context.Background(), func(context.Context) (bool, error) {
		n++
		return n == 3, nil
	})

	if out.State != Succeeded || out.Attempts != 3 || out.Err != nil {
		t.Fatalf("outcome = %+v", out)
	}
	if !reflect.DeepEqual(*sleeps, []time.Duration{20 * time.Second, 20 * time.Second}) {
		t.Errorf("sleeps = %v", *sleeps)
	}
	if !reflect.DeepEqual(transitions, []State{Running, Succeeded}) {
		t.Errorf("transitions = %v", transitions)
	}
}

func TestRun_Fails(t *testing.T) {
	p := Fixed(time.Second, 0)
	recordSleeps(p)
	boom := errors.New("operation error")
	out := p.Run(context.Background(), func(context.Context) (bool, error) { return false, boom })
	if out.State != Failed || !errors.Is(out.Err, boom) || out.Attempts != 1 {
		t.Errorf("outcome = %+v", out)
	}
}

func TestRun_AttemptBound(t *testing.T) {
	p := Fixed(time.Second, 4)
	recordSleeps(p)
	out := p.Run(context.Background(), func(context.Context) (bool, error) { return false, nil })
	if out.State != TimedOut || out.Attempts != 4 || !errors.Is(out.Err, ErrTimedOut) {
		t.Errorf("outcome = %+v", out)
	}
}

func TestRun_BackoffCapped(t *testing.T) {
	p := &Poller{Interval: time.Second, MaxInterval: 4 * time.Second, Multiplier: 2, MaxAttempts: 6}
	sleeps := recordSleeps(p)
	p.Run(context.Background(), func(context.Context) (bool, error) { return false, nil })

	want := []time.Duration{1, 2, 4, 4, 4}
	for i := range want {
		want[i] *= time.Second
	}
	if !reflect.DeepEqual(*sleeps, want) {
		t.Errorf("sleeps = %v, want %v", *sleeps, want)
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Fixed(time.Hour, 0)
	n := 0
	out := p.Run(ctx, func(context.Context) (bool, error) {
		n++
		cancel()
		return false, nil
	})
	if out.State != TimedOut || !errors.Is(out.Err, context.Canceled) || n != 1 {
		t.Errorf("outcome = %+v, checks = %d", out, n)
	}
}

func TestStateTerminal(t *testing.T) {
	for s, want := range map[State]bool{Pending: false, Running: false, Succeeded: true, Failed: true, TimedOut: true} {
		if s.Terminal() != want {
			t.Errorf("%s.Terminal() = %v", s, !want)
		}
	}
}
