package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var errUpstream = errors.New("overpass: runtime error: Query timed out")

func fail(_ context.Context) error { return errUpstream }

func execute(ctx context.Context, b *Breaker, fn func(ctx context.Context) error) error {
	_, err := Call(ctx, b, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func TestBreaker_ClosedPassesThrough(t *testing.T) {
	b := NewBreaker(Config{})

	var calls int
	err := execute(context.Background(), b, func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if b.State() != Closed {
		t.Errorf("expected closed state, got %s", b.State())
	}
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker(Config{FailureThreshold: 3, ResetTimeout: time.Minute})

	for range 3 {
		_ = execute(context.Background(), b, fail)
	}
	if b.State() != Open {
		t.Fatalf("expected open state, got %s", b.State())
	}

	err := execute(context.Background(), b, func(_ context.Context) error {
		t.Error("should not be called when open")
		return nil
	})
	if !errors.Is(err, ErrOpen) {
		t.Errorf("expected ErrOpen, got %v", err)
	}
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b := NewBreaker(Config{FailureThreshold: 3})

	_ = execute(context.Background(), b, fail)
	_ = execute(context.Background(), b, fail)
	if b.Failures() != 2 {
		t.Fatalf("expected 2 failures, got %d", b.Failures())
	}

	_ = execute(context.Background(), b, func(_ context.Context) error { return nil })
	if b.Failures() != 0 {
		t.Errorf("expected failures reset, got %d", b.Failures())
	}
}

func TestBreaker_IgnoresNonUpstreamErrors(t *testing.T) {
	b := NewBreaker(Config{FailureThreshold: 1})

	err := execute(context.Background(), b, func(_ context.Context) error {
		return errors.New("overpass: invalid region id")
	})
	if err == nil {
		t.Fatal("expected the call's error to be returned")
	}
	if b.State() != Closed {
		t.Errorf("non-upstream error should not open the breaker, got %s", b.State())
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	now := time.Now()
	var transitions []string
	b := NewBreaker(Config{
		FailureThreshold: 2,
		ResetTimeout:     time.Second,
		OnStateChange: func(from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	b.now = func() time.Time { return now }

	_ = execute(context.Background(), b, fail)
	_ = execute(context.Background(), b, fail)
	if b.State() != Open {
		t.Fatalf("expected open, got %s", b.State())
	}

	b.now = func() time.Time { return now.Add(2 * time.Second) }
	if b.State() != HalfOpen {
		t.Fatalf("expected half-open after reset timeout, got %s", b.State())
	}

	if err := execute(context.Background(), b, func(_ context.Context) error { return nil }); err != nil {
		t.Fatalf("probe should pass: %v", err)
	}
	if b.State() != Closed {
		t.Errorf("expected closed after successful probe, got %s", b.State())
	}

	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker(Config{FailureThreshold: 1, ResetTimeout: time.Second})
	b.now = func() time.Time { return now }

	_ = execute(context.Background(), b, fail)

	b.now = func() time.Time { return now.Add(2 * time.Second) }
	_ = execute(context.Background(), b, fail)

	if b.State() != Open {
		t.Errorf("expected open after failed probe, got %s", b.State())
	}
}

func TestCall_ReturnsValue(t *testing.T) {
	b := NewBreaker(Config{})
	v, err := Call(context.Background(), b, func(_ context.Context) (int, error) {
		return 42, nil
	})
	if err != nil || v != 42 {
		t.Errorf("Call = %d, %v; want 42, nil", v, err)
	}
}

func TestBreaker_Concurrent(t *testing.T) {
	b := NewBreaker(Config{FailureThreshold: 1000})

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = execute(context.Background(), b, func(_ context.Context) error {
				if i%2 == 0 {
					return errUpstream
				}
				return nil
			})
		}()
	}
	wg.Wait()

	if b.State() != Closed {
		t.Errorf("expected closed, got %s", b.State())
	}
}

func TestBreaker_HalfOpenAdmitsSingleTrial(t *testing.T) {
	now := time.Now()
	b := NewBreaker(Config{FailureThreshold: 1, ResetTimeout: time.Second})
	b.now = func() time.Time { return now }
	_ = execute(context.Background(), b, fail)

	b.now = func() time.Time { return now.Add(2 * time.Second) }

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- execute(context.Background(), b, func(_ context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	for range 4 {
		err := execute(context.Background(), b, func(_ context.Context) error {
			t.Error("only the trial call should reach upstream")
			return nil
		})
		if !errors.Is(err, ErrOpen) {
			t.Errorf("expected ErrOpen while the trial runs, got %v", err)
		}
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("trial call failed: %v", err)
	}
	if b.State() != Closed {
		t.Errorf("expected closed after successful trial, got %s", b.State())
	}
}

func TestBreaker_CancelledTrialFreesSlot(t *testing.T) {
	now := time.Now()
	b := NewBreaker(Config{FailureThreshold: 1, ResetTimeout: time.Second})
	b.now = func() time.Time { return now }
	_ = execute(context.Background(), b, fail)

	b.now = func() time.Time { return now.Add(2 * time.Second) }
	_ = execute(context.Background(), b, func(_ context.Context) error { return context.Canceled })
	if b.State() != HalfOpen {
		t.Fatalf("expected half-open after cancelled trial, got %s", b.State())
	}

	if err := execute(context.Background(), b, func(_ context.Context) error { return nil }); err != nil {
		t.Fatalf("second trial should run: %v", err)
	}
	if b.State() != Closed {
		t.Errorf("expected closed, got %s", b.State())
	}
}
