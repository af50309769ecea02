package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type stubChecker struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubChecker) CheckAndGenerate(_ context.Context, familyID string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return Result{}, s.err
	}
	return Result{Created: 1, Date: "2024-01-15"}, nil
}

func (s *stubChecker) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func TestFallbackChecksOncePerDay(t *testing.T) {
	checker := &stubChecker{}
	clock := &stepClock{now: testDay}
	f := NewFallbackScheduler(checker, "F1", time.UTC, zap.NewNop()).WithClock(clock.Now)
	ctx := context.Background()

	if ran, err := f.Check(ctx); !ran || err != nil {
		t.Fatalf("first check ran=%v err=%v", ran, err)
	}
	if ran, _ := f.Check(ctx); ran {
		t.Fatalf("second check on the same day should be skipped")
	}
	if f.LastChecked() != "2024-01-15" {
		t.Fatalf("last checked = %s", f.LastChecked())
	}

	clock.Set(testDay.Add(24 * time.Hour))
	if ran, _ := f.Check(ctx); !ran {
		t.Fatalf("check on the next day should run")
	}
	if checker.Calls() != 2 {
		t.Fatalf("calls = %d, want 2", checker.Calls())
	}
}

func TestFallbackRetriesAfterFailure(t *testing.T) {
	checker := &stubChecker{err: errors.New("offline")}
	f := NewFallbackScheduler(checker, "F1", time.UTC, zap.NewNop()).WithClock(fixedNow)
	ctx := context.Background()

	if _, err := f.Check(ctx); err == nil {
		t.Fatalf("expected failure")
	}
	if f.LastChecked() != "" {
		t.Fatalf("failed check must not mark the day as done")
	}

	checker.mu.Lock()
	checker.err = nil
	checker.mu.Unlock()
	if ran, err := f.Check(ctx); !ran || err != nil {
		t.Fatalf("retry ran=%v err=%v", ran, err)
	}
}

func TestFallbackRunChecksImmediatelyAndOnPoke(t *testing.T) {
	checker := &stubChecker{}
	clock := &stepClock{now: testDay}
	f := NewFallbackScheduler(checker, "F1", time.UTC, zap.NewNop()).WithClock(clock.Now)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.Run(ctx)
		close(done)
	}()

	waitFor(t, func() bool { return checker.Calls() == 1 })

	f.Poke()
	time.Sleep(20 * time.Millisecond)
	if checker.Calls() != 1 {
		t.Fatalf("poke on an already checked day should not call the checker")
	}

	clock.Set(testDay.Add(24 * time.Hour))
	f.Poke()
	waitFor(t, func() bool { return checker.Calls() == 2 })

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestUntilNextMidnight(t *testing.T) {
	cases := []struct {
		now  time.Time
		want time.Duration
	}{
		{time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC), 14*time.Hour + 30*time.Minute},
		{time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), 24 * time.Hour},
		{time.Date(2024, 1, 31, 23, 59, 0, 0, time.UTC), time.Minute},
	}
	for _, tc := range cases {
		if got := untilNextMidnight(tc.now, time.UTC); got != tc.want {
			t.Fatalf("untilNextMidnight(%s) = %s, want %s", tc.now, got, tc.want)
		}
	}
}
