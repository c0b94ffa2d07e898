package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestQueuedJobsCountRunsAndSurviveErrors(t *testing.T) {
	s := New(nil)
	var details atomic.Value
	s.Enqueue(JobSessionSweep, func(context.Context) (any, error) {
		return nil, errors.New("boom")
	})
	s.Enqueue(JobSessionSweep, func(context.Context) (any, error) {
		details.Store(2)
		return map[string]int{"closed": 2}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for s.Runs(JobSessionSweep) < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected 2 runs, got %d", s.Runs(JobSessionSweep))
		case <-time.After(2 * time.Millisecond):
		}
	}
	if details.Load() != 2 {
		t.Fatal("a failing job must not stop the worker")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run returned %v", err)
	}
}

func TestPeriodicJobsRunUntilCancelled(t *testing.T) {
	s := New(nil)
	var ticks atomic.Int32
	s.Every(JobStoragePurge, 5*time.Millisecond, func(context.Context) (any, error) {
		ticks.Add(1)
		return nil, nil
	})
	s.Every("disabled", 0, func(context.Context) (any, error) {
		t.Error("disabled job must not run")
		return nil, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for ticks.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("periodic job ran %d times", ticks.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("run did not stop after cancel")
	}
}
