package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"nodeseek_bot/internal/pipeline"
)

type fakeTrigger struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeTrigger) Update(_ context.Context) (pipeline.UpdateReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return pipeline.UpdateReport{}, f.err
}

func (f *fakeTrigger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunImmediateAndTicks(t *testing.T) {
	trigger := &fakeTrigger{}
	s := New(trigger, time.Hour, discardLogger())
	s.SetTickInterval(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for trigger.count() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d updates before deadline", trigger.count())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	trigger := &fakeTrigger{}
	s := New(trigger, 10*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	if trigger.count() != 0 {
		t.Errorf("updates = %d, want 0 with pre-cancelled context", trigger.count())
	}
}

func TestRunKeepsGoingAfterErrors(t *testing.T) {
	trigger := &fakeTrigger{err: context.DeadlineExceeded}
	s := New(trigger, 10*time.Millisecond, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for trigger.count() < 2 {
		select {
		case <-deadline:
			t.Fatalf("only %d updates before deadline", trigger.count())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done
}
