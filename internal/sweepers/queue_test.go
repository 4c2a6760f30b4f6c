package sweepers

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestQueueSweeperStopEndsLoop(t *testing.T) {
	logger := zerolog.Nop()
	// Interval far beyond the test lifetime; the ticker never fires, so the
	// nil store is never touched.
	sweeper := NewQueueSweeper(nil, &logger, time.Hour, time.Minute, 30)

	done := make(chan struct{})
	go func() {
		sweeper.Start(context.Background())
		close(done)
	}()

	sweeper.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after Stop()")
	}
}

func TestQueueSweeperContextCancelEndsLoop(t *testing.T) {
	logger := zerolog.Nop()
	sweeper := NewQueueSweeper(nil, &logger, time.Hour, time.Minute, 30)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on context cancellation")
	}
}

func TestNewQueueSweeperDefaultsRetention(t *testing.T) {
	logger := zerolog.Nop()
	sweeper := NewQueueSweeper(nil, &logger, time.Hour, time.Minute, 0)
	if sweeper.daysToKeep != 30 {
		t.Fatalf("daysToKeep = %d, want 30", sweeper.daysToKeep)
	}
}
