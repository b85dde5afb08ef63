package summarizer

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerFiresAfterIntervalDuration(t *testing.T) {
	var mu sync.Mutex
	var fired []int
	sched := NewScheduler(SchedulerConfig{
		IntervalDuration: 30 * time.Millisecond,
		TickInterval:     5 * time.Millisecond,
	}, func(ctx context.Context, index int, startedAt, endedAt time.Time) {
		mu.Lock()
		fired = append(fired, index)
		mu.Unlock()
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	sched.Run(ctx)

	mu.Lock()
	defer mu.Unlock()
	if len(fired) == 0 {
		t.Fatal("expected at least one interval flush")
	}
	for i, idx := range fired {
		if idx != i {
			t.Fatalf("fired[%d] = %d, want %d (monotonic index)", i, idx, i)
		}
	}
}

func TestSchedulerPauseFreezesAccumulator(t *testing.T) {
	var fired int32
	sched := NewScheduler(SchedulerConfig{
		IntervalDuration: 40 * time.Millisecond,
		TickInterval:     5 * time.Millisecond,
	}, func(ctx context.Context, index int, startedAt, endedAt time.Time) {
		atomic.AddInt32(&fired, 1)
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	go func() {
		time.Sleep(10 * time.Millisecond)
		sched.Pause()
		time.Sleep(60 * time.Millisecond)
		sched.Resume()
	}()

	sched.Run(ctx)

	if got := atomic.LoadInt32(&fired); got != 0 {
		t.Fatalf("fired = %d, want 0 (40ms of active time never accumulates while paused for 60ms)", got)
	}
}
