package artifact

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestReaperRemovesExpiredArtifacts(t *testing.T) {
	s := newTestStore(t)
	s.SetClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })
	if _, err := s.Put([]byte{1, 2}, 16000); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	s.SetClock(time.Now)

	r := NewReaper(s, time.Hour, 20*time.Millisecond, 10*time.Millisecond)
	swept := make(chan int, 8)
	r.SetSweepHook(func(removed int, _ error) {
		select {
		case swept <- removed:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	deadline := time.After(2 * time.Second)
	total := 0
	for total < 1 {
		select {
		case n := <-swept:
			total += n
		case <-deadline:
			t.Fatalf("reaper did not sweep the expired artifact in time")
		}
	}
	if s.Count() != 0 {
		t.Fatalf("Count() = %d, want 0 after reap", s.Count())
	}
}

func TestReaperRetriesOnBackoffAfterFailedCycle(t *testing.T) {
	s := newTestStore(t)
	s.SetClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })
	id, err := s.Put([]byte{1}, 16000)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	s.SetClock(time.Now)
	obstruction := swapForDirectory(t, s, id)

	type cycle struct {
		removed int
		err     error
		at      time.Time
	}
	cycles := make(chan cycle, 16)
	const interval = 500 * time.Millisecond
	r := NewReaper(s, time.Hour, interval, 10*time.Millisecond)
	r.SetSweepHook(func(removed int, err error) {
		select {
		case cycles <- cycle{removed: removed, err: err, at: time.Now()}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	deadline := time.After(5 * time.Second)
	var first, second cycle
	select {
	case first = <-cycles:
	case <-deadline:
		t.Fatalf("reaper never ran a cycle")
	}
	if first.err == nil {
		t.Fatalf("first cycle should fail on the obstructed artifact")
	}
	if s.Count() != 1 {
		t.Fatalf("failed entry dropped, Count() = %d", s.Count())
	}

	select {
	case second = <-cycles:
	case <-deadline:
		t.Fatalf("reaper stopped after the failed cycle")
	}
	if second.err == nil {
		t.Fatalf("second cycle should fail while the obstruction remains")
	}
	// A failed cycle rearms on the short backoff, not the normal cadence.
	if gap := second.at.Sub(first.at); gap >= interval {
		t.Fatalf("retry came after %v, want the backoff cadence", gap)
	}

	// Clearing the obstruction lets a later cycle reclaim the artifact.
	if err := os.RemoveAll(obstruction); err != nil {
		t.Fatalf("clearing obstruction: %v", err)
	}
	for {
		select {
		case c := <-cycles:
			if c.err == nil && c.removed == 1 {
				if s.Count() != 0 {
					t.Fatalf("Count() = %d after recovery, want 0", s.Count())
				}
				return
			}
		case <-deadline:
			t.Fatalf("reaper never recovered after the obstruction cleared")
		}
	}
}

func TestNewReaperAppliesDefaults(t *testing.T) {
	s := newTestStore(t)
	r := NewReaper(s, 0, 0, 0)
	if r.retention != time.Hour {
		t.Fatalf("retention = %v, want 1h default", r.retention)
	}
	if r.interval != 5*time.Minute {
		t.Fatalf("interval = %v, want 5m default", r.interval)
	}
	if r.backoff != time.Minute {
		t.Fatalf("backoff = %v, want 1m default", r.backoff)
	}
}

func TestSweepOnEmptyStoreIsClean(t *testing.T) {
	s := newTestStore(t)
	removed, err := s.Sweep(time.Now(), time.Hour)
	if removed != 0 || err != nil {
		t.Fatalf("Sweep(empty) = (%d, %v), want (0, nil)", removed, err)
	}
}
