package artifact

import (
	"context"
	"log"
	"sync"
	"time"
)

// Reaper periodically sweeps the store. It is the only defense against
// unbounded scratch-dir growth, so a sweep failure never stops the loop: the
// cycle is logged and retried on a shorter backoff before the normal cadence
// resumes. A missed cycle is deferred cleanup, not data loss.
type Reaper struct {
	store     *Store
	retention time.Duration
	interval  time.Duration
	backoff   time.Duration

	mu      sync.Mutex
	onSweep func(removed int, err error)
}

func NewReaper(store *Store, retention, interval, backoff time.Duration) *Reaper {
	if retention <= 0 {
		retention = time.Hour
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if backoff <= 0 {
		backoff = time.Minute
	}
	return &Reaper{
		store:     store,
		retention: retention,
		interval:  interval,
		backoff:   backoff,
	}
}

// SetSweepHook installs a callback invoked after every sweep cycle.
func (r *Reaper) SetSweepHook(hook func(removed int, err error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onSweep = hook
}

// Start runs the sweep loop until ctx is cancelled.
func (r *Reaper) Start(ctx context.Context) {
	go func() {
		timer := time.NewTimer(r.interval)
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				timer.Reset(r.sweepOnce())
			}
		}
	}()
}

// sweepOnce runs one sweep cycle and returns the delay before the next.
func (r *Reaper) sweepOnce() time.Duration {
	removed, err := r.store.Sweep(time.Now(), r.retention)
	if removed > 0 {
		log.Printf("artifact reaper: removed %d expired artifacts", removed)
	}

	r.mu.Lock()
	hook := r.onSweep
	r.mu.Unlock()
	if hook != nil {
		hook(removed, err)
	}

	if err != nil {
		log.Printf("artifact reaper: sweep cycle failed, retrying in %s: %v", r.backoff, err)
		return r.backoff
	}
	return r.interval
}
