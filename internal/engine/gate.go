package engine

import "sync/atomic"

// Gate is the process-wide readiness flag. It flips false→true exactly once,
// after all engines finish initializing, and never resets.
type Gate struct {
	ready atomic.Bool
}

func (g *Gate) markReady() {
	g.ready.Store(true)
}

// Ready reports whether engine warm-up has completed.
func (g *Gate) Ready() bool {
	return g.ready.Load()
}
