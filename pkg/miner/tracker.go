package miner

import (
	"sync"

	"github.com/screa/starknet-salt-miner/internal/crypto"
	"github.com/screa/starknet-salt-miner/pkg/types"
)

// Tracker holds the global minimum. Workers only know their own minimum, so
// candidates can be stale by the time they arrive; Offer re-checks them
// against the global value.
type Tracker struct {
	mu    sync.RWMutex
	best  types.Candidate
	found bool
}

// NewTracker returns a tracker whose minimum starts at ceiling.
func NewTracker(ceiling crypto.Felt) *Tracker {
	return &Tracker{best: types.Candidate{Address: ceiling}}
}

// Offer replaces the global minimum with c if c is strictly smaller and
// reports whether it did.
func (t *Tracker) Offer(c types.Candidate) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !c.Address.Less(t.best.Address) {
		return false
	}
	t.best = c
	t.found = true
	return true
}

// Consume offers every candidate from in until in is closed and calls
// report, in arrival order, for each one that lowered the minimum. Candidates
// that no longer beat the minimum go to drop. Either callback may be nil. It
// returns the number of reports.
func (t *Tracker) Consume(in <-chan types.Candidate, report, drop func(types.Candidate)) int {
	n := 0
	for c := range in {
		if !t.Offer(c) {
			if drop != nil {
				drop(c)
			}
			continue
		}
		n++
		if report != nil {
			report(c)
		}
	}
	return n
}

// Best returns the current minimum and whether any candidate was accepted.
func (t *Tracker) Best() (types.Candidate, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.best, t.found
}
