package worker

import (
	"context"
	"encoding/binary"
	"math/rand/v2"
	"sync/atomic"

	"github.com/screa/starknet-salt-miner/internal/crypto"
	"github.com/screa/starknet-salt-miner/pkg/types"
)

// Worker samples random salts and keeps its own running minimum.
type Worker struct {
	id       int
	config   *types.WorkerConfig
	attempts *atomic.Int64
	rng      *rand.Rand
	best     crypto.Felt
}

// NewWorker creates a new worker instance. attempts is shared by all
// workers of a run; nil gives the worker a private counter.
func NewWorker(id int, config *types.WorkerConfig, attempts *atomic.Int64) *Worker {
	if attempts == nil {
		attempts = new(atomic.Int64)
	}
	return &Worker{
		id:       id,
		config:   config,
		attempts: attempts,
		rng:      rand.New(newSource(config.Seed, id)),
		best:     config.Ceiling,
	}
}

// newSource returns a PCG source keyed by keccak256(seed || id), or a
// randomly keyed one when seed is empty.
func newSource(seed string, id int) rand.Source {
	if seed == "" {
		return rand.NewPCG(rand.Uint64(), rand.Uint64())
	}

	var idBytes [8]byte
	binary.BigEndian.PutUint64(idBytes[:], uint64(id))
	sum := crypto.Keccak256([]byte(seed), idBytes[:])
	return rand.NewPCG(binary.BigEndian.Uint64(sum[:8]), binary.BigEndian.Uint64(sum[8:16]))
}

// ID returns the worker index.
func (w *Worker) ID() int {
	return w.id
}

// Best returns the smallest address this worker has derived.
func (w *Worker) Best() crypto.Felt {
	return w.best
}

func (w *Worker) randomSalt() crypto.Salt {
	return crypto.Salt{Hi: w.rng.Uint64(), Lo: w.rng.Uint64()}
}

// Probe derives the address of one random salt. It reports a candidate only
// when the address is strictly below the worker's running minimum.
func (w *Worker) Probe() (types.Candidate, bool) {
	salt := w.randomSalt()
	addr := w.config.Deriver.Derive(salt)
	w.attempts.Add(1)

	if !addr.Less(w.best) {
		return types.Candidate{}, false
	}
	w.best = addr
	return types.Candidate{Worker: w.id, Salt: salt, Address: addr}, true
}

// ProcessBatch probes batchSize salts and returns the improvements in the
// order they were found.
func (w *Worker) ProcessBatch(batchSize int) []types.Candidate {
	var found []types.Candidate
	for i := 0; i < batchSize; i++ {
		if c, ok := w.Probe(); ok {
			found = append(found, c)
		}
	}
	return found
}

// Run probes until ctx is done, sending every improvement to out. It
// returns nil once ctx is cancelled.
func (w *Worker) Run(ctx context.Context, out chan<- types.Candidate) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		c, ok := w.Probe()
		if !ok {
			continue
		}

		select {
		case out <- c:
		case <-ctx.Done():
			return nil
		}
	}
}
