package types

import (
	"time"

	"github.com/screa/starknet-salt-miner/internal/crypto"
)

// Candidate is a worker-local improvement: Address beat every address the
// worker had derived before.
type Candidate struct {
	Worker  int
	Salt    crypto.Salt
	Address crypto.Felt
}

// Result represents a confirmed global minimum
type Result struct {
	Salt     crypto.Salt
	Address  crypto.Felt
	Worker   int
	Attempts int64
	Duration time.Duration
}

// Rate returns derivations per second over the result's duration.
func (r *Result) Rate() float64 {
	if r.Duration.Seconds() <= 0 {
		return 0
	}
	return float64(r.Attempts) / r.Duration.Seconds()
}

// WorkerConfig contains configuration for individual workers
type WorkerConfig struct {
	Deriver *crypto.Deriver
	// Ceiling is the initial running minimum, p-1.
	Ceiling crypto.Felt
	// Seed makes the salt stream reproducible when set.
	Seed string
}
