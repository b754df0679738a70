package miner

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/screa/starknet-salt-miner/internal/crypto"
	"github.com/stretchr/testify/require"
)

func newTestDeriver(t *testing.T) *crypto.Deriver {
	t.Helper()
	c, err := crypto.NewConstants(crypto.DefaultParams())
	require.NoError(t, err)
	return crypto.NewDeriver(c)
}

func TestEstimateRate(t *testing.T) {
	d := newTestDeriver(t)

	rate := EstimateRate(context.Background(), d, 1, 100*time.Millisecond)
	require.Greater(t, rate, uint64(0))
}

func TestEstimateRateDefaults(t *testing.T) {
	d := newTestDeriver(t).WithHash(func(a, b crypto.Felt) crypto.Felt { return b })

	start := time.Now()
	rate := EstimateRate(context.Background(), d, 0, -1)
	require.GreaterOrEqual(t, time.Since(start), time.Second)
	require.Greater(t, rate, uint64(0))
}

func TestEstimateRateCancelled(t *testing.T) {
	d := newTestDeriver(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	EstimateRate(ctx, d, 2, time.Minute)
	require.Less(t, time.Since(start), 10*time.Second)
}

func TestEstimateRateScaling(t *testing.T) {
	if testing.Short() {
		t.Skip("timing sensitive")
	}
	if runtime.NumCPU() < 2 {
		t.Skip("needs two CPUs")
	}

	d := newTestDeriver(t)
	window := 300 * time.Millisecond

	one := EstimateRate(context.Background(), d, 1, window)
	two := EstimateRate(context.Background(), d, 2, window)

	// advisory: allow generous noise on shared machines
	require.GreaterOrEqual(t, float64(two), 0.8*float64(one), "1 thread: %d/s, 2 threads: %d/s", one, two)
}
