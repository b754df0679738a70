package miner

import (
	"context"
	"sync"
	"time"

	"github.com/screa/starknet-salt-miner/internal/crypto"
)

// EstimateRate measures derivations per second. Each of threads goroutines
// derives consecutive salts from zero until window has elapsed; the counts
// are summed and scaled to one second. Cancelling ctx ends the window early.
func EstimateRate(ctx context.Context, deriver *crypto.Deriver, threads int, window time.Duration) uint64 {
	if threads < 1 {
		threads = 1
	}
	if window <= 0 {
		window = time.Second
	}

	counts := make([]uint64, threads)
	deadline := time.Now().Add(window)

	var wg sync.WaitGroup
	for i := 0; i < threads; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			var (
				salt  crypto.Salt
				count uint64
			)
			for time.Now().Before(deadline) {
				select {
				case <-ctx.Done():
					counts[i] = count
					return
				default:
				}
				deriver.Derive(salt)
				salt = salt.Next()
				count++
			}
			counts[i] = count
		}(i)
	}
	wg.Wait()

	var total uint64
	for _, c := range counts {
		total += c
	}
	if window == time.Second {
		return total
	}
	return uint64(float64(total) / window.Seconds())
}
