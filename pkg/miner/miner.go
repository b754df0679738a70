package miner

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/screa/starknet-salt-miner/internal/config"
	"github.com/screa/starknet-salt-miner/internal/crypto"
	"github.com/screa/starknet-salt-miner/internal/logger"
	"github.com/screa/starknet-salt-miner/internal/metrics"
	"github.com/screa/starknet-salt-miner/pkg/types"
	"github.com/screa/starknet-salt-miner/pkg/worker"
	"golang.org/x/sync/errgroup"
)

// Miner coordinates the workers, the estimator and the global minimum.
type Miner struct {
	config       *config.Config
	logger       *logger.Logger
	metrics      *metrics.Metrics
	constants    *crypto.Constants
	deriver      *crypto.Deriver
	tracker      *Tracker
	workers      int
	attempts     atomic.Int64
	start        time.Time
	workerConfig *types.WorkerConfig
}

// NewMiner precomputes the derivation constants described by cfg.
func NewMiner(cfg *config.Config, log *logger.Logger) (*Miner, error) {
	params, err := cfg.Params()
	if err != nil {
		return nil, errors.WithMessage(err, "reading calldata")
	}

	constants, err := crypto.NewConstants(params)
	if err != nil {
		return nil, errors.WithMessage(err, "precomputing address constants")
	}
	deriver := crypto.NewDeriver(constants)

	m := &Miner{
		config:    cfg,
		logger:    log,
		constants: constants,
		deriver:   deriver,
		tracker:   NewTracker(constants.Ceiling),
		workers:   cfg.EffectiveWorkers(),
		workerConfig: &types.WorkerConfig{
			Deriver: deriver,
			Ceiling: constants.Ceiling,
			Seed:    cfg.Seed,
		},
	}
	m.metrics = metrics.New(func() float64 { return float64(m.attempts.Load()) })
	return m, nil
}

// Workers returns the number of workers Mine starts.
func (m *Miner) Workers() int {
	return m.workers
}

// Deriver returns the address deriver of this run.
func (m *Miner) Deriver() *crypto.Deriver {
	return m.deriver
}

// Metrics returns the collectors of this run.
func (m *Miner) Metrics() *metrics.Metrics {
	return m.metrics
}

// Estimate measures the derivation rate with one thread per worker and logs
// it. The value is advisory only.
func (m *Miner) Estimate(ctx context.Context) uint64 {
	rate := EstimateRate(ctx, m.deriver, m.workers, m.config.EstimateWindow)
	m.metrics.EstimatedRate.Set(float64(rate))
	m.logger.Printf("Estimated speed: %.1fk/s", float64(rate)/1000)
	return rate
}

// Mine searches until ctx is done or a worker fails. Improvements are
// reported as they are confirmed; the best result is returned either way.
func (m *Miner) Mine(ctx context.Context) (*types.Result, error) {
	m.start = time.Now()
	results := make(chan types.Candidate, m.config.ResultBuffer)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < m.workers; i++ {
		w := worker.NewWorker(i, m.workerConfig, &m.attempts)
		m.logger.With("worker", i).Debugf("worker started")
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = errors.Errorf("worker %d panicked: %v", w.ID(), r)
				}
			}()
			return errors.WithMessagef(w.Run(gctx, results), "worker %d", w.ID())
		})
	}
	m.metrics.Workers.Set(float64(m.workers))

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- g.Wait()
		close(results)
	}()

	// Start periodic logging if verbose mode is enabled
	logDone := make(chan struct{})
	logStopped := make(chan struct{})
	if m.config.Verbose {
		ticker := time.NewTicker(time.Duration(m.config.LogInterval) * time.Second)
		defer ticker.Stop()
		go func() {
			defer close(logStopped)
			m.periodicLogger(ticker, logDone)
		}()

		m.logger.Printf("Mining started with %d workers, logging every %d seconds...",
			m.workers, m.config.LogInterval)
	} else {
		close(logStopped)
	}

	improvements := m.tracker.Consume(results, m.report, m.drop)
	close(logDone)
	<-logStopped
	m.metrics.Workers.Set(0)

	err := <-waitErr
	m.logger.Infow("search stopped", "attempts", m.Attempts(), "improvements", improvements)
	return m.GetBestResult(), err
}

func (m *Miner) report(c types.Candidate) {
	m.metrics.ObserveImprovement(c.Address.BitLen())
	m.logger.Printf("salt %s, min: %s", c.Salt, c.Address.Hex())
}

func (m *Miner) drop(c types.Candidate) {
	m.logger.Debugf("worker %d candidate %s is no longer below the minimum", c.Worker, c.Address.Hex())
}

// GetBestResult returns the current best result, nil before the first
// improvement.
func (m *Miner) GetBestResult() *types.Result {
	best, ok := m.tracker.Best()
	if !ok {
		return nil
	}
	return &types.Result{
		Salt:     best.Salt,
		Address:  best.Address,
		Worker:   best.Worker,
		Attempts: m.attempts.Load(),
		Duration: time.Since(m.start),
	}
}

// Attempts returns the number of salts derived so far.
func (m *Miner) Attempts() int64 {
	return m.attempts.Load()
}

// periodicLogger logs mining progress at regular intervals
func (m *Miner) periodicLogger(ticker *time.Ticker, done <-chan struct{}) {
	for {
		select {
		case <-ticker.C:
			attempts := m.Attempts()
			elapsed := time.Since(m.start)

			rate := 0.0
			if elapsed.Seconds() > 0 {
				rate = float64(attempts) / elapsed.Seconds()
			}

			if best := m.GetBestResult(); best != nil {
				m.logger.Printf("Progress: %d attempts, %.2f addresses/sec, best so far: %s (salt: %s)",
					attempts, rate, best.Address.Hex(), best.Salt)
			} else {
				m.logger.Printf("Progress: %d attempts, %.2f addresses/sec, no improvement yet",
					attempts, rate)
			}
		case <-done:
			return
		}
	}
}
