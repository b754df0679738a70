// Package metrics exposes search progress to Prometheus.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "salt_miner"

// Metrics holds the collectors of one miner. Every miner owns a private
// registry so several can coexist in one process.
type Metrics struct {
	Registry *prometheus.Registry

	Improvements  prometheus.Counter
	BestBits      prometheus.Gauge
	Workers       prometheus.Gauge
	EstimatedRate prometheus.Gauge
}

// New registers the collectors. attempts is read on every scrape.
func New(attempts func() float64) *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Improvements: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "improvements_total",
			Help:      "Number of times the global minimum address decreased.",
		}),
		BestBits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_bits",
			Help:      "Bit length of the smallest address found so far.",
		}),
		Workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workers",
			Help:      "Number of running search workers.",
		}),
		EstimatedRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "estimated_rate",
			Help:      "Derivations per second measured before the search started.",
		}),
	}

	m.Registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Number of salts derived by all workers.",
		}, attempts),
		m.Improvements,
		m.BestBits,
		m.Workers,
		m.EstimatedRate,
	)
	return m
}

// ObserveImprovement records a new global minimum of the given bit length.
func (m *Metrics) ObserveImprovement(bits int) {
	m.Improvements.Inc()
	m.BestBits.Set(float64(bits))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return errors.Wrapf(err, "serving metrics on %s", addr)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
