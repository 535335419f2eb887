/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: metrics.go
Description: Prometheus metrics for fuzzing runs. Tracks optimizer steps, accepted proposals,
new-coverage discoveries, reweighting rounds, scores, covered events, oracle latency and
per-sampler output. Metrics register on an injected registry so that several runs, and
tests, can coexist in one process.
*/

package monitoring

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const namespace = "glade"

// Metrics holds the collectors of one fuzzing run. A nil *Metrics discards every
// observation.
type Metrics struct {
	Steps          prometheus.Counter
	Accepted       prometheus.Counter
	NewCoverage    prometheus.Counter
	Reweights      prometheus.Counter
	BestScore      prometheus.Gauge
	CurrentScore   prometheus.Gauge
	CoveredEvents  prometheus.Gauge
	OracleDuration prometheus.Histogram
	Samples        *prometheus.CounterVec
}

// NewMetrics creates and registers the run collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Steps: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "steps_total",
			Help:      "Total number of optimizer steps",
		}),
		Accepted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "accepted_total",
			Help:      "Proposals accepted into the working population",
		}),
		NewCoverage: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "new_coverage_total",
			Help:      "Samples that covered at least one new event",
		}),
		Reweights: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "reweights_total",
			Help:      "Number of bit reweighting rounds",
		}),
		BestScore: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "best_score",
			Help:      "Weighted score of the best population",
		}),
		CurrentScore: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "current_score",
			Help:      "Weighted score of the working population",
		}),
		CoveredEvents: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "covered_events",
			Help:      "Coverage events hit by any sample so far",
		}),
		OracleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "duration_seconds",
			Help:      "Time spent in coverage oracle calls",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		Samples: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sampler",
			Name:      "samples_total",
			Help:      "Samples drawn per sampler",
		}, []string{"sampler"}),
	}
}

// ObserveStep records one optimizer step.
func (m *Metrics) ObserveStep(accepted bool, current, best float64) {
	if m == nil {
		return
	}
	m.Steps.Inc()
	if accepted {
		m.Accepted.Inc()
	}
	m.CurrentScore.Set(current)
	m.BestScore.Set(best)
}

// ObserveCoverage records a sample that found new events.
func (m *Metrics) ObserveCoverage(covered int) {
	if m == nil {
		return
	}
	m.NewCoverage.Inc()
	m.CoveredEvents.Set(float64(covered))
}

// ObserveReweight records one reweighting round.
func (m *Metrics) ObserveReweight(best float64) {
	if m == nil {
		return
	}
	m.Reweights.Inc()
	m.BestScore.Set(best)
	m.CurrentScore.Set(best)
}

// ObserveOracle records the latency of one oracle call.
func (m *Metrics) ObserveOracle(d time.Duration) {
	if m == nil {
		return
	}
	m.OracleDuration.Observe(d.Seconds())
}

// ObserveSample counts one sample from the named sampler.
func (m *Metrics) ObserveSample(sampler string) {
	if m == nil {
		return
	}
	m.Samples.WithLabelValues(sampler).Inc()
}

// Serve exposes /metrics for gatherer on addr until ctx ends.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger logrus.FieldLogger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", addr).Info("Serving metrics")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
