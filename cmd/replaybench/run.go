package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/replay"
	prommetrics "github.com/hupe1980/replay/metrics/prometheus"
	"github.com/hupe1980/replay/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Summary is the outcome of a benchmark run.
type Summary struct {
	RunID         string
	Elapsed       time.Duration
	Steps         int64
	Episodes      int64
	Batches       int64
	StaleUpdates  int64
	RejectedAdds  int64
	Stats         replay.Stats
	AddsPerSecond float64
	BatchesPerSec float64
}

// Print writes a human-readable report.
func (s Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "run %s finished in %s\n", s.RunID, s.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "  steps:     %d (%.0f/s) in %d episodes, %d rejected\n", s.Steps, s.AddsPerSecond, s.Episodes, s.RejectedAdds)
	fmt.Fprintf(w, "  batches:   %d (%.1f/s), %d stale priority updates\n", s.Batches, s.BatchesPerSec, s.StaleUpdates)
	fmt.Fprintf(w, "  table:     %d/%d records, %d evictions, %d bytes\n", s.Stats.Len, s.Stats.Cap, s.Stats.Evictions, s.Stats.MemoryBytes)
	fmt.Fprintf(w, "  priority:  total %.3f, max %.3f (%s sampler)\n", s.Stats.TotalPriority, s.Stats.MaxPriority, s.Stats.Sampler)
}

type bench struct {
	cfg       *Config
	table     *replay.Table
	logger    *replay.Logger
	collector *prommetrics.Collector
	start     time.Time

	steps    atomic.Int64
	episodes atomic.Int64
	batches  atomic.Int64
	stale    atomic.Int64
	rejected atomic.Int64
}

// Run executes the benchmark until cfg.Duration elapses or ctx is canceled.
func Run(ctx context.Context, cfg *Config) (Summary, error) {
	level, err := cfg.logLevel()
	if err != nil {
		return Summary{}, err
	}
	runID := uuid.NewString()
	logger := replay.NewTextLogger(level).With("run_id", runID)

	reg := prometheus.NewRegistry()
	collector, err := prommetrics.New(reg, prommetrics.WithConstLabels(prometheus.Labels{"run_id": runID}))
	if err != nil {
		return Summary{}, err
	}

	opts, err := cfg.TableOptions()
	if err != nil {
		return Summary{}, err
	}
	opts = append(opts, replay.WithMetricsCollector(collector), replay.WithLogger(logger))

	table, err := replay.New(cfg.Capacity, opts...)
	if err != nil {
		return Summary{}, err
	}
	defer table.Close()

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "addr", cfg.MetricsAddr, "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("serving metrics", "addr", cfg.MetricsAddr)
	}

	b := &bench{
		cfg:       cfg,
		table:     table,
		logger:    logger,
		collector: collector,
		start:     time.Now(),
	}

	logger.Info("starting benchmark",
		"actors", cfg.Actors,
		"capacity", cfg.Capacity,
		"sampler", cfg.Sampler,
		"duration", cfg.Duration,
	)

	runCtx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	for i := range cfg.Actors {
		g.Go(func() error {
			return b.actor(gctx, i)
		})
	}
	g.Go(func() error {
		return b.learner(gctx)
	})
	g.Go(func() error {
		return b.reporter(gctx)
	})

	if err := g.Wait(); err != nil && !isDone(err) {
		return Summary{}, err
	}

	return b.summary(runID), nil
}

func isDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// actor plays synthetic episodes. Each actor links its own steps with
// LinkFrom so trajectories of concurrent actors never cross.
func (b *bench) actor(ctx context.Context, id int) error {
	rng := testutil.NewRNG(b.cfg.Seed + int64(id) + 1)
	shape := testutil.StepShape{Obs: b.cfg.ObsDim, Act: b.cfg.ActDim}

	var limiter *rate.Limiter
	if b.cfg.StepsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(b.cfg.StepsPerSecond), max(1, int(b.cfg.StepsPerSecond/10)))
	}

	links := newLinks(b.cfg.Lag)

	for {
		links.reset()
		for _, step := range rng.Trajectory(b.cfg.EpisodeLength, shape) {
			if limiter != nil {
				if err := limiter.Wait(ctx); err != nil {
					return err
				}
			} else if err := ctx.Err(); err != nil {
				return err
			}

			eid, err := b.table.Add(ctx, step, links.option(step.Terminal))
			switch {
			case errors.Is(err, replay.ErrMemoryLimitExceeded):
				// The dropped step breaks the chain.
				b.rejected.Add(1)
				links.reset()
				continue
			case err != nil:
				return fmt.Errorf("actor %d: %w", id, err)
			}
			b.steps.Add(1)
			links.added(eid, step.Terminal)
		}
		b.episodes.Add(1)
	}
}

// links is an actor's private lag queue: the EIDs still waiting for the
// record lag steps later, oldest first.
type links struct {
	lag   int
	queue []replay.EID
}

func newLinks(lag int) *links {
	lag = max(lag, 1)
	return &links{lag: lag, queue: make([]replay.EID, 0, lag)}
}

// option returns the add option for the next step. A terminal step closes
// out every queued record.
func (l *links) option(terminal bool) replay.AddOption {
	switch {
	case terminal && len(l.queue) > 0:
		return replay.LinkFrom(l.queue...)
	case !terminal && len(l.queue) == l.lag:
		return replay.LinkFrom(l.queue[0])
	}
	return replay.WithoutLag()
}

// added records a successfully stored step.
func (l *links) added(eid replay.EID, terminal bool) {
	if terminal {
		l.reset()
		return
	}
	if len(l.queue) == l.lag {
		l.queue = append(l.queue[:0], l.queue[1:]...)
	}
	l.queue = append(l.queue, eid)
}

func (l *links) reset() {
	l.queue = l.queue[:0]
}

// learner samples batches and writes back synthetic TD-error priorities.
func (b *bench) learner(ctx context.Context) error {
	rng := testutil.NewRNG(b.cfg.Seed)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		beta := b.cfg.Beta(time.Since(b.start))
		s, err := b.table.Sample(ctx, b.cfg.BatchSize, replay.WithSampleBeta(beta))
		if errors.Is(err, replay.ErrEmptyTable) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Millisecond):
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("learner: %w", err)
		}

		priorities := rng.ParetoPriorities(len(s.EIDs), 1.5)
		applied, err := b.table.UpdatePriorities(ctx, s.EIDs, priorities)
		if err != nil {
			return fmt.Errorf("learner: %w", err)
		}
		b.batches.Add(1)
		b.stale.Add(int64(len(s.EIDs) - applied))
	}
}

func (b *bench) reporter(ctx context.Context) error {
	ticker := time.NewTicker(b.cfg.ReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			stats := b.table.Stats()
			b.collector.ObserveStats(stats)
			b.logger.InfoContext(ctx, "progress",
				"elapsed", time.Since(b.start).Round(time.Millisecond),
				"steps", b.steps.Load(),
				"batches", b.batches.Load(),
				"records", stats.Len,
				"evictions", stats.Evictions,
				"memory_bytes", stats.MemoryBytes,
			)
		}
	}
}

func (b *bench) summary(runID string) Summary {
	elapsed := time.Since(b.start)
	stats := b.table.Stats()
	b.collector.ObserveStats(stats)

	secs := elapsed.Seconds()
	return Summary{
		RunID:         runID,
		Elapsed:       elapsed,
		Steps:         b.steps.Load(),
		Episodes:      b.episodes.Load(),
		Batches:       b.batches.Load(),
		StaleUpdates:  b.stale.Load(),
		RejectedAdds:  b.rejected.Load(),
		Stats:         stats,
		AddsPerSecond: float64(b.steps.Load()) / secs,
		BatchesPerSec: float64(b.batches.Load()) / secs,
	}
}
