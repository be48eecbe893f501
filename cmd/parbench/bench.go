package main

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"github.com/utkarsh5026/parmap/internal/config"
	"github.com/utkarsh5026/parmap/parallel"
	"github.com/utkarsh5026/parmap/pool"
)

// result summarizes the runs for one worker count.
type result struct {
	Workers  int
	Runs     []time.Duration
	Best     time.Duration
	Mean     time.Duration
	Verified bool
	Err      error
}

// ItemsPerSec is the throughput of the best run.
func (r result) ItemsPerSec(items int) float64 {
	if r.Best <= 0 {
		return 0
	}
	return float64(items) / r.Best.Seconds()
}

// benchmark runs cfg.Runs timed runs for every configured worker count and
// checks each run against the sequential reference.
type benchmark struct {
	cfg    *config.Config
	fn     workloadFunc
	items  []uint64
	want   uint64
	logger zerolog.Logger
	bar    *progressbar.ProgressBar
}

func newBenchmark(cfg *config.Config, logger zerolog.Logger, bar *progressbar.ProgressBar) (*benchmark, error) {
	fn, err := lookupWorkload(cfg.Workload)
	if err != nil {
		return nil, err
	}

	items := inputs(cfg.Items)
	start := time.Now()
	want := checksum(sequential(fn, cfg.Stages, items))
	logger.Debug().Dur("elapsed", time.Since(start)).Msg("sequential reference computed")

	return &benchmark{
		cfg:    cfg,
		fn:     fn,
		items:  items,
		want:   want,
		logger: logger,
		bar:    bar,
	}, nil
}

// Run executes every configuration. A failing worker count is recorded in
// its result; only a cancelled ctx stops the whole benchmark.
func (b *benchmark) Run(ctx context.Context) ([]result, error) {
	results := make([]result, 0, len(b.cfg.Workers))

	for _, workers := range b.cfg.Workers {
		if b.bar != nil {
			b.bar.Describe(fmt.Sprintf("workers=%d", workers))
		}

		res := result{Workers: workers, Verified: true}
		for range b.cfg.Runs {
			elapsed, ok, err := b.runOnce(ctx, workers)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				res.Err = err
				b.logger.Warn().Err(err).Int("workers", workers).Msg("run failed")
				break
			}
			res.Runs = append(res.Runs, elapsed)
			res.Verified = res.Verified && ok

			if b.bar != nil {
				_ = b.bar.Add(1)
			}
		}

		summarize(&res)
		results = append(results, res)
	}

	return results, nil
}

func (b *benchmark) runOnce(ctx context.Context, workers int) (time.Duration, bool, error) {
	opts := []pool.WorkerPoolOption{
		pool.WithWorkerCount(workers),
		pool.WithCPUAffinity(b.cfg.CPUAffinity),
		pool.WithLogger(b.logger),
	}
	if b.cfg.RateLimit > 0 {
		opts = append(opts, pool.WithRateLimit(b.cfg.RateLimit, max(workers, 1)))
	}

	stage := parallel.Adapt(func(v uint64) uint64 { return b.fn(v) })

	start := time.Now()
	var out []uint64
	var err error
	if b.cfg.Stages == 1 {
		out, err = parallel.Map(ctx, stage, b.items, opts...)
	} else {
		p := parallel.NewPipeline[uint64](opts...)
		for i := range b.cfg.Stages {
			p.Then(fmt.Sprintf("%s-%d", b.cfg.Workload, i), stage)
		}
		out, err = p.Run(ctx, b.items)
	}
	elapsed := time.Since(start)
	if err != nil {
		return 0, false, err
	}

	ok := checksum(out) == b.want
	if !ok {
		b.logger.Error().Int("workers", workers).Msg("output differs from sequential reference")
	}
	return elapsed, ok, nil
}

func summarize(r *result) {
	if len(r.Runs) == 0 {
		r.Verified = false
		return
	}

	r.Best = slices.Min(r.Runs)
	var total time.Duration
	for _, d := range r.Runs {
		total += d
	}
	r.Mean = total / time.Duration(len(r.Runs))
}

// speedup compares r against the baseline result, usually the first one.
func speedup(r, baseline result) float64 {
	if r.Best <= 0 || baseline.Best <= 0 {
		return 0
	}
	return float64(baseline.Best) / float64(r.Best)
}
