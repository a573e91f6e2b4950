package download

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// MaxConcurrency caps any requested pool limit.
const MaxConcurrency = 20

// ExecFunc runs one job to a terminal state.
type ExecFunc func(ctx context.Context, job *Job) Result

// SettleFunc is called once per job as it becomes terminal. Calls are
// serialised.
type SettleFunc func(job *Job, res Result)

// PoolConfig tunes a Pool.
type PoolConfig struct {
	Concurrency int
	BatchDelay  time.Duration
}

// Pool runs jobs in fixed-size batches; a batch fully settles before the
// next one starts.
type Pool struct {
	limit int
	delay time.Duration
	log   *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// NewPool creates a pool. Concurrency is clamped to [1, MaxConcurrency].
func NewPool(cfg PoolConfig, log *slog.Logger) *Pool {
	if log == nil {
		log = slog.Default()
	}
	limit := cfg.Concurrency
	if limit <= 0 {
		limit = 3
	}
	return &Pool{
		limit: min(limit, MaxConcurrency),
		delay: cfg.BatchDelay,
		log:   log,
		sleep: sleepCtx,
	}
}

// Limit returns the effective batch size.
func (p *Pool) Limit() int {
	return p.limit
}

// Run executes jobs ordered by descending Priority (ties keep submission
// order). Every job is settled exactly once, including jobs that never
// started because ctx was cancelled; in that case Run returns ctx.Err().
func (p *Pool) Run(ctx context.Context, jobs []*Job, exec ExecFunc, settle SettleFunc) error {
	ordered := slices.Clone(jobs)
	slices.SortStableFunc(ordered, func(a, b *Job) int {
		return cmp.Compare(b.Priority, a.Priority)
	})

	var mu sync.Mutex
	settleOne := func(job *Job, res Result) {
		mu.Lock()
		defer mu.Unlock()
		settle(job, res)
	}

	batches := (len(ordered) + p.limit - 1) / p.limit
	for i, start := 0, 0; start < len(ordered); i, start = i+1, start+p.limit {
		batch := ordered[start:min(start+p.limit, len(ordered))]

		if start > 0 {
			if err := p.sleep(ctx, p.delay); err != nil {
				p.abandon(ordered[start:], err, settleOne)
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			p.abandon(ordered[start:], err, settleOne)
			return err
		}

		batchStart := time.Now()
		var g errgroup.Group
		for _, job := range batch {
			g.Go(func() error {
				res := exec(ctx, job)
				if res.Attempts > 1 {
					job.RetryCount = res.Attempts - 1
				}
				settleOne(job, res)
				return nil
			})
		}
		_ = g.Wait()

		p.log.Debug("batch settled",
			"batch", i+1,
			"batches", batches,
			"jobs", len(batch),
			"duration_ms", time.Since(batchStart).Milliseconds(),
		)
	}
	return nil
}

// abandon settles jobs that never started.
func (p *Pool) abandon(jobs []*Job, cause error, settle SettleFunc) {
	p.log.Info("pool cancelled", "remaining", len(jobs), "error", cause)
	for _, job := range jobs {
		settle(job, Result{
			JobID:   job.ID,
			VideoID: job.VideoID,
			Status:  StatusCancelled,
			Path:    job.DestinationPath,
			Err:     fmt.Errorf("%w: %w", ErrCancelled, cause),
		})
	}
}
