package download

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJobs(n int) []*Job {
	jobs := make([]*Job, n)
	for i := range jobs {
		jobs[i] = &Job{ID: fmt.Sprintf("job-%d", i), VideoID: fmt.Sprintf("v%d", i)}
	}
	return jobs
}

func testPool(concurrency int) (*Pool, *atomic.Int32) {
	p := NewPool(PoolConfig{Concurrency: concurrency, BatchDelay: time.Second}, testLogger())
	var sleeps atomic.Int32
	p.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps.Add(1)
		return ctx.Err()
	}
	return p, &sleeps
}

func TestNewPool_Limit(t *testing.T) {
	assert.Equal(t, 3, NewPool(PoolConfig{}, nil).Limit())
	assert.Equal(t, 7, NewPool(PoolConfig{Concurrency: 7}, nil).Limit())
	assert.Equal(t, MaxConcurrency, NewPool(PoolConfig{Concurrency: 50}, nil).Limit())
}

func TestPool_BatchesSettleInOrder(t *testing.T) {
	p, sleeps := testPool(3)

	var mu sync.Mutex
	var trace []string
	record := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		trace = append(trace, s)
	}
	p.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps.Add(1)
		record("sleep")
		return nil
	}

	var inFlight, peak atomic.Int32
	exec := func(ctx context.Context, job *Job) Result {
		n := inFlight.Add(1)
		for {
			cur := peak.Load()
			if n <= cur || peak.CompareAndSwap(cur, n) {
				break
			}
		}
		record("start")
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		record("end")
		return Result{JobID: job.ID, Status: StatusCompleted, Success: true}
	}

	settled := map[string]int{}
	err := p.Run(context.Background(), testJobs(10), exec, func(job *Job, res Result) {
		settled[job.ID]++
	})
	require.NoError(t, err)

	assert.Len(t, settled, 10)
	for id, n := range settled {
		assert.Equal(t, 1, n, "job %s settled once", id)
	}
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Equal(t, int32(3), sleeps.Load())

	// Split the trace at each inter-batch sleep.
	var sizes []int
	starts, ends := 0, 0
	for _, ev := range append(trace, "sleep") {
		switch ev {
		case "start":
			starts++
		case "end":
			ends++
		case "sleep":
			assert.Equal(t, starts, ends, "every job of a batch is terminal before the next starts")
			sizes = append(sizes, starts)
			starts, ends = 0, 0
		}
	}
	assert.Equal(t, []int{3, 3, 3, 1}, sizes)
}

func TestPool_PriorityOrdering(t *testing.T) {
	p, _ := testPool(1)
	jobs := testJobs(5)
	jobs[1].Priority = 5
	jobs[3].Priority = 5
	jobs[4].Priority = 1

	var order []string
	exec := func(ctx context.Context, job *Job) Result {
		order = append(order, job.ID)
		return Result{Status: StatusCompleted}
	}
	require.NoError(t, p.Run(context.Background(), jobs, exec, func(*Job, Result) {}))

	assert.Equal(t, []string{"job-1", "job-3", "job-4", "job-0", "job-2"}, order)
	assert.Equal(t, "job-0", jobs[0].ID, "input slice is not reordered")
}

func TestPool_SetsRetryCount(t *testing.T) {
	p, _ := testPool(2)
	jobs := testJobs(2)

	exec := func(ctx context.Context, job *Job) Result {
		if job.ID == "job-0" {
			return Result{Status: StatusError, Attempts: 4}
		}
		return Result{Status: StatusCompleted, Attempts: 1}
	}
	require.NoError(t, p.Run(context.Background(), jobs, exec, func(*Job, Result) {}))

	assert.Equal(t, 3, jobs[0].RetryCount)
	assert.Equal(t, 0, jobs[1].RetryCount)
}

func TestPool_SettleIsSerialised(t *testing.T) {
	p, _ := testPool(20)

	count := 0
	exec := func(ctx context.Context, job *Job) Result { return Result{Status: StatusCompleted} }
	require.NoError(t, p.Run(context.Background(), testJobs(40), exec, func(*Job, Result) {
		count++ // unsynchronised on purpose; the race detector checks serialisation
	}))
	assert.Equal(t, 40, count)
}

func TestPool_CancelSettlesRemainingJobs(t *testing.T) {
	p, _ := testPool(2)
	ctx, cancel := context.WithCancel(context.Background())

	exec := func(ctx context.Context, job *Job) Result {
		if job.ID == "job-1" {
			cancel()
		}
		return Result{JobID: job.ID, Status: StatusCompleted, Success: true}
	}

	results := map[string]Result{}
	err := p.Run(ctx, testJobs(5), exec, func(job *Job, res Result) {
		results[job.ID] = res
	})
	require.ErrorIs(t, err, context.Canceled)

	require.Len(t, results, 5)
	assert.True(t, results["job-0"].Success)
	assert.True(t, results["job-1"].Success)
	for _, id := range []string{"job-2", "job-3", "job-4"} {
		assert.Equal(t, StatusCancelled, results[id].Status)
		assert.ErrorIs(t, results[id].Err, ErrCancelled)
	}
}

func TestPool_Empty(t *testing.T) {
	p, sleeps := testPool(3)
	called := false
	err := p.Run(context.Background(), nil, func(context.Context, *Job) Result {
		called = true
		return Result{}
	}, func(*Job, Result) {})
	require.NoError(t, err)
	assert.False(t, called)
	assert.Zero(t, sleeps.Load())
}
