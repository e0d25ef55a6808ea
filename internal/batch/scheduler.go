package batch

import (
	"context"
	"log/slog"
	"sync"

	"stitcher/internal/job"
	"stitcher/internal/logging"
	"stitcher/internal/services"
)

// Runner executes one download job. *job.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, req job.Request) job.Result
}

// Summary aggregates the results of a batch run in input order.
type Summary struct {
	Results []job.Result
}

// AllSucceeded reports whether every job in the batch produced its output.
func (s Summary) AllSucceeded() bool {
	for _, r := range s.Results {
		if !r.Succeeded() {
			return false
		}
	}
	return true
}

// Failed counts the jobs that ended with an error.
func (s Summary) Failed() int {
	n := 0
	for _, r := range s.Results {
		if !r.Succeeded() {
			n++
		}
	}
	return n
}

// Scheduler runs jobs through a bounded worker pool. When a worker finishes
// a job it immediately picks up the next queued one, so at most `workers`
// jobs are in flight at any time.
type Scheduler struct {
	runner  Runner
	workers int
	logger  *slog.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithLogger sets the scheduler's logging destination.
func WithLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = logging.NewComponentLogger(logger, "batch") }
}

// NewScheduler constructs a Scheduler over the given runner.
func NewScheduler(runner Runner, workers int, opts ...SchedulerOption) *Scheduler {
	if workers <= 0 {
		workers = 1
	}
	s := &Scheduler{runner: runner, workers: workers, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes every request and returns one result per request, in input
// order. A failing job never blocks or fails the others; cancellation of ctx
// stops feeding new jobs but lets in-flight ones report.
func (s *Scheduler) Run(ctx context.Context, requests []job.Request) Summary {
	s.logger.Info("starting batch",
		logging.Int("jobs", len(requests)),
		logging.Int("workers", s.workers),
	)

	results := make([]job.Result, len(requests))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = s.runner.Run(ctx, requests[i])
			}
		}()
	}

	fed := 0
feed:
	for i := range requests {
		select {
		case jobs <- i:
			fed++
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	// Requests never handed to a worker still get a result.
	for i := fed; i < len(requests); i++ {
		results[i] = job.Result{
			Locator: requests[i].Locator,
			Scene:   requests[i].SceneNumber,
			Status:  job.StatusDone,
			Err:     services.Wrap(services.ErrTransient, "batch", "run", "batch canceled", ctx.Err()),
		}
	}

	summary := Summary{Results: results}
	s.logger.Info("batch finished",
		logging.Int("jobs", len(requests)),
		logging.Int("failed", summary.Failed()),
	)
	return summary
}
