package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"stitcher/internal/client"
	"stitcher/internal/logging"
	"stitcher/internal/media"
	"stitcher/internal/plan"
	"stitcher/internal/progress"
	"stitcher/internal/services"
)

// Refresher re-derives the stream base URL after the service expires it.
type Refresher interface {
	RefreshBaseURL(ctx context.Context, locator string) (string, error)
}

// Options control fetch behavior for one job.
type Options struct {
	// Threads bounds concurrent segment downloads per stream.
	Threads int
	// Overwrite forces a re-fetch of segments already on disk.
	Overwrite bool
	// Validate runs fetched and resumed segment payloads through the media
	// validator before accepting them.
	Validate bool
	// FinalSegmentIndex is the last data segment index of the whole title.
	// A 404 there is tolerated because the segment count is a rounded-up
	// estimate.
	FinalSegmentIndex int
}

// StreamResult reports which data segments of a stream plan actually landed
// on disk, in ascending index order. It can be shorter than the plan when the
// estimated final segment did not exist.
type StreamResult struct {
	Plan    *plan.StreamPlan
	Fetched []plan.SegmentDescriptor
}

// Fetcher downloads the segments of a stream plan with a bounded worker pool.
// All workers share one base URL; a 403 triggers a single serialized refresh
// and the stale-base retry happens under the new URL.
type Fetcher struct {
	session   *client.Session
	refresher Refresher
	validator media.Validator
	locator   string
	opts      Options
	logger    *slog.Logger
	reporter  progress.Reporter

	mu      sync.Mutex
	baseURL string
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithValidator enables payload validation.
func WithValidator(v media.Validator) Option {
	return func(f *Fetcher) { f.validator = v }
}

// WithLogger sets the fetcher's logging destination.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = logging.NewComponentLogger(logger, "fetch") }
}

// WithProgress sets the progress reporter.
func WithProgress(r progress.Reporter) Option {
	return func(f *Fetcher) { f.reporter = r }
}

// New constructs a Fetcher for one title. baseURL is the stream base from the
// resolved manifest; locator is kept for base refreshes.
func New(session *client.Session, refresher Refresher, baseURL, locator string, opts Options, fopts ...Option) *Fetcher {
	if opts.Threads <= 0 {
		opts.Threads = 1
	}
	f := &Fetcher{
		session:   session,
		refresher: refresher,
		locator:   locator,
		opts:      opts,
		logger:    logging.NewNop(),
		reporter:  progress.NewNop(),
		baseURL:   baseURL,
	}
	for _, opt := range fopts {
		opt(f)
	}
	return f
}

// FetchStream downloads the init segment and then the data segments of sp.
// The first failing segment cancels the remaining workers and fails the
// stream; segments already written stay on disk for a later resume.
func (f *Fetcher) FetchStream(ctx context.Context, sp *plan.StreamPlan) (*StreamResult, error) {
	task := f.reporter.StartTask(fmt.Sprintf("%s download", sp.Stream), len(sp.Segments)+1)
	defer task.Finish()

	if _, err := f.fetchSegment(ctx, sp.Init); err != nil {
		return nil, err
	}
	task.Advance(1)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		desc    plan.SegmentDescriptor
		skipped bool
	}
	outcomes := make([]outcome, len(sp.Segments))
	jobs := make(chan int)

	var wg sync.WaitGroup
	var once sync.Once
	var firstErr error
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for w := 0; w < f.opts.Threads; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				skipped, err := f.fetchSegment(ctx, sp.Segments[i])
				if err != nil {
					fail(err)
					return
				}
				outcomes[i] = outcome{desc: sp.Segments[i], skipped: skipped}
				task.Advance(1)
			}
		}()
	}

feed:
	for i := range sp.Segments {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, services.Wrap(services.ErrSegmentFetch, "fetch", "stream", "download canceled", err)
	}

	result := &StreamResult{Plan: sp}
	for _, o := range outcomes {
		if o.skipped {
			f.logger.Debug("final segment absent on server, shrinking range",
				logging.String(logging.FieldStream, string(sp.Stream)),
				logging.Int(logging.FieldSegment, o.desc.Index),
			)
			continue
		}
		result.Fetched = append(result.Fetched, o.desc)
	}
	return result, nil
}

// fetchSegment downloads one segment to its local path. It reports
// skipped=true when the estimated final segment turned out not to exist.
func (f *Fetcher) fetchSegment(ctx context.Context, desc plan.SegmentDescriptor) (skipped bool, err error) {
	if !f.opts.Overwrite {
		if ok, err := f.resumeExisting(ctx, desc); err != nil {
			return false, err
		} else if ok {
			return false, nil
		}
	}

	base := f.currentBase()
	resp, err := f.session.GetSegment(ctx, base+"/"+desc.RemoteName)
	if err != nil {
		return false, services.Wrap(services.ErrSegmentFetch, "fetch", "segment", desc.RemoteName, err)
	}

	if resp.Status == 403 {
		// Stream URLs expire. One worker refreshes, the rest pick up the
		// new base and retry.
		base, err = f.refreshBase(ctx, base)
		if err != nil {
			return false, err
		}
		resp, err = f.session.GetSegment(ctx, base+"/"+desc.RemoteName)
		if err != nil {
			return false, services.Wrap(services.ErrSegmentFetch, "fetch", "segment", desc.RemoteName, err)
		}
	}

	switch {
	case resp.OK():
		return false, f.accept(ctx, desc, resp.Body)
	case resp.Status == 404 && !desc.Init && desc.Index == f.opts.FinalSegmentIndex:
		return true, nil
	default:
		return false, services.Wrap(services.ErrSegmentFetch, "fetch", "segment",
			fmt.Sprintf("%s returned %d", desc.RemoteName, resp.Status), nil)
	}
}

// resumeExisting reports whether the segment already on disk can be kept.
// An empty file or one that fails validation is removed so the caller
// re-fetches it.
func (f *Fetcher) resumeExisting(ctx context.Context, desc plan.SegmentDescriptor) (bool, error) {
	data, err := os.ReadFile(desc.LocalPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, services.Wrap(services.ErrSegmentFetch, "fetch", "resume", desc.LocalPath, err)
	}
	if len(data) == 0 {
		f.logger.Warn("discarding empty resumed segment", logging.String("path", desc.LocalPath))
		if err := os.Remove(desc.LocalPath); err != nil {
			return false, services.Wrap(services.ErrSegmentFetch, "fetch", "resume", desc.LocalPath, err)
		}
		return false, nil
	}
	if f.opts.Validate && f.validator != nil {
		if err := f.validator.Validate(ctx, data); err != nil {
			f.logger.Warn("discarding invalid resumed segment", logging.String("path", desc.LocalPath))
			if err := os.Remove(desc.LocalPath); err != nil {
				return false, services.Wrap(services.ErrSegmentFetch, "fetch", "resume", desc.LocalPath, err)
			}
			return false, nil
		}
	}
	f.logger.Debug("segment found on disk", logging.Int(logging.FieldSegment, desc.Index))
	return true, nil
}

// accept validates a fresh payload and writes it to disk. A payload that
// fails validation is fetched once more before giving up.
func (f *Fetcher) accept(ctx context.Context, desc plan.SegmentDescriptor, data []byte) error {
	if f.opts.Validate && f.validator != nil {
		if err := f.validator.Validate(ctx, data); err != nil {
			f.logger.Warn("segment failed validation, re-fetching",
				logging.String("name", desc.RemoteName))
			resp, rerr := f.session.GetSegment(ctx, f.currentBase()+"/"+desc.RemoteName)
			if rerr != nil {
				return services.Wrap(services.ErrSegmentFetch, "fetch", "segment", desc.RemoteName, rerr)
			}
			if !resp.OK() {
				return services.Wrap(services.ErrSegmentFetch, "fetch", "segment",
					fmt.Sprintf("%s returned %d", desc.RemoteName, resp.Status), nil)
			}
			if err := f.validator.Validate(ctx, resp.Body); err != nil {
				return services.Wrap(services.ErrValidation, "fetch", "segment", desc.RemoteName, err)
			}
			data = resp.Body
		}
	}
	if err := os.WriteFile(desc.LocalPath, data, 0o644); err != nil {
		return services.Wrap(services.ErrSegmentFetch, "fetch", "segment", desc.LocalPath, err)
	}
	return nil
}

func (f *Fetcher) currentBase() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.baseURL
}

// refreshBase swaps in a fresh base URL. Workers that raced in behind the
// first refresher see the already-updated base and skip the remote call.
func (f *Fetcher) refreshBase(ctx context.Context, stale string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.baseURL != stale {
		return f.baseURL, nil
	}
	f.logger.Info("stream URL expired, refreshing manifest")
	fresh, err := f.refresher.RefreshBaseURL(ctx, f.locator)
	if err != nil {
		return "", services.Wrap(services.ErrSegmentFetch, "fetch", "refresh", "manifest refresh failed", err)
	}
	f.baseURL = fresh
	return fresh, nil
}
