package job

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"stitcher/internal/assembly"
	"stitcher/internal/client"
	"stitcher/internal/config"
	"stitcher/internal/fetch"
	"stitcher/internal/logging"
	"stitcher/internal/manifest"
	"stitcher/internal/media"
	"stitcher/internal/plan"
	"stitcher/internal/progress"
	"stitcher/internal/services"
	"stitcher/internal/textutil"
)

// Resolver fetches title manifests.
type Resolver interface {
	Resolve(ctx context.Context, locator string) (*manifest.Manifest, error)
	RefreshBaseURL(ctx context.Context, locator string) (string, error)
}

// StreamFetcher downloads the segments of one stream plan.
type StreamFetcher interface {
	FetchStream(ctx context.Context, sp *plan.StreamPlan) (*fetch.StreamResult, error)
}

// FetcherFactory builds a StreamFetcher bound to a title's base URL.
type FetcherFactory func(baseURL, locator string, opts fetch.Options) StreamFetcher

// Assembler turns fetched artifacts into the output file.
type Assembler interface {
	Assemble(ctx context.Context, artifacts []assembly.StreamArtifact, workDir, outputPath string, meta *assembly.Metadata) error
}

// Orchestrator runs one download job through its stages.
type Orchestrator struct {
	cfg        *config.Config
	session    *client.Session
	resolver   Resolver
	newFetcher FetcherFactory
	assembler  Assembler
	validator  media.Validator
	logger     *slog.Logger
	reporter   progress.Reporter
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithResolver overrides the manifest resolver.
func WithResolver(r Resolver) Option {
	return func(o *Orchestrator) { o.resolver = r }
}

// WithFetcherFactory overrides how stream fetchers are built.
func WithFetcherFactory(f FetcherFactory) Option {
	return func(o *Orchestrator) { o.newFetcher = f }
}

// WithAssembler overrides the assembly pipeline.
func WithAssembler(a Assembler) Option {
	return func(o *Orchestrator) { o.assembler = a }
}

// WithValidator sets the media validator used for probing and segment checks.
func WithValidator(v media.Validator) Option {
	return func(o *Orchestrator) { o.validator = v }
}

// WithLogger sets the orchestrator's logging destination.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logging.NewComponentLogger(logger, "job") }
}

// WithProgress sets the progress reporter handed to fetch and assembly.
func WithProgress(r progress.Reporter) Option {
	return func(o *Orchestrator) { o.reporter = r }
}

// New constructs an Orchestrator with production collaborators. Tests swap
// them out through options.
func New(cfg *config.Config, session *client.Session, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		session:  session,
		logger:   logging.NewNop(),
		reporter: progress.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.validator == nil {
		o.validator = media.NewFFmpegValidator(cfg.FFmpegBinary())
	}
	if o.resolver == nil {
		o.resolver = manifest.NewResolver(session,
			manifest.WithValidator(o.validator),
			manifest.WithLogger(o.logger),
		)
	}
	if o.newFetcher == nil {
		o.newFetcher = func(baseURL, locator string, fopts fetch.Options) StreamFetcher {
			return fetch.New(session, o.resolver, baseURL, locator, fopts,
				fetch.WithValidator(o.validator),
				fetch.WithLogger(o.logger),
				fetch.WithProgress(o.reporter),
			)
		}
	}
	if o.assembler == nil {
		muxer := assembly.NewMuxer(
			assembly.WithBinary(cfg.FFmpegBinary()),
			assembly.WithMuxLogger(o.logger),
		)
		o.assembler = assembly.NewPipeline(muxer, assembly.Policy{
			KeepSegments:    cfg.Output.KeepSegments,
			AggressiveClean: cfg.Output.AggressiveClean,
		},
			assembly.WithPipelineLogger(o.logger),
			assembly.WithPipelineProgress(o.reporter),
		)
	}
	return o
}

// Run executes the job and always returns a Result; failures are carried on
// the result instead of aborting the caller, so batch runs continue past a
// bad title.
func (o *Orchestrator) Run(ctx context.Context, req Request) Result {
	started := time.Now()
	result := Result{
		ID:      uuid.NewString(),
		Locator: req.Locator,
		Scene:   req.SceneNumber,
		Status:  StatusPending,
	}
	logger := o.logger.With(logging.String(logging.FieldJobID, result.ID))

	err := o.run(ctx, req, &result, logger)
	result.Status = StatusDone
	result.Err = err
	result.Elapsed = time.Since(started)
	if err != nil {
		logger.Error("job failed", logging.Error(err))
	} else {
		logger.Info("job complete",
			logging.String("output", result.OutputPath),
			logging.String("elapsed", result.Elapsed.Round(time.Second).String()),
		)
	}
	return result
}

func (o *Orchestrator) run(ctx context.Context, req Request, result *Result, logger *slog.Logger) error {
	result.Status = StatusResolving
	logger.Info("resolving title", logging.String("locator", req.Locator))
	m, err := o.resolver.Resolve(ctx, req.Locator)
	if err != nil {
		return err
	}
	result.Title = m.Title.Name

	variant, err := plan.Select(m.Ladder, req.RequestedHeight, req.ForceHeight)
	if err != nil {
		return err
	}
	result.Height = variant.Height
	logger.Info("selected variant",
		logging.String("title", m.Title.Name),
		logging.Int("height", variant.Height),
	)

	rng, err := plan.ResolveRange(m, plan.RangeSpec{
		SceneNumber:    req.SceneNumber,
		PaddingSeconds: req.PaddingSeconds,
		StartSegment:   req.StartSegment,
		EndSegment:     req.EndSegment,
	})
	if err != nil {
		return err
	}

	// Scene jobs for the same title get their own subdirectory so a batch
	// can download several scenes of one title in parallel.
	workName := m.Title.ID
	if req.SceneNumber > 0 {
		workName = fmt.Sprintf("%s_s%d", m.Title.ID, req.SceneNumber)
	}
	workDir := filepath.Join(o.cfg.Paths.WorkDir, workName)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "job", "workdir", workDir, err)
	}
	if err := os.MkdirAll(o.cfg.Paths.OutputDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "job", "outputdir", o.cfg.Paths.OutputDir, err)
	}

	// One job per work directory at a time; a second job on the same
	// title and scene would race on the segment files.
	lock := flock.New(workDir + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "job", "lock", workDir, err)
	}
	if !locked {
		return services.Wrap(services.ErrConfiguration, "job", "lock",
			fmt.Sprintf("title %s is already being downloaded", workName), nil)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}()

	videoID, audioID := variant.ID, m.AudioVariantID
	switch o.cfg.Output.TargetStream {
	case "audio":
		videoID = ""
	case "video":
		audioID = ""
	}
	p := plan.Build(videoID, audioID, rng, workDir)

	result.OutputPath = filepath.Join(o.cfg.Paths.OutputDir, o.fileName(m, req, variant, p.Video != nil)+".mp4")

	result.Status = StatusFetching
	fetcher := o.newFetcher(m.BaseStreamURL, req.Locator, fetch.Options{
		Threads:           o.cfg.Download.Threads,
		Overwrite:         o.cfg.Output.Overwrite,
		Validate:          o.cfg.Download.ValidateSegments,
		FinalSegmentIndex: m.TotalDataSegments,
	})
	var artifacts []assembly.StreamArtifact
	for _, sp := range p.Streams() {
		logger.Info("downloading stream",
			logging.String(logging.FieldStream, string(sp.Stream)),
			logging.Int("segments", len(sp.Segments)+1),
		)
		res, err := fetcher.FetchStream(ctx, sp)
		if err != nil {
			return err
		}
		artifacts = append(artifacts, assembly.StreamArtifact{
			Stream:    sp.Stream,
			VariantID: sp.VariantID,
			Init:      sp.Init,
			Segments:  res.Fetched,
		})
	}

	result.Status = StatusAssembling
	if err := o.assembler.Assemble(ctx, artifacts, workDir, result.OutputPath, o.metadata(m, req)); err != nil {
		return err
	}

	if o.cfg.Output.DownloadCovers {
		o.downloadCovers(ctx, m, strings.TrimSuffix(filepath.Base(result.OutputPath), ".mp4"), logger)
	}
	return nil
}

// fileName composes the output file name the same way for every job so
// re-runs resume into the same artifact.
func (o *Orchestrator) fileName(m *manifest.Manifest, req Request, variant manifest.StreamVariant, hasVideo bool) string {
	name := textutil.DisplayTitle(m.Title.Name)
	if m.Title.Studio != "" {
		name = m.Title.Studio + " - " + name
	}
	if o.cfg.Output.TargetStream != "" {
		name = o.cfg.Output.TargetStream + "_" + name
	}
	if req.SceneNumber > 0 {
		name += fmt.Sprintf(" Scene %d", req.SceneNumber)
	}
	if o.cfg.Output.IncludePerformers {
		if performers := o.performers(m, req.SceneNumber); len(performers) > 0 {
			name += " " + strings.Join(performers, ", ")
		}
	}
	if hasVideo {
		name += fmt.Sprintf(" %dp", variant.Height)
	}
	return textutil.SanitizeFileName(name)
}

func (o *Orchestrator) performers(m *manifest.Manifest, sceneNumber int) []string {
	if sceneNumber > 0 {
		if scene, ok := m.SceneByNumber(sceneNumber); ok && len(scene.Performers) > 0 {
			return scene.Performers
		}
		return nil
	}
	return m.Title.Performers
}

// metadata builds the container metadata. Chapters only make sense for a
// whole-title download.
func (o *Orchestrator) metadata(m *manifest.Manifest, req Request) *assembly.Metadata {
	if !o.cfg.Output.WriteMetadata {
		return nil
	}
	meta := &assembly.Metadata{Title: textutil.DisplayTitle(m.Title.Name)}
	if req.SceneNumber == 0 {
		for _, scene := range m.Title.Scenes {
			meta.Chapters = append(meta.Chapters, assembly.Chapter{
				Title:        fmt.Sprintf("Scene %d", scene.Number),
				StartSeconds: float64(scene.StartSeconds),
				EndSeconds:   float64(scene.EndSeconds),
			})
		}
	}
	return meta
}
