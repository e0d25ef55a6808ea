package assembly

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"stitcher/internal/fileutil"
	"stitcher/internal/logging"
	"stitcher/internal/plan"
	"stitcher/internal/progress"
	"stitcher/internal/services"
)

// Policy controls what happens to intermediate files.
type Policy struct {
	// KeepSegments leaves all segment files in the work directory after a
	// successful run.
	KeepSegments bool
	// AggressiveClean deletes each segment file the moment it has been
	// concatenated, before muxing starts.
	AggressiveClean bool
}

// Pipeline turns fetched stream artifacts into the final output file.
type Pipeline struct {
	muxer    *Muxer
	policy   Policy
	logger   *slog.Logger
	reporter progress.Reporter
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPipelineLogger sets the pipeline's logging destination.
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = logging.NewComponentLogger(logger, "assembly") }
}

// WithPipelineProgress sets the progress reporter.
func WithPipelineProgress(r progress.Reporter) PipelineOption {
	return func(p *Pipeline) { p.reporter = r }
}

// NewPipeline constructs a Pipeline around the given muxer.
func NewPipeline(muxer *Muxer, policy Policy, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		muxer:    muxer,
		policy:   policy,
		logger:   logging.NewNop(),
		reporter: progress.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Assemble concatenates each artifact into a per-stream file, muxes the
// streams into outputPath, and applies the cleanup policy. A single artifact
// skips muxing and moves the concatenated stream straight to outputPath.
// Intermediate files are only cleaned up after the output exists, except
// under AggressiveClean where segments are consumed during concatenation.
func (p *Pipeline) Assemble(ctx context.Context, artifacts []StreamArtifact, workDir, outputPath string, meta *Metadata) error {
	if len(artifacts) == 0 {
		return services.Wrap(services.ErrAssembly, "assembly", "assemble", "no streams to assemble", nil)
	}

	streamPaths := make(map[plan.StreamType]string, len(artifacts))
	for _, artifact := range artifacts {
		dest := filepath.Join(workDir, fmt.Sprintf("%s_%s.mp4", artifact.Stream.Code(), artifact.VariantID))
		task := p.reporter.StartTask(fmt.Sprintf("joining %s segments", artifact.Stream), len(artifact.Segments)+1)
		err := concat(artifact, dest, p.policy.AggressiveClean, task.Advance)
		task.Finish()
		if err != nil {
			return err
		}
		streamPaths[artifact.Stream] = dest
	}

	audioPath, hasAudio := streamPaths[plan.StreamAudio]
	videoPath, hasVideo := streamPaths[plan.StreamVideo]

	switch {
	case hasAudio && hasVideo:
		p.logger.Info("muxing streams", logging.String("output", outputPath))
		if err := p.muxer.Mux(ctx, videoPath, audioPath, outputPath, meta); err != nil {
			return err
		}
	case hasAudio:
		if err := p.place(audioPath, outputPath); err != nil {
			return err
		}
	default:
		if err := p.place(videoPath, outputPath); err != nil {
			return err
		}
	}

	p.cleanup(artifacts, streamPaths, workDir)
	return nil
}

// place moves a lone concatenated stream to the output path.
func (p *Pipeline) place(streamPath, outputPath string) error {
	if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
		return services.Wrap(services.ErrAssembly, "assembly", "place", outputPath, err)
	}
	if err := fileutil.MoveFile(streamPath, outputPath); err != nil {
		return services.Wrap(services.ErrAssembly, "assembly", "place", outputPath, err)
	}
	return nil
}

// cleanup removes intermediates according to policy and drops the work
// directory once it is empty. Failures here are logged, not returned; the
// output file is already in place.
func (p *Pipeline) cleanup(artifacts []StreamArtifact, streamPaths map[plan.StreamType]string, workDir string) {
	if !p.policy.KeepSegments {
		for _, artifact := range artifacts {
			removeQuiet(artifact.Init.LocalPath, p.logger)
			for _, seg := range artifact.Segments {
				removeQuiet(seg.LocalPath, p.logger)
			}
		}
		for _, path := range streamPaths {
			removeQuiet(path, p.logger)
		}
		p.logger.Info("deleted temp files")
	}

	entries, err := os.ReadDir(workDir)
	if err == nil && len(entries) == 0 {
		if err := os.Remove(workDir); err != nil {
			p.logger.Warn("could not remove work directory", logging.Error(err))
		}
	}
}

func removeQuiet(path string, logger *slog.Logger) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("could not remove temp file", logging.String("path", path), logging.Error(err))
	}
}
