package assembly

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"stitcher/internal/logging"
	"stitcher/internal/services"
)

var commandContext = exec.CommandContext

// Muxer combines elementary streams into the final container with an
// external ffmpeg invocation.
type Muxer struct {
	binary string
	logger *slog.Logger
}

// MuxerOption configures a Muxer.
type MuxerOption func(*Muxer)

// WithBinary overrides the default ffmpeg binary name.
func WithBinary(binary string) MuxerOption {
	return func(m *Muxer) {
		if binary != "" {
			m.binary = binary
		}
	}
}

// WithMuxLogger sets the muxer's logging destination.
func WithMuxLogger(logger *slog.Logger) MuxerOption {
	return func(m *Muxer) { m.logger = logging.NewComponentLogger(logger, "assembly") }
}

// NewMuxer constructs a Muxer using defaults.
func NewMuxer(opts ...MuxerOption) *Muxer {
	m := &Muxer{binary: "ffmpeg", logger: logging.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Mux copies videoPath and audioPath into outputPath without re-encoding.
// Metadata, when non-nil, is piped in as an ffmetadata document so the
// container carries the title and chapter marks. The output is written to a
// temp path and renamed in only on success.
func (m *Muxer) Mux(ctx context.Context, videoPath, audioPath, outputPath string, meta *Metadata) error {
	tmpPath := outputPath + ".tmp"
	defer os.Remove(tmpPath)

	args := []string{"-i", videoPath, "-i", audioPath}
	if meta != nil {
		args = append(args, "-f", "ffmetadata", "-i", "pipe:0", "-map_metadata", "2")
	}
	args = append(args, "-y", "-c", "copy", "-loglevel", "warning", "-f", "mp4", tmpPath)

	cmd := commandContext(ctx, m.binary, args...)
	if meta != nil {
		cmd.Stdin = bytes.NewReader(meta.Render())
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	m.logger.Debug("muxing streams", logging.String("output", outputPath))
	if err := cmd.Run(); err != nil {
		detail := stderr.String()
		if detail == "" {
			detail = err.Error()
		}
		return services.Wrap(services.ErrExternalTool, "assembly", "mux", fmt.Sprintf("ffmpeg: %s", detail), err)
	}
	if stderr.Len() > 0 {
		m.logger.Warn("ffmpeg reported warnings", logging.String("stderr", stderr.String()))
	}
	if err := os.Rename(tmpPath, outputPath); err != nil {
		return services.Wrap(services.ErrExternalTool, "assembly", "mux", outputPath, err)
	}
	return nil
}
