package media

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"stitcher/internal/services"
)

// Validator checks that a blob of downloaded media decodes cleanly. A nil
// Validator means only size checks apply.
type Validator interface {
	Validate(ctx context.Context, data []byte) error
}

// pipeRunner feeds stdin to a command and returns its stderr output. Split out
// so tests can avoid invoking a real ffmpeg.
type pipeRunner func(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)

func defaultPipeRunner(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	// ffmpeg exits non-zero on some decodable inputs too; the stderr scan
	// below is the actual verdict.
	_ = cmd.Run()
	return stderr.Bytes(), nil
}

// FFmpegValidator decodes media through an ffmpeg pipe and scans stderr for
// decode errors. Some remote audio variants are corrupted server-side and only
// show up this way.
type FFmpegValidator struct {
	binary string
	run    pipeRunner
}

// NewFFmpegValidator constructs a validator backed by the given ffmpeg binary.
func NewFFmpegValidator(binary string) *FFmpegValidator {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &FFmpegValidator{binary: binary, run: defaultPipeRunner}
}

// WithPipeRunner injects a custom pipe runner for tests.
func (v *FFmpegValidator) WithPipeRunner(r pipeRunner) *FFmpegValidator {
	if r != nil {
		v.run = r
	}
	return v
}

// Validate feeds data to ffmpeg and fails when the decoder reports errors.
func (v *FFmpegValidator) Validate(ctx context.Context, data []byte) error {
	if len(data) == 0 {
		return services.Wrap(services.ErrValidation, "media", "validate", "empty media payload", nil)
	}
	stderr, err := v.run(ctx, data, v.binary, "-f", "mp4", "-i", "pipe:0", "-f", "null", "-")
	if err != nil {
		return services.Wrap(services.ErrValidation, "media", "validate", "run decoder", err)
	}
	if bytes.Contains(stderr, []byte("Multiple frames in a packet")) || bytes.Contains(stderr, []byte("Error")) {
		return services.Wrap(services.ErrValidation, "media", "validate", "decoder reported errors", nil)
	}
	return nil
}
