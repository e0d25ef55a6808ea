package job

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"stitcher/internal/logging"
	"stitcher/internal/manifest"
)

// downloadCovers saves the front and back cover images next to the output
// file. Cover failures never fail the job.
func (o *Orchestrator) downloadCovers(ctx context.Context, m *manifest.Manifest, baseName string, logger *slog.Logger) {
	covers := []struct {
		url  string
		name string
	}{
		{m.Title.CoverFrontURL, "front"},
		{m.Title.CoverBackURL, "back"},
	}
	for _, cover := range covers {
		if cover.url == "" {
			continue
		}
		if err := o.saveCover(ctx, cover.url, baseName, cover.name); err != nil {
			logger.Warn("cover download failed",
				logging.String("cover", cover.name),
				logging.Error(err),
			)
		}
	}
}

func (o *Orchestrator) saveCover(ctx context.Context, coverURL, baseName, coverName string) error {
	ext := path.Ext(coverURL)
	dest := filepath.Join(o.cfg.Paths.OutputDir, baseName+" "+coverName+ext)
	if _, err := os.Stat(dest); err == nil {
		return nil
	}

	resp, err := o.session.GetMetadata(ctx, coverURL)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("cover request returned %d", resp.Status)
	}
	if err := os.WriteFile(dest, resp.Body, 0o644); err != nil {
		return err
	}
	// Carry the server timestamp so covers sort with their release date.
	if modified, err := http.ParseTime(resp.Header.Get("Last-Modified")); err == nil {
		_ = os.Chtimes(dest, time.Now(), modified)
	}
	return nil
}
