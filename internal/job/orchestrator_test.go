package job_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"

	"stitcher/internal/assembly"
	"stitcher/internal/config"
	"stitcher/internal/fetch"
	"stitcher/internal/job"
	"stitcher/internal/manifest"
	"stitcher/internal/plan"
	"stitcher/internal/services"
)

type stubResolver struct {
	m   *manifest.Manifest
	err error
}

func (r *stubResolver) Resolve(context.Context, string) (*manifest.Manifest, error) {
	return r.m, r.err
}

func (r *stubResolver) RefreshBaseURL(context.Context, string) (string, error) {
	return r.m.BaseStreamURL, nil
}

type stubFetcher struct {
	streams []plan.StreamType
	err     error
}

func (f *stubFetcher) FetchStream(_ context.Context, sp *plan.StreamPlan) (*fetch.StreamResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.streams = append(f.streams, sp.Stream)
	return &fetch.StreamResult{Plan: sp, Fetched: sp.Segments}, nil
}

type stubAssembler struct {
	called     bool
	artifacts  []assembly.StreamArtifact
	outputPath string
	meta       *assembly.Metadata
	err        error
}

func (a *stubAssembler) Assemble(_ context.Context, artifacts []assembly.StreamArtifact, _ string, outputPath string, meta *assembly.Metadata) error {
	a.called = true
	a.artifacts = artifacts
	a.outputPath = outputPath
	a.meta = meta
	return a.err
}

func stubManifest() *manifest.Manifest {
	return &manifest.Manifest{
		Title: manifest.TitleInfo{
			ID:              "777",
			Name:            "deep waters",
			Studio:          "Studio X",
			DurationSeconds: 300,
			Performers:      []string{"Alex Doe", "Sam Roe"},
			Scenes: []manifest.SceneBoundary{
				{Number: 1, StartSeconds: 0, EndSeconds: 150, Performers: []string{"Alex Doe"}},
				{Number: 2, StartSeconds: 150, EndSeconds: 300, Performers: []string{"Sam Roe"}},
			},
		},
		BaseStreamURL:     "http://example.com/stream",
		SegmentDuration:   10,
		TotalDataSegments: 30,
		Ladder: []manifest.StreamVariant{
			{ID: "v480", Height: 480},
			{ID: "v1080", Height: 1080},
		},
		AudioVariantID: "v1080",
	}
}

type fixture struct {
	cfg       *config.Config
	resolver  *stubResolver
	fetcher   *stubFetcher
	assembler *stubAssembler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Paths.WorkDir = t.TempDir()
	cfg.Output.WriteMetadata = true
	return &fixture{
		cfg:       &cfg,
		resolver:  &stubResolver{m: stubManifest()},
		fetcher:   &stubFetcher{},
		assembler: &stubAssembler{},
	}
}

func (f *fixture) orchestrator() *job.Orchestrator {
	return job.New(f.cfg, nil,
		job.WithResolver(f.resolver),
		job.WithFetcherFactory(func(string, string, fetch.Options) job.StreamFetcher { return f.fetcher }),
		job.WithAssembler(f.assembler),
	)
}

func TestRunFullTitle(t *testing.T) {
	f := newFixture(t)
	res := f.orchestrator().Run(context.Background(), job.Request{
		Locator:         "http://example.com/straight/titles/777/deep-waters",
		RequestedHeight: plan.HeightHighest,
	})

	if !res.Succeeded() {
		t.Fatalf("job failed: %v", res.Err)
	}
	if res.Status != job.StatusDone {
		t.Fatalf("status = %s", res.Status)
	}
	if res.Title != "deep waters" || res.Height != 1080 {
		t.Fatalf("result metadata off: %+v", res)
	}
	want := filepath.Join(f.cfg.Paths.OutputDir, "Studio X - Deep Waters 1080p.mp4")
	if res.OutputPath != want {
		t.Fatalf("output path = %q, want %q", res.OutputPath, want)
	}
	if len(f.fetcher.streams) != 2 {
		t.Fatalf("fetched streams = %v, want video and audio", f.fetcher.streams)
	}
	if len(f.assembler.artifacts) != 2 {
		t.Fatalf("assembled %d artifacts, want 2", len(f.assembler.artifacts))
	}
	if f.assembler.meta == nil || len(f.assembler.meta.Chapters) != 2 {
		t.Fatalf("expected chapter metadata, got %+v", f.assembler.meta)
	}
}

func TestRunSceneNamesOutputAndSkipsChapters(t *testing.T) {
	f := newFixture(t)
	f.cfg.Output.IncludePerformers = true
	res := f.orchestrator().Run(context.Background(), job.Request{
		Locator:         "http://example.com/straight/titles/777/deep-waters",
		SceneNumber:     2,
		RequestedHeight: 480,
	})

	if !res.Succeeded() {
		t.Fatalf("job failed: %v", res.Err)
	}
	want := filepath.Join(f.cfg.Paths.OutputDir, "Studio X - Deep Waters Scene 2 Sam Roe 480p.mp4")
	if res.OutputPath != want {
		t.Fatalf("output path = %q, want %q", res.OutputPath, want)
	}
	if len(f.assembler.meta.Chapters) != 0 {
		t.Fatal("scene download should not carry chapters")
	}
}

func TestRunTargetStreamAudio(t *testing.T) {
	f := newFixture(t)
	f.cfg.Output.TargetStream = "audio"
	res := f.orchestrator().Run(context.Background(), job.Request{
		Locator:         "http://example.com/straight/titles/777/deep-waters",
		RequestedHeight: plan.HeightHighest,
	})

	if !res.Succeeded() {
		t.Fatalf("job failed: %v", res.Err)
	}
	if len(f.fetcher.streams) != 1 || f.fetcher.streams[0] != plan.StreamAudio {
		t.Fatalf("fetched streams = %v, want audio only", f.fetcher.streams)
	}
	want := filepath.Join(f.cfg.Paths.OutputDir, "audio_Studio X - Deep Waters.mp4")
	if res.OutputPath != want {
		t.Fatalf("output path = %q, want %q", res.OutputPath, want)
	}
}

func TestRunResolveFailureYieldsResult(t *testing.T) {
	f := newFixture(t)
	f.resolver.err = services.Wrap(services.ErrManifest, "manifest", "deliver", "boom", nil)
	res := f.orchestrator().Run(context.Background(), job.Request{Locator: "http://example.com/straight/titles/777/x"})

	if res.Succeeded() {
		t.Fatal("expected failure")
	}
	if !errors.Is(res.Err, services.ErrManifest) {
		t.Fatalf("err = %v", res.Err)
	}
	if res.Status != job.StatusDone {
		t.Fatalf("status = %s", res.Status)
	}
	if f.assembler.called {
		t.Fatal("assembler should not run after a resolve failure")
	}
}

func TestRunFetchFailureSkipsAssembly(t *testing.T) {
	f := newFixture(t)
	f.fetcher.err = services.Wrap(services.ErrSegmentFetch, "fetch", "segment", "boom", nil)
	res := f.orchestrator().Run(context.Background(), job.Request{
		Locator:         "http://example.com/straight/titles/777/x",
		RequestedHeight: plan.HeightHighest,
	})

	if !errors.Is(res.Err, services.ErrSegmentFetch) {
		t.Fatalf("err = %v", res.Err)
	}
	if f.assembler.called {
		t.Fatal("assembler should not run after a fetch failure")
	}
}

func TestRunForcedResolutionUnavailable(t *testing.T) {
	f := newFixture(t)
	res := f.orchestrator().Run(context.Background(), job.Request{
		Locator:         "http://example.com/straight/titles/777/x",
		RequestedHeight: 720,
		ForceHeight:     true,
	})
	if !errors.Is(res.Err, services.ErrResolutionUnavailable) {
		t.Fatalf("err = %v", res.Err)
	}
}

func TestRunRefusesLockedTitle(t *testing.T) {
	f := newFixture(t)
	lock := flock.New(filepath.Join(f.cfg.Paths.WorkDir, "777") + ".lock")
	locked, err := lock.TryLock()
	if err != nil || !locked {
		t.Fatalf("pre-lock failed: %v", err)
	}
	defer lock.Unlock()

	res := f.orchestrator().Run(context.Background(), job.Request{
		Locator:         "http://example.com/straight/titles/777/x",
		RequestedHeight: plan.HeightHighest,
	})
	if !errors.Is(res.Err, services.ErrConfiguration) {
		t.Fatalf("err = %v", res.Err)
	}
}

func TestRunSceneJobsUseDisjointWorkDirs(t *testing.T) {
	f := newFixture(t)
	// Locks held by a whole-title job and a scene 1 job must not block a
	// scene 2 job for the same title.
	for _, name := range []string{"777", "777_s1"} {
		lock := flock.New(filepath.Join(f.cfg.Paths.WorkDir, name) + ".lock")
		locked, err := lock.TryLock()
		if err != nil || !locked {
			t.Fatalf("pre-lock %s failed: %v", name, err)
		}
		defer lock.Unlock()
	}

	res := f.orchestrator().Run(context.Background(), job.Request{
		Locator:         "http://example.com/straight/titles/777/x",
		SceneNumber:     2,
		RequestedHeight: plan.HeightHighest,
	})
	if !res.Succeeded() {
		t.Fatalf("scene job should not contend with other scenes: %v", res.Err)
	}
	if _, err := os.Stat(filepath.Join(f.cfg.Paths.WorkDir, "777_s2")); err != nil {
		t.Fatalf("scene work dir missing: %v", err)
	}
}
