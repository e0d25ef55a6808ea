package plan_test

import (
	"errors"
	"path/filepath"
	"testing"

	"stitcher/internal/manifest"
	"stitcher/internal/plan"
	"stitcher/internal/services"
)

func ladder(heights ...int) []manifest.StreamVariant {
	out := make([]manifest.StreamVariant, 0, len(heights))
	for _, h := range heights {
		out = append(out, manifest.StreamVariant{ID: "v", Height: h})
	}
	return out
}

func TestSelect(t *testing.T) {
	cases := []struct {
		name      string
		heights   []int
		requested int
		force     bool
		want      int
		wantErr   bool
	}{
		{"exact match", []int{240, 480, 720, 1080}, 720, false, 720, false},
		{"nearest lower", []int{240, 480, 1080}, 720, false, 480, false},
		{"force without exact", []int{240, 480, 1080}, 720, true, 0, true},
		{"zero picks lowest", []int{240, 480, 1080}, plan.HeightLowest, false, 240, false},
		{"unspecified picks highest", []int{240, 480, 1080}, plan.HeightHighest, false, 1080, false},
		{"below all falls back to lowest", []int{480, 1080}, 240, false, 480, false},
		{"below all forced", []int{480, 1080}, 240, true, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := plan.Select(ladder(tc.heights...), tc.requested, tc.force)
			if tc.wantErr {
				if !errors.Is(err, services.ErrResolutionUnavailable) {
					t.Fatalf("expected resolution error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Select: %v", err)
			}
			if got.Height != tc.want {
				t.Fatalf("Select = %dp, want %dp", got.Height, tc.want)
			}
		})
	}
}

func TestSelectEmptyLadder(t *testing.T) {
	if _, err := plan.Select(nil, 720, false); !errors.Is(err, services.ErrResolutionUnavailable) {
		t.Fatalf("expected resolution error, got %v", err)
	}
}

func testManifest() *manifest.Manifest {
	return &manifest.Manifest{
		Title: manifest.TitleInfo{
			DurationSeconds: 400,
			Scenes: []manifest.SceneBoundary{
				{Number: 1, StartSeconds: 0, EndSeconds: 100},
				{Number: 2, StartSeconds: 100, EndSeconds: 250},
				{Number: 3, StartSeconds: 250, EndSeconds: 400},
			},
		},
		SegmentDuration:   10,
		TotalDataSegments: 40,
	}
}

func intp(v int) *int { return &v }

func TestResolveRange(t *testing.T) {
	m := testManifest()

	t.Run("whole title", func(t *testing.T) {
		rng, err := plan.ResolveRange(m, plan.RangeSpec{})
		if err != nil {
			t.Fatalf("ResolveRange: %v", err)
		}
		if rng.Start != 0 || rng.End != 40 {
			t.Fatalf("range = %+v, want 0..40", rng)
		}
	})

	t.Run("scene with padding", func(t *testing.T) {
		rng, err := plan.ResolveRange(m, plan.RangeSpec{SceneNumber: 2, PaddingSeconds: 5})
		if err != nil {
			t.Fatalf("ResolveRange: %v", err)
		}
		// floor((100-5)/10) = 9, ceil((250+5)/10) = 26
		if rng.Start != 9 || rng.End != 26 {
			t.Fatalf("range = %+v, want 9..26", rng)
		}
	})

	t.Run("padding clamps at timeline edges", func(t *testing.T) {
		rng, err := plan.ResolveRange(m, plan.RangeSpec{SceneNumber: 1, PaddingSeconds: 30})
		if err != nil {
			t.Fatalf("ResolveRange: %v", err)
		}
		if rng.Start != 0 || rng.End != 13 {
			t.Fatalf("range = %+v, want 0..13", rng)
		}
		rng, err = plan.ResolveRange(m, plan.RangeSpec{SceneNumber: 3, PaddingSeconds: 100})
		if err != nil {
			t.Fatalf("ResolveRange: %v", err)
		}
		if rng.End != 40 {
			t.Fatalf("end = %d, want clamped to 40", rng.End)
		}
	})

	t.Run("overrides beat scene range", func(t *testing.T) {
		rng, err := plan.ResolveRange(m, plan.RangeSpec{SceneNumber: 2, StartSegment: intp(12), EndSegment: intp(20)})
		if err != nil {
			t.Fatalf("ResolveRange: %v", err)
		}
		if rng.Start != 12 || rng.End != 20 {
			t.Fatalf("range = %+v, want 12..20", rng)
		}
	})

	t.Run("unknown scene", func(t *testing.T) {
		if _, err := plan.ResolveRange(m, plan.RangeSpec{SceneNumber: 9}); !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("expected configuration error, got %v", err)
		}
	})

	t.Run("inverted range", func(t *testing.T) {
		if _, err := plan.ResolveRange(m, plan.RangeSpec{StartSegment: intp(30), EndSegment: intp(10)}); !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("expected configuration error, got %v", err)
		}
	})
}

func TestBuildDescriptors(t *testing.T) {
	p := plan.Build("v1080", "v480", plan.SegmentRange{Start: 3, End: 5}, "/tmp/work")

	if p.Video == nil || p.Audio == nil {
		t.Fatal("expected both stream plans")
	}
	if got := p.Video.Init.RemoteName; got != "vi_v1080.mp4d" {
		t.Fatalf("video init remote = %q", got)
	}
	if got := p.Audio.Init.RemoteName; got != "ai_v480.mp4d" {
		t.Fatalf("audio init remote = %q", got)
	}
	if len(p.Video.Segments) != 3 {
		t.Fatalf("video segment count = %d, want 3", len(p.Video.Segments))
	}
	second := p.Video.Segments[1]
	if second.RemoteName != "v_v1080_4.mp4d" {
		t.Fatalf("remote name = %q", second.RemoteName)
	}
	if second.LocalPath != filepath.Join("/tmp/work", "v_v1080_4.mp4") {
		t.Fatalf("local path = %q", second.LocalPath)
	}
	if second.Init || second.Index != 4 {
		t.Fatalf("descriptor fields off: %+v", second)
	}

	filtered := plan.Build("", "v480", plan.SegmentRange{Start: 0, End: 1}, "/tmp/work")
	if filtered.Video != nil {
		t.Fatal("video should be filtered out")
	}
	if streams := filtered.Streams(); len(streams) != 1 || streams[0].Stream != plan.StreamAudio {
		t.Fatalf("streams = %+v", streams)
	}
}
