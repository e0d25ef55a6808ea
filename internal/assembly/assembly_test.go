package assembly

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"stitcher/internal/plan"
	"stitcher/internal/services"
)

func writeSegment(t *testing.T, dir, name, content string) plan.SegmentDescriptor {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return plan.SegmentDescriptor{LocalPath: path}
}

// artifact builds a stream artifact whose data segments are listed in the
// given index order, each file containing "s<index>".
func artifact(t *testing.T, dir string, stream plan.StreamType, indices ...int) StreamArtifact {
	t.Helper()
	a := StreamArtifact{Stream: stream, VariantID: "x"}
	a.Init = writeSegment(t, dir, fmt.Sprintf("%si_x.mp4", stream.Code()), "init")
	a.Init.Stream = stream
	a.Init.Init = true
	for _, n := range indices {
		desc := writeSegment(t, dir, fmt.Sprintf("%s_x_%d.mp4", stream.Code(), n), fmt.Sprintf("s%d", n))
		desc.Stream = stream
		desc.Index = n
		a.Segments = append(a.Segments, desc)
	}
	return a
}

func TestAssembleSingleStreamConcatenatesAscending(t *testing.T) {
	workDir := t.TempDir()
	outDir := t.TempDir()
	out := filepath.Join(outDir, "out.mp4")

	// Completion order scrambled; output must still be ascending.
	a := artifact(t, workDir, plan.StreamVideo, 3, 1, 2, 0)
	p := NewPipeline(NewMuxer(), Policy{})
	if err := p.Assemble(context.Background(), []StreamArtifact{a}, workDir, out, nil); err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if string(data) != "inits0s1s2s3" {
		t.Fatalf("output = %q, want ascending concatenation", data)
	}
	if entries, _ := os.ReadDir(workDir); len(entries) != 0 {
		t.Fatalf("work dir not cleaned: %d entries left", len(entries))
	}
	if _, err := os.Stat(workDir); !os.IsNotExist(err) {
		t.Fatal("empty work dir should be removed")
	}
}

func TestAssembleFailsOnSegmentGap(t *testing.T) {
	workDir := t.TempDir()
	a := artifact(t, workDir, plan.StreamVideo, 0, 1, 3)
	p := NewPipeline(NewMuxer(), Policy{})
	err := p.Assemble(context.Background(), []StreamArtifact{a}, workDir, filepath.Join(t.TempDir(), "out.mp4"), nil)
	if !errors.Is(err, services.ErrAssembly) {
		t.Fatalf("expected assembly error, got %v", err)
	}
}

func TestAssembleKeepSegments(t *testing.T) {
	workDir := t.TempDir()
	a := artifact(t, workDir, plan.StreamAudio, 0, 1)
	p := NewPipeline(NewMuxer(), Policy{KeepSegments: true})
	if err := p.Assemble(context.Background(), []StreamArtifact{a}, workDir, filepath.Join(t.TempDir(), "out.mp4"), nil); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	for _, seg := range a.Segments {
		if _, err := os.Stat(seg.LocalPath); err != nil {
			t.Fatalf("segment removed despite keep policy: %v", err)
		}
	}
}

// stubMux replaces the ffmpeg invocation. With succeed set it creates the
// temp output the muxer expects to rename.
func stubMux(t *testing.T, succeed bool, captured *[]string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		if captured != nil {
			*captured = append([]string{name}, args...)
		}
		if !succeed {
			return exec.CommandContext(ctx, "false")
		}
		tmp := args[len(args)-1]
		return exec.CommandContext(ctx, "sh", "-c", "printf muxed > \"$0\"", tmp)
	}
	t.Cleanup(func() { commandContext = original })
}

func TestAssembleMuxesBothStreams(t *testing.T) {
	workDir := t.TempDir()
	out := filepath.Join(t.TempDir(), "out.mp4")
	var args []string
	stubMux(t, true, &args)

	audio := artifact(t, workDir, plan.StreamAudio, 0, 1)
	video := artifact(t, workDir, plan.StreamVideo, 0, 1)
	p := NewPipeline(NewMuxer(), Policy{})
	meta := &Metadata{Title: "some title", Chapters: []Chapter{{Title: "Scene 1", StartSeconds: 0, EndSeconds: 10}}}
	if err := p.Assemble(context.Background(), []StreamArtifact{video, audio}, workDir, out, meta); err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if data, err := os.ReadFile(out); err != nil || string(data) != "muxed" {
		t.Fatalf("output = %q, %v", data, err)
	}
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "a_x.mp4") || !strings.Contains(joined, "v_x.mp4") {
		t.Fatalf("mux args missing stream inputs: %v", args)
	}
	if strings.Index(joined, "v_x.mp4") > strings.Index(joined, "a_x.mp4") {
		t.Fatalf("video input must come before audio: %v", args)
	}
	if !strings.Contains(joined, "-map_metadata 2") {
		t.Fatalf("mux args missing metadata mapping: %v", args)
	}
	if _, err := os.Stat(workDir); !os.IsNotExist(err) {
		t.Fatal("work dir should be gone after success")
	}
}

func TestAssembleMuxFailureCleanupPolicy(t *testing.T) {
	t.Run("standard keeps segments", func(t *testing.T) {
		workDir := t.TempDir()
		stubMux(t, false, nil)
		audio := artifact(t, workDir, plan.StreamAudio, 0, 1)
		video := artifact(t, workDir, plan.StreamVideo, 0, 1)
		p := NewPipeline(NewMuxer(), Policy{})
		err := p.Assemble(context.Background(), []StreamArtifact{video, audio}, workDir, filepath.Join(t.TempDir(), "out.mp4"), nil)
		if !errors.Is(err, services.ErrExternalTool) {
			t.Fatalf("expected external tool error, got %v", err)
		}
		for _, seg := range video.Segments {
			if _, err := os.Stat(seg.LocalPath); err != nil {
				t.Fatalf("segment should survive a failed mux: %v", err)
			}
		}
	})

	t.Run("aggressive consumed segments already", func(t *testing.T) {
		workDir := t.TempDir()
		stubMux(t, false, nil)
		audio := artifact(t, workDir, plan.StreamAudio, 0, 1)
		video := artifact(t, workDir, plan.StreamVideo, 0, 1)
		p := NewPipeline(NewMuxer(), Policy{AggressiveClean: true})
		err := p.Assemble(context.Background(), []StreamArtifact{video, audio}, workDir, filepath.Join(t.TempDir(), "out.mp4"), nil)
		if !errors.Is(err, services.ErrExternalTool) {
			t.Fatalf("expected external tool error, got %v", err)
		}
		for _, seg := range video.Segments {
			if _, err := os.Stat(seg.LocalPath); !os.IsNotExist(err) {
				t.Fatalf("segment should be consumed during concat: %v", err)
			}
		}
	})
}

func TestMetadataRender(t *testing.T) {
	meta := &Metadata{
		Title: "semi;colon = trouble",
		Chapters: []Chapter{
			{Title: "Scene 1", StartSeconds: 0, EndSeconds: 90.5},
			{Title: "Scene 2", StartSeconds: 90.5, EndSeconds: 180},
		},
	}
	doc := string(meta.Render())

	if !strings.HasPrefix(doc, ";FFMETADATA1\n") {
		t.Fatalf("missing header: %q", doc)
	}
	if !strings.Contains(doc, `title=semi\;colon \= trouble`) {
		t.Fatalf("title not escaped: %q", doc)
	}
	if !strings.Contains(doc, "START=90500") || !strings.Contains(doc, "END=90500") {
		t.Fatalf("chapter bounds wrong: %q", doc)
	}
	if strings.Count(doc, "[CHAPTER]") != 2 {
		t.Fatalf("chapter count wrong: %q", doc)
	}
}
