package plan

import (
	"fmt"
	"path/filepath"
)

// StreamType identifies one elementary stream of a title.
type StreamType string

const (
	StreamVideo StreamType = "video"
	StreamAudio StreamType = "audio"
)

// Code returns the single-letter prefix used in remote segment names.
func (s StreamType) Code() string {
	if s == StreamAudio {
		return "a"
	}
	return "v"
}

// SegmentDescriptor names one remote segment and where it lands on disk.
// RemoteName is relative to the stream base URL so a base refresh after an
// expiry does not invalidate descriptors.
type SegmentDescriptor struct {
	Stream     StreamType
	Index      int
	Init       bool
	RemoteName string
	LocalPath  string
}

// StreamPlan is the ordered fetch plan for one elementary stream.
type StreamPlan struct {
	Stream    StreamType
	VariantID string
	Init      SegmentDescriptor
	Segments  []SegmentDescriptor
}

// Plan carries the per-stream fetch plans for a job. A stream filtered out by
// target selection is nil.
type Plan struct {
	Video *StreamPlan
	Audio *StreamPlan
	Range SegmentRange
}

// Streams returns the non-nil stream plans, video first.
func (p *Plan) Streams() []*StreamPlan {
	var out []*StreamPlan
	if p.Video != nil {
		out = append(out, p.Video)
	}
	if p.Audio != nil {
		out = append(out, p.Audio)
	}
	return out
}

// Build maps a segment range onto descriptors for the selected variants.
// Passing an empty variant ID skips that stream, which is how a target-stream
// filter takes effect.
func Build(videoID, audioID string, rng SegmentRange, workDir string) *Plan {
	p := &Plan{Range: rng}
	if videoID != "" {
		p.Video = buildStream(StreamVideo, videoID, rng, workDir)
	}
	if audioID != "" {
		p.Audio = buildStream(StreamAudio, audioID, rng, workDir)
	}
	return p
}

func buildStream(stream StreamType, variantID string, rng SegmentRange, workDir string) *StreamPlan {
	sp := &StreamPlan{
		Stream:    stream,
		VariantID: variantID,
		Init: SegmentDescriptor{
			Stream:     stream,
			Init:       true,
			RemoteName: fmt.Sprintf("%si_%s.mp4d", stream.Code(), variantID),
			LocalPath:  filepath.Join(workDir, fmt.Sprintf("%si_%s.mp4", stream.Code(), variantID)),
		},
	}
	for n := rng.Start; n <= rng.End; n++ {
		sp.Segments = append(sp.Segments, SegmentDescriptor{
			Stream:     stream,
			Index:      n,
			RemoteName: fmt.Sprintf("%s_%s_%d.mp4d", stream.Code(), variantID, n),
			LocalPath:  filepath.Join(workDir, fmt.Sprintf("%s_%s_%d.mp4", stream.Code(), variantID, n)),
		})
	}
	return sp
}
