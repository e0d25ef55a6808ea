package plan

import (
	"fmt"
	"math"

	"stitcher/internal/manifest"
	"stitcher/internal/services"
)

// SegmentRange is an inclusive span of data segment indices.
type SegmentRange struct {
	Start int
	End   int
}

// Count returns the number of data segments in the range.
func (r SegmentRange) Count() int { return r.End - r.Start + 1 }

// RangeSpec selects which part of a title to download. SceneNumber zero means
// the whole title. Explicit StartSegment/EndSegment, when non-nil, win over
// anything scene-derived.
type RangeSpec struct {
	SceneNumber    int
	PaddingSeconds float64
	StartSegment   *int
	EndSegment     *int
}

// ResolveRange turns a RangeSpec into a concrete segment range over the
// manifest's timeline.
func ResolveRange(m *manifest.Manifest, spec RangeSpec) (SegmentRange, error) {
	rng := SegmentRange{Start: 0, End: m.TotalDataSegments}

	if spec.SceneNumber > 0 {
		scene, ok := m.SceneByNumber(spec.SceneNumber)
		if !ok {
			return SegmentRange{}, services.Wrap(services.ErrConfiguration, "plan", "range",
				fmt.Sprintf("scene %d not found", spec.SceneNumber), nil)
		}
		startSec := math.Max(float64(scene.StartSeconds)-spec.PaddingSeconds, 0)
		endSec := math.Min(float64(scene.EndSeconds)+spec.PaddingSeconds, float64(m.Title.DurationSeconds))
		rng.Start = int(math.Floor(startSec / m.SegmentDuration))
		rng.End = int(math.Ceil(endSec / m.SegmentDuration))
	}

	if spec.StartSegment != nil {
		rng.Start = *spec.StartSegment
	}
	if spec.EndSegment != nil {
		rng.End = *spec.EndSegment
	}

	if rng.Start < 0 {
		rng.Start = 0
	}
	if rng.End > m.TotalDataSegments {
		rng.End = m.TotalDataSegments
	}
	if rng.Start > rng.End {
		return SegmentRange{}, services.Wrap(services.ErrConfiguration, "plan", "range",
			fmt.Sprintf("segment range start %d is past end %d", rng.Start, rng.End), nil)
	}
	return rng, nil
}
