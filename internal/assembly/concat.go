package assembly

import (
	"fmt"
	"io"
	"os"
	"sort"

	"stitcher/internal/plan"
	"stitcher/internal/services"
)

// StreamArtifact is one fully fetched stream handed over for assembly. The
// segment list may be shorter than planned when the estimated final segment
// did not exist, but it must be gapless.
type StreamArtifact struct {
	Stream    plan.StreamType
	VariantID string
	Init      plan.SegmentDescriptor
	Segments  []plan.SegmentDescriptor
}

// concat writes the init segment followed by the data segments in ascending
// index order into destPath. With aggressive set each segment file is deleted
// right after it has been appended, trading resumability for disk headroom.
func concat(artifact StreamArtifact, destPath string, aggressive bool, advance func(int)) error {
	segments := make([]plan.SegmentDescriptor, len(artifact.Segments))
	copy(segments, artifact.Segments)
	sort.Slice(segments, func(i, j int) bool { return segments[i].Index < segments[j].Index })

	for i := 1; i < len(segments); i++ {
		if segments[i].Index != segments[i-1].Index+1 {
			return services.Wrap(services.ErrAssembly, "assembly", "concat",
				fmt.Sprintf("%s stream has a gap after segment %d", artifact.Stream, segments[i-1].Index), nil)
		}
	}

	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return services.Wrap(services.ErrAssembly, "assembly", "concat", destPath, err)
	}

	dest, err := os.Create(destPath)
	if err != nil {
		return services.Wrap(services.ErrAssembly, "assembly", "concat", destPath, err)
	}
	defer dest.Close()

	appendFile := func(path string) error {
		src, err := os.Open(path)
		if err != nil {
			return services.Wrap(services.ErrAssembly, "assembly", "concat", path, err)
		}
		defer src.Close()
		if _, err := io.Copy(dest, src); err != nil {
			return services.Wrap(services.ErrAssembly, "assembly", "concat", path, err)
		}
		return nil
	}

	if err := appendFile(artifact.Init.LocalPath); err != nil {
		return err
	}
	advance(1)
	for _, seg := range segments {
		if err := appendFile(seg.LocalPath); err != nil {
			return err
		}
		if aggressive {
			if err := os.Remove(seg.LocalPath); err != nil {
				return services.Wrap(services.ErrAssembly, "assembly", "concat", seg.LocalPath, err)
			}
		}
		advance(1)
	}

	if err := dest.Close(); err != nil {
		return services.Wrap(services.ErrAssembly, "assembly", "concat", destPath, err)
	}
	return nil
}
