package manifest

// StreamVariant is one rung of the resolution ladder. Audio and video segments
// for the same rung share the variant ID in the remote naming scheme.
type StreamVariant struct {
	ID        string
	Height    int
	Bandwidth int
}

// SceneBoundary is a named sub-range of the title in seconds.
type SceneBoundary struct {
	Number       int
	StartSeconds int
	EndSeconds   int
	Performers   []string
}

// TitleInfo carries title-level metadata from the delivery endpoint.
type TitleInfo struct {
	ID              string
	Name            string
	Studio          string
	DurationSeconds int
	Performers      []string
	CoverFrontURL   string
	CoverBackURL    string
	Scenes          []SceneBoundary
}

// Manifest is the fully resolved view of a title: metadata, the variant
// ladder, and segment geometry. Immutable once resolved.
type Manifest struct {
	Title             TitleInfo
	BaseStreamURL     string
	SegmentDuration   float64
	TotalDataSegments int
	Ladder            []StreamVariant
	AudioVariantID    string
}

// SceneByNumber returns the scene with the given 1-based number.
func (m *Manifest) SceneByNumber(n int) (SceneBoundary, bool) {
	for _, scene := range m.Title.Scenes {
		if scene.Number == n {
			return scene, true
		}
	}
	return SceneBoundary{}, false
}
