package manifest

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"sort"
	"strings"

	"stitcher/internal/client"
	"stitcher/internal/logging"
	"stitcher/internal/media"
	"stitcher/internal/services"
)

// Resolver fetches and parses the remote manifest for a title locator.
type Resolver struct {
	session   *client.Session
	validator media.Validator
	logger    *slog.Logger
}

// ResolverOption customizes a Resolver.
type ResolverOption func(*Resolver)

// WithValidator enables audio variant probing with the given validator.
func WithValidator(v media.Validator) ResolverOption {
	return func(r *Resolver) { r.validator = v }
}

// WithLogger sets the resolver's logging destination.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = logging.NewComponentLogger(logger, "manifest") }
}

// NewResolver constructs a Resolver over the given session.
func NewResolver(session *client.Session, opts ...ResolverOption) *Resolver {
	r := &Resolver{session: session, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// deliverPayload is the JSON body of the delivery endpoint. Only url, title,
// and durationSeconds are required; everything else may be absent across
// service revisions.
type deliverPayload struct {
	URL             string   `json:"url"`
	Title           string   `json:"title"`
	Studio          string   `json:"studio"`
	DurationSeconds int      `json:"durationSeconds"`
	Performers      []string `json:"performers"`
	CoverFront      string   `json:"coverFront"`
	CoverBack       string   `json:"coverBack"`
	Scenes          []struct {
		Number       int      `json:"number"`
		StartSeconds int      `json:"startSeconds"`
		EndSeconds   int      `json:"endSeconds"`
		Performers   []string `json:"performers"`
	} `json:"scenes"`
}

type dashManifest struct {
	XMLName xml.Name `xml:"MPD"`
	Periods []struct {
		AdaptationSets []struct {
			MimeType        string `xml:"mimeType,attr"`
			SegmentTemplate *struct {
				Timescale float64 `xml:"timescale,attr"`
				Duration  float64 `xml:"duration,attr"`
			} `xml:"SegmentTemplate"`
			Representations []struct {
				ID        string `xml:"id,attr"`
				Height    int    `xml:"height,attr"`
				Bandwidth int    `xml:"bandwidth,attr"`
			} `xml:"Representation"`
		} `xml:"AdaptationSet"`
	} `xml:"Period"`
}

// Resolve fetches the delivery document and manifest for locator and converts
// them into an immutable Manifest. Metadata requests always honor the proxy.
func (r *Resolver) Resolve(ctx context.Context, locator string) (*Manifest, error) {
	payload, titleID, err := r.deliver(ctx, locator)
	if err != nil {
		return nil, err
	}

	resp, err := r.session.GetMetadata(ctx, payload.URL)
	if err != nil {
		return nil, services.Wrap(services.ErrManifest, "manifest", "fetch", payload.URL, err)
	}
	if !resp.OK() {
		return nil, services.Wrap(services.ErrManifest, "manifest", "fetch", fmt.Sprintf("%s returned %d", payload.URL, resp.Status), nil)
	}

	m, err := parseManifest(resp.Body, payload, titleID)
	if err != nil {
		return nil, err
	}
	m.BaseStreamURL = baseStreamURL(payload.URL)

	if err := r.pickAudioVariant(ctx, m); err != nil {
		return nil, err
	}

	heights := make([]string, 0, len(m.Ladder))
	for _, variant := range m.Ladder {
		heights = append(heights, fmt.Sprintf("%d", variant.Height))
	}
	r.logger.Info("manifest resolved",
		logging.String("title", m.Title.Name),
		logging.String("heights", strings.Join(heights, " ")),
		logging.Int("segments", m.TotalDataSegments),
	)
	return m, nil
}

// RefreshBaseURL requests a fresh manifest URL for locator. The remote service
// expires stream URLs; a 403 on a segment means the base must be re-derived.
func (r *Resolver) RefreshBaseURL(ctx context.Context, locator string) (string, error) {
	payload, _, err := r.deliver(ctx, locator)
	if err != nil {
		return "", err
	}
	return baseStreamURL(payload.URL), nil
}

func (r *Resolver) deliver(ctx context.Context, locator string) (*deliverPayload, string, error) {
	deliverURL, titleID, err := locatorEndpoints(locator)
	if err != nil {
		return nil, "", err
	}

	form := url.Values{}
	form.Set("titleId", titleID)
	form.Set("isPreview", "true")
	form.Set("format", "DASH")

	resp, err := r.session.PostForm(ctx, deliverURL, form)
	if err != nil {
		return nil, "", services.Wrap(services.ErrManifest, "manifest", "deliver", deliverURL, err)
	}
	if !resp.OK() {
		return nil, "", services.Wrap(services.ErrManifest, "manifest", "deliver", fmt.Sprintf("%s returned %d", deliverURL, resp.Status), nil)
	}

	var payload deliverPayload
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, "", services.Wrap(services.ErrManifest, "manifest", "deliver", "malformed delivery document", err)
	}
	if strings.TrimSpace(payload.URL) == "" {
		return nil, "", services.Wrap(services.ErrManifest, "manifest", "deliver", "delivery document missing manifest url", nil)
	}
	if strings.TrimSpace(payload.Title) == "" {
		return nil, "", services.Wrap(services.ErrManifest, "manifest", "deliver", "delivery document missing title", nil)
	}
	if payload.DurationSeconds <= 0 {
		return nil, "", services.Wrap(services.ErrManifest, "manifest", "deliver", "delivery document missing title duration", nil)
	}
	return &payload, titleID, nil
}

// locatorEndpoints derives the delivery endpoint and title ID from a title
// page URL of the form https://host/{category}/titles/{id}/...
func locatorEndpoints(locator string) (string, string, error) {
	parsed, err := url.Parse(locator)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", "", services.Wrap(services.ErrConfiguration, "manifest", "locator", fmt.Sprintf("invalid title locator %q", locator), err)
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) < 3 || segments[0] == "" || segments[2] == "" {
		return "", "", services.Wrap(services.ErrConfiguration, "manifest", "locator", fmt.Sprintf("locator %q does not name a title", locator), nil)
	}
	category, titleID := segments[0], segments[2]
	deliverURL := fmt.Sprintf("%s://%s/%s/deliver", parsed.Scheme, parsed.Host, category)
	return deliverURL, titleID, nil
}

func parseManifest(body []byte, payload *deliverPayload, titleID string) (*Manifest, error) {
	var dash dashManifest
	if err := xml.Unmarshal(body, &dash); err != nil {
		return nil, services.Wrap(services.ErrManifest, "manifest", "parse", "malformed manifest document", err)
	}

	var ladder []StreamVariant
	var segmentDuration float64
	for _, period := range dash.Periods {
		for _, set := range period.AdaptationSets {
			if set.MimeType != "video/mp4" {
				continue
			}
			if set.SegmentTemplate != nil && set.SegmentTemplate.Timescale > 0 {
				segmentDuration = set.SegmentTemplate.Duration / set.SegmentTemplate.Timescale
			}
			for _, rep := range set.Representations {
				if rep.ID == "" || rep.Height <= 0 {
					continue
				}
				ladder = append(ladder, StreamVariant{ID: rep.ID, Height: rep.Height, Bandwidth: rep.Bandwidth})
			}
		}
	}
	if len(ladder) == 0 {
		return nil, services.Wrap(services.ErrManifest, "manifest", "parse", "manifest has no video representations", nil)
	}
	if segmentDuration <= 0 {
		return nil, services.Wrap(services.ErrManifest, "manifest", "parse", "manifest has no segment template", nil)
	}
	sort.Slice(ladder, func(i, j int) bool { return ladder[i].Height < ladder[j].Height })

	title := TitleInfo{
		ID:              titleID,
		Name:            payload.Title,
		Studio:          payload.Studio,
		DurationSeconds: payload.DurationSeconds,
		Performers:      payload.Performers,
		CoverFrontURL:   payload.CoverFront,
		CoverBackURL:    payload.CoverBack,
	}
	for _, scene := range payload.Scenes {
		title.Scenes = append(title.Scenes, SceneBoundary{
			Number:       scene.Number,
			StartSeconds: scene.StartSeconds,
			EndSeconds:   scene.EndSeconds,
			Performers:   scene.Performers,
		})
	}

	return &Manifest{
		Title:             title,
		SegmentDuration:   segmentDuration,
		TotalDataSegments: int(math.Ceil(float64(payload.DurationSeconds) / segmentDuration)),
		Ladder:            ladder,
	}, nil
}

// pickAudioVariant probes candidate audio variants from the highest rung down
// and keeps the first one whose init plus middle data segment decode cleanly.
// Some variants are corrupted server-side. Without a validator the highest
// rung is used as-is.
func (r *Resolver) pickAudioVariant(ctx context.Context, m *Manifest) error {
	if r.validator == nil {
		m.AudioVariantID = m.Ladder[len(m.Ladder)-1].ID
		return nil
	}

	middle := m.TotalDataSegments / 2
	for i := len(m.Ladder) - 1; i >= 0; i-- {
		id := m.Ladder[i].ID
		sample, err := r.audioSample(ctx, m.BaseStreamURL, id, middle)
		if err != nil {
			return err
		}
		if sample == nil {
			continue
		}
		if err := r.validator.Validate(ctx, sample); err == nil {
			m.AudioVariantID = id
			return nil
		}
		r.logger.Debug("skipping corrupted audio variant", logging.String("variant", id))
	}
	return services.Wrap(services.ErrManifest, "manifest", "audio", "no valid audio variant found", nil)
}

// audioSample returns init+data bytes for one audio variant, or nil when the
// service has no such variant.
func (r *Resolver) audioSample(ctx context.Context, base, variantID string, middle int) ([]byte, error) {
	initResp, err := r.session.GetSegment(ctx, fmt.Sprintf("%s/ai_%s.mp4d", base, variantID))
	if err != nil {
		return nil, services.Wrap(services.ErrManifest, "manifest", "audio", "probe init segment", err)
	}
	if !initResp.OK() {
		return nil, nil
	}
	dataResp, err := r.session.GetSegment(ctx, fmt.Sprintf("%s/a_%s_%d.mp4d", base, variantID, middle))
	if err != nil {
		return nil, services.Wrap(services.ErrManifest, "manifest", "audio", "probe data segment", err)
	}
	if !dataResp.OK() {
		return nil, nil
	}
	return append(initResp.Body, dataResp.Body...), nil
}

func baseStreamURL(manifestURL string) string {
	if idx := strings.LastIndex(manifestURL, "/"); idx > 0 {
		return manifestURL[:idx]
	}
	return manifestURL
}
