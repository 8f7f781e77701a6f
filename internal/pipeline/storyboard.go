package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/agthegodyt04-cmyk/clipper/internal/engine"
	"github.com/agthegodyt04-cmyk/clipper/internal/model"
)

const (
	defaultDurationSec = 15
	maxDurationSec     = 60
	defaultSceneCount  = 4
	maxSceneCount      = 8
)

// sceneBeats is the fixed narrative arc scenes are assigned from. Counts
// beyond the list cycle back to the start.
var sceneBeats = []string{
	"opening hook shot",
	"product close-up",
	"lifestyle context shot",
	"offer reveal",
	"call to action card",
}

type storyboardStage struct {
	deps Deps
}

func (s *storyboardStage) Type() string { return model.JobStoryboard }

func (s *storyboardStage) Validate(ctx context.Context, project *model.Project, raw json.RawMessage) (json.RawMessage, error) {
	var p model.StoryboardParams
	if len(raw) > 0 {
		if err := model.DecodeParams(raw, &p); err != nil {
			return nil, Validation("invalid storyboard params: %v", err)
		}
	}
	normalizeStoryboard(&p)
	if err := normalizeMode(&p.Mode); err != nil {
		return nil, err
	}
	if err := normalizePlatform(&p.Platform); err != nil {
		return nil, err
	}
	return model.EncodeParams(p)
}

func normalizeStoryboard(p *model.StoryboardParams) {
	if p.DurationSec <= 0 {
		p.DurationSec = defaultDurationSec
	}
	if p.DurationSec > maxDurationSec {
		p.DurationSec = maxDurationSec
	}
	if p.SceneCount <= 0 {
		p.SceneCount = defaultSceneCount
	}
	if p.SceneCount > maxSceneCount {
		p.SceneCount = maxSceneCount
	}
	if strings.TrimSpace(p.StylePrompt) == "" {
		p.StylePrompt = "clean modern product ad"
	}
}

func (s *storyboardStage) Run(ctx context.Context, job *model.Job, project *model.Project, progress ProgressFunc) (json.RawMessage, error) {
	var p model.StoryboardParams
	if err := model.DecodeParams(job.Params, &p); err != nil {
		return nil, err
	}
	out, err := s.render(ctx, job, project, p, progress)
	if err != nil {
		return nil, err
	}
	return model.EncodeParams(model.VideoResult{
		AssetIDs:      out.assetIDs,
		Engine:        out.engine,
		SceneCount:    out.sceneCount,
		VideoRendered: out.videoRendered,
	})
}

// storyboardOutcome is the shared result of a storyboard render, reused by
// the t2v stage when it degrades to scenes.
type storyboardOutcome struct {
	assetIDs      []string
	engine        string
	sceneCount    int
	videoRendered bool
}

// render generates scene stills, subtitles, and a manifest, then encodes a
// slideshow video when an encoder is present. A missing or failing encoder
// degrades the job to a scenes-only success rather than an error.
func (s *storyboardStage) render(ctx context.Context, job *model.Job, project *model.Project, p model.StoryboardParams, progress ProgressFunc) (*storyboardOutcome, error) {
	prompts := scenePrompts(project, p)
	chain := s.deps.Resolver.ImageChain(ctx, p.Mode)
	w, h := engine.PlatformSize(p.Platform, p.Mode)

	out := &storyboardOutcome{sceneCount: p.SceneCount}
	scenePNGs := make([][]byte, 0, p.SceneCount)
	sceneAssetIDs := make([]string, 0, p.SceneCount)

	for i, prompt := range prompts {
		pct := 5 + (60*(i+1))/p.SceneCount
		if err := progress(ctx, fmt.Sprintf("storyboard_scene_%d", i+1), pct); err != nil {
			return nil, err
		}
		seed := engine.SeedFromPrompt(prompt) + int64(i)
		img, err := runImageChain(ctx, s.deps.Logger, chain, engine.ImageRequest{
			Prompt:   prompt,
			Platform: p.Platform,
			Mode:     p.Mode,
			Seed:     seed,
			Width:    w,
			Height:   h,
		})
		if err != nil {
			return nil, err
		}
		meta := img.Meta
		if meta == nil {
			meta = map[string]string{}
		}
		meta["type"] = "story_scene"
		meta["scene_index"] = fmt.Sprintf("%d", i)
		meta["prompt"] = prompt
		asset, err := s.deps.Store.PutAsset(ctx, job.ProjectID, job.ID, model.AssetImage, img.PNG, meta)
		if err != nil {
			return nil, err
		}
		out.engine = meta["engine"]
		scenePNGs = append(scenePNGs, img.PNG)
		sceneAssetIDs = append(sceneAssetIDs, asset.ID)
		out.assetIDs = append(out.assetIDs, asset.ID)
	}

	if err := progress(ctx, "storyboard_subtitles", 72); err != nil {
		return nil, err
	}
	lines := narrationLines(project, p)
	srt := renderSRT(lines, p.DurationSec)
	subAsset, err := s.deps.Store.PutAsset(ctx, job.ProjectID, job.ID, model.AssetSubtitle,
		[]byte(srt), map[string]string{"voice": p.Voice, "format": "srt"})
	if err != nil {
		return nil, err
	}
	out.assetIDs = append(out.assetIDs, subAsset.ID)

	if err := progress(ctx, "storyboard_manifest", 78); err != nil {
		return nil, err
	}
	manifest := buildManifest(p, prompts, sceneAssetIDs, subAsset.ID)
	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, err
	}
	manAsset, err := s.deps.Store.PutAsset(ctx, job.ProjectID, job.ID, model.AssetMeta,
		manifestJSON, map[string]string{"type": "storyboard_manifest"})
	if err != nil {
		return nil, err
	}
	out.assetIDs = append(out.assetIDs, manAsset.ID)

	if s.deps.Encoder == nil || !s.deps.Encoder.Available() {
		s.deps.Logger.Info("encoder unavailable, skipping video render", "job_id", job.ID)
		return out, nil
	}
	if err := progress(ctx, "storyboard_encoding", 88); err != nil {
		return nil, err
	}
	mp4, err := s.deps.Encoder.Encode(ctx, scenePNGs, p.DurationSec)
	if err != nil {
		// Scenes and subtitles already stand on their own.
		s.deps.Logger.Warn("video encode failed, keeping scenes only", "job_id", job.ID, "error", err)
		return out, nil
	}
	vidAsset, err := s.deps.Store.PutAsset(ctx, job.ProjectID, job.ID, model.AssetVideo, mp4, map[string]string{
		"engine":       "slideshow",
		"duration_sec": fmt.Sprintf("%d", p.DurationSec),
		"platform":     p.Platform,
	})
	if err != nil {
		return nil, err
	}
	out.assetIDs = append(out.assetIDs, vidAsset.ID)
	out.videoRendered = true
	return out, nil
}

// scenePrompts assigns each scene a beat from the narrative arc, grounded in
// the project brief and the requested style.
func scenePrompts(project *model.Project, p model.StoryboardParams) []string {
	prompts := make([]string, p.SceneCount)
	for i := range prompts {
		beat := sceneBeats[i%len(sceneBeats)]
		parts := []string{beat, project.Product, p.StylePrompt}
		if project.Tone != "" {
			parts = append(parts, project.Tone+" tone")
		}
		prompts[i] = strings.Join(parts, ", ")
	}
	return prompts
}

// narrationLines produces one caption per scene.
func narrationLines(project *model.Project, p model.StoryboardParams) []string {
	brand := project.BrandName
	if brand == "" {
		brand = project.Name
	}
	base := []string{
		fmt.Sprintf("Meet %s from %s.", project.Product, brand),
		fmt.Sprintf("Built for %s.", orDefault(project.Audience, "people like you")),
		fmt.Sprintf("%s.", orDefault(project.Offer, "Available now")),
		"Tap to get started.",
	}
	lines := make([]string, p.SceneCount)
	for i := range lines {
		lines[i] = base[i%len(base)]
	}
	return lines
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// renderSRT lays the lines out evenly across the clip duration.
func renderSRT(lines []string, durationSec int) string {
	var b strings.Builder
	per := time.Duration(durationSec) * time.Second / time.Duration(len(lines))
	for i, line := range lines {
		start := time.Duration(i) * per
		end := start + per
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, srtTimestamp(start), srtTimestamp(end), line)
	}
	return b.String()
}

func srtTimestamp(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	sec := int(d.Seconds()) % 60
	ms := int(d.Milliseconds()) % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, sec, ms)
}

type manifestScene struct {
	Index   int     `json:"index"`
	AssetID string  `json:"asset_id"`
	Prompt  string  `json:"prompt"`
	Start   float64 `json:"start_sec"`
	End     float64 `json:"end_sec"`
}

type storyboardManifest struct {
	DurationSec     int             `json:"duration_sec"`
	Platform        string          `json:"platform"`
	Voice           string          `json:"voice,omitempty"`
	Mode            string          `json:"mode"`
	Scenes          []manifestScene `json:"scenes"`
	SubtitleAssetID string          `json:"subtitle_asset_id"`
}

func buildManifest(p model.StoryboardParams, prompts, sceneAssetIDs []string, subtitleID string) storyboardManifest {
	per := float64(p.DurationSec) / float64(len(prompts))
	scenes := make([]manifestScene, len(prompts))
	for i := range prompts {
		scenes[i] = manifestScene{
			Index:   i,
			AssetID: sceneAssetIDs[i],
			Prompt:  prompts[i],
			Start:   float64(i) * per,
			End:     float64(i+1) * per,
		}
	}
	return storyboardManifest{
		DurationSec:     p.DurationSec,
		Platform:        p.Platform,
		Voice:           p.Voice,
		Mode:            p.Mode,
		Scenes:          scenes,
		SubtitleAssetID: subtitleID,
	}
}
