package model

import (
	"encoding/json"
	"fmt"
)

// CopyParams drives the ad-copy stage.
type CopyParams struct {
	Goal  string `json:"goal"`
	CTA   string `json:"cta"`
	Count int    `json:"count"`
	Mode  string `json:"mode"`
}

// ImageParams drives the still-image stage.
type ImageParams struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt"`
	Platform       string `json:"platform"`
	Mode           string `json:"mode"`
	Seed           *int64 `json:"seed,omitempty"`
}

// InpaintParams drives the mask-guided edit stage.
type InpaintParams struct {
	ImageAssetID string   `json:"image_asset_id"`
	MaskAssetID  string   `json:"mask_asset_id"`
	EditPrompt   string   `json:"edit_prompt"`
	Mode         string   `json:"mode"`
	Strength     *float64 `json:"strength,omitempty"`
}

// StoryboardParams drives the scene-based video stage.
type StoryboardParams struct {
	DurationSec int    `json:"duration_sec"`
	Platform    string `json:"platform"`
	Voice       string `json:"voice"`
	StylePrompt string `json:"style_prompt"`
	SceneCount  int    `json:"scene_count"`
	Mode        string `json:"mode"`
}

// T2VParams drives the experimental text-to-video stage.
type T2VParams struct {
	Prompt      string `json:"prompt"`
	DurationSec int    `json:"duration_sec"`
	Platform    string `json:"platform"`
	Mode        string `json:"mode"`
}

// CopyResult is recorded on a finished copy job.
type CopyResult struct {
	AssetIDs []string      `json:"asset_ids"`
	Variants []CopyVariant `json:"variants"`
	Engine   string        `json:"engine"`
}

// CopyVariant is one generated copy alternative.
type CopyVariant struct {
	Hook        string `json:"hook"`
	Headline    string `json:"headline"`
	PrimaryText string `json:"primary_text"`
	CTA         string `json:"cta"`
}

// ImageResult is recorded on a finished image or inpaint job.
type ImageResult struct {
	AssetIDs []string `json:"asset_ids"`
	Engine   string   `json:"engine"`
	Width    int      `json:"width"`
	Height   int      `json:"height"`
	Seed     int64    `json:"seed"`
}

// VideoResult is recorded on a finished storyboard or t2v job.
type VideoResult struct {
	AssetIDs      []string `json:"asset_ids"`
	Engine        string   `json:"engine"`
	SceneCount    int      `json:"scene_count"`
	VideoRendered bool     `json:"video_rendered"`
	FallbackUsed  bool     `json:"fallback_used"`
	Reason        string   `json:"reason,omitempty"`
}

// EncodeParams serializes typed params for storage on a Job.
func EncodeParams(v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}
	return raw, nil
}

// DecodeParams unmarshals a job's stored params into the typed struct for its job type.
func DecodeParams(raw json.RawMessage, into any) error {
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("decode params: %w", err)
	}
	return nil
}
