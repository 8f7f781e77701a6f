package engine

import (
	"context"
	"fmt"

	"github.com/agthegodyt04-cmyk/clipper/internal/model"
)

// Engine tiers.
const (
	TierDraft       = "draft"
	TierHQ          = "hq"
	TierPlaceholder = "placeholder"
)

// Devices.
const (
	DeviceCPU  = "cpu"
	DeviceCUDA = "cuda"
)

// Descriptor identifies one engine in a fallback chain.
type Descriptor struct {
	Name   string `json:"name"`
	Device string `json:"device"`
	Tier   string `json:"tier"`
}

// Error marks a failure from a specific engine. The executor retries the next
// engine in the chain when it sees one.
type Error struct {
	Engine string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("engine %s: %v", e.Engine, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// CopyRequest asks for N short ad-copy variants.
type CopyRequest struct {
	Project model.Project
	Goal    string
	CTA     string
	Count   int
	Mode    string
}

// CopyOutput is the generated variants plus engine metadata.
type CopyOutput struct {
	Variants []model.CopyVariant
	Meta     map[string]string
}

// CopyEngine generates ad copy.
type CopyEngine interface {
	Descriptor() Descriptor
	Generate(ctx context.Context, req CopyRequest) (*CopyOutput, error)
}

// ImageRequest asks for one still image.
type ImageRequest struct {
	Prompt         string
	NegativePrompt string
	Platform       string
	Mode           string
	Seed           int64
	Width          int
	Height         int
}

// ImageOutput is encoded PNG bytes plus engine metadata.
type ImageOutput struct {
	PNG    []byte
	Width  int
	Height int
	Meta   map[string]string
}

// ImageEngine generates still images.
type ImageEngine interface {
	Descriptor() Descriptor
	Generate(ctx context.Context, req ImageRequest) (*ImageOutput, error)
}

// InpaintRequest asks for a mask-guided edit of an existing image. The base
// and mask are PNG-encoded and guaranteed by the caller to share dimensions;
// white mask pixels are editable, black pixels are preserved.
type InpaintRequest struct {
	BasePNG    []byte
	MaskPNG    []byte
	EditPrompt string
	Mode       string
	Strength   float64
}

// InpaintEngine applies mask-guided edits.
type InpaintEngine interface {
	Descriptor() Descriptor
	Generate(ctx context.Context, req InpaintRequest) (*ImageOutput, error)
}

// T2VRequest asks for a clip straight from text.
type T2VRequest struct {
	Prompt      string
	DurationSec int
	Platform    string
	Mode        string
}

// VideoOutput is encoded MP4 bytes plus engine metadata.
type VideoOutput struct {
	MP4  []byte
	Meta map[string]string
}

// T2VEngine generates video directly from a prompt.
type T2VEngine interface {
	Descriptor() Descriptor
	Generate(ctx context.Context, req T2VRequest) (*VideoOutput, error)
}

// platformSizes maps target aspect ratios to full-resolution pixel sizes.
var platformSizes = map[string][2]int{
	"9:16": {1080, 1920},
	"4:5":  {1080, 1350},
	"1:1":  {1080, 1080},
}

// PlatformSize returns the pixel dimensions for a platform aspect ratio.
// Draft mode renders at half resolution.
func PlatformSize(platform, mode string) (int, int) {
	size, ok := platformSizes[platform]
	if !ok {
		size = platformSizes["9:16"]
	}
	w, h := size[0], size[1]
	if mode == model.ModeDraft {
		w /= 2
		h /= 2
	}
	return w, h
}
