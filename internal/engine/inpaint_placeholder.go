package engine

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"
)

// placeholderInpaintEngine applies a deterministic tint to the editable
// region instead of running a diffusion model: the mask's white pixels blend
// toward a color derived from the edit prompt, scaled by strength.
type placeholderInpaintEngine struct{}

func (e *placeholderInpaintEngine) Descriptor() Descriptor {
	return Descriptor{Name: "placeholder", Device: DeviceCPU, Tier: TierPlaceholder}
}

func (e *placeholderInpaintEngine) Generate(_ context.Context, req InpaintRequest) (*ImageOutput, error) {
	base, err := png.Decode(bytes.NewReader(req.BasePNG))
	if err != nil {
		return nil, &Error{Engine: "placeholder", Err: fmt.Errorf("decode base image: %w", err)}
	}
	mask, err := png.Decode(bytes.NewReader(req.MaskPNG))
	if err != nil {
		return nil, &Error{Engine: "placeholder", Err: fmt.Errorf("decode mask image: %w", err)}
	}

	bounds := base.Bounds()
	tint := promptColor(req.EditPrompt)
	strength := req.Strength
	if strength < 0.05 {
		strength = 0.05
	}
	if strength > 1 {
		strength = 1
	}

	out := image.NewRGBA(bounds)
	changed := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := base.At(x, y).RGBA()
			gray, _, _, _ := mask.At(x, y).RGBA()

			// Mask luminance scales how far each pixel moves toward the tint.
			weight := strength * float64(gray) / 0xffff
			if weight > 0 {
				changed++
			}
			out.SetRGBA(x, y, color.RGBA{
				R: blend(uint8(r>>8), tint.R, weight),
				G: blend(uint8(g>>8), tint.G, weight),
				B: blend(uint8(b>>8), tint.B, weight),
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, &Error{Engine: "placeholder", Err: fmt.Errorf("encode png: %w", err)}
	}

	return &ImageOutput{
		PNG:    buf.Bytes(),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Meta: map[string]string{
			"engine":         "placeholder",
			"mode":           req.Mode,
			"strength":       strconv.FormatFloat(strength, 'f', 2, 64),
			"changed_pixels": strconv.Itoa(changed),
		},
	}, nil
}

func blend(base, tint uint8, weight float64) uint8 {
	return uint8(float64(base)*(1-weight) + float64(tint)*weight)
}

// promptColor derives a stable tint from the edit prompt.
func promptColor(prompt string) color.RGBA {
	digest := sha256.Sum256([]byte(prompt))
	return color.RGBA{R: digest[0], G: digest[1], B: digest[2], A: 255}
}
