package engine

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math/rand"
	"strconv"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/agthegodyt04-cmyk/clipper/internal/model"
)

// placeholderImageEngine renders a deterministic non-ML image so the pipeline
// always completes even with no model weights installed. Output is a function
// of seed and prompt only.
type placeholderImageEngine struct{}

func (e *placeholderImageEngine) Descriptor() Descriptor {
	return Descriptor{Name: "placeholder", Device: DeviceCPU, Tier: TierPlaceholder}
}

func (e *placeholderImageEngine) Generate(_ context.Context, req ImageRequest) (*ImageOutput, error) {
	w, h := req.Width, req.Height
	if w <= 0 || h <= 0 {
		w, h = PlatformSize(req.Platform, req.Mode)
	}

	rng := rand.New(rand.NewSource(req.Seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: randColor(rng)}, image.Point{}, draw.Src)

	// Geometric blocks keep outputs visibly distinct per seed while staying cheap.
	for i := 0; i < 12; i++ {
		x1 := rng.Intn(max(1, w-100))
		y1 := rng.Intn(max(1, h-100))
		x2 := min(w, x1+80+rng.Intn(max(1, w/2)))
		y2 := min(h, y1+80+rng.Intn(max(1, h/2)))
		block := image.Rect(x1, y1, x2, y2)
		draw.Draw(img, block, &image.Uniform{C: randColor(rng)}, image.Point{}, draw.Src)
	}

	header := "DRAFT AD"
	if req.Mode == model.ModeHQ {
		header = "HQ AD"
	}
	negative := req.NegativePrompt
	if negative == "" {
		negative = "n/a"
	}
	lines := []string{
		header,
		"Prompt: " + truncate(req.Prompt, 60),
		"Avoid: " + truncate(negative, 60),
		"Seed: " + strconv.FormatInt(req.Seed, 10),
	}
	drawLabel(img, lines)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, &Error{Engine: "placeholder", Err: fmt.Errorf("encode png: %w", err)}
	}

	return &ImageOutput{
		PNG:    buf.Bytes(),
		Width:  w,
		Height: h,
		Meta: map[string]string{
			"engine":   "placeholder",
			"platform": req.Platform,
			"mode":     req.Mode,
			"seed":     strconv.FormatInt(req.Seed, 10),
			"width":    strconv.Itoa(w),
			"height":   strconv.Itoa(h),
		},
	}, nil
}

// SeedFromPrompt derives a stable seed when a request omits one, so repeated
// submissions of the same prompt draw the same placeholder.
func SeedFromPrompt(prompt string) int64 {
	digest := sha256.Sum256([]byte(prompt))
	return int64(binary.BigEndian.Uint32(digest[:4]))
}

func randColor(rng *rand.Rand) color.RGBA {
	return color.RGBA{
		R: uint8(20 + rng.Intn(200)),
		G: uint8(20 + rng.Intn(200)),
		B: uint8(20 + rng.Intn(200)),
		A: 255,
	}
}

// drawLabel renders text lines in the top-left corner with the fixed-width
// basicfont face.
func drawLabel(img *image.RGBA, lines []string) {
	face := basicfont.Face7x13
	margin := 24
	for i, line := range lines {
		d := font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(color.White),
			Face: face,
			Dot: fixed.Point26_6{
				X: fixed.I(margin),
				Y: fixed.I(margin + i*(face.Height+6)),
			},
		}
		d.DrawString(line)
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}
