package engine

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/agthegodyt04-cmyk/clipper/internal/model"
)

func TestPlaceholderImageDeterministic(t *testing.T) {
	e := &placeholderImageEngine{}
	req := ImageRequest{
		Prompt:   "red ball",
		Platform: "9:16",
		Mode:     model.ModeDraft,
		Seed:     42,
	}

	first, err := e.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second, err := e.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if !bytes.Equal(first.PNG, second.PNG) {
		t.Error("same seed+prompt produced different bytes")
	}
	if first.Meta["engine"] != "placeholder" {
		t.Errorf("engine meta = %q", first.Meta["engine"])
	}
}

func TestPlaceholderImageSeedVariesOutput(t *testing.T) {
	e := &placeholderImageEngine{}
	base := ImageRequest{Prompt: "red ball", Platform: "1:1", Mode: model.ModeDraft, Seed: 1}
	other := base
	other.Seed = 2

	a, err := e.Generate(context.Background(), base)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := e.Generate(context.Background(), other)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if bytes.Equal(a.PNG, b.PNG) {
		t.Error("different seeds produced identical bytes")
	}
}

func TestPlaceholderImageDimensions(t *testing.T) {
	e := &placeholderImageEngine{}
	out, err := e.Generate(context.Background(), ImageRequest{
		Prompt: "x", Platform: "1:1", Mode: model.ModeDraft, Seed: 7,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(out.PNG))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	// Draft halves 1080x1080.
	if img.Bounds().Dx() != 540 || img.Bounds().Dy() != 540 {
		t.Errorf("dimensions = %dx%d, want 540x540", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestSeedFromPromptStable(t *testing.T) {
	if SeedFromPrompt("red ball") != SeedFromPrompt("red ball") {
		t.Error("same prompt produced different seeds")
	}
	if SeedFromPrompt("red ball") == SeedFromPrompt("blue ball") {
		t.Error("different prompts produced equal seeds")
	}
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestPlaceholderInpaintRespectsMask(t *testing.T) {
	base := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			base.SetRGBA(x, y, color.RGBA{R: 100, G: 100, B: 100, A: 255})
		}
	}
	// Left half editable (white), right half preserved (black).
	mask := image.NewGray(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 4; x++ {
			mask.SetGray(x, y, color.Gray{Y: 255})
		}
	}

	e := &placeholderInpaintEngine{}
	out, err := e.Generate(context.Background(), InpaintRequest{
		BasePNG:    encodePNG(t, base),
		MaskPNG:    encodePNG(t, mask),
		EditPrompt: "make it red",
		Mode:       model.ModeDraft,
		Strength:   1.0,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	result, err := png.Decode(bytes.NewReader(out.PNG))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	r, g, b, _ := result.At(6, 4).RGBA()
	if uint8(r>>8) != 100 || uint8(g>>8) != 100 || uint8(b>>8) != 100 {
		t.Errorf("preserved pixel changed: %d %d %d", r>>8, g>>8, b>>8)
	}

	tint := promptColor("make it red")
	r, g, b, _ = result.At(1, 4).RGBA()
	if uint8(r>>8) != tint.R || uint8(g>>8) != tint.G || uint8(b>>8) != tint.B {
		t.Errorf("editable pixel = %d %d %d, want tint %v", r>>8, g>>8, b>>8, tint)
	}
}

func TestPlaceholderInpaintChangedPixelCount(t *testing.T) {
	base := image.NewRGBA(image.Rect(0, 0, 4, 4))
	mask := image.NewGray(image.Rect(0, 0, 4, 4))
	mask.SetGray(0, 0, color.Gray{Y: 255})
	mask.SetGray(1, 0, color.Gray{Y: 255})

	e := &placeholderInpaintEngine{}
	out, err := e.Generate(context.Background(), InpaintRequest{
		BasePNG:    encodePNG(t, base),
		MaskPNG:    encodePNG(t, mask),
		EditPrompt: "spark",
		Strength:   0.5,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out.Meta["changed_pixels"] != "2" {
		t.Errorf("changed_pixels = %q, want 2", out.Meta["changed_pixels"])
	}
}

func TestTemplateCopyDeterministic(t *testing.T) {
	e := &templateCopyEngine{}
	req := CopyRequest{
		Project: model.Project{
			ID: "p1", BrandName: "Acme", Product: "Widget",
			Audience: "makers", Offer: "20% off", Tone: "playful",
		},
		Goal:  "more signups",
		CTA:   "Try free",
		Count: 3,
		Mode:  model.ModeDraft,
	}

	a, err := e.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := e.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(a.Variants) != 3 {
		t.Fatalf("variants = %d, want 3", len(a.Variants))
	}
	for i := range a.Variants {
		if a.Variants[i] != b.Variants[i] {
			t.Errorf("variant %d differs across identical requests", i)
		}
	}
	if a.Variants[0].CTA != "Try free" {
		t.Errorf("CTA = %q", a.Variants[0].CTA)
	}
}
