package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/agthegodyt04-cmyk/clipper/internal/capability"
	"github.com/agthegodyt04-cmyk/clipper/internal/model"
)

// The real engines shell out to configured runner commands instead of loading
// model weights in-process. A runner receives the model directory, the
// request parameters, and an output path; whatever it writes there is the
// generation result. Runner failures surface as *Error so the executor moves
// to the next engine in the chain.

// runCommand executes a runner and returns the bytes it wrote to outPath.
func runCommand(ctx context.Context, name string, args []string, outPath string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := bytes.TrimSpace(stderr.Bytes())
		if len(detail) > 0 {
			return nil, fmt.Errorf("%w: %s", err, detail)
		}
		return nil, err
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("runner wrote no output: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("runner produced empty output")
	}
	return data, nil
}

// stepsFor picks the sampling step count per model variant: turbo models need
// very few steps.
func stepsFor(modelKey, mode string) int {
	if bytes.Contains(bytes.ToLower([]byte(modelKey)), []byte("turbo")) {
		if mode == model.ModeDraft {
			return 1
		}
		return 2
	}
	if mode == model.ModeDraft {
		return 16
	}
	return 28
}

// diffusionImageEngine drives the text-to-image runner.
type diffusionImageEngine struct {
	command  string
	modelKey string
	modelDir string
	device   string
	registry *Registry
}

func (e *diffusionImageEngine) Descriptor() Descriptor {
	return Descriptor{Name: "diffusion", Device: e.device, Tier: TierHQ}
}

func (e *diffusionImageEngine) Generate(ctx context.Context, req ImageRequest) (*ImageOutput, error) {
	reload, release := e.registry.AcquireModel(capability.FamilyImage, e.modelKey)
	defer release()

	w, h := req.Width, req.Height
	if w <= 0 || h <= 0 {
		w, h = PlatformSize(req.Platform, req.Mode)
	}
	steps := stepsFor(e.modelKey, req.Mode)

	outDir, err := os.MkdirTemp("", "clipper-image-")
	if err != nil {
		return nil, &Error{Engine: "diffusion", Err: err}
	}
	defer os.RemoveAll(outDir)
	outPath := filepath.Join(outDir, "image.png")

	args := []string{
		"--model", filepath.Join(e.modelDir, capability.FamilyImage, e.modelKey),
		"--prompt", req.Prompt,
		"--negative-prompt", req.NegativePrompt,
		"--width", strconv.Itoa(w),
		"--height", strconv.Itoa(h),
		"--steps", strconv.Itoa(steps),
		"--seed", strconv.FormatInt(req.Seed, 10),
		"--device", e.device,
		"--out", outPath,
	}
	data, err := runCommand(ctx, e.command, args, outPath)
	if err != nil {
		return nil, &Error{Engine: "diffusion", Err: err}
	}

	return &ImageOutput{
		PNG:    data,
		Width:  w,
		Height: h,
		Meta: map[string]string{
			"engine":   "diffusion",
			"model":    e.modelKey,
			"device":   e.device,
			"steps":    strconv.Itoa(steps),
			"seed":     strconv.FormatInt(req.Seed, 10),
			"platform": req.Platform,
			"mode":     req.Mode,
			"reloaded": strconv.FormatBool(reload),
		},
	}, nil
}

// diffusionInpaintEngine drives the inpainting runner.
type diffusionInpaintEngine struct {
	command  string
	modelKey string
	modelDir string
	device   string
	registry *Registry
}

func (e *diffusionInpaintEngine) Descriptor() Descriptor {
	return Descriptor{Name: "diffusion-inpaint", Device: e.device, Tier: TierHQ}
}

func (e *diffusionInpaintEngine) Generate(ctx context.Context, req InpaintRequest) (*ImageOutput, error) {
	reload, release := e.registry.AcquireModel(capability.FamilyInpaint, e.modelKey)
	defer release()

	workDir, err := os.MkdirTemp("", "clipper-inpaint-")
	if err != nil {
		return nil, &Error{Engine: "diffusion-inpaint", Err: err}
	}
	defer os.RemoveAll(workDir)

	basePath := filepath.Join(workDir, "base.png")
	maskPath := filepath.Join(workDir, "mask.png")
	outPath := filepath.Join(workDir, "out.png")
	if err := os.WriteFile(basePath, req.BasePNG, 0o644); err != nil {
		return nil, &Error{Engine: "diffusion-inpaint", Err: err}
	}
	if err := os.WriteFile(maskPath, req.MaskPNG, 0o644); err != nil {
		return nil, &Error{Engine: "diffusion-inpaint", Err: err}
	}

	args := []string{
		"--model", filepath.Join(e.modelDir, capability.FamilyInpaint, e.modelKey),
		"--image", basePath,
		"--mask", maskPath,
		"--prompt", req.EditPrompt,
		"--strength", strconv.FormatFloat(req.Strength, 'f', 2, 64),
		"--steps", strconv.Itoa(stepsFor(e.modelKey, req.Mode)),
		"--device", e.device,
		"--out", outPath,
	}
	data, err := runCommand(ctx, e.command, args, outPath)
	if err != nil {
		return nil, &Error{Engine: "diffusion-inpaint", Err: err}
	}

	return &ImageOutput{
		PNG: data,
		Meta: map[string]string{
			"engine":   "diffusion-inpaint",
			"model":    e.modelKey,
			"device":   e.device,
			"mode":     req.Mode,
			"strength": strconv.FormatFloat(req.Strength, 'f', 2, 64),
			"reloaded": strconv.FormatBool(reload),
		},
	}, nil
}

// llamaCopyEngine drives the local-LLM copy runner. The runner must emit a
// JSON array of {hook, headline, primary_text, cta} objects.
type llamaCopyEngine struct {
	command  string
	modelKey string
	modelDir string
	registry *Registry
}

func (e *llamaCopyEngine) Descriptor() Descriptor {
	return Descriptor{Name: "llama", Device: DeviceCPU, Tier: TierHQ}
}

func (e *llamaCopyEngine) Generate(ctx context.Context, req CopyRequest) (*CopyOutput, error) {
	reload, release := e.registry.AcquireModel(capability.FamilyText, e.modelKey)
	defer release()

	outDir, err := os.MkdirTemp("", "clipper-copy-")
	if err != nil {
		return nil, &Error{Engine: "llama", Err: err}
	}
	defer os.RemoveAll(outDir)
	outPath := filepath.Join(outDir, "variants.json")

	args := []string{
		"--model", filepath.Join(e.modelDir, capability.FamilyText, e.modelKey),
		"--brand", req.Project.BrandName,
		"--product", req.Project.Product,
		"--audience", req.Project.Audience,
		"--offer", req.Project.Offer,
		"--tone", req.Project.Tone,
		"--goal", req.Goal,
		"--cta", req.CTA,
		"--count", strconv.Itoa(req.Count),
		"--out", outPath,
	}
	data, err := runCommand(ctx, e.command, args, outPath)
	if err != nil {
		return nil, &Error{Engine: "llama", Err: err}
	}

	var variants []model.CopyVariant
	if err := json.Unmarshal(data, &variants); err != nil {
		return nil, &Error{Engine: "llama", Err: fmt.Errorf("parse runner output: %w", err)}
	}
	if len(variants) == 0 {
		return nil, &Error{Engine: "llama", Err: fmt.Errorf("runner produced no variants")}
	}
	if len(variants) > req.Count {
		variants = variants[:req.Count]
	}

	return &CopyOutput{
		Variants: variants,
		Meta: map[string]string{
			"engine":   "llama",
			"model":    e.modelKey,
			"mode":     req.Mode,
			"count":    strconv.Itoa(len(variants)),
			"reloaded": strconv.FormatBool(reload),
		},
	}, nil
}

// diffusionT2VEngine drives the text-to-video runner.
type diffusionT2VEngine struct {
	command  string
	modelKey string
	modelDir string
	registry *Registry
}

func (e *diffusionT2VEngine) Descriptor() Descriptor {
	return Descriptor{Name: "t2v-diffusion", Device: DeviceCUDA, Tier: TierHQ}
}

func (e *diffusionT2VEngine) Generate(ctx context.Context, req T2VRequest) (*VideoOutput, error) {
	reload, release := e.registry.AcquireModel(capability.FamilyVideo, e.modelKey)
	defer release()

	outDir, err := os.MkdirTemp("", "clipper-t2v-")
	if err != nil {
		return nil, &Error{Engine: "t2v-diffusion", Err: err}
	}
	defer os.RemoveAll(outDir)
	outPath := filepath.Join(outDir, "t2v.mp4")

	frames := req.DurationSec * 2
	if req.Mode == model.ModeHQ {
		frames = req.DurationSec * 3
	}
	if frames < 8 {
		frames = 8
	}
	if frames > 24 {
		frames = 24
	}

	args := []string{
		"--model", filepath.Join(e.modelDir, capability.FamilyVideo, e.modelKey),
		"--prompt", req.Prompt,
		"--frames", strconv.Itoa(frames),
		"--duration", strconv.Itoa(req.DurationSec),
		"--out", outPath,
	}
	data, err := runCommand(ctx, e.command, args, outPath)
	if err != nil {
		return nil, &Error{Engine: "t2v-diffusion", Err: err}
	}

	return &VideoOutput{
		MP4: data,
		Meta: map[string]string{
			"engine":   "t2v-diffusion",
			"model":    e.modelKey,
			"frames":   strconv.Itoa(frames),
			"mode":     req.Mode,
			"reloaded": strconv.FormatBool(reload),
		},
	}, nil
}
