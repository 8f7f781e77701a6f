// Package pipeline implements one generation stage per job type. Every stage
// follows the same shape: validate params, acquire an engine chain from the
// registry, generate, persist assets, and finalize the job result.
package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/agthegodyt04-cmyk/clipper/internal/capability"
	"github.com/agthegodyt04-cmyk/clipper/internal/encode"
	"github.com/agthegodyt04-cmyk/clipper/internal/engine"
	"github.com/agthegodyt04-cmyk/clipper/internal/model"
	"github.com/agthegodyt04-cmyk/clipper/internal/store"
)

// ProgressFunc reports a stage label and percentage. It returns an error when
// the job has been cancelled; stages must stop work and persist nothing
// further once they see it. Calls are cheap and non-blocking.
type ProgressFunc func(ctx context.Context, stage string, percent int) error

// Resolver is the slice of the engine registry the stages need. Chains are
// resolved fresh per job.
type Resolver interface {
	CopyChain(ctx context.Context, mode string) []engine.CopyEngine
	ImageChain(ctx context.Context, mode string) []engine.ImageEngine
	InpaintChain(ctx context.Context, mode string) []engine.InpaintEngine
	T2VChain(ctx context.Context, mode string) []engine.T2VEngine
}

// Stage runs one job type end to end.
type Stage interface {
	Type() string

	// Validate normalizes raw params (applying defaults) and rejects bad
	// requests with a *ValidationError before any job is created.
	Validate(ctx context.Context, project *model.Project, raw json.RawMessage) (json.RawMessage, error)

	// Run executes the stage for a job whose params passed Validate.
	Run(ctx context.Context, job *model.Job, project *model.Project, progress ProgressFunc) (json.RawMessage, error)
}

// Snapshots exposes the capability snapshot; the t2v stage reads its
// degradation reason from it when the direct chain is empty.
type Snapshots interface {
	Snapshot(ctx context.Context) capability.Snapshot
}

// Deps carries the collaborators shared by all stages.
type Deps struct {
	Store    store.Store
	Resolver Resolver
	Probe    Snapshots
	Encoder  *encode.SlideshowEncoder
	Logger   *slog.Logger
}

// Stages builds the full stage set keyed by job type.
func Stages(deps Deps) map[string]Stage {
	storyboard := &storyboardStage{deps: deps}
	return map[string]Stage{
		model.JobCopy:       &copyStage{deps: deps},
		model.JobImage:      &imageStage{deps: deps},
		model.JobInpaint:    &inpaintStage{deps: deps},
		model.JobStoryboard: storyboard,
		model.JobT2V:        &t2vStage{deps: deps, storyboard: storyboard},
	}
}

// normalizeMode defaults an empty quality mode to draft and rejects unknown
// values.
func normalizeMode(mode *string) error {
	switch *mode {
	case "":
		*mode = model.ModeDraft
	case model.ModeDraft, model.ModeHQ:
	default:
		return Validation("unknown mode %q", *mode)
	}
	return nil
}

// normalizePlatform defaults an empty platform to 9:16 and rejects unknown
// aspect ratios.
func normalizePlatform(platform *string) error {
	switch *platform {
	case "":
		*platform = "9:16"
	case "9:16", "4:5", "1:1":
	default:
		return Validation("unknown platform %q", *platform)
	}
	return nil
}

// runImageChain tries each engine in order and returns the first success.
// Failures are logged and the next candidate takes over; the last failure is
// returned when the chain is exhausted.
func runImageChain(ctx context.Context, logger *slog.Logger, chain []engine.ImageEngine, req engine.ImageRequest) (*engine.ImageOutput, error) {
	var lastErr error = &engine.Error{Engine: "none", Err: errChainEmpty}
	for _, e := range chain {
		out, err := e.Generate(ctx, req)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if logger != nil {
			logger.Warn("engine failed, trying next in chain",
				"engine", e.Descriptor().Name, "error", err)
		}
	}
	return nil, lastErr
}

func runCopyChain(ctx context.Context, logger *slog.Logger, chain []engine.CopyEngine, req engine.CopyRequest) (*engine.CopyOutput, error) {
	var lastErr error = &engine.Error{Engine: "none", Err: errChainEmpty}
	for _, e := range chain {
		out, err := e.Generate(ctx, req)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if logger != nil {
			logger.Warn("engine failed, trying next in chain",
				"engine", e.Descriptor().Name, "error", err)
		}
	}
	return nil, lastErr
}

func runInpaintChain(ctx context.Context, logger *slog.Logger, chain []engine.InpaintEngine, req engine.InpaintRequest) (*engine.ImageOutput, error) {
	var lastErr error = &engine.Error{Engine: "none", Err: errChainEmpty}
	for _, e := range chain {
		out, err := e.Generate(ctx, req)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if logger != nil {
			logger.Warn("engine failed, trying next in chain",
				"engine", e.Descriptor().Name, "error", err)
		}
	}
	return nil, lastErr
}
