package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/agthegodyt04-cmyk/clipper/internal/capability"
	"github.com/agthegodyt04-cmyk/clipper/internal/config"
	"github.com/agthegodyt04-cmyk/clipper/internal/model"
)

// Registry builds the ordered fallback chain of engines for a job type and
// quality mode. Resolution is stateless per call: every job re-reads the
// capability snapshot, so a transient engine failure never demotes an engine
// for later jobs.
type Registry struct {
	cfg    config.Config
	probe  *capability.Probe
	logger *slog.Logger

	// handle guards the one GPU-resident model slot. Real engines that load
	// weights are exclusive to one executor at a time.
	handle modelHandle
}

// modelHandle is the explicitly owned, lock-guarded record of which model is
// currently loaded. Tracking the key lets engines report whether a call paid
// the reload cost.
type modelHandle struct {
	mu     sync.Mutex
	family string
	key    string
}

// NewRegistry creates a registry over the given capability probe.
func NewRegistry(cfg config.Config, probe *capability.Probe, logger *slog.Logger) *Registry {
	return &Registry{cfg: cfg, probe: probe, logger: logger}
}

// AcquireModel locks the loaded-model handle for one generation call and
// records the model it hosts. The returned reload flag reports whether the
// slot held a different model before. Callers must invoke release when the
// generation call finishes.
func (r *Registry) AcquireModel(family, key string) (reload bool, release func()) {
	r.handle.mu.Lock()
	reload = r.handle.family != family || r.handle.key != key
	r.handle.family = family
	r.handle.key = key
	return reload, r.handle.mu.Unlock
}

// Resolve returns the ordered engine descriptors for a job type and quality
// mode, mirroring what the typed chain getters produce.
func (r *Registry) Resolve(ctx context.Context, jobType, mode string) []Descriptor {
	switch jobType {
	case model.JobCopy:
		return descriptors(r.CopyChain(ctx, mode))
	case model.JobImage:
		return descriptors(r.ImageChain(ctx, mode))
	case model.JobInpaint:
		return descriptors(r.InpaintChain(ctx, mode))
	case model.JobStoryboard:
		// Storyboard scenes ride the image chain.
		return descriptors(r.ImageChain(ctx, mode))
	case model.JobT2V:
		return descriptors(r.T2VChain(ctx, mode))
	default:
		return nil
	}
}

type described interface{ Descriptor() Descriptor }

func descriptors[E described](chain []E) []Descriptor {
	out := make([]Descriptor, 0, len(chain))
	for _, e := range chain {
		out = append(out, e.Descriptor())
	}
	return out
}

// CopyChain resolves ad-copy engines: a local LLM when weights and a runner
// command exist, then the deterministic template engine unless strict mode
// removed it.
func (r *Registry) CopyChain(ctx context.Context, mode string) []CopyEngine {
	snap := r.probe.Snapshot(ctx)
	var chain []CopyEngine

	if snap.Models[capability.FamilyText].Present && r.cfg.CopyCommand != "" {
		chain = append(chain, &llamaCopyEngine{
			command:  r.cfg.CopyCommand,
			modelKey: snap.DefaultModelKey(capability.FamilyText, mode),
			modelDir: r.cfg.ModelDir,
			registry: r,
		})
	}
	if !snap.StrictCopy {
		chain = append(chain, &templateCopyEngine{})
	}
	return chain
}

// ImageChain resolves still-image engines: the diffusion runner when weights
// and a command exist (preferring the mode's default model), then the
// deterministic placeholder renderer unless strict mode removed it.
func (r *Registry) ImageChain(ctx context.Context, mode string) []ImageEngine {
	snap := r.probe.Snapshot(ctx)
	var chain []ImageEngine

	if snap.Models[capability.FamilyImage].Present && r.cfg.ImageCommand != "" {
		device := DeviceCPU
		if snap.GPU.Available {
			device = DeviceCUDA
		}
		chain = append(chain, &diffusionImageEngine{
			command:  r.cfg.ImageCommand,
			modelKey: snap.DefaultModelKey(capability.FamilyImage, mode),
			modelDir: r.cfg.ModelDir,
			device:   device,
			registry: r,
		})
	}
	if !snap.StrictImage {
		chain = append(chain, &placeholderImageEngine{})
	}
	return chain
}

// InpaintChain resolves mask-guided edit engines. Strictness follows the
// image flag since both are the image model family.
func (r *Registry) InpaintChain(ctx context.Context, mode string) []InpaintEngine {
	snap := r.probe.Snapshot(ctx)
	var chain []InpaintEngine

	if snap.Models[capability.FamilyInpaint].Present && r.cfg.InpaintCommand != "" {
		device := DeviceCPU
		if snap.GPU.Available {
			device = DeviceCUDA
		}
		chain = append(chain, &diffusionInpaintEngine{
			command:  r.cfg.InpaintCommand,
			modelKey: snap.DefaultModelKey(capability.FamilyInpaint, mode),
			modelDir: r.cfg.ModelDir,
			device:   device,
			registry: r,
		})
	}
	if !snap.StrictImage {
		chain = append(chain, &placeholderInpaintEngine{})
	}
	return chain
}

// T2VChain resolves text-to-video engines. There is no placeholder here:
// when the chain is empty or fails, the t2v stage substitutes a storyboard
// result and flags the degradation instead.
func (r *Registry) T2VChain(ctx context.Context, mode string) []T2VEngine {
	snap := r.probe.Snapshot(ctx)
	if !snap.T2VEnabled || r.cfg.T2VCommand == "" {
		return nil
	}
	return []T2VEngine{&diffusionT2VEngine{
		command:  r.cfg.T2VCommand,
		modelKey: snap.DefaultModelKey(capability.FamilyVideo, mode),
		modelDir: r.cfg.ModelDir,
		registry: r,
	}}
}
