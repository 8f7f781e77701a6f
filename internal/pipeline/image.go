package pipeline

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/agthegodyt04-cmyk/clipper/internal/engine"
	"github.com/agthegodyt04-cmyk/clipper/internal/model"
)

type imageStage struct {
	deps Deps
}

func (s *imageStage) Type() string { return model.JobImage }

func (s *imageStage) Validate(ctx context.Context, project *model.Project, raw json.RawMessage) (json.RawMessage, error) {
	var p model.ImageParams
	if len(raw) > 0 {
		if err := model.DecodeParams(raw, &p); err != nil {
			return nil, Validation("invalid image params: %v", err)
		}
	}
	if strings.TrimSpace(p.Prompt) == "" {
		return nil, Validation("prompt is required")
	}
	if err := normalizeMode(&p.Mode); err != nil {
		return nil, err
	}
	if err := normalizePlatform(&p.Platform); err != nil {
		return nil, err
	}
	return model.EncodeParams(p)
}

func (s *imageStage) Run(ctx context.Context, job *model.Job, project *model.Project, progress ProgressFunc) (json.RawMessage, error) {
	var p model.ImageParams
	if err := model.DecodeParams(job.Params, &p); err != nil {
		return nil, err
	}

	// Absent seed derives from the prompt so repeat runs reproduce.
	seed := engine.SeedFromPrompt(p.Prompt)
	if p.Seed != nil {
		seed = *p.Seed
	}
	w, h := engine.PlatformSize(p.Platform, p.Mode)

	if err := progress(ctx, "image_generating", 25); err != nil {
		return nil, err
	}
	chain := s.deps.Resolver.ImageChain(ctx, p.Mode)
	out, err := runImageChain(ctx, s.deps.Logger, chain, engine.ImageRequest{
		Prompt:         p.Prompt,
		NegativePrompt: p.NegativePrompt,
		Platform:       p.Platform,
		Mode:           p.Mode,
		Seed:           seed,
		Width:          w,
		Height:         h,
	})
	if err != nil {
		return nil, err
	}

	if err := progress(ctx, "image_saving", 85); err != nil {
		return nil, err
	}
	meta := out.Meta
	if meta == nil {
		meta = map[string]string{}
	}
	meta["prompt"] = p.Prompt
	asset, err := s.deps.Store.PutAsset(ctx, job.ProjectID, job.ID, model.AssetImage, out.PNG, meta)
	if err != nil {
		return nil, err
	}

	return model.EncodeParams(model.ImageResult{
		AssetIDs: []string{asset.ID},
		Engine:   meta["engine"],
		Width:    out.Width,
		Height:   out.Height,
		Seed:     seed,
	})
}
