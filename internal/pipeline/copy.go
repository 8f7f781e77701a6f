package pipeline

import (
	"context"
	"encoding/json"

	"github.com/agthegodyt04-cmyk/clipper/internal/engine"
	"github.com/agthegodyt04-cmyk/clipper/internal/model"
)

const (
	defaultCopyCount = 3
	maxCopyCount     = 10
)

type copyStage struct {
	deps Deps
}

func (s *copyStage) Type() string { return model.JobCopy }

func (s *copyStage) Validate(ctx context.Context, project *model.Project, raw json.RawMessage) (json.RawMessage, error) {
	var p model.CopyParams
	if len(raw) > 0 {
		if err := model.DecodeParams(raw, &p); err != nil {
			return nil, Validation("invalid copy params: %v", err)
		}
	}
	if p.Count <= 0 {
		p.Count = defaultCopyCount
	}
	if p.Count > maxCopyCount {
		p.Count = maxCopyCount
	}
	if err := normalizeMode(&p.Mode); err != nil {
		return nil, err
	}
	return model.EncodeParams(p)
}

func (s *copyStage) Run(ctx context.Context, job *model.Job, project *model.Project, progress ProgressFunc) (json.RawMessage, error) {
	var p model.CopyParams
	if err := model.DecodeParams(job.Params, &p); err != nil {
		return nil, err
	}
	if err := progress(ctx, "copy_generating", 20); err != nil {
		return nil, err
	}

	chain := s.deps.Resolver.CopyChain(ctx, p.Mode)
	out, err := runCopyChain(ctx, s.deps.Logger, chain, engine.CopyRequest{
		Project: *project,
		Goal:    p.Goal,
		CTA:     p.CTA,
		Count:   p.Count,
		Mode:    p.Mode,
	})
	if err != nil {
		return nil, err
	}
	if err := progress(ctx, "copy_saving", 80); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(out.Variants)
	if err != nil {
		return nil, err
	}
	asset, err := s.deps.Store.PutAsset(ctx, job.ProjectID, job.ID, model.AssetCopy, payload, out.Meta)
	if err != nil {
		return nil, err
	}

	return model.EncodeParams(model.CopyResult{
		AssetIDs: []string{asset.ID},
		Variants: out.Variants,
		Engine:   out.Meta["engine"],
	})
}
