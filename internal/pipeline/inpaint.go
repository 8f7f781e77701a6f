package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"strings"

	"github.com/agthegodyt04-cmyk/clipper/internal/engine"
	"github.com/agthegodyt04-cmyk/clipper/internal/model"
	"github.com/agthegodyt04-cmyk/clipper/internal/store"
)

const defaultInpaintStrength = 0.75

type inpaintStage struct {
	deps Deps
}

func (s *inpaintStage) Type() string { return model.JobInpaint }

// Validate resolves both referenced assets and checks kinds and dimensions up
// front, so a bad edit request never reaches an engine.
func (s *inpaintStage) Validate(ctx context.Context, project *model.Project, raw json.RawMessage) (json.RawMessage, error) {
	var p model.InpaintParams
	if len(raw) > 0 {
		if err := model.DecodeParams(raw, &p); err != nil {
			return nil, Validation("invalid inpaint params: %v", err)
		}
	}
	if strings.TrimSpace(p.EditPrompt) == "" {
		return nil, Validation("edit_prompt is required")
	}
	if err := normalizeMode(&p.Mode); err != nil {
		return nil, err
	}
	if p.Strength == nil {
		def := defaultInpaintStrength
		p.Strength = &def
	} else if *p.Strength < 0 || *p.Strength > 1 {
		return nil, Validation("strength %g is out of range, want 0.0-1.0", *p.Strength)
	}

	base, baseAsset, err := s.loadPNG(ctx, p.ImageAssetID, "image_asset_id")
	if err != nil {
		return nil, err
	}
	if baseAsset.Kind != model.AssetImage {
		return nil, Validation("image_asset_id %s is kind %q, want image", p.ImageAssetID, baseAsset.Kind)
	}
	mask, maskAsset, err := s.loadPNG(ctx, p.MaskAssetID, "mask_asset_id")
	if err != nil {
		return nil, err
	}
	if maskAsset.Kind != model.AssetImage && maskAsset.Kind != model.AssetMask {
		return nil, Validation("mask_asset_id %s is kind %q, want image or mask", p.MaskAssetID, maskAsset.Kind)
	}
	if base.Bounds() != mask.Bounds() {
		return nil, Validation("mask dimensions %dx%d do not match image %dx%d",
			mask.Bounds().Dx(), mask.Bounds().Dy(), base.Bounds().Dx(), base.Bounds().Dy())
	}

	return model.EncodeParams(p)
}

func (s *inpaintStage) loadPNG(ctx context.Context, id, field string) (image.Image, *model.Asset, error) {
	if id == "" {
		return nil, nil, Validation("%s is required", field)
	}
	data, asset, err := s.deps.Store.GetAssetBytes(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, Validation("%s %s not found", field, id)
	}
	if err != nil {
		return nil, nil, err
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, Validation("%s %s is not a decodable PNG: %v", field, id, err)
	}
	return img, asset, nil
}

func (s *inpaintStage) Run(ctx context.Context, job *model.Job, project *model.Project, progress ProgressFunc) (json.RawMessage, error) {
	var p model.InpaintParams
	if err := model.DecodeParams(job.Params, &p); err != nil {
		return nil, err
	}

	if err := progress(ctx, "inpaint_loading", 10); err != nil {
		return nil, err
	}
	base, _, err := s.deps.Store.GetAssetBytes(ctx, p.ImageAssetID)
	if err != nil {
		return nil, err
	}
	mask, _, err := s.deps.Store.GetAssetBytes(ctx, p.MaskAssetID)
	if err != nil {
		return nil, err
	}

	if err := progress(ctx, "inpaint_generating", 30); err != nil {
		return nil, err
	}
	strength := defaultInpaintStrength
	if p.Strength != nil {
		strength = *p.Strength
	}
	chain := s.deps.Resolver.InpaintChain(ctx, p.Mode)
	out, err := runInpaintChain(ctx, s.deps.Logger, chain, engine.InpaintRequest{
		BasePNG:    base,
		MaskPNG:    mask,
		EditPrompt: p.EditPrompt,
		Mode:       p.Mode,
		Strength:   strength,
	})
	if err != nil {
		return nil, err
	}

	if err := progress(ctx, "inpaint_saving", 85); err != nil {
		return nil, err
	}
	meta := out.Meta
	if meta == nil {
		meta = map[string]string{}
	}
	meta["edit_prompt"] = p.EditPrompt
	meta["source_asset_id"] = p.ImageAssetID
	meta["mask_asset_id"] = p.MaskAssetID
	asset, err := s.deps.Store.PutAsset(ctx, job.ProjectID, job.ID, model.AssetImage, out.PNG, meta)
	if err != nil {
		return nil, err
	}

	return model.EncodeParams(model.ImageResult{
		AssetIDs: []string{asset.ID},
		Engine:   meta["engine"],
		Width:    out.Width,
		Height:   out.Height,
	})
}
