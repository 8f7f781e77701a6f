package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agthegodyt04-cmyk/clipper/internal/engine"
	"github.com/agthegodyt04-cmyk/clipper/internal/model"
)

type t2vStage struct {
	deps       Deps
	storyboard *storyboardStage
}

func (s *t2vStage) Type() string { return model.JobT2V }

func (s *t2vStage) Validate(ctx context.Context, project *model.Project, raw json.RawMessage) (json.RawMessage, error) {
	var p model.T2VParams
	if len(raw) > 0 {
		if err := model.DecodeParams(raw, &p); err != nil {
			return nil, Validation("invalid t2v params: %v", err)
		}
	}
	if strings.TrimSpace(p.Prompt) == "" {
		return nil, Validation("prompt is required")
	}
	if p.DurationSec <= 0 {
		p.DurationSec = defaultDurationSec
	}
	if p.DurationSec > maxDurationSec {
		p.DurationSec = maxDurationSec
	}
	if err := normalizeMode(&p.Mode); err != nil {
		return nil, err
	}
	if err := normalizePlatform(&p.Platform); err != nil {
		return nil, err
	}
	return model.EncodeParams(p)
}

// Run attempts direct text-to-video and, when no engine is available or every
// engine fails, substitutes a storyboard render of the same prompt. The
// substitution is a success, flagged as a fallback, never an error.
func (s *t2vStage) Run(ctx context.Context, job *model.Job, project *model.Project, progress ProgressFunc) (json.RawMessage, error) {
	var p model.T2VParams
	if err := model.DecodeParams(job.Params, &p); err != nil {
		return nil, err
	}

	chain := s.deps.Resolver.T2VChain(ctx, p.Mode)
	if len(chain) > 0 {
		if err := progress(ctx, "t2v_generating", 15); err != nil {
			return nil, err
		}
		for _, e := range chain {
			out, err := e.Generate(ctx, engine.T2VRequest{
				Prompt:      p.Prompt,
				DurationSec: p.DurationSec,
				Platform:    p.Platform,
				Mode:        p.Mode,
			})
			if err != nil {
				s.deps.Logger.Warn("t2v engine failed, trying next in chain",
					"engine", e.Descriptor().Name, "error", err)
				continue
			}
			return s.finishDirect(ctx, job, p, e.Descriptor().Name, out, progress)
		}
		s.deps.Logger.Warn("all t2v engines failed, degrading to storyboard", "job_id", job.ID)
		return s.fallback(ctx, job, project, p, "t2v_engine_failed", progress)
	}

	reason := s.deps.Probe.Snapshot(ctx).T2VReason
	if reason == "" {
		reason = "t2v_unavailable"
	}
	return s.fallback(ctx, job, project, p, reason, progress)
}

func (s *t2vStage) finishDirect(ctx context.Context, job *model.Job, p model.T2VParams, engineName string, out *engine.VideoOutput, progress ProgressFunc) (json.RawMessage, error) {
	if err := progress(ctx, "t2v_saving", 90); err != nil {
		return nil, err
	}
	meta := out.Meta
	if meta == nil {
		meta = map[string]string{}
	}
	meta["prompt"] = p.Prompt
	meta["duration_sec"] = fmt.Sprintf("%d", p.DurationSec)
	asset, err := s.deps.Store.PutAsset(ctx, job.ProjectID, job.ID, model.AssetVideo, out.MP4, meta)
	if err != nil {
		return nil, err
	}
	return model.EncodeParams(model.VideoResult{
		AssetIDs:      []string{asset.ID},
		Engine:        engineName,
		SceneCount:    0,
		VideoRendered: true,
		FallbackUsed:  false,
	})
}

func (s *t2vStage) fallback(ctx context.Context, job *model.Job, project *model.Project, p model.T2VParams, reason string, progress ProgressFunc) (json.RawMessage, error) {
	sp := model.StoryboardParams{
		DurationSec: p.DurationSec,
		Platform:    p.Platform,
		StylePrompt: p.Prompt,
		Mode:        p.Mode,
	}
	normalizeStoryboard(&sp)
	out, err := s.storyboard.render(ctx, job, project, sp, progress)
	if err != nil {
		return nil, err
	}
	return model.EncodeParams(model.VideoResult{
		AssetIDs:      out.assetIDs,
		Engine:        out.engine,
		SceneCount:    out.sceneCount,
		VideoRendered: out.videoRendered,
		FallbackUsed:  true,
		Reason:        reason,
	})
}
