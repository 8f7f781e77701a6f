// Package capability detects what hardware and model weights are present on
// this machine. The snapshot is advisory: it feeds engine resolution and the
// system endpoint, and consumers must tolerate staleness.
package capability

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/agthegodyt04-cmyk/clipper/internal/config"
)

// Model families the pipeline cares about.
const (
	FamilyImage   = "image"
	FamilyInpaint = "inpaint"
	FamilyVideo   = "video"
	FamilyText    = "text"
)

// snapshotTTL bounds how stale a cached snapshot may get before re-probing.
const snapshotTTL = 5 * time.Second

// GPU describes the detected graphics hardware.
type GPU struct {
	Available bool   `json:"available"`
	Name      string `json:"name,omitempty"`
	VRAMMB    int    `json:"vram_mb,omitempty"`
}

// ModelStatus reports the weight files found for one model family.
type ModelStatus struct {
	Present bool     `json:"present"`
	Keys    []string `json:"keys,omitempty"`
	Default string   `json:"default,omitempty"`
}

// Snapshot is a point-in-time readout of hardware and installed models.
type Snapshot struct {
	GPU              GPU                    `json:"gpu"`
	Models           map[string]ModelStatus `json:"models"`
	EncoderAvailable bool                   `json:"encoder_available"`
	StrictImage      bool                   `json:"strict_image"`
	StrictCopy       bool                   `json:"strict_copy"`
	T2VEnabled       bool                   `json:"t2v_enabled"`
	T2VReason        string                 `json:"t2v_reason"`
	TakenAt          time.Time              `json:"taken_at"`
}

// Probe checks hardware and model availability. Results are cached in memory
// for a short interval; probing has no side effects.
type Probe struct {
	cfg config.Config

	mu     sync.Mutex
	cached *Snapshot
}

// NewProbe creates a probe over the configured model directory.
func NewProbe(cfg config.Config) *Probe {
	return &Probe{cfg: cfg}
}

// Snapshot returns the current capability readout, re-probing if the cached
// one has expired.
func (p *Probe) Snapshot(ctx context.Context) Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil && time.Since(p.cached.TakenAt) < snapshotTTL {
		return *p.cached
	}

	snap := p.probe(ctx)
	p.cached = &snap
	return snap
}

// Invalidate drops the cached snapshot so the next call re-probes.
func (p *Probe) Invalidate() {
	p.mu.Lock()
	p.cached = nil
	p.mu.Unlock()
}

func (p *Probe) probe(ctx context.Context) Snapshot {
	snap := Snapshot{
		GPU: detectGPU(ctx),
		Models: map[string]ModelStatus{
			FamilyImage:   diffusionModels(filepath.Join(p.cfg.ModelDir, FamilyImage)),
			FamilyInpaint: diffusionModels(filepath.Join(p.cfg.ModelDir, FamilyInpaint)),
			FamilyVideo:   diffusionModels(filepath.Join(p.cfg.ModelDir, FamilyVideo)),
			FamilyText:    ggufModels(filepath.Join(p.cfg.ModelDir, FamilyText)),
		},
		StrictImage: p.cfg.StrictImage,
		StrictCopy:  p.cfg.StrictCopy,
		TakenAt:     time.Now().UTC(),
	}

	if _, err := exec.LookPath(p.cfg.EncoderCommand); err == nil {
		snap.EncoderAvailable = true
	}

	switch {
	case p.cfg.ForceT2V:
		snap.T2VEnabled = true
		snap.T2VReason = "forced_by_config"
	case snap.GPU.Available && snap.Models[FamilyVideo].Present:
		snap.T2VEnabled = true
		snap.T2VReason = "gpu_and_model_detected"
	case !snap.GPU.Available:
		snap.T2VReason = "gpu_not_detected"
	default:
		snap.T2VReason = "video_model_not_installed"
	}

	return snap
}

// DefaultModelKey resolves the model key a quality mode should use for a
// family. Draft prefers a turbo variant when one exists; HQ prefers the
// opposite. Falls back to the family default.
func (s Snapshot) DefaultModelKey(family, mode string) string {
	status, ok := s.Models[family]
	if !ok || !status.Present {
		return ""
	}
	wantTurbo := mode == "draft"
	for _, key := range status.Keys {
		if strings.Contains(strings.ToLower(key), "turbo") == wantTurbo {
			return key
		}
	}
	return status.Default
}

// detectGPU reports NVIDIA hardware. Presence of nvidia-smi decides
// availability; name and memory are best-effort.
func detectGPU(ctx context.Context) GPU {
	path, err := exec.LookPath("nvidia-smi")
	if err != nil {
		return GPU{}
	}
	gpu := GPU{Available: true}

	queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	out, err := exec.CommandContext(queryCtx, path,
		"--query-gpu=name,memory.total", "--format=csv,noheader,nounits").Output()
	if err != nil {
		return gpu
	}
	fields := strings.SplitN(strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0]), ",", 2)
	if len(fields) == 2 {
		gpu.Name = strings.TrimSpace(fields[0])
		if mb, err := strconv.Atoi(strings.TrimSpace(fields[1])); err == nil {
			gpu.VRAMMB = mb
		}
	}
	return gpu
}

// diffusionModels finds installed diffusion weights: either root itself or
// any direct child directory holding a model_index.json.
func diffusionModels(root string) ModelStatus {
	var keys []string
	if fileExists(filepath.Join(root, "model_index.json")) {
		keys = append(keys, filepath.Base(root))
	}
	matches, _ := filepath.Glob(filepath.Join(root, "*", "model_index.json"))
	for _, m := range matches {
		keys = append(keys, filepath.Base(filepath.Dir(m)))
	}
	sort.Strings(keys)
	status := ModelStatus{Present: len(keys) > 0, Keys: keys}
	if status.Present {
		status.Default = keys[0]
	}
	return status
}

// ggufModels finds quantized text models (*.gguf files).
func ggufModels(root string) ModelStatus {
	matches, _ := filepath.Glob(filepath.Join(root, "*.gguf"))
	var keys []string
	for _, m := range matches {
		keys = append(keys, filepath.Base(m))
	}
	sort.Strings(keys)
	status := ModelStatus{Present: len(keys) > 0, Keys: keys}
	if status.Present {
		status.Default = keys[0]
	}
	return status
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
