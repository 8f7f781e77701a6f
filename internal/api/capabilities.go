package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/agthegodyt04-cmyk/clipper/internal/capability"
	"github.com/agthegodyt04-cmyk/clipper/internal/engine"
	"github.com/agthegodyt04-cmyk/clipper/internal/model"
	"github.com/agthegodyt04-cmyk/clipper/internal/pipeline"
	"github.com/agthegodyt04-cmyk/clipper/internal/store"
)

// capabilitiesResponse is the snapshot plus the engine chain each job type
// would resolve to right now.
type capabilitiesResponse struct {
	capability.Snapshot
	Chains map[string][]engine.Descriptor `json:"chains"`
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	snap := s.probe.Snapshot(r.Context())

	chains := make(map[string][]engine.Descriptor, len(model.JobTypes))
	for _, jt := range model.JobTypes {
		chain := s.registry.Resolve(r.Context(), jt, model.ModeDraft)
		if chain == nil {
			chain = []engine.Descriptor{}
		}
		chains[jt] = chain
	}

	s.writeData(w, http.StatusOK, capabilitiesResponse{Snapshot: snap, Chains: chains})
}

// enhancePromptRequest is the JSON body for POST /v1/enhance-prompt.
type enhancePromptRequest struct {
	ProjectID string `json:"project_id,omitempty"`
	Prompt    string `json:"prompt"`
}

func (s *Server) handleEnhancePrompt(w http.ResponseWriter, r *http.Request) {
	var req enhancePromptRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, codeValidation, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		s.writeError(w, http.StatusBadRequest, codeValidation, "prompt is required")
		return
	}

	var project *model.Project
	if req.ProjectID != "" {
		var err error
		project, err = s.store.GetProject(r.Context(), req.ProjectID)
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, codeNotFound, "project not found")
			return
		}
		if err != nil {
			s.logger.Error("get project for enhancement", "error", err)
			s.writeError(w, http.StatusInternalServerError, codeInternal, "failed to get project")
			return
		}
	}

	s.writeData(w, http.StatusOK, pipeline.EnhancePrompt(project, req.Prompt))
}
