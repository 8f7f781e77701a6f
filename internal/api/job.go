package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agthegodyt04-cmyk/clipper/internal/executor"
	"github.com/agthegodyt04-cmyk/clipper/internal/model"
	"github.com/agthegodyt04-cmyk/clipper/internal/pipeline"
	"github.com/agthegodyt04-cmyk/clipper/internal/store"
)

// generateRequest is the JSON body for POST /v1/generate/{type}.
type generateRequest struct {
	ProjectID string          `json:"project_id"`
	Params    json.RawMessage `json:"params"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	jobType := chi.URLParam(r, "type")
	if !model.ValidJobType(jobType) {
		s.writeError(w, http.StatusBadRequest, codeValidation, "unknown job type "+jobType)
		return
	}

	var req generateRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, codeValidation, "invalid JSON body")
		return
	}
	if req.ProjectID == "" {
		s.writeError(w, http.StatusBadRequest, codeValidation, "project_id is required")
		return
	}

	job, err := s.exec.Submit(r.Context(), req.ProjectID, jobType, req.Params)
	switch {
	case pipeline.IsValidation(err):
		s.writeError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	case errors.Is(err, store.ErrNotFound):
		s.writeError(w, http.StatusNotFound, codeNotFound, "project not found")
		return
	case errors.Is(err, executor.ErrQueueFull):
		s.writeError(w, http.StatusServiceUnavailable, codeQueueFull, "job queue is full, retry later")
		return
	case err != nil:
		s.logger.Error("submit job", "type", jobType, "error", err)
		s.writeError(w, http.StatusInternalServerError, codeInternal, "failed to submit job")
		return
	}

	jobsSubmitted.WithLabelValues(jobType).Inc()
	s.writeData(w, http.StatusAccepted, job)
}

// jobResponse pairs a job with the assets it has produced so far, so pollers
// get both in a single round trip.
type jobResponse struct {
	Job    *model.Job     `json:"job"`
	Assets []*model.Asset `json:"assets"`
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	job, err := s.store.GetJob(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, codeNotFound, "job not found")
		return
	}
	if err != nil {
		s.logger.Error("get job", "error", err)
		s.writeError(w, http.StatusInternalServerError, codeInternal, "failed to get job")
		return
	}

	assets, err := s.store.ListAssetsByJob(r.Context(), id)
	if err != nil {
		s.logger.Error("list job assets", "error", err)
		s.writeError(w, http.StatusInternalServerError, codeInternal, "failed to list job assets")
		return
	}
	if assets == nil {
		assets = []*model.Asset{}
	}

	s.writeData(w, http.StatusOK, jobResponse{Job: job, Assets: assets})
}

// cancelResponse reports whether the cancel request changed anything.
type cancelResponse struct {
	Job       *model.Job `json:"job"`
	Cancelled bool       `json:"cancelled"`
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	cancelled, err := s.exec.Cancel(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, codeNotFound, "job not found")
		return
	}
	if err != nil {
		s.logger.Error("cancel job", "error", err)
		s.writeError(w, http.StatusInternalServerError, codeInternal, "failed to cancel job")
		return
	}

	job, err := s.store.GetJob(r.Context(), id)
	if err != nil {
		s.logger.Error("get cancelled job", "error", err)
		s.writeError(w, http.StatusInternalServerError, codeInternal, "failed to retrieve job")
		return
	}

	s.writeData(w, http.StatusOK, cancelResponse{Job: job, Cancelled: cancelled})
}
