package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agthegodyt04-cmyk/clipper/internal/model"
	"github.com/agthegodyt04-cmyk/clipper/internal/store"
)

const maxBodySize = 1 << 20 // 1 MB

// createProjectRequest is the JSON body for POST /v1/projects.
type createProjectRequest struct {
	Name            string   `json:"name"`
	BrandName       string   `json:"brand_name"`
	Product         string   `json:"product"`
	Audience        string   `json:"audience"`
	Offer           string   `json:"offer"`
	Tone            string   `json:"tone"`
	PlatformTargets []string `json:"platform_targets"`
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, codeValidation, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.writeError(w, http.StatusBadRequest, codeValidation, "name is required")
		return
	}

	project := &model.Project{
		ID:              model.NewID(),
		Name:            req.Name,
		BrandName:       req.BrandName,
		Product:         req.Product,
		Audience:        req.Audience,
		Offer:           req.Offer,
		Tone:            req.Tone,
		PlatformTargets: req.PlatformTargets,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.store.CreateProject(r.Context(), project); err != nil {
		s.logger.Error("create project", "error", err)
		s.writeError(w, http.StatusInternalServerError, codeInternal, "failed to create project")
		return
	}

	s.writeData(w, http.StatusCreated, project)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	project, err := s.store.GetProject(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, codeNotFound, "project not found")
		return
	}
	if err != nil {
		s.logger.Error("get project", "error", err)
		s.writeError(w, http.StatusInternalServerError, codeInternal, "failed to get project")
		return
	}

	s.writeData(w, http.StatusOK, project)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects(r.Context())
	if err != nil {
		s.logger.Error("list projects", "error", err)
		s.writeError(w, http.StatusInternalServerError, codeInternal, "failed to list projects")
		return
	}
	if projects == nil {
		projects = []*model.Project{}
	}
	s.writeData(w, http.StatusOK, projects)
}
