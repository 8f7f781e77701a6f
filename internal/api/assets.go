package api

import (
	"bytes"
	"errors"
	"image/png"
	"io"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/agthegodyt04-cmyk/clipper/internal/model"
	"github.com/agthegodyt04-cmyk/clipper/internal/store"
)

// maxUploadSize bounds user-supplied base images and masks.
const maxUploadSize = 32 << 20 // 32 MB

func (s *Server) handleListProjectAssets(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.store.GetProject(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, codeNotFound, "project not found")
			return
		}
		s.logger.Error("get project for assets", "error", err)
		s.writeError(w, http.StatusInternalServerError, codeInternal, "failed to get project")
		return
	}

	assets, err := s.store.ListAssets(r.Context(), id)
	if err != nil {
		s.logger.Error("list assets", "error", err)
		s.writeError(w, http.StatusInternalServerError, codeInternal, "failed to list assets")
		return
	}
	if assets == nil {
		assets = []*model.Asset{}
	}

	if kind := r.URL.Query().Get("kind"); kind != "" {
		filtered := assets[:0]
		for _, a := range assets {
			if a.Kind == kind {
				filtered = append(filtered, a)
			}
		}
		assets = filtered
	}

	s.writeData(w, http.StatusOK, assets)
}

// handleUploadAsset stores a user-supplied blob, typically a base image or an
// edit mask for inpainting. The body is the raw bytes; kind comes from the
// query string and is restricted to image and mask.
func (s *Server) handleUploadAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.store.GetProject(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, codeNotFound, "project not found")
			return
		}
		s.logger.Error("get project for upload", "error", err)
		s.writeError(w, http.StatusInternalServerError, codeInternal, "failed to get project")
		return
	}

	kind := r.URL.Query().Get("kind")
	if kind != model.AssetImage && kind != model.AssetMask {
		s.writeError(w, http.StatusBadRequest, codeValidation, "kind must be image or mask")
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadSize))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, codeValidation, "failed to read upload body")
		return
	}
	if len(data) == 0 {
		s.writeError(w, http.StatusBadRequest, codeValidation, "upload body is empty")
		return
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		s.writeError(w, http.StatusBadRequest, codeValidation, "upload is not a decodable PNG")
		return
	}

	asset, err := s.store.PutAsset(r.Context(), id, "", kind, data, map[string]string{"source": "upload"})
	if err != nil {
		s.logger.Error("store uploaded asset", "error", err)
		s.writeError(w, http.StatusInternalServerError, codeInternal, "failed to store asset")
		return
	}

	s.writeData(w, http.StatusCreated, asset)
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	asset, err := s.store.GetAsset(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, codeNotFound, "asset not found")
		return
	}
	if err != nil {
		s.logger.Error("get asset", "error", err)
		s.writeError(w, http.StatusInternalServerError, codeInternal, "failed to get asset")
		return
	}

	s.writeData(w, http.StatusOK, asset)
}

// handleGetAssetContent serves the raw blob with a content type derived from
// the stored file extension.
func (s *Server) handleGetAssetContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	data, asset, err := s.store.GetAssetBytes(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, codeNotFound, "asset not found")
		return
	}
	if err != nil {
		s.logger.Error("get asset content", "error", err)
		s.writeError(w, http.StatusInternalServerError, codeInternal, "failed to read asset")
		return
	}

	w.Header().Set("Content-Type", contentTypeFor(asset))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Error("write asset content", "error", err)
	}
}

func contentTypeFor(asset *model.Asset) string {
	switch filepath.Ext(asset.Path) {
	case ".png":
		return "image/png"
	case ".mp4":
		return "video/mp4"
	case ".srt":
		return "application/x-subrip"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
