// Handlers for the training configuration document store and the read-only
// preset list. Documents are opaque JSON; only well-formedness is checked.

package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/akirol/trainwatch/internal/models"
)

type configPayload struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
}

func (p *configPayload) validate() string {
	if p.Name == "" {
		return "Config name is required"
	}
	// json.Valid accepts the literal null, which would persist an unusable
	// document and later be forwarded to the engine on start.
	if len(p.Data) == 0 || string(p.Data) == "null" || !json.Valid(p.Data) {
		return "Config data must be a valid JSON document"
	}
	return ""
}

func configIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "configID"), 10, 64)
}

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.ListConfigDocuments()
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to list config documents")
		return
	}
	if docs == nil {
		docs = []*models.ConfigDocument{}
	}
	RespondWithJSON(w, http.StatusOK, docs)
}

func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var payload configPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if msg := payload.validate(); msg != "" {
		RespondWithError(w, http.StatusBadRequest, msg)
		return
	}

	doc, err := s.store.CreateConfigDocument(payload.Name, string(payload.Data))
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to create config document")
		return
	}
	RespondWithJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	id, err := configIDParam(r)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid config ID")
		return
	}

	doc, err := s.store.GetConfigDocument(id)
	if err != nil {
		RespondWithError(w, http.StatusNotFound, "Config document not found")
		return
	}
	RespondWithJSON(w, http.StatusOK, doc)
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	id, err := configIDParam(r)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid config ID")
		return
	}

	var payload configPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if msg := payload.validate(); msg != "" {
		RespondWithError(w, http.StatusBadRequest, msg)
		return
	}

	if err := s.store.UpdateConfigDocument(id, payload.Name, string(payload.Data)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			RespondWithError(w, http.StatusNotFound, "Config document not found")
			return
		}
		RespondWithError(w, http.StatusInternalServerError, "Failed to update config document")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	id, err := configIDParam(r)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid config ID")
		return
	}

	if err := s.store.DeleteConfigDocument(id); err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to delete config document")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	if s.presets == nil {
		RespondWithJSON(w, http.StatusOK, []models.Preset{})
		return
	}
	RespondWithJSON(w, http.StatusOK, s.presets.List())
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			RespondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	runs, err := s.store.ListRunSummaries(limit)
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Failed to list run history")
		return
	}
	if runs == nil {
		runs = []*models.RunSummary{}
	}
	RespondWithJSON(w, http.StatusOK, runs)
}
