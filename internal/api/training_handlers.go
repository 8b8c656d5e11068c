// Handlers for the live training state and job control endpoints.

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/akirol/trainwatch/internal/models"
	"github.com/akirol/trainwatch/internal/trainer"
)

func (s *Server) handleGetTrainingStatus(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.app.Monitor.Snapshot())
}

func (s *Server) handleGetTrainingLog(w http.ResponseWriter, r *http.Request) {
	// ?after=<id> fetches only entries newer than the given log ID, so the
	// console can poll incrementally between WebSocket pushes.
	var after int64
	if v := r.URL.Query().Get("after"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			RespondWithError(w, http.StatusBadRequest, "Invalid 'after' parameter")
			return
		}
		after = parsed
	}

	entries := s.app.Monitor.Logs(after)
	if entries == nil {
		entries = []models.LogEntry{}
	}
	RespondWithJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGetTrainingLoss(w http.ResponseWriter, r *http.Request) {
	points := s.app.Monitor.LossHistory()
	if points == nil {
		points = []models.LossPoint{}
	}
	RespondWithJSON(w, http.StatusOK, points)
}

func (s *Server) handleClearTrainingHistory(w http.ResponseWriter, r *http.Request) {
	s.app.Monitor.Clear()
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleStartTraining(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ConfigID int64 `json:"config_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	doc, err := s.store.GetConfigDocument(payload.ConfigID)
	if err != nil {
		RespondWithError(w, http.StatusNotFound, "Config document not found")
		return
	}

	if err := s.app.Trainer.Start(r.Context(), doc.Data); err != nil {
		// The engine's detail text is already folded into the error message.
		RespondWithError(w, http.StatusBadGateway, err.Error())
		return
	}

	// Fire-and-forget: the authoritative state change arrives through the
	// push channel and the next poll.
	RespondWithJSON(w, http.StatusAccepted, map[string]string{"status": "start requested"})
}

func (s *Server) handleStopTraining(w http.ResponseWriter, r *http.Request) {
	err := s.app.Trainer.Stop(r.Context())
	if errors.Is(err, trainer.ErrAlreadyStopped) {
		// The engine says nothing is running: correct the local flag instead
		// of surfacing an error.
		isTraining := false
		s.app.Monitor.OnStateUpdate(models.StatusPayload{IsTraining: &isTraining})
		RespondWithJSON(w, http.StatusOK, map[string]string{"status": "training was not running"})
		return
	}
	if err != nil {
		RespondWithError(w, http.StatusBadGateway, err.Error())
		return
	}
	RespondWithJSON(w, http.StatusAccepted, map[string]string{"status": "stop requested"})
}

func (s *Server) handleGetSystemStats(w http.ResponseWriter, r *http.Request) {
	stats := s.app.SystemStats()
	if stats == nil {
		RespondWithError(w, http.StatusServiceUnavailable, "No system stats polled yet")
		return
	}
	RespondWithJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGetJobsStatus(w http.ResponseWriter, r *http.Request) {
	if s.jobManager == nil {
		RespondWithError(w, http.StatusServiceUnavailable, "Job manager not running")
		return
	}
	RespondWithJSON(w, http.StatusOK, s.jobManager.GetStatus())
}
