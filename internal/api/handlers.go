package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/cloudopsstack/cloudops-engine/internal/models"
	"github.com/cloudopsstack/cloudops-engine/internal/services"
	"github.com/cloudopsstack/cloudops-engine/internal/store"
)

type handlers struct {
	service *services.IncidentService
	logger  *slog.Logger
}

// postEvent ingests one infrastructure event. A suppressed low-severity
// event still returns 200 with an explanatory message.
func (h *handlers) postEvent(w http.ResponseWriter, r *http.Request) {
	var event models.IncidentEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid event payload")
		return
	}

	result, err := h.service.ProcessEvent(r.Context(), event)
	if err != nil {
		h.logger.Error("event processing failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Failed to process incident")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handlers) listIncidents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	req := models.ListIncidentsRequest{
		Status:   models.Status(query.Get("status")),
		Severity: models.Severity(query.Get("severity")),
	}
	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		req.Limit = limit
	}

	resp, err := h.service.ListIncidents(r.Context(), req)
	if err != nil {
		h.logger.Error("list incidents failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) getIncident(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	view, err := h.service.GetIncident(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Incident not found")
			return
		}
		h.logger.Error("get incident failed", slog.String("incident_id", id), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *handlers) resolveIncident(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	view, err := h.service.ResolveIncident(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Incident not found")
			return
		}
		h.logger.Error("resolve incident failed", slog.String("incident_id", id), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *handlers) getMetrics(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Metrics(r.Context())
	if err != nil {
		h.logger.Error("metrics aggregation failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
