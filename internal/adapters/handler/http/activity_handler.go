package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/miletrack/server/internal/core/domain"
	"github.com/miletrack/server/internal/core/ports"
)

type ActivityHandler struct {
	service ports.ActivityService
	sync    ports.SyncService
}

func NewActivityHandler(service ports.ActivityService, sync ports.SyncService) *ActivityHandler {
	return &ActivityHandler{
		service: service,
		sync:    sync,
	}
}

// ListActivities returns the persisted activities for the authenticated
// user, newest first. A background sync is triggered first when due; the
// response never waits for it, so a provider outage degrades to last known
// data.
func (h *ActivityHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(UserIDKey).(uuid.UUID)
	if !ok {
		http.Error(w, "Unauthorized: missing user context", http.StatusUnauthorized)
		return
	}

	h.sync.MaybeSync(r.Context(), userID)

	activities, err := h.service.ListActivities(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to fetch activities: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if activities == nil {
		activities = []domain.Activity{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(activities); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func (h *ActivityHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(UserIDKey).(uuid.UUID)
	if !ok {
		http.Error(w, "Unauthorized: missing user context", http.StatusUnauthorized)
		return
	}

	h.sync.MaybeSync(r.Context(), userID)

	summary, err := h.service.Summary(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to fetch summary: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(summary); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func (h *ActivityHandler) UpdateGoals(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(UserIDKey).(uuid.UUID)
	if !ok {
		http.Error(w, "Unauthorized: missing user context", http.StatusUnauthorized)
		return
	}

	var input ports.UpdateGoalsInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.UpdateGoals(r.Context(), userID, input); err != nil {
		if errors.Is(err, domain.ErrInvalidGoal) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if errors.Is(err, domain.ErrNotLinked) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
