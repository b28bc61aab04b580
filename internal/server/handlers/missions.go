package handlers

import (
	"net/http"

	"robotplane/internal/store"
	"robotplane/pkg/api"
)

// GetMission handles GET /missions/{id}.
// The mission resource is the authoritative source of truth for what
// actually happened; creation endpoints report only coarse accept/reject.
func (h *Handlers) GetMission(w http.ResponseWriter, r *http.Request) {
	mission, ok := h.queue.Get(r.PathValue("id"))
	if !ok {
		h.httpError(w, "Mission not found", http.StatusNotFound)
		return
	}
	h.respondJson(w, http.StatusOK, missionResponse(mission))
}

// ListMissions handles GET /missions with an optional ?status= filter.
func (h *Handlers) ListMissions(w http.ResponseWriter, r *http.Request) {
	status := store.MissionStatus(r.URL.Query().Get("status"))
	switch status {
	case "", store.MissionStatusPending, store.MissionStatusInProgress,
		store.MissionStatusCompleted, store.MissionStatusFailed:
	default:
		h.httpError(w, "Invalid status filter", http.StatusBadRequest)
		return
	}

	missions := h.queue.List(status)
	out := make([]api.MissionResponse, len(missions))
	for i, m := range missions {
		out[i] = missionResponse(m)
	}
	h.respondJson(w, http.StatusOK, api.ListMissionsResponse{Missions: out})
}

// CancelMission handles POST /missions/{id}/cancel.
// Cancelling an already-terminal mission is a no-op, reported with
// cancelled=false.
func (h *Handlers) CancelMission(w http.ResponseWriter, r *http.Request) {
	cancelled, err := h.queue.Cancel(r.Context(), r.PathValue("id"), "cancelled by operator")
	if err != nil {
		h.httpError(w, "Mission not found", http.StatusNotFound)
		return
	}
	h.respondJson(w, http.StatusOK, api.CancelMissionResponse{Success: true, Cancelled: cancelled})
}

// CancelAllMissions handles POST /missions/cancel-all.
// Used when an operator needs to seize manual control of the robot.
func (h *Handlers) CancelAllMissions(w http.ResponseWriter, r *http.Request) {
	count, err := h.queue.CancelAllActive(r.Context(), "cancelled by operator")
	if err != nil {
		h.httpError(w, "Failed to cancel missions", http.StatusInternalServerError)
		return
	}
	h.respondJson(w, http.StatusOK, api.CancelAllResponse{Success: true, Cancelled: count})
}

// ClearMissions handles POST /missions/clear.
// Terminal missions leave the active set but stay in the audit log.
func (h *Handlers) ClearMissions(w http.ResponseWriter, r *http.Request) {
	count, err := h.queue.ClearTerminal(r.Context())
	if err != nil {
		h.httpError(w, "Failed to clear missions", http.StatusInternalServerError)
		return
	}
	h.respondJson(w, http.StatusOK, api.ClearTerminalResponse{Success: true, Cleared: count})
}

// GetAudit handles GET /audit.
func (h *Handlers) GetAudit(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.ListAudit(r.Context())
	if err != nil {
		h.httpError(w, "Failed to read audit log", http.StatusInternalServerError)
		return
	}

	out := make([]api.AuditRecordResponse, len(records))
	for i, rec := range records {
		out[i] = api.AuditRecordResponse{
			MissionID:  rec.MissionID,
			Name:       rec.Name,
			RobotID:    rec.RobotID,
			Status:     string(rec.Status),
			StepIndex:  rec.StepIndex,
			Error:      rec.Error,
			RecordedAt: rec.RecordedAt,
		}
	}
	h.respondJson(w, http.StatusOK, api.GetAuditResponse{Records: out})
}
