// Package handlers contains HTTP handlers for the control-plane API.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"robotplane/internal/actuator"
	"robotplane/internal/store"
	"robotplane/pkg/api"
)

// MissionQueue is the queue-manager surface the handlers need.
type MissionQueue interface {
	CreateMission(ctx context.Context, name string, steps []*store.Step) (*store.Mission, error)
	Get(id string) (*store.Mission, bool)
	List(status store.MissionStatus) []*store.Mission
	Cancel(ctx context.Context, id, reason string) (bool, error)
	CancelAllActive(ctx context.Context, reason string) (int, error)
	ClearTerminal(ctx context.Context) (int, error)
}

// ChassisProber is the actuator subset used at dispatch time to detect
// charging mode and an asserted emergency stop.
type ChassisProber interface {
	ChassisState(ctx context.Context) (actuator.ChassisState, error)
}

// AuditStore is the store subset used by the audit and readiness routes.
type AuditStore interface {
	ListAudit(ctx context.Context) ([]store.AuditRecord, error)
	Ping(ctx context.Context) error
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	queue   MissionQueue
	chassis ChassisProber
	store   AuditStore
	log     *slog.Logger
}

// New creates a new Handlers instance with the given dependencies.
func New(queue MissionQueue, chassis ChassisProber, auditStore AuditStore, log *slog.Logger) *Handlers {
	return &Handlers{queue: queue, chassis: chassis, store: auditStore, log: log}
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, code int) {
	h.respondJson(w, code, api.ErrorResponse{
		Error: message,
		Code:  strconv.Itoa(code),
	})
}

func missionResponse(m *store.Mission) api.MissionResponse {
	steps := make([]api.StepResponse, len(m.Steps))
	for i, s := range m.Steps {
		steps[i] = api.StepResponse{
			Type:       string(s.Type),
			Completed:  s.Completed,
			RetryCount: s.RetryCount,
			Error:      s.ErrorMessage,
		}
	}
	return api.MissionResponse{
		ID:               m.ID,
		Name:             m.Name,
		RobotID:          m.RobotID,
		Status:           string(m.Status),
		CurrentStepIndex: m.CurrentStepIndex,
		Steps:            steps,
		Offline:          m.Offline,
		FailureReason:    m.FailureReason,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}
