// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and the control-plane server.
package api

import "time"

// Point is a target pose on the warehouse map.
type Point struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Orientation float64 `json:"orientation"`
	Label       string  `json:"label,omitempty"`
}

// LocalTaskRequest is the request body for local pickup/dropoff intents.
type LocalTaskRequest struct {
	Shelf   Point `json:"shelf"`
	Pickup  Point `json:"pickup"`
	Standby Point `json:"standby"`
}

// CreateMissionResponse is the response body after dispatching a task intent.
// Duration is the dispatch time in milliseconds, not the mission runtime.
type CreateMissionResponse struct {
	Success   bool   `json:"success"`
	MissionID string `json:"mission_id"`
	Charging  bool   `json:"charging"`
	Duration  int64  `json:"duration"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// Error codes surfaced on task-intent rejection.
const (
	CodeEmergencyStopPressed = "EMERGENCY_STOP_PRESSED"
)

// StepResponse represents one mission step in API responses.
type StepResponse struct {
	Type       string `json:"type"`
	Completed  bool   `json:"completed"`
	RetryCount int    `json:"retry_count"`
	Error      string `json:"error,omitempty"`
}

// MissionResponse represents a mission in API responses.
type MissionResponse struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	RobotID          string         `json:"robot_id"`
	Status           string         `json:"status"`
	CurrentStepIndex int            `json:"current_step_index"`
	Steps            []StepResponse `json:"steps"`
	Offline          bool           `json:"offline"`
	FailureReason    string         `json:"failure_reason,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// ListMissionsResponse is the response body for mission listings.
type ListMissionsResponse struct {
	Missions []MissionResponse `json:"missions"`
}

// CancelMissionResponse is the response body for a single-mission cancel.
// Cancelled is false when the mission was already terminal (no-op).
type CancelMissionResponse struct {
	Success   bool `json:"success"`
	Cancelled bool `json:"cancelled"`
}

// CancelAllResponse is the response body for cancelling all active missions.
type CancelAllResponse struct {
	Success   bool `json:"success"`
	Cancelled int  `json:"cancelled"`
}

// ClearTerminalResponse is the response body for clearing terminal missions.
type ClearTerminalResponse struct {
	Success bool `json:"success"`
	Cleared int  `json:"cleared"`
}

// AuditRecordResponse is one terminal mission outcome from the audit log.
type AuditRecordResponse struct {
	MissionID  string    `json:"mission_id"`
	Name       string    `json:"name"`
	RobotID    string    `json:"robot_id"`
	Status     string    `json:"status"`
	StepIndex  int       `json:"step_index"`
	Error      string    `json:"error,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// GetAuditResponse is the response body for the audit log query.
type GetAuditResponse struct {
	Records []AuditRecordResponse `json:"records"`
}
