// Package store contains the persistence layer for robotplane.
package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// MissionStatus represents the state of a mission.
type MissionStatus string

const (
	MissionStatusPending    MissionStatus = "pending"
	MissionStatusInProgress MissionStatus = "in_progress"
	MissionStatusCompleted  MissionStatus = "completed"
	MissionStatusFailed     MissionStatus = "failed"
)

// Terminal reports whether the status allows no further transitions.
func (s MissionStatus) Terminal() bool {
	return s == MissionStatusCompleted || s == MissionStatusFailed
}

// StepType identifies one atomic robot operation.
type StepType string

const (
	StepMove            StepType = "move"
	StepJackUp          StepType = "jack_up"
	StepJackDown        StepType = "jack_down"
	StepAlignWithRack   StepType = "align_with_rack"
	StepToUnloadPoint   StepType = "to_unload_point"
	StepReturnToCharger StepType = "return_to_charger"
)

// StepParams is the type-specific payload of a step. Exactly one concrete
// type is valid per StepType; the executor dispatches on the discriminant.
type StepParams interface {
	stepParams()
}

// MoveParams is the payload for a move step.
type MoveParams struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Orientation float64 `json:"orientation"`
	Label       string  `json:"label,omitempty"`
}

// JackParams is the payload for jack_up and jack_down steps.
type JackParams struct{}

// AlignParams is the payload for an align_with_rack step.
type AlignParams struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Orientation float64 `json:"orientation"`
	Label       string  `json:"label,omitempty"`
}

// UnloadParams is the payload for a to_unload_point step.
type UnloadParams struct {
	PointID    string `json:"point_id"`
	RackAreaID string `json:"rack_area_id"`
}

// ChargeParams is the payload for a return_to_charger step.
type ChargeParams struct{}

func (MoveParams) stepParams()   {}
func (JackParams) stepParams()   {}
func (AlignParams) stepParams()  {}
func (UnloadParams) stepParams() {}
func (ChargeParams) stepParams() {}

// Step is one atomic robot operation inside a mission.
type Step struct {
	Type          StepType
	Params        StepParams
	Completed     bool
	RobotResponse json.RawMessage
	ErrorMessage  string
	RetryCount    int
}

// stepJSON is the wire envelope for Step; params are keyed by Type.
type stepJSON struct {
	Type          StepType        `json:"type"`
	Params        json.RawMessage `json:"params,omitempty"`
	Completed     bool            `json:"completed"`
	RobotResponse json.RawMessage `json:"robot_response,omitempty"`
	ErrorMessage  string          `json:"error_message,omitempty"`
	RetryCount    int             `json:"retry_count"`
}

// MarshalJSON implements json.Marshaler.
func (s Step) MarshalJSON() ([]byte, error) {
	var params json.RawMessage
	if s.Params != nil {
		b, err := json.Marshal(s.Params)
		if err != nil {
			return nil, err
		}
		params = b
	}
	return json.Marshal(stepJSON{
		Type:          s.Type,
		Params:        params,
		Completed:     s.Completed,
		RobotResponse: s.RobotResponse,
		ErrorMessage:  s.ErrorMessage,
		RetryCount:    s.RetryCount,
	})
}

// UnmarshalJSON implements json.Unmarshaler. It decodes Params into the
// concrete type selected by the step's Type discriminant.
func (s *Step) UnmarshalJSON(data []byte) error {
	var env stepJSON
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	params, err := decodeParams(env.Type, env.Params)
	if err != nil {
		return err
	}

	s.Type = env.Type
	s.Params = params
	s.Completed = env.Completed
	s.RobotResponse = env.RobotResponse
	s.ErrorMessage = env.ErrorMessage
	s.RetryCount = env.RetryCount
	return nil
}

func decodeParams(t StepType, raw json.RawMessage) (StepParams, error) {
	decode := func(v StepParams) error {
		if len(raw) == 0 {
			return nil
		}
		return json.Unmarshal(raw, v)
	}

	switch t {
	case StepMove:
		var p MoveParams
		if err := decode(&p); err != nil {
			return nil, err
		}
		return p, nil
	case StepJackUp, StepJackDown:
		var p JackParams
		if err := decode(&p); err != nil {
			return nil, err
		}
		return p, nil
	case StepAlignWithRack:
		var p AlignParams
		if err := decode(&p); err != nil {
			return nil, err
		}
		return p, nil
	case StepToUnloadPoint:
		var p UnloadParams
		if err := decode(&p); err != nil {
			return nil, err
		}
		return p, nil
	case StepReturnToCharger:
		var p ChargeParams
		if err := decode(&p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown step type %q", t)
	}
}

// Clone returns a deep copy of the step.
func (s *Step) Clone() *Step {
	out := *s
	if s.RobotResponse != nil {
		out.RobotResponse = append(json.RawMessage(nil), s.RobotResponse...)
	}
	return &out
}

// Mission is a persisted, ordered sequence of steps representing one robot
// errand from creation to completion or failure.
type Mission struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	RobotID          string        `json:"robot_id"`
	Status           MissionStatus `json:"status"`
	CurrentStepIndex int           `json:"current_step_index"`
	Steps            []*Step       `json:"steps"`
	// Offline marks that the most recent step failed on connectivity
	// rather than a robot-reported fault.
	Offline       bool      `json:"offline,omitempty"`
	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Active reports whether the mission still has work to schedule.
func (m *Mission) Active() bool {
	return m.Status == MissionStatusPending || m.Status == MissionStatusInProgress
}

// Clone returns a deep copy of the mission.
func (m *Mission) Clone() *Mission {
	out := *m
	out.Steps = make([]*Step, len(m.Steps))
	for i, s := range m.Steps {
		out.Steps[i] = s.Clone()
	}
	return &out
}

// AuditRecord is one terminal mission outcome in the append-only audit log.
type AuditRecord struct {
	MissionID  string        `json:"mission_id"`
	Name       string        `json:"name"`
	RobotID    string        `json:"robot_id"`
	Status     MissionStatus `json:"status"`
	StepIndex  int           `json:"step_index"`
	Error      string        `json:"error,omitempty"`
	RecordedAt time.Time     `json:"recorded_at"`
}
