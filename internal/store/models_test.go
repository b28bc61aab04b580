package store

import (
	"encoding/json"
	"testing"
)

func TestStep_JSONRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		step Step
	}{
		{
			name: "move with label",
			step: Step{
				Type:   StepMove,
				Params: MoveParams{X: 10.5, Y: -3.2, Orientation: 1.57, Label: "shelf-A"},
			},
		},
		{
			name: "jack_up",
			step: Step{Type: StepJackUp, Params: JackParams{}},
		},
		{
			name: "jack_down completed with response",
			step: Step{
				Type:          StepJackDown,
				Params:        JackParams{},
				Completed:     true,
				RobotResponse: json.RawMessage(`{"state":"succeeded"}`),
			},
		},
		{
			name: "align_with_rack",
			step: Step{
				Type:   StepAlignWithRack,
				Params: AlignParams{X: 4.0, Y: 8.1, Orientation: 0, Label: "rack-1"},
			},
		},
		{
			name: "to_unload_point",
			step: Step{
				Type:   StepToUnloadPoint,
				Params: UnloadParams{PointID: "dock-001", RackAreaID: "area-104"},
			},
		},
		{
			name: "return_to_charger with retries",
			step: Step{Type: StepReturnToCharger, Params: ChargeParams{}, RetryCount: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.step)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}

			var got Step
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}

			if got.Type != tt.step.Type {
				t.Errorf("Type = %v, want %v", got.Type, tt.step.Type)
			}
			if got.Params != tt.step.Params {
				t.Errorf("Params = %#v, want %#v", got.Params, tt.step.Params)
			}
			if got.Completed != tt.step.Completed {
				t.Errorf("Completed = %v, want %v", got.Completed, tt.step.Completed)
			}
			if got.RetryCount != tt.step.RetryCount {
				t.Errorf("RetryCount = %v, want %v", got.RetryCount, tt.step.RetryCount)
			}
			if string(got.RobotResponse) != string(tt.step.RobotResponse) {
				t.Errorf("RobotResponse = %s, want %s", got.RobotResponse, tt.step.RobotResponse)
			}
		})
	}
}

func TestStep_UnmarshalUnknownType(t *testing.T) {
	var s Step
	err := json.Unmarshal([]byte(`{"type":"teleport","params":{}}`), &s)
	if err == nil {
		t.Error("expected error for unknown step type")
	}
}

func TestStep_UnmarshalParamsMatchType(t *testing.T) {
	var s Step
	data := []byte(`{"type":"move","params":{"x":1.0,"y":2.0,"orientation":3.14}}`)
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	p, ok := s.Params.(MoveParams)
	if !ok {
		t.Fatalf("Params is %T, want MoveParams", s.Params)
	}
	if p.X != 1.0 || p.Y != 2.0 || p.Orientation != 3.14 {
		t.Errorf("unexpected params: %+v", p)
	}
}

func TestMissionStatus_Terminal(t *testing.T) {
	tests := []struct {
		status MissionStatus
		want   bool
	}{
		{MissionStatusPending, false},
		{MissionStatusInProgress, false},
		{MissionStatusCompleted, true},
		{MissionStatusFailed, true},
	}

	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestMission_Active(t *testing.T) {
	m := &Mission{Status: MissionStatusPending}
	if !m.Active() {
		t.Error("pending mission should be active")
	}
	m.Status = MissionStatusInProgress
	if !m.Active() {
		t.Error("in_progress mission should be active")
	}
	m.Status = MissionStatusCompleted
	if m.Active() {
		t.Error("completed mission should not be active")
	}
	m.Status = MissionStatusFailed
	if m.Active() {
		t.Error("failed mission should not be active")
	}
}

func TestMission_CloneIsDeep(t *testing.T) {
	m := &Mission{
		ID:     "m-1",
		Status: MissionStatusPending,
		Steps: []*Step{
			{Type: StepMove, Params: MoveParams{X: 1}},
			{Type: StepJackUp, Params: JackParams{}, RobotResponse: json.RawMessage(`{}`)},
		},
	}

	c := m.Clone()
	c.Steps[0].Completed = true
	c.Steps[1].RobotResponse[0] = 'X'

	if m.Steps[0].Completed {
		t.Error("mutating clone step affected original")
	}
	if string(m.Steps[1].RobotResponse) != "{}" {
		t.Error("mutating clone response affected original")
	}
}
