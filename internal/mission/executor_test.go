package mission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"robotplane/internal/actuator"
	"robotplane/internal/safety"
	"robotplane/internal/store"
)

// newTestExecutor wires an executor to act with all delays collapsed so
// the polling loops run in milliseconds.
func newTestExecutor(act *mockActuator) *Executor {
	gate := safety.New(act, testLogger())
	gate.SettleDelay = 0
	gate.WheelRetryWait = 0
	gate.BusyRecheckWait = 0

	e := NewExecutor(act, gate, testLogger())
	e.MovePolicy = PollPolicy{Interval: time.Millisecond, Timeout: 250 * time.Millisecond}
	e.ChargerPolicy = PollPolicy{Interval: time.Millisecond, Timeout: 250 * time.Millisecond}
	e.JackSettle = 0
	return e
}

func neverCancelled() bool { return false }

func TestExecuteStep_MoveSucceeds(t *testing.T) {
	act := &mockActuator{}
	e := newTestExecutor(act)

	step := &store.Step{Type: store.StepMove, Params: store.MoveParams{X: 2, Y: 3, Orientation: 1.57}}
	resp, err := e.ExecuteStep(context.Background(), step, neverCancelled)
	if err != nil {
		t.Fatalf("ExecuteStep: %v", err)
	}

	var payload map[string]string
	if err := json.Unmarshal(resp, &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["state"] != "succeeded" || payload["kind"] != "move" {
		t.Errorf("unexpected response payload: %v", payload)
	}
}

func TestExecuteStep_MoveBlockedWhileRobotMoving(t *testing.T) {
	act := &mockActuator{
		ChassisStateFunc: func(ctx context.Context) (actuator.ChassisState, error) {
			return actuator.ChassisState{Moving: true}, nil
		},
	}
	e := newTestExecutor(act)

	step := &store.Step{Type: store.StepMove, Params: store.MoveParams{}}
	_, err := e.ExecuteStep(context.Background(), step, neverCancelled)

	var se *StepError
	if !errors.As(err, &se) || se.Class != FailureRobot {
		t.Fatalf("expected robot failure, got %v", err)
	}
	if moves, _, _, _, _ := act.counts(); moves != 0 {
		t.Error("no move should be sent while another is active")
	}
}

func TestExecuteStep_MoveFailsAtRobot(t *testing.T) {
	act := &mockActuator{
		MoveStatusFunc: func(ctx context.Context, h actuator.MoveHandle) (actuator.MoveState, error) {
			return actuator.MoveStateFailed, nil
		},
	}
	e := newTestExecutor(act)

	step := &store.Step{Type: store.StepMove, Params: store.MoveParams{}}
	_, err := e.ExecuteStep(context.Background(), step, neverCancelled)

	var se *StepError
	if !errors.As(err, &se) || se.Class != FailureRobot {
		t.Fatalf("expected robot failure, got %v", err)
	}
	if se.Retriable() {
		t.Error("robot-reported failure must not be retriable")
	}
}

func TestExecuteStep_ConnectivityIsRetriable(t *testing.T) {
	act := &mockActuator{
		SendMoveFunc: func(ctx context.Context, target actuator.Target, limits actuator.VelocityLimits) (actuator.MoveHandle, error) {
			return "", fmt.Errorf("%w: connection refused", actuator.ErrConnectivity)
		},
	}
	e := newTestExecutor(act)

	step := &store.Step{Type: store.StepMove, Params: store.MoveParams{}}
	_, err := e.ExecuteStep(context.Background(), step, neverCancelled)

	var se *StepError
	if !errors.As(err, &se) || se.Class != FailureConnectivity {
		t.Fatalf("expected connectivity failure, got %v", err)
	}
	if !se.Retriable() {
		t.Error("connectivity failure must be retriable")
	}
}

func TestExecuteStep_MovePollTimeout(t *testing.T) {
	act := &mockActuator{
		MoveStatusFunc: func(ctx context.Context, h actuator.MoveHandle) (actuator.MoveState, error) {
			return actuator.MoveStateMoving, nil
		},
	}
	e := newTestExecutor(act)
	e.MovePolicy.Timeout = 20 * time.Millisecond

	step := &store.Step{Type: store.StepMove, Params: store.MoveParams{}}
	_, err := e.ExecuteStep(context.Background(), step, neverCancelled)

	var se *StepError
	if !errors.As(err, &se) || se.Class != FailureTimeout {
		t.Fatalf("expected timeout failure, got %v", err)
	}
	if se.Retriable() {
		t.Error("timeout failure must not be retriable")
	}
}

func TestExecuteStep_MoveStallDetected(t *testing.T) {
	act := &mockActuator{
		MoveStatusFunc: func(ctx context.Context, h actuator.MoveHandle) (actuator.MoveState, error) {
			return actuator.MoveStateMoving, nil
		},
		PositionFunc: func(ctx context.Context) (actuator.Position, error) {
			return actuator.Position{X: 5, Y: 5}, nil
		},
	}
	e := newTestExecutor(act)
	e.MovePolicy.StallAfter = 15 * time.Millisecond
	e.MovePolicy.Timeout = time.Second

	step := &store.Step{Type: store.StepMove, Params: store.MoveParams{}}
	_, err := e.ExecuteStep(context.Background(), step, neverCancelled)

	var se *StepError
	if !errors.As(err, &se) || se.Class != FailureTimeout {
		t.Fatalf("expected timeout failure for stall, got %v", err)
	}
	if !errors.Is(err, ErrStalled) {
		t.Errorf("expected ErrStalled in chain, got %v", err)
	}
}

func TestExecuteStep_CancelledMidMove(t *testing.T) {
	act := &mockActuator{
		MoveStatusFunc: func(ctx context.Context, h actuator.MoveHandle) (actuator.MoveState, error) {
			return actuator.MoveStateMoving, nil
		},
	}
	e := newTestExecutor(act)

	step := &store.Step{Type: store.StepMove, Params: store.MoveParams{}}
	_, err := e.ExecuteStep(context.Background(), step, func() bool { return true })
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}

	// Abandoning an in-flight move also cancels it at the robot.
	if _, _, cancels, _, _ := act.counts(); cancels != 1 {
		t.Errorf("CancelMove calls = %d, want 1", cancels)
	}
}

func TestExecuteStep_JackUpSucceeds(t *testing.T) {
	act := &mockActuator{}
	e := newTestExecutor(act)

	step := &store.Step{Type: store.StepJackUp, Params: store.JackParams{}}
	resp, err := e.ExecuteStep(context.Background(), step, neverCancelled)
	if err != nil {
		t.Fatalf("ExecuteStep: %v", err)
	}

	var payload map[string]string
	if err := json.Unmarshal(resp, &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["operation"] != "jack_up" || payload["result"] != "accepted" {
		t.Errorf("unexpected response payload: %v", payload)
	}
	if _, _, _, ups, _ := act.counts(); ups != 1 {
		t.Errorf("JackUp calls = %d, want 1", ups)
	}
}

func TestExecuteStep_JackBlockedWhileMoving(t *testing.T) {
	act := &mockActuator{
		ChassisStateFunc: func(ctx context.Context) (actuator.ChassisState, error) {
			return actuator.ChassisState{Moving: true}, nil
		},
	}
	e := newTestExecutor(act)

	step := &store.Step{Type: store.StepJackUp, Params: store.JackParams{}}
	_, err := e.ExecuteStep(context.Background(), step, neverCancelled)

	var se *StepError
	if !errors.As(err, &se) || se.Class != FailureSafety {
		t.Fatalf("expected safety failure, got %v", err)
	}
	if se.Retriable() {
		t.Error("safety failure must not be retriable")
	}
	if _, _, _, ups, _ := act.counts(); ups != 0 {
		t.Error("jack command must not be issued when the gate blocks")
	}
}

func TestExecuteStep_JackDownWheelMotionAfterCall(t *testing.T) {
	calls := 0
	act := &mockActuator{}
	act.WheelSpeedsFunc = func(ctx context.Context) (actuator.WheelSpeeds, error) {
		calls++
		if calls == 1 {
			// gate check: at rest
			return actuator.WheelSpeeds{}, nil
		}
		// post-jack verification: wheels spun up
		return actuator.WheelSpeeds{Left: 0.3, Right: 0.3}, nil
	}
	e := newTestExecutor(act)

	step := &store.Step{Type: store.StepJackDown, Params: store.JackParams{}}
	_, err := e.ExecuteStep(context.Background(), step, neverCancelled)

	var se *StepError
	if !errors.As(err, &se) || se.Class != FailureSafety {
		t.Fatalf("expected safety failure, got %v", err)
	}
	if _, _, _, _, downs := act.counts(); downs != 1 {
		t.Errorf("JackDown calls = %d, want 1", downs)
	}
}

func TestExecuteStep_JackConnectivity(t *testing.T) {
	act := &mockActuator{
		JackUpFunc: func(ctx context.Context) error {
			return fmt.Errorf("%w: dial tcp: timeout", actuator.ErrConnectivity)
		},
	}
	e := newTestExecutor(act)

	step := &store.Step{Type: store.StepJackUp, Params: store.JackParams{}}
	_, err := e.ExecuteStep(context.Background(), step, neverCancelled)

	var se *StepError
	if !errors.As(err, &se) || se.Class != FailureConnectivity {
		t.Fatalf("expected connectivity failure, got %v", err)
	}
}

func TestExecuteStep_NudgeBeforeJackUp(t *testing.T) {
	act := &mockActuator{
		PositionFunc: func(ctx context.Context) (actuator.Position, error) {
			return actuator.Position{X: 4, Y: 4, Orientation: 0}, nil
		},
	}
	e := newTestExecutor(act)
	e.NudgeBeforeJackUp = true

	step := &store.Step{Type: store.StepJackUp, Params: store.JackParams{}}
	if _, err := e.ExecuteStep(context.Background(), step, neverCancelled); err != nil {
		t.Fatalf("ExecuteStep: %v", err)
	}

	moves, _, _, ups, _ := act.counts()
	if moves != 1 {
		t.Errorf("nudge move calls = %d, want 1", moves)
	}
	if ups != 1 {
		t.Errorf("JackUp calls = %d, want 1", ups)
	}
}

func TestExecuteStep_NudgeFailureIsAdvisory(t *testing.T) {
	act := &mockActuator{
		SendMoveFunc: func(ctx context.Context, target actuator.Target, limits actuator.VelocityLimits) (actuator.MoveHandle, error) {
			return "", fmt.Errorf("%w: rejected", actuator.ErrRobotFault)
		},
	}
	e := newTestExecutor(act)
	e.NudgeBeforeJackUp = true

	// A failed nudge never fails the jack step itself.
	step := &store.Step{Type: store.StepJackUp, Params: store.JackParams{}}
	if _, err := e.ExecuteStep(context.Background(), step, neverCancelled); err != nil {
		t.Fatalf("ExecuteStep: %v", err)
	}
	if _, _, _, ups, _ := act.counts(); ups != 1 {
		t.Errorf("JackUp calls = %d, want 1", ups)
	}
}

func TestExecuteStep_ReturnToChargerNotChargingStillSucceeds(t *testing.T) {
	act := &mockActuator{
		ChassisStateFunc: func(ctx context.Context) (actuator.ChassisState, error) {
			return actuator.ChassisState{Charging: false}, nil
		},
	}
	e := newTestExecutor(act)

	step := &store.Step{Type: store.StepReturnToCharger, Params: store.ChargeParams{}}
	if _, err := e.ExecuteStep(context.Background(), step, neverCancelled); err != nil {
		t.Fatalf("ExecuteStep: %v", err)
	}
}

func TestExecuteStep_AlignAndUnloadDispatch(t *testing.T) {
	var alignTarget actuator.Target
	var unloadPoint, unloadArea string
	act := &mockActuator{
		AlignWithRackFunc: func(ctx context.Context, target actuator.Target) (actuator.MoveHandle, error) {
			alignTarget = target
			return "mv-a", nil
		},
		ToUnloadPointFunc: func(ctx context.Context, pointID, rackAreaID string) (actuator.MoveHandle, error) {
			unloadPoint, unloadArea = pointID, rackAreaID
			return "mv-u", nil
		},
	}
	e := newTestExecutor(act)
	ctx := context.Background()

	align := &store.Step{Type: store.StepAlignWithRack, Params: store.AlignParams{X: 7, Y: 8, Label: "rack"}}
	if _, err := e.ExecuteStep(ctx, align, neverCancelled); err != nil {
		t.Fatalf("align: %v", err)
	}
	if alignTarget.X != 7 || alignTarget.Y != 8 || alignTarget.Label != "rack" {
		t.Errorf("unexpected align target: %+v", alignTarget)
	}

	unload := &store.Step{Type: store.StepToUnloadPoint, Params: store.UnloadParams{PointID: "dock-001", RackAreaID: "area-104"}}
	if _, err := e.ExecuteStep(ctx, unload, neverCancelled); err != nil {
		t.Fatalf("unload: %v", err)
	}
	if unloadPoint != "dock-001" || unloadArea != "area-104" {
		t.Errorf("unexpected unload args: %s %s", unloadPoint, unloadArea)
	}
}

func TestExecuteStep_ParamsMismatch(t *testing.T) {
	e := newTestExecutor(&mockActuator{})

	step := &store.Step{Type: store.StepMove, Params: store.JackParams{}}
	_, err := e.ExecuteStep(context.Background(), step, neverCancelled)

	var se *StepError
	if !errors.As(err, &se) || se.Class != FailureRobot {
		t.Fatalf("expected robot failure for params mismatch, got %v", err)
	}
}

func TestExecuteStep_UnknownType(t *testing.T) {
	e := newTestExecutor(&mockActuator{})

	step := &store.Step{Type: store.StepType("teleport")}
	_, err := e.ExecuteStep(context.Background(), step, neverCancelled)

	var se *StepError
	if !errors.As(err, &se) || se.Class != FailureRobot {
		t.Fatalf("expected robot failure for unknown type, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want FailureClass
	}{
		{"connectivity", fmt.Errorf("%w: refused", actuator.ErrConnectivity), FailureConnectivity},
		{"safety", fmt.Errorf("%w: wheels", safety.ErrNotAtRest), FailureSafety},
		{"poll timeout", fmt.Errorf("%w after 2m", ErrPollTimeout), FailureTimeout},
		{"stall", fmt.Errorf("%w: stuck", ErrStalled), FailureTimeout},
		{"robot fault", errors.New("jack already raised"), FailureRobot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var se *StepError
			if !errors.As(classify(tt.in), &se) {
				t.Fatal("expected StepError")
			}
			if se.Class != tt.want {
				t.Errorf("class = %v, want %v", se.Class, tt.want)
			}
		})
	}
}

func TestClassify_PassThrough(t *testing.T) {
	if err := classify(context.Canceled); !errors.Is(err, context.Canceled) {
		t.Errorf("context.Canceled should pass through, got %v", err)
	}
	if err := classify(ErrCancelled); !errors.Is(err, ErrCancelled) {
		t.Errorf("ErrCancelled should pass through, got %v", err)
	}

	var se *StepError
	if errors.As(classify(context.Canceled), &se) {
		t.Error("context.Canceled must not be wrapped in StepError")
	}
}
