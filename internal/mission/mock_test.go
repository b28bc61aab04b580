package mission

import (
	"context"
	"log/slog"
	"sync"

	"robotplane/internal/actuator"
)

// mockActuator implements actuator.Actuator with per-test function hooks.
// The zero value is a healthy robot: at rest, every call accepted, every
// move succeeding on the first status poll.
type mockActuator struct {
	mu sync.Mutex

	SendMoveFunc        func(ctx context.Context, target actuator.Target, limits actuator.VelocityLimits) (actuator.MoveHandle, error)
	MoveStatusFunc      func(ctx context.Context, h actuator.MoveHandle) (actuator.MoveState, error)
	CancelMoveFunc      func(ctx context.Context, h actuator.MoveHandle) error
	ChassisStateFunc    func(ctx context.Context) (actuator.ChassisState, error)
	WheelSpeedsFunc     func(ctx context.Context) (actuator.WheelSpeeds, error)
	JackUpFunc          func(ctx context.Context) error
	JackDownFunc        func(ctx context.Context) error
	AlignWithRackFunc   func(ctx context.Context, target actuator.Target) (actuator.MoveHandle, error)
	ToUnloadPointFunc   func(ctx context.Context, pointID, rackAreaID string) (actuator.MoveHandle, error)
	ReturnToChargerFunc func(ctx context.Context) (actuator.MoveHandle, error)
	PositionFunc        func(ctx context.Context) (actuator.Position, error)

	moveCalls   int
	statusCalls int
	cancelCalls int
	jackUps     int
	jackDowns   int
}

func (m *mockActuator) count(n *int) {
	m.mu.Lock()
	*n++
	m.mu.Unlock()
}

func (m *mockActuator) counts() (moves, statuses, cancels, ups, downs int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.moveCalls, m.statusCalls, m.cancelCalls, m.jackUps, m.jackDowns
}

func (m *mockActuator) SendMove(ctx context.Context, target actuator.Target, limits actuator.VelocityLimits) (actuator.MoveHandle, error) {
	m.count(&m.moveCalls)
	if m.SendMoveFunc != nil {
		return m.SendMoveFunc(ctx, target, limits)
	}
	return "mv-1", nil
}

func (m *mockActuator) MoveStatus(ctx context.Context, h actuator.MoveHandle) (actuator.MoveState, error) {
	m.count(&m.statusCalls)
	if m.MoveStatusFunc != nil {
		return m.MoveStatusFunc(ctx, h)
	}
	return actuator.MoveStateSucceeded, nil
}

func (m *mockActuator) CancelMove(ctx context.Context, h actuator.MoveHandle) error {
	m.count(&m.cancelCalls)
	if m.CancelMoveFunc != nil {
		return m.CancelMoveFunc(ctx, h)
	}
	return nil
}

func (m *mockActuator) ChassisState(ctx context.Context) (actuator.ChassisState, error) {
	if m.ChassisStateFunc != nil {
		return m.ChassisStateFunc(ctx)
	}
	return actuator.ChassisState{}, nil
}

func (m *mockActuator) WheelSpeeds(ctx context.Context) (actuator.WheelSpeeds, error) {
	if m.WheelSpeedsFunc != nil {
		return m.WheelSpeedsFunc(ctx)
	}
	return actuator.WheelSpeeds{}, nil
}

func (m *mockActuator) JackUp(ctx context.Context) error {
	m.count(&m.jackUps)
	if m.JackUpFunc != nil {
		return m.JackUpFunc(ctx)
	}
	return nil
}

func (m *mockActuator) JackDown(ctx context.Context) error {
	m.count(&m.jackDowns)
	if m.JackDownFunc != nil {
		return m.JackDownFunc(ctx)
	}
	return nil
}

func (m *mockActuator) AlignWithRack(ctx context.Context, target actuator.Target) (actuator.MoveHandle, error) {
	m.count(&m.moveCalls)
	if m.AlignWithRackFunc != nil {
		return m.AlignWithRackFunc(ctx, target)
	}
	return "mv-align", nil
}

func (m *mockActuator) ToUnloadPoint(ctx context.Context, pointID, rackAreaID string) (actuator.MoveHandle, error) {
	m.count(&m.moveCalls)
	if m.ToUnloadPointFunc != nil {
		return m.ToUnloadPointFunc(ctx, pointID, rackAreaID)
	}
	return "mv-unload", nil
}

func (m *mockActuator) ReturnToCharger(ctx context.Context) (actuator.MoveHandle, error) {
	m.count(&m.moveCalls)
	if m.ReturnToChargerFunc != nil {
		return m.ReturnToChargerFunc(ctx)
	}
	return "mv-charge", nil
}

func (m *mockActuator) Position(ctx context.Context) (actuator.Position, error) {
	if m.PositionFunc != nil {
		return m.PositionFunc(ctx)
	}
	return actuator.Position{}, nil
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}
