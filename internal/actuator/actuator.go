// Package actuator is the sole component that speaks to the physical
// robot's remote HTTP interface. The rest of the system sees only the
// Actuator interface and the normalized error vocabulary in errors.go.
package actuator

import "context"

// MoveState is the normalized status of a navigation move.
type MoveState string

const (
	MoveStateMoving    MoveState = "moving"
	MoveStateSucceeded MoveState = "succeeded"
	MoveStateFailed    MoveState = "failed"
	MoveStateCancelled MoveState = "cancelled"
)

// Terminal reports whether the move has reached a final state.
func (s MoveState) Terminal() bool {
	return s != MoveStateMoving
}

// MoveHandle identifies an in-flight move for status polling.
type MoveHandle string

// Target is a pose the robot should navigate to.
type Target struct {
	X           float64
	Y           float64
	Orientation float64
	Label       string
}

// VelocityLimits bounds a move. Zero values mean vendor defaults.
type VelocityLimits struct {
	Linear  float64
	Angular float64
}

// ChassisState is the robot's coarse motion/availability state.
type ChassisState struct {
	Moving        bool
	Busy          bool
	Charging      bool
	EmergencyStop bool
}

// WheelSpeeds are the signed wheel velocities in m/s.
type WheelSpeeds struct {
	Left  float64
	Right float64
}

// Position is the robot's estimated pose, best-effort only. It is used
// for diagnostics and stall detection, never for completion decisions.
type Position struct {
	X           float64
	Y           float64
	Orientation float64
}

// Actuator is the operation set the control plane needs from the robot,
// independent of the vendor wire format.
type Actuator interface {
	// SendMove begins a navigation move and returns a handle for polling.
	SendMove(ctx context.Context, target Target, limits VelocityLimits) (MoveHandle, error)

	// MoveStatus returns the current state of an in-flight move.
	MoveStatus(ctx context.Context, h MoveHandle) (MoveState, error)

	// CancelMove aborts an in-flight move at the robot.
	CancelMove(ctx context.Context, h MoveHandle) error

	// ChassisState returns the robot's motion/availability flags.
	ChassisState(ctx context.Context) (ChassisState, error)

	// WheelSpeeds returns the current wheel velocities.
	WheelSpeeds(ctx context.Context) (WheelSpeeds, error)

	// JackUp raises the rack jack. The vendor reports accept/reject only;
	// callers must apply their own settle delay for completion.
	JackUp(ctx context.Context) error

	// JackDown lowers the rack jack. Same accept/reject contract as JackUp.
	JackDown(ctx context.Context) error

	// AlignWithRack begins a rack-alignment move.
	AlignWithRack(ctx context.Context, target Target) (MoveHandle, error)

	// ToUnloadPoint begins a move to a named unload point in a rack area.
	ToUnloadPoint(ctx context.Context, pointID, rackAreaID string) (MoveHandle, error)

	// ReturnToCharger begins the docking move back to the charger.
	ReturnToCharger(ctx context.Context) (MoveHandle, error)

	// Position returns the robot's estimated pose.
	Position(ctx context.Context) (Position, error)
}
