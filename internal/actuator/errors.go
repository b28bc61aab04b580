package actuator

import (
	"errors"
	"fmt"
)

// Normalized error vocabulary. Callers classify with errors.Is; only
// ErrConnectivity is retriable.
var (
	// ErrConnectivity covers timeouts, DNS failures, and refused
	// connections. Retriable.
	ErrConnectivity = errors.New("robot unreachable")

	// ErrEmergencyStop means the robot's e-stop is asserted. Permanent
	// until an operator clears it.
	ErrEmergencyStop = errors.New("emergency stop asserted")

	// ErrEndpointUnavailable means the vendor endpoint returned 404.
	// Treated as a permanent configuration fault.
	ErrEndpointUnavailable = errors.New("vendor endpoint unavailable")

	// ErrServerFault is a vendor 5xx without a recognizable safety
	// reason. Permanent, surfaced to the operator.
	ErrServerFault = errors.New("robot server fault")

	// ErrRobotFault is a robot-reported logical rejection (4xx), e.g.
	// rack detection failed or unload point occupied. Permanent.
	ErrRobotFault = errors.New("robot rejected request")
)

// APIError carries the vendor status code and message alongside the
// normalized sentinel it unwraps to.
type APIError struct {
	StatusCode int
	Message    string
	kind       error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("robot API error (%d): %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.kind
}

// IsConnectivity reports whether err is a retriable transport failure.
func IsConnectivity(err error) bool {
	return errors.Is(err, ErrConnectivity)
}
