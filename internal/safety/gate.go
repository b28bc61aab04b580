// Package safety guards jack operations behind chassis at-rest checks.
// Lifting or lowering a rack while the chassis or wheels are in motion is
// a physical hazard, so the gate must confirm the robot is at rest.
package safety

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"robotplane/internal/actuator"
)

// ErrNotAtRest is returned when the gate confirms the chassis or wheels
// are still in motion. It is permanent; an operator must intervene.
var ErrNotAtRest = errors.New("safety violation: chassis not at rest")

// Telemetry is the subset of the actuator the gate reads.
type Telemetry interface {
	ChassisState(ctx context.Context) (actuator.ChassisState, error)
	WheelSpeeds(ctx context.Context) (actuator.WheelSpeeds, error)
}

// Gate checks that the robot is fully at rest before a jack operation.
// The gate is advisory-but-mandatory: telemetry reads that error out are
// logged and skipped, but a confirmed in-motion result always blocks.
type Gate struct {
	telemetry Telemetry
	log       *slog.Logger

	// SettleDelay lets just-finished motion decay before the first check
	// and again before the gate opens.
	SettleDelay time.Duration
	// WheelEpsilon is the |speed| above which a wheel counts as moving.
	WheelEpsilon float64
	// WheelAttempts bounds the wheel-speed re-checks.
	WheelAttempts int
	// WheelRetryWait separates wheel-speed re-checks.
	WheelRetryWait time.Duration
	// BusyRecheckWait precedes the single busy-flag re-check.
	BusyRecheckWait time.Duration
}

// New returns a gate with the reference timing constants.
func New(t Telemetry, log *slog.Logger) *Gate {
	return &Gate{
		telemetry:       t,
		log:             log,
		SettleDelay:     3 * time.Second,
		WheelEpsilon:    0.01,
		WheelAttempts:   3,
		WheelRetryWait:  time.Second,
		BusyRecheckWait: 2 * time.Second,
	}
}

// Check blocks through the settle delays and telemetry checks, returning
// nil once the gate opens or ErrNotAtRest on confirmed motion.
func (g *Gate) Check(ctx context.Context) error {
	if err := sleepCtx(ctx, g.SettleDelay); err != nil {
		return err
	}

	state, err := g.telemetry.ChassisState(ctx)
	if err != nil {
		g.log.Warn("safety gate: chassis state unreadable, continuing", "error", err)
	} else if state.Moving {
		return fmt.Errorf("%w: active move in progress", ErrNotAtRest)
	}

	if err := g.checkWheels(ctx); err != nil {
		return err
	}

	g.checkBusy(ctx)

	return sleepCtx(ctx, g.SettleDelay)
}

// WheelsAtRest is a single-shot wheel check used after a jack call to
// confirm nothing started moving during the operation.
func (g *Gate) WheelsAtRest(ctx context.Context) (bool, error) {
	speeds, err := g.telemetry.WheelSpeeds(ctx)
	if err != nil {
		return false, err
	}
	return g.atRest(speeds), nil
}

func (g *Gate) checkWheels(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		speeds, err := g.telemetry.WheelSpeeds(ctx)
		if err != nil {
			// Flaky telemetry channel; a missing reading never blocks.
			g.log.Warn("safety gate: wheel speeds unreadable, continuing", "error", err)
			return nil
		}
		if g.atRest(speeds) {
			return nil
		}
		if attempt >= g.WheelAttempts {
			return fmt.Errorf("%w: wheel speeds %.3f/%.3f after %d checks",
				ErrNotAtRest, speeds.Left, speeds.Right, attempt)
		}
		g.log.Warn("safety gate: wheels still moving, rechecking",
			"left", speeds.Left, "right", speeds.Right, "attempt", attempt)
		if err := sleepCtx(ctx, g.WheelRetryWait); err != nil {
			return err
		}
	}
}

func (g *Gate) checkBusy(ctx context.Context) {
	state, err := g.telemetry.ChassisState(ctx)
	if err != nil {
		g.log.Warn("safety gate: busy flag unreadable, continuing", "error", err)
		return
	}
	if !state.Busy {
		return
	}
	if err := sleepCtx(ctx, g.BusyRecheckWait); err != nil {
		return
	}
	state, err = g.telemetry.ChassisState(ctx)
	if err != nil {
		g.log.Warn("safety gate: busy flag unreadable on recheck, continuing", "error", err)
		return
	}
	if state.Busy {
		g.log.Warn("safety gate: robot still reports busy after recheck")
	}
}

func (g *Gate) atRest(speeds actuator.WheelSpeeds) bool {
	return math.Abs(speeds.Left) <= g.WheelEpsilon && math.Abs(speeds.Right) <= g.WheelEpsilon
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
