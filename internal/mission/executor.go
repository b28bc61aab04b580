package mission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"robotplane/internal/actuator"
	"robotplane/internal/safety"
	"robotplane/internal/store"
)

// FailureClass buckets a step failure for the queue manager. Only
// connectivity failures are retriable.
type FailureClass string

const (
	FailureConnectivity FailureClass = "connectivity"
	FailureSafety       FailureClass = "safety"
	FailureRobot        FailureClass = "robot"
	FailureTimeout      FailureClass = "timeout"
)

// StepError is a classified step failure.
type StepError struct {
	Class FailureClass
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s failure: %v", e.Class, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Retriable reports whether the failure may be retried.
func (e *StepError) Retriable() bool {
	return e.Class == FailureConnectivity
}

// Executor runs exactly one step to terminal success or a classified
// failure. It owns the per-step polling loops and stabilization delays.
type Executor struct {
	act  actuator.Actuator
	gate *safety.Gate
	log  *slog.Logger

	// MovePolicy bounds ordinary moves, rack alignment, and unload moves.
	MovePolicy PollPolicy
	// ChargerPolicy bounds the return-to-charger docking move.
	ChargerPolicy PollPolicy
	// JackSettle is the fixed completion delay after a jack call; the
	// vendor reports accept/reject only, never progress.
	JackSettle time.Duration
	// NudgeBeforeJackUp enables a small backward bin-alignment move
	// before jack_up only.
	NudgeBeforeJackUp bool
	// NudgeDistance is the backward nudge length in meters.
	NudgeDistance float64
	// PositionEpsilon is the displacement below which the robot counts as
	// not progressing for stall detection.
	PositionEpsilon float64
}

// NewExecutor returns an executor with the reference timing constants.
func NewExecutor(act actuator.Actuator, gate *safety.Gate, log *slog.Logger) *Executor {
	return &Executor{
		act:  act,
		gate: gate,
		log:  log,
		MovePolicy: PollPolicy{
			Interval:   2 * time.Second,
			Timeout:    120 * time.Second,
			StallAfter: 20 * time.Second,
		},
		ChargerPolicy: PollPolicy{
			Interval: 2 * time.Second,
			Timeout:  180 * time.Second,
		},
		JackSettle:      10 * time.Second,
		NudgeDistance:   0.10,
		PositionEpsilon: 0.05,
	}
}

// ExecuteStep runs one step. On success it returns the opaque robot
// response payload to retain for audit. Failures are *StepError unless
// the step was abandoned (ErrCancelled) or the context ended.
func (e *Executor) ExecuteStep(ctx context.Context, step *store.Step, cancelled func() bool) (json.RawMessage, error) {
	switch step.Type {
	case store.StepMove:
		p, ok := step.Params.(store.MoveParams)
		if !ok {
			return nil, paramsMismatch(step)
		}
		target := actuator.Target{X: p.X, Y: p.Y, Orientation: p.Orientation, Label: p.Label}
		return e.runMoveLike(ctx, "move", e.MovePolicy, cancelled, func(ctx context.Context) (actuator.MoveHandle, error) {
			return e.act.SendMove(ctx, target, actuator.VelocityLimits{})
		})

	case store.StepJackUp, store.StepJackDown:
		if _, ok := step.Params.(store.JackParams); !ok {
			return nil, paramsMismatch(step)
		}
		return e.runJack(ctx, step.Type)

	case store.StepAlignWithRack:
		p, ok := step.Params.(store.AlignParams)
		if !ok {
			return nil, paramsMismatch(step)
		}
		target := actuator.Target{X: p.X, Y: p.Y, Orientation: p.Orientation, Label: p.Label}
		return e.runMoveLike(ctx, "align_with_rack", e.MovePolicy, cancelled, func(ctx context.Context) (actuator.MoveHandle, error) {
			return e.act.AlignWithRack(ctx, target)
		})

	case store.StepToUnloadPoint:
		p, ok := step.Params.(store.UnloadParams)
		if !ok {
			return nil, paramsMismatch(step)
		}
		return e.runMoveLike(ctx, "to_unload_point", e.MovePolicy, cancelled, func(ctx context.Context) (actuator.MoveHandle, error) {
			return e.act.ToUnloadPoint(ctx, p.PointID, p.RackAreaID)
		})

	case store.StepReturnToCharger:
		if _, ok := step.Params.(store.ChargeParams); !ok {
			return nil, paramsMismatch(step)
		}
		resp, err := e.runMoveLike(ctx, "return_to_charger", e.ChargerPolicy, cancelled, func(ctx context.Context) (actuator.MoveHandle, error) {
			return e.act.ReturnToCharger(ctx)
		})
		if err != nil {
			return nil, err
		}
		e.verifyCharging(ctx)
		return resp, nil

	default:
		return nil, &StepError{Class: FailureRobot, Err: fmt.Errorf("unknown step type %q", step.Type)}
	}
}

func paramsMismatch(step *store.Step) error {
	return &StepError{Class: FailureRobot, Err: fmt.Errorf("step %q has mismatched params %T", step.Type, step.Params)}
}

// runMoveLike drives any move-variant call through the shared polling
// discipline: start, poll to terminal, detect stalls, honor cancellation.
func (e *Executor) runMoveLike(ctx context.Context, kind string, policy PollPolicy, cancelled func() bool, start func(context.Context) (actuator.MoveHandle, error)) (json.RawMessage, error) {
	state, err := e.act.ChassisState(ctx)
	if err != nil {
		return nil, classify(err)
	}
	if state.Moving {
		return nil, &StepError{Class: FailureRobot, Err: errors.New("another move is already active")}
	}

	handle, err := start(ctx)
	if err != nil {
		return nil, classify(err)
	}
	e.log.Info("move started", "kind", kind, "move_id", string(handle))

	var (
		final        actuator.MoveState
		lastPos      *actuator.Position
		lastProgress = time.Now()
	)
	pollErr := pollUntilTerminal(ctx, policy, cancelled, func(ctx context.Context) (bool, error) {
		st, err := e.act.MoveStatus(ctx, handle)
		if err != nil {
			return false, err
		}
		if st.Terminal() {
			final = st
			return true, nil
		}
		if policy.StallAfter > 0 {
			if stalled := e.trackProgress(ctx, &lastPos, &lastProgress, policy.StallAfter); stalled {
				return false, fmt.Errorf("%w: no displacement for %s while still moving", ErrStalled, policy.StallAfter)
			}
		}
		return false, nil
	})

	if pollErr != nil {
		if errors.Is(pollErr, ErrCancelled) {
			// Best effort; the robot may already be stopped.
			if cerr := e.act.CancelMove(ctx, handle); cerr != nil {
				e.log.Warn("cancel move at robot failed", "move_id", string(handle), "error", cerr)
			}
			return nil, pollErr
		}
		return nil, classify(pollErr)
	}

	switch final {
	case actuator.MoveStateSucceeded:
		resp, _ := json.Marshal(map[string]string{"kind": kind, "move_id": string(handle), "state": string(final)})
		return resp, nil
	case actuator.MoveStateCancelled:
		return nil, &StepError{Class: FailureRobot, Err: fmt.Errorf("%s cancelled at robot", kind)}
	default:
		return nil, &StepError{Class: FailureRobot, Err: fmt.Errorf("%s reported failure", kind)}
	}
}

// trackProgress samples the best-effort position feed and reports whether
// the robot has stalled. Unreadable positions never trigger a stall.
func (e *Executor) trackProgress(ctx context.Context, lastPos **actuator.Position, lastProgress *time.Time, stallAfter time.Duration) bool {
	pos, err := e.act.Position(ctx)
	if err != nil {
		return false
	}
	if *lastPos == nil || displacement(**lastPos, pos) > e.PositionEpsilon {
		*lastPos = &pos
		*lastProgress = time.Now()
		return false
	}
	return time.Since(*lastProgress) > stallAfter
}

func displacement(a, b actuator.Position) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// runJack performs a jack operation: safety gate, optional alignment
// nudge (jack_up only), the vendor call, the fixed settle delay, and a
// post-call wheel verification.
func (e *Executor) runJack(ctx context.Context, dir store.StepType) (json.RawMessage, error) {
	if err := e.gate.Check(ctx); err != nil {
		return nil, classify(err)
	}

	if dir == store.StepJackUp && e.NudgeBeforeJackUp {
		e.nudgeBackward(ctx)
	}

	var err error
	if dir == store.StepJackUp {
		err = e.act.JackUp(ctx)
	} else {
		err = e.act.JackDown(ctx)
	}
	if err != nil {
		return nil, classify(err)
	}

	if err := sleepCtx(ctx, e.JackSettle); err != nil {
		return nil, err
	}

	// Motion after an accepted jack call is a safety fault in its own
	// right, even though the vendor call succeeded.
	atRest, err := e.gate.WheelsAtRest(ctx)
	if err != nil {
		e.log.Warn("post-jack wheel verification unreadable", "error", err)
	} else if !atRest {
		return nil, &StepError{Class: FailureSafety, Err: fmt.Errorf("wheel motion detected after %s", dir)}
	}

	resp, _ := json.Marshal(map[string]string{"operation": string(dir), "result": "accepted"})
	return resp, nil
}

// nudgeBackward shifts the chassis slightly backward to seat the bin
// before lifting. It is an alignment aid, so any failure only warns.
func (e *Executor) nudgeBackward(ctx context.Context) {
	pos, err := e.act.Position(ctx)
	if err != nil {
		e.log.Warn("skip pre-jack nudge: position unreadable", "error", err)
		return
	}

	target := actuator.Target{
		X:           pos.X - e.NudgeDistance*math.Cos(pos.Orientation),
		Y:           pos.Y - e.NudgeDistance*math.Sin(pos.Orientation),
		Orientation: pos.Orientation,
		Label:       "pre-jack nudge",
	}
	handle, err := e.act.SendMove(ctx, target, actuator.VelocityLimits{Linear: 0.1})
	if err != nil {
		e.log.Warn("skip pre-jack nudge: move rejected", "error", err)
		return
	}

	policy := PollPolicy{Interval: time.Second, Timeout: 15 * time.Second}
	err = pollUntilTerminal(ctx, policy, nil, func(ctx context.Context) (bool, error) {
		st, err := e.act.MoveStatus(ctx, handle)
		if err != nil {
			return false, err
		}
		return st.Terminal(), nil
	})
	if err != nil {
		e.log.Warn("pre-jack nudge did not complete", "error", err)
	}
}

// verifyCharging checks the battery-charging flag after a successful
// docking move. The robot saying "arrived" without "charging" is logged,
// not failed.
func (e *Executor) verifyCharging(ctx context.Context) {
	state, err := e.act.ChassisState(ctx)
	if err != nil {
		e.log.Warn("charging verification unreadable", "error", err)
		return
	}
	if !state.Charging {
		e.log.Warn("robot arrived at charger but does not report charging")
	}
}

// classify maps raw errors onto the failure taxonomy. Context
// cancellation and ErrCancelled pass through unwrapped so the queue can
// distinguish shutdown from failure.
func classify(err error) error {
	var se *StepError
	switch {
	case errors.As(err, &se):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrCancelled):
		return err
	case actuator.IsConnectivity(err):
		return &StepError{Class: FailureConnectivity, Err: err}
	case errors.Is(err, safety.ErrNotAtRest):
		return &StepError{Class: FailureSafety, Err: err}
	case errors.Is(err, ErrPollTimeout), errors.Is(err, ErrStalled):
		return &StepError{Class: FailureTimeout, Err: err}
	default:
		return &StepError{Class: FailureRobot, Err: err}
	}
}
