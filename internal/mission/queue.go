package mission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"robotplane/internal/store"
)

// StepRunner executes a single step to terminal success or a classified
// failure. Satisfied by *Executor; tests substitute their own.
type StepRunner interface {
	ExecuteStep(ctx context.Context, step *store.Step, cancelled func() bool) (json.RawMessage, error)
}

// ManagerConfig holds the queue manager's tunables.
type ManagerConfig struct {
	// RobotID is stamped on every created mission.
	RobotID string
	// Interval is the scheduled queue-processing period.
	Interval time.Duration
	// MaxRetries bounds connectivity retries per step.
	MaxRetries int
}

// Manager owns the mission set, schedules which mission runs next,
// persists every state transition, classifies and retries failures, and
// exposes the query/cancel surface. There is exactly one robot, so step
// execution is serialized by construction.
type Manager struct {
	store  store.Store
	runner StepRunner
	log    *slog.Logger
	config ManagerConfig

	mu       sync.Mutex
	missions []*store.Mission

	// passMu serializes queue-processing passes; a pass that finds it
	// held is a no-op.
	passMu sync.Mutex

	kick chan struct{}

	tracer            trace.Tracer
	missionsCreated   metric.Int64Counter
	missionsCompleted metric.Int64Counter
	missionsFailed    metric.Int64Counter
	stepsExecuted     metric.Int64Counter
	stepRetries       metric.Int64Counter
}

// NewManager loads the persisted mission set and returns a manager.
// Missions left in_progress at the last shutdown resume from their
// persisted step index on the next processing pass.
func NewManager(ctx context.Context, s store.Store, runner StepRunner, log *slog.Logger, config ManagerConfig) (*Manager, error) {
	if config.Interval <= 0 {
		config.Interval = 5 * time.Second
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.RobotID == "" {
		config.RobotID = "robot-1"
	}

	missions, err := s.LoadMissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load missions: %w", err)
	}

	m := &Manager{
		store:    s,
		runner:   runner,
		log:      log,
		config:   config,
		missions: missions,
		kick:     make(chan struct{}, 1),
		tracer:   otel.Tracer("robotplane/mission"),
	}

	meter := otel.Meter("robotplane/mission")
	m.missionsCreated, _ = meter.Int64Counter("robotplane.missions.created")
	m.missionsCompleted, _ = meter.Int64Counter("robotplane.missions.completed")
	m.missionsFailed, _ = meter.Int64Counter("robotplane.missions.failed")
	m.stepsExecuted, _ = meter.Int64Counter("robotplane.steps.executed")
	m.stepRetries, _ = meter.Int64Counter("robotplane.steps.retries")

	for _, mission := range missions {
		if mission.Status == store.MissionStatusInProgress {
			log.Info("resuming mission from snapshot",
				"mission_id", mission.ID, "step_index", mission.CurrentStepIndex)
		}
	}
	return m, nil
}

// Run is the worker loop: one processing pass per scheduled interval,
// plus an eager pass whenever a mutation kicks the queue. It blocks
// until the context is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-m.kick:
		}
		if err := m.ProcessQueue(ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.log.Error("queue pass failed", "error", err)
		}
	}
}

// Kick requests an eager processing pass without waiting for the timer.
func (m *Manager) Kick() {
	select {
	case m.kick <- struct{}{}:
	default:
		// A pass is already pending.
	}
}

// CreateMission validates the step list, assigns identifiers, persists
// the new mission, and kicks the queue so the first step begins promptly.
func (m *Manager) CreateMission(ctx context.Context, name string, steps []*store.Step) (*store.Mission, error) {
	if len(steps) == 0 {
		return nil, errors.New("mission requires at least one step")
	}

	now := time.Now().UTC()
	mission := &store.Mission{
		ID:        uuid.New().String(),
		Name:      name,
		RobotID:   m.config.RobotID,
		Status:    store.MissionStatusPending,
		Steps:     steps,
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.missions = append(m.missions, mission)
	err := m.persistLocked(ctx)
	clone := mission.Clone()
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	m.missionsCreated.Add(ctx, 1)
	m.log.Info("mission created", "mission_id", mission.ID, "name", name, "steps", len(steps))
	m.Kick()
	return clone, nil
}

// ProcessQueue runs one pass over every pending or in_progress mission.
// It is idempotent and safe to invoke concurrently with itself: a pass
// started while another is running returns immediately.
func (m *Manager) ProcessQueue(ctx context.Context) error {
	if !m.passMu.TryLock() {
		return nil
	}
	defer m.passMu.Unlock()

	for _, mission := range m.activeSnapshot() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := m.processMission(ctx, mission); err != nil {
			return err
		}
	}
	return nil
}

// activeSnapshot returns the missions to attempt this pass, in creation
// order.
func (m *Manager) activeSnapshot() []*store.Mission {
	m.mu.Lock()
	defer m.mu.Unlock()
	var active []*store.Mission
	for _, mission := range m.missions {
		if mission.Active() {
			active = append(active, mission)
		}
	}
	return active
}

// processMission resumes one mission from its persisted step index and
// runs steps back-to-back until the mission finishes, a failure stops it,
// or a connectivity retry defers it to the next pass.
func (m *Manager) processMission(ctx context.Context, mission *store.Mission) error {
	ctx, span := m.tracer.Start(ctx, "mission.process",
		trace.WithAttributes(attribute.String("mission.id", mission.ID)))
	defer span.End()

	if mission.Status == store.MissionStatusPending {
		if err := m.transition(ctx, mission, store.MissionStatusInProgress); err != nil {
			return err
		}
	}

	cancelled := func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return mission.Status != store.MissionStatusInProgress
	}

	for mission.CurrentStepIndex < len(mission.Steps) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if cancelled() {
			return nil
		}

		idx := mission.CurrentStepIndex
		step := mission.Steps[idx]
		if step.Completed {
			// Already done in a previous life of the process.
			m.mu.Lock()
			mission.CurrentStepIndex++
			m.mu.Unlock()
			continue
		}

		resp, err := m.runner.ExecuteStep(ctx, step, cancelled)
		m.stepsExecuted.Add(ctx, 1, metric.WithAttributes(attribute.String("step.type", string(step.Type))))

		if err == nil {
			m.mu.Lock()
			step.Completed = true
			step.RobotResponse = resp
			step.ErrorMessage = ""
			mission.CurrentStepIndex++
			mission.Offline = false
			mission.UpdatedAt = time.Now().UTC()
			perr := m.persistLocked(ctx)
			m.mu.Unlock()
			if perr != nil {
				return perr
			}
			m.log.Info("step completed", "mission_id", mission.ID, "step", idx, "type", string(step.Type))
			continue
		}

		if errors.Is(err, ErrCancelled) {
			// The mission was already marked failed by the cancel path.
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var se *StepError
		if !errors.As(err, &se) {
			se = &StepError{Class: FailureRobot, Err: err}
		}

		if se.Retriable() {
			m.mu.Lock()
			step.RetryCount++
			step.ErrorMessage = se.Err.Error()
			mission.Offline = true
			mission.UpdatedAt = time.Now().UTC()
			retries := step.RetryCount
			perr := m.persistLocked(ctx)
			m.mu.Unlock()
			if perr != nil {
				return perr
			}
			m.stepRetries.Add(ctx, 1)

			if retries >= m.config.MaxRetries {
				m.log.Warn("step retry budget exhausted",
					"mission_id", mission.ID, "step", idx, "retries", retries)
				return m.failMission(ctx, mission, idx, fmt.Sprintf("retry budget exhausted: %v", se.Err))
			}
			m.log.Warn("step hit connectivity failure, retrying next pass",
				"mission_id", mission.ID, "step", idx, "retries", retries, "error", se.Err)
			return nil
		}

		// Safety and robot-reported failures terminate immediately,
		// regardless of remaining retry budget.
		return m.failMission(ctx, mission, idx, se.Error())
	}

	return m.completeMission(ctx, mission)
}

func (m *Manager) transition(ctx context.Context, mission *store.Mission, status store.MissionStatus) error {
	m.mu.Lock()
	mission.Status = status
	mission.UpdatedAt = time.Now().UTC()
	err := m.persistLocked(ctx)
	m.mu.Unlock()
	return err
}

func (m *Manager) completeMission(ctx context.Context, mission *store.Mission) error {
	if err := m.transition(ctx, mission, store.MissionStatusCompleted); err != nil {
		return err
	}
	m.missionsCompleted.Add(ctx, 1)
	m.log.Info("mission completed", "mission_id", mission.ID, "name", mission.Name)
	return m.audit(ctx, mission, len(mission.Steps), "")
}

func (m *Manager) failMission(ctx context.Context, mission *store.Mission, stepIndex int, reason string) error {
	m.mu.Lock()
	mission.Status = store.MissionStatusFailed
	mission.FailureReason = reason
	if stepIndex < len(mission.Steps) {
		mission.Steps[stepIndex].ErrorMessage = reason
	}
	mission.UpdatedAt = time.Now().UTC()
	err := m.persistLocked(ctx)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	m.missionsFailed.Add(ctx, 1)
	m.log.Error("mission failed", "mission_id", mission.ID, "step", stepIndex, "reason", reason)
	return m.audit(ctx, mission, stepIndex, reason)
}

func (m *Manager) audit(ctx context.Context, mission *store.Mission, stepIndex int, errMsg string) error {
	rec := store.AuditRecord{
		MissionID:  mission.ID,
		Name:       mission.Name,
		RobotID:    mission.RobotID,
		Status:     mission.Status,
		StepIndex:  stepIndex,
		Error:      errMsg,
		RecordedAt: time.Now().UTC(),
	}
	if err := m.store.AppendAudit(ctx, rec); err != nil {
		// The mission state is already durable; a lost audit line is not
		// worth failing the pass over.
		m.log.Error("append audit record failed", "mission_id", mission.ID, "error", err)
	}
	return nil
}

// persistLocked writes the full mission snapshot. Callers hold m.mu.
func (m *Manager) persistLocked(ctx context.Context) error {
	if err := m.store.SaveMissions(ctx, m.missions); err != nil {
		return fmt.Errorf("persist missions: %w", err)
	}
	return nil
}

// Get returns a copy of the mission with the given ID.
func (m *Manager) Get(id string) (*store.Mission, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mission := range m.missions {
		if mission.ID == id {
			return mission.Clone(), true
		}
	}
	return nil, false
}

// List returns copies of all missions, optionally filtered by status.
func (m *Manager) List(status store.MissionStatus) []*store.Mission {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.Mission
	for _, mission := range m.missions {
		if status == "" || mission.Status == status {
			out = append(out, mission.Clone())
		}
	}
	return out
}

// ListActive returns copies of all pending and in_progress missions.
func (m *Manager) ListActive() []*store.Mission {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*store.Mission
	for _, mission := range m.missions {
		if mission.Active() {
			out = append(out, mission.Clone())
		}
	}
	return out
}

// ListCompleted returns copies of all completed missions.
func (m *Manager) ListCompleted() []*store.Mission {
	return m.List(store.MissionStatusCompleted)
}

// ListFailed returns copies of all failed missions.
func (m *Manager) ListFailed() []*store.Mission {
	return m.List(store.MissionStatusFailed)
}

// ActiveCount returns the number of pending and in_progress missions.
func (m *Manager) ActiveCount() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, mission := range m.missions {
		if mission.Active() {
			n++
		}
	}
	return n
}

// Cancel marks one active mission failed with the given reason. Calling
// it on an already-terminal mission is a no-op that leaves updatedAt and
// the audit log untouched.
func (m *Manager) Cancel(ctx context.Context, id, reason string) (bool, error) {
	m.mu.Lock()
	var target *store.Mission
	for _, mission := range m.missions {
		if mission.ID == id {
			target = mission
			break
		}
	}
	if target == nil {
		m.mu.Unlock()
		return false, fmt.Errorf("mission %s not found", id)
	}
	if target.Status.Terminal() {
		m.mu.Unlock()
		return false, nil
	}
	stepIndex := target.CurrentStepIndex
	target.Status = store.MissionStatusFailed
	target.FailureReason = reason
	target.UpdatedAt = time.Now().UTC()
	err := m.persistLocked(ctx)
	m.mu.Unlock()
	if err != nil {
		return false, err
	}

	m.missionsFailed.Add(ctx, 1)
	m.log.Info("mission cancelled", "mission_id", id, "reason", reason)
	return true, m.audit(ctx, target, stepIndex, reason)
}

// CancelAllActive forcibly marks every pending and in_progress mission
// failed with a cancellation reason. Used when an operator needs to seize
// manual control of the robot.
func (m *Manager) CancelAllActive(ctx context.Context, reason string) (int, error) {
	m.mu.Lock()
	var cancelled []*store.Mission
	now := time.Now().UTC()
	for _, mission := range m.missions {
		if !mission.Active() {
			continue
		}
		mission.Status = store.MissionStatusFailed
		mission.FailureReason = reason
		mission.UpdatedAt = now
		cancelled = append(cancelled, mission)
	}
	var err error
	if len(cancelled) > 0 {
		err = m.persistLocked(ctx)
	}
	m.mu.Unlock()
	if err != nil {
		return 0, err
	}

	for _, mission := range cancelled {
		m.missionsFailed.Add(ctx, 1)
		m.log.Info("mission cancelled", "mission_id", mission.ID, "reason", reason)
		_ = m.audit(ctx, mission, mission.CurrentStepIndex, reason)
	}
	return len(cancelled), nil
}

// ClearTerminal drops completed and failed missions from the active set.
// They remain in the append-only audit log.
func (m *Manager) ClearTerminal(ctx context.Context) (int, error) {
	m.mu.Lock()
	kept := m.missions[:0]
	cleared := 0
	for _, mission := range m.missions {
		if mission.Status.Terminal() {
			cleared++
			continue
		}
		kept = append(kept, mission)
	}
	m.missions = kept
	var err error
	if cleared > 0 {
		err = m.persistLocked(ctx)
	}
	m.mu.Unlock()
	if err != nil {
		return 0, err
	}
	if cleared > 0 {
		m.log.Info("cleared terminal missions", "count", cleared)
	}
	return cleared, nil
}
