package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"robotplane/internal/actuator"
	"robotplane/internal/store"
	"robotplane/pkg/api"
)

// LocalPickup handles POST /tasks/local-pickup.
// It builds the move/jack sequence for fetching a bin from a shelf and
// hands it to the queue; execution continues in the background.
func (h *Handlers) LocalPickup(w http.ResponseWriter, r *http.Request) {
	h.dispatchLocalTask(w, r, "local-pickup", buildLocalPickupSteps)
}

// LocalDropoff handles POST /tasks/local-dropoff.
// Symmetric to LocalPickup: returns a bin from the pickup point to the shelf.
func (h *Handlers) LocalDropoff(w http.ResponseWriter, r *http.Request) {
	h.dispatchLocalTask(w, r, "local-dropoff", buildLocalDropoffSteps)
}

func (h *Handlers) dispatchLocalTask(w http.ResponseWriter, r *http.Request, name string, build func(req api.LocalTaskRequest, charging bool) []*store.Step) {
	started := time.Now()
	ctx := r.Context()

	var req api.LocalTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.httpError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	charging, err := h.probeChassis(ctx)
	if err != nil {
		if errors.Is(err, actuator.ErrEmergencyStop) {
			h.respondJson(w, http.StatusConflict, api.ErrorResponse{
				Error: "emergency stop is pressed",
				Code:  api.CodeEmergencyStopPressed,
			})
			return
		}
		// A flaky telemetry read must not block dispatch; assume the
		// full sequence.
		h.log.Warn("chassis probe failed at dispatch, assuming not charging", "error", err)
	}

	mission, err := h.queue.CreateMission(ctx, name, build(req, charging))
	if err != nil {
		h.httpError(w, "Failed to create mission", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, api.CreateMissionResponse{
		Success:   true,
		MissionID: mission.ID,
		Charging:  charging,
		Duration:  time.Since(started).Milliseconds(),
	})
}

// ZoneWorkflow handles POST /tasks/zone-workflow.
// The sequence is the fixed zone-104 pickup-and-delivery run: approach the
// dock, align with the rack, lift, carry to the unload point, lower, and
// return to the charger.
func (h *Handlers) ZoneWorkflow(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	ctx := r.Context()

	charging, err := h.probeChassis(ctx)
	if err != nil {
		if errors.Is(err, actuator.ErrEmergencyStop) {
			h.respondJson(w, http.StatusConflict, api.ErrorResponse{
				Error: "emergency stop is pressed",
				Code:  api.CodeEmergencyStopPressed,
			})
			return
		}
		h.log.Warn("chassis probe failed at dispatch, assuming not charging", "error", err)
	}

	mission, err := h.queue.CreateMission(ctx, "zone-104-workflow", buildZoneWorkflowSteps())
	if err != nil {
		h.httpError(w, "Failed to create mission", http.StatusInternalServerError)
		return
	}

	h.respondJson(w, http.StatusOK, api.CreateMissionResponse{
		Success:   true,
		MissionID: mission.ID,
		Charging:  charging,
		Duration:  time.Since(started).Milliseconds(),
	})
}

// probeChassis returns the charging flag, or ErrEmergencyStop when the
// robot reports an asserted e-stop.
func (h *Handlers) probeChassis(ctx context.Context) (bool, error) {
	state, err := h.chassis.ChassisState(ctx)
	if err != nil {
		return false, err
	}
	if state.EmergencyStop {
		return false, actuator.ErrEmergencyStop
	}
	return state.Charging, nil
}

func moveStep(p api.Point) *store.Step {
	return &store.Step{
		Type: store.StepMove,
		Params: store.MoveParams{
			X:           p.X,
			Y:           p.Y,
			Orientation: p.Orientation,
			Label:       p.Label,
		},
	}
}

func jackStep(t store.StepType) *store.Step {
	return &store.Step{Type: t, Params: store.JackParams{}}
}

// buildLocalPickupSteps builds the pickup sequence. While the robot is on
// the charger it carries no bin support, so the charging variant runs the
// same route without any jack operations.
func buildLocalPickupSteps(req api.LocalTaskRequest, charging bool) []*store.Step {
	if charging {
		return []*store.Step{
			moveStep(req.Shelf),
			moveStep(req.Pickup),
			moveStep(req.Standby),
		}
	}
	return []*store.Step{
		moveStep(req.Shelf),
		jackStep(store.StepJackUp),
		moveStep(req.Pickup),
		jackStep(store.StepJackDown),
		moveStep(req.Standby),
	}
}

// buildLocalDropoffSteps builds the dropoff sequence: collect the bin at
// the pickup point and return it to the shelf.
func buildLocalDropoffSteps(req api.LocalTaskRequest, charging bool) []*store.Step {
	if charging {
		return []*store.Step{
			moveStep(req.Pickup),
			moveStep(req.Shelf),
			moveStep(req.Standby),
		}
	}
	return []*store.Step{
		moveStep(req.Pickup),
		jackStep(store.StepJackUp),
		moveStep(req.Shelf),
		jackStep(store.StepJackDown),
		moveStep(req.Standby),
	}
}

// buildZoneWorkflowSteps is the hardcoded zone-104 run. Coordinates come
// from the commissioned site map.
func buildZoneWorkflowSteps() []*store.Step {
	return []*store.Step{
		moveStep(api.Point{X: 10.40, Y: 3.25, Orientation: 1.57, Label: "zone-104 approach"}),
		{
			Type: store.StepAlignWithRack,
			Params: store.AlignParams{
				X: 10.40, Y: 3.80, Orientation: 1.57, Label: "zone-104 rack",
			},
		},
		jackStep(store.StepJackUp),
		moveStep(api.Point{X: 10.40, Y: 3.25, Orientation: -1.57, Label: "zone-104 exit"}),
		{
			Type: store.StepToUnloadPoint,
			Params: store.UnloadParams{
				PointID:    "dock-001",
				RackAreaID: "area-104",
			},
		},
		jackStep(store.StepJackDown),
		{Type: store.StepReturnToCharger, Params: store.ChargeParams{}},
	}
}
