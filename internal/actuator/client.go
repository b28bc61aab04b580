package actuator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// secretHeader is the vendor's shared-secret header.
const secretHeader = "X-Api-Secret"

// moveType discriminators understood by the vendor move endpoint.
const (
	moveTypePoint   = "point"
	moveTypeAlign   = "align_with_rack"
	moveTypeUnload  = "to_unload_point"
	moveTypeCharger = "charge"
)

// Client is the HTTP adapter implementing Actuator against one confirmed
// vendor API version. All vendor path and field names live here.
type Client struct {
	baseURL    string
	secret     string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a client for the vendor API at baseURL.
func NewClient(baseURL, secret string, log *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		log:     log,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type moveRequest struct {
	MoveType     string  `json:"move_type"`
	X            float64 `json:"x,omitempty"`
	Y            float64 `json:"y,omitempty"`
	Orientation  float64 `json:"orientation,omitempty"`
	Label        string  `json:"label,omitempty"`
	PointID      string  `json:"point_id,omitempty"`
	RackAreaID   string  `json:"rack_area_id,omitempty"`
	LinearLimit  float64 `json:"linear_limit,omitempty"`
	AngularLimit float64 `json:"angular_limit,omitempty"`
}

type moveResponse struct {
	MoveID string `json:"move_id"`
}

type moveStatusResponse struct {
	State string `json:"state"`
}

type chassisStateResponse struct {
	IsMoving      bool `json:"is_moving"`
	IsBusy        bool `json:"is_busy"`
	Charging      bool `json:"charging"`
	EmergencyStop bool `json:"emergency_stop"`
}

type wheelSpeedsResponse struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

type positionResponse struct {
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Orientation float64 `json:"orientation"`
}

// vendorError is the vendor's error body shape.
type vendorError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// SendMove implements Actuator.
func (c *Client) SendMove(ctx context.Context, target Target, limits VelocityLimits) (MoveHandle, error) {
	return c.startMove(ctx, moveRequest{
		MoveType:     moveTypePoint,
		X:            target.X,
		Y:            target.Y,
		Orientation:  target.Orientation,
		Label:        target.Label,
		LinearLimit:  limits.Linear,
		AngularLimit: limits.Angular,
	})
}

// AlignWithRack implements Actuator.
func (c *Client) AlignWithRack(ctx context.Context, target Target) (MoveHandle, error) {
	return c.startMove(ctx, moveRequest{
		MoveType:    moveTypeAlign,
		X:           target.X,
		Y:           target.Y,
		Orientation: target.Orientation,
		Label:       target.Label,
	})
}

// ToUnloadPoint implements Actuator.
func (c *Client) ToUnloadPoint(ctx context.Context, pointID, rackAreaID string) (MoveHandle, error) {
	return c.startMove(ctx, moveRequest{
		MoveType:   moveTypeUnload,
		PointID:    pointID,
		RackAreaID: rackAreaID,
	})
}

// ReturnToCharger implements Actuator.
func (c *Client) ReturnToCharger(ctx context.Context) (MoveHandle, error) {
	return c.startMove(ctx, moveRequest{MoveType: moveTypeCharger})
}

func (c *Client) startMove(ctx context.Context, req moveRequest) (MoveHandle, error) {
	var resp moveResponse
	if err := c.do(ctx, http.MethodPost, "/chassis/moves", req, &resp); err != nil {
		return "", err
	}
	if resp.MoveID == "" {
		return "", fmt.Errorf("%w: vendor returned empty move id", ErrServerFault)
	}
	return MoveHandle(resp.MoveID), nil
}

// MoveStatus implements Actuator.
func (c *Client) MoveStatus(ctx context.Context, h MoveHandle) (MoveState, error) {
	var resp moveStatusResponse
	if err := c.do(ctx, http.MethodGet, "/chassis/moves/"+string(h), nil, &resp); err != nil {
		return "", err
	}
	switch state := MoveState(resp.State); state {
	case MoveStateMoving, MoveStateSucceeded, MoveStateFailed, MoveStateCancelled:
		return state, nil
	default:
		return "", fmt.Errorf("%w: unknown move state %q", ErrServerFault, resp.State)
	}
}

// CancelMove implements Actuator.
func (c *Client) CancelMove(ctx context.Context, h MoveHandle) error {
	return c.do(ctx, http.MethodPost, "/chassis/moves/"+string(h)+"/cancel", nil, nil)
}

// ChassisState implements Actuator.
func (c *Client) ChassisState(ctx context.Context) (ChassisState, error) {
	var resp chassisStateResponse
	if err := c.do(ctx, http.MethodGet, "/chassis/state", nil, &resp); err != nil {
		return ChassisState{}, err
	}
	return ChassisState{
		Moving:        resp.IsMoving,
		Busy:          resp.IsBusy,
		Charging:      resp.Charging,
		EmergencyStop: resp.EmergencyStop,
	}, nil
}

// WheelSpeeds implements Actuator.
func (c *Client) WheelSpeeds(ctx context.Context) (WheelSpeeds, error) {
	var resp wheelSpeedsResponse
	if err := c.do(ctx, http.MethodGet, "/chassis/wheels", nil, &resp); err != nil {
		return WheelSpeeds{}, err
	}
	return WheelSpeeds{Left: resp.Left, Right: resp.Right}, nil
}

// Position implements Actuator.
func (c *Client) Position(ctx context.Context) (Position, error) {
	var resp positionResponse
	if err := c.do(ctx, http.MethodGet, "/chassis/position", nil, &resp); err != nil {
		return Position{}, err
	}
	return Position{X: resp.X, Y: resp.Y, Orientation: resp.Orientation}, nil
}

// JackUp implements Actuator.
func (c *Client) JackUp(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/jack/up", nil, nil)
}

// JackDown implements Actuator.
func (c *Client) JackDown(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/jack/down", nil, nil)
}

// do sends one vendor request and normalizes the outcome into the
// package error vocabulary.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(secretHeader, c.secret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrConnectivity, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.normalizeStatus(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode %s response: %v", ErrServerFault, path, err)
		}
	}
	return nil
}

func (c *Client) normalizeStatus(resp *http.Response) error {
	var ve vendorError
	// Best effort; an unparseable body still classifies by status code.
	_ = json.NewDecoder(resp.Body).Decode(&ve)
	msg := ve.Error
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	kind := ErrRobotFault
	switch {
	case isEmergencyStop(ve):
		kind = ErrEmergencyStop
	case resp.StatusCode == http.StatusNotFound:
		kind = ErrEndpointUnavailable
	case resp.StatusCode >= 500:
		kind = ErrServerFault
	}

	return &APIError{StatusCode: resp.StatusCode, Message: msg, kind: kind}
}

func isEmergencyStop(ve vendorError) bool {
	if ve.Code == "EMERGENCY_STOP" {
		return true
	}
	return strings.Contains(strings.ToLower(ve.Error), "emergency")
}
