package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"robotplane/pkg/api"
)

// MissionClient handles API calls to the robotplane control plane.
type MissionClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewMissionClient creates a new client with the given base URL and token.
func NewMissionClient(baseURL, token string) *MissionClient {
	return &MissionClient{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

func (c *MissionClient) do(method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequest(method, c.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.Token != "" {
		httpReq.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.Token))
	}
	httpReq.Header.Add("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// CreateLocalPickup sends POST /tasks/local-pickup.
func (c *MissionClient) CreateLocalPickup(req api.LocalTaskRequest) (*api.CreateMissionResponse, error) {
	var result api.CreateMissionResponse
	if err := c.do(http.MethodPost, "/tasks/local-pickup", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateLocalDropoff sends POST /tasks/local-dropoff.
func (c *MissionClient) CreateLocalDropoff(req api.LocalTaskRequest) (*api.CreateMissionResponse, error) {
	var result api.CreateMissionResponse
	if err := c.do(http.MethodPost, "/tasks/local-dropoff", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateZoneWorkflow sends POST /tasks/zone-workflow.
func (c *MissionClient) CreateZoneWorkflow() (*api.CreateMissionResponse, error) {
	var result api.CreateMissionResponse
	if err := c.do(http.MethodPost, "/tasks/zone-workflow", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetMission sends GET /missions/{id}.
func (c *MissionClient) GetMission(missionID string) (*api.MissionResponse, error) {
	var result api.MissionResponse
	if err := c.do(http.MethodGet, "/missions/"+missionID, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListMissions sends GET /missions with an optional status filter.
func (c *MissionClient) ListMissions(status string) ([]api.MissionResponse, error) {
	path := "/missions"
	if status != "" {
		path += "?status=" + status
	}
	var result api.ListMissionsResponse
	if err := c.do(http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Missions, nil
}

// CancelMission sends POST /missions/{id}/cancel.
func (c *MissionClient) CancelMission(missionID string) (*api.CancelMissionResponse, error) {
	var result api.CancelMissionResponse
	if err := c.do(http.MethodPost, "/missions/"+missionID+"/cancel", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CancelAll sends POST /missions/cancel-all.
func (c *MissionClient) CancelAll() (*api.CancelAllResponse, error) {
	var result api.CancelAllResponse
	if err := c.do(http.MethodPost, "/missions/cancel-all", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ClearTerminal sends POST /missions/clear.
func (c *MissionClient) ClearTerminal() (*api.ClearTerminalResponse, error) {
	var result api.ClearTerminalResponse
	if err := c.do(http.MethodPost, "/missions/clear", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
