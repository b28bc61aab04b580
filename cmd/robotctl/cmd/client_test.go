package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"robotplane/pkg/api"
)

func TestMissionClient_CreateLocalPickup(t *testing.T) {
	var gotAuth string
	var gotBody api.LocalTaskRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/tasks/local-pickup" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		json.NewEncoder(w).Encode(api.CreateMissionResponse{Success: true, MissionID: "m-1", Charging: true})
	}))
	defer srv.Close()

	client := NewMissionClient(srv.URL, "op-token")
	resp, err := client.CreateLocalPickup(api.LocalTaskRequest{
		Shelf: api.Point{X: 1, Y: 2, Orientation: 3, Label: "shelf"},
	})
	if err != nil {
		t.Fatalf("CreateLocalPickup: %v", err)
	}

	if resp.MissionID != "m-1" || !resp.Charging {
		t.Errorf("unexpected response: %+v", resp)
	}
	if gotAuth != "Bearer op-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody.Shelf.Label != "shelf" {
		t.Errorf("request body lost: %+v", gotBody)
	}
}

func TestMissionClient_NoTokenOmitsAuthHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(api.CreateMissionResponse{Success: true})
	}))
	defer srv.Close()

	client := NewMissionClient(srv.URL, "")
	if _, err := client.CreateZoneWorkflow(); err != nil {
		t.Fatalf("CreateZoneWorkflow: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("Authorization should be absent, got %q", gotAuth)
	}
}

func TestMissionClient_Paths(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.RequestURI())
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))
	defer srv.Close()

	client := NewMissionClient(srv.URL, "")
	if _, err := client.GetMission("m-1"); err != nil {
		t.Fatalf("GetMission: %v", err)
	}
	if _, err := client.ListMissions("failed"); err != nil {
		t.Fatalf("ListMissions: %v", err)
	}
	if _, err := client.CancelMission("m-1"); err != nil {
		t.Fatalf("CancelMission: %v", err)
	}
	if _, err := client.CancelAll(); err != nil {
		t.Fatalf("CancelAll: %v", err)
	}
	if _, err := client.ClearTerminal(); err != nil {
		t.Fatalf("ClearTerminal: %v", err)
	}

	want := []string{
		"GET /missions/m-1",
		"GET /missions?status=failed",
		"POST /missions/m-1/cancel",
		"POST /missions/cancel-all",
		"POST /missions/clear",
	}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("request[%d] = %s, want %s", i, paths[i], want[i])
		}
	}
}

func TestMissionClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"error":"Mission not found"}`))
	}))
	defer srv.Close()

	client := NewMissionClient(srv.URL, "")
	_, err := client.GetMission("nope")
	if err == nil {
		t.Fatal("expected error for 404 response")
	}

	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", apiErr.StatusCode)
	}
}

func TestParsePoint(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    api.Point
		wantErr bool
	}{
		{"plain", "10.4,3.8,1.57", api.Point{X: 10.4, Y: 3.8, Orientation: 1.57, Label: "shelf"}, false},
		{"with spaces", " 1 , 2 , 3 ", api.Point{X: 1, Y: 2, Orientation: 3, Label: "shelf"}, false},
		{"negative", "-1.5,-2.5,-3.14", api.Point{X: -1.5, Y: -2.5, Orientation: -3.14, Label: "shelf"}, false},
		{"too few parts", "1,2", api.Point{}, true},
		{"not a number", "1,two,3", api.Point{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePoint(tt.in, "shelf")
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parsePoint: %v", err)
			}
			if got != tt.want {
				t.Errorf("parsePoint(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestStatusIcon(t *testing.T) {
	for _, status := range []string{"pending", "in_progress", "completed", "failed", "unknown"} {
		if statusIcon(status) == "" {
			t.Errorf("statusIcon(%q) is empty", status)
		}
	}
}
