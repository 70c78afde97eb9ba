package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/neurolabhq/neurosim/internal/model"
)

func TestCreateSimulationValid(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	body := `{"model_id":"simple_neuron","stimulus":{"type":"IClamp","amplitude":0.5},"recordings":[{"section":"soma","variable":"v"}]}`
	sm := createSimulation(t, ts.URL, body)

	if len(sm.ID) != 26 {
		t.Errorf("ID length = %d, want 26", len(sm.ID))
	}
	if sm.ModelID != "simple_neuron" {
		t.Errorf("ModelID = %q, want %q", sm.ModelID, "simple_neuron")
	}
	if sm.Stimulus.Section != model.DefaultSection {
		t.Errorf("Stimulus.Section = %q, want %q", sm.Stimulus.Section, model.DefaultSection)
	}
	if sm.Stimulus.Delay != defaultStimDelayMS {
		t.Errorf("Stimulus.Delay = %v, want %v", sm.Stimulus.Delay, defaultStimDelayMS)
	}
	if sm.Conditions.Duration != 1000 || sm.Conditions.Dt != 0.025 {
		t.Errorf("Conditions = %+v, want defaults", sm.Conditions)
	}
}

func TestCreateSimulationDefaultRecordings(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	body := `{"model_id":"simple_neuron","stimulus":{"type":"VClamp","amplitude":-40}}`
	sm := createSimulation(t, ts.URL, body)

	if len(sm.Recordings) != 1 {
		t.Fatalf("recordings count = %d, want 1", len(sm.Recordings))
	}
	if sm.Recordings[0].Section != "soma" || sm.Recordings[0].Variable != "v" {
		t.Errorf("default recording = %+v, want soma/v", sm.Recordings[0])
	}
}

func TestCreateSimulationValidation(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	cases := []struct {
		name string
		body string
	}{
		{"missing model_id", `{"stimulus":{"type":"IClamp","amplitude":0.5}}`},
		{"missing stimulus", `{"model_id":"simple_neuron"}`},
		{"bad stimulus type", `{"model_id":"simple_neuron","stimulus":{"type":"Ramp","amplitude":0.5}}`},
		{"negative delay", `{"model_id":"simple_neuron","stimulus":{"type":"IClamp","amplitude":0.5,"delay":-1}}`},
		{"zero duration", `{"model_id":"simple_neuron","stimulus":{"type":"IClamp","amplitude":0.5},"conditions":{"duration":0}}`},
		{"negative dt", `{"model_id":"simple_neuron","stimulus":{"type":"IClamp","amplitude":0.5},"conditions":{"dt":-0.025}}`},
		{"zero timeout", `{"model_id":"simple_neuron","stimulus":{"type":"IClamp","amplitude":0.5},"timeout_s":0}`},
		{"invalid JSON", `not json`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/v1/simulations", "application/json", bytes.NewBufferString(tc.body))
			if err != nil {
				t.Fatalf("POST /v1/simulations: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}

			var errResp map[string]string
			json.NewDecoder(resp.Body).Decode(&errResp)
			if errResp["error"] == "" {
				t.Error("expected error message in response")
			}
		})
	}
}

func TestGetSimulationExisting(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	body := `{"model_id":"simple_neuron","stimulus":{"type":"IClamp","amplitude":0.5}}`
	created := createSimulation(t, ts.URL, body)

	resp, err := http.Get(ts.URL + "/v1/simulations/" + created.ID)
	if err != nil {
		t.Fatalf("GET /v1/simulations/%s: %v", created.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	var got model.Simulation
	json.NewDecoder(resp.Body).Decode(&got)
	if got.ID != created.ID {
		t.Errorf("ID = %q, want %q", got.ID, created.ID)
	}
}

func TestGetSimulationNotFound(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/simulations/nonexistent")
	if err != nil {
		t.Fatalf("GET /v1/simulations/nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestListSimulationsEmpty(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/simulations")
	if err != nil {
		t.Fatalf("GET /v1/simulations: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	var listResp listSimulationsResponse
	json.NewDecoder(resp.Body).Decode(&listResp)

	if listResp.Total != 0 {
		t.Errorf("total = %d, want 0", listResp.Total)
	}
	if len(listResp.Simulations) != 0 {
		t.Errorf("simulations count = %d, want 0", len(listResp.Simulations))
	}
}

func TestListSimulationsPagination(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	for i := 0; i < 5; i++ {
		body := fmt.Sprintf(`{"model_id":"simple_neuron","stimulus":{"type":"IClamp","amplitude":0.%d}}`, i+1)
		createSimulation(t, ts.URL, body)
	}

	resp, err := http.Get(ts.URL + "/v1/simulations?limit=2&offset=0")
	if err != nil {
		t.Fatalf("GET /v1/simulations: %v", err)
	}
	defer resp.Body.Close()

	var listResp listSimulationsResponse
	json.NewDecoder(resp.Body).Decode(&listResp)

	if listResp.Total != 5 {
		t.Errorf("total = %d, want 5", listResp.Total)
	}
	if len(listResp.Simulations) != 2 {
		t.Errorf("simulations count = %d, want 2", len(listResp.Simulations))
	}
	if listResp.Limit != 2 {
		t.Errorf("limit = %d, want 2", listResp.Limit)
	}
	if listResp.Offset != 0 {
		t.Errorf("offset = %d, want 0", listResp.Offset)
	}
}

func TestListSimulationsDefaultLimit(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/simulations")
	if err != nil {
		t.Fatalf("GET /v1/simulations: %v", err)
	}
	defer resp.Body.Close()

	var listResp listSimulationsResponse
	json.NewDecoder(resp.Body).Decode(&listResp)

	if listResp.Limit != defaultListLimit {
		t.Errorf("limit = %d, want %d", listResp.Limit, defaultListLimit)
	}
}
