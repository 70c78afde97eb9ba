package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

const (
	startupTimeout = 10 * time.Second
)

// lockedBuffer is a thread-safe wrapper around bytes.Buffer.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (lb *lockedBuffer) Write(p []byte) (int, error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.buf.Write(p)
}

func (lb *lockedBuffer) String() string {
	lb.mu.Lock()
	defer lb.mu.Unlock()
	return lb.buf.String()
}

var (
	builtBinary string
	buildOnce   sync.Once
	buildErr    error
)

// getBinary builds ./cmd/testserver once per test run.
func getBinary(t *testing.T) string {
	t.Helper()
	buildOnce.Do(func() {
		dir, err := os.MkdirTemp("", "neurosim-e2e-*")
		if err != nil {
			buildErr = err
			return
		}
		binary := filepath.Join(dir, "testserver")
		cmd := exec.Command("go", "build", "-o", binary, "./cmd/testserver")
		cmd.Dir = findRepoRoot(t)
		out, err := cmd.CombinedOutput()
		if err != nil {
			buildErr = fmt.Errorf("go build failed: %w\n%s", err, out)
			return
		}
		builtBinary = binary
	})
	if buildErr != nil {
		t.Fatal(buildErr)
	}
	return builtBinary
}

func findRepoRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find repo root")
		}
		dir = parent
	}
}

// startServer launches the built testserver on a free port and waits for it
// to answer health checks.
func startServer(t *testing.T, binary string) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("find free port: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	stdout := &lockedBuffer{}
	cmd := exec.Command(binary)
	cmd.Env = append(os.Environ(), "NEUROSIM_LISTEN_ADDR="+addr)
	cmd.Stdout = stdout
	cmd.Stderr = stdout

	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() {
		cmd.Process.Kill()
		cmd.Wait()
	})

	url := "http://" + addr
	deadline := time.Now().Add(startupTimeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return url
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not become healthy within %v\noutput:\n%s", startupTimeout, stdout.String())
	return ""
}

func TestBinaryLifecycleSmoke(t *testing.T) {
	url := startServer(t, getBinary(t))

	resp, err := http.Post(url+"/v1/simulations", "application/json", strings.NewReader(validBody))
	if err != nil {
		t.Fatalf("POST /v1/simulations: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("submit status = %d, want 202", resp.StatusCode)
	}
	var created map[string]any
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	id := created["id"].(string)

	deadline := time.Now().Add(startupTimeout)
	status := ""
	for time.Now().Before(deadline) {
		sResp, err := http.Get(url + "/v1/simulations/" + id)
		if err != nil {
			t.Fatalf("GET /v1/simulations/%s: %v", id, err)
		}
		var sm map[string]any
		json.NewDecoder(sResp.Body).Decode(&sm)
		sResp.Body.Close()
		status, _ = sm["status"].(string)
		if status == "completed" {
			break
		}
		if status == "failed" || status == "cancelled" {
			t.Fatalf("simulation reached %q, error: %v", status, sm["error"])
		}
		time.Sleep(50 * time.Millisecond)
	}
	if status != "completed" {
		t.Fatalf("simulation never completed, last status %q", status)
	}

	rResp, err := http.Get(url + "/v1/simulations/" + id + "/results")
	if err != nil {
		t.Fatalf("GET results: %v", err)
	}
	defer rResp.Body.Close()
	if rResp.StatusCode != http.StatusOK {
		t.Fatalf("results status = %d, want 200", rResp.StatusCode)
	}
	var results map[string]any
	json.NewDecoder(rResp.Body).Decode(&results)
	if results["simulation_id"] != id {
		t.Errorf("simulation_id = %v, want %v", results["simulation_id"], id)
	}
}
