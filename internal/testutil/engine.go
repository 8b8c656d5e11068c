// A fake trainer engine for tests: serves the status, stats, version and
// job-control endpoints with scriptable responses.

package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/akirol/trainwatch/internal/models"
)

// FakeEngine is an httptest-backed stand-in for the training engine's REST API.
type FakeEngine struct {
	Server *httptest.Server

	mu         sync.Mutex
	status     models.StatusPayload
	stats      models.SystemStats
	version    string
	startCode  int
	stopCode   int
	startCalls int
	stopCalls  int
}

// NewFakeEngine starts a fake engine that reports idle status and version
// 1.0.0 until told otherwise. It is shut down automatically at test cleanup.
func NewFakeEngine(t *testing.T) *FakeEngine {
	t.Helper()

	f := &FakeEngine{
		status:    models.StatusPayload{Status: "idle"},
		version:   "1.0.0",
		startCode: http.StatusOK,
		stopCode:  http.StatusOK,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		json.NewEncoder(w).Encode(f.status)
	})
	mux.HandleFunc("/api/system/stats", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		json.NewEncoder(w).Encode(f.stats)
	})
	mux.HandleFunc("/api/version", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"version": f.version})
	})
	mux.HandleFunc("/api/training/start", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.startCalls++
		w.WriteHeader(f.startCode)
		if f.startCode >= 400 {
			json.NewEncoder(w).Encode(map[string]string{"detail": "start rejected"})
		}
	})
	mux.HandleFunc("/api/training/stop", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.stopCalls++
		w.WriteHeader(f.stopCode)
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the fake engine's base URL.
func (f *FakeEngine) URL() string { return f.Server.URL }

// SetStatus scripts the status poll response.
func (f *FakeEngine) SetStatus(status models.StatusPayload) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

// SetStats scripts the system stats response.
func (f *FakeEngine) SetStats(stats models.SystemStats) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats = stats
}

// SetStartCode scripts the HTTP status returned by the start endpoint.
func (f *FakeEngine) SetStartCode(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCode = code
}

// SetStopCode scripts the HTTP status returned by the stop endpoint.
func (f *FakeEngine) SetStopCode(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCode = code
}

// StartCalls reports how many times the start endpoint was hit.
func (f *FakeEngine) StartCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startCalls
}

// StopCalls reports how many times the stop endpoint was hit.
func (f *FakeEngine) StopCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalls
}
