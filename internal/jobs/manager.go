package jobs

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/akirol/trainwatch/internal/core"
)

// Task is a background job body. Tasks receive the shared application
// components and must not panic the process; the manager recovers for them.
type Task func(app *core.App)

// JobStatus is the inspectable state of one registered job.
type JobStatus struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"` // "idle", "running", "success", "failed"
	Message   string    `json:"message"`
	StartTime time.Time `json:"start_time,omitempty"`
	EndTime   time.Time `json:"end_time,omitempty"`
}

// Manager runs registered jobs, serializing each job against itself. Unlike a
// one-at-a-time queue, independent jobs may overlap: the status poll must not
// be blocked by a slow stats poll.
type Manager struct {
	mu      sync.Mutex
	tasks   map[string]Task
	status  map[string]*JobStatus
	running map[string]bool
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{
		tasks:   make(map[string]Task),
		status:  make(map[string]*JobStatus),
		running: make(map[string]bool),
	}
}

// Register adds a job under a unique id.
func (m *Manager) Register(id, name string, task Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[id] = task
	m.status[id] = &JobStatus{ID: id, Name: name, Status: "idle"}
}

// Run starts the named job in a new goroutine. It returns an error if the
// job is unknown or an instance of the same job is still running.
func (m *Manager) Run(id string, app *core.App) error {
	m.mu.Lock()
	task, ok := m.tasks[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("job '%s' not found", id)
	}
	if m.running[id] {
		m.mu.Unlock()
		return fmt.Errorf("job '%s' is already running", id)
	}

	m.running[id] = true
	status := m.status[id]
	status.Status = "running"
	status.StartTime = time.Now()
	status.Message = "Job started..."
	m.mu.Unlock()

	go func() {
		defer func() {
			// Ensure we always update the status and release the job slot.
			if r := recover(); r != nil {
				log.Printf("Job '%s' panicked: %v", id, r)
				m.mu.Lock()
				status.Status = "failed"
				status.Message = fmt.Sprintf("Job panicked: %v", r)
				m.mu.Unlock()
			}

			m.mu.Lock()
			status.EndTime = time.Now()
			if status.Status == "running" { // If not already set to "failed"
				status.Status = "success"
				status.Message = "Job completed successfully."
			}
			m.running[id] = false
			m.mu.Unlock()
		}()

		task(app)
	}()
	return nil
}

// GetStatus returns the current status of every registered job.
func (m *Manager) GetStatus() []*JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	var statuses []*JobStatus
	for _, s := range m.status {
		copied := *s
		statuses = append(statuses, &copied)
	}
	return statuses
}
