// This file defines the core data structures (models) for our application.
// These structs represent the live training state derived from the trainer
// engine's push channel and status polls.

package models

import (
	"encoding/json"
	"time"
)

// TrainingStatus is the authoritative state label reported by the trainer engine.
type TrainingStatus string

const (
	StatusIdle      TrainingStatus = "idle"
	StatusStarting  TrainingStatus = "starting"
	StatusTraining  TrainingStatus = "training"
	StatusStopped   TrainingStatus = "stopped"
	StatusCompleted TrainingStatus = "completed"
	StatusError     TrainingStatus = "error"
)

// IsTerminal reports whether the status means no job is actively running.
// A terminal status is a stronger signal than the engine's is_training boolean,
// which can lag behind a status transition by one event.
func (s TrainingStatus) IsTerminal() bool {
	switch s {
	case StatusIdle, StatusStopped, StatusCompleted, StatusError:
		return true
	}
	return false
}

// Progress is the last known training progress, absent until the first
// progress event arrives.
type Progress struct {
	CurrentStep      int      `json:"current_step"`
	TotalSteps       int      `json:"total_steps"`
	CurrentEpoch     int      `json:"current_epoch"`
	TotalEpochs      int      `json:"total_epochs"`
	Loss             *float64 `json:"loss,omitempty"`
	SmoothLoss       *float64 `json:"smooth_loss,omitempty"`
	Elapsed          string   `json:"elapsed"`
	Remaining        string   `json:"remaining"`
	SamplesPerSecond *float64 `json:"samples_per_second,omitempty"`
}

// TrainingSnapshot is the single coherent view-state derived from merging all
// events received so far.
type TrainingSnapshot struct {
	IsTraining bool           `json:"is_training"`
	Status     TrainingStatus `json:"status"`
	Progress   *Progress      `json:"progress,omitempty"`
}

// LogKind classifies a log entry by the event that produced it.
type LogKind string

const (
	LogKindStep     LogKind = "step"
	LogKindEpoch    LogKind = "epoch"
	LogKindSampling LogKind = "sampling"
	LogKindBackup   LogKind = "backup"
	LogKindInfo     LogKind = "info"
	LogKindError    LogKind = "error"
)

// LogEntry is one entry in the bounded training log. IDs are assigned at
// insertion, strictly increase and are never reused.
type LogEntry struct {
	ID        int64           `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Kind      LogKind         `json:"kind"`
	Message   string          `json:"message"`
	Detail    json.RawMessage `json:"detail,omitempty"`
}

// LossPoint is one entry in the bounded loss history.
type LossPoint struct {
	Step       int       `json:"step"`
	Loss       *float64  `json:"loss,omitempty"`
	SmoothLoss *float64  `json:"smooth_loss,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// StatusPayload is the shape shared by the engine's status poll endpoint and
// its training_state / connected push events. Pointer fields distinguish
// "absent" from zero values; absent fields leave snapshot state unchanged.
type StatusPayload struct {
	IsTraining *bool  `json:"is_training,omitempty"`
	Status     string `json:"status,omitempty"`
}

// SystemStats is the periodically polled GPU/system utilization report.
type SystemStats struct {
	GPUName        string    `json:"gpu_name"`
	GPUUtilization float64   `json:"gpu_utilization"`
	VRAMUsedMB     float64   `json:"vram_used_mb"`
	VRAMTotalMB    float64   `json:"vram_total_mb"`
	RAMUsedMB      float64   `json:"ram_used_mb"`
	RAMTotalMB     float64   `json:"ram_total_mb"`
	PolledAt       time.Time `json:"polled_at"`
}

// RunSummary is the persisted record of a finished training run.
type RunSummary struct {
	ID         int64     `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     string    `json:"status"` // "completed", "stopped" or "error"
	TotalSteps int       `json:"total_steps"`
	FinalLoss  *float64  `json:"final_loss,omitempty"`
}
