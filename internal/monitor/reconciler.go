// The monitor package owns the live training view-state. It merges the
// trainer engine's push events with periodic status polls into one coherent
// snapshot plus two bounded histories (log entries and loss points). The two
// sources race and may duplicate each other; the merge rules here are
// order-independent for the snapshot fields and arrival-ordered for the
// histories.

package monitor

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/akirol/trainwatch/internal/models"
)

// HistoryLimit caps the log and loss histories. Oldest entries are evicted
// first once the cap is reached.
const HistoryLimit = 500

// The engine emits this placeholder line between real log messages; it
// carries no information and is dropped outright.
var noiseMessages = map[string]bool{
	"Training ...": true,
	"Training...":  true,
}

// RunSink receives a summary when a run transitions into a terminal state.
type RunSink func(models.RunSummary)

// Reconciler merges push and poll events into the authoritative training
// snapshot. All methods are safe for concurrent use; the socket reader, the
// pollers and the HTTP handlers all share one instance.
type Reconciler struct {
	mu       sync.Mutex
	snapshot models.TrainingSnapshot
	logs     []models.LogEntry
	loss     []models.LossPoint
	nextID   int64

	// lastStep tracks the step number of the most recent log entry when that
	// entry is a step entry, so consecutive duplicates coalesce. It is -1
	// whenever the most recent entry is of any other kind.
	lastStep int

	runStartedAt time.Time
	runSink      RunSink
}

// New returns a Reconciler in the idle state with empty histories.
func New() *Reconciler {
	return &Reconciler{
		snapshot: models.TrainingSnapshot{Status: models.StatusIdle},
		nextID:   1,
		lastStep: -1,
	}
}

// SetRunSink registers a callback invoked (outside the lock) whenever a run
// finishes with a terminal status.
func (r *Reconciler) SetRunSink(sink RunSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runSink = sink
}

// OnConnect handles the push channel's (re)connection event. An empty payload
// means the channel reconnected with nothing to report and must not be
// mistaken for "training stopped".
func (r *Reconciler) OnConnect(p models.StatusPayload) {
	if p.Status == "" && p.IsTraining == nil {
		return
	}
	r.applyStatus(p)
}

// OnStateUpdate handles a pushed job status transition.
func (r *Reconciler) OnStateUpdate(p models.StatusPayload) {
	r.applyStatus(p)
}

// ApplyPoll merges a successful status poll with the same precedence rules as
// a pushed state update. Polling continues independently of push-channel
// health so the view degrades gracefully if the socket drops.
func (r *Reconciler) ApplyPoll(p models.StatusPayload) {
	r.applyStatus(p)
}

// HandlePollError records a failed status poll. The previous snapshot is
// retained untouched; the next scheduled poll is the retry.
func (r *Reconciler) HandlePollError(err error) {
	log.Printf("Status poll failed, keeping last known state: %v", err)
}

// applyStatus is the single merge point for every status-carrying event.
// A terminal status forces isTraining to false regardless of the is_training
// field in the same payload: terminal status is a stronger signal than a
// boolean that may lag a transition by one event. Otherwise is_training is
// adopted verbatim when present, and left unchanged when absent.
func (r *Reconciler) applyStatus(p models.StatusPayload) {
	r.mu.Lock()

	wasTraining := r.snapshot.IsTraining

	if p.Status != "" {
		status := models.TrainingStatus(p.Status)
		r.snapshot.Status = status
		if status.IsTerminal() {
			r.snapshot.IsTraining = false
		} else if p.IsTraining != nil {
			r.snapshot.IsTraining = *p.IsTraining
		}
	} else if p.IsTraining != nil {
		r.snapshot.IsTraining = *p.IsTraining
	}

	if !wasTraining && r.snapshot.IsTraining {
		r.runStartedAt = time.Now()
	}

	var summary *models.RunSummary
	var sink RunSink
	if wasTraining && !r.snapshot.IsTraining {
		if s := r.snapshot.Status; s == models.StatusCompleted || s == models.StatusStopped || s == models.StatusError {
			summary = r.finishedRunLocked(s)
			sink = r.runSink
		}
	}
	r.mu.Unlock()

	if summary != nil && sink != nil {
		sink(*summary)
	}
}

// finishedRunLocked builds a summary for a run that just reached a terminal
// status. Caller holds the lock.
func (r *Reconciler) finishedRunLocked(status models.TrainingStatus) *models.RunSummary {
	summary := &models.RunSummary{
		StartedAt:  r.runStartedAt,
		FinishedAt: time.Now(),
		Status:     string(status),
	}
	if p := r.snapshot.Progress; p != nil {
		summary.TotalSteps = p.CurrentStep
		if p.SmoothLoss != nil {
			summary.FinalLoss = p.SmoothLoss
		} else {
			summary.FinalLoss = p.Loss
		}
	}
	return summary
}

// OnProgress handles a pushed training step. It updates the progress part of
// the snapshot; when the previous log entry already covers the same step the
// event is a duplicate push and appends neither a loss point nor a log entry.
func (r *Reconciler) OnProgress(p models.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.snapshot.Progress
	progress := p
	r.snapshot.Progress = &progress

	if prev != nil && p.CurrentEpoch > prev.CurrentEpoch {
		msg := fmt.Sprintf("Epoch %d/%d", p.CurrentEpoch, p.TotalEpochs)
		r.appendLocked(models.LogKindEpoch, msg, nil, -1)
	}

	if r.lastStep == p.CurrentStep {
		return // duplicate push for the same step
	}

	if p.Loss != nil || p.SmoothLoss != nil {
		r.loss = append(r.loss, models.LossPoint{
			Step:       p.CurrentStep,
			Loss:       p.Loss,
			SmoothLoss: p.SmoothLoss,
			Timestamp:  time.Now(),
		})
		if len(r.loss) > HistoryLimit {
			r.loss = r.loss[len(r.loss)-HistoryLimit:]
		}
	}

	msg := fmt.Sprintf("Step %d/%d", p.CurrentStep, p.TotalSteps)
	r.appendLocked(models.LogKindStep, msg, nil, p.CurrentStep)
}

// OnSampling handles a pushed sampling notification.
func (r *Reconciler) OnSampling(message string, detail json.RawMessage) {
	r.append(models.LogKindSampling, message, detail)
}

// OnBackup handles a pushed backup notification.
func (r *Reconciler) OnBackup(message string, detail json.RawMessage) {
	r.append(models.LogKindBackup, message, detail)
}

// OnLog handles a pushed log line. The engine's "Training ..." placeholder is
// dropped, and a line identical to the previous one (same kind and text) is
// coalesced into the existing entry.
func (r *Reconciler) OnLog(kind models.LogKind, message string) {
	if noiseMessages[message] {
		return
	}
	if kind != models.LogKindError {
		kind = models.LogKindInfo
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.logs); n > 0 {
		last := r.logs[n-1]
		if last.Kind == kind && last.Message == message {
			return
		}
	}
	r.appendLocked(kind, message, nil, -1)
}

func (r *Reconciler) append(kind models.LogKind, message string, detail json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appendLocked(kind, message, detail, -1)
}

// appendLocked inserts one log entry, assigns the next ID and evicts the
// oldest entry past the cap. step is the step number for step entries and -1
// otherwise. Caller holds the lock.
func (r *Reconciler) appendLocked(kind models.LogKind, message string, detail json.RawMessage, step int) {
	entry := models.LogEntry{
		ID:        r.nextID,
		Timestamp: time.Now(),
		Kind:      kind,
		Message:   message,
		Detail:    detail,
	}
	r.nextID++
	r.lastStep = step

	r.logs = append(r.logs, entry)
	if len(r.logs) > HistoryLimit {
		r.logs = r.logs[len(r.logs)-HistoryLimit:]
	}
}

// Snapshot returns a copy of the current training snapshot.
func (r *Reconciler) Snapshot() models.TrainingSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := r.snapshot
	if r.snapshot.Progress != nil {
		progress := *r.snapshot.Progress
		snap.Progress = &progress
	}
	return snap
}

// Logs returns a copy of the log entries with ID greater than after. Pass 0
// for the full (bounded) history.
func (r *Reconciler) Logs(after int64) []models.LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	start := 0
	for start < len(r.logs) && r.logs[start].ID <= after {
		start++
	}
	out := make([]models.LogEntry, len(r.logs)-start)
	copy(out, r.logs[start:])
	return out
}

// LossHistory returns a copy of the loss history.
func (r *Reconciler) LossHistory() []models.LossPoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.LossPoint, len(r.loss))
	copy(out, r.loss)
	return out
}

// Clear empties both histories without touching isTraining or status. IDs
// keep increasing across a clear so incremental fetches never see reuse.
func (r *Reconciler) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = nil
	r.loss = nil
	r.lastStep = -1
}

// Reset discards histories and progress after a push-channel reconnect. The
// status fields keep their last known values until the fresh poll re-derives
// them; buffered history is never used to infer liveness.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = nil
	r.loss = nil
	r.lastStep = -1
	r.snapshot.Progress = nil
}
