package monitor_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akirol/trainwatch/internal/models"
	"github.com/akirol/trainwatch/internal/monitor"
)

func boolPtr(b bool) *bool      { return &b }
func f64Ptr(f float64) *float64 { return &f }

func TestReconciler_InitialState(t *testing.T) {
	r := monitor.New()
	snap := r.Snapshot()
	assert.False(t, snap.IsTraining)
	assert.Equal(t, models.StatusIdle, snap.Status)
	assert.Nil(t, snap.Progress)
	assert.Empty(t, r.Logs(0))
	assert.Empty(t, r.LossHistory())
}

func TestReconciler_BoundedHistories(t *testing.T) {
	r := monitor.New()
	total := monitor.HistoryLimit + 100
	for i := 1; i <= total; i++ {
		r.OnProgress(models.Progress{CurrentStep: i, TotalSteps: total, Loss: f64Ptr(float64(i))})
	}

	logs := r.Logs(0)
	loss := r.LossHistory()
	require.Len(t, logs, monitor.HistoryLimit)
	require.Len(t, loss, monitor.HistoryLimit)

	// The retained entries are the most recent ones, in arrival order.
	assert.Equal(t, fmt.Sprintf("Step %d/%d", total-monitor.HistoryLimit+1, total), logs[0].Message)
	assert.Equal(t, fmt.Sprintf("Step %d/%d", total, total), logs[len(logs)-1].Message)
	assert.Equal(t, total, loss[len(loss)-1].Step)
	for i := 1; i < len(logs); i++ {
		assert.Greater(t, logs[i].ID, logs[i-1].ID, "IDs must strictly increase")
	}
}

func TestReconciler_DedupStepEvents(t *testing.T) {
	r := monitor.New()
	r.OnProgress(models.Progress{CurrentStep: 7, TotalSteps: 100})
	r.OnProgress(models.Progress{CurrentStep: 7, TotalSteps: 100})

	logs := r.Logs(0)
	require.Len(t, logs, 1)
	assert.Equal(t, models.LogKindStep, logs[0].Kind)

	// A different step, then the same step again, is not "consecutive".
	r.OnProgress(models.Progress{CurrentStep: 8, TotalSteps: 100})
	r.OnProgress(models.Progress{CurrentStep: 7, TotalSteps: 100})
	assert.Len(t, r.Logs(0), 3)
}

func TestReconciler_DedupInfoAndError(t *testing.T) {
	r := monitor.New()
	r.OnLog(models.LogKindInfo, "loading model")
	r.OnLog(models.LogKindInfo, "loading model")
	assert.Len(t, r.Logs(0), 1)

	r.OnLog(models.LogKindInfo, "caching latents")
	logs := r.Logs(0)
	require.Len(t, logs, 2)
	assert.Equal(t, "caching latents", logs[1].Message)

	// Same text but a different kind is a distinct entry.
	r.OnLog(models.LogKindError, "caching latents")
	assert.Len(t, r.Logs(0), 3)
}

func TestReconciler_NoiseFilter(t *testing.T) {
	r := monitor.New()
	r.OnLog(models.LogKindInfo, "Training ...")
	r.OnLog(models.LogKindInfo, "Training...")
	assert.Empty(t, r.Logs(0))

	// A message that merely contains the placeholder is kept.
	r.OnLog(models.LogKindInfo, "Training resumed from backup")
	assert.Len(t, r.Logs(0), 1)
}

func TestReconciler_TerminalStatusOverridesBoolean(t *testing.T) {
	r := monitor.New()
	r.OnStateUpdate(models.StatusPayload{Status: "training", IsTraining: boolPtr(true)})
	require.True(t, r.Snapshot().IsTraining)

	// The stale boolean in the same payload must lose to the terminal status.
	r.OnStateUpdate(models.StatusPayload{Status: "completed", IsTraining: boolPtr(true)})
	snap := r.Snapshot()
	assert.Equal(t, models.StatusCompleted, snap.Status)
	assert.False(t, snap.IsTraining)
}

func TestReconciler_BooleanAdoptedForNonTerminalStatus(t *testing.T) {
	r := monitor.New()
	r.OnStateUpdate(models.StatusPayload{Status: "starting", IsTraining: boolPtr(true)})
	assert.True(t, r.Snapshot().IsTraining)
	assert.Equal(t, models.StatusStarting, r.Snapshot().Status)

	// Status without a boolean leaves isTraining alone.
	r.OnStateUpdate(models.StatusPayload{Status: "training"})
	assert.True(t, r.Snapshot().IsTraining)
}

func TestReconciler_EmptyConnectIgnored(t *testing.T) {
	r := monitor.New()
	r.OnStateUpdate(models.StatusPayload{Status: "training", IsTraining: boolPtr(true)})

	r.OnConnect(models.StatusPayload{})

	snap := r.Snapshot()
	assert.True(t, snap.IsTraining)
	assert.Equal(t, models.StatusTraining, snap.Status)
}

func TestReconciler_ConnectWithStateApplied(t *testing.T) {
	r := monitor.New()
	r.OnConnect(models.StatusPayload{Status: "training", IsTraining: boolPtr(true)})
	assert.True(t, r.Snapshot().IsTraining)
}

func TestReconciler_NormalRunScenario(t *testing.T) {
	r := monitor.New()
	r.OnConnect(models.StatusPayload{Status: "training", IsTraining: boolPtr(true)})
	r.OnProgress(models.Progress{CurrentStep: 1, TotalSteps: 10, Loss: f64Ptr(0.5)})
	r.OnProgress(models.Progress{CurrentStep: 1, TotalSteps: 10, Loss: f64Ptr(0.4)}) // duplicate step
	r.OnStateUpdate(models.StatusPayload{Status: "completed"})

	snap := r.Snapshot()
	assert.False(t, snap.IsTraining)
	assert.Equal(t, models.StatusCompleted, snap.Status)

	var steps []models.LogEntry
	for _, e := range r.Logs(0) {
		if e.Kind == models.LogKindStep {
			steps = append(steps, e)
		}
	}
	require.Len(t, steps, 1)

	loss := r.LossHistory()
	require.Len(t, loss, 1)
	assert.Equal(t, 0.5, *loss[0].Loss)
}

func TestReconciler_PollFailureKeepsSnapshot(t *testing.T) {
	r := monitor.New()
	r.ApplyPoll(models.StatusPayload{Status: "training", IsTraining: boolPtr(true)})
	before := r.Snapshot()

	assert.NotPanics(t, func() {
		r.HandlePollError(errors.New("connection refused"))
	})
	assert.Equal(t, before, r.Snapshot())
}

func TestReconciler_PollAndPushSameMergeRules(t *testing.T) {
	r := monitor.New()
	r.ApplyPoll(models.StatusPayload{Status: "error", IsTraining: boolPtr(true)})
	snap := r.Snapshot()
	assert.Equal(t, models.StatusError, snap.Status)
	assert.False(t, snap.IsTraining)
}

func TestReconciler_ProgressWithoutLossSkipsHistory(t *testing.T) {
	r := monitor.New()
	r.OnProgress(models.Progress{CurrentStep: 1, TotalSteps: 5})
	assert.Empty(t, r.LossHistory())
	assert.Len(t, r.Logs(0), 1)

	r.OnProgress(models.Progress{CurrentStep: 2, TotalSteps: 5, SmoothLoss: f64Ptr(0.2)})
	require.Len(t, r.LossHistory(), 1)
	assert.Equal(t, 0.2, *r.LossHistory()[0].SmoothLoss)
}

func TestReconciler_EpochTransitionLogged(t *testing.T) {
	r := monitor.New()
	r.OnProgress(models.Progress{CurrentStep: 10, TotalSteps: 20, CurrentEpoch: 1, TotalEpochs: 2})
	r.OnProgress(models.Progress{CurrentStep: 11, TotalSteps: 20, CurrentEpoch: 2, TotalEpochs: 2})

	logs := r.Logs(0)
	require.Len(t, logs, 3)
	assert.Equal(t, models.LogKindEpoch, logs[1].Kind)
	assert.Equal(t, "Epoch 2/2", logs[1].Message)
}

func TestReconciler_SamplingAndBackupEntries(t *testing.T) {
	r := monitor.New()
	r.OnSampling("Generated sample image", []byte(`{"prompt":"a cat"}`))
	r.OnBackup("Backup saved", nil)

	logs := r.Logs(0)
	require.Len(t, logs, 2)
	assert.Equal(t, models.LogKindSampling, logs[0].Kind)
	assert.JSONEq(t, `{"prompt":"a cat"}`, string(logs[0].Detail))
	assert.Equal(t, models.LogKindBackup, logs[1].Kind)
}

func TestReconciler_IncrementalLogFetch(t *testing.T) {
	r := monitor.New()
	r.OnLog(models.LogKindInfo, "one")
	r.OnLog(models.LogKindInfo, "two")
	r.OnLog(models.LogKindInfo, "three")

	all := r.Logs(0)
	require.Len(t, all, 3)
	tail := r.Logs(all[0].ID)
	require.Len(t, tail, 2)
	assert.Equal(t, "two", tail[0].Message)
}

func TestReconciler_ClearKeepsStatus(t *testing.T) {
	r := monitor.New()
	r.OnStateUpdate(models.StatusPayload{Status: "training", IsTraining: boolPtr(true)})
	r.OnProgress(models.Progress{CurrentStep: 1, TotalSteps: 10, Loss: f64Ptr(0.3)})
	lastID := r.Logs(0)[0].ID

	r.Clear()

	assert.Empty(t, r.Logs(0))
	assert.Empty(t, r.LossHistory())
	snap := r.Snapshot()
	assert.True(t, snap.IsTraining)
	assert.Equal(t, models.StatusTraining, snap.Status)
	assert.NotNil(t, snap.Progress)

	// IDs keep increasing across a clear.
	r.OnLog(models.LogKindInfo, "after clear")
	assert.Greater(t, r.Logs(0)[0].ID, lastID)
}

func TestReconciler_ResetDiscardsProgress(t *testing.T) {
	r := monitor.New()
	r.OnStateUpdate(models.StatusPayload{Status: "training", IsTraining: boolPtr(true)})
	r.OnProgress(models.Progress{CurrentStep: 3, TotalSteps: 10, Loss: f64Ptr(0.3)})

	r.Reset()

	snap := r.Snapshot()
	assert.Nil(t, snap.Progress)
	// Liveness is re-derived from the next poll, not wiped by a reconnect.
	assert.True(t, snap.IsTraining)
	assert.Empty(t, r.Logs(0))
}

func TestReconciler_RunSinkOnTerminalTransition(t *testing.T) {
	r := monitor.New()
	var got []models.RunSummary
	r.SetRunSink(func(s models.RunSummary) { got = append(got, s) })

	r.OnStateUpdate(models.StatusPayload{Status: "training", IsTraining: boolPtr(true)})
	r.OnProgress(models.Progress{CurrentStep: 42, TotalSteps: 100, SmoothLoss: f64Ptr(0.12)})
	r.OnStateUpdate(models.StatusPayload{Status: "completed"})

	require.Len(t, got, 1)
	assert.Equal(t, "completed", got[0].Status)
	assert.Equal(t, 42, got[0].TotalSteps)
	assert.Equal(t, 0.12, *got[0].FinalLoss)

	// A second terminal event without an intervening run does not re-fire.
	r.OnStateUpdate(models.StatusPayload{Status: "idle"})
	assert.Len(t, got, 1)
}
