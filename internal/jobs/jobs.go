// Background poll scheduling. The trainer engine is polled on fixed
// intervals independently of push-channel health, so the console degrades
// gracefully when the socket drops.

package jobs

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/akirol/trainwatch/internal/core"
	"github.com/akirol/trainwatch/internal/store"
)

const (
	JobStatusPoll = "status-poll"
	JobStatsPoll  = "system-stats-poll"
	JobRunsPrune  = "runs-prune"
)

// RegisterAll registers the standard background jobs with the manager.
func RegisterAll(m *Manager) {
	m.Register(JobStatusPoll, "Training status poll", PollStatus)
	m.Register(JobStatsPoll, "System stats poll", PollSystemStats)
	m.Register(JobRunsPrune, "Run history prune", PruneRuns)
}

// Start runs one immediate status poll and then starts the scheduler.
func Start(app *core.App, m *Manager) {
	// Prime the snapshot before the first scheduled tick.
	if err := m.Run(JobStatusPoll, app); err != nil {
		log.Printf("Initial status poll could not start: %v", err)
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	statusInterval := app.Config.Trainer.StatusPollInterval
	if statusInterval <= 0 {
		statusInterval = 10
	}
	statsInterval := app.Config.Trainer.StatsPollInterval
	if statsInterval <= 0 {
		statsInterval = 5
	}

	schedule := func(id string, every int) {
		_, err := s.Every(every).Seconds().Do(func() {
			if err := m.Run(id, app); err != nil {
				log.Printf("Scheduled job '%s' could not start: %v", id, err)
			}
		})
		if err != nil {
			log.Printf("Error scheduling '%s' job: %v", id, err)
		}
	}

	schedule(JobStatusPoll, statusInterval)
	schedule(JobStatsPoll, statsInterval)

	_, err := s.Every(1).Day().Do(func() {
		if err := m.Run(JobRunsPrune, app); err != nil {
			log.Printf("Scheduled job '%s' could not start: %v", JobRunsPrune, err)
		}
	})
	if err != nil {
		log.Printf("Error scheduling '%s' job: %v", JobRunsPrune, err)
	}

	log.Println("Starting background job scheduler...")
	s.StartAsync()
}

// PollStatus fetches the engine's job status and merges it into the monitor
// with the same precedence rules as a pushed state update. A failed poll
// keeps the last known snapshot; the next tick is the retry.
func PollStatus(app *core.App) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status, err := app.Trainer.Status(ctx)
	if err != nil {
		app.Monitor.HandlePollError(err)
		return
	}
	app.Monitor.ApplyPoll(status)
	app.WsHub.BroadcastJSON(map[string]interface{}{
		"event": "snapshot",
		"data":  app.Monitor.Snapshot(),
	})
}

// PollSystemStats fetches GPU/system utilization and fans it out to consoles.
func PollSystemStats(app *core.App) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stats, err := app.Trainer.SystemStats(ctx)
	if err != nil {
		log.Printf("System stats poll failed: %v", err)
		return
	}
	app.SetSystemStats(stats)
	app.WsHub.BroadcastJSON(map[string]interface{}{
		"event": "system_stats",
		"data":  stats,
	})
}

// PruneRuns trims persisted run summaries down to the configured retention.
func PruneRuns(app *core.App) {
	keep := app.Config.Runs.Retention
	if keep <= 0 {
		keep = 200
	}
	removed, err := store.New(app.DB).PruneRunSummaries(keep)
	if err != nil {
		log.Printf("Run history prune failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("Pruned %d old run summaries", removed)
	}
}
