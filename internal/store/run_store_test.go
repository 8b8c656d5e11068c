package store_test

import (
	"testing"
	"time"

	"github.com/akirol/trainwatch/internal/models"
	"github.com/akirol/trainwatch/internal/store"
	"github.com/akirol/trainwatch/internal/testutil"
)

func saveRun(t *testing.T, s *store.Store, finishedAt time.Time, status string) int64 {
	t.Helper()
	loss := 0.1
	id, err := s.SaveRunSummary(&models.RunSummary{
		StartedAt:  finishedAt.Add(-time.Hour),
		FinishedAt: finishedAt,
		Status:     status,
		TotalSteps: 1000,
		FinalLoss:  &loss,
	})
	if err != nil {
		t.Fatalf("SaveRunSummary failed: %v", err)
	}
	return id
}

func TestRunStore_SaveAndList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)

	base := time.Now().Add(-24 * time.Hour)
	saveRun(t, s, base, "completed")
	saveRun(t, s, base.Add(time.Hour), "error")
	saveRun(t, s, base.Add(2*time.Hour), "stopped")

	runs, err := s.ListRunSummaries(10)
	if err != nil {
		t.Fatalf("ListRunSummaries failed: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("Expected 3 runs, got %d", len(runs))
	}
	// Newest first.
	if runs[0].Status != "stopped" {
		t.Errorf("Expected newest run first, got status '%s'", runs[0].Status)
	}
	if runs[0].FinalLoss == nil || *runs[0].FinalLoss != 0.1 {
		t.Error("FinalLoss did not round-trip")
	}

	limited, _ := s.ListRunSummaries(2)
	if len(limited) != 2 {
		t.Errorf("Expected limit to apply, got %d runs", len(limited))
	}
}

func TestRunStore_NullFinalLoss(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)

	_, err := s.SaveRunSummary(&models.RunSummary{
		StartedAt:  time.Now().Add(-time.Minute),
		FinishedAt: time.Now(),
		Status:     "error",
	})
	if err != nil {
		t.Fatalf("SaveRunSummary with nil loss failed: %v", err)
	}

	runs, _ := s.ListRunSummaries(1)
	if runs[0].FinalLoss != nil {
		t.Error("Expected nil FinalLoss")
	}
}

func TestRunStore_Prune(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)

	base := time.Now().Add(-24 * time.Hour)
	for i := 0; i < 10; i++ {
		saveRun(t, s, base.Add(time.Duration(i)*time.Minute), "completed")
	}

	removed, err := s.PruneRunSummaries(4)
	if err != nil {
		t.Fatalf("PruneRunSummaries failed: %v", err)
	}
	if removed != 6 {
		t.Errorf("Expected 6 removed, got %d", removed)
	}

	runs, _ := s.ListRunSummaries(100)
	if len(runs) != 4 {
		t.Fatalf("Expected 4 runs after prune, got %d", len(runs))
	}
	// The newest summaries survive.
	if !runs[0].FinishedAt.After(runs[3].FinishedAt) {
		t.Error("Expected newest-first ordering after prune")
	}
}
