// Queries for persisted training run summaries.

package store

import (
	"github.com/akirol/trainwatch/internal/models"
)

// SaveRunSummary persists the summary of a finished training run.
func (s *Store) SaveRunSummary(run *models.RunSummary) (int64, error) {
	query := "INSERT INTO runs (started_at, finished_at, status, total_steps, final_loss) VALUES (?, ?, ?, ?, ?)"
	res, err := s.db.Exec(query, run.StartedAt, run.FinishedAt, run.Status, run.TotalSteps, run.FinalLoss)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListRunSummaries returns the most recent run summaries, newest first.
func (s *Store) ListRunSummaries(limit int) ([]*models.RunSummary, error) {
	rows, err := s.db.Query("SELECT id, started_at, finished_at, status, total_steps, final_loss FROM runs ORDER BY finished_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.RunSummary
	for rows.Next() {
		var run models.RunSummary
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Status, &run.TotalSteps, &run.FinalLoss); err != nil {
			return nil, err
		}
		runs = append(runs, &run)
	}
	return runs, nil
}

// PruneRunSummaries deletes all but the newest keep summaries. It returns the
// number of rows removed.
func (s *Store) PruneRunSummaries(keep int) (int64, error) {
	res, err := s.db.Exec(`
		DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY finished_at DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
