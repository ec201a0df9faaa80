package maintenance

import (
	"context"
	"log/slog"
	"time"

	"driveguide/pkg/db"
	"driveguide/pkg/store"
)

const lastRunStateKey = "maintenance_last_run"

// MinInterval is the shortest gap between two pruning runs.
const MinInterval = 24 * time.Hour

// Run prunes the narration log down to the retention window.
// It is skipped when the previous run is younger than MinInterval.
// It blocks until completion.
func Run(ctx context.Context, s store.StateStore, d *db.DB, retention time.Duration, now time.Time) error {
	if !due(ctx, s, now) {
		slog.Debug("Database maintenance not due")
		return nil
	}

	slog.Info("Starting database maintenance...")

	if retention > 0 {
		n, err := d.PruneNarrations(ctx, now.Add(-retention))
		if err != nil {
			slog.Error("Narration log pruning failed", "error", err)
			// Not fatal for startup.
		} else {
			slog.Info("Narration log pruning completed", "removed", n)
		}
	}

	return s.SetState(ctx, lastRunStateKey, now.UTC().Format(time.RFC3339))
}

func due(ctx context.Context, s store.StateStore, now time.Time) bool {
	val, ok := s.GetState(ctx, lastRunStateKey)
	if !ok {
		return true
	}
	last, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return true
	}
	return now.Sub(last) >= MinInterval
}
