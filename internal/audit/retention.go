// Package audit runs background maintenance for the tool-call audit log.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// Pruner deletes audit entries older than a retention window.
type Pruner interface {
	PruneCalls(ctx context.Context, retention time.Duration) (int64, error)
}

// RunRetentionWorker prunes the audit log once at startup and then every
// interval until ctx is cancelled. It always returns nil so that a shutdown
// does not surface as a failure.
func RunRetentionWorker(ctx context.Context, repo Pruner, interval, retention time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	slog.Info("Audit retention worker started", "interval", interval, "retention", retention)

	prune(ctx, repo, retention)
	for {
		select {
		case <-ticker.C:
			prune(ctx, repo, retention)
		case <-ctx.Done():
			slog.Info("Audit retention worker shutting down", "reason", ctx.Err())
			return nil
		}
	}
}

func prune(ctx context.Context, repo Pruner, retention time.Duration) {
	deleted, err := repo.PruneCalls(ctx, retention)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("Audit retention worker failed to prune", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("Audit retention worker pruned calls", "count", deleted)
	}
}
