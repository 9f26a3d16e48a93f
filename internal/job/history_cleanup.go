package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/creamcroissant/orderwatch/internal/repository"
)

// HistoryCleanupJob deletes watch sessions that finished before the
// retention window.
type HistoryCleanupJob struct {
	Sessions  repository.WatchSessionRepository
	Retention time.Duration
	Logger    *slog.Logger
	Now       func() time.Time
}

// NewHistoryCleanupJob creates a new HistoryCleanupJob.
func NewHistoryCleanupJob(sessions repository.WatchSessionRepository, retention time.Duration, logger *slog.Logger) *HistoryCleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryCleanupJob{
		Sessions:  sessions,
		Retention: retention,
		Logger:    logger,
		Now:       time.Now,
	}
}

// Name implements Runnable interface.
func (j *HistoryCleanupJob) Name() string {
	return "watch_history.cleanup"
}

// Run implements Runnable interface.
func (j *HistoryCleanupJob) Run(ctx context.Context) error {
	if j == nil || j.Sessions == nil {
		return fmt.Errorf("history cleanup job dependencies not configured")
	}
	// 保留期为 0 表示永久保存。
	if j.Retention <= 0 {
		return nil
	}

	cutoff := j.Now().Add(-j.Retention).Unix()
	deleted, err := j.Sessions.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("history cleanup job: %w", err)
	}
	if deleted > 0 {
		j.Logger.Info("cleaned up old watch sessions", "deleted_rows", deleted, "cutoff", cutoff)
	}
	return nil
}
