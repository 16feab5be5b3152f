package background

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/warden/internal/metrics"
	"github.com/BradenHooton/warden/pkg/errutil"
)

// ExpiredResetDeleter removes reset requests created before cutoff.
type ExpiredResetDeleter interface {
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// StaleLoginDeleter removes failure streaks that started before cutoff.
type StaleLoginDeleter interface {
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// CleanupConfig holds the sweep interval and the row lifetimes.
type CleanupConfig struct {
	Interval      time.Duration
	ResetLifetime time.Duration
	StreakWindow  time.Duration
}

// CleanupManager periodically removes reset requests that can no longer be
// redeemed and failure streaks that can no longer lead to a lock.
type CleanupManager struct {
	resets   ExpiredResetDeleter
	logins   StaleLoginDeleter
	cfg      CleanupConfig
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	resets ExpiredResetDeleter,
	logins StaleLoginDeleter,
	cfg CleanupConfig,
	logger *slog.Logger,
	m *metrics.Metrics,
) *CleanupManager {
	return &CleanupManager{
		resets:  resets,
		logins:  logins,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
}

// Start runs a sweep immediately and then every Interval until ctx is done
// or Stop is called.
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.cfg.Interval)
	defer ticker.Stop()

	cm.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			cm.RunOnce(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// RunOnce performs a single sweep. A failing table does not stop the other.
func (cm *CleanupManager) RunOnce(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	now := cm.now()
	cm.sweep(cleanupCtx, "password_resets", func(ctx context.Context) (int64, error) {
		return cm.resets.DeleteExpired(ctx, now.Add(-cm.cfg.ResetLifetime))
	})
	cm.sweep(cleanupCtx, "failed_logins", func(ctx context.Context) (int64, error) {
		return cm.logins.DeleteStale(ctx, now.Add(-cm.cfg.StreakWindow))
	})
}

func (cm *CleanupManager) sweep(ctx context.Context, table string, del func(context.Context) (int64, error)) {
	rows, err := del(ctx)
	if err != nil {
		errutil.LogError(cm.logger, "cleanup failed", err)
		return
	}

	cm.metrics.Cleaned(table, rows)
	if rows > 0 {
		cm.logger.Info("cleanup completed", slog.String("table", table), slog.Int64("rows_deleted", rows))
	}
}

// Stop signals the cleanup manager to stop. Safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
