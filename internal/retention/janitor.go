package retention

import (
	"context"
	"fmt"
	"go.uber.org/zap"
	"time"
)

const defaultInterval = 24 * time.Hour

type Cleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Периодически удаляет прочитанные статьи и события старше срока хранения
type Janitor struct {
	cleaner   Cleaner
	interval  time.Duration
	retention time.Duration
	logger    *zap.Logger
}

func NewJanitor(cleaner Cleaner, interval, retention time.Duration, logger *zap.Logger) *Janitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = defaultInterval
	}

	return &Janitor{
		cleaner:   cleaner,
		interval:  interval,
		retention: retention,
		logger:    logger,
	}
}

// Ошибка очистки не останавливает воркер, попробуем на следующем тике
func (j *Janitor) Start(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanAndLog(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			j.cleanAndLog(ctx)
		}
	}
}

func (j *Janitor) cleanAndLog(ctx context.Context) {
	if err := j.Clean(ctx); err != nil {
		j.logger.Error("failed to clean up old articles", zap.Error(err))
	}
}

func (j *Janitor) Clean(ctx context.Context) error {
	deleted, err := j.cleaner.Cleanup(ctx, j.retention)
	if err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}

	if deleted > 0 {
		j.logger.Info("old articles removed",
			zap.Int64("deleted", deleted),
			zap.Duration("retention", j.retention),
		)
	}

	return nil
}
