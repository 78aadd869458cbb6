package janitor

import (
	"context"
	"time"

	"github.com/nkiryanov/authsvc/internal/logger"
)

const defaultInterval = time.Hour

type blacklistRepo interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Janitor periodically removes expired tokens from the blacklist
// Expired refresh tokens fail decoding anyway, so their entries are not needed
type Janitor struct {
	interval  time.Duration
	logger    logger.Logger
	blacklist blacklistRepo

	now func() time.Time
}

func New(interval time.Duration, logger logger.Logger, blacklist blacklistRepo) *Janitor {
	if interval <= 0 {
		interval = defaultInterval
	}

	return &Janitor{
		interval:  interval,
		logger:    logger,
		blacklist: blacklist,
		now:       time.Now,
	}
}

// Purge expired entries once, return number of deleted entries
func (j *Janitor) Purge(ctx context.Context) (int64, error) {
	return j.blacklist.DeleteExpired(ctx, j.now())
}

// Run purging in background until context is done
// Returned channel is closed when janitor stopped
func (j *Janitor) Run(ctx context.Context) <-chan struct{} {
	idleStopped := make(chan struct{})
	j.logger.Debug("Starting janitor", "interval", j.interval)

	go func() {
		defer close(idleStopped)

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				j.logger.Debug("Janitor stopped by context")
				return

			case <-ticker.C:
				deleted, err := j.Purge(ctx)
				if err != nil {
					j.logger.Error("Failed to purge blacklist", "error", err)
					continue
				}

				if deleted > 0 {
					j.logger.Info("Expired blacklist entries purged", "count", deleted)
				}
			}
		}
	}()

	return idleStopped
}
