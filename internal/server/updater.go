package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rubiojr/gasrank/internal/gasdb"
)

const DefaultUpdateInterval = 6 * time.Hour

// Updater refreshes stored prices from a fetcher.
type Updater interface {
	Update(ctx context.Context, fetcher gasdb.Fetcher) error
}

// RunUpdater updates the store immediately and then every interval until
// ctx is done. Failed updates are logged and retried on the next tick.
func RunUpdater(ctx context.Context, store Updater, fetcher gasdb.Fetcher, clock clockwork.Clock, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = DefaultUpdateInterval
	}
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := store.Update(ctx, fetcher); err != nil {
			logger.Error("Error updating prices", "error", err)
		} else {
			logger.Info("Price update completed successfully")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}
	}
}
