package maintenance

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finsighthq/finsight/db"
)

const DefaultInterval = time.Hour

// IndexMaintainer periodically re-checks the vector index against the
// current chunk count and rebuilds it when the list heuristic has drifted
// too far. Runs are skipped while a previous one is still in flight.
type IndexMaintainer struct {
	pool     *pgxpool.Pool
	interval time.Duration
	logger   *slog.Logger

	running atomic.Bool
}

func NewIndexMaintainer(pool *pgxpool.Pool, interval time.Duration, logger *slog.Logger) *IndexMaintainer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &IndexMaintainer{
		pool:     pool,
		interval: interval,
		logger:   logger,
	}
}

// Start blocks until ctx is canceled. Intended to run in its own goroutine.
func (m *IndexMaintainer) Start(ctx context.Context) {
	m.logger.Info("Starting index maintenance loop",
		slog.Duration("interval", m.interval))

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Index maintenance loop stopped")
			return
		case <-ticker.C:
			m.runOnce(ctx)
		}
	}
}

func (m *IndexMaintainer) runOnce(ctx context.Context) {
	if !m.running.CompareAndSwap(false, true) {
		m.logger.Warn("Skipping index maintenance run, previous run still in progress")
		return
	}
	defer m.running.Store(false)

	if err := db.EnsureVectorIndex(ctx, m.pool, m.logger); err != nil {
		m.logger.Error("Index maintenance run failed",
			slog.String("error", err.Error()))
	}
}
