package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/codyseavey/pokebinder/internal/logger"
	"github.com/codyseavey/pokebinder/internal/metrics"
)

// PriceWorker refreshes every user's collection on a schedule.
type PriceWorker struct {
	collections *CollectionService
	store       Store
	logger      *zap.Logger
	now         func() time.Time

	mu      sync.Mutex
	running bool

	// Stats (reset at midnight)
	cardsUpdatedToday int
	cardsFailedToday  int
	lastUpdateTime    time.Time
	lastStatsDay      time.Time
}

type PriceStatus struct {
	Running           bool      `json:"running"`
	LastUpdateTime    time.Time `json:"last_update_time"`
	CardsUpdatedToday int       `json:"cards_updated_today"`
	CardsFailedToday  int       `json:"cards_failed_today"`
}

func NewPriceWorker(collections *CollectionService, store Store, log *zap.Logger) *PriceWorker {
	return &PriceWorker{
		collections: collections,
		store:       store,
		logger:      logger.OrNop(log),
		now:         time.Now,
	}
}

// resetDailyStatsIfNeeded resets the daily counters once the calendar day changes.
// Callers hold w.mu.
func (w *PriceWorker) resetDailyStatsIfNeeded() {
	now := w.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if w.lastStatsDay.Before(today) {
		if !w.lastStatsDay.IsZero() {
			w.logger.Info("price worker daily stats reset", zap.Int("previous_day_updated", w.cardsUpdatedToday))
		}
		w.cardsUpdatedToday = 0
		w.cardsFailedToday = 0
		w.lastStatsDay = today
		metrics.PriceUpdatesToday.Set(0)
	}
}

// RefreshAllUsers refreshes every stored collection. A run that starts while
// another is in progress returns immediately.
func (w *PriceWorker) RefreshAllUsers(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		w.logger.Info("price refresh already running, skipping")
		return
	}
	w.running = true
	w.resetDailyStatsIfNeeded()
	w.mu.Unlock()

	start := time.Now()
	defer func() {
		metrics.PriceBatchDuration.Observe(time.Since(start).Seconds())
		w.mu.Lock()
		w.running = false
		w.lastUpdateTime = w.now()
		w.mu.Unlock()
	}()

	users, err := w.store.ListUserIDs(ctx)
	if err != nil {
		w.logger.Error("price refresh: list users failed", zap.Error(err))
		return
	}

	for _, userID := range users {
		if ctx.Err() != nil {
			w.logger.Info("price refresh cancelled")
			return
		}
		summary, err := w.collections.RefreshAll(ctx, userID)
		if summary != nil {
			w.record(summary.Updated, summary.Failed)
		}
		if err != nil {
			w.logger.Error("price refresh failed", zap.String("user", userID), zap.Error(err))
		}
	}

	w.logger.Info("price refresh complete",
		zap.Int("users", len(users)),
		zap.Duration("took", time.Since(start)))
}

func (w *PriceWorker) record(updated, failed int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cardsUpdatedToday += updated
	w.cardsFailedToday += failed
	metrics.PriceUpdatesToday.Set(float64(w.cardsUpdatedToday))
}

func (w *PriceWorker) GetStatus() PriceStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetDailyStatsIfNeeded()
	return PriceStatus{
		Running:           w.running,
		LastUpdateTime:    w.lastUpdateTime,
		CardsUpdatedToday: w.cardsUpdatedToday,
		CardsFailedToday:  w.cardsFailedToday,
	}
}
