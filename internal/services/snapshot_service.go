package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/codyseavey/pokebinder/internal/logger"
	"github.com/codyseavey/pokebinder/internal/metrics"
	"github.com/codyseavey/pokebinder/internal/models"
)

// SnapshotService records one collection value snapshot per user per day
type SnapshotService struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewSnapshotService(store Store, log *zap.Logger) *SnapshotService {
	return &SnapshotService{
		store:  store,
		logger: logger.OrNop(log),
		now:    time.Now,
	}
}

// snapshotDay keys snapshots by the local calendar day, stored as UTC midnight.
func snapshotDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// TakeSnapshot records the user's current collection value, replacing any
// snapshot already taken today.
func (s *SnapshotService) TakeSnapshot(ctx context.Context, userID string) (snap *models.CollectionValueSnapshot, err error) {
	defer func() { metrics.SnapshotsTotal.WithLabelValues(metrics.Result(err)).Inc() }()

	coll, err := s.store.GetCollection(ctx, userID)
	if err != nil {
		return nil, err
	}
	cards, err := s.store.ListCards(ctx, userID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.OwnedCard, len(cards))
	for _, c := range cards {
		byID[c.ID] = c
	}
	owned := pick(byID, coll.CardIDs)
	total, count := summarize(owned)
	prize, _ := summarize(pick(byID, coll.Prize))
	elite, _ := summarize(pick(byID, coll.Elite))

	now := s.now()
	snap = &models.CollectionValueSnapshot{
		UserID:       userID,
		SnapshotDate: snapshotDay(now),
		TotalCards:   count,
		UniqueCards:  len(owned),
		TotalValue:   total,
		PrizeValue:   prize,
		EliteValue:   elite,
		CreatedAt:    now,
	}
	if err := s.store.SaveSnapshot(ctx, snap); err != nil {
		return nil, err
	}

	s.logger.Info("recorded value snapshot",
		zap.String("user", userID),
		zap.String("date", snap.SnapshotDate.Format("2006-01-02")),
		zap.String("total", total.StringFixed(2)),
		zap.Int("cards", count))
	return snap, nil
}

// TakeAll snapshots every stored collection, continuing past failures, and
// publishes the summed values as gauges.
func (s *SnapshotService) TakeAll(ctx context.Context) {
	users, err := s.store.ListUserIDs(ctx)
	if err != nil {
		s.logger.Error("snapshot: list users failed", zap.Error(err))
		return
	}

	cards := 0
	total, prize, elite := decimal.Zero, decimal.Zero, decimal.Zero
	for _, userID := range users {
		snap, err := s.TakeSnapshot(ctx, userID)
		if err != nil {
			s.logger.Error("snapshot failed", zap.String("user", userID), zap.Error(err))
			continue
		}
		cards += snap.TotalCards
		total = total.Add(snap.TotalValue)
		prize = prize.Add(snap.PrizeValue)
		elite = elite.Add(snap.EliteValue)
	}

	metrics.CollectionCardsTotal.Set(float64(cards))
	metrics.CollectionValueUSD.WithLabelValues("all").Set(total.InexactFloat64())
	metrics.CollectionValueUSD.WithLabelValues("prize").Set(prize.InexactFloat64())
	metrics.CollectionValueUSD.WithLabelValues("elite").Set(elite.InexactFloat64())
}

// GetHistory returns the user's snapshots for period, oldest first.
// Unknown periods default to one month.
func (s *SnapshotService) GetHistory(ctx context.Context, userID, period string) (*models.ValueHistoryResponse, error) {
	now := s.now()
	var startDate time.Time

	switch period {
	case "week":
		startDate = now.AddDate(0, 0, -7)
	case "month":
		startDate = now.AddDate(0, -1, 0)
	case "3month":
		startDate = now.AddDate(0, -3, 0)
	case "year":
		startDate = now.AddDate(-1, 0, 0)
	case "all":
	default:
		period = "month"
		startDate = now.AddDate(0, -1, 0)
	}
	if !startDate.IsZero() {
		startDate = snapshotDay(startDate)
	}

	snapshots, err := s.store.ListSnapshots(ctx, userID, startDate)
	if err != nil {
		return nil, err
	}
	if snapshots == nil {
		snapshots = []models.CollectionValueSnapshot{}
	}
	resp := &models.ValueHistoryResponse{Snapshots: snapshots, Period: period, Change: decimal.Zero}
	if n := len(snapshots); n > 1 {
		resp.Change = snapshots[n-1].TotalValue.Sub(snapshots[0].TotalValue)
	}
	return resp, nil
}
