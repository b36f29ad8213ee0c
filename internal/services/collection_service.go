package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/codyseavey/pokebinder/internal/binder"
	"github.com/codyseavey/pokebinder/internal/logger"
	"github.com/codyseavey/pokebinder/internal/metrics"
	"github.com/codyseavey/pokebinder/internal/models"
	"github.com/codyseavey/pokebinder/internal/pricing"
	"github.com/codyseavey/pokebinder/internal/query"
)

// CollectionService applies mutations to a user's collection and builds the
// read views over it. Mutations for one user are serialized; reads are not.
type CollectionService struct {
	store   Store
	catalog Catalog
	rules   binder.Rules
	locks   *userLocks
	logger  *zap.Logger
	now     func() time.Time
}

func NewCollectionService(store Store, catalog Catalog, rules binder.Rules, log *zap.Logger) *CollectionService {
	return &CollectionService{
		store:   store,
		catalog: catalog,
		rules:   rules,
		locks:   newUserLocks(),
		logger:  logger.OrNop(log),
		now:     time.Now,
	}
}

// SetClock replaces the time source used to date price history entries.
func (s *CollectionService) SetClock(now func() time.Time) {
	s.now = now
}

type cacheInvalidator interface {
	Invalidate(id string)
}

// freshQuote bypasses any quote cache so refreshes see current prices.
func (s *CollectionService) freshQuote(ctx context.Context, catalogID string) (*models.CatalogQuote, error) {
	if inv, ok := s.catalog.(cacheInvalidator); ok {
		inv.Invalidate(catalogID)
	}
	return s.catalog.GetCard(ctx, catalogID)
}

func track(op string, err error) {
	metrics.CollectionMutationsTotal.WithLabelValues(op, metrics.Result(err)).Inc()
}

// newOwnedCard snapshots quote into a fresh owned card priced at sel.
func newOwnedCard(userID string, quote *models.CatalogQuote, sel pricing.Selection, reverseHolo bool, now time.Time) *models.OwnedCard {
	return &models.OwnedCard{
		ID:        uuid.NewString(),
		UserID:    userID,
		CatalogID: quote.ID,
		Name:      quote.Name,
		NatDex:    quote.NatDex,
		Supertype: quote.Supertype,
		Subtypes:  slices.Clone(quote.Subtypes),
		Number:    quote.Number,
		Rarity: models.Rarity{
			Type:        quote.Rarity,
			Grade:       models.RarityGrade(quote.Rarity),
			ReverseHolo: reverseHolo,
		},
		Set:    quote.Set,
		Images: quote.Images,
		WOTC:   models.IsWOTCSeries(quote.Set.Series),
		Value: models.Valuation{
			Variant:  sel.Variant,
			Market:   sel.Price,
			History:  pricing.Append(nil, now, sel.Price),
			Quantity: 1,
		},
		AddedAt: now,
	}
}

// AddCard prices catalogID and adds a new owned copy of it. Adding the same
// catalog card twice creates two owned cards.
func (s *CollectionService) AddCard(ctx context.Context, userID, catalogID string, preferReverseHolo bool) (card *models.OwnedCard, err error) {
	defer func() { track("add", err) }()

	quote, err := s.catalog.GetCard(ctx, catalogID)
	if err != nil {
		return nil, err
	}
	sel, err := pricing.SelectPrice(quote.Prices, preferReverseHolo)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	coll, err := s.store.GetCollection(ctx, userID)
	if err != nil {
		return nil, err
	}

	card = newOwnedCard(userID, quote, sel, preferReverseHolo, s.now())
	coll.Add(card.ID)
	if err := s.store.CreateCard(ctx, card, coll); err != nil {
		return nil, err
	}

	s.logger.Info("card added",
		zap.String("user", userID),
		zap.String("card_id", card.ID),
		zap.String("catalog_id", catalogID),
		zap.String("variant", sel.Variant),
		zap.String("market", sel.Price.StringFixed(2)))
	return card, nil
}

// RefreshPrice re-quotes the card's already selected variant and records the
// price in its history. The variant is never changed here.
func (s *CollectionService) RefreshPrice(ctx context.Context, userID, cardID string) (card *models.OwnedCard, err error) {
	defer func() { track("refresh", err) }()

	card, err = s.store.GetCard(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}
	quote, err := s.freshQuote(ctx, card.CatalogID)
	if err != nil {
		return nil, err
	}
	vp, ok := quote.Prices[card.Value.Variant]
	if !ok {
		metrics.PriceRefreshTotal.WithLabelValues("variant_missing").Inc()
		return nil, fmt.Errorf("%w: %s", ErrVariantPriceMissing, card.Value.Variant)
	}
	price := pricing.VariantValue(vp).Round(2)

	unlock := s.locks.Lock(userID)
	defer unlock()

	// Re-read under the lock so a concurrent edit is not overwritten.
	card, err = s.store.GetCard(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}
	card.Value.History = pricing.Append(card.Value.History, s.now(), price)
	if card.Value.Market, err = pricing.Latest(card.Value.History); err != nil {
		return nil, err
	}
	if err := s.store.SaveCard(ctx, card); err != nil {
		return nil, err
	}

	metrics.PriceRefreshTotal.WithLabelValues("updated").Inc()
	s.logger.Debug("card price refreshed",
		zap.String("user", userID),
		zap.String("card_id", cardID),
		zap.String("market", card.Value.Market.StringFixed(2)))
	return card, nil
}

// RemoveCard drops the card from the collection and both binders and deletes
// its record. Both happen or neither does.
func (s *CollectionService) RemoveCard(ctx context.Context, userID, cardID string) (err error) {
	defer func() { track("remove", err) }()

	unlock := s.locks.Lock(userID)
	defer unlock()

	coll, err := s.store.GetCollection(ctx, userID)
	if err != nil {
		return err
	}
	if !coll.Contains(cardID) {
		return ErrNotFound
	}
	coll.Remove(cardID)
	if err := s.store.DeleteCard(ctx, coll, cardID); err != nil {
		return err
	}

	s.logger.Info("card removed", zap.String("user", userID), zap.String("card_id", cardID))
	return nil
}

// AssignBinder moves the card into target, taking it out of whichever binder held it.
// BinderNone only takes it out.
func (s *CollectionService) AssignBinder(ctx context.Context, userID, cardID string, target models.Binder) (coll *models.Collection, err error) {
	defer func() { track("assign_binder", err) }()

	if !target.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBinder, target)
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	coll, err = s.store.GetCollection(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !coll.Contains(cardID) {
		return nil, ErrNotInCollection
	}
	coll.Assign(cardID, target)
	if err := s.store.SaveCollection(ctx, coll); err != nil {
		return nil, err
	}
	return coll, nil
}

// EditCard updates quantity and reverse holo status. Switching the reverse holo
// flag re-prices the card against the matching variant and restarts its history.
func (s *CollectionService) EditCard(ctx context.Context, userID, cardID string, req models.UpdateCollectionRequest) (card *models.OwnedCard, err error) {
	defer func() { track("edit", err) }()

	if req.Quantity != nil && *req.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	current, err := s.store.GetCard(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}

	var sel *pricing.Selection
	if req.ReverseHolo != nil && *req.ReverseHolo != current.Rarity.ReverseHolo {
		quote, err := s.freshQuote(ctx, current.CatalogID)
		if err != nil {
			return nil, err
		}
		picked, err := pricing.SelectPrice(quote.Prices, *req.ReverseHolo)
		if err != nil {
			if *req.ReverseHolo {
				return nil, fmt.Errorf("%w: %s", ErrVariantPriceMissing, models.VariantReverseHolofoil)
			}
			return nil, err
		}
		sel = &picked
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	card, err = s.store.GetCard(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}
	if req.Quantity != nil {
		card.Value.Quantity = *req.Quantity
	}
	if sel != nil {
		card.Rarity.ReverseHolo = *req.ReverseHolo
		card.Value.Variant = sel.Variant
		card.Value.Market = sel.Price
		card.Value.History = pricing.Append(nil, s.now(), sel.Price)
	}
	if err := s.store.SaveCard(ctx, card); err != nil {
		return nil, err
	}
	return card, nil
}

func (s *CollectionService) GetCard(ctx context.Context, userID, cardID string) (*models.OwnedCard, error) {
	return s.store.GetCard(ctx, userID, cardID)
}

// snapshot reads the collection and its cards, returning cards in collection order.
func (s *CollectionService) snapshot(ctx context.Context, userID string) (*models.Collection, []models.OwnedCard, error) {
	coll, err := s.store.GetCollection(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	cards, err := s.store.ListCards(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	byID := make(map[string]models.OwnedCard, len(cards))
	for _, c := range cards {
		byID[c.ID] = c
	}
	return coll, pick(byID, coll.CardIDs), nil
}

func pick(byID map[string]models.OwnedCard, ids []string) []models.OwnedCard {
	out := make([]models.OwnedCard, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

func summarize(cards []models.OwnedCard) (total decimal.Decimal, count int) {
	total = decimal.Zero
	for i := range cards {
		total = total.Add(cards[i].TotalValue())
		count += cards[i].Value.Quantity
	}
	return total, count
}

// List returns the whole collection sorted by sortKey. With no key it is
// sorted by market value, most valuable first.
func (s *CollectionService) List(ctx context.Context, userID, sortKey string, dir query.Direction) (*models.CollectionListResponse, error) {
	_, cards, err := s.snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sortKey == "" {
		sortKey, dir = query.SortValue, query.Desc
	}
	sorted := query.Sort(cards, sortKey, dir)
	total, count := summarize(sorted)
	return &models.CollectionListResponse{Cards: sorted, TotalValue: total, TotalCards: count}, nil
}

// SetGroups groups the collection by set, newest set first. The catalog set
// list is only fetched when an owned card lacks a release date.
func (s *CollectionService) SetGroups(ctx context.Context, userID string) ([]models.SetGroup, error) {
	_, cards, err := s.snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	var catalogSets []models.SetInfo
	if binder.NeedsCatalogSets(cards) {
		if catalogSets, err = s.catalog.GetSets(ctx); err != nil {
			return nil, err
		}
	}
	return binder.GroupBySet(cards, catalogSets), nil
}

func (s *CollectionService) PrizeView(ctx context.Context, userID string) (*models.BinderViewResponse, error) {
	cards, err := s.overlay(ctx, userID, models.BinderPrize)
	if err != nil {
		return nil, err
	}
	tiers := s.rules.PrizeView(cards)
	return &models.BinderViewResponse{Binder: models.BinderPrize, Tiers: tiers, TotalValue: binder.TotalValue(tiers)}, nil
}

func (s *CollectionService) EliteView(ctx context.Context, userID string) (*models.BinderViewResponse, error) {
	cards, err := s.overlay(ctx, userID, models.BinderElite)
	if err != nil {
		return nil, err
	}
	tiers := binder.EliteView(cards)
	return &models.BinderViewResponse{Binder: models.BinderElite, Tiers: tiers, TotalValue: binder.TotalValue(tiers)}, nil
}

// overlay returns the cards held in one binder, in the order they were assigned.
func (s *CollectionService) overlay(ctx context.Context, userID string, b models.Binder) ([]models.OwnedCard, error) {
	coll, cards, err := s.snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.OwnedCard, len(cards))
	for _, c := range cards {
		byID[c.ID] = c
	}

	ids := coll.Prize
	if b == models.BinderElite {
		ids = coll.Elite
	}
	return pick(byID, ids), nil
}

// Search filters and sorts the collection. Facets describe the whole
// collection, not just the matches. With no sort key the result is sorted by
// market value, most valuable first.
func (s *CollectionService) Search(ctx context.Context, userID string, c query.Criteria) (*models.SearchResponse, error) {
	_, cards, err := s.snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c.SortKey == "" {
		c.SortKey, c.Direction = query.SortValue, query.Desc
	}
	return &models.SearchResponse{Cards: query.Run(cards, c), Facets: query.BuildFacets(cards)}, nil
}

// RefreshAll refreshes every card of the user, carrying on past per-card failures.
func (s *CollectionService) RefreshAll(ctx context.Context, userID string) (*models.RefreshSummary, error) {
	coll, err := s.store.GetCollection(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &models.RefreshSummary{}
	for _, id := range coll.CardIDs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if _, err := s.RefreshPrice(ctx, userID, id); err != nil {
			if errors.Is(err, ErrStoreFailure) {
				return summary, err
			}
			if !errors.Is(err, ErrVariantPriceMissing) {
				metrics.PriceRefreshTotal.WithLabelValues("failed").Inc()
			}
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", id, err))
			s.logger.Warn("card price refresh failed", zap.String("user", userID), zap.String("card_id", id), zap.Error(err))
			continue
		}
		summary.Updated++
	}

	s.logger.Info("collection prices refreshed",
		zap.String("user", userID),
		zap.Int("updated", summary.Updated),
		zap.Int("failed", summary.Failed))
	return summary, nil
}
