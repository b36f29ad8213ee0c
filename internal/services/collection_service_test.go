package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/pokebinder/internal/binder"
	"github.com/codyseavey/pokebinder/internal/models"
	"github.com/codyseavey/pokebinder/internal/pricing"
	"github.com/codyseavey/pokebinder/internal/query"
)

func sameDay(t *testing.T, want, got time.Time) {
	t.Helper()
	assert.True(t, pricing.SameDay(want, got), "want day %s, got %s", want.Format("2006-01-02"), got.Format(time.RFC3339))
}

func TestAddRefreshPriceHistoryFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.catalog.put(quote("sv1-25", "Pikachu", "Common", map[string]string{"normal": "12.50"}))

	card, err := f.svc.AddCard(ctx, "ash", "sv1-25", false)
	require.NoError(t, err)
	assert.Equal(t, models.VariantNormal, card.Value.Variant)
	assert.True(t, card.Value.Market.Equal(d("12.50")))
	require.Len(t, card.Value.History, 1)
	sameDay(t, f.clock.Now(), card.Value.History[0].Date)
	assert.True(t, card.Value.History[0].Price.Equal(d("12.50")))

	// same day: head is overwritten
	f.clock.Advance(2 * time.Hour)
	f.catalog.setPrice("sv1-25", "normal", "15.00")
	card, err = f.svc.RefreshPrice(ctx, "ash", card.ID)
	require.NoError(t, err)
	require.Len(t, card.Value.History, 1)
	assert.True(t, card.Value.History[0].Price.Equal(d("15")))
	assert.True(t, card.Value.Market.Equal(d("15")))
	today := f.clock.Now()

	// next day: a new head is prepended
	f.clock.Advance(24 * time.Hour)
	f.catalog.setPrice("sv1-25", "normal", "18.00")
	card, err = f.svc.RefreshPrice(ctx, "ash", card.ID)
	require.NoError(t, err)
	require.Len(t, card.Value.History, 2)
	sameDay(t, f.clock.Now(), card.Value.History[0].Date)
	assert.True(t, card.Value.History[0].Price.Equal(d("18")))
	sameDay(t, today, card.Value.History[1].Date)
	assert.True(t, card.Value.History[1].Price.Equal(d("15")))
	assert.True(t, card.Value.Market.Equal(d("18")))

	// the stored record matches what was returned
	stored, err := f.svc.GetCard(ctx, "ash", card.ID)
	require.NoError(t, err)
	require.Len(t, stored.Value.History, 2)
	assert.True(t, stored.Value.Market.Equal(d("18")))
}

func TestAddCardSnapshotsQuote(t *testing.T) {
	f := newFixture(t)
	q := quote("base1-4", "Charizard", "Rare Holo", map[string]string{"holofoil": "350", "normal": "1"})
	q.Set.Series = "Base"
	q.Subtypes = []string{"Stage 2"}
	f.catalog.put(q)

	card, err := f.svc.AddCard(context.Background(), "ash", "base1-4", false)
	require.NoError(t, err)

	assert.NotEmpty(t, card.ID)
	assert.Equal(t, "base1-4", card.CatalogID)
	assert.Equal(t, models.VariantHolofoil, card.Value.Variant)
	assert.Equal(t, 1, card.Value.Quantity)
	assert.Equal(t, models.RarityGrade("Rare Holo"), card.Rarity.Grade)
	assert.True(t, card.WOTC)
	assert.Equal(t, []string{"Stage 2"}, card.Subtypes)

	coll, err := f.store.GetCollection(context.Background(), "ash")
	require.NoError(t, err)
	assert.Equal(t, []string{card.ID}, coll.CardIDs)
}

func TestAddCardTwiceCreatesTwoCards(t *testing.T) {
	f := newFixture(t)
	f.catalog.put(quote("sv1-25", "Pikachu", "Common", map[string]string{"normal": "1"}))

	a, err := f.svc.AddCard(context.Background(), "ash", "sv1-25", false)
	require.NoError(t, err)
	b, err := f.svc.AddCard(context.Background(), "ash", "sv1-25", false)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	list, err := f.svc.List(context.Background(), "ash", "", query.Asc)
	require.NoError(t, err)
	assert.Len(t, list.Cards, 2)
	assert.Equal(t, 2, list.TotalCards)
}

func TestAddCardErrors(t *testing.T) {
	f := newFixture(t)
	f.catalog.put(quote("noprice", "Mew", "Promo", nil))
	f.catalog.put(quote("normal-only", "Abra", "Common", map[string]string{"normal": "0.10"}))

	_, err := f.svc.AddCard(context.Background(), "ash", "noprice", false)
	assert.ErrorIs(t, err, pricing.ErrNoPriceAvailable)

	_, err = f.svc.AddCard(context.Background(), "ash", "normal-only", true)
	assert.ErrorIs(t, err, pricing.ErrNoPriceAvailable)

	_, err = f.svc.AddCard(context.Background(), "ash", "missing", false)
	assert.ErrorIs(t, err, ErrNotFound)

	f.catalog.err = ErrCatalogUnavailable
	_, err = f.svc.AddCard(context.Background(), "ash", "normal-only", false)
	assert.ErrorIs(t, err, ErrCatalogUnavailable)

	coll, err := f.store.GetCollection(context.Background(), "ash")
	require.NoError(t, err)
	assert.Empty(t, coll.CardIDs, "failed adds leave the collection untouched")
}

func TestRefreshPriceKeepsVariant(t *testing.T) {
	f := newFixture(t)
	f.catalog.put(quote("c", "Mew", "Rare Holo", map[string]string{"holofoil": "10", "normal": "2"}))
	card, err := f.svc.AddCard(context.Background(), "ash", "c", false)
	require.NoError(t, err)

	// the selected variant disappears from the quote even though another is present
	f.catalog.setPrice("c", "normal", "3")
	_, err = f.svc.RefreshPrice(context.Background(), "ash", card.ID)
	assert.ErrorIs(t, err, ErrVariantPriceMissing)

	stored, err := f.svc.GetCard(context.Background(), "ash", card.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VariantHolofoil, stored.Value.Variant)
	assert.True(t, stored.Value.Market.Equal(d("10")))
	assert.Len(t, stored.Value.History, 1)
}

func TestRemoveCard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.catalog.put(quote("c", "Mew", "Radiant Rare", map[string]string{"holofoil": "10"}))
	keep, err := f.svc.AddCard(ctx, "ash", "c", false)
	require.NoError(t, err)
	gone, err := f.svc.AddCard(ctx, "ash", "c", false)
	require.NoError(t, err)
	_, err = f.svc.AssignBinder(ctx, "ash", gone.ID, models.BinderPrize)
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveCard(ctx, "ash", gone.ID))

	coll, err := f.store.GetCollection(ctx, "ash")
	require.NoError(t, err)
	assert.Equal(t, []string{keep.ID}, coll.CardIDs)
	assert.Empty(t, coll.Prize)
	_, err = f.store.GetCard(ctx, "ash", gone.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, f.svc.RemoveCard(ctx, "ash", gone.ID), ErrNotFound)
	assert.ErrorIs(t, f.svc.RemoveCard(ctx, "misty", keep.ID), ErrNotFound)
}

func TestRemoveCardIsAtomic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.catalog.put(quote("c", "Mew", "Rare", map[string]string{"normal": "1"}))
	card, err := f.svc.AddCard(ctx, "ash", "c", false)
	require.NoError(t, err)

	// the record vanishes behind the service's back: the membership update must roll back
	require.NoError(t, f.store.db.Delete(&models.OwnedCard{}, "id = ?", card.ID).Error)
	assert.ErrorIs(t, f.svc.RemoveCard(ctx, "ash", card.ID), ErrNotFound)

	coll, err := f.store.GetCollection(ctx, "ash")
	require.NoError(t, err)
	assert.Equal(t, []string{card.ID}, coll.CardIDs)
	assert.Equal(t, 1, coll.Version)
}

func TestAssignBinder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.catalog.put(quote("c", "Mew", "Rare", map[string]string{"normal": "1"}))
	card, err := f.svc.AddCard(ctx, "ash", "c", false)
	require.NoError(t, err)

	coll, err := f.svc.AssignBinder(ctx, "ash", card.ID, models.BinderPrize)
	require.NoError(t, err)
	assert.Equal(t, []string{card.ID}, coll.Prize)

	coll, err = f.svc.AssignBinder(ctx, "ash", card.ID, models.BinderElite)
	require.NoError(t, err)
	assert.Empty(t, coll.Prize)
	assert.Equal(t, []string{card.ID}, coll.Elite)

	coll, err = f.svc.AssignBinder(ctx, "ash", card.ID, models.BinderNone)
	require.NoError(t, err)
	assert.Empty(t, coll.Prize)
	assert.Empty(t, coll.Elite)

	_, err = f.svc.AssignBinder(ctx, "ash", "not-owned", models.BinderPrize)
	assert.ErrorIs(t, err, ErrNotInCollection)

	_, err = f.svc.AssignBinder(ctx, "ash", card.ID, models.Binder("trade"))
	assert.ErrorIs(t, err, ErrInvalidBinder)
}

func TestConcurrentMutationsStayConsistent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.catalog.put(quote("c", "Mew", "Rare", map[string]string{"normal": "1"}))

	var ids []string
	for range 6 {
		card, err := f.svc.AddCard(ctx, "ash", "c", false)
		require.NoError(t, err)
		ids = append(ids, card.ID)
	}

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(2)
		go func() {
			defer wg.Done()
			target := models.BinderPrize
			if i%2 == 0 {
				target = models.BinderElite
			}
			_, _ = f.svc.AssignBinder(ctx, "ash", id, target)
		}()
		go func() {
			defer wg.Done()
			if i < 3 {
				_ = f.svc.RemoveCard(ctx, "ash", id)
			}
		}()
	}
	wg.Wait()

	coll, err := f.store.GetCollection(ctx, "ash")
	require.NoError(t, err)
	assert.ElementsMatch(t, ids[3:], coll.CardIDs)
	for _, id := range append(coll.Prize, coll.Elite...) {
		assert.Contains(t, coll.CardIDs, id, "binders only hold owned cards")
	}
	assert.Len(t, append(coll.Prize, coll.Elite...), 3)
	assert.Zero(t, f.svc.locks.size())
}

func TestStaleCollectionWriteIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.catalog.put(quote("c", "Mew", "Rare", map[string]string{"normal": "1"}))
	card, err := f.svc.AddCard(ctx, "ash", "c", false)
	require.NoError(t, err)

	stale, err := f.store.GetCollection(ctx, "ash")
	require.NoError(t, err)
	_, err = f.svc.AssignBinder(ctx, "ash", card.ID, models.BinderPrize)
	require.NoError(t, err)

	stale.Assign(card.ID, models.BinderElite)
	assert.ErrorIs(t, f.store.SaveCollection(ctx, stale), ErrConcurrentUpdate)
}

func TestEditCard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.catalog.put(quote("c", "Mew", "Rare", map[string]string{"normal": "2", "reverseHolofoil": "6.75"}))
	card, err := f.svc.AddCard(ctx, "ash", "c", false)
	require.NoError(t, err)

	f.clock.Advance(48 * time.Hour)
	f.catalog.setPrice("c", "normal", "2.20")
	_, err = f.svc.RefreshPrice(ctx, "ash", card.ID)
	require.NoError(t, err)

	three := 3
	edited, err := f.svc.EditCard(ctx, "ash", card.ID, models.UpdateCollectionRequest{Quantity: &three})
	require.NoError(t, err)
	assert.Equal(t, 3, edited.Value.Quantity)
	assert.Len(t, edited.Value.History, 2, "quantity edits leave pricing alone")

	f.catalog.put(quote("c", "Mew", "Rare", map[string]string{"normal": "2", "reverseHolofoil": "6.75"}))
	yes := true
	edited, err = f.svc.EditCard(ctx, "ash", card.ID, models.UpdateCollectionRequest{ReverseHolo: &yes})
	require.NoError(t, err)
	assert.True(t, edited.Rarity.ReverseHolo)
	assert.Equal(t, models.VariantReverseHolofoil, edited.Value.Variant)
	assert.True(t, edited.Value.Market.Equal(d("6.75")))
	require.Len(t, edited.Value.History, 1)
	sameDay(t, f.clock.Now(), edited.Value.History[0].Date)
	assert.Equal(t, 3, edited.Value.Quantity)

	zero := 0
	_, err = f.svc.EditCard(ctx, "ash", card.ID, models.UpdateCollectionRequest{Quantity: &zero})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestEditCardReverseHoloOff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.catalog.put(quote("c", "Mew", "Rare Holo", map[string]string{"holofoil": "4", "normal": "2", "reverseHolofoil": "6.75"}))
	card, err := f.svc.AddCard(ctx, "ash", "c", true)
	require.NoError(t, err)
	require.Equal(t, models.VariantReverseHolofoil, card.Value.Variant)

	f.clock.Advance(24 * time.Hour)
	refreshed, err := f.svc.RefreshPrice(ctx, "ash", card.ID)
	require.NoError(t, err)
	require.Len(t, refreshed.Value.History, 2)

	f.clock.Advance(24 * time.Hour)
	no := false
	edited, err := f.svc.EditCard(ctx, "ash", card.ID, models.UpdateCollectionRequest{ReverseHolo: &no})
	require.NoError(t, err)
	assert.False(t, edited.Rarity.ReverseHolo)
	assert.Equal(t, models.VariantHolofoil, edited.Value.Variant, "falls back to the normal variant precedence")
	assert.True(t, edited.Value.Market.Equal(d("4")))
	require.Len(t, edited.Value.History, 1)
	sameDay(t, f.clock.Now(), edited.Value.History[0].Date)

	stored, err := f.svc.GetCard(ctx, "ash", card.ID)
	require.NoError(t, err)
	assert.Equal(t, models.VariantHolofoil, stored.Value.Variant)
	assert.Len(t, stored.Value.History, 1)
}

func TestEditCardReverseHoloNeedsVariant(t *testing.T) {
	f := newFixture(t)
	f.catalog.put(quote("c", "Mew", "Rare", map[string]string{"normal": "2"}))
	card, err := f.svc.AddCard(context.Background(), "ash", "c", false)
	require.NoError(t, err)

	yes := true
	_, err = f.svc.EditCard(context.Background(), "ash", card.ID, models.UpdateCollectionRequest{ReverseHolo: &yes})
	assert.ErrorIs(t, err, ErrVariantPriceMissing)

	_, err = f.svc.EditCard(context.Background(), "ash", "nope", models.UpdateCollectionRequest{ReverseHolo: &yes})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestViews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	radiant := quote("radiant", "Radiant Charizard", "Radiant Rare", map[string]string{"holofoil": "20"})
	sir := quote("sir", "Mew ex", "Special Illustration Rare", map[string]string{"holofoil": "80"})
	sir.Set = models.SetInfo{ID: "sv3pt5", Name: "151", ReleaseDate: "2023/09/22"}
	boss := quote("boss", "Boss's Orders", "Rare Holo", map[string]string{"holofoil": "1"})
	boss.Supertype = models.SupertypeTrainer
	common := quote("common", "Pidgey", "Common", map[string]string{"normal": "0.05"})
	common.Set.Series = "Base"
	for _, q := range []models.CatalogQuote{radiant, sir, boss, common} {
		f.catalog.put(q)
	}

	owned := map[string]*models.OwnedCard{}
	for _, id := range []string{"radiant", "sir", "boss", "common"} {
		card, err := f.svc.AddCard(ctx, "ash", id, false)
		require.NoError(t, err)
		owned[id] = card
	}
	for _, id := range []string{"radiant", "sir", "boss", "common"} {
		_, err := f.svc.AssignBinder(ctx, "ash", owned[id].ID, models.BinderPrize)
		require.NoError(t, err)
	}
	_, err := f.svc.AssignBinder(ctx, "ash", owned["common"].ID, models.BinderElite)
	require.NoError(t, err)

	t.Run("list sorted by value", func(t *testing.T) {
		list, err := f.svc.List(ctx, "ash", "", "")
		require.NoError(t, err)
		assert.Equal(t, []string{owned["sir"].ID, owned["radiant"].ID, owned["boss"].ID, owned["common"].ID}, cardIDs(list.Cards))
		assert.True(t, list.TotalValue.Equal(d("101.05")))
	})

	t.Run("set groups", func(t *testing.T) {
		groups, err := f.svc.SetGroups(ctx, "ash")
		require.NoError(t, err)
		require.Len(t, groups, 2)
		assert.Equal(t, "sv3pt5", groups[0].Set.ID)
		assert.Equal(t, "sv1", groups[1].Set.ID)
	})

	t.Run("prize view", func(t *testing.T) {
		view, err := f.svc.PrizeView(ctx, "ash")
		require.NoError(t, err)
		byTier := map[string][]string{}
		for _, tier := range view.Tiers {
			byTier[tier.Name] = cardIDs(tier.Cards)
		}
		assert.Equal(t, []string{owned["boss"].ID}, byTier[binder.TierTrainer])
		assert.Equal(t, []string{owned["sir"].ID}, byTier[binder.TierIllustrator])
		assert.Equal(t, []string{owned["radiant"].ID}, byTier[binder.TierHalfArt])
		assert.True(t, view.TotalValue.Equal(d("101")))
	})

	t.Run("elite view", func(t *testing.T) {
		view, err := f.svc.EliteView(ctx, "ash")
		require.NoError(t, err)
		require.Len(t, view.Tiers, 3)
		assert.Equal(t, binder.TierWOTC, view.Tiers[1].Name)
		assert.Equal(t, []string{owned["common"].ID}, cardIDs(view.Tiers[1].Cards))
	})

	t.Run("search", func(t *testing.T) {
		res, err := f.svc.Search(ctx, "ash", query.Criteria{Supertypes: []string{models.SupertypePokemon}})
		require.NoError(t, err)
		assert.Equal(t, []string{owned["sir"].ID, owned["radiant"].ID, owned["common"].ID}, cardIDs(res.Cards))
		assert.Len(t, res.Facets.Supertypes, 2, "facets cover the whole collection")
	})
}

func TestSetGroupsFetchesCatalogOnlyWhenNeeded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	undated := quote("promo", "Pikachu", "Promo", map[string]string{"normal": "3"})
	undated.Set = models.SetInfo{ID: "svp", Name: "Scarlet & Violet Promos"}
	f.catalog.put(undated)
	f.catalog.put(quote("c", "Mew", "Rare", map[string]string{"normal": "1"}))
	f.catalog.sets = []models.SetInfo{{ID: "svp", ReleaseDate: "2023/01/01"}}

	_, err := f.svc.AddCard(ctx, "ash", "c", false)
	require.NoError(t, err)
	_, err = f.svc.AddCard(ctx, "ash", "promo", false)
	require.NoError(t, err)

	groups, err := f.svc.SetGroups(ctx, "ash")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "sv1", groups[0].Set.ID)
	assert.Equal(t, "svp", groups[1].Set.ID)

	f.catalog.err = ErrCatalogUnavailable
	_, err = f.svc.SetGroups(ctx, "ash")
	assert.ErrorIs(t, err, ErrCatalogUnavailable)
}

func TestRefreshAllContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.catalog.put(quote("a", "Abra", "Common", map[string]string{"normal": "1"}))
	f.catalog.put(quote("b", "Mew", "Rare Holo", map[string]string{"holofoil": "5"}))
	_, err := f.svc.AddCard(ctx, "ash", "a", false)
	require.NoError(t, err)
	_, err = f.svc.AddCard(ctx, "ash", "b", false)
	require.NoError(t, err)

	f.catalog.setPrice("a", "holofoil", "2")
	f.catalog.setPrice("b", "holofoil", "6")

	summary, err := f.svc.RefreshAll(ctx, "ash")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Errors, 1)
}

func TestEmptyCollectionViews(t *testing.T) {
	f := newFixture(t)
	list, err := f.svc.List(context.Background(), "nobody", "", "")
	require.NoError(t, err)
	assert.Empty(t, list.Cards)
	assert.True(t, list.TotalValue.IsZero())

	summary, err := f.svc.RefreshAll(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Zero(t, summary.Updated)
}

func TestStoreFailureIsWrapped(t *testing.T) {
	f := newFixture(t)
	sqlDB, err := f.store.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = f.svc.List(context.Background(), "ash", "", "")
	assert.True(t, errors.Is(err, ErrStoreFailure), "got %v", err)
}

func cardIDs(cards []models.OwnedCard) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.ID
	}
	return out
}
