package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/codyseavey/pokebinder/internal/binder"
	"github.com/codyseavey/pokebinder/internal/config"
	"github.com/codyseavey/pokebinder/internal/database"
	"github.com/codyseavey/pokebinder/internal/models"
)

// fakeCatalog serves quotes from memory and counts lookups.
type fakeCatalog struct {
	mu      sync.Mutex
	quotes  map[string]models.CatalogQuote
	sets    []models.SetInfo
	err     error
	lookups int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{quotes: map[string]models.CatalogQuote{}}
}

func (f *fakeCatalog) put(q models.CatalogQuote) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quotes[q.ID] = q
}

// setPrice replaces the quoted prices for id with a single variant.
func (f *fakeCatalog) setPrice(id, variant, market string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := f.quotes[id]
	q.Prices = map[string]models.VariantPrice{variant: {Market: decimal.RequireFromString(market)}}
	f.quotes[id] = q
}

func (f *fakeCatalog) GetCard(_ context.Context, id string) (*models.CatalogQuote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.err != nil {
		return nil, f.err
	}
	q, ok := f.quotes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &q, nil
}

func (f *fakeCatalog) GetSets(context.Context) ([]models.SetInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.sets, nil
}

func quote(id, name, rarity string, prices map[string]string) models.CatalogQuote {
	q := models.CatalogQuote{
		ID:        id,
		Name:      name,
		Supertype: models.SupertypePokemon,
		Subtypes:  []string{"Basic"},
		Rarity:    rarity,
		Number:    "1",
		Set:       models.SetInfo{ID: "sv1", Name: "Scarlet & Violet", Series: "Scarlet & Violet", ReleaseDate: "2023/03/31"},
	}
	if prices != nil {
		q.Prices = map[string]models.VariantPrice{}
		for variant, market := range prices {
			q.Prices[variant] = models.VariantPrice{Market: decimal.RequireFromString(market)}
		}
	}
	return q
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc     *CollectionService
	store   *GormStore
	catalog *fakeCatalog
	clock   *clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(config.DBConfig{Path: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	store := NewGormStore(db)
	catalog := newFakeCatalog()
	clk := &clock{now: time.Date(2024, 5, 10, 14, 30, 0, 0, time.Local)}

	svc := NewCollectionService(store, catalog, binder.NewRules(""), nil)
	svc.SetClock(clk.Now)
	return &fixture{svc: svc, store: store, catalog: catalog, clock: clk}
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
