package services

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/codyseavey/pokebinder/internal/metrics"
	"github.com/codyseavey/pokebinder/internal/models"
)

const (
	setsCacheKey = "all"
	setsCacheTTL = 24 * time.Hour
)

// CachedCatalog keeps recently fetched quotes and the set list in memory.
// Quotes expire after the configured TTL so refreshes still see new prices.
type CachedCatalog struct {
	next   Catalog
	quotes *expirable.LRU[string, *models.CatalogQuote]
	sets   *expirable.LRU[string, []models.SetInfo]
}

func NewCachedCatalog(next Catalog, size int, ttl time.Duration) *CachedCatalog {
	if size <= 0 {
		size = 1000
	}
	return &CachedCatalog{
		next:   next,
		quotes: expirable.NewLRU[string, *models.CatalogQuote](size, nil, ttl),
		sets:   expirable.NewLRU[string, []models.SetInfo](1, nil, setsCacheTTL),
	}
}

func (c *CachedCatalog) GetCard(ctx context.Context, id string) (*models.CatalogQuote, error) {
	if quote, ok := c.quotes.Get(id); ok {
		metrics.CatalogCacheHits.WithLabelValues("card").Inc()
		return quote, nil
	}
	metrics.CatalogCacheMisses.WithLabelValues("card").Inc()

	quote, err := c.next.GetCard(ctx, id)
	if err != nil {
		return nil, err
	}
	c.quotes.Add(id, quote)
	return quote, nil
}

func (c *CachedCatalog) GetSets(ctx context.Context) ([]models.SetInfo, error) {
	if sets, ok := c.sets.Get(setsCacheKey); ok {
		metrics.CatalogCacheHits.WithLabelValues("sets").Inc()
		return sets, nil
	}
	metrics.CatalogCacheMisses.WithLabelValues("sets").Inc()

	sets, err := c.next.GetSets(ctx)
	if err != nil {
		return nil, err
	}
	c.sets.Add(setsCacheKey, sets)
	return sets, nil
}

// Invalidate drops a cached quote so the next lookup goes to the catalog.
func (c *CachedCatalog) Invalidate(id string) {
	c.quotes.Remove(id)
}
