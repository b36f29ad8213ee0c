package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/codyseavey/pokebinder/internal/config"
	"github.com/codyseavey/pokebinder/internal/logger"
	"github.com/codyseavey/pokebinder/internal/metrics"
	"github.com/codyseavey/pokebinder/internal/models"
)

// Catalog is the read-only card catalog the collection prices against.
type Catalog interface {
	GetCard(ctx context.Context, id string) (*models.CatalogQuote, error)
	GetSets(ctx context.Context) ([]models.SetInfo, error)
}

const (
	pokemonTCGBaseURL = "https://api.pokemontcg.io/v2"
	setsPageSize      = 250
)

// PokemonTCGService talks to the pokemontcg.io v2 API.
type PokemonTCGService struct {
	client  *http.Client
	baseURL string
	apiKey  string
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewPokemonTCGService(cfg config.CatalogConfig, log *zap.Logger) *PokemonTCGService {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = pokemonTCGBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &PokemonTCGService{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger.OrNop(log),
	}
}

type pokemonCard struct {
	TCGPlayer   *pokemonTCGPrice `json:"tcgplayer"`
	Set         pokemonSet       `json:"set"`
	Images      pokemonImages    `json:"images"`
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Supertype   string           `json:"supertype"`
	Subtypes    []string         `json:"subtypes"`
	Number      string           `json:"number"`
	Rarity      string           `json:"rarity"`
	NationalDex []int            `json:"nationalPokedexNumbers"`
}

type pokemonSet struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Series       string `json:"series"`
	PrintedTotal int    `json:"printedTotal"`
	ReleaseDate  string `json:"releaseDate"`
	Images       struct {
		Symbol string `json:"symbol"`
		Logo   string `json:"logo"`
	} `json:"images"`
}

type pokemonImages struct {
	Small string `json:"small"`
	Large string `json:"large"`
}

type pokemonTCGPrice struct {
	Prices    map[string]pokemonPriceSet `json:"prices"`
	URL       string                     `json:"url"`
	UpdatedAt string                     `json:"updatedAt"`
}

type pokemonPriceSet struct {
	Low    decimal.Decimal `json:"low"`
	Mid    decimal.Decimal `json:"mid"`
	High   decimal.Decimal `json:"high"`
	Market decimal.Decimal `json:"market"`
}

type pokemonSetsResponse struct {
	Data       []pokemonSet `json:"data"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
	Count      int          `json:"count"`
	TotalCount int          `json:"totalCount"`
}

// get performs a rate limited GET against the API and decodes the JSON body into out.
func (s *PokemonTCGService) get(ctx context.Context, endpoint, path string, out any) error {
	start := time.Now()
	defer func() {
		metrics.CatalogRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	if err := s.limiter.Wait(ctx); err != nil {
		metrics.CatalogRequestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
		return fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("X-Api-Key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		metrics.CatalogRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	metrics.CatalogRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode != http.StatusOK:
		s.logger.Warn("catalog returned non-200", zap.String("path", path), zap.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: pokemon tcg API returned status %d", ErrCatalogUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode pokemon tcg response: %v", ErrCatalogUnavailable, err)
	}
	return nil
}

// GetCard fetches one card with its current tcgplayer prices.
func (s *PokemonTCGService) GetCard(ctx context.Context, id string) (*models.CatalogQuote, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrNotFound
	}

	var response struct {
		Data pokemonCard `json:"data"`
	}
	if err := s.get(ctx, "card", "/cards/"+url.PathEscape(id), &response); err != nil {
		return nil, err
	}

	quote := convertToQuote(response.Data)
	return &quote, nil
}

// GetSets lists every set ordered by release date, oldest first.
func (s *PokemonTCGService) GetSets(ctx context.Context) ([]models.SetInfo, error) {
	var sets []models.SetInfo
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("orderBy", "releaseDate")
		q.Set("page", strconv.Itoa(page))
		q.Set("pageSize", strconv.Itoa(setsPageSize))

		var resp pokemonSetsResponse
		if err := s.get(ctx, "sets", "/sets?"+q.Encode(), &resp); err != nil {
			return nil, err
		}
		for _, ps := range resp.Data {
			sets = append(sets, convertSet(ps))
		}
		if len(resp.Data) == 0 || len(sets) >= resp.TotalCount {
			break
		}
	}

	s.logger.Debug("fetched catalog sets", zap.Int("count", len(sets)))
	return sets, nil
}

func convertSet(ps pokemonSet) models.SetInfo {
	return models.SetInfo{
		ID:           ps.ID,
		Name:         ps.Name,
		Series:       ps.Series,
		ReleaseDate:  ps.ReleaseDate,
		PrintedTotal: ps.PrintedTotal,
		SymbolURL:    ps.Images.Symbol,
		LogoURL:      ps.Images.Logo,
	}
}

func convertToQuote(pc pokemonCard) models.CatalogQuote {
	quote := models.CatalogQuote{
		ID:        pc.ID,
		Name:      pc.Name,
		Supertype: pc.Supertype,
		Subtypes:  pc.Subtypes,
		Rarity:    pc.Rarity,
		Number:    pc.Number,
		Set:       convertSet(pc.Set),
		Images:    models.CardImages{Small: pc.Images.Small, Large: pc.Images.Large},
	}
	if len(pc.NationalDex) > 0 {
		quote.NatDex = pc.NationalDex[0]
	}

	if pc.TCGPlayer != nil && pc.TCGPlayer.Prices != nil {
		quote.PriceURL = pc.TCGPlayer.URL
		quote.Prices = make(map[string]models.VariantPrice, len(pc.TCGPlayer.Prices))
		for variant, p := range pc.TCGPlayer.Prices {
			quote.Prices[variant] = models.VariantPrice{Low: p.Low, Mid: p.Mid, High: p.High, Market: p.Market}
		}
	}
	return quote
}
