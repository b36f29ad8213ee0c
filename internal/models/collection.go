package models

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Binder names a classification overlay on a collection
type Binder string

const (
	BinderNone  Binder = "none"
	BinderPrize Binder = "prize"
	BinderElite Binder = "elite"
)

// Valid reports whether b is one of the known binder targets.
func (b Binder) Valid() bool {
	return b == BinderNone || b == BinderPrize || b == BinderElite
}

// PricePoint is one day's observed market price. Only the calendar day of Date is meaningful.
type PricePoint struct {
	Date  time.Time       `json:"date"`
	Price decimal.Decimal `json:"price"`
}

// Rarity is the rarity snapshot taken when the card was acquired
type Rarity struct {
	Type        string `json:"type"`
	Grade       int    `json:"grade"`
	ReverseHolo bool   `json:"reverse_holo"`
}

// Valuation is the mutable pricing state of an owned card.
// History is ordered most-recent-first with at most one entry per day.
type Valuation struct {
	Variant  string          `json:"variant"`
	Market   decimal.Decimal `json:"market" gorm:"type:numeric(12,2)"`
	History  []PricePoint    `json:"history" gorm:"serializer:json"`
	Quantity int             `json:"quantity" gorm:"default:1"`
}

// OwnedCard is one owned copy (or stack of copies) of a catalog card
type OwnedCard struct {
	ID        string     `json:"id" gorm:"primaryKey"`
	UserID    string     `json:"user_id" gorm:"not null;index"`
	CatalogID string     `json:"catalog_id" gorm:"not null;index"`
	Name      string     `json:"name" gorm:"not null"`
	NatDex    int        `json:"nat_dex"`
	Supertype string     `json:"supertype"`
	Subtypes  []string   `json:"subtypes" gorm:"serializer:json"`
	Number    string     `json:"number"`
	Rarity    Rarity     `json:"rarity" gorm:"embedded;embeddedPrefix:rarity_"`
	Set       SetInfo    `json:"set" gorm:"embedded;embeddedPrefix:set_"`
	Images    CardImages `json:"images" gorm:"embedded;embeddedPrefix:image_"`
	WOTC      bool       `json:"wotc"`
	Value     Valuation  `json:"value" gorm:"embedded;embeddedPrefix:value_"`
	AddedAt   time.Time  `json:"added_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// IsPokemon reports whether the card is a Pokémon (as opposed to Trainer or Energy).
func (c *OwnedCard) IsPokemon() bool {
	return c.Supertype == SupertypePokemon
}

// Grade returns the card's rarity grade, recomputing it from the label for
// records stored without one.
func (c *OwnedCard) Grade() int {
	if c.Rarity.Grade > 0 {
		return c.Rarity.Grade
	}
	return RarityGrade(c.Rarity.Type)
}

// TotalValue is the market price times the owned quantity
func (c *OwnedCard) TotalValue() decimal.Decimal {
	return c.Value.Market.Mul(decimal.NewFromInt(int64(c.Value.Quantity)))
}

// Collection is a user's set of owned cards plus the prize and elite overlays.
// CardIDs keeps insertion order; overlays are always subsets of CardIDs and disjoint.
type Collection struct {
	UserID    string    `json:"user_id" gorm:"primaryKey"`
	CardIDs   []string  `json:"card_ids" gorm:"serializer:json"`
	Prize     []string  `json:"prize" gorm:"serializer:json"`
	Elite     []string  `json:"elite" gorm:"serializer:json"`
	Version   int       `json:"version" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Contains reports whether cardID is owned in this collection.
func (c *Collection) Contains(cardID string) bool {
	return slices.Contains(c.CardIDs, cardID)
}

// BinderOf returns the overlay currently holding cardID
func (c *Collection) BinderOf(cardID string) Binder {
	switch {
	case slices.Contains(c.Prize, cardID):
		return BinderPrize
	case slices.Contains(c.Elite, cardID):
		return BinderElite
	default:
		return BinderNone
	}
}

// Add appends cardID to the collection.
func (c *Collection) Add(cardID string) {
	c.CardIDs = append(c.CardIDs, cardID)
}

// Remove drops cardID from the collection and from both overlays.
func (c *Collection) Remove(cardID string) {
	c.CardIDs = without(c.CardIDs, cardID)
	c.Prize = without(c.Prize, cardID)
	c.Elite = without(c.Elite, cardID)
}

// Assign moves cardID into binder, first removing it from whichever overlay holds it.
// The caller is responsible for checking membership.
func (c *Collection) Assign(cardID string, binder Binder) {
	c.Prize = without(c.Prize, cardID)
	c.Elite = without(c.Elite, cardID)
	switch binder {
	case BinderPrize:
		c.Prize = append(c.Prize, cardID)
	case BinderElite:
		c.Elite = append(c.Elite, cardID)
	}
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

type AddToCollectionRequest struct {
	CardID      string `json:"card_id" binding:"required"`
	ReverseHolo bool   `json:"reverse_holo"`
}

type UpdateCollectionRequest struct {
	Quantity    *int  `json:"quantity"`
	ReverseHolo *bool `json:"reverse_holo"`
}

type AssignBinderRequest struct {
	Binder Binder `json:"binder" binding:"required"`
}

// CollectionListResponse is the full sorted collection with its aggregate value
type CollectionListResponse struct {
	Cards      []OwnedCard     `json:"cards"`
	TotalValue decimal.Decimal `json:"total_value"`
	TotalCards int             `json:"total_cards"`
}

// SetGroup is one set's worth of owned cards, ordered by card number
type SetGroup struct {
	Set   SetInfo     `json:"set"`
	Cards []OwnedCard `json:"cards"`
}

// BinderTier is a named display bucket inside a binder view
type BinderTier struct {
	Name  string      `json:"name"`
	Cards []OwnedCard `json:"cards"`
}

type BinderViewResponse struct {
	Binder     Binder          `json:"binder"`
	Tiers      []BinderTier    `json:"tiers"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// Facets are the distinct values present in a collection, used to build filter controls
type Facets struct {
	Sets       []SetInfo `json:"sets"`
	Subtypes   []string  `json:"subtypes"`
	Rarities   []string  `json:"rarities"`
	Supertypes []string  `json:"supertypes"`
}

type SearchResponse struct {
	Cards  []OwnedCard `json:"cards"`
	Facets Facets      `json:"facets"`
}

// RefreshSummary reports a bulk price refresh
type RefreshSummary struct {
	Updated int      `json:"updated"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}
