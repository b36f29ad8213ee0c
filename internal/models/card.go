package models

import (
	"github.com/shopspring/decimal"
)

const (
	SupertypePokemon = "Pokémon"
	SupertypeTrainer = "Trainer"
	SupertypeEnergy  = "Energy"
)

// Price variant names as reported by the catalog's tcgplayer price block.
const (
	VariantHolofoil           = "holofoil"
	VariantNormal             = "normal"
	VariantReverseHolofoil    = "reverseHolofoil"
	VariantUnlimited          = "unlimited"
	VariantUnlimitedHolofoil  = "unlimitedHolofoil"
	Variant1stEditionHolofoil = "1stEditionHolofoil"
	Variant1stEdition         = "1stEdition"
)

// VariantPrice is the market/mid pair quoted for one print finish.
// A zero value means the catalog did not report that figure.
type VariantPrice struct {
	Low    decimal.Decimal `json:"low"`
	Mid    decimal.Decimal `json:"mid"`
	High   decimal.Decimal `json:"high"`
	Market decimal.Decimal `json:"market"`
}

// SetInfo describes the release a card was printed in
type SetInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Series       string `json:"series"`
	ReleaseDate  string `json:"release_date"` // catalog format "2006/01/02"
	PrintedTotal int    `json:"printed_total"`
	SymbolURL    string `json:"symbol_url"`
	LogoURL      string `json:"logo_url"`
}

type CardImages struct {
	Small string `json:"small"`
	Large string `json:"large"`
}

// CatalogQuote is a read-only snapshot of one card as returned by the catalog.
// Prices is nil when the catalog has no price block for the card.
type CatalogQuote struct {
	ID        string                  `json:"id"`
	Name      string                  `json:"name"`
	NatDex    int                     `json:"nat_dex"`
	Supertype string                  `json:"supertype"`
	Subtypes  []string                `json:"subtypes"`
	Rarity    string                  `json:"rarity"`
	Number    string                  `json:"number"`
	Set       SetInfo                 `json:"set"`
	Images    CardImages              `json:"images"`
	Prices    map[string]VariantPrice `json:"prices,omitempty"`
	PriceURL  string                  `json:"price_url,omitempty"`
}

// CardPreview is returned by the catalog preview endpoint
type CardPreview struct {
	Card     CatalogQuote    `json:"card"`
	Variant  string          `json:"variant,omitempty"`
	Price    decimal.Decimal `json:"price"`
	HasPrice bool            `json:"has_price"`
}
