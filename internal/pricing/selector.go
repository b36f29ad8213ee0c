// Package pricing picks the canonical price for a newly added card and keeps
// the per-card price history.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/codyseavey/pokebinder/internal/models"
)

// ErrNoPriceAvailable is returned when a quote has no usable price variant
var ErrNoPriceAvailable = errors.New("no price available")

// VariantPrecedence is the order variants are tried in when no reverse holo is requested.
// Adding a variant is a table edit.
var VariantPrecedence = []string{
	models.VariantHolofoil,
	models.VariantNormal,
	models.VariantUnlimited,
	models.VariantUnlimitedHolofoil,
	models.Variant1stEditionHolofoil,
	models.Variant1stEdition,
}

// Selection is the variant chosen for a card and its price rounded to cents
type Selection struct {
	Variant string
	Price   decimal.Decimal
}

// SelectPrice picks the canonical (variant, price) pair from a quote's price block.
// When preferReverseHolo is set only the reverse holofoil variant is considered.
func SelectPrice(prices map[string]models.VariantPrice, preferReverseHolo bool) (Selection, error) {
	if prices == nil {
		return Selection{}, ErrNoPriceAvailable
	}

	order := VariantPrecedence
	if preferReverseHolo {
		order = []string{models.VariantReverseHolofoil}
	}

	for _, variant := range order {
		vp, ok := prices[variant]
		if !ok {
			continue
		}
		return Selection{Variant: variant, Price: VariantValue(vp).Round(2)}, nil
	}
	return Selection{}, ErrNoPriceAvailable
}

// VariantValue is the market price when the catalog reports a positive one, else the mid price.
func VariantValue(vp models.VariantPrice) decimal.Decimal {
	if vp.Market.IsPositive() {
		return vp.Market
	}
	return vp.Mid
}
