// Package query filters and sorts a user's owned cards.
package query

import (
	"cmp"
	"slices"
	"strings"

	"github.com/codyseavey/pokebinder/internal/models"
)

// Direction is the sort direction
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection maps user input to a direction; anything but "desc" sorts ascending.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Desc)) {
		return Desc
	}
	return Asc
}

const (
	SortValue     = "value"
	SortRarity    = "rarity"
	SortName      = "name"
	SortSet       = "set"
	SortSupertype = "supertype"
)

// Comparator orders two cards ascending
type Comparator func(a, b *models.OwnedCard) int

var registry = map[string]Comparator{
	SortValue: func(a, b *models.OwnedCard) int {
		return a.Value.Market.Cmp(b.Value.Market)
	},
	SortRarity: func(a, b *models.OwnedCard) int {
		return cmp.Compare(a.Grade(), b.Grade())
	},
	SortName: func(a, b *models.OwnedCard) int {
		return strings.Compare(a.Name, b.Name)
	},
	SortSet: func(a, b *models.OwnedCard) int {
		ar, _ := a.Set.Released()
		br, _ := b.Set.Released()
		if c := ar.Compare(br); c != 0 {
			return c
		}
		return models.CompareCardNumbers(a.Number, b.Number)
	},
	SortSupertype: func(a, b *models.OwnedCard) int {
		if c := strings.Compare(a.Supertype, b.Supertype); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	},
}

// SortKeys lists the registered sort keys.
func SortKeys() []string {
	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// IsSortKey reports whether key names a registered comparator.
func IsSortKey(key string) bool {
	_, ok := registry[key]
	return ok
}

// Sort returns a stably sorted copy of cards. An unknown key returns the cards in
// their original order.
func Sort(cards []models.OwnedCard, key string, dir Direction) []models.OwnedCard {
	out := slices.Clone(cards)
	compare, ok := registry[key]
	if !ok {
		return out
	}

	slices.SortStableFunc(out, func(a, b models.OwnedCard) int {
		if dir == Desc {
			return compare(&b, &a)
		}
		return compare(&a, &b)
	})
	return out
}
