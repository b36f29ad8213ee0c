package binder

import (
	"slices"
	"time"

	"github.com/codyseavey/pokebinder/internal/models"
)

// GroupBySet groups cards by set id. Groups are ordered newest release first with ties
// kept in first-seen order; cards within a group are ordered by card number.
//
// A set with no usable release date on the card is looked up in catalogSets (the
// catalog's full set list). Sets still undated are appended after all dated groups.
func GroupBySet(cards []models.OwnedCard, catalogSets []models.SetInfo) []models.SetGroup {
	known := make(map[string]models.SetInfo, len(catalogSets))
	for _, s := range catalogSets {
		known[s.ID] = s
	}

	type group struct {
		set      models.SetInfo
		released time.Time
		dated    bool
		cards    []models.OwnedCard
	}

	var groups []*group
	byID := make(map[string]*group)
	for _, card := range cards {
		g, ok := byID[card.Set.ID]
		if !ok {
			g = &group{set: card.Set}
			g.released, g.dated = card.Set.Released()
			if !g.dated {
				if s, found := known[card.Set.ID]; found {
					g.released, g.dated = s.Released()
					if g.set.ReleaseDate == "" {
						g.set.ReleaseDate = s.ReleaseDate
					}
				}
			}
			byID[card.Set.ID] = g
			groups = append(groups, g)
		}
		g.cards = append(g.cards, card)
	}

	slices.SortStableFunc(groups, func(a, b *group) int {
		switch {
		case a.dated && !b.dated:
			return -1
		case !a.dated && b.dated:
			return 1
		case !a.dated && !b.dated:
			return 0
		}
		return b.released.Compare(a.released)
	})

	out := make([]models.SetGroup, 0, len(groups))
	for _, g := range groups {
		slices.SortStableFunc(g.cards, func(a, b models.OwnedCard) int {
			return models.CompareCardNumbers(a.Number, b.Number)
		})
		out = append(out, models.SetGroup{Set: g.set, Cards: g.cards})
	}
	return out
}

// NeedsCatalogSets reports whether any card's set lacks a usable release date,
// in which case GroupBySet wants the catalog set list.
func NeedsCatalogSets(cards []models.OwnedCard) bool {
	for i := range cards {
		if _, ok := cards[i].Set.Released(); !ok {
			return true
		}
	}
	return false
}
