package query

import (
	"slices"
	"strings"

	"github.com/codyseavey/pokebinder/internal/models"
)

// BuildFacets collects the distinct sets, subtypes, rarities and supertypes in cards.
// Sets are ordered newest release first, everything else alphabetically.
func BuildFacets(cards []models.OwnedCard) models.Facets {
	sets := map[string]models.SetInfo{}
	subtypes := map[string]struct{}{}
	rarities := map[string]struct{}{}
	supertypes := map[string]struct{}{}

	for _, c := range cards {
		if c.Set.ID != "" {
			sets[c.Set.ID] = c.Set
		}
		for _, st := range c.Subtypes {
			subtypes[st] = struct{}{}
		}
		if c.Rarity.Type != "" {
			rarities[c.Rarity.Type] = struct{}{}
		}
		if c.Supertype != "" {
			supertypes[c.Supertype] = struct{}{}
		}
	}

	f := models.Facets{
		Sets:       make([]models.SetInfo, 0, len(sets)),
		Subtypes:   sortedKeys(subtypes),
		Rarities:   sortedKeys(rarities),
		Supertypes: sortedKeys(supertypes),
	}
	for _, s := range sets {
		f.Sets = append(f.Sets, s)
	}
	slices.SortFunc(f.Sets, func(a, b models.SetInfo) int {
		ar, _ := a.Released()
		br, _ := b.Released()
		if c := br.Compare(ar); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return f
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
