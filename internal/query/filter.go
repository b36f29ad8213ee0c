package query

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/codyseavey/pokebinder/internal/models"
)

// Value comparison operators
const (
	OpAtLeast = ">="
	OpAtMost  = "<="
)

// ValueFilter keeps cards whose market price compares to Bound with Op
type ValueFilter struct {
	Op    string
	Bound decimal.Decimal
}

// Criteria is an immutable set of filters plus the requested ordering.
// A nil slice means the criterion was not supplied and its stage is skipped;
// a non-nil empty slice matches nothing.
type Criteria struct {
	ReverseHoloOnly bool
	Value           *ValueFilter
	Name            string
	Rarities        []string
	Supertypes      []string
	Subtypes        []string
	SetIDs          []string

	SortKey   string
	Direction Direction
}

// ParseCriteria builds Criteria from query parameters. List parameters accept
// repeated keys, comma separated values, or both.
func ParseCriteria(values url.Values) (Criteria, error) {
	c := Criteria{
		Name:       strings.TrimSpace(values.Get("name")),
		Rarities:   listParam(values, "rarity"),
		Supertypes: listParam(values, "supertype"),
		Subtypes:   listParam(values, "subtype"),
		SetIDs:     listParam(values, "set"),
		SortKey:    strings.TrimSpace(values.Get("sort")),
		Direction:  ParseDirection(values.Get("dir")),
	}

	if raw := values.Get("reverse_holo"); raw != "" {
		on, err := strconv.ParseBool(raw)
		if err != nil {
			return Criteria{}, fmt.Errorf("invalid reverse_holo %q", raw)
		}
		c.ReverseHoloOnly = on
	}

	if raw := strings.TrimSpace(values.Get("value")); raw != "" {
		bound, err := decimal.NewFromString(raw)
		if err != nil {
			return Criteria{}, fmt.Errorf("invalid value %q", raw)
		}
		op := strings.TrimSpace(values.Get("value_op"))
		switch op {
		case "", "gte", OpAtLeast:
			op = OpAtLeast
		case "lte", OpAtMost:
			op = OpAtMost
		default:
			return Criteria{}, fmt.Errorf("invalid value_op %q", op)
		}
		c.Value = &ValueFilter{Op: op, Bound: bound}
	}

	return c, nil
}

// listParam normalizes scalar-or-list parameters. It returns nil when key is absent.
func listParam(values url.Values, key string) []string {
	raw, ok := values[key]
	if !ok {
		return nil
	}
	out := []string{}
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

type stage func(card *models.OwnedCard) bool

// stages returns the supplied predicates in their fixed evaluation order.
func (c Criteria) stages() []stage {
	var out []stage
	if c.ReverseHoloOnly {
		out = append(out, func(card *models.OwnedCard) bool {
			return card.Rarity.ReverseHolo
		})
	}
	if c.Value != nil {
		v := *c.Value
		out = append(out, func(card *models.OwnedCard) bool {
			if v.Op == OpAtMost {
				return card.Value.Market.LessThanOrEqual(v.Bound)
			}
			return card.Value.Market.GreaterThanOrEqual(v.Bound)
		})
	}
	if c.Name != "" {
		needle := strings.ToLower(c.Name)
		out = append(out, func(card *models.OwnedCard) bool {
			return strings.Contains(strings.ToLower(card.Name), needle)
		})
	}
	if c.Rarities != nil {
		out = append(out, func(card *models.OwnedCard) bool {
			return slices.Contains(c.Rarities, card.Rarity.Type)
		})
	}
	if c.Supertypes != nil {
		out = append(out, func(card *models.OwnedCard) bool {
			return slices.Contains(c.Supertypes, card.Supertype)
		})
	}
	if c.Subtypes != nil {
		out = append(out, func(card *models.OwnedCard) bool {
			for _, st := range card.Subtypes {
				if slices.Contains(c.Subtypes, st) {
					return true
				}
			}
			return false
		})
	}
	if c.SetIDs != nil {
		out = append(out, func(card *models.OwnedCard) bool {
			return slices.Contains(c.SetIDs, card.Set.ID)
		})
	}
	return out
}

// Filter keeps the cards matching every supplied criterion, preserving order.
func Filter(cards []models.OwnedCard, c Criteria) []models.OwnedCard {
	stages := c.stages()
	out := make([]models.OwnedCard, 0, len(cards))
	for i := range cards {
		keep := true
		for _, match := range stages {
			if !match(&cards[i]) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, cards[i])
		}
	}
	return out
}

// Run filters cards and sorts the result by the criteria's sort key.
func Run(cards []models.OwnedCard, c Criteria) []models.OwnedCard {
	return Sort(Filter(cards, c), c.SortKey, c.Direction)
}
