// Package binder classifies owned cards into display buckets: prize tiers,
// elite tiers and release-ordered set groups. Everything here is a pure
// function of the cards passed in.
package binder

import (
	"github.com/shopspring/decimal"

	"github.com/codyseavey/pokebinder/internal/models"
)

// DefaultPrizeAnchor is the rarity label whose grade anchors the prize tiers
const DefaultPrizeAnchor = "Radiant Rare"

const (
	TierTrainer     = "Trainer & Energy"
	TierIllustrator = "Illustrator Rare"
	TierFullArt     = "Full Art"
	TierSpecial     = "V & Special"
	TierHalfArt     = "Half Art"
	TierSpecialHolo = "Special Holo"
	TierHolo        = "Holo"
	TierWOTC        = "WOTC Era"
	TierModern      = "Modern Elite"
)

type prizeTier struct {
	name   string
	offset int
}

// prizeTiers are checked in order; a card lands in the first tier whose grade
// (anchor grade + offset) equals the card's own grade.
var prizeTiers = []prizeTier{
	{TierIllustrator, -3},
	{TierFullArt, -2},
	{TierSpecial, -1},
	{TierHalfArt, 0},
	{TierSpecialHolo, 1},
	{TierHolo, 2},
}

// Rules holds the grade the prize tiers are anchored on. Tier offsets are
// relative to this one anchor grade, not to each card's own grade: a card's
// grade measured against itself is always offset 0, which would put every
// Pokémon in the Half Art tier. The anchor comes from the binder.prize_anchor_rarity
// setting and defaults to DefaultPrizeAnchor.
type Rules struct {
	Base int
}

// NewRules anchors the prize tiers on the grade of anchorRarity.
// An empty anchor uses DefaultPrizeAnchor.
func NewRules(anchorRarity string) Rules {
	if anchorRarity == "" {
		anchorRarity = DefaultPrizeAnchor
	}
	return Rules{Base: models.RarityGrade(anchorRarity)}
}

// IsTrainerBucket reports whether the card goes to the Trainer/Energy bucket
func IsTrainerBucket(card *models.OwnedCard) bool {
	return !card.IsPokemon()
}

// PrizeTier returns the prize tier for card. ok is false when the card matches no tier.
func (r Rules) PrizeTier(card *models.OwnedCard) (tier string, ok bool) {
	if IsTrainerBucket(card) {
		return TierTrainer, true
	}
	grade := card.Grade()
	for _, t := range prizeTiers {
		if grade == r.Base+t.offset {
			return t.name, true
		}
	}
	return "", false
}

// EliteTier returns the elite tier for card. Every card matches exactly one.
func EliteTier(card *models.OwnedCard) string {
	switch {
	case IsTrainerBucket(card):
		return TierTrainer
	case card.WOTC:
		return TierWOTC
	default:
		return TierModern
	}
}

// PrizeTierNames lists the prize view's tiers in display order.
func PrizeTierNames() []string {
	names := []string{TierTrainer}
	for _, t := range prizeTiers {
		names = append(names, t.name)
	}
	return names
}

// EliteTierNames lists the elite view's tiers in display order.
func EliteTierNames() []string {
	return []string{TierTrainer, TierWOTC, TierModern}
}

// PrizeView buckets cards into the prize tiers, preserving input order within a tier.
// Cards matching no tier are left out.
func (r Rules) PrizeView(cards []models.OwnedCard) []models.BinderTier {
	return bucket(cards, PrizeTierNames(), func(c *models.OwnedCard) (string, bool) {
		return r.PrizeTier(c)
	})
}

// EliteView buckets cards into the elite tiers, preserving input order within a tier.
func EliteView(cards []models.OwnedCard) []models.BinderTier {
	return bucket(cards, EliteTierNames(), func(c *models.OwnedCard) (string, bool) {
		return EliteTier(c), true
	})
}

func bucket(cards []models.OwnedCard, names []string, classify func(*models.OwnedCard) (string, bool)) []models.BinderTier {
	tiers := make([]models.BinderTier, len(names))
	index := make(map[string]int, len(names))
	for i, name := range names {
		tiers[i] = models.BinderTier{Name: name, Cards: []models.OwnedCard{}}
		index[name] = i
	}

	for i := range cards {
		name, ok := classify(&cards[i])
		if !ok {
			continue
		}
		tiers[index[name]].Cards = append(tiers[index[name]].Cards, cards[i])
	}
	return tiers
}

// TotalValue sums market price times quantity over every card in the tiers.
func TotalValue(tiers []models.BinderTier) decimal.Decimal {
	total := decimal.Zero
	for _, t := range tiers {
		for i := range t.Cards {
			total = total.Add(t.Cards[i].TotalValue())
		}
	}
	return total
}
