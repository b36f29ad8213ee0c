package pricing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/codyseavey/pokebinder/internal/models"
)

// ErrNoHistory is returned by Latest for an empty history
var ErrNoHistory = errors.New("no price history")

// Today returns midnight of the current day in the local time zone.
func Today(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// SameDay compares calendar days, ignoring time of day. b is converted to a's location first.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Append records an observation. A second observation on the head's day overwrites the
// head price; any other day is prepended. The input slice is not modified.
func Append(history []models.PricePoint, date time.Time, price decimal.Decimal) []models.PricePoint {
	point := models.PricePoint{Date: Today(date), Price: price}
	if len(history) == 0 {
		return []models.PricePoint{point}
	}

	if SameDay(history[0].Date, date) {
		out := make([]models.PricePoint, len(history))
		copy(out, history)
		out[0].Price = price
		return out
	}

	out := make([]models.PricePoint, 0, len(history)+1)
	out = append(out, point)
	return append(out, history...)
}

// Latest returns the most recent price in history.
func Latest(history []models.PricePoint) (decimal.Decimal, error) {
	if len(history) == 0 {
		return decimal.Zero, ErrNoHistory
	}
	return history[0].Price, nil
}
