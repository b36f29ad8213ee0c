package models

import (
	"cmp"
	"strings"
	"time"
)

// releaseDateLayouts are the formats the catalog has used for set release dates
var releaseDateLayouts = []string{"2006/01/02", "2006-01-02"}

// Released parses the set's release date. ok is false when the date is missing or malformed.
func (s SetInfo) Released() (t time.Time, ok bool) {
	raw := strings.TrimSpace(s.ReleaseDate)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range releaseDateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// CompareCardNumbers orders printed card numbers by their leading integer
// ("4" < "25" < "25a" < "100"), then by the remaining suffix. Numbers without a
// leading digit, e.g. promos like "SWSH050" or "TG12", sort after all numeric
// ones and compare lexically among themselves.
func CompareCardNumbers(a, b string) int {
	ad, as := splitCardNumber(a)
	bd, bs := splitCardNumber(b)
	switch {
	case ad == "" && bd == "":
		return strings.Compare(as, bs)
	case ad == "":
		return 1
	case bd == "":
		return -1
	}
	if c := compareDigits(ad, bd); c != 0 {
		return c
	}
	return strings.Compare(as, bs)
}

// splitCardNumber splits n into its leading digit run and the rest.
func splitCardNumber(n string) (digits, suffix string) {
	n = strings.TrimSpace(n)
	i := 0
	for i < len(n) && n[i] >= '0' && n[i] <= '9' {
		i++
	}
	return n[:i], n[i:]
}

// compareDigits compares two decimal digit strings by value without parsing,
// so arbitrarily long numbers cannot overflow.
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if c := cmp.Compare(len(a), len(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}
