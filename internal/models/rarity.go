package models

import (
	"strings"
)

// UnknownRarityGrade is assigned to rarity labels missing from the grade table.
// It sorts after every known grade.
const UnknownRarityGrade = 99

// rarityGrades orders rarity labels from rarest (lowest grade) to most common.
// Labels sharing a grade are interchangeable for sorting and binder tiers.
var rarityGrades = map[string]int{
	"illustration rare":         2,
	"special illustration rare": 2,
	"rare secret":               2,
	"rare rainbow":              2,
	"hyper rare":                2,
	"trainer gallery rare holo": 2,
	"rare ultra":                3,
	"ultra rare":                3,
	"rare holo v":               4,
	"rare holo vmax":            4,
	"rare holo vstar":           4,
	"rare holo ex":              4,
	"rare holo gx":              4,
	"double rare":               4,
	"rare break":                5,
	"rare prime":                5,
	"rare holo lv.x":            5,
	"radiant rare":              5,
	"amazing rare":              5,
	"rare shining":              6,
	"rare shiny":                6,
	"shiny rare":                6,
	"rare shiny gx":             6,
	"rare holo star":            6,
	"rare prism star":           6,
	"ace spec rare":             6,
	"rare ace":                  6,
	"rare holo":                 7,
	"rare":                      8,
	"uncommon":                  9,
	"common":                    10,
	"promo":                     11,
	"classic collection":        11,
}

// RarityGrade maps a catalog rarity label to its grade. Matching is case and
// whitespace insensitive; unknown or empty labels get UnknownRarityGrade.
func RarityGrade(label string) int {
	if grade, ok := rarityGrades[strings.ToLower(strings.TrimSpace(label))]; ok {
		return grade
	}
	return UnknownRarityGrade
}

// wotcSeries are the catalog series printed by Wizards of the Coast
var wotcSeries = map[string]bool{
	"base":                      true,
	"gym":                       true,
	"neo":                       true,
	"e-card":                    true,
	"legendary collection":      true,
	"wizards black star promos": true,
}

// IsWOTCSeries reports whether a set series belongs to the Wizards of the Coast era.
func IsWOTCSeries(series string) bool {
	return wotcSeries[strings.ToLower(strings.TrimSpace(series))]
}
