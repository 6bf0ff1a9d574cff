package catalog

import (
	"strings"

	"petrocore/pkg/models"
)

// RockSearchFields are the fields a free-text query is matched against for rocks.
var RockSearchFields = []string{
	"name", "code", "category", "type", "color", "hardness", "texture",
	"grain_size", "locality", "mineral_composition", "description", "formation",
	"depositional_environment", "associated_minerals", "coordinates", "latitude",
	"longitude", "foliation", "metamorphic_grade", "silica_content", "bedding",
	"commodity_type", "ore_group", "reaction_to_hcl",
}

// MineralSearchFields are the fields a free-text query is matched against for minerals.
var MineralSearchFields = []string{
	"name", "code", "category", "type", "color", "hardness", "locality",
	"description", "associated_minerals", "coordinates", "latitude", "longitude",
	"luster", "streak", "cleavage", "fracture", "crystal_system",
	"chemical_formula", "mineral_group", "specific_gravity", "occurrence",
	"magnetism",
}

// SearchFields returns the free-text field list for kind.
func SearchFields(kind models.Kind) []string {
	if kind == models.KindMineral {
		return MineralSearchFields
	}
	return RockSearchFields
}

// OreSamples is the rock-type facet value that also matches raw type "Ore".
const OreSamples = "Ore Samples"

// Facets is the selected filter state. An empty group is inactive.
// Groups are ANDed; values inside a group are ORed.
type Facets struct {
	RockTypes          []string `json:"rock_types,omitempty"`
	MineralCategories  []string `json:"mineral_categories,omitempty"`
	Colors             []string `json:"colors,omitempty"`
	AssociatedMinerals []string `json:"associated_minerals,omitempty"`
}

// Normalize trims values and drops blanks.
func (f Facets) Normalize() Facets {
	return Facets{
		RockTypes:          cleanValues(f.RockTypes),
		MineralCategories:  cleanValues(f.MineralCategories),
		Colors:             cleanValues(f.Colors),
		AssociatedMinerals: cleanValues(f.AssociatedMinerals),
	}
}

func (f Facets) Empty() bool {
	return len(f.RockTypes) == 0 && len(f.MineralCategories) == 0 &&
		len(f.Colors) == 0 && len(f.AssociatedMinerals) == 0
}

// Filter returns the records that match text and every active facet group,
// in input order. Records are copied, never modified.
func Filter(records []models.Specimen, text string, facets Facets) []models.Specimen {
	needle := strings.ToLower(strings.TrimSpace(text))
	facets = facets.Normalize()

	out := make([]models.Specimen, 0, len(records))
	for i := range records {
		if MatchesText(&records[i], needle) && MatchesFacets(&records[i], facets) {
			out = append(out, records[i])
		}
	}
	return out
}

// MatchesText reports whether any search field of s contains needle.
// needle must already be lowercased; "" matches everything.
func MatchesText(s *models.Specimen, needle string) bool {
	if needle == "" {
		return true
	}
	for _, name := range SearchFields(s.Kind) {
		if strings.Contains(strings.ToLower(s.Field(name)), needle) {
			return true
		}
	}
	return false
}

// MatchesFacets applies every facet group that is relevant to the record's kind.
func MatchesFacets(s *models.Specimen, f Facets) bool {
	if s.Kind != models.KindMineral && len(f.RockTypes) > 0 && !matchesRockType(s, f.RockTypes) {
		return false
	}
	if s.Kind == models.KindMineral && len(f.MineralCategories) > 0 && !anyEqual(f.MineralCategories, s.Category, s.Type) {
		return false
	}
	if len(f.Colors) > 0 && !anyContained(f.Colors, s.Color) {
		return false
	}
	if len(f.AssociatedMinerals) > 0 && !anyContained(f.AssociatedMinerals, s.AssociatedMinerals) {
		return false
	}
	return true
}

func matchesRockType(s *models.Specimen, values []string) bool {
	if anyEqual(values, s.Type, s.Category) {
		return true
	}
	// "Ore Samples" is the display name of raw type "Ore".
	return strings.EqualFold(strings.TrimSpace(s.Type), "Ore") && anyEqual(values, OreSamples)
}

func anyEqual(values []string, candidates ...string) bool {
	for _, v := range values {
		for _, c := range candidates {
			if c != "" && strings.EqualFold(strings.TrimSpace(c), v) {
				return true
			}
		}
	}
	return false
}

func anyContained(values []string, attr string) bool {
	attr = strings.ToLower(attr)
	if attr == "" {
		return false
	}
	for _, v := range values {
		if strings.Contains(attr, strings.ToLower(v)) {
			return true
		}
	}
	return false
}

func cleanValues(in []string) []string {
	var out []string
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
