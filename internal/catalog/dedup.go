package catalog

import (
	"strings"
	"unicode"

	"petrocore/pkg/models"
)

// NormalizeCode reduces a hand-entered specimen code to a comparison key:
// lowercase letters and digits only, so "I-0001", "i 0001" and "I0001 "
// collide.
func NormalizeCode(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	for _, r := range strings.ToLower(code) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DedupKey returns the grouping key of a record and false when the record
// must never be merged with another (no usable code and no name).
//
// Records with a code are keyed by code only, so a record is resolved by
// the code rule even if its name and category also match another record.
func DedupKey(s *models.Specimen) (string, bool) {
	if code := NormalizeCode(s.Code); code != "" {
		return "code:" + code, true
	}
	name := strings.ToLower(strings.TrimSpace(s.Name))
	if name == "" {
		return "", false
	}
	return "name:" + name + "\x00" + strings.ToLower(strings.TrimSpace(s.Category)), true
}

// Prefer reports whether candidate should replace current when the two are
// compared on their own.
//
// A later updated_at wins when both records carry one. When either
// timestamp is missing, or they are equal, the more complete record wins.
// A full tie keeps current (first seen). Pairwise preference is not
// transitive across mixed groups; Deduplicate uses survivor instead.
func Prefer(candidate, current *models.Specimen) bool {
	if candidate.UpdatedAt != nil && current.UpdatedAt != nil && !candidate.UpdatedAt.Equal(*current.UpdatedAt) {
		return candidate.UpdatedAt.After(*current.UpdatedAt)
	}
	return candidate.Completeness() > current.Completeness()
}

// survivor picks the representative of a duplicate group, given as indexes
// into records in input order.
//
// The newest timestamped member and the most complete untimestamped member
// are found first. The untimestamped one only wins when it is strictly more
// complete; a tie goes to whichever appeared first. The result does not
// depend on input order except through that first-seen tie.
func survivor(records []models.Specimen, group []int) int {
	bestStamped, bestPlain := -1, -1
	for _, i := range group {
		rec := &records[i]
		if rec.UpdatedAt == nil {
			if bestPlain < 0 || rec.Completeness() > records[bestPlain].Completeness() {
				bestPlain = i
			}
			continue
		}
		if bestStamped < 0 || Prefer(rec, &records[bestStamped]) {
			bestStamped = i
		}
	}

	switch {
	case bestStamped < 0:
		return bestPlain
	case bestPlain < 0:
		return bestStamped
	}
	plain, stamped := records[bestPlain].Completeness(), records[bestStamped].Completeness()
	if plain > stamped || (plain == stamped && bestPlain < bestStamped) {
		return bestPlain
	}
	return bestStamped
}

// Deduplicate collapses records that describe the same physical specimen.
// Survivors are returned in the order their group first appeared.
// The input slice is not modified.
func Deduplicate(records []models.Specimen) []models.Specimen {
	groups := make([][]int, 0, len(records))
	byKey := make(map[string]int, len(records))

	for i := range records {
		key, ok := DedupKey(&records[i])
		if !ok {
			groups = append(groups, []int{i})
			continue
		}
		if at, seen := byKey[key]; seen {
			groups[at] = append(groups[at], i)
			continue
		}
		byKey[key] = len(groups)
		groups = append(groups, []int{i})
	}

	out := make([]models.Specimen, 0, len(groups))
	for _, g := range groups {
		out = append(out, records[survivor(records, g)])
	}
	return out
}
