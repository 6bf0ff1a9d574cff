package importer

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"petrocore/pkg/models"
)

// headerAliases maps normalized spreadsheet headers onto specimen fields.
// Headers that already equal a field name need no entry.
var headerAliases = map[string]string{
	"rock_code":          "code",
	"mineral_code":       "code",
	"specimen_code":      "code",
	"sample_code":        "code",
	"rock_name":          "name",
	"mineral_name":       "name",
	"specimen_name":      "name",
	"rock_type":          "type",
	"mineral_type":       "type",
	"image":              "image_url",
	"photo":              "image_url",
	"lat":                "latitude",
	"lng":                "longitude",
	"lon":                "longitude",
	"long":               "longitude",
	"colour":             "color",
	"composition":        "mineral_composition",
	"environment":        "depositional_environment",
	"associated_mineral": "associated_minerals",
	"hcl_reaction":       "reaction_to_hcl",
	"reaction_to_hci":    "reaction_to_hcl",
	"formula":            "chemical_formula",
	"group":              "mineral_group",
	"sg":                 "specific_gravity",
	"magnetic":           "magnetism",
	"location":           "locality",
}

var knownFields = func() map[string]bool {
	m := map[string]bool{"id": true, "kind": true, "created_at": true, "updated_at": true}
	for _, f := range models.FieldNames {
		m[f] = true
	}
	return m
}()

// normalizeHeader turns "Rock Code", "rock-code" and "ROCK_CODE" into rock_code.
func normalizeHeader(h string) string {
	h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(h) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// fieldFor resolves a header to a field name, or "" when unknown.
func fieldFor(header string) string {
	h := normalizeHeader(header)
	if alias, ok := headerAliases[h]; ok {
		return alias
	}
	if knownFields[h] {
		return h
	}
	return ""
}

// RowError reports a spreadsheet row that could not be imported. Row is the
// 1-based sheet row, so the header is row 1.
type RowError struct {
	Row int    `json:"row"`
	Msg string `json:"message"`
}

func (e RowError) Error() string { return fmt.Sprintf("row %d: %s", e.Row, e.Msg) }

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02", "01/02/2006"}

// ParseRows maps sheet rows to specimens. defaultKind applies to rows without
// a kind column; it may be empty, in which case such rows are errors.
// Columns the mapping does not know are listed in ignored.
func ParseRows(rows [][]string, defaultKind models.Kind) (recs []models.Specimen, rowErrs []RowError, ignored []string) {
	if len(rows) == 0 {
		return nil, nil, nil
	}
	fields := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		fields[i] = fieldFor(h)
		if fields[i] == "" && strings.TrimSpace(h) != "" {
			ignored = append(ignored, strings.TrimSpace(h))
		}
	}

	for i, row := range rows[1:] {
		rowNum := i + 2
		if blank(row) {
			continue
		}

		s := models.Specimen{Kind: defaultKind}
		var bad string
		for col, raw := range row {
			if col >= len(fields) || fields[col] == "" {
				continue
			}
			v := strings.TrimSpace(raw)
			if v == "" {
				continue
			}
			switch fields[col] {
			case "kind":
				k, ok := models.ParseKind(v)
				if !ok {
					bad = fmt.Sprintf("unknown kind %q", v)
				}
				s.Kind = k
			case "created_at", "updated_at":
				t, ok := parseDate(v)
				if !ok {
					bad = fmt.Sprintf("cannot parse %s %q", fields[col], v)
					continue
				}
				if fields[col] == "created_at" {
					s.CreatedAt = &t
				} else {
					s.UpdatedAt = &t
				}
			default:
				s.SetField(fields[col], v)
			}
		}

		switch {
		case bad != "":
			rowErrs = append(rowErrs, RowError{Row: rowNum, Msg: bad})
		case s.Kind == "":
			rowErrs = append(rowErrs, RowError{Row: rowNum, Msg: "kind missing (add a kind column or choose one)"})
		case s.Name == "" && s.Code == "":
			rowErrs = append(rowErrs, RowError{Row: rowNum, Msg: "name or code is required"})
		default:
			recs = append(recs, s)
		}
	}
	return recs, rowErrs, ignored
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
