package baas

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"petrocore/pkg/models"
)

// Row is one record as PostgREST returns it: a flat JSON object whose
// columns are the specimen fields. Value types vary by table definition.
type Row map[string]any

// columnAliases maps hosted column names onto specimen field names.
var columnAliases = map[string]string{
	"rock_code":     "code",
	"mineral_code":  "code",
	"specimen_code": "code",
	"rock_name":     "name",
	"mineral_name":  "name",
	"rock_type":     "type",
	"mineral_type":  "type",
	"image":         "image_url",
	"lat":           "latitude",
	"lng":           "longitude",
	"lon":           "longitude",
}

// timeLayouts are the timestamp renderings PostgREST produces for
// timestamptz and timestamp columns.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05",
}

// Specimen converts a row. Unknown columns are ignored; a row without an id
// is a shape error.
func (r Row) Specimen(kind models.Kind) (models.Specimen, error) {
	s := models.Specimen{Kind: kind}
	for col, raw := range r {
		v, ok := scalar(raw)
		if !ok {
			continue
		}
		name := strings.ToLower(col)
		if alias, ok := columnAliases[name]; ok {
			name = alias
		}
		switch name {
		case "kind":
			if k, ok := models.ParseKind(v); ok {
				s.Kind = k
			}
		case "created_at":
			s.CreatedAt = parseTime(v)
		case "updated_at":
			s.UpdatedAt = parseTime(v)
		default:
			s.SetField(name, v)
		}
	}
	if s.ID == "" {
		return s, fmt.Errorf("row without id")
	}
	return s, nil
}

// Image converts a specimen_images row.
func (r Row) Image() (models.Image, error) {
	var img models.Image
	img.ID, _ = scalar(r["id"])
	img.SpecimenID, _ = scalar(r["specimen_id"])
	img.URL, _ = scalar(r["url"])
	if img.URL == "" {
		img.URL, _ = scalar(r["image_url"])
	}
	img.Caption, _ = scalar(r["caption"])
	if p, ok := scalar(r["position"]); ok {
		img.Position, _ = strconv.Atoi(p)
	}
	if c, ok := scalar(r["created_at"]); ok {
		if t := parseTime(c); t != nil {
			img.CreatedAt = *t
		}
	}
	if img.ID == "" {
		return img, fmt.Errorf("image row without id")
	}
	return img, nil
}

// scalar renders a JSON scalar as text. Nulls, objects and arrays are skipped.
func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func parseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
