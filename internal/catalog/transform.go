package catalog

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"petrocore/internal/metrics"
	"petrocore/pkg/models"
)

// DefaultImagePath is served when a specimen has no usable image.
const DefaultImagePath = "/images/default-specimen.png"

// DefaultStorageDomains are hosted-storage hosts whose URLs are accepted
// even when they are not fully qualified.
var DefaultStorageDomains = []string{"supabase.co", "amazonaws.com"}

type Transformer struct {
	Images         ImageSource // optional
	DefaultImage   string
	StorageDomains []string
	Concurrency    int
	Logger         *zap.Logger
	Metrics        *metrics.Pipeline
}

func NewTransformer(images ImageSource, logger *zap.Logger) *Transformer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transformer{
		Images:         images,
		DefaultImage:   DefaultImagePath,
		StorageDomains: DefaultStorageDomains,
		Concurrency:    8,
		Logger:         logger,
	}
}

// ValidImageURL accepts site-absolute paths, URLs on a known storage domain
// and absolute URLs with a scheme and host.
func ValidImageURL(raw string, storageDomains []string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	if strings.HasPrefix(raw, "/") {
		return true
	}
	for _, d := range storageDomains {
		if d != "" && strings.Contains(raw, d) {
			return true
		}
	}
	u, err := url.Parse(raw)
	return err == nil && u.IsAbs() && u.Host != ""
}

// Describe builds the short templated description of a specimen.
func Describe(s *models.Specimen) string {
	category := strings.TrimSpace(s.Category)
	if category == "" {
		category = "Uncategorized"
	}
	where := strings.TrimSpace(s.Locality)
	if s.Kind == models.KindMineral {
		if occ := strings.TrimSpace(s.Occurrence); occ != "" {
			where = occ
		}
	}
	if where == "" {
		where = "n/a"
	}
	return category + " " + string(kindOrRock(s.Kind)) + " from " + where
}

// DetailPath is the navigation path of a specimen, or "" when it has no id.
func DetailPath(kind models.Kind, id string) string {
	if id == "" {
		return ""
	}
	kind = kindOrRock(kind)
	return "/" + kind.Plural() + "/" + string(kind) + "/" + url.PathEscape(id)
}

// RockType is the type shown for a rock: its own type, or the category when
// type is blank, with raw "Ore" displayed as "Ore Samples".
func RockType(s *models.Specimen) string {
	t := strings.TrimSpace(s.Type)
	if t == "" {
		t = strings.TrimSpace(s.Category)
	}
	if strings.EqualFold(t, "Ore") {
		return OreSamples
	}
	return t
}

// Transform maps one specimen with an already resolved image URL.
// It never fails; an invalid image falls back to the default image.
func (t *Transformer) Transform(s *models.Specimen, galleryURL string) models.DisplayItem {
	item := models.DisplayItem{
		ID:          s.ID,
		Title:       s.Name,
		Description: Describe(s),
		ImageURL:    t.pickImage(galleryURL, s.ImageURL),
		Path:        DetailPath(s.Kind, s.ID),
		Category:    s.Category,
		Kind:        kindOrRock(s.Kind),
		Code:        s.Code,
		Color:       s.Color,
		Locality:    s.Locality,
		Coordinates: s.Coordinates,
		Latitude:    s.Latitude,
		Longitude:   s.Longitude,
	}
	if item.Kind == models.KindRock {
		item.Texture = s.Texture
		item.Foliation = s.Foliation
		item.RockType = RockType(s)
	}
	return item
}

// TransformAll maps every record, looking up gallery images concurrently.
// A failed lookup only degrades that record's image. The output has one
// item per input record, in input order. Only context cancellation fails.
func (t *Transformer) TransformAll(ctx context.Context, records []models.Specimen) ([]models.DisplayItem, error) {
	items := make([]models.DisplayItem, len(records))

	g, gctx := errgroup.WithContext(ctx)
	if t.Concurrency > 0 {
		g.SetLimit(t.Concurrency)
	}
	for i := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			items[i] = t.Transform(&records[i], t.galleryImage(gctx, &records[i]))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, &PipelineError{Op: "transform", Kind: kindLabel(records), Err: err}
	}
	return items, nil
}

func (t *Transformer) galleryImage(ctx context.Context, s *models.Specimen) string {
	if t.Images == nil || s.ID == "" {
		return ""
	}
	imgs, err := t.Images.ListImagesFor(ctx, s.ID)
	if err != nil {
		if ctx.Err() == nil {
			t.Logger.Warn("image lookup failed, using fallback",
				zap.String("specimen_id", s.ID),
				zap.String("class", Classify(err)),
				zap.Error(err),
			)
			t.Metrics.ImageFallback()
		}
		return ""
	}
	for _, img := range imgs {
		if ValidImageURL(img.URL, t.StorageDomains) {
			return strings.TrimSpace(img.URL)
		}
	}
	return ""
}

func (t *Transformer) pickImage(candidates ...string) string {
	for _, c := range candidates {
		if ValidImageURL(c, t.StorageDomains) {
			return strings.TrimSpace(c)
		}
	}
	if t.DefaultImage != "" {
		return t.DefaultImage
	}
	return DefaultImagePath
}

func kindOrRock(k models.Kind) models.Kind {
	if k == models.KindMineral {
		return k
	}
	return models.KindRock
}

func kindLabel(records []models.Specimen) string {
	if len(records) == 0 {
		return ""
	}
	return string(records[0].Kind)
}
