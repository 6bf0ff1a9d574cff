package catalog

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"petrocore/pkg/models"
)

// AllCategories selects every category of a kind.
const AllCategories = "ALL"

// DefaultFetchPageSize is large on purpose: de-duplication and filtering
// need the whole set, so the fetcher asks for everything at once.
const DefaultFetchPageSize = 1000

// Store is the read contract the pipeline needs from the backing store.
type Store interface {
	ListSpecimens(ctx context.Context, kind models.Kind, category string, page, pageSize int) ([]models.Specimen, models.Pagination, error)
}

// ImageSource returns the ordered gallery of a specimen (may be empty).
type ImageSource interface {
	ListImagesFor(ctx context.Context, specimenID string) ([]models.Image, error)
}

type Fetcher struct {
	Store    Store
	PageSize int
	Logger   *zap.Logger
}

func NewFetcher(store Store, pageSize int, logger *zap.Logger) *Fetcher {
	if pageSize <= 0 {
		pageSize = DefaultFetchPageSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{Store: store, PageSize: pageSize, Logger: logger}
}

// Fetch returns every record of kind in category (or AllCategories).
// Pages are requested until the reported total is reached or an empty page
// comes back; the returned Pagination describes the combined set.
//
// A store may return fewer rows than asked for (a server-side row cap).
// The next request then shrinks the page size so that its page still starts
// exactly at the number of rows collected so far.
func (f *Fetcher) Fetch(ctx context.Context, kind models.Kind, category string) ([]models.Specimen, models.Pagination, error) {
	category = strings.TrimSpace(category)
	if strings.EqualFold(category, AllCategories) {
		category = ""
	}

	var all []models.Specimen
	total := 0
	size := f.PageSize
	if size <= 0 {
		size = DefaultFetchPageSize
	}
	for {
		page := len(all)/size + 1
		recs, pg, err := f.Store.ListSpecimens(ctx, kind, category, page, size)
		if err != nil {
			f.Logger.Warn("fetch specimens failed",
				zap.String("kind", string(kind)),
				zap.String("category", category),
				zap.Int("page", page),
				zap.Int("page_size", size),
				zap.String("class", Classify(err)),
				zap.Error(err),
			)
			return nil, models.Pagination{}, &PipelineError{Op: "fetch", Kind: string(kind), Err: err}
		}

		all = append(all, recs...)
		total = pg.Total
		if len(recs) == 0 || len(all) >= total {
			break
		}
		if len(recs) < size {
			size = pageSizeAt(len(all), len(recs))
			f.Logger.Debug("store capped page",
				zap.String("kind", string(kind)),
				zap.Int("rows", len(recs)),
				zap.Int("page_size", size),
			)
		}
	}

	if total < len(all) {
		total = len(all)
	}
	f.Logger.Debug("fetched specimens",
		zap.String("kind", string(kind)),
		zap.String("category", category),
		zap.Int("count", len(all)),
	)
	return all, models.NewPagination(1, f.PageSize, total), nil
}

// pageSizeAt returns the largest size no greater than limit that divides
// offset, so page offset/size+1 begins at offset.
func pageSizeAt(offset, limit int) int {
	size := max(limit, 1)
	for offset%size != 0 {
		size--
	}
	return size
}
