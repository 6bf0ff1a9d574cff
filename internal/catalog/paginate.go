package catalog

import "petrocore/pkg/models"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Paginate returns one page of items. page is 1-based; out-of-range values
// are clamped so the caller always gets a valid page description.
func Paginate(items []models.DisplayItem, page, pageSize int) ([]models.DisplayItem, models.Pagination) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	pg := models.NewPagination(page, pageSize, len(items))
	if pg.Page < 1 {
		pg.Page = 1
	}
	if last := max(1, pg.TotalPages); pg.Page > last {
		pg.Page = last
	}
	if len(items) == 0 {
		return []models.DisplayItem{}, pg
	}

	start := (pg.Page - 1) * pageSize
	end := min(start+pageSize, len(items))
	return items[start:end], pg
}
