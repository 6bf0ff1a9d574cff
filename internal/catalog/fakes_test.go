package catalog

import (
	"context"
	"strings"
	"sync"
	"time"

	"petrocore/pkg/models"
)

type listCall struct {
	kind     models.Kind
	category string
	page     int
	pageSize int
}

type fakeStore struct {
	mu      sync.Mutex
	records map[models.Kind][]models.Specimen
	errFor  map[models.Kind]error
	calls   []listCall
	// maxRows caps rows per call like a server-side row limit; 0 means none.
	maxRows int
}

func newFakeStore(records ...models.Specimen) *fakeStore {
	f := &fakeStore{records: map[models.Kind][]models.Specimen{}, errFor: map[models.Kind]error{}}
	for _, r := range records {
		f.records[r.Kind] = append(f.records[r.Kind], r)
	}
	return f
}

func (f *fakeStore) ListSpecimens(ctx context.Context, kind models.Kind, category string, page, pageSize int) ([]models.Specimen, models.Pagination, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, listCall{kind: kind, category: category, page: page, pageSize: pageSize})

	if err := ctx.Err(); err != nil {
		return nil, models.Pagination{}, err
	}
	if err := f.errFor[kind]; err != nil {
		return nil, models.Pagination{}, err
	}

	var matched []models.Specimen
	for _, r := range f.records[kind] {
		if category == "" || strings.EqualFold(r.Category, category) {
			matched = append(matched, r)
		}
	}
	start := (page - 1) * pageSize
	if start > len(matched) {
		start = len(matched)
	}
	limit := pageSize
	if f.maxRows > 0 && f.maxRows < limit {
		limit = f.maxRows
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], models.NewPagination(page, pageSize, len(matched)), nil
}

type fakeImages struct {
	byID  map[string][]models.Image
	fail  map[string]error
	delay time.Duration
}

func (f *fakeImages) ListImagesFor(ctx context.Context, id string) ([]models.Image, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.fail[id]; err != nil {
		return nil, err
	}
	return f.byID[id], nil
}

func ts(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func rock(id, code, name, category string) models.Specimen {
	return models.Specimen{ID: id, Kind: models.KindRock, Code: code, Name: name, Category: category}
}

func mineral(id, code, name, category string) models.Specimen {
	return models.Specimen{ID: id, Kind: models.KindMineral, Code: code, Name: name, Category: category}
}

func ids[T interface{ models.Specimen | models.DisplayItem }](items []T) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		switch v := any(it).(type) {
		case models.Specimen:
			out = append(out, v.ID)
		case models.DisplayItem:
			out = append(out, v.ID)
		}
	}
	return out
}
