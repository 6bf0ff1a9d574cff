package catalog

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"petrocore/pkg/models"
)

func displayItems(n int) []models.DisplayItem {
	out := make([]models.DisplayItem, n)
	for i := range out {
		out[i] = models.DisplayItem{ID: fmt.Sprint(i)}
	}
	return out
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name          string
		n, page, size int
		wantIDs       []string
		wantPage      int
		wantPages     int
	}{
		{"first page", 5, 1, 2, []string{"0", "1"}, 1, 3},
		{"last short page", 5, 3, 2, []string{"4"}, 3, 3},
		{"page past end clamps", 5, 9, 2, []string{"4"}, 3, 3},
		{"page below one clamps", 5, 0, 2, []string{"0", "1"}, 1, 3},
		{"default size", 3, 1, 0, []string{"0", "1", "2"}, 1, 1},
		{"empty", 0, 1, 10, []string{}, 1, 0},
		{"empty with huge page", 0, math.MaxInt64 / 50, 100, []string{}, 1, 0},
		{"huge page clamps to last", 5, math.MaxInt, 2, []string{"4"}, 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, pg := Paginate(displayItems(tt.n), tt.page, tt.size)
			assert.Equal(t, tt.wantIDs, ids(got))
			assert.Equal(t, tt.wantPage, pg.Page)
			assert.Equal(t, tt.wantPages, pg.TotalPages)
			assert.Equal(t, tt.n, pg.Total)
		})
	}
}

func TestPaginate_MaxPageSize(t *testing.T) {
	got, pg := Paginate(displayItems(250), 1, 1000)
	assert.Len(t, got, MaxPageSize)
	assert.Equal(t, MaxPageSize, pg.PageSize)
}
