package baas

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// Fixture is the JSON document a Mirror serves, keyed by table name
// ("rocks", "minerals", "specimen_images").
type Fixture map[string][]Row

func LoadFixture(path string) (Fixture, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("fixture invalid JSON: %w", err)
	}
	return f, nil
}

// Mirror serves a Fixture with the subset of PostgREST behaviour Client
// relies on: eq. column filters, order=<col>.asc|desc, Range
// pagination with Content-Range, and apikey checks.
type Mirror struct {
	Data   Fixture
	APIKey string // empty accepts any caller
}

func (m *Mirror) RegisterRoutes(r gin.IRouter) {
	r.GET("/rest/v1/:table", m.table)
}

func (m *Mirror) table(c *gin.Context) {
	if m.APIKey != "" && c.GetHeader("apikey") != m.APIKey {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid API key", "code": "401"})
		return
	}
	rows, ok := m.Data[c.Param("table")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"message": fmt.Sprintf("relation \"public.%s\" does not exist", c.Param("table")),
			"code":    "42P01",
		})
		return
	}

	matched := make([]Row, 0, len(rows))
	for _, r := range rows {
		if matchesFilters(r, c.Request.URL.Query()) {
			matched = append(matched, r)
		}
	}
	if order := c.Query("order"); order != "" {
		sortRows(matched, order)
	}

	total := len(matched)
	from, to, ranged := parseRange(c.GetHeader("Range"))
	if !ranged {
		c.Header("Content-Range", fmt.Sprintf("0-%d/%d", max(total-1, 0), total))
		c.JSON(http.StatusOK, matched)
		return
	}
	if from >= total && total > 0 {
		c.Header("Content-Range", fmt.Sprintf("*/%d", total))
		c.JSON(http.StatusRequestedRangeNotSatisfiable, gin.H{"message": "Requested range not satisfiable", "code": "PGRST103"})
		return
	}
	if to >= total {
		to = total - 1
	}
	page := []Row{}
	if from <= to {
		page = matched[from : to+1]
	}
	if len(page) == 0 {
		c.Header("Content-Range", fmt.Sprintf("*/%d", total))
	} else {
		c.Header("Content-Range", fmt.Sprintf("%d-%d/%d", from, to, total))
	}
	status := http.StatusOK
	if len(page) < total {
		status = http.StatusPartialContent
	}
	c.JSON(status, page)
}

var reserved = map[string]bool{"select": true, "order": true, "limit": true, "offset": true}

func matchesFilters(r Row, q map[string][]string) bool {
	for col, vals := range q {
		if reserved[col] {
			continue
		}
		for _, v := range vals {
			got, _ := scalar(r[col])
			if want, ok := strings.CutPrefix(v, "eq."); ok && got != want {
				return false
			}
		}
	}
	return true
}

func sortRows(rows []Row, order string) {
	col, dir, _ := strings.Cut(order, ".")
	desc := dir == "desc"
	sort.SliceStable(rows, func(i, j int) bool {
		a, _ := scalar(rows[i][col])
		b, _ := scalar(rows[j][col])
		if an, err := strconv.ParseFloat(a, 64); err == nil {
			if bn, err := strconv.ParseFloat(b, 64); err == nil {
				if desc {
					return an > bn
				}
				return an < bn
			}
		}
		if desc {
			return a > b
		}
		return a < b
	})
}

func parseRange(h string) (from, to int, ok bool) {
	a, b, found := strings.Cut(strings.TrimSpace(h), "-")
	if !found {
		return 0, 0, false
	}
	from, err1 := strconv.Atoi(a)
	to, err2 := strconv.Atoi(b)
	if err1 != nil || err2 != nil || from < 0 || to < from {
		return 0, 0, false
	}
	return from, to, true
}
