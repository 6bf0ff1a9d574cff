package catalog

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"petrocore/pkg/models"
)

type Handler struct {
	Searcher Searcher
	Logger   *zap.Logger
}

func NewHandler(s Searcher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Searcher: s, Logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.search) // GET /catalog
}

func (h *Handler) search(c *gin.Context) {
	q, ok := ParseQuery(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"items": []models.DisplayItem{}, "error": "kind must be all, rock or mineral"})
		return
	}

	res, err := h.Searcher.Run(c.Request.Context(), q)
	if err != nil {
		h.Logger.Warn("catalog search failed", zap.String("class", Classify(err)), zap.Error(err))
		c.JSON(statusFor(err), gin.H{
			"items":      []models.DisplayItem{},
			"pagination": models.NewPagination(1, 0, 0),
			"error":      Banner(err),
		})
		return
	}

	page, pg := Paginate(res.Items, parseInt(c.Query("page"), 1), parseInt(c.Query("page_size"), DefaultPageSize))
	c.JSON(http.StatusOK, gin.H{
		"items":      page,
		"pagination": pg,
	})
}

// ParseQuery reads a Query from request parameters. Multi-valued facets
// accept both repeated keys (color=Red&color=Grey) and comma lists.
func ParseQuery(c *gin.Context) (Query, bool) {
	scope, ok := ParseScope(c.Query("kind"))
	if !ok {
		return Query{}, false
	}
	category := strings.TrimSpace(c.Query("category"))
	if category == "" {
		category = AllCategories
	}
	return Query{
		Scope:    scope,
		Category: category,
		Text:     c.Query("q"),
		Facets: Facets{
			RockTypes:          multi(c, "rock_type"),
			MineralCategories:  multi(c, "mineral_category"),
			Colors:             multi(c, "color"),
			AssociatedMinerals: multi(c, "associated_mineral"),
		}.Normalize(),
	}, true
}

func multi(c *gin.Context, key string) []string {
	var out []string
	for _, v := range c.QueryArray(key) {
		out = append(out, strings.Split(v, ",")...)
	}
	return out
}

func statusFor(err error) int {
	switch Classify(err) {
	case "unauthorized":
		return http.StatusForbidden
	case "canceled":
		return http.StatusRequestTimeout
	case "transport", "store", "shape":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
