package specimen

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"petrocore/internal/catalog"
	synchub "petrocore/internal/sync"
	"petrocore/pkg/models"
)

type Handler struct {
	Repo   *Repo
	Events synchub.Publisher
	Logger *zap.Logger
}

func NewHandler(repo *Repo, events synchub.Publisher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Repo: repo, Events: events, Logger: logger}
}

// RegisterRoutes mounts the record routes on rg. Writes go through admin.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, admin gin.HandlerFunc) {
	rg.GET("", h.list)                  // GET /specimens?kind=rock
	rg.GET("/categories", h.categories) // GET /specimens/categories?kind=mineral
	rg.GET("/:id", h.getByID)           // GET /specimens/:id

	rg.POST("", admin, h.create)
	rg.PUT("/:id", admin, h.update)
	rg.DELETE("/:id", admin, h.remove)
}

func (h *Handler) list(c *gin.Context) {
	kind, ok := models.ParseKind(c.Query("kind"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be rock or mineral"})
		return
	}
	page := parseInt(c.Query("page"), 1)
	size := parseInt(c.Query("page_size"), catalog.DefaultPageSize)
	if size <= 0 || size > catalog.MaxPageSize {
		size = catalog.DefaultPageSize
	}

	items, pg, err := h.Repo.ListSpecimens(c.Request.Context(), kind, c.Query("category"), page, size)
	if err != nil {
		h.Logger.Error("list specimens", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "pagination": pg})
}

func (h *Handler) categories(c *gin.Context) {
	kind, ok := models.ParseKind(c.Query("kind"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be rock or mineral"})
		return
	}
	cats, err := h.Repo.Categories(c.Request.Context(), kind)
	if err != nil {
		h.Logger.Error("list categories", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "categories failed"})
		return
	}
	if cats == nil {
		cats = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"kind": kind, "categories": cats})
}

func (h *Handler) getByID(c *gin.Context) {
	s, err := h.Repo.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Logger.Error("get specimen", zap.String("id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) create(c *gin.Context) {
	var s models.Specimen
	if err := c.ShouldBindJSON(&s); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Repo.Create(c.Request.Context(), &s); err != nil {
		h.writeErr(c, "create", err)
		return
	}
	h.publish(synchub.EventCreated, &s)
	c.JSON(http.StatusCreated, s)
}

func (h *Handler) update(c *gin.Context) {
	var s models.Specimen
	if err := c.ShouldBindJSON(&s); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	s.ID = c.Param("id")
	if err := h.Repo.Update(c.Request.Context(), &s); err != nil {
		h.writeErr(c, "update", err)
		return
	}

	saved, err := h.Repo.Get(c.Request.Context(), s.ID)
	if err != nil || saved == nil {
		saved = &s
	}
	h.publish(synchub.EventUpdated, saved)
	c.JSON(http.StatusOK, saved)
}

func (h *Handler) remove(c *gin.Context) {
	id := c.Param("id")
	existing, _ := h.Repo.Get(c.Request.Context(), id)
	if err := h.Repo.Delete(c.Request.Context(), id); err != nil {
		h.writeErr(c, "delete", err)
		return
	}
	if existing == nil {
		existing = &models.Specimen{ID: id}
	}
	h.publish(synchub.EventDeleted, existing)
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "id": id})
}

func (h *Handler) writeErr(c *gin.Context, op string, err error) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		h.Logger.Error(op+" specimen", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": op + " failed"})
	}
}

func (h *Handler) publish(typ string, s *models.Specimen) {
	if h.Events != nil {
		h.Events.Publish(synchub.NewEvent(typ, s))
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
