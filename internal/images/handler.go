package images

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	synchub "petrocore/internal/sync"
	"petrocore/pkg/models"
)

// MaxUploadBytes bounds a single image upload.
const MaxUploadBytes = 10 << 20

// SpecimenLookup is the part of the specimen store uploads need.
type SpecimenLookup interface {
	Get(ctx context.Context, id string) (*models.Specimen, error)
}

type Handler struct {
	Repo      *Repo
	Blobs     BlobStore
	Specimens SpecimenLookup
	Events    synchub.Publisher
	Logger    *zap.Logger
}

func NewHandler(repo *Repo, blobs BlobStore, specimens SpecimenLookup, events synchub.Publisher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Repo: repo, Blobs: blobs, Specimens: specimens, Events: events, Logger: logger}
}

// RegisterRoutes mounts gallery routes on the root group rg.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, admin gin.HandlerFunc) {
	rg.GET("/specimens/:id/images", h.list)
	rg.POST("/specimens/:id/images", admin, h.upload)
	rg.DELETE("/images/:id", admin, h.remove)
}

func (h *Handler) list(c *gin.Context) {
	imgs, err := h.Repo.ListImagesFor(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Logger.Error("list images", zap.String("specimen_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": imgs})
}

func (h *Handler) upload(c *gin.Context) {
	ctx := c.Request.Context()
	s, err := h.Specimens.Get(ctx, c.Param("id"))
	if err != nil {
		h.Logger.Error("lookup specimen", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "specimen not found"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' required"})
		return
	}
	contentType := fh.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "file must be an image"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read upload"})
		return
	}
	defer f.Close()

	img := models.Image{ID: uuid.NewString(), SpecimenID: s.ID, Caption: strings.TrimSpace(c.PostForm("caption"))}
	key := objectKey(s.ID, img.ID, fh.Filename)

	img.URL, err = h.Blobs.Put(ctx, key, f, contentType)
	if err != nil {
		h.Logger.Error("store blob", zap.String("driver", h.Blobs.Driver()), zap.String("key", key), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "upload failed"})
		return
	}
	if err := h.Repo.Add(ctx, &img, key); err != nil {
		h.Logger.Error("save image", zap.Error(err))
		_ = h.Blobs.Delete(ctx, key)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}

	h.publish(s)
	c.JSON(http.StatusCreated, img)
}

func (h *Handler) remove(c *gin.Context) {
	ctx := c.Request.Context()
	img, key, err := h.Repo.Delete(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		h.Logger.Error("delete image", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if key != "" {
		if err := h.Blobs.Delete(ctx, key); err != nil {
			// the row is gone either way; the blob is left orphaned
			h.Logger.Warn("delete blob", zap.String("key", key), zap.Error(err))
		}
	}
	if s, _ := h.Specimens.Get(ctx, img.SpecimenID); s != nil {
		h.publish(s)
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "id": img.ID})
}

func (h *Handler) publish(s *models.Specimen) {
	if h.Events != nil {
		h.Events.Publish(synchub.NewEvent(synchub.EventUpdated, s))
	}
}
