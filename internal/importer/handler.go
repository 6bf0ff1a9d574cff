package importer

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"petrocore/pkg/models"
)

// MaxImportBytes bounds an uploaded spreadsheet.
const MaxImportBytes = 32 << 20

type Handler struct {
	Importer *Importer
}

func NewHandler(im *Importer) *Handler {
	return &Handler{Importer: im}
}

// RegisterRoutes mounts POST /specimens/import on the specimens group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, admin gin.HandlerFunc) {
	rg.POST("/import", admin, h.importFile)
}

func (h *Handler) importFile(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxImportBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' required"})
		return
	}
	format, err := FormatOf(fh.Filename)
	if err != nil {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
		return
	}

	var kind models.Kind
	if v := c.PostForm("kind"); v != "" {
		k, ok := models.ParseKind(v)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be rock or mineral"})
			return
		}
		kind = k
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read upload"})
		return
	}
	defer f.Close()

	rep, err := h.Importer.ImportFile(c.Request.Context(), f, format, kind)
	if err != nil {
		h.Importer.Logger.Error("import failed", zap.String("file", fh.Filename), zap.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, ErrUnsupportedFormat) || rep.Rows == 0 {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error(), "report": rep})
		return
	}
	c.JSON(http.StatusOK, rep)
}
