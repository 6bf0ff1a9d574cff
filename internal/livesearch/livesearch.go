// Package livesearch serves search-as-you-type over a websocket. Each
// connection owns one catalog.Session, so a slow search can never overwrite
// the result of a newer one.
package livesearch

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"petrocore/internal/catalog"
	"petrocore/internal/metrics"
	"petrocore/pkg/models"
)

const writeWait = 5 * time.Second

// Request is one client message. Seq is echoed back so the client can match
// replies; replies only ever carry the newest seq the server searched for.
type Request struct {
	Seq      uint64         `json:"seq"`
	Text     string         `json:"q"`
	Kind     string         `json:"kind"`
	Category string         `json:"category"`
	Facets   catalog.Facets `json:"facets"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

type Response struct {
	Seq        uint64               `json:"seq"`
	Items      []models.DisplayItem `json:"items"`
	Pagination models.Pagination    `json:"pagination"`
	Error      string               `json:"error,omitempty"`
}

func (r Request) query() (catalog.Query, bool) {
	scope, ok := catalog.ParseScope(r.Kind)
	if !ok {
		return catalog.Query{}, false
	}
	category := r.Category
	if category == "" {
		category = catalog.AllCategories
	}
	return catalog.Query{Scope: scope, Category: category, Text: r.Text, Facets: r.Facets.Normalize()}, true
}

type Handler struct {
	Searcher catalog.Searcher
	Debounce time.Duration
	Metrics  *metrics.Pipeline
	Logger   *zap.Logger

	upgrader websocket.Upgrader
}

func NewHandler(s catalog.Searcher, debounce time.Duration, m *metrics.Pipeline, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Searcher: s,
		Debounce: debounce,
		Metrics:  m,
		Logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/live", h.serve) // GET /catalog/live (websocket)
}

func (h *Handler) serve(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Debug("live search upgrade failed", zap.Error(err))
		return
	}
	h.Logger.Debug("live search client connected")

	conn := newConn(ws, h)
	conn.readLoop(c.Request.Context())
	conn.shutdown()
	h.Logger.Debug("live search client disconnected")
}

type conn struct {
	ws       *websocket.Conn
	h        *Handler
	session  *catalog.Session
	debounce *catalog.Debouncer

	out        chan Response
	writerDone chan struct{}
	mu         sync.Mutex
	closed     bool
	searches   sync.WaitGroup
}

func newConn(ws *websocket.Conn, h *Handler) *conn {
	c := &conn{
		ws:         ws,
		h:          h,
		session:    catalog.NewSession(h.Searcher, h.Metrics),
		debounce:   catalog.NewDebouncer(h.Debounce),
		out:        make(chan Response, 8),
		writerDone: make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

func (c *conn) readLoop(ctx context.Context) {
	for {
		var req Request
		if err := c.ws.ReadJSON(&req); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				c.h.Logger.Debug("live search read", zap.Error(err))
			}
			return
		}

		q, ok := req.query()
		if !ok {
			c.out <- Response{Seq: req.Seq, Items: []models.DisplayItem{}, Error: "kind must be all, rock or mineral"}
			continue
		}
		c.debounce.Trigger(func() { c.search(ctx, req, q) })
	}
}

// search runs on the debouncer's goroutine.
func (c *conn) search(ctx context.Context, req Request, q catalog.Query) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.searches.Add(1)
	c.mu.Unlock()
	defer c.searches.Done()

	res, _, err := c.session.Search(ctx, q)
	switch {
	case errors.Is(err, catalog.ErrSuperseded):
		return
	case err != nil:
		if ctx.Err() != nil {
			return
		}
		c.h.Logger.Warn("live search failed", zap.Uint64("seq", req.Seq), zap.String("class", catalog.Classify(err)), zap.Error(err))
		c.out <- Response{Seq: req.Seq, Items: []models.DisplayItem{}, Pagination: models.NewPagination(1, 0, 0), Error: catalog.Banner(err)}
		return
	}

	page, pg := catalog.Paginate(res.Items, req.Page, req.PageSize)
	c.out <- Response{Seq: req.Seq, Items: page, Pagination: pg}
}

func (c *conn) writeLoop() {
	defer close(c.writerDone)
	failed := false
	for resp := range c.out {
		if failed {
			continue
		}
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteJSON(resp); err != nil {
			c.h.Logger.Debug("live search write", zap.Error(err))
			failed = true
			_ = c.ws.Close()
		}
	}
}

// shutdown stops pending and running searches, then drains the writer.
func (c *conn) shutdown() {
	c.debounce.Stop()
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.session.Close()
	c.searches.Wait()

	close(c.out)
	<-c.writerDone
	_ = c.ws.Close()
}
