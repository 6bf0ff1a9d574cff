// Package app assembles the catalog stack from configuration. The binaries
// and the integration tests share it.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"petrocore/internal/auth"
	"petrocore/internal/baas"
	"petrocore/internal/catalog"
	"petrocore/internal/images"
	"petrocore/internal/importer"
	"petrocore/internal/livesearch"
	"petrocore/internal/metrics"
	"petrocore/internal/specimen"
	synchub "petrocore/internal/sync"
	"petrocore/pkg/database"
	"petrocore/pkg/logging"
	"petrocore/pkg/utils"
)

type App struct {
	Config utils.Config
	Logger *zap.Logger
	DB     *sql.DB

	Specimens *specimen.Repo
	Images    *images.Repo
	Blobs     images.BlobStore
	Users     *auth.Repo
	Tokens    auth.TokenService

	// Store and ImageSource feed the pipeline: the local repos, or the
	// hosted REST store when Store.Driver is "rest".
	Store       catalog.Store
	ImageSource catalog.ImageSource
	Remote      *baas.Client

	Registry *prometheus.Registry
	Metrics  *metrics.Pipeline
	Pipeline *catalog.Pipeline
	Hub      *synchub.Hub
	Importer *importer.Importer
}

// Build opens the database and wires every component. Close releases it.
func Build(ctx context.Context, cfg utils.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dbCfg := database.DefaultConfig()
	if cfg.Store.DBPath != "" {
		dbCfg.Path = cfg.Store.DBPath
	}
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	a := &App{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Specimens: specimen.NewRepo(db),
		Images:    images.NewRepo(db),
		Users:     auth.NewRepo(db),
		Tokens: auth.TokenService{
			Secret:   []byte(cfg.Auth.JWTSecret),
			Issuer:   cfg.Auth.JWTIssuer,
			Duration: cfg.Auth.JWTDuration,
		},
		Registry: prometheus.NewRegistry(),
		Hub:      synchub.NewHub(logger.Named("sync")),
	}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = metrics.NewPipeline(a.Registry)

	if a.Blobs, err = newBlobStore(ctx, cfg.Blob); err != nil {
		_ = db.Close()
		return nil, err
	}

	a.Store, a.ImageSource = a.Specimens, a.Images
	if cfg.Store.Driver == "rest" {
		a.Remote = baas.NewClient(cfg.Store.RESTURL, cfg.Store.RESTKey, logger.Named("rest"))
		a.Store, a.ImageSource = a.Remote, a.Remote
	}

	tr := catalog.NewTransformer(a.ImageSource, logger.Named("transform"))
	tr.DefaultImage = cfg.Catalog.DefaultImage
	tr.StorageDomains = cfg.Catalog.StorageDomains
	tr.Concurrency = cfg.Catalog.ImageConcurrency
	tr.Metrics = a.Metrics
	a.Pipeline = catalog.NewPipeline(
		catalog.NewFetcher(a.Store, cfg.Catalog.FetchPageSize, logger.Named("fetch")),
		tr, logger.Named("pipeline"), a.Metrics)

	a.Importer = importer.New(a.Specimens, a.Hub, logger.Named("import"))

	logger.Info("catalog stack ready",
		zap.String("db", dbCfg.Path),
		zap.String("store", cfg.Store.Driver),
		zap.String("blob", a.Blobs.Driver()),
	)
	return a, nil
}

func newBlobStore(ctx context.Context, cfg utils.BlobConfig) (images.BlobStore, error) {
	switch cfg.Driver {
	case "s3":
		return images.NewS3Store(ctx, images.S3Config{
			Bucket:          cfg.Bucket,
			Region:          cfg.Region,
			Endpoint:        cfg.Endpoint,
			PathStyle:       cfg.PathStyle,
			AccessKeyID:     cfg.AccessKey,
			SecretAccessKey: cfg.SecretKey,
			PublicURL:       cfg.PublicURL,
		})
	default:
		return images.NewLocalStore(cfg.LocalDir, cfg.PublicURL)
	}
}

// Ready reports whether the catalog can be served: the local database
// answers and, for the rest driver, the hosted store accepts our key.
func (a *App) Ready(ctx context.Context) error {
	if err := a.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if a.Remote != nil {
		if err := a.Remote.Ping(ctx); err != nil {
			return fmt.Errorf("rest store: %w", err)
		}
	}
	return nil
}

func (a *App) Close() error {
	return a.DB.Close()
}

// Router mounts every HTTP route.
func (a *App) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.Gin(a.Logger.Named("http")))
	_ = r.SetTrustedProxies([]string{"127.0.0.1"})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": a.Config.Store.Driver})
	})
	r.GET("/ready", a.ready)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})))
	r.GET("/ws", synchub.WSHandler(a.Hub))
	r.GET("/feed/recent", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"events": a.Hub.Recent()})
	})

	if local, ok := a.Blobs.(*images.LocalStore); ok && strings.HasPrefix(local.PublicURL, "/") {
		r.Static(local.PublicURL, local.Root)
	}

	auth.NewHandler(a.Users, a.Tokens, a.Config.Auth.AllowRegister, a.Logger.Named("auth")).
		RegisterRoutes(r.Group("/auth"))
	admin := auth.AdminOnly(a.Tokens, a.Users)

	cat := r.Group("/catalog")
	catalog.NewHandler(a.Pipeline, a.Logger.Named("catalog")).RegisterRoutes(cat)
	livesearch.NewHandler(a.Pipeline, a.Config.Catalog.Debounce, a.Metrics, a.Logger.Named("live")).RegisterRoutes(cat)

	specimens := r.Group("/specimens")
	specimen.NewHandler(a.Specimens, a.Hub, a.Logger.Named("specimens")).RegisterRoutes(specimens, admin)
	importer.NewHandler(a.Importer).RegisterRoutes(specimens, admin)

	images.NewHandler(a.Images, a.Blobs, a.Specimens, a.Hub, a.Logger.Named("images")).
		RegisterRoutes(&r.RouterGroup, admin)
	return r
}

func (a *App) ready(c *gin.Context) {
	stats := a.Hub.Stats()
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := a.Ready(ctx); err != nil {
		status := "not_ready"
		if errors.Is(err, catalog.ErrUnauthorized) {
			status = "unauthorized"
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":      status,
			"error":       err.Error(),
			"tcp_clients": stats.TCPClients,
			"ws_clients":  stats.WSClients,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "ready",
		"tcp_clients": stats.TCPClients,
		"ws_clients":  stats.WSClients,
	})
}
