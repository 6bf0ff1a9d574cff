package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"petrocore/internal/baas"
	"petrocore/pkg/logging"
)

// baas-mirror serves a JSON fixture in the hosted store's REST shape so the
// api-server can run with PETRO_STORE_DRIVER=rest against local data.
func main() {
	addr := flag.String("addr", ":9000", "listen address")
	fixturePath := flag.String("fixture", "data/fixture.json", "fixture file: {\"rocks\":[...],\"minerals\":[...],\"specimen_images\":[...]}")
	apiKey := flag.String("key", os.Getenv("PETRO_REST_KEY"), "required apikey header (empty accepts any)")
	dev := flag.Bool("dev", true, "console logging")
	flag.Parse()

	logger, err := logging.New("info", *dev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	data, err := baas.LoadFixture(*fixturePath)
	if err != nil {
		logger.Fatal("load fixture", zap.String("path", *fixturePath), zap.Error(err))
	}
	for table, rows := range data {
		logger.Info("table loaded", zap.String("table", table), zap.Int("rows", len(rows)))
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), logging.Gin(logger))
	(&baas.Mirror{Data: data, APIKey: *apiKey}).RegisterRoutes(r)

	logger.Info("baas mirror listening", zap.String("addr", *addr))
	if err := r.Run(*addr); err != nil {
		logger.Fatal("mirror stopped", zap.Error(err))
	}
}
