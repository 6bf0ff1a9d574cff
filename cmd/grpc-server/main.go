package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"petrocore/internal/app"
	"petrocore/internal/grpcserver"
	"petrocore/pkg/logging"
	"petrocore/pkg/utils"
)

func main() {
	cfg, err := utils.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("grpc server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg utils.Config, logger *zap.Logger) error {
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	listener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	svc := grpcserver.NewServer(a.Pipeline, a.Specimens, a.ImageSource, logger.Named("grpc"))
	gs, hs := grpcserver.New(svc, logger.Named("grpc"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		grpcserver.MonitorHealth(gctx, hs, a.Ready, 15*time.Second, logger.Named("health"))
		return nil
	})
	g.Go(func() error {
		logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		return gs.Serve(listener)
	})
	g.Go(func() error {
		<-gctx.Done()
		hs.Shutdown()
		gs.GracefulStop()
		return nil
	})
	return g.Wait()
}
