package grpcserver

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"petrocore/internal/catalog"
	"petrocore/pkg/models"
)

// SpecimenGetter loads one record; nil, nil means not found.
type SpecimenGetter interface {
	Get(ctx context.Context, id string) (*models.Specimen, error)
}

type Server struct {
	Searcher  catalog.Searcher
	Specimens SpecimenGetter
	Images    catalog.ImageSource
	Logger    *zap.Logger
}

func NewServer(searcher catalog.Searcher, specimens SpecimenGetter, images catalog.ImageSource, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{Searcher: searcher, Specimens: specimens, Images: images, Logger: logger}
}

func (s *Server) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request required")
	}
	scope, ok := catalog.ParseScope(req.Kind)
	if !ok {
		return nil, status.Error(codes.InvalidArgument, "kind must be all, rock or mineral")
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = catalog.AllCategories
	}

	res, err := s.Searcher.Run(ctx, catalog.Query{
		Scope:    scope,
		Category: category,
		Text:     strings.TrimSpace(req.Q),
		Facets:   req.Facets.Normalize(),
	})
	if err != nil {
		s.Logger.Warn("grpc search failed", zap.String("class", catalog.Classify(err)), zap.Error(err))
		return nil, toStatus(err)
	}

	page, pg := catalog.Paginate(res.Items, req.Page, req.PageSize)
	return &SearchResponse{Items: page, Pagination: pg}, nil
}

func (s *Server) GetSpecimen(ctx context.Context, req *GetSpecimenRequest) (*GetSpecimenResponse, error) {
	if req == nil || strings.TrimSpace(req.ID) == "" {
		return nil, status.Error(codes.InvalidArgument, "id required")
	}
	id := strings.TrimSpace(req.ID)

	item, err := s.Specimens.Get(ctx, id)
	if err != nil {
		s.Logger.Error("grpc get specimen", zap.String("id", id), zap.Error(err))
		return nil, status.Error(codes.Internal, "get failed")
	}
	if item == nil {
		return nil, status.Error(codes.NotFound, "not found")
	}

	resp := &GetSpecimenResponse{Specimen: item, Images: []models.Image{}}
	if s.Images != nil {
		imgs, err := s.Images.ListImagesFor(ctx, id)
		if err != nil {
			s.Logger.Warn("grpc list images", zap.String("id", id), zap.Error(err))
		} else if imgs != nil {
			resp.Images = imgs
		}
	}
	return resp, nil
}

// toStatus maps the pipeline error classes onto gRPC codes; the message is
// the same banner the HTTP API shows.
func toStatus(err error) error {
	var code codes.Code
	switch catalog.Classify(err) {
	case "canceled":
		code = codes.Canceled
		if errors.Is(err, context.DeadlineExceeded) {
			code = codes.DeadlineExceeded
		}
	case "superseded":
		code = codes.Aborted
	case "transport":
		code = codes.Unavailable
	case "unauthorized":
		code = codes.PermissionDenied
	default:
		code = codes.Internal
	}
	return status.Error(code, catalog.Banner(err))
}

// New builds a grpc.Server with the catalog and the standard health service
// registered. Health starts NOT_SERVING until MonitorHealth reports.
func New(svc *Server, logger *zap.Logger, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(loggingInterceptor(logger)))
	gs := grpc.NewServer(opts...)
	RegisterCatalogServer(gs, svc)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(gs, hs)
	return gs, hs
}

// MonitorHealth runs check every interval and publishes the result as the
// catalog's health until ctx ends.
func MonitorHealth(ctx context.Context, hs *health.Server, check func(context.Context) error, interval time.Duration, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	last := healthpb.HealthCheckResponse_UNKNOWN
	probe := func() {
		pctx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		st := healthpb.HealthCheckResponse_SERVING
		if err := check(pctx); err != nil {
			st = healthpb.HealthCheckResponse_NOT_SERVING
			if last != st {
				logger.Warn("store not ready", zap.Error(err))
			}
		}
		if st != last {
			hs.SetServingStatus(ServiceName, st)
			hs.SetServingStatus("", st)
			last = st
		}
	}

	probe()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			probe()
		}
	}
}

func loggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logger.Debug("grpc call",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("took", time.Since(start)),
		)
		return resp, err
	}
}
