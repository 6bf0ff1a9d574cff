package catalog

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"petrocore/internal/metrics"
	"petrocore/pkg/models"
)

// Scope selects which kinds a query covers.
type Scope string

const (
	ScopeAll      Scope = "all"
	ScopeRocks    Scope = "rock"
	ScopeMinerals Scope = "mineral"
)

// ParseScope accepts "all", "", or any spelling models.ParseKind accepts.
func ParseScope(s string) (Scope, bool) {
	if v := strings.ToLower(strings.TrimSpace(s)); v == "" || v == "all" {
		return ScopeAll, true
	}
	k, ok := models.ParseKind(s)
	if !ok {
		return "", false
	}
	return Scope(k), true
}

// Query is everything one catalog search depends on. The pipeline keeps no
// state between queries.
type Query struct {
	Scope    Scope  `json:"kind"`
	Category string `json:"category,omitempty"` // AllCategories or "" for every category
	Text     string `json:"q,omitempty"`
	Facets   Facets `json:"facets"`
}

// Result is the ordered display list and the pagination of the fetched set.
type Result struct {
	Items      []models.DisplayItem `json:"items"`
	Pagination models.Pagination    `json:"pagination"`
}

// Pipeline runs Fetcher → Deduplicator → Filter → Transformer for one kind.
type Pipeline struct {
	Fetcher     *Fetcher
	Transformer *Transformer
	Logger      *zap.Logger
	Metrics     *metrics.Pipeline
}

func NewPipeline(fetcher *Fetcher, transformer *Transformer, logger *zap.Logger, m *metrics.Pipeline) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{Fetcher: fetcher, Transformer: transformer, Logger: logger, Metrics: m}
}

// RunKind runs the pipeline for a single kind.
func (p *Pipeline) RunKind(ctx context.Context, kind models.Kind, q Query) (Result, error) {
	start := time.Now()
	label := string(kind)
	defer func() { p.Metrics.ObserveRun(label, time.Since(start)) }()

	raw, pg, err := p.Fetcher.Fetch(ctx, kind, q.Category)
	if err != nil {
		p.Metrics.Error(label, Classify(err))
		return Result{}, err
	}
	p.Metrics.Fetched(label, len(raw))

	unique := Deduplicate(raw)
	p.Metrics.Collapsed(label, len(raw)-len(unique))

	matched := Filter(unique, q.Text, q.Facets)

	items, err := p.Transformer.TransformAll(ctx, matched)
	if err != nil {
		p.Metrics.Error(label, Classify(err))
		return Result{}, err
	}

	p.Logger.Debug("catalog pipeline",
		zap.String("kind", label),
		zap.Int("fetched", len(raw)),
		zap.Int("unique", len(unique)),
		zap.Int("matched", len(matched)),
		zap.Duration("took", time.Since(start)),
	)
	return Result{Items: items, Pagination: pg}, nil
}

// Run executes q. For ScopeAll it delegates to Aggregate.
func (p *Pipeline) Run(ctx context.Context, q Query) (Result, error) {
	switch q.Scope {
	case ScopeRocks:
		return p.RunKind(ctx, models.KindRock, q)
	case ScopeMinerals:
		return p.RunKind(ctx, models.KindMineral, q)
	default:
		return Aggregate(ctx, p, q)
	}
}
