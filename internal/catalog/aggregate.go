package catalog

import (
	"context"

	"golang.org/x/sync/errgroup"

	"petrocore/pkg/models"
)

// KindRunner runs the single-kind pipeline; *Pipeline implements it.
type KindRunner interface {
	RunKind(ctx context.Context, kind models.Kind, q Query) (Result, error)
}

// Aggregate runs the rock and mineral pipelines concurrently and returns
// rocks followed by minerals. Rocks and minerals are never de-duplicated
// against each other. Either side failing fails the whole result.
func Aggregate(ctx context.Context, r KindRunner, q Query) (Result, error) {
	var rocks, minerals Result

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := r.RunKind(gctx, models.KindRock, q)
		rocks = res
		return err
	})
	g.Go(func() error {
		res, err := r.RunKind(gctx, models.KindMineral, q)
		minerals = res
		return err
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	items := make([]models.DisplayItem, 0, len(rocks.Items)+len(minerals.Items))
	items = append(items, rocks.Items...)
	items = append(items, minerals.Items...)

	total := rocks.Pagination.Total + minerals.Pagination.Total
	pageSize := rocks.Pagination.PageSize
	if pageSize == 0 {
		pageSize = minerals.Pagination.PageSize
	}
	return Result{Items: items, Pagination: models.NewPagination(1, pageSize, total)}, nil
}
