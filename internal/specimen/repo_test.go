package specimen

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petrocore/internal/catalog"
	"petrocore/pkg/database"
	"petrocore/pkg/models"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "catalog.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))
	return NewRepo(db)
}

func TestRepo_CreateGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	s := models.Specimen{Kind: "Rocks", Code: "R-0001", Name: "Basalt", Category: "Igneous"}
	s.Color = "black"
	s.Latitude = "13.9"
	require.NoError(t, repo.Create(ctx, &s))
	require.NotEmpty(t, s.ID)
	assert.Equal(t, models.KindRock, s.Kind)

	got, err := repo.Get(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Basalt", got.Name)
	assert.Equal(t, "black", got.Color)
	assert.Equal(t, "13.9", got.Latitude)
	require.NotNil(t, got.UpdatedAt)
	assert.WithinDuration(t, *s.UpdatedAt, *got.UpdatedAt, time.Millisecond)

	missing, err := repo.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepo_Validation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	var ve *ValidationError
	err := repo.Create(ctx, &models.Specimen{Kind: "fossil", Name: "x"})
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "kind", ve.Field)

	err = repo.Create(ctx, &models.Specimen{Kind: models.KindMineral})
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "name", ve.Field)

	assert.NoError(t, repo.Create(ctx, &models.Specimen{Kind: models.KindMineral, Code: "M-9"}))
}

func TestRepo_UpdateDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	s := models.Specimen{Kind: models.KindMineral, Code: "M-1", Name: "Quartz"}
	require.NoError(t, repo.Create(ctx, &s))
	created := *s.UpdatedAt

	s.Luster = "vitreous"
	s.Code = "m 0001"
	require.NoError(t, repo.Update(ctx, &s))
	assert.False(t, s.UpdatedAt.Before(created))

	got, err := repo.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "vitreous", got.Luster)

	byCode, err := repo.FindByCode(ctx, models.KindMineral, "M-0001")
	require.NoError(t, err)
	require.NotNil(t, byCode)
	assert.Equal(t, s.ID, byCode.ID)

	assert.ErrorIs(t, repo.Update(ctx, &models.Specimen{ID: "nope", Kind: models.KindRock, Name: "x"}), ErrNotFound)

	require.NoError(t, repo.Delete(ctx, s.ID))
	assert.ErrorIs(t, repo.Delete(ctx, s.ID), ErrNotFound)
}

func TestRepo_ListSpecimens(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, s := range []models.Specimen{
		{Kind: models.KindRock, Name: "Basalt", Category: "Igneous"},
		{Kind: models.KindRock, Name: "Shale", Category: "Sedimentary"},
		{Kind: models.KindRock, Name: "Granite", Category: "igneous"},
		{Kind: models.KindMineral, Name: "Quartz", Category: "Silicate"},
	} {
		require.NoError(t, repo.Create(ctx, &s))
	}

	recs, pg, err := repo.ListSpecimens(ctx, models.KindRock, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Basalt", "Shale", "Granite"}, names(recs))
	assert.Equal(t, 3, pg.Total)

	recs, _, err = repo.ListSpecimens(ctx, models.KindRock, "IGNEOUS", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Basalt", "Granite"}, names(recs))

	recs, pg, err = repo.ListSpecimens(ctx, models.KindRock, catalog.AllCategories, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Granite"}, names(recs))
	assert.Equal(t, 2, pg.TotalPages)

	cats, err := repo.Categories(ctx, models.KindRock)
	require.NoError(t, err)
	assert.Equal(t, []string{"Igneous", "Sedimentary", "igneous"}, cats)
}

func TestRepo_FeedsPipeline(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	older := models.Specimen{Kind: models.KindRock, Code: "I-0001", Name: "Granite", Category: "Igneous"}
	require.NoError(t, repo.Create(ctx, &older))
	newer := models.Specimen{Kind: models.KindRock, Code: "i 0001", Name: "Granite", Category: "Igneous"}
	newer.Color = "pink"
	require.NoError(t, repo.Create(ctx, &newer))

	p := catalog.NewPipeline(catalog.NewFetcher(repo, 0, nil), catalog.NewTransformer(nil, nil), nil, nil)
	res, err := p.Run(ctx, catalog.Query{Scope: catalog.ScopeRocks, Text: "granite"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, newer.ID, res.Items[0].ID)
}

func names(recs []models.Specimen) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Name)
	}
	return out
}
