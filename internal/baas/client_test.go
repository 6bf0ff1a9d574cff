package baas

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petrocore/internal/catalog"
	"petrocore/pkg/models"
)

const testKey = "anon-key"

func fixture() Fixture {
	return Fixture{
		"rocks": {
			{"id": float64(1), "rock_code": "I-0001", "name": "Granite", "category": "Igneous", "updated_at": "2024-01-01T00:00:00+00:00"},
			{"id": float64(2), "rock_code": "i 0001", "name": "Granite", "category": "Igneous", "updated_at": "2024-06-01T00:00:00+00:00"},
			{"id": float64(3), "rock_code": "S-1", "name": "Shale", "category": "Sedimentary", "color": "grey", "hardness": float64(3)},
			{"id": float64(4), "rock_code": "O-1", "name": "Magnetite ore", "category": "Ore Samples", "type": "Ore", "image_url": nil},
		},
		"minerals": {
			{"id": "m-1", "mineral_code": "M-1", "name": "Quartz", "category": "Silicate", "luster": "vitreous"},
		},
		"specimen_images": {
			{"id": "img-b", "specimen_id": "1", "url": "https://abc.supabase.co/b.png", "position": float64(1)},
			{"id": "img-a", "specimen_id": "1", "url": "relative/a.png", "position": float64(0)},
			{"id": "img-c", "specimen_id": "m-1", "url": "https://abc.supabase.co/c.png", "position": float64(0)},
		},
	}
}

func newMirrorServer(t *testing.T, data Fixture) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	(&Mirror{Data: data, APIKey: testKey}).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_ListSpecimens(t *testing.T) {
	srv := newMirrorServer(t, fixture())
	c := NewClient(srv.URL+"/", testKey, nil)
	ctx := context.Background()

	recs, pg, err := c.ListSpecimens(ctx, models.KindRock, catalog.AllCategories, 1, 100)
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, 4, pg.Total)
	assert.Equal(t, "1", recs[0].ID)
	assert.Equal(t, "I-0001", recs[0].Code)
	assert.Equal(t, models.KindRock, recs[0].Kind)
	require.NotNil(t, recs[1].UpdatedAt)
	assert.Equal(t, 2024, recs[1].UpdatedAt.Year())
	assert.Equal(t, "3", recs[2].Hardness)
	assert.Equal(t, "Ore", recs[3].Type)
	assert.Empty(t, recs[3].ImageURL)

	recs, pg, err = c.ListSpecimens(ctx, models.KindRock, "Igneous", 1, 100)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
	assert.Equal(t, 2, pg.Total)

	recs, _, err = c.ListSpecimens(ctx, models.KindRock, "Ign*", 1, 100)
	require.NoError(t, err)
	assert.Empty(t, recs, "category is matched literally")

	recs, pg, err = c.ListSpecimens(ctx, models.KindRock, "", 2, 3)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "4", recs[0].ID)
	assert.Equal(t, 4, pg.Total)
	assert.Equal(t, 2, pg.TotalPages)

	recs, _, err = c.ListSpecimens(ctx, models.KindMineral, "", 1, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "vitreous", recs[0].Luster)
}

func TestClient_ListImagesFor(t *testing.T) {
	srv := newMirrorServer(t, fixture())
	c := NewClient(srv.URL, testKey, nil)

	imgs, err := c.ListImagesFor(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, imgs, 2)
	assert.Equal(t, "img-a", imgs[0].ID)
	assert.Equal(t, 1, imgs[1].Position)

	imgs, err = c.ListImagesFor(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, imgs)
}

func TestClient_FeedsPipeline(t *testing.T) {
	srv := newMirrorServer(t, fixture())
	c := NewClient(srv.URL, testKey, nil)

	p := catalog.NewPipeline(catalog.NewFetcher(c, 2, nil), catalog.NewTransformer(c, nil), nil, nil)
	res, err := p.Run(context.Background(), catalog.Query{Scope: catalog.ScopeAll})
	require.NoError(t, err)

	var ids []string
	for _, it := range res.Items {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"2", "3", "4", "m-1"}, ids)
	assert.Equal(t, "/images/default-specimen.png", res.Items[0].ImageURL, "granite 2 has no gallery")
	assert.Equal(t, "https://abc.supabase.co/c.png", res.Items[3].ImageURL)
	assert.Equal(t, catalog.OreSamples, res.Items[2].RockType)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		class   string
	}{
		{"unauthorized", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"message":"Invalid API key"}`)
		}, "unauthorized"},
		{"forbidden", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}, "unauthorized"},
		{"malformed query", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"message":"column rocks.colour does not exist","code":"42703"}`)
		}, "store"},
		{"not an array", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"rows":[]}`)
		}, "shape"},
		{"row without id", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `[{"name":"Basalt"}]`)
		}, "shape"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			_, _, err := NewClient(srv.URL, "k", nil).ListSpecimens(context.Background(), models.KindRock, "", 1, 10)
			require.Error(t, err)
			assert.Equal(t, tt.class, catalog.Classify(err))
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, _, err := NewClient(url, "k", nil).ListSpecimens(context.Background(), models.KindRock, "", 1, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrTransport)
}

func TestClient_SendsKeyAndRange(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		assert.Equal(t, "/rest/v1/minerals", r.URL.Path)
		assert.Equal(t, "eq.Oxide_%*", r.URL.Query().Get("category"))
		w.Header().Set("Content-Range", "*/0")
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	recs, pg, err := NewClient(srv.URL, "secret", nil).ListSpecimens(context.Background(), models.KindMineral, "Oxide_%*", 3, 50)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Equal(t, 0, pg.Total)
	assert.Equal(t, "secret", got.Get("apikey"))
	assert.Equal(t, "Bearer secret", got.Get("Authorization"))
	assert.Equal(t, "100-149", got.Get("Range"))
	assert.Equal(t, "items", got.Get("Range-Unit"))
}

func TestMirror_RejectsBadKey(t *testing.T) {
	srv := newMirrorServer(t, fixture())
	_, _, err := NewClient(srv.URL, "wrong", nil).ListSpecimens(context.Background(), models.KindRock, "", 1, 10)
	assert.ErrorIs(t, err, catalog.ErrUnauthorized)
}

func TestLoadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"rocks":[{"id":1,"name":"Basalt"}]}`), 0o644))
	f, err := LoadFixture(path)
	require.NoError(t, err)
	require.Len(t, f["rocks"], 1)

	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o644))
	_, err = LoadFixture(path)
	assert.Error(t, err)
}

func TestParseContentRange(t *testing.T) {
	assert.Equal(t, 3573, parseContentRange("0-24/3573"))
	assert.Equal(t, 0, parseContentRange("*/0"))
	assert.Equal(t, -1, parseContentRange("0-24/*"))
	assert.Equal(t, -1, parseContentRange(""))
}
