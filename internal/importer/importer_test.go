package importer

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"petrocore/internal/specimen"
	synchub "petrocore/internal/sync"
	"petrocore/pkg/database"
	"petrocore/pkg/models"
)

type eventLog struct{ events []synchub.SpecimenEvent }

func (l *eventLog) Publish(ev synchub.SpecimenEvent) { l.events = append(l.events, ev) }

func newTestImporter(t *testing.T) (*Importer, *specimen.Repo, *eventLog) {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "catalog.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db))

	repo := specimen.NewRepo(db)
	events := &eventLog{}
	return New(repo, events, nil), repo, events
}

func TestNormalizeHeader(t *testing.T) {
	tests := map[string]string{
		"Rock Code":       "code",
		"rock_code":       "code",
		"ROCK-CODE":       "code",
		"Lat":             "latitude",
		"Grain Size":      "grain_size",
		"Reaction to HCl": "reaction_to_hcl",
		"Kind":            "kind",
		"Updated At":      "updated_at",
		"Curator notes":   "",
	}
	for in, want := range tests {
		assert.Equal(t, want, fieldFor(in), in)
	}
}

func TestParseRows(t *testing.T) {
	rows := [][]string{
		{"Rock Code", "Name", "Category", "Colour", "Lat", "Curator notes"},
		{"R-1", "Basalt", "Igneous", "black", "13.9", "n/a"},
		{"", "", "", "", "", ""},
		{"", "", "Igneous", "grey", "", ""},
		{"R-2", "", "", "", "", ""},
	}
	recs, errs, ignored := ParseRows(rows, models.KindRock)

	require.Len(t, recs, 2)
	assert.Equal(t, "R-1", recs[0].Code)
	assert.Equal(t, "black", recs[0].Color)
	assert.Equal(t, "13.9", recs[0].Latitude)
	assert.Equal(t, models.KindRock, recs[1].Kind)

	require.Len(t, errs, 1)
	assert.Equal(t, 4, errs[0].Row)
	assert.Equal(t, []string{"Curator notes"}, ignored)
}

func TestParseRows_KindColumn(t *testing.T) {
	rows := [][]string{
		{"kind", "code", "name", "updated_at"},
		{"Minerals", "M-1", "Quartz", "2024-03-01"},
		{"fossil", "F-1", "Trilobite", ""},
		{"", "X-1", "Unknown", ""},
		{"rock", "R-1", "Shale", "yesterday"},
	}
	recs, errs, _ := ParseRows(rows, "")
	require.Len(t, recs, 1)
	assert.Equal(t, models.KindMineral, recs[0].Kind)
	require.NotNil(t, recs[0].UpdatedAt)
	assert.Equal(t, 2024, recs[0].UpdatedAt.Year())

	require.Len(t, errs, 3)
	assert.Equal(t, []int{3, 4, 5}, []int{errs[0].Row, errs[1].Row, errs[2].Row})
}

func TestImport_UpsertAndDedup(t *testing.T) {
	im, repo, events := newTestImporter(t)
	ctx := context.Background()

	existing := models.Specimen{Kind: models.KindRock, Code: "I-0001", Name: "Granite", Category: "Igneous"}
	existing.Locality = "Baguio"
	require.NoError(t, repo.Create(ctx, &existing))

	csv := strings.Join([]string{
		"code,name,category,color,updated_at",
		"i 0001,Granite,Igneous,pink,2024-06-01",
		"I0001,Granite,Igneous,grey,2024-01-01",
		"S-1,Shale,Sedimentary,,",
		"M-1,Quartz,,clear,",
	}, "\n")

	rep, err := im.ImportFile(ctx, strings.NewReader(csv), FormatCSV, models.KindRock)
	require.NoError(t, err)
	assert.Equal(t, 4, rep.Rows)
	assert.Equal(t, 1, rep.Duplicates)
	assert.Equal(t, 1, rep.Updated)
	assert.Equal(t, 2, rep.Inserted)
	assert.Empty(t, rep.Errors)

	got, err := repo.Get(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "pink", got.Color, "later updated_at wins within the file")
	assert.Equal(t, "Baguio", got.Locality, "blank cells keep stored values")
	assert.Equal(t, "i 0001", got.Code)

	total, err := repo.Count(ctx, models.KindRock, "")
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	require.Len(t, events.events, 1)
	assert.Equal(t, synchub.EventImported, events.events[0].Type)
	assert.Equal(t, 3, events.events[0].Count)

	// re-importing the same file only updates
	rep, err = im.ImportFile(ctx, strings.NewReader(csv), FormatCSV, models.KindRock)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Inserted)
	assert.Equal(t, 3, rep.Updated)
}

func TestImport_ByID(t *testing.T) {
	im, repo, _ := newTestImporter(t)
	ctx := context.Background()

	rep, err := im.Import(ctx, []models.Specimen{{ID: "fixed-id", Kind: models.KindMineral, Name: "Galena"}})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Inserted)

	got, err := repo.Get(ctx, "fixed-id")
	require.NoError(t, err)
	require.NotNil(t, got)

	update := models.Specimen{ID: "fixed-id", Kind: models.KindMineral, Name: "Galena"}
	update.Luster = "metallic"
	rep, err = im.Import(ctx, []models.Specimen{update})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Updated)

	got, err = repo.Get(ctx, "fixed-id")
	require.NoError(t, err)
	assert.Equal(t, "metallic", got.Luster)
}

func TestImport_FailingRecordSavesNothing(t *testing.T) {
	im, repo, events := newTestImporter(t)
	ctx := context.Background()

	stored := models.Specimen{Kind: models.KindRock, Code: "R-1", Name: "Basalt"}
	stored.Color = "black"
	require.NoError(t, repo.Create(ctx, &stored))

	update := models.Specimen{Kind: models.KindRock, Code: "r 1", Name: "Basalt"}
	update.Color = "red"
	recs := []models.Specimen{
		update,
		{Kind: models.KindRock, Code: "R-2", Name: "Shale"},
		{Kind: models.KindRock},
		{Kind: models.KindRock, Code: "R-3", Name: "Gneiss"},
	}

	rep, err := im.Import(ctx, recs)
	require.Error(t, err)
	var ve *specimen.ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.Zero(t, rep.Inserted)
	assert.Zero(t, rep.Updated)
	assert.Empty(t, events.events)

	n, err := repo.Count(ctx, models.KindRock, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "the rows before the failure were rolled back")

	got, err := repo.Get(ctx, stored.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "black", got.Color)

	// the store is still usable after the rollback
	rep, err = im.Import(ctx, []models.Specimen{update})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Updated)
	require.Len(t, events.events, 1)
}

func TestExportRoundTrip(t *testing.T) {
	recs := []models.Specimen{
		{ID: "a", Kind: models.KindRock, Code: "R-1", Name: "Basalt, vesicular", Category: "Igneous"},
		{ID: "b", Kind: models.KindMineral, Code: "M-1", Name: "Quartz"},
	}
	recs[1].ChemicalFormula = "SiO2"

	for _, format := range []Format{FormatCSV, FormatXLSX} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Export(&buf, recs, format))

			rows, err := ReadRows(&buf, format)
			require.NoError(t, err)
			got, errs, ignored := ParseRows(rows, "")
			assert.Empty(t, errs)
			assert.Empty(t, ignored)
			require.Len(t, got, 2)
			assert.Equal(t, "Basalt, vesicular", got[0].Name)
			assert.Equal(t, models.KindMineral, got[1].Kind)
			assert.Equal(t, "SiO2", got[1].ChemicalFormula)
		})
	}
}

func TestReadXLSX_FirstSheet(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Mineral Code", "Mineral Name", "Luster"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"M-7", "Pyrite", "metallic"}))
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	rows, err := ReadRows(&buf, FormatXLSX)
	require.NoError(t, err)
	recs, errs, _ := ParseRows(rows, models.KindMineral)
	assert.Empty(t, errs)
	require.Len(t, recs, 1)
	assert.Equal(t, "M-7", recs[0].Code)
	assert.Equal(t, "Pyrite", recs[0].Name)
}

func TestFormatOf(t *testing.T) {
	f, err := FormatOf("Rocks.XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)
	_, err = FormatOf("rocks.xls")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
