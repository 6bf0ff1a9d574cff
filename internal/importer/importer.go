package importer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"petrocore/internal/catalog"
	"petrocore/internal/specimen"
	synchub "petrocore/internal/sync"
	"petrocore/pkg/models"
)

// Report summarises one import.
type Report struct {
	Rows           int        `json:"rows"`
	Inserted       int        `json:"inserted"`
	Updated        int        `json:"updated"`
	Duplicates     int        `json:"duplicates"` // collapsed within the file
	Errors         []RowError `json:"errors"`
	IgnoredColumns []string   `json:"ignored_columns,omitempty"`
}

type Importer struct {
	Repo   *specimen.Repo
	Events synchub.Publisher
	Logger *zap.Logger
}

func New(repo *specimen.Repo, events synchub.Publisher, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{Repo: repo, Events: events, Logger: logger}
}

// ImportFile reads a csv or xlsx stream and imports it.
func (im *Importer) ImportFile(ctx context.Context, r io.Reader, format Format, defaultKind models.Kind) (Report, error) {
	rows, err := ReadRows(r, format)
	if err != nil {
		return Report{}, err
	}
	recs, rowErrs, ignored := ParseRows(rows, defaultKind)

	rep, err := im.Import(ctx, recs)
	rep.Rows = len(recs) + len(rowErrs)
	rep.Errors = append(append([]RowError{}, rowErrs...), rep.Errors...)
	rep.IgnoredColumns = ignored
	return rep, err
}

// Import collapses in-file duplicates (per kind, same key and tie-break as
// the catalog) and upserts the survivors in one transaction. A record with
// an id updates that record; one without an id updates the record with the
// same normalized code, else it is inserted under a new id. Non-blank
// imported fields overwrite stored ones; blank cells keep what is stored.
// When any record fails nothing is saved and the report counts no changes.
func (im *Importer) Import(ctx context.Context, recs []models.Specimen) (Report, error) {
	rep := Report{Rows: len(recs), Errors: []RowError{}}

	var unique []models.Specimen
	for _, kind := range []models.Kind{models.KindRock, models.KindMineral} {
		var ofKind []models.Specimen
		for _, r := range recs {
			if r.Kind == kind {
				ofKind = append(ofKind, r)
			}
		}
		unique = append(unique, catalog.Deduplicate(ofKind)...)
	}
	rep.Duplicates = len(recs) - len(unique)

	err := im.Repo.WithTx(ctx, func(repo *specimen.Repo) error {
		for i := range unique {
			inserted, err := upsert(ctx, repo, &unique[i])
			if err != nil {
				return fmt.Errorf("import %s %q: %w", unique[i].Kind, label(&unique[i]), err)
			}
			if inserted {
				rep.Inserted++
			} else {
				rep.Updated++
			}
		}
		return nil
	})
	if err != nil {
		im.Logger.Warn("import rolled back", zap.Int("rows", rep.Rows), zap.Error(err))
		rep.Inserted, rep.Updated = 0, 0
		return rep, err
	}

	im.Logger.Info("import finished",
		zap.Int("rows", rep.Rows),
		zap.Int("inserted", rep.Inserted),
		zap.Int("updated", rep.Updated),
		zap.Int("duplicates", rep.Duplicates),
	)
	if im.Events != nil && rep.Inserted+rep.Updated > 0 {
		ev := synchub.NewEvent(synchub.EventImported, nil)
		ev.Count = rep.Inserted + rep.Updated
		im.Events.Publish(ev)
	}
	return rep, nil
}

func upsert(ctx context.Context, repo *specimen.Repo, s *models.Specimen) (bool, error) {
	var (
		existing *models.Specimen
		err      error
	)
	switch {
	case s.ID != "":
		existing, err = repo.Get(ctx, s.ID)
	case s.Code != "":
		existing, err = repo.FindByCode(ctx, s.Kind, s.Code)
	}
	if err != nil {
		return false, err
	}

	if existing == nil {
		return true, repo.Create(ctx, s)
	}
	merged := merge(*existing, s)
	return false, repo.Update(ctx, &merged)
}

func merge(dst models.Specimen, src *models.Specimen) models.Specimen {
	for _, name := range models.FieldNames {
		if v := strings.TrimSpace(src.Field(name)); v != "" {
			dst.SetField(name, v)
		}
	}
	dst.Kind = src.Kind
	return dst
}

func label(s *models.Specimen) string {
	if s.Code != "" {
		return s.Code
	}
	return s.Name
}
