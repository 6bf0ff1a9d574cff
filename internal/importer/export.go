package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"petrocore/pkg/models"
)

// ExportColumns is the header written by Export; it round-trips through
// ParseRows.
var ExportColumns = append(append([]string{"id", "kind"}, models.FieldNames...), "created_at", "updated_at")

func exportRow(s *models.Specimen) []string {
	row := make([]string, 0, len(ExportColumns))
	row = append(row, s.ID, string(s.Kind))
	for _, name := range models.FieldNames {
		row = append(row, s.Field(name))
	}
	return append(row, stamp(s.CreatedAt), stamp(s.UpdatedAt))
}

func stamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// Export writes recs with a header row.
func Export(w io.Writer, recs []models.Specimen, format Format) error {
	switch format {
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(ExportColumns); err != nil {
			return err
		}
		for i := range recs {
			if err := cw.Write(exportRow(&recs[i])); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	case FormatXLSX:
		return exportXLSX(w, recs)
	default:
		return ErrUnsupportedFormat
	}
}

func exportXLSX(w io.Writer, recs []models.Specimen) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Specimens"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	write := func(rowNum int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		row := make([]any, len(values))
		for i, v := range values {
			row[i] = v
		}
		return f.SetSheetRow(sheet, cell, &row)
	}

	if err := write(1, ExportColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range recs {
		if err := write(i+2, exportRow(&recs[i])); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
