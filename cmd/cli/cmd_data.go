package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"petrocore/internal/catalog"
	"petrocore/internal/importer"
	"petrocore/internal/specimen"
	"petrocore/pkg/database"
	"petrocore/pkg/models"
)

var dataOpts struct {
	dbPath string
	kind   string
	remote bool
}

var importCmd = &cobra.Command{
	Use:   "import <file.xlsx|file.csv>",
	Short: "Import a spreadsheet of specimens",
	Long: `Import reads the first sheet of an .xlsx file, or a .csv file. The header row
is matched loosely ("Rock Code", "rock_code" and "code" all map to code).
Rows without a kind column take --kind. Rows that share a normalized code are
merged before saving, and existing records with that code are updated.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		format, err := importer.FormatOf(path)
		if err != nil {
			return err
		}
		var kind models.Kind
		if dataOpts.kind != "" {
			k, ok := models.ParseKind(dataOpts.kind)
			if !ok {
				return fmt.Errorf("--kind must be rock or mineral")
			}
			kind = k
		}

		var rep importer.Report
		if dataOpts.remote {
			rep, err = importRemote(cmd.Context(), path, kind)
		} else {
			rep, err = importLocal(cmd.Context(), path, format, kind)
		}
		if err != nil {
			return err
		}

		fmt.Printf("%d rows: %d inserted, %d updated, %d duplicates merged, %d errors\n",
			rep.Rows, rep.Inserted, rep.Updated, rep.Duplicates, len(rep.Errors))
		for _, e := range rep.Errors {
			fmt.Printf("  %s\n", e.Error())
		}
		if len(rep.IgnoredColumns) > 0 {
			fmt.Printf("ignored columns: %s\n", strings.Join(rep.IgnoredColumns, ", "))
		}
		return nil
	},
}

func importLocal(ctx context.Context, path string, format importer.Format, kind models.Kind) (importer.Report, error) {
	db, err := database.Open(database.Config{Path: dataOpts.dbPath})
	if err != nil {
		return importer.Report{}, err
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		return importer.Report{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return importer.Report{}, err
	}
	defer f.Close()

	im := importer.New(specimen.NewRepo(db), nil, logger)
	return im.ImportFile(ctx, f, format, kind)
}

func importRemote(ctx context.Context, path string, kind models.Kind) (importer.Report, error) {
	token, err := readToken(tokenPath)
	if err != nil {
		return importer.Report{}, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if kind != "" {
		if err := mw.WriteField("kind", string(kind)); err != nil {
			return importer.Report{}, err
		}
	}
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return importer.Report{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return importer.Report{}, err
	}
	defer f.Close()
	if _, err := io.Copy(fw, f); err != nil {
		return importer.Report{}, err
	}
	if err := mw.Close(); err != nil {
		return importer.Report{}, err
	}

	var rep importer.Report
	err = do(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/specimens/import", token, mw.FormDataContentType(), &body, &rep)
	if err != nil {
		return rep, fmt.Errorf("import failed: %w", err)
	}
	return rep, nil
}

var exportCmd = &cobra.Command{
	Use:   "export <file.xlsx|file.csv>",
	Short: "Export the local catalog to a spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := args[0]
		format, err := importer.FormatOf(out)
		if err != nil {
			return err
		}
		scope, ok := catalog.ParseScope(dataOpts.kind)
		if !ok {
			return fmt.Errorf("--kind must be all, rock or mineral")
		}

		db, err := database.Open(database.Config{Path: dataOpts.dbPath})
		if err != nil {
			return err
		}
		defer db.Close()
		repo := specimen.NewRepo(db)

		kinds := []models.Kind{models.KindRock, models.KindMineral}
		if scope != catalog.ScopeAll {
			kinds = []models.Kind{models.Kind(scope)}
		}
		fetcher := catalog.NewFetcher(repo, 500, logger)
		var recs []models.Specimen
		for _, kind := range kinds {
			all, _, err := fetcher.Fetch(cmd.Context(), kind, catalog.AllCategories)
			if err != nil {
				return err
			}
			recs = append(recs, all...)
		}

		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return err
		}
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		if err := importer.Export(f, recs, format); err != nil {
			_ = f.Close()
			return errors.Join(err, os.Remove(out))
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("exported %d specimens to %s\n", len(recs), out)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{importCmd, exportCmd} {
		c.Flags().StringVar(&dataOpts.dbPath, "db", database.DefaultConfig().Path, "local catalog database")
	}
	importCmd.Flags().StringVarP(&dataOpts.kind, "kind", "k", "", "kind for rows without a kind column (rock or mineral)")
	importCmd.Flags().BoolVar(&dataOpts.remote, "remote", false, "upload to --api instead of writing the local database")
	exportCmd.Flags().StringVarP(&dataOpts.kind, "kind", "k", "all", "all, rock or mineral")
}
