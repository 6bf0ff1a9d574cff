package main

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"petrocore/pkg/models"
)

type catalogResponse struct {
	Items      []models.DisplayItem `json:"items"`
	Pagination models.Pagination    `json:"pagination"`
}

var searchOpts struct {
	kind           string
	category       string
	colors         []string
	rockTypes      []string
	mineralCats    []string
	associated     []string
	page, pageSize int
	asJSON         bool
}

var searchCmd = &cobra.Command{
	Use:   "search [text]",
	Short: "Search the catalog",
	Long: `Search runs the catalog pipeline on the server: duplicates are merged,
facets applied and every result gets a title, description and image.

Facet flags may be repeated or comma separated; values within one facet are
ORed, different facets are ANDed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/catalog")
		if err != nil {
			return fmt.Errorf("invalid base url: %w", err)
		}
		qv := u.Query()
		qv.Set("kind", searchOpts.kind)
		if searchOpts.category != "" {
			qv.Set("category", searchOpts.category)
		}
		if len(args) == 1 {
			qv.Set("q", args[0])
		}
		for key, vals := range map[string][]string{
			"color":              searchOpts.colors,
			"rock_type":          searchOpts.rockTypes,
			"mineral_category":   searchOpts.mineralCats,
			"associated_mineral": searchOpts.associated,
		} {
			for _, v := range vals {
				qv.Add(key, v)
			}
		}
		qv.Set("page", strconv.Itoa(searchOpts.page))
		qv.Set("page_size", strconv.Itoa(searchOpts.pageSize))
		u.RawQuery = qv.Encode()

		var resp catalogResponse
		if err := doJSON(cmd.Context(), http.MethodGet, u.String(), "", nil, &resp); err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		if searchOpts.asJSON {
			return printJSON(resp)
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tKIND\tTITLE\tCATEGORY\tCOLOR")
		for _, it := range resp.Items {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", it.ID, it.Kind, it.Title, it.Category, it.Color)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		pg := resp.Pagination
		fmt.Printf("page %d/%d, %d results\n", pg.Page, max(pg.TotalPages, 1), pg.Total)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one specimen with its image gallery",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		base := strings.TrimRight(baseURL, "/") + "/specimens/" + url.PathEscape(args[0])

		var s models.Specimen
		if err := doJSON(cmd.Context(), http.MethodGet, base, "", nil, &s); err != nil {
			return fmt.Errorf("show failed: %w", err)
		}
		var gallery struct {
			Items []models.Image `json:"items"`
		}
		if err := doJSON(cmd.Context(), http.MethodGet, base+"/images", "", nil, &gallery); err != nil {
			logger.Debug("gallery unavailable")
		}
		return printJSON(map[string]any{"specimen": s, "images": gallery.Items})
	},
}

func init() {
	f := searchCmd.Flags()
	f.StringVarP(&searchOpts.kind, "kind", "k", "all", "all, rock or mineral")
	f.StringVarP(&searchOpts.category, "category", "c", "", "category filter (default: all)")
	f.StringSliceVar(&searchOpts.colors, "color", nil, "color facet")
	f.StringSliceVar(&searchOpts.rockTypes, "rock-type", nil, "rock type facet (Igneous, Ore Samples, ...)")
	f.StringSliceVar(&searchOpts.mineralCats, "mineral-category", nil, "mineral category facet")
	f.StringSliceVar(&searchOpts.associated, "associated-mineral", nil, "associated mineral facet")
	f.IntVar(&searchOpts.page, "page", 1, "page number")
	f.IntVar(&searchOpts.pageSize, "page-size", 20, "results per page")
	f.BoolVar(&searchOpts.asJSON, "json", false, "print the raw response")
}
