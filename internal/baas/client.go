package baas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"petrocore/internal/catalog"
	"petrocore/pkg/models"
)

const imagesTable = "specimen_images"

// Client reads the catalog from a hosted PostgREST endpoint. It implements
// catalog.Store and catalog.ImageSource.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
	Logger  *zap.Logger
}

func NewClient(baseURL, apiKey string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
		Logger:  logger,
	}
}

// ListSpecimens requests one page of a kind's table using PostgREST range
// pagination. The total comes from the Content-Range header.
func (c *Client) ListSpecimens(ctx context.Context, kind models.Kind, category string, page, pageSize int) ([]models.Specimen, models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = catalog.DefaultFetchPageSize
	}

	q := url.Values{}
	q.Set("select", "*")
	if cat := strings.TrimSpace(category); cat != "" && !strings.EqualFold(cat, catalog.AllCategories) {
		q.Set("category", "eq."+cat)
	}
	from := (page - 1) * pageSize
	to := from + pageSize - 1

	rows, total, err := c.get(ctx, kind.Plural(), q, from, to)
	if err != nil {
		return nil, models.Pagination{}, err
	}

	out := make([]models.Specimen, 0, len(rows))
	for i, r := range rows {
		s, err := r.Specimen(kind)
		if err != nil {
			return nil, models.Pagination{}, fmt.Errorf("%w: %s row %d: %w", catalog.ErrShape, kind.Plural(), from+i, err)
		}
		out = append(out, s)
	}
	if total < 0 {
		total = from + len(out)
	}
	return out, models.NewPagination(page, pageSize, total), nil
}

// ListImagesFor implements catalog.ImageSource.
func (c *Client) ListImagesFor(ctx context.Context, specimenID string) ([]models.Image, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("specimen_id", "eq."+specimenID)
	q.Set("order", "position.asc")

	rows, _, err := c.get(ctx, imagesTable, q, -1, -1)
	if err != nil {
		return nil, err
	}
	out := make([]models.Image, 0, len(rows))
	for _, r := range rows {
		img, err := r.Image()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", catalog.ErrShape, imagesTable, err)
		}
		out = append(out, img)
	}
	return out, nil
}

// Ping checks that the endpoint answers and accepts the key.
func (c *Client) Ping(ctx context.Context) error {
	_, _, err := c.ListSpecimens(ctx, models.KindRock, "", 1, 1)
	return err
}

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Hint    string `json:"hint"`
}

// get issues one table read. from/to < 0 means no Range header. total is -1
// when the server did not report one.
func (c *Client) get(ctx context.Context, table string, q url.Values, from, to int) ([]Row, int, error) {
	u := c.BaseURL + "/rest/v1/" + table + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("baas: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("apikey", c.APIKey)
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	if from >= 0 {
		req.Header.Set("Range-Unit", "items")
		req.Header.Set("Range", fmt.Sprintf("%d-%d", from, to))
		req.Header.Set("Prefer", "count=exact")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, fmt.Errorf("%w: %s: %w", catalog.ErrTransport, table, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: read %s: %w", catalog.ErrTransport, table, err)
	}

	total := parseContentRange(resp.Header.Get("Content-Range"))

	switch {
	case resp.StatusCode == http.StatusRequestedRangeNotSatisfiable:
		// asked past the end
		return nil, total, nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, 0, fmt.Errorf("%w: %s: %s", catalog.ErrUnauthorized, table, describe(resp.StatusCode, body))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.Logger.Warn("baas request failed", zap.String("table", table), zap.Int("status", resp.StatusCode))
		return nil, 0, fmt.Errorf("%w: %s: %s", catalog.ErrStore, table, describe(resp.StatusCode, body))
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var rows []Row
	if err := dec.Decode(&rows); err != nil {
		return nil, 0, fmt.Errorf("%w: decode %s: %w", catalog.ErrShape, table, err)
	}
	return rows, total, nil
}

func describe(status int, body []byte) string {
	var e apiError
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		if e.Code != "" {
			return fmt.Sprintf("status %d: %s (%s)", status, e.Message, e.Code)
		}
		return fmt.Sprintf("status %d: %s", status, e.Message)
	}
	return fmt.Sprintf("status %d", status)
}

// parseContentRange reads the total from "0-24/3573" or "*/0". It returns -1
// when the header is absent or the total is "*".
func parseContentRange(h string) int {
	i := strings.LastIndexByte(h, '/')
	if i < 0 {
		return -1
	}
	n, err := strconv.Atoi(strings.TrimSpace(h[i+1:]))
	if err != nil {
		return -1
	}
	return n
}

var (
	_ catalog.Store       = (*Client)(nil)
	_ catalog.ImageSource = (*Client)(nil)
)
