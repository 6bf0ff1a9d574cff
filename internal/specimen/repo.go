package specimen

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"petrocore/internal/catalog"
	"petrocore/pkg/models"
)

var ErrNotFound = errors.New("specimen not found")

type Repo struct {
	DB *sql.DB
	tx *sql.Tx
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *Repo) conn() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.DB
}

// WithTx runs fn with a Repo bound to a single transaction. The transaction
// commits when fn returns nil and rolls back otherwise. Called on a Repo
// already inside a transaction, fn joins it.
func (r *Repo) WithTx(ctx context.Context, fn func(*Repo) error) error {
	if r.tx != nil {
		return fn(r)
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&Repo{DB: r.DB, tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const selectColumns = `
	SELECT id, kind, code, name, category, type, image_url, attributes, created_at, updated_at
	FROM specimens
`

type scanner interface {
	Scan(dest ...any) error
}

func scanSpecimen(row scanner) (models.Specimen, error) {
	var (
		s         models.Specimen
		kind      string
		code      sql.NullString
		category  sql.NullString
		typ       sql.NullString
		imageURL  sql.NullString
		attrsJSON string
		createdAt time.Time
		updatedAt time.Time
	)
	if err := row.Scan(&s.ID, &kind, &code, &s.Name, &category, &typ, &imageURL, &attrsJSON, &createdAt, &updatedAt); err != nil {
		return s, err
	}
	s.Kind = models.Kind(kind)
	s.Code = code.String
	s.Category = category.String
	s.Type = typ.String
	s.ImageURL = imageURL.String
	s.CreatedAt = &createdAt
	s.UpdatedAt = &updatedAt

	if err := json.Unmarshal([]byte(attrsJSON), &s.Attributes); err != nil {
		return s, fmt.Errorf("decode attributes of %s: %w", s.ID, err)
	}
	return s, nil
}

// Get returns nil, nil when the id does not exist.
func (r *Repo) Get(ctx context.Context, id string) (*models.Specimen, error) {
	s, err := scanSpecimen(r.conn().QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get specimen: %w", err)
	}
	return &s, nil
}

// FindByCode looks a record up by normalized code within a kind. When
// several records share the key the most recently updated one is returned.
func (r *Repo) FindByCode(ctx context.Context, kind models.Kind, code string) (*models.Specimen, error) {
	key := catalog.NormalizeCode(code)
	if key == "" {
		return nil, nil
	}
	s, err := scanSpecimen(r.conn().QueryRowContext(ctx,
		selectColumns+` WHERE kind = ? AND code_key = ? ORDER BY updated_at DESC LIMIT 1`,
		string(kind), key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find specimen by code: %w", err)
	}
	return &s, nil
}

// Create inserts s, assigning an id when empty and stamping both timestamps.
func (r *Repo) Create(ctx context.Context, s *models.Specimen) error {
	if err := validate(s); err != nil {
		return err
	}
	if strings.TrimSpace(s.ID) == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = &now, &now

	attrs, err := json.Marshal(s.Attributes)
	if err != nil {
		return fmt.Errorf("encode attributes: %w", err)
	}
	_, err = r.conn().ExecContext(ctx, `
		INSERT INTO specimens (id, kind, code, code_key, name, category, type, image_url, attributes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, string(s.Kind), s.Code, catalog.NormalizeCode(s.Code), s.Name, s.Category, s.Type, s.ImageURL, string(attrs), now, now)
	if err != nil {
		return fmt.Errorf("insert specimen: %w", err)
	}
	return nil
}

// Update replaces every column of an existing record and bumps updated_at.
func (r *Repo) Update(ctx context.Context, s *models.Specimen) error {
	if err := validate(s); err != nil {
		return err
	}
	now := time.Now().UTC()

	attrs, err := json.Marshal(s.Attributes)
	if err != nil {
		return fmt.Errorf("encode attributes: %w", err)
	}
	res, err := r.conn().ExecContext(ctx, `
		UPDATE specimens
		SET kind = ?, code = ?, code_key = ?, name = ?, category = ?, type = ?, image_url = ?, attributes = ?, updated_at = ?
		WHERE id = ?
	`, string(s.Kind), s.Code, catalog.NormalizeCode(s.Code), s.Name, s.Category, s.Type, s.ImageURL, string(attrs), now, s.ID)
	if err != nil {
		return fmt.Errorf("update specimen: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	s.UpdatedAt = &now
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	res, err := r.conn().ExecContext(ctx, `DELETE FROM specimens WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete specimen: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) Count(ctx context.Context, kind models.Kind, category string) (int, error) {
	where, args := listWhere(kind, category)
	var total int
	if err := r.conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM specimens`+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count scan: %w", err)
	}
	return total, nil
}

// ListSpecimens implements catalog.Store. An empty category means every
// category; the match is case-insensitive. Records come back in insertion
// order so duplicate groups resolve the same way on every call.
func (r *Repo) ListSpecimens(ctx context.Context, kind models.Kind, category string, page, pageSize int) ([]models.Specimen, models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = catalog.DefaultFetchPageSize
	}

	total, err := r.Count(ctx, kind, category)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("%w: %w", catalog.ErrStore, err)
	}

	where, args := listWhere(kind, category)
	args = append(args, pageSize, (page-1)*pageSize)
	rows, err := r.conn().QueryContext(ctx, selectColumns+where+` ORDER BY rowid ASC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("%w: list query: %w", catalog.ErrStore, err)
	}
	defer rows.Close()

	out := make([]models.Specimen, 0, min(pageSize, total))
	for rows.Next() {
		s, err := scanSpecimen(rows)
		if err != nil {
			return nil, models.Pagination{}, fmt.Errorf("%w: list scan: %w", catalog.ErrShape, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, models.Pagination{}, fmt.Errorf("%w: rows err: %w", catalog.ErrStore, err)
	}
	return out, models.NewPagination(page, pageSize, total), nil
}

// Categories lists the distinct non-empty categories of a kind.
func (r *Repo) Categories(ctx context.Context, kind models.Kind) ([]string, error) {
	rows, err := r.conn().QueryContext(ctx, `
		SELECT DISTINCT category FROM specimens
		WHERE kind = ? AND category IS NOT NULL AND category != ''
		ORDER BY category ASC
	`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("categories query: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("categories scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func listWhere(kind models.Kind, category string) (string, []any) {
	where := []string{"kind = ?"}
	args := []any{string(kind)}
	if c := strings.TrimSpace(category); c != "" && !strings.EqualFold(c, catalog.AllCategories) {
		where = append(where, "LOWER(category) = ?")
		args = append(args, strings.ToLower(c))
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// ValidationError is returned for records the store refuses to save.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Msg
}

func validate(s *models.Specimen) error {
	if _, ok := models.ParseKind(string(s.Kind)); !ok {
		return &ValidationError{Field: "kind", Msg: "must be rock or mineral"}
	}
	s.Kind, _ = models.ParseKind(string(s.Kind))
	if strings.TrimSpace(s.Name) == "" && strings.TrimSpace(s.Code) == "" {
		return &ValidationError{Field: "name", Msg: "name or code is required"}
	}
	return nil
}
