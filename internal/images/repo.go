package images

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"petrocore/internal/catalog"
	"petrocore/pkg/models"
)

var ErrNotFound = errors.New("image not found")

// Repo stores gallery entries in specimen_images. It implements
// catalog.ImageSource.
type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Add appends img to the end of its specimen's gallery. blobKey is empty for
// images that live outside the blob store.
func (r *Repo) Add(ctx context.Context, img *models.Image, blobKey string) error {
	if img.ID == "" {
		img.ID = uuid.NewString()
	}
	img.CreatedAt = time.Now().UTC()

	var next int
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM specimen_images WHERE specimen_id = ?`,
		img.SpecimenID).Scan(&next); err != nil {
		return fmt.Errorf("next image position: %w", err)
	}
	img.Position = next

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO specimen_images (id, specimen_id, url, blob_key, caption, position, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, img.ID, img.SpecimenID, img.URL, blobKey, img.Caption, img.Position, img.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert image: %w", err)
	}
	return nil
}

// ListImagesFor returns the gallery ordered by position.
func (r *Repo) ListImagesFor(ctx context.Context, specimenID string) ([]models.Image, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, specimen_id, url, caption, position, created_at
		FROM specimen_images
		WHERE specimen_id = ?
		ORDER BY position ASC, created_at ASC
	`, specimenID)
	if err != nil {
		return nil, fmt.Errorf("%w: list images: %w", catalog.ErrStore, err)
	}
	defer rows.Close()

	out := []models.Image{}
	for rows.Next() {
		var (
			img     models.Image
			caption sql.NullString
		)
		if err := rows.Scan(&img.ID, &img.SpecimenID, &img.URL, &caption, &img.Position, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan image: %w", catalog.ErrShape, err)
		}
		img.Caption = caption.String
		out = append(out, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows err: %w", catalog.ErrStore, err)
	}
	return out, nil
}

// Delete removes one image and returns its blob key (may be empty).
func (r *Repo) Delete(ctx context.Context, id string) (models.Image, string, error) {
	var (
		img     models.Image
		blobKey sql.NullString
		caption sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, specimen_id, url, blob_key, caption, position, created_at
		FROM specimen_images WHERE id = ?
	`, id).Scan(&img.ID, &img.SpecimenID, &img.URL, &blobKey, &caption, &img.Position, &img.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return img, "", ErrNotFound
		}
		return img, "", fmt.Errorf("get image: %w", err)
	}
	img.Caption = caption.String

	if _, err := r.DB.ExecContext(ctx, `DELETE FROM specimen_images WHERE id = ?`, id); err != nil {
		return img, "", fmt.Errorf("delete image: %w", err)
	}
	return img, blobKey.String, nil
}
