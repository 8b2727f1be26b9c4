package media

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sekolah-admin/backend/internal/models"
	"github.com/sekolah-admin/backend/pkg/apperr"
)

const fileCols = `id, file_path, file_name, file_type, file_size, mime_type,
	uploader_id, organization_id, metadata, is_public, created_at, updated_at`

// Repository handles media file metadata. The bytes themselves live in S3
// under the file_path key.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a media repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanFile(row pgx.Row) (*models.MediaFile, error) {
	var f models.MediaFile
	err := row.Scan(&f.ID, &f.FilePath, &f.FileName, &f.FileType, &f.FileSize, &f.MimeType,
		&f.UploaderID, &f.OrganizationID, &f.Metadata, &f.IsPublic, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// FileTypeForMime maps a MIME type to the broad stored class.
func FileTypeForMime(mime string) string {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return "image"
	case strings.HasPrefix(mime, "video/"):
		return "video"
	default:
		return "document"
	}
}

// Create inserts a file record.
func (r *Repository) Create(ctx context.Context, f *models.MediaFile) error {
	const q = `INSERT INTO media_files
		(file_path, file_name, file_type, file_size, mime_type, uploader_id, organization_id, metadata, is_public)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`
	if f.Metadata == nil {
		f.Metadata = map[string]interface{}{}
	}
	return r.pool.QueryRow(ctx, q, f.FilePath, f.FileName, f.FileType, f.FileSize, f.MimeType,
		f.UploaderID, f.OrganizationID, f.Metadata, f.IsPublic).
		Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
}

// GetByID returns a file record.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.MediaFile, error) {
	return scanFile(r.pool.QueryRow(ctx, `SELECT `+fileCols+` FROM media_files WHERE id = $1`, id))
}

// Filter narrows List results.
type Filter struct {
	FileType   string
	UploaderID *int64
	PublicOnly bool
}

// List returns filtered files newest first with the total count.
func (r *Repository) List(ctx context.Context, f Filter, offset, limit int) ([]models.MediaFile, int, error) {
	cond := ` WHERE TRUE`
	var args []interface{}
	if f.FileType != "" {
		args = append(args, f.FileType)
		cond += ` AND file_type = $` + strconv.Itoa(len(args))
	}
	if f.UploaderID != nil {
		args = append(args, *f.UploaderID)
		cond += ` AND uploader_id = $` + strconv.Itoa(len(args))
	}
	if f.PublicOnly {
		cond += ` AND is_public`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM media_files`+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + fileCols + ` FROM media_files` + cond +
		` ORDER BY created_at DESC OFFSET $` + strconv.Itoa(len(args)+1) + ` LIMIT $` + strconv.Itoa(len(args)+2)
	rows, err := r.pool.Query(ctx, q, append(args, offset, limit)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var list []models.MediaFile
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, *file)
	}
	return list, total, rows.Err()
}

// Delete removes a file record unless an RPP submission still references it.
func (r *Repository) Delete(ctx context.Context, id int64) (string, error) {
	var submissions int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM rpp_submissions WHERE file_id = $1`, id).Scan(&submissions); err != nil {
		return "", err
	}
	if submissions > 0 {
		return "", &apperr.HasDependentsError{Dependent: "RPP submissions", Count: submissions}
	}
	var key string
	err := r.pool.QueryRow(ctx,
		`DELETE FROM media_files WHERE id = $1 RETURNING file_path`, id).Scan(&key)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.ErrNotFound
	}
	return key, err
}
