package postgres

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"

	"github.com/mietevo/mietevo-backend/internal/domain/application"
	ierr "github.com/mietevo/mietevo-backend/internal/errors"
	"github.com/mietevo/mietevo-backend/internal/logger"
	"github.com/mietevo/mietevo-backend/internal/postgres"
)

type applicationRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewApplicationRepository(db postgres.IClient, logger *logger.Logger) application.Repository {
	return &applicationRepository{db: db, logger: logger}
}

func (r *applicationRepository) GetStoragePath(ctx context.Context, emailID string) (string, error) {
	query := `SELECT storage_path FROM application_emails WHERE id = $1`

	var path *string
	err := r.db.Pool().QueryRow(ctx, query, emailID).Scan(&path)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ierr.NewErrorf("application email %s not found", emailID).
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("failed to look up email storage path").
			WithMessagef("email_id:%s", emailID).
			Mark(ierr.ErrDatabase)
	}
	if path == nil {
		return "", nil
	}
	return *path, nil
}

// SaveExtraction merges the extraction into the applicant's metadata and
// projects the contact fields into their own columns. COALESCE keeps
// existing column values when the extraction came back empty.
func (r *applicationRepository) SaveExtraction(ctx context.Context, emailID string, extraction *application.Extraction) error {
	payload, err := json.Marshal(extraction)
	if err != nil {
		return ierr.WithError(err).
			WithHint("failed to encode extraction").
			Mark(ierr.ErrSystem)
	}

	query := `
	UPDATE application_emails
	SET metadata = COALESCE(metadata, '{}'::jsonb) || jsonb_build_object('extraction', $2::jsonb),
		applicant_name = COALESCE(NULLIF($3, ''), applicant_name),
		applicant_email = COALESCE(NULLIF($4, ''), applicant_email),
		applicant_phone = COALESCE(NULLIF($5, ''), applicant_phone),
		processed_at = now()
	WHERE id = $1
	`

	tag, err := r.db.Pool().Exec(
		ctx, query,
		emailID,
		payload,
		extraction.DisplayName(),
		extraction.PersonalInfo.Email,
		extraction.PersonalInfo.Phone,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("failed to save extraction").
			WithMessagef("email_id:%s", emailID).
			Mark(ierr.ErrDatabase)
	}
	if tag.RowsAffected() == 0 {
		return ierr.NewErrorf("application email %s not found", emailID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
