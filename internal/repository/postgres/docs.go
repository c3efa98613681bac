package postgres

import (
	"context"

	"github.com/mietevo/mietevo-backend/internal/domain/docs"
	ierr "github.com/mietevo/mietevo-backend/internal/errors"
	"github.com/mietevo/mietevo-backend/internal/logger"
	"github.com/mietevo/mietevo-backend/internal/postgres"
)

type docsRepository struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewDocsRepository(db postgres.IClient, logger *logger.Logger) docs.Repository {
	return &docsRepository{db: db, logger: logger}
}

// Search ranks documentation entries against the user's question. The
// server-side search function is preferred; plain full-text search is the
// fallback when it is not installed. German stemming matches the content
// language.
func (r *docsRepository) Search(ctx context.Context, query string, limit int) ([]docs.Entry, error) {
	entries, err := r.queryEntries(ctx, `SELECT title, content FROM search_documentation($1, $2)`, query, limit)
	if err == nil {
		return entries, nil
	}
	r.logger.Debugw("search function unavailable, falling back to text search", "error", err)

	fallback := `
	SELECT title, content
	FROM documentation
	WHERE to_tsvector('german', title || ' ' || content) @@ plainto_tsquery('german', $1)
	ORDER BY ts_rank(to_tsvector('german', title || ' ' || content), plainto_tsquery('german', $1)) DESC
	LIMIT $2
	`
	entries, err = r.queryEntries(ctx, fallback, query, limit)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to search documentation").
			Mark(ierr.ErrDatabase)
	}
	return entries, nil
}

func (r *docsRepository) queryEntries(ctx context.Context, sql, query string, limit int) ([]docs.Entry, error) {
	rows, err := r.db.Pool().Query(ctx, sql, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []docs.Entry
	for rows.Next() {
		var entry docs.Entry
		if err := rows.Scan(&entry.Title, &entry.Content); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
