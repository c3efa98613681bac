package docs

import "context"

// Entry is one documentation snippet used to ground a chat answer.
type Entry struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Repository looks up documentation by free-text search. Lookups are
// best-effort: the chat must answer without context when they fail.
type Repository interface {
	Search(ctx context.Context, query string, limit int) ([]Entry, error)
}
