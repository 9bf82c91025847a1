package book

import (
	"context"

	"libraryapi/internal/enrich"
)

// Repository is the storage contract for catalog records.
type Repository interface {
	Create(ctx context.Context, b *Book) error
	GetByID(ctx context.Context, id string) (Book, error)
	Update(ctx context.Context, id string, in UpdateInput) (Book, error)
	Delete(ctx context.Context, id string) (bool, error)
	FindByFilters(ctx context.Context, q Query) ([]Book, error)
	CountByFilters(ctx context.Context, q Query) (int, error)
	FindByISBN(ctx context.Context, isbn string) (Book, error)
}

// Enricher produces best-effort external metadata for a book. It never
// returns an error; availability problems arrive as a result status.
type Enricher interface {
	Enrich(ctx context.Context, title, author, isbn string) enrich.Result
}
