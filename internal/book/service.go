package book

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"libraryapi/internal/cache"
	"libraryapi/internal/enrich"
)

const minYear = 1000

// Service holds the catalog business rules: validation, ISBN uniqueness,
// enrichment on create, and specific-key cache invalidation on writes.
type Service struct {
	repo      Repository
	enricher  Enricher
	cache     cache.Cache
	detailTTL time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo Repository, enricher Enricher, c cache.Cache, detailTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		enricher:  enricher,
		cache:     c,
		detailTTL: detailTTL,
		logger:    logger,
		now:       time.Now,
	}
}

// Create validates, checks ISBN uniqueness, enriches once, persists, and
// invalidates the list key plus the ISBN lookup key. A book is creatable
// even when the metadata service is down; enrichment trouble only costs
// the extra data.
func (s *Service) Create(ctx context.Context, in CreateInput) (Book, error) {
	if err := s.validateYear(in.Year); err != nil {
		return Book{}, err
	}
	if err := validatePages(in.Pages); err != nil {
		return Book{}, err
	}

	if in.ISBN != "" {
		_, err := s.repo.FindByISBN(ctx, in.ISBN)
		switch {
		case err == nil:
			return Book{}, ErrISBNExists
		case !errors.Is(err, ErrNotFound):
			return Book{}, err
		}
	}

	res := s.enricher.Enrich(ctx, in.Title, in.Author, in.ISBN)
	if res.Status == enrich.StatusUnavailable {
		s.logger.Warn("creating book without enrichment, metadata service unavailable",
			"title", in.Title, "author", in.Author)
	}

	b := Book{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Author:      in.Author,
		Year:        in.Year,
		Genre:       in.Genre,
		Pages:       in.Pages,
		Available:   true,
		ISBN:        in.ISBN,
		Description: in.Description,
		Extra:       res.JSON(),
	}
	if err := s.repo.Create(ctx, &b); err != nil {
		return Book{}, err
	}

	s.invalidate(ctx, cache.BooksListKey)
	if b.ISBN != "" {
		// The ISBN may have been looked up as unknown before this record
		// existed.
		s.invalidate(ctx, cache.ISBNLookupKey(b.ISBN))
	}
	return b, nil
}

// Get reads through the detail cache.
func (s *Service) Get(ctx context.Context, id string) (Book, error) {
	key := cache.BookDetailKey(id)
	if data, err := s.cache.Get(ctx, key); err == nil {
		var b Book
		if json.Unmarshal(data, &b) == nil {
			return b, nil
		}
	}

	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Book{}, err
	}
	if data, err := json.Marshal(b); err == nil {
		if err := s.cache.Set(ctx, key, data, s.detailTTL); err != nil {
			s.logger.Warn("cache write failed", "key", key, "error", err)
		}
	}
	return b, nil
}

// Update applies a patch: nil fields stay untouched. Enrichment is not
// re-run on update.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Book, error) {
	if in.Year != nil {
		if err := s.validateYear(*in.Year); err != nil {
			return Book{}, err
		}
	}
	if in.Pages != nil {
		if err := validatePages(*in.Pages); err != nil {
			return Book{}, err
		}
	}

	b, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return Book{}, err
	}

	s.invalidate(ctx, cache.BookDetailKey(id))
	s.invalidate(ctx, cache.BooksListKey)
	return b, nil
}

// Delete removes the record and every cache entry that could still serve
// it: the detail key, the list key, and the ISBN lookup key.
func (s *Service) Delete(ctx context.Context, id string) error {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}

	s.invalidate(ctx, cache.BookDetailKey(id))
	s.invalidate(ctx, cache.BooksListKey)
	if b.ISBN != "" {
		s.invalidate(ctx, cache.ISBNLookupKey(b.ISBN))
	}
	return nil
}

// Search returns matching books and the total count. Search results are
// never cached; filtering and pagination always hit storage.
func (s *Service) Search(ctx context.Context, q Query) ([]Book, int, error) {
	books, err := s.repo.FindByFilters(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountByFilters(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

func (s *Service) invalidate(ctx context.Context, key string) {
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("cache invalidation failed", "key", key, "error", err)
	}
}

func (s *Service) validateYear(year int) error {
	currentYear := s.now().Year()
	if year < minYear || year > currentYear {
		return &ValidationError{
			Field:   "year",
			Message: "must be between 1000 and " + strconv.Itoa(currentYear),
		}
	}
	return nil
}

func validatePages(pages int) error {
	if pages <= 0 {
		return &ValidationError{Field: "pages", Message: "must be positive"}
	}
	return nil
}
