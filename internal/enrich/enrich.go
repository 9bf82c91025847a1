// Package enrich coordinates best-effort metadata enrichment. Lookups go
// through the cache before hitting the external client. It never fails
// its caller; upstream trouble is reported as a status, not an error.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"libraryapi/internal/cache"
	"libraryapi/internal/platform/openlibrary"
)

type Status int

const (
	// StatusFound: the lookup produced metadata.
	StatusFound Status = iota
	// StatusNotFound: the external service answered but knows nothing
	// about this book. Cached like any other result.
	StatusNotFound
	// StatusUnavailable: the external service could not be reached within
	// the retry budget. Not cached.
	StatusUnavailable
)

type Result struct {
	Status Status
	Data   openlibrary.BookData
}

// JSON returns the metadata document to persist, or nil when there is
// nothing to store. The document replaces any previous one wholesale.
func (r Result) JSON() json.RawMessage {
	if r.Status != StatusFound {
		return nil
	}
	b, err := json.Marshal(r.Data)
	if err != nil {
		return nil
	}
	return b
}

// MetadataClient is the slice of the Open Library client the coordinator
// needs.
type MetadataClient interface {
	LookupByISBN(ctx context.Context, isbn string) (openlibrary.BookData, error)
	LookupByTitleAuthor(ctx context.Context, title, author string) (openlibrary.BookData, error)
}

type Service struct {
	client MetadataClient
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

func NewService(client MetadataClient, c cache.Cache, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{client: client, cache: c, ttl: ttl, logger: logger}
}

// Enrich tries the ISBN-keyed lookup first (when an ISBN is given), then
// the title+author-keyed lookup when the first yields nothing. A client
// failure at either step ends the attempt with StatusUnavailable.
func (s *Service) Enrich(ctx context.Context, title, author, isbn string) Result {
	if isbn != "" {
		key := cache.ISBNLookupKey(isbn)
		data, err := s.cachedLookup(ctx, key, func(ctx context.Context) (openlibrary.BookData, error) {
			return s.client.LookupByISBN(ctx, isbn)
		})
		if err != nil {
			s.logger.Warn("enrichment lookup failed", "key", key, "error", err)
			return Result{Status: StatusUnavailable}
		}
		if !data.IsEmpty() {
			return Result{Status: StatusFound, Data: data}
		}
	}

	key := cache.TitleAuthorLookupKey(title, author)
	data, err := s.cachedLookup(ctx, key, func(ctx context.Context) (openlibrary.BookData, error) {
		return s.client.LookupByTitleAuthor(ctx, title, author)
	})
	if err != nil {
		s.logger.Warn("enrichment lookup failed", "key", key, "error", err)
		return Result{Status: StatusUnavailable}
	}
	if data.IsEmpty() {
		return Result{Status: StatusNotFound}
	}
	return Result{Status: StatusFound, Data: data}
}

// cachedLookup serves a lookup from cache when possible and otherwise
// fetches through singleflight. Whatever the client returned is cached,
// including the empty result: that is a real answer worth keeping.
func (s *Service) cachedLookup(ctx context.Context, key string, fetch func(context.Context) (openlibrary.BookData, error)) (openlibrary.BookData, error) {
	if b, err := s.cache.Get(ctx, key); err == nil {
		var d openlibrary.BookData
		if json.Unmarshal(b, &d) == nil {
			return d, nil
		}
		// corrupt entry, refetch below
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("cache read failed", "key", key, "error", err)
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		d, err := fetch(ctx)
		if err != nil {
			return openlibrary.BookData{}, err
		}
		if b, mErr := json.Marshal(d); mErr == nil {
			if sErr := s.cache.Set(ctx, key, b, s.ttl); sErr != nil {
				s.logger.Warn("cache write failed", "key", key, "error", sErr)
			}
		}
		return d, nil
	})
	if err != nil {
		return openlibrary.BookData{}, err
	}
	return v.(openlibrary.BookData), nil
}
