package enrich

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"libraryapi/internal/cache"
	"libraryapi/internal/platform/openlibrary"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) LookupByISBN(ctx context.Context, isbn string) (openlibrary.BookData, error) {
	args := m.Called(ctx, isbn)
	return args.Get(0).(openlibrary.BookData), args.Error(1)
}

func (m *mockClient) LookupByTitleAuthor(ctx context.Context, title, author string) (openlibrary.BookData, error) {
	args := m.Called(ctx, title, author)
	return args.Get(0).(openlibrary.BookData), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(client MetadataClient) *Service {
	return NewService(client, cache.NewMemory(), 5*time.Minute, testLogger())
}

var coverOnly = openlibrary.BookData{CoverURL: "https://covers.openlibrary.org/b/id/123-L.jpg"}

func TestEnrich_ISBNHitSkipsFallback(t *testing.T) {
	ctx := context.Background()
	m := new(mockClient)
	m.On("LookupByISBN", ctx, "9780132350884").Return(coverOnly, nil).Once()

	s := newTestService(m)
	res := s.Enrich(ctx, "Clean Code", "Robert Martin", "9780132350884")

	assert.Equal(t, StatusFound, res.Status)
	assert.Equal(t, coverOnly, res.Data)
	m.AssertNotCalled(t, "LookupByTitleAuthor", mock.Anything, mock.Anything, mock.Anything)
}

func TestEnrich_SecondLookupServedFromCache(t *testing.T) {
	ctx := context.Background()
	m := new(mockClient)
	m.On("LookupByISBN", ctx, "9780132350884").Return(coverOnly, nil).Once()

	s := newTestService(m)
	first := s.Enrich(ctx, "Clean Code", "Robert Martin", "9780132350884")
	second := s.Enrich(ctx, "Clean Code", "Robert Martin", "9780132350884")

	assert.Equal(t, first, second)
	m.AssertNumberOfCalls(t, "LookupByISBN", 1)
}

func TestEnrich_FallsBackToTitleAuthorOnEmptyISBNResult(t *testing.T) {
	ctx := context.Background()
	m := new(mockClient)
	m.On("LookupByISBN", ctx, "123").Return(openlibrary.BookData{}, nil).Once()
	m.On("LookupByTitleAuthor", ctx, "Clean Code", "Robert Martin").Return(coverOnly, nil).Once()

	s := newTestService(m)
	res := s.Enrich(ctx, "Clean Code", "Robert Martin", "123")

	assert.Equal(t, StatusFound, res.Status)
	assert.Equal(t, coverOnly, res.Data)
	m.AssertExpectations(t)
}

func TestEnrich_NoISBNGoesStraightToTitleAuthor(t *testing.T) {
	ctx := context.Background()
	m := new(mockClient)
	m.On("LookupByTitleAuthor", ctx, "Clean Code", "Robert Martin").Return(openlibrary.BookData{}, nil).Once()

	s := newTestService(m)
	res := s.Enrich(ctx, "Clean Code", "Robert Martin", "")

	assert.Equal(t, StatusNotFound, res.Status)
	m.AssertNotCalled(t, "LookupByISBN", mock.Anything, mock.Anything)
}

func TestEnrich_EmptyResultIsCached(t *testing.T) {
	ctx := context.Background()
	m := new(mockClient)
	m.On("LookupByTitleAuthor", ctx, "Unknown", "Nobody").Return(openlibrary.BookData{}, nil).Once()

	s := newTestService(m)
	s.Enrich(ctx, "Unknown", "Nobody", "")
	res := s.Enrich(ctx, "Unknown", "Nobody", "")

	assert.Equal(t, StatusNotFound, res.Status)
	m.AssertNumberOfCalls(t, "LookupByTitleAuthor", 1)
}

func TestEnrich_CacheKeyIsNormalized(t *testing.T) {
	ctx := context.Background()
	m := new(mockClient)
	m.On("LookupByTitleAuthor", ctx, mock.Anything, mock.Anything).Return(coverOnly, nil).Once()

	s := newTestService(m)
	s.Enrich(ctx, " Title ", "AUTHOR", "")
	res := s.Enrich(ctx, "title", "author", "")

	assert.Equal(t, StatusFound, res.Status)
	m.AssertNumberOfCalls(t, "LookupByTitleAuthor", 1)
}

func TestEnrich_ClientFailureIsUnavailableNotError(t *testing.T) {
	ctx := context.Background()
	m := new(mockClient)
	m.On("LookupByISBN", ctx, "123").Return(openlibrary.BookData{}, openlibrary.ErrTimeout)

	s := newTestService(m)
	res := s.Enrich(ctx, "Clean Code", "Robert Martin", "123")

	assert.Equal(t, StatusUnavailable, res.Status)
	assert.Nil(t, res.JSON())
	// failure at the ISBN step ends the attempt; no fallback on errors
	m.AssertNotCalled(t, "LookupByTitleAuthor", mock.Anything, mock.Anything, mock.Anything)
}

func TestEnrich_UnavailableIsNotCached(t *testing.T) {
	ctx := context.Background()
	m := new(mockClient)
	m.On("LookupByISBN", ctx, "123").Return(openlibrary.BookData{}, openlibrary.ErrUnavailable).Once()
	m.On("LookupByISBN", ctx, "123").Return(coverOnly, nil).Once()

	s := newTestService(m)
	first := s.Enrich(ctx, "Clean Code", "Robert Martin", "123")
	second := s.Enrich(ctx, "Clean Code", "Robert Martin", "123")

	assert.Equal(t, StatusUnavailable, first.Status)
	assert.Equal(t, StatusFound, second.Status)
	m.AssertNumberOfCalls(t, "LookupByISBN", 2)
}
