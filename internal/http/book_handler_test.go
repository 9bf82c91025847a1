package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"libraryapi/internal/book"
	"libraryapi/internal/testutil"
)

type mockBookService struct {
	mock.Mock
}

func (m *mockBookService) Create(ctx context.Context, in book.CreateInput) (book.Book, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(book.Book), args.Error(1)
}

func (m *mockBookService) Get(ctx context.Context, id string) (book.Book, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(book.Book), args.Error(1)
}

func (m *mockBookService) Update(ctx context.Context, id string, in book.UpdateInput) (book.Book, error) {
	args := m.Called(ctx, id, in)
	return args.Get(0).(book.Book), args.Error(1)
}

func (m *mockBookService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockBookService) Search(ctx context.Context, q book.Query) ([]book.Book, int, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]book.Book), args.Int(1), args.Error(2)
}

func newBookMux(svc BookService) *http.ServeMux {
	h := NewBookHandler(svc)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /books", h.Create)
	mux.HandleFunc("GET /books", h.List)
	mux.HandleFunc("GET /books/{id}", h.Get)
	mux.HandleFunc("PATCH /books/{id}", h.Update)
	mux.HandleFunc("DELETE /books/{id}", h.Delete)
	return mux
}

func TestBookHandler_Create(t *testing.T) {
	body := map[string]any{
		"title":  "Clean Code",
		"author": "Robert Martin",
		"year":   2008,
		"pages":  464,
		"isbn":   "978-0132350884",
	}

	t.Run("created", func(t *testing.T) {
		svc := new(mockBookService)
		svc.On("Create", mock.Anything, mock.Anything).Return(testutil.TestBook, nil)

		w := httptest.NewRecorder()
		newBookMux(svc).ServeHTTP(w, testutil.NewRequest(http.MethodPost, "/books", body))

		resp := testutil.RecordHTTPResponse(w)
		assert.Equal(t, http.StatusCreated, resp.Code)
		assert.Equal(t, true, resp.Body["success"])
	})

	t.Run("malformed isbn rejected at the schema layer", func(t *testing.T) {
		svc := new(mockBookService)
		bad := map[string]any{
			"title": "x", "author": "y", "year": 2008, "pages": 1, "isbn": "not-an-isbn",
		}
		w := httptest.NewRecorder()
		newBookMux(svc).ServeHTTP(w, testutil.NewRequest(http.MethodPost, "/books", bad))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("domain validation maps to 400", func(t *testing.T) {
		svc := new(mockBookService)
		svc.On("Create", mock.Anything, mock.Anything).
			Return(book.Book{}, &book.ValidationError{Field: "year", Message: "must be between 1000 and 2026"})

		w := httptest.NewRecorder()
		newBookMux(svc).ServeHTTP(w, testutil.NewRequest(http.MethodPost, "/books", body))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("duplicate isbn maps to 409", func(t *testing.T) {
		svc := new(mockBookService)
		svc.On("Create", mock.Anything, mock.Anything).Return(book.Book{}, book.ErrISBNExists)

		w := httptest.NewRecorder()
		newBookMux(svc).ServeHTTP(w, testutil.NewRequest(http.MethodPost, "/books", body))

		resp := testutil.RecordHTTPResponse(w)
		assert.Equal(t, http.StatusConflict, resp.Code)
	})
}

func TestBookHandler_Get(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := new(mockBookService)
		svc.On("Get", mock.Anything, testutil.TestBook.ID).Return(testutil.TestBook, nil)

		w := httptest.NewRecorder()
		newBookMux(svc).ServeHTTP(w, testutil.NewRequest(http.MethodGet, "/books/"+testutil.TestBook.ID, nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown id is 404", func(t *testing.T) {
		svc := new(mockBookService)
		svc.On("Get", mock.Anything, testutil.TestBook.ID).Return(book.Book{}, book.ErrNotFound)

		w := httptest.NewRecorder()
		newBookMux(svc).ServeHTTP(w, testutil.NewRequest(http.MethodGet, "/books/"+testutil.TestBook.ID, nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("bad uuid is 400", func(t *testing.T) {
		svc := new(mockBookService)
		w := httptest.NewRecorder()
		newBookMux(svc).ServeHTTP(w, testutil.NewRequest(http.MethodGet, "/books/not-a-uuid", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})
}

func TestBookHandler_Delete(t *testing.T) {
	svc := new(mockBookService)
	svc.On("Delete", mock.Anything, testutil.TestBook.ID).Return(nil)

	w := httptest.NewRecorder()
	newBookMux(svc).ServeHTTP(w, testutil.NewRequest(http.MethodDelete, "/books/"+testutil.TestBook.ID, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestBookHandler_ListPagination(t *testing.T) {
	makeBooks := func(n int) []book.Book {
		out := make([]book.Book, n)
		for i := range out {
			out[i] = testutil.TestBook
		}
		return out
	}

	t.Run("first page of 25", func(t *testing.T) {
		svc := new(mockBookService)
		svc.On("Search", mock.Anything, mock.MatchedBy(func(q book.Query) bool {
			return q.Limit == 20 && q.Offset == 0
		})).Return(makeBooks(20), 25, nil)

		w := httptest.NewRecorder()
		newBookMux(svc).ServeHTTP(w, testutil.NewRequest(http.MethodGet, "/books?page=1&page_size=20", nil))

		resp := testutil.RecordHTTPResponse(w)
		require.Equal(t, http.StatusOK, resp.Code)

		meta := resp.Body["meta"].(map[string]interface{})
		assert.EqualValues(t, 25, meta["total"])
		assert.EqualValues(t, 2, meta["total_pages"])
		assert.Len(t, resp.Body["data"].([]interface{}), 20)
	})

	t.Run("second page of 25", func(t *testing.T) {
		svc := new(mockBookService)
		svc.On("Search", mock.Anything, mock.MatchedBy(func(q book.Query) bool {
			return q.Limit == 20 && q.Offset == 20
		})).Return(makeBooks(5), 25, nil)

		w := httptest.NewRecorder()
		newBookMux(svc).ServeHTTP(w, testutil.NewRequest(http.MethodGet, "/books?page=2&page_size=20", nil))

		resp := testutil.RecordHTTPResponse(w)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Len(t, resp.Body["data"].([]interface{}), 5)
	})

	t.Run("filters are passed through", func(t *testing.T) {
		svc := new(mockBookService)
		svc.On("Search", mock.Anything, mock.MatchedBy(func(q book.Query) bool {
			return q.Genre == "Programming" && q.Year != nil && *q.Year == 2008 &&
				q.Available != nil && *q.Available
		})).Return(nil, 0, nil)

		w := httptest.NewRecorder()
		newBookMux(svc).ServeHTTP(w, testutil.NewRequest(http.MethodGet,
			"/books?genre=Programming&year=2008&available=true", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("bad year filter is 400", func(t *testing.T) {
		svc := new(mockBookService)
		w := httptest.NewRecorder()
		newBookMux(svc).ServeHTTP(w, testutil.NewRequest(http.MethodGet, "/books?year=abc", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
	})
}
