package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"libraryapi/internal/book"
)

// BookService is the slice of the catalog service the handlers use.
type BookService interface {
	Create(ctx context.Context, in book.CreateInput) (book.Book, error)
	Get(ctx context.Context, id string) (book.Book, error)
	Update(ctx context.Context, id string, in book.UpdateInput) (book.Book, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, q book.Query) ([]book.Book, int, error)
}

type BookHandler struct {
	svc BookService
}

func NewBookHandler(svc BookService) *BookHandler {
	return &BookHandler{svc: svc}
}

type createBookReq struct {
	Title       string `json:"title" validate:"required,max=500"`
	Author      string `json:"author" validate:"required,max=300"`
	Year        int    `json:"year" validate:"required"`
	Genre       string `json:"genre" validate:"omitempty,max=100"`
	Pages       int    `json:"pages" validate:"required"`
	ISBN        string `json:"isbn" validate:"omitempty,isbn"`
	Description string `json:"description" validate:"omitempty,max=5000"`
}

type updateBookReq struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=500"`
	Author      *string `json:"author" validate:"omitempty,min=1,max=300"`
	Year        *int    `json:"year"`
	Genre       *string `json:"genre" validate:"omitempty,max=100"`
	Pages       *int    `json:"pages"`
	Available   *bool   `json:"available"`
	ISBN        *string `json:"isbn" validate:"omitempty,isbn"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
}

func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBookReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	if details := ValidateStruct(req); len(details) > 0 {
		JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}

	b, err := h.svc.Create(r.Context(), book.CreateInput{
		Title:       req.Title,
		Author:      req.Author,
		Year:        req.Year,
		Genre:       req.Genre,
		Pages:       req.Pages,
		ISBN:        req.ISBN,
		Description: req.Description,
	})
	if err != nil {
		writeBookError(w, err)
		return
	}
	JSONSuccessCreated(w, b)
}

func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}
	b, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeBookError(w, err)
		return
	}
	JSONSuccess(w, b, nil)
}

func (h *BookHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}

	var req updateBookReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body", nil)
		return
	}
	if details := ValidateStruct(req); len(details) > 0 {
		JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input", details)
		return
	}

	b, err := h.svc.Update(r.Context(), id, book.UpdateInput{
		Title:       req.Title,
		Author:      req.Author,
		Year:        req.Year,
		Genre:       req.Genre,
		Pages:       req.Pages,
		Available:   req.Available,
		ISBN:        req.ISBN,
		Description: req.Description,
	})
	if err != nil {
		writeBookError(w, err)
		return
	}
	JSONSuccess(w, b, nil)
}

func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeBookError(w, err)
		return
	}
	JSONSuccessNoContent(w)
}

func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	qp := r.URL.Query()
	q := book.Query{
		Title:  qp.Get("title"),
		Author: qp.Get("author"),
		Genre:  qp.Get("genre"),
	}
	if v := qp.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "year must be an integer", nil)
			return
		}
		q.Year = &year
	}
	if v := qp.Get("available"); v != "" {
		available := v == "true"
		q.Available = &available
	}

	page, _ := strconv.Atoi(qp.Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(qp.Get("page_size"))
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	q.Limit = pageSize
	q.Offset = (page - 1) * pageSize

	books, total, err := h.svc.Search(r.Context(), q)
	if err != nil {
		writeBookError(w, err)
		return
	}
	if books == nil {
		books = []book.Book{}
	}

	JSONSuccess(w, books, map[string]any{
		"page":        page,
		"page_size":   pageSize,
		"total":       total,
		"total_pages": (total + pageSize - 1) / pageSize,
	})
}

func bookID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid book id", nil)
		return "", false
	}
	return id, true
}

func writeBookError(w http.ResponseWriter, err error) {
	var vErr *book.ValidationError
	switch {
	case errors.As(err, &vErr):
		JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid input",
			[]ErrorDetail{{Field: vErr.Field, Message: vErr.Message}})
	case errors.Is(err, book.ErrISBNExists):
		JSONError(w, http.StatusConflict, "ALREADY_EXISTS", "Book with this ISBN already exists", nil)
	case errors.Is(err, book.ErrNotFound):
		JSONError(w, http.StatusNotFound, "NOT_FOUND", "Book not found", nil)
	default:
		JSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}
