package book

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a book is not found.
	ErrNotFound = errors.New("book not found")
	// ErrISBNExists is returned when a create or update collides with an
	// existing ISBN.
	ErrISBNExists = errors.New("book with this ISBN already exists")
)

// ValidationError reports a business-rule violation on an input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Book is a catalog record. Extra holds the enrichment metadata document
// as stored; it is replaced wholesale, never merged.
type Book struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Author      string          `json:"author"`
	Year        int             `json:"year"`
	Genre       string          `json:"genre,omitempty"`
	Pages       int             `json:"pages"`
	Available   bool            `json:"available"`
	ISBN        string          `json:"isbn,omitempty"`
	Description string          `json:"description,omitempty"`
	Extra       json.RawMessage `json:"extra,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CreateInput carries the validated fields for a new book.
type CreateInput struct {
	Title       string
	Author      string
	Year        int
	Genre       string
	Pages       int
	ISBN        string
	Description string
}

// UpdateInput is a patch: nil fields are left untouched.
type UpdateInput struct {
	Title       *string
	Author      *string
	Year        *int
	Genre       *string
	Pages       *int
	Available   *bool
	ISBN        *string
	Description *string
}

// Query defines filters and pagination for searching the catalog.
type Query struct {
	Title     string
	Author    string
	Genre     string
	Year      *int
	Available *bool
	Limit     int
	Offset    int
}
