package cache

import "strings"

// Key prefixes. One namespace per logical lookup type so TTLs can differ
// and invalidation stays specific-key.
const (
	prefixLookupISBN  = "ol:isbn:"
	prefixLookupQuery = "ol:q:"
	prefixBookDetail  = "book:"

	// BooksListKey is invalidated on every catalog write.
	BooksListKey = "books:list"
)

// ISBNLookupKey keys an external lookup by raw ISBN.
func ISBNLookupKey(isbn string) string {
	return prefixLookupISBN + isbn
}

// TitleAuthorLookupKey keys an external lookup by normalized title and
// author, so " Clean Code " / "ROBERT MARTIN" and "clean code" /
// "robert martin" share one entry.
func TitleAuthorLookupKey(title, author string) string {
	t := strings.ToLower(strings.TrimSpace(title))
	a := strings.ToLower(strings.TrimSpace(author))
	return prefixLookupQuery + t + "|" + a
}

// BookDetailKey keys a single book record by id.
func BookDetailKey(id string) string {
	return prefixBookDetail + id
}
