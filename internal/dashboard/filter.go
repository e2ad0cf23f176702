package dashboard

import (
	"strconv"
	"strings"

	"lessonlink/internal/inventory"
)

// Filter narrows books by role, then by the search query, then by facets.
// The result keeps the order of books.
func (p Policy) Filter(books []inventory.Book, role Role, query string, facets Facets) []inventory.Book {
	visible := make(map[inventory.Band]bool)
	for _, b := range p.VisibleBands(role) {
		visible[b] = true
	}
	q := strings.ToLower(strings.TrimSpace(query))

	out := make([]inventory.Book, 0, len(books))
	for _, book := range books {
		if !visible[book.Band] {
			continue
		}
		if q != "" && !matches(book, q) {
			continue
		}
		if !facets.admits(book) {
			continue
		}
		out = append(out, book)
	}
	return out
}

// Filter uses the default policy.
func Filter(books []inventory.Book, role Role, query string, facets Facets) []inventory.Book {
	return DefaultPolicy().Filter(books, role, query, facets)
}

// matches reports whether any searchable field contains q, which is
// already lower-cased. An unset lesson or student never matches.
func matches(b inventory.Book, q string) bool {
	fields := []string{
		b.Barcode,
		string(b.Band),
		b.Module.Label(),
		b.Module.String(),
		strconv.Itoa(b.CopyNumber),
	}
	if b.LessonNumber != 0 {
		fields = append(fields, strconv.Itoa(b.LessonNumber))
	}
	if b.StudentName != "" {
		fields = append(fields, b.StudentName)
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}
