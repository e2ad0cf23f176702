package dashboard

import (
	"cmp"
	"slices"

	"lessonlink/internal/inventory"
)

// Set is a multi-select facet. The zero value is an empty selection.
type Set[T cmp.Ordered] map[T]struct{}

func NewSet[T cmp.Ordered](values ...T) Set[T] {
	s := Set[T]{}
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// Toggle adds v when absent and removes it when present.
func (s *Set[T]) Toggle(v T) {
	if *s == nil {
		*s = Set[T]{}
	}
	if _, ok := (*s)[v]; ok {
		delete(*s, v)
		return
	}
	(*s)[v] = struct{}{}
}

func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

func (s Set[T]) Len() int { return len(s) }

// Values returns the selection in ascending order.
func (s Set[T]) Values() []T {
	out := make([]T, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// admits is the pass-through rule: an empty selection admits everything.
func (s Set[T]) admits(v T) bool {
	return len(s) == 0 || s.Has(v)
}

// Facets are the optional narrowing filters applied after search.
type Facets struct {
	Bands   Set[inventory.Band]
	Modules Set[inventory.Module]
	Lessons Set[int]
	Copies  Set[int]
	Status  *inventory.Status
}

// SetStatus restricts results to one status; nil clears the restriction.
func (f *Facets) SetStatus(s *inventory.Status) {
	f.Status = s
}

func (f Facets) admits(b inventory.Book) bool {
	return f.Bands.admits(b.Band) &&
		f.Modules.admits(b.Module) &&
		f.Lessons.admits(b.LessonNumber) &&
		f.Copies.admits(b.CopyNumber) &&
		(f.Status == nil || *f.Status == b.Status)
}
