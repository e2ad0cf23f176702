package dashboard

import (
	"errors"
	"strings"

	"lessonlink/internal/inventory"
)

var (
	ErrStudentNameRequired = errors.New("student name is required")
	ErrAlreadyLent         = errors.New("book is already lent; check it in first")
)

// Transition is a computed lifecycle step: the patch to persist and the
// book as it looks once the patch is applied.
type Transition struct {
	Patch inventory.BookPatch
	Next  inventory.Book
}

// Checkout lends an available book to student.
func Checkout(b inventory.Book, student string) (Transition, error) {
	student = strings.TrimSpace(student)
	if student == "" {
		return Transition{}, ErrStudentNameRequired
	}
	if b.Status == inventory.Lent {
		return Transition{}, ErrAlreadyLent
	}

	status := inventory.Lent
	patch := inventory.BookPatch{Status: &status, StudentName: &student}
	return Transition{Patch: patch, Next: patch.Apply(b)}, nil
}

// Checkin returns a lent book. ok is false when the book is already
// available, in which case nothing needs to be sent.
func Checkin(b inventory.Book) (t Transition, ok bool) {
	if b.Status == inventory.Available {
		return Transition{Next: b}, false
	}

	status := inventory.Available
	cleared := ""
	patch := inventory.BookPatch{Status: &status, StudentName: &cleared}
	return Transition{Patch: patch, Next: patch.Apply(b)}, true
}

// EditFields are the non-lifecycle fields an edit replaces.
type EditFields struct {
	Module       inventory.Module
	Band         inventory.Band
	Barcode      string
	LessonNumber int
	CopyNumber   int
}

// FieldsOf extracts the editable fields of b.
func FieldsOf(b inventory.Book) EditFields {
	return EditFields{
		Module:       b.Module,
		Band:         b.Band,
		Barcode:      b.Barcode,
		LessonNumber: b.LessonNumber,
		CopyNumber:   b.CopyNumber,
	}
}

// Edit replaces the non-lifecycle fields and keeps status and student.
func Edit(b inventory.Book, f EditFields) (Transition, error) {
	patch := inventory.BookPatch{
		Module:       &f.Module,
		Band:         &f.Band,
		Barcode:      &f.Barcode,
		LessonNumber: &f.LessonNumber,
		CopyNumber:   &f.CopyNumber,
	}
	next := patch.Apply(b)
	if err := next.Validate(); err != nil {
		return Transition{}, err
	}
	return Transition{Patch: patch, Next: next}, nil
}
