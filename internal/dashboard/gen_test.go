package dashboard

import (
	"fmt"

	"pgregory.net/rapid"

	"lessonlink/internal/inventory"
)

var allRoles = []Role{RoleMain, RoleBandA, RoleBandB, "", "guest"}

func genRole() *rapid.Generator[Role] {
	return rapid.SampledFrom(allRoles)
}

func genBook() *rapid.Generator[inventory.Book] {
	return rapid.Custom(func(t *rapid.T) inventory.Book {
		b := inventory.Book{
			ID:           rapid.StringMatching(`[a-z0-9]{1,8}`).Draw(t, "id"),
			Module:       rapid.SampledFrom(inventory.AllModules).Draw(t, "module"),
			Band:         rapid.SampledFrom(inventory.AllBands).Draw(t, "band"),
			Barcode:      rapid.StringMatching(`[A-Z]{1,2}-[0-9]{1,4}`).Draw(t, "barcode"),
			LessonNumber: rapid.IntRange(0, 12).Draw(t, "lesson"),
			CopyNumber:   rapid.IntRange(1, 5).Draw(t, "copy"),
			Status:       inventory.Status(rapid.Bool().Draw(t, "status")),
		}
		if b.Status == inventory.Lent {
			b.StudentName = rapid.SampledFrom([]string{"Sam", "Jane", "Ali", "Maryam"}).Draw(t, "student")
		}
		return b
	})
}

func genBooks() *rapid.Generator[[]inventory.Book] {
	return rapid.SliceOfN(genBook(), 0, 30)
}

func genQuery() *rapid.Generator[string] {
	return rapid.OneOf(
		rapid.Just(""),
		rapid.SampledFrom([]string{"a", "b", "sam", "1", "  ", "divine", "-"}),
		rapid.StringMatching(`[a-z0-9 ]{0,4}`),
	)
}

// genFacets draws an arbitrary facet selection.
func genFacets() *rapid.Generator[Facets] {
	return rapid.Custom(func(t *rapid.T) Facets {
		var f Facets
		for _, b := range rapid.SliceOfN(rapid.SampledFrom(inventory.AllBands), 0, 3).Draw(t, "bands") {
			f.Bands.Toggle(b)
		}
		for _, m := range rapid.SliceOfN(rapid.SampledFrom(inventory.AllModules), 0, 2).Draw(t, "modules") {
			f.Modules.Toggle(m)
		}
		for _, n := range rapid.SliceOfN(rapid.IntRange(0, 12), 0, 2).Draw(t, "lessons") {
			f.Lessons.Toggle(n)
		}
		if rapid.Bool().Draw(t, "hasStatus") {
			s := inventory.Status(rapid.Bool().Draw(t, "status"))
			f.Status = &s
		}
		return f
	})
}

func ids(books []inventory.Book) []string {
	out := make([]string, 0, len(books))
	for _, b := range books {
		out = append(out, b.ID)
	}
	return out
}

func describe(f Facets) string {
	status := "any"
	if f.Status != nil {
		status = f.Status.String()
	}
	return fmt.Sprintf("bands=%v modules=%v lessons=%v status=%s", f.Bands.Values(), f.Modules.Values(), f.Lessons.Values(), status)
}
