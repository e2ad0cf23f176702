package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"lessonlink/internal/dashboard"
	"lessonlink/internal/inventory"
)

func newUsersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "users",
		Short:       "List the mock users you can log in as",
		Annotations: map[string]string{"offline": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.tabular() {
				return a.printJSON(dashboard.MockUsers)
			}
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "USERNAME\tROLE")
			for _, u := range dashboard.MockUsers {
				fmt.Fprintf(w, "%s\t%s\n", u.Username, u.Role)
			}
			return w.Flush()
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var (
		query   string
		bands   []string
		modules []int
		lessons []int
		copies  []int
		status  string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the books visible to you",
		RunE: func(cmd *cobra.Command, args []string) error {
			d := a.dashboard
			d.Query = query
			for _, s := range bands {
				b, err := inventory.ParseBand(s)
				if err != nil {
					return err
				}
				d.Facets.Bands.Toggle(b)
			}
			for _, m := range modules {
				d.Facets.Modules.Toggle(inventory.Module(m))
			}
			for _, n := range lessons {
				d.Facets.Lessons.Toggle(n)
			}
			for _, n := range copies {
				d.Facets.Copies.Toggle(n)
			}
			s, err := parseStatus(status)
			if err != nil {
				return err
			}
			d.Facets.SetStatus(s)

			return a.printBooks(d.Visible())
		},
	}
	cmd.Flags().StringVarP(&query, "search", "s", "", "free-text search")
	cmd.Flags().StringSliceVar(&bands, "band", nil, "only these bands")
	cmd.Flags().IntSliceVar(&modules, "module", nil, "only these modules")
	cmd.Flags().IntSliceVar(&lessons, "lesson", nil, "only these lesson numbers")
	cmd.Flags().IntSliceVar(&copies, "copy", nil, "only these copy numbers")
	cmd.Flags().StringVar(&status, "status", "", "available or lent")
	return cmd
}

func newSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Count available and lent copies per band",
		RunE: func(cmd *cobra.Command, args []string) error {
			summary := a.dashboard.Summary()
			if !a.tabular() {
				return a.printJSON(summary)
			}
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "BAND\tTOTAL\tAVAILABLE\tLENT")
			for _, s := range summary {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", s.Band, s.Total, s.Available, s.Lent)
			}
			return w.Flush()
		},
	}
}

func newCheckoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout <id> <student name>",
		Short: "Lend a book to a student",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := a.dashboard.Checkout(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			return a.printBooks([]inventory.Book{book})
		},
	}
}

func newCheckinCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "checkin <id>",
		Short: "Return a lent book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := a.dashboard.Checkin(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printBooks([]inventory.Book{book})
		},
	}
}

// bookFlags binds the editable fields shared by add and edit.
func bookFlags(cmd *cobra.Command, f *dashboard.EditFields, band *string, module *int) {
	cmd.Flags().IntVar(module, "module", 0, "module number (1-4)")
	cmd.Flags().StringVar(band, "band", "", "band letter (A-F)")
	cmd.Flags().StringVar(&f.Barcode, "barcode", "", "barcode")
	cmd.Flags().IntVar(&f.LessonNumber, "lesson", 0, "lesson number (bands A and B)")
	cmd.Flags().IntVar(&f.CopyNumber, "copy", 0, "copy number")
}

func newAddCmd(a *app) *cobra.Command {
	var (
		fields editFlags
		cover  string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book (manager only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := fields.resolve()
			if err != nil {
				return err
			}
			book, err := a.dashboard.Add(cmd.Context(), inventory.Book{
				Module:       f.Module,
				Band:         f.Band,
				Barcode:      f.Barcode,
				LessonNumber: f.LessonNumber,
				CopyNumber:   f.CopyNumber,
				Status:       inventory.Available,
				CoverImage:   cover,
			})
			if err != nil {
				return err
			}
			return a.printBooks([]inventory.Book{book})
		},
	}
	bookFlags(cmd, &fields.EditFields, &fields.band, &fields.module)
	cmd.Flags().StringVar(&cover, "cover", "", "cover image URL")
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	var fields editFlags
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a book's module, band, barcode, lesson or copy (manager only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			current, ok := a.dashboard.Catalog.Book(args[0])
			if !ok {
				return fmt.Errorf("book with ID %s: %w", args[0], inventory.ErrNotFound)
			}

			// Unset flags keep the current value.
			merged := dashboard.FieldsOf(current)
			flags := cmd.Flags()
			if flags.Changed("module") {
				merged.Module = inventory.Module(fields.module)
			}
			if flags.Changed("band") {
				b, err := inventory.ParseBand(fields.band)
				if err != nil {
					return err
				}
				merged.Band = b
			}
			if flags.Changed("barcode") {
				merged.Barcode = fields.Barcode
			}
			if flags.Changed("lesson") {
				merged.LessonNumber = fields.LessonNumber
			}
			if flags.Changed("copy") {
				merged.CopyNumber = fields.CopyNumber
			}

			book, err := a.dashboard.Edit(cmd.Context(), args[0], merged)
			if err != nil {
				return err
			}
			return a.printBooks([]inventory.Book{book})
		},
	}
	bookFlags(cmd, &fields.EditFields, &fields.band, &fields.module)
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a book (manager only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.dashboard.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Book deleted successfully")
			return nil
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show the recorded changes of a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.api.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !a.tabular() {
				return a.printJSON(entries)
			}
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tEVENT\tAT")
			for _, e := range entries {
				fmt.Fprintf(w, "%d\t%s\t%s\n", e.Version, e.EventType, e.CreatedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}

// editFlags holds raw flag values before band parsing.
type editFlags struct {
	dashboard.EditFields
	band   string
	module int
}

func (f editFlags) resolve() (dashboard.EditFields, error) {
	out := f.EditFields
	out.Module = inventory.Module(f.module)
	if f.band != "" {
		b, err := inventory.ParseBand(f.band)
		if err != nil {
			return out, err
		}
		out.Band = b
	}
	return out, nil
}

func (a *app) printBooks(books []inventory.Book) error {
	if !a.tabular() {
		return a.printJSON(books)
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tBAND\tMODULE\tLESSON\tCOPY\tBARCODE\tSTATUS\tSTUDENT")
	for _, b := range books {
		lesson := "-"
		if b.LessonNumber != 0 {
			lesson = fmt.Sprint(b.LessonNumber)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			b.ID, b.Band, b.Module, lesson, b.CopyNumber, b.Barcode, b.Status, b.StudentName)
	}
	return w.Flush()
}
