package commands

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/nhle/advisor-tasks/internal/aggregate"
	"github.com/nhle/advisor-tasks/internal/engine"
	"github.com/nhle/advisor-tasks/internal/model"
	"github.com/nhle/advisor-tasks/internal/theme"
)

const dateLayout = "2006-01-02 15:04"

// timeNow is the clock tasks are classified against.
var timeNow = time.Now

func writeRows(out io.Writer, rows []engine.Row) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tTITLE\tCATEGORY\tSCHEDULE")
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.Task.ID,
			theme.StatusBadge(r.Classification.Status()),
			r.Task.Title,
			r.CategoryLabel,
			r.Task.Schedule.Local().Format(dateLayout),
		)
	}
	_ = w.Flush()
}

func writeTask(out io.Writer, t *model.Task, status model.Status, category string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "ID\t%s\n", t.ID)
	_, _ = fmt.Fprintf(w, "Title\t%s\n", t.Title)
	_, _ = fmt.Fprintf(w, "Status\t%s\n", theme.StatusBadge(status))
	_, _ = fmt.Fprintf(w, "Category\t%s\n", category)
	_, _ = fmt.Fprintf(w, "Schedule\t%s\n", t.Schedule.Local().Format(dateLayout))
	if t.ContractNumber != "" {
		_, _ = fmt.Fprintf(w, "Contract\t%s\n", t.ContractNumber)
	}
	for _, ref := range []struct {
		label string
		ref   *model.Ref
	}{
		{"Customer", t.Customer},
		{"Company", t.Company},
		{"Manager", t.Manager},
	} {
		if ref.ref != nil {
			_, _ = fmt.Fprintf(w, "%s\t%s\n", ref.label, refLabel(ref.ref))
		}
	}
	if t.EntityRelated != nil {
		_, _ = fmt.Fprintf(w, "Related\t%s/%s\n", t.EntityRelated.Type, t.EntityRelated.ID)
	}
	_ = w.Flush()
	if t.Content != "" {
		_, _ = fmt.Fprintf(out, "\n%s\n", t.Content)
	}
}

func writeSection(out io.Writer, title string, sec aggregate.Section, label func(model.Aggregate) string) {
	_, _ = fmt.Fprintln(out, theme.HeaderStyle.Render(title))
	if sec.Err != nil && sec.Items == nil {
		_, _ = fmt.Fprintln(out, theme.ErrorStyle.Render("  unavailable: "+sec.Err.Error()))
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, a := range sec.Items {
		_, _ = fmt.Fprintf(w, "  %s\t%d\n", label(a), a.Count)
	}
	_ = w.Flush()
	if sec.Stale {
		_, _ = fmt.Fprintln(out, theme.HelpStyle.Render("  (stale)"))
	}
}

func refLabel(r *model.Ref) string {
	if r.Name != "" {
		return r.Name + " (" + r.ID + ")"
	}
	return r.ID
}

// parseSchedule accepts RFC3339 timestamps and plain dates.
func parseSchedule(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, dateLayout, "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid schedule %q: use YYYY-MM-DD, %q or RFC3339", s, dateLayout)
}
