package display

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/arthur-debert/tmpfiles/pkg/types"
	"github.com/dustin/go-humanize"
)

// textRenderer writes a human readable report
type textRenderer struct {
	w       io.Writer
	styles  styles
	verbose bool
}

func (r *textRenderer) RenderReport(report types.RunReport) error {
	var b strings.Builder
	s := r.styles

	for _, o := range report.Outcomes {
		if o.Status == types.StatusApplied && !o.Changed && !r.verbose {
			continue
		}
		marker, label := r.status(o)
		fmt.Fprintf(&b, "%s %-7s %s %s", marker, o.Phase, o.Rule.TypeString(), s.path.Render(o.Rule.Path))
		if label != "" {
			fmt.Fprintf(&b, "  %s", label)
		}
		b.WriteByte('\n')
		if o.Changed && r.verbose {
			for _, p := range o.Paths {
				fmt.Fprintf(&b, "    %s\n", s.muted.Render(p))
			}
		}
	}

	if len(report.Diagnostics) > 0 {
		fmt.Fprintf(&b, "\n%s\n", s.heading.Render("Configuration problems:"))
		for _, d := range report.Diagnostics {
			style := s.skipped
			if d.Severity == types.SeverityError {
				style = s.failed
			}
			fmt.Fprintf(&b, "  %s %s %s\n", s.muted.Render(d.Source.String()), style.Render(string(d.Severity)), d.Message)
		}
	}

	b.WriteByte('\n')
	b.WriteString(r.summary(report))
	b.WriteByte('\n')

	_, err := io.WriteString(r.w, b.String())
	return err
}

func (r *textRenderer) status(o types.Outcome) (marker, label string) {
	s := r.styles
	switch o.Status {
	case types.StatusFailed:
		return s.failed.Render("!"), s.failed.Render("failed: ") + o.Reason
	case types.StatusSkipped:
		return s.skipped.Render("-"), s.skipped.Render("skipped: ") + o.Reason
	}
	if !o.Changed {
		return s.muted.Render("="), s.muted.Render("unchanged")
	}
	if o.Removed > 0 {
		return s.changed.Render("+"), s.applied.Render(fmt.Sprintf("removed %d, freed %s", o.Removed, humanize.Bytes(uint64(o.Freed))))
	}
	return s.changed.Render("+"), ""
}

func (r *textRenderer) summary(report types.RunReport) string {
	s := r.styles
	sum := report.Summary

	parts := []string{
		s.applied.Render(fmt.Sprintf("%d applied", sum.Applied)) + fmt.Sprintf(" (%d changed)", sum.Changed),
		s.skipped.Render(fmt.Sprintf("%d skipped", sum.Skipped)),
	}
	failed := fmt.Sprintf("%d failed", sum.Failed)
	if sum.Failed > 0 {
		failed = s.failed.Render(failed)
	}
	parts = append(parts, failed)

	line := s.heading.Render(report.Mode.String()+":") + " " + strings.Join(parts, ", ")

	var removed int
	var freed int64
	for _, o := range report.Outcomes {
		removed += o.Removed
		freed += o.Freed
	}
	if removed > 0 {
		line += fmt.Sprintf("; removed %s entries, freed %s", humanize.Comma(int64(removed)), humanize.Bytes(uint64(freed)))
	}
	if report.DryRun {
		line += s.muted.Render(" (dry run)")
	}
	if report.Cancelled {
		line += s.failed.Render(" (cancelled)")
	}
	if !report.Started.IsZero() && !report.Finished.IsZero() {
		line += s.muted.Render(fmt.Sprintf(" in %s", report.Finished.Sub(report.Started).Round(time.Millisecond)))
	}
	return line
}

func (r *textRenderer) RenderError(err error) error {
	_, werr := fmt.Fprintf(r.w, "%s %v\n", r.styles.failed.Render("Error:"), err)
	return werr
}
