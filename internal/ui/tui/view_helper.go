package tui

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/aalvaropc/doclane/internal/domain"
	"github.com/aalvaropc/doclane/internal/views"
)

func clampString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))

	n := 0
	for _, r := range s {
		if n >= maxLen {
			break
		}
		b.WriteRune(r)
		n++
	}
	return b.String() + "…"
}

// bar draws v relative to maxV as a run of blocks at most width wide.
func bar(v, maxV float64, width int) string {
	if maxV <= 0 || v <= 0 || width <= 0 {
		return ""
	}
	n := int(v / maxV * float64(width))
	if n < 1 {
		n = 1
	}
	if n > width {
		n = width
	}
	return strings.Repeat("█", n)
}

func updatedLine(t Theme, at time.Time, err error) string {
	var b strings.Builder
	if at.IsZero() {
		b.WriteString(t.Help.Render("Loading..."))
	} else {
		b.WriteString(t.Help.Render("Updated " + at.Format(time.TimeOnly)))
	}
	if err != nil {
		b.WriteString("  ")
		b.WriteString(t.Error.Render(UserMessage(err)))
	}
	return b.String()
}

func renderQueue(t Theme, s views.QueueState, width int) string {
	var b strings.Builder

	c := s.Counts
	fmt.Fprintf(&b, "%s %d   %s %d   %s %d   %s %d   total %d\n\n",
		t.status(domain.StatusPending), c.Pending,
		t.status(domain.StatusProcessing), c.Processing,
		t.status(domain.StatusProcessed), c.Processed,
		t.status(domain.StatusFailed), c.Failed,
		c.Total,
	)

	nameWidth := 40
	if width > 0 && width-50 < nameWidth {
		nameWidth = max(width-50, 12)
	}

	if len(s.Documents) == 0 {
		b.WriteString(t.Subtitle.Render("No documents yet. Upload with `doclane docs upload <file.pdf>`."))
	} else {
		rows := make([][]string, 0, len(s.Documents))
		for _, d := range s.Documents {
			rows = append(rows, []string{
				strconv.FormatInt(d.ID, 10),
				clampString(d.Filename, nameWidth),
				t.status(d.Status),
				d.UploadedAt.Local().Format(time.DateTime),
			})
		}
		tbl := table.New().
			Border(lipgloss.HiddenBorder()).
			Headers("ID", "FILENAME", "STATUS", "UPLOADED").
			Rows(rows...).
			StyleFunc(func(row, _ int) lipgloss.Style {
				if row == table.HeaderRow {
					return t.Title.Padding(0, 1)
				}
				return lipgloss.NewStyle().Padding(0, 1)
			})
		b.WriteString(tbl.Render())
	}

	b.WriteString("\n\n")
	b.WriteString(updatedLine(t, s.UpdatedAt, s.Err))
	return b.String()
}

func renderDashboard(t Theme, s views.DashboardState) string {
	var b strings.Builder

	dc := s.Stats.DocumentCounts
	qc := s.Stats.QueueCounts
	b.WriteString(t.Title.Render("Documents"))
	fmt.Fprintf(&b, "  %d total • %d pending • %d processing • %d processed • %d failed\n",
		dc.Total, dc.Pending, dc.Processing, dc.Processed, dc.Failed)
	b.WriteString(t.Title.Render("Queue    "))
	fmt.Fprintf(&b, "  %d total • %d pending • %d processing • %d completed • %d failed\n",
		qc.Total, qc.Pending, qc.Processing, qc.Completed, qc.Failed)
	b.WriteString(t.Title.Render("Averages "))
	fmt.Fprintf(&b, "  confidence %.1f%% • processing %.2fs\n\n",
		s.Stats.ProcessingMetrics.AvgConfidence*100, s.Stats.ProcessingMetrics.AvgProcessingTime)

	pt := s.Metrics.ProcessingTime
	b.WriteString(t.Title.Render("Processing time"))
	b.WriteString("\n")
	stages := []struct {
		name string
		v    float64
	}{
		{"Text recognition", pt.TextRecognition},
		{"Entity extraction", pt.EntityExtraction},
		{"Database", pt.DatabaseOperations},
	}
	for _, st := range stages {
		fmt.Fprintf(&b, "  %-18s %5.2fs %s\n", st.name, st.v, bar(st.v, pt.Total, 30))
	}
	fmt.Fprintf(&b, "  %-18s %5.2fs\n\n", "Total", pt.Total)

	if len(s.Metrics.ErrorDistribution) > 0 {
		b.WriteString(t.Title.Render("Errors"))
		b.WriteString("\n")
		for _, k := range slices.Sorted(maps.Keys(s.Metrics.ErrorDistribution)) {
			v := s.Metrics.ErrorDistribution[k]
			fmt.Fprintf(&b, "  %-22s %5.1f%% %s\n", k, v*100, bar(v, 1, 30))
		}
		b.WriteString("\n")
	}

	if len(s.Metrics.Volume) > 0 {
		peak := 0
		for _, p := range s.Metrics.Volume {
			peak = max(peak, p.Volume)
		}
		b.WriteString(t.Title.Render("Volume"))
		b.WriteString("\n")
		for _, p := range s.Metrics.Volume {
			fmt.Fprintf(&b, "  %-4s %4d %s\n", p.Name, p.Volume, bar(float64(p.Volume), float64(peak), 30))
		}
		b.WriteString("\n")
	}

	b.WriteString(t.Title.Render("Recent documents"))
	b.WriteString("\n")
	if len(s.Recent) == 0 {
		b.WriteString(t.Subtitle.Render("  (none)"))
		b.WriteString("\n")
	}
	for _, d := range s.Recent {
		fmt.Fprintf(&b, "  #%-5d %-40s %s\n", d.ID, clampString(d.Filename, 40), t.status(d.Status))
	}

	b.WriteString("\n")
	b.WriteString(updatedLine(t, s.UpdatedAt, s.Err))
	return b.String()
}
