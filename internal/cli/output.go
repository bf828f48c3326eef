package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/aalvaropc/doclane/internal/domain"
)

const (
	formatPretty = "pretty"
	formatJSON   = "json"
)

func checkFormat(format string) error {
	switch format {
	case formatPretty, formatJSON, "":
		return nil
	default:
		return fmt.Errorf("unsupported format %q (expected pretty|json)", format)
	}
}

// printOut writes v as indented JSON or hands w to pretty.
func printOut(w io.Writer, format string, v any, pretty func(io.Writer)) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatPretty, "":
		pretty(w)
		return nil
	default:
		return checkFormat(format)
	}
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func renderTable(w io.Writer, headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "(none)")
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.Render())
}

func printDocuments(w io.Writer, docs []domain.Document) {
	rows := make([][]string, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, []string{
			strconv.FormatInt(d.ID, 10),
			d.Filename,
			string(d.Status),
			humanSize(d.FileSizeBytes),
			stamp(d.UploadedAt),
		})
	}
	renderTable(w, []string{"ID", "FILENAME", "STATUS", "SIZE", "UPLOADED"}, rows)
}

func printDocument(w io.Writer, d domain.Document) {
	fmt.Fprintf(w, "Document:  %d\n", d.ID)
	fmt.Fprintf(w, "Filename:  %s\n", d.Filename)
	fmt.Fprintf(w, "Status:    %s\n", d.Status)
	if d.ContentType != "" {
		fmt.Fprintf(w, "Type:      %s\n", d.ContentType)
	}
	fmt.Fprintf(w, "Size:      %s\n", humanSize(d.FileSizeBytes))
	fmt.Fprintf(w, "Uploaded:  %s\n", stamp(d.UploadedAt))
	if d.ModifiedAt != nil {
		fmt.Fprintf(w, "Modified:  %s\n", stamp(*d.ModifiedAt))
	}
}

func printStatusReport(w io.Writer, r domain.DocumentStatusReport) {
	fmt.Fprintf(w, "Document:  %d (%s)\n", r.DocumentID, r.Filename)
	fmt.Fprintf(w, "Status:    %s\n", r.Status)
	if r.QueueID != nil {
		fmt.Fprintf(w, "Queue:     #%d %s\n", *r.QueueID, deref(r.QueueStatus))
	}
	if r.ProcessStart != nil {
		fmt.Fprintf(w, "Started:   %s\n", stamp(*r.ProcessStart))
	}
	if r.ProcessEnd != nil {
		fmt.Fprintf(w, "Ended:     %s\n", stamp(*r.ProcessEnd))
	}
	if r.ProcessingTime != nil {
		fmt.Fprintf(w, "Duration:  %.2fs\n", *r.ProcessingTime)
	}
	if r.ErrorMessage != nil {
		fmt.Fprintf(w, "Error:     %s\n", *r.ErrorMessage)
	}
	if r.ResultID != nil {
		fmt.Fprintf(w, "Result:    #%d %s", *r.ResultID, deref(r.ResultStatus))
		if r.ConfidenceScore != nil {
			fmt.Fprintf(w, " (confidence %s)", percent(*r.ConfidenceScore))
		}
		fmt.Fprintln(w)
	}
}

func printResults(w io.Writer, results []domain.ExtractionResult) {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			strconv.FormatInt(r.DocumentID, 10),
			string(r.ValidationStatus),
			percent(r.ConfidenceScore),
			r.Fields["invoice_number"],
			r.Fields["vendor_name"],
		})
	}
	renderTable(w, []string{"ID", "DOCUMENT", "STATUS", "CONFIDENCE", "INVOICE", "VENDOR"}, rows)
}

func printResult(w io.Writer, r domain.ExtractionResult) {
	fmt.Fprintf(w, "Result:      %d (document %d)\n", r.ID, r.DocumentID)
	fmt.Fprintf(w, "Status:      %s\n", r.ValidationStatus)
	fmt.Fprintf(w, "Confidence:  %s\n", percent(r.ConfidenceScore))
	if r.ValidatedAt != nil {
		fmt.Fprintf(w, "Validated:   %s\n", stamp(*r.ValidatedAt))
	}
	if r.Notes != "" {
		fmt.Fprintf(w, "Notes:       %s\n", r.Notes)
	}
	if len(r.Fields) == 0 {
		return
	}
	fmt.Fprintln(w)
	rows := make([][]string, 0, len(r.Fields))
	for _, k := range sortedKeys(r.Fields) {
		rows = append(rows, []string{k, r.Fields[k]})
	}
	renderTable(w, []string{"FIELD", "VALUE"}, rows)
}

func printQueueItems(w io.Writer, items []domain.QueueItem) {
	rows := make([][]string, 0, len(items))
	for _, q := range items {
		rows = append(rows, []string{
			strconv.FormatInt(q.ID, 10),
			strconv.FormatInt(q.DocumentID, 10),
			q.Status,
			strconv.Itoa(q.Priority),
			stamp(q.CreatedAt),
			deref(q.ErrorMessage),
		})
	}
	renderTable(w, []string{"ID", "DOCUMENT", "STATUS", "PRIORITY", "CREATED", "ERROR"}, rows)
}

func printQueueItem(w io.Writer, q domain.QueueItem) {
	fmt.Fprintf(w, "Queue item:  %d (document %d)\n", q.ID, q.DocumentID)
	fmt.Fprintf(w, "Status:      %s\n", q.Status)
	fmt.Fprintf(w, "Priority:    %d\n", q.Priority)
	fmt.Fprintf(w, "Created:     %s\n", stamp(q.CreatedAt))
	if q.ErrorMessage != nil {
		fmt.Fprintf(w, "Error:       %s\n", *q.ErrorMessage)
	}
}

func printStats(w io.Writer, s domain.Stats) {
	c := s.DocumentCounts
	fmt.Fprintf(w, "Documents:  %d total, %d pending, %d processing, %d processed, %d failed\n",
		c.Total, c.Pending, c.Processing, c.Processed, c.Failed)
	q := s.QueueCounts
	fmt.Fprintf(w, "Queue:      %d total, %d pending, %d processing, %d completed, %d failed\n",
		q.Total, q.Pending, q.Processing, q.Completed, q.Failed)
	fmt.Fprintf(w, "Averages:   confidence %s, processing %.2fs\n",
		percent(s.ProcessingMetrics.AvgConfidence), s.ProcessingMetrics.AvgProcessingTime)

	if len(s.RecentActivity.Results) > 0 {
		fmt.Fprintln(w)
		rows := make([][]string, 0, len(s.RecentActivity.Results))
		for _, r := range s.RecentActivity.Results {
			rows = append(rows, []string{
				strconv.FormatInt(r.DocumentID, 10),
				r.Status,
				percent(r.Confidence),
			})
		}
		renderTable(w, []string{"DOCUMENT", "RESULT", "CONFIDENCE"}, rows)
	}
}

func printMetrics(w io.Writer, m domain.ProcessingMetrics) {
	t := m.ProcessingTime
	fmt.Fprintf(w, "Text recognition:    %.2fs\n", t.TextRecognition)
	fmt.Fprintf(w, "Entity extraction:   %.2fs\n", t.EntityExtraction)
	fmt.Fprintf(w, "Database operations: %.2fs\n", t.DatabaseOperations)
	fmt.Fprintf(w, "Total:               %.2fs\n", t.Total)
	fmt.Fprintf(w, "Avg confidence:      %s\n", percent(m.AvgConfidence))

	if len(m.ErrorDistribution) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		for _, k := range sortedKeys(m.ErrorDistribution) {
			fmt.Fprintf(w, "  %-22s %s\n", k, percent(m.ErrorDistribution[k]))
		}
	}
	if len(m.Volume) > 0 {
		fmt.Fprintln(w, "\nVolume:")
		for _, p := range m.Volume {
			fmt.Fprintf(w, "  %-4s %4d %s\n", p.Name, p.Volume, strings.Repeat("#", p.Volume/5))
		}
	}
}

func printBatch(w io.Writer, r domain.BatchReport) {
	fmt.Fprintln(w, r.Summary())
	for _, f := range r.Failed {
		fmt.Fprintf(w, "  - document %d: %s\n", f.ID, domain.DetailOf(f.Err))
	}
	if len(r.Skipped) > 0 {
		fmt.Fprintf(w, "  skipped: %s\n", joinIDs(r.Skipped))
	}
	if len(r.Ineligible) > 0 {
		fmt.Fprintf(w, "  not eligible: %s\n", joinIDs(r.Ineligible))
	}
}

func stamp(t domain.Timestamp) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.DateTime)
}

func percent(f float64) string {
	return strconv.FormatFloat(f*100, 'f', 1, 64) + "%"
}

func humanSize(n int64) string {
	switch {
	case n <= 0:
		return "-"
	case n < 1<<10:
		return fmt.Sprintf("%d B", n)
	case n < 1<<20:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ", ")
}
