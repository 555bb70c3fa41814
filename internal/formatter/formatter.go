// package formatter exports batch reports to CSV, Markdown, JSON or plain text files
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/shared"
	"github.com/Hersthz/SWP391---EV-Charging-Station-Management-System-sub001/internal/tasks"
)

// resultRow is the flat, serializable form of a [tasks.BatchResult].
type resultRow struct {
	Index      int    `json:"index"`
	RequestID  string `json:"request_id"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	Status     int    `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

type reportDoc struct {
	Total     int         `json:"total"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	ElapsedMS int64       `json:"elapsed_ms"`
	Results   []resultRow `json:"results"`
}

func rows(report *tasks.BatchReport) []resultRow {
	out := make([]resultRow, 0, len(report.Results))
	for _, res := range report.Results {
		row := resultRow{
			Index:      res.Index,
			RequestID:  res.RequestID,
			Method:     res.Job.Method,
			Path:       res.Job.Path,
			Status:     res.Status,
			DurationMS: res.Duration.Milliseconds(),
		}
		if res.Err != nil {
			row.Error = res.Err.Error()
		}
		out = append(out, row)
	}
	return out
}

// ExportToCSV converts a report to CSV with columns: Index, RequestID, Method, Path, Status, DurationMS, Error
func ExportToCSV(report *tasks.BatchReport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Index", "RequestID", "Method", "Path", "Status", "DurationMS", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range rows(report) {
		record := []string{
			strconv.Itoa(row.Index),
			row.RequestID,
			row.Method,
			row.Path,
			strconv.Itoa(row.Status),
			strconv.FormatInt(row.DurationMS, 10),
			row.Error,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders a report as a Markdown document with a results table
func ExportToMarkdown(report *tasks.BatchReport, title string) ([]byte, error) {
	var buf bytes.Buffer

	if title == "" {
		title = "Batch report"
	}
	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Requests**: %d\n", report.Total)
	fmt.Fprintf(&buf, "**Succeeded**: %d\n", report.Succeeded)
	fmt.Fprintf(&buf, "**Failed**: %d\n", report.Failed)
	fmt.Fprintf(&buf, "**Elapsed**: %s\n\n", report.Elapsed.Round(time.Millisecond))

	buf.WriteString("## Results\n\n")
	buf.WriteString("| # | Method | Path | Status | Duration | Error |\n")
	buf.WriteString("|---|---|---|---|---|---|\n")
	for _, row := range rows(report) {
		fmt.Fprintf(&buf, "| %d | %s | `%s` | %d | %dms | %s |\n",
			row.Index+1, row.Method, row.Path, row.Status, row.DurationMS, strings.ReplaceAll(row.Error, "|", `\|`))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a report to plain text, one line per request
func ExportToText(report *tasks.BatchReport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Requests: %d (succeeded %d, failed %d)\n", report.Total, report.Succeeded, report.Failed)
	fmt.Fprintf(&buf, "Elapsed: %s\n\n", report.Elapsed.Round(time.Millisecond))

	for _, row := range rows(report) {
		fmt.Fprintf(&buf, "%d. %s %s -> %d", row.Index+1, row.Method, row.Path, row.Status)
		if row.Error != "" {
			fmt.Fprintf(&buf, " (%s)", row.Error)
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToJSON serializes a report with durations in milliseconds
func ExportToJSON(report *tasks.BatchReport) ([]byte, error) {
	return shared.MarshalJSON(reportDoc{
		Total:     report.Total,
		Succeeded: report.Succeeded,
		Failed:    report.Failed,
		ElapsedMS: report.Elapsed.Milliseconds(),
		Results:   rows(report),
	}, true)
}

// WriteReport exports a report to path, picking the format from its extension.
//
// .csv, .md, .json and .txt are supported.
func WriteReport(report *tasks.BatchReport, path string) error {
	if path == "" {
		return fmt.Errorf("%w: export path is empty", shared.ErrInvalidArgument)
	}

	var (
		data []byte
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		data, err = ExportToCSV(report)
	case ".md", ".markdown":
		data, err = ExportToMarkdown(report, "")
	case ".json":
		data, err = ExportToJSON(report)
	case ".txt":
		data, err = ExportToText(report)
	default:
		return fmt.Errorf("%w: unsupported export format %q", shared.ErrInvalidArgument, ext)
	}
	if err != nil {
		return fmt.Errorf("failed to generate export: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}
