package db

import (
	"fmt"
	"io"
	"strings"

	"github.com/nickyhof/FlatDB/ps"
)

type ResultType int

const (
	QueryResultType ResultType = iota
	CommitResultType
	ListResultType
)

type Result interface {
	Type() ResultType
	Display(w io.Writer)
}

// QueryResult is the output of SELECT. Columns and Data are already
// projected and ordered by the table header.
type QueryResult struct {
	Columns          []string   `json:"columns"`
	Data             [][]string `json:"data"`
	RecordsRead      int        `json:"records_read"`
	ExecutionTimeSec float64    `json:"execution_time_sec"`
}

// Failure is a buffered statement that failed during COMMIT replay.
type Failure struct {
	Statement string `json:"statement"`
	Error     string `json:"error"`
}

type CommitResult struct {
	Transaction      ps.Transaction `json:"transaction"`
	Message          string         `json:"message,omitempty"`
	DatabasesCreated int            `json:"databases_created,omitempty"`
	TablesCreated    int            `json:"tables_created,omitempty"`
	RecordsWritten   int            `json:"records_written,omitempty"`
	RecordsUpdated   int            `json:"records_updated,omitempty"`
	RecordsDeleted   int            `json:"records_deleted,omitempty"`
	Buffered         bool           `json:"buffered,omitempty"`
	Pending          int            `json:"pending,omitempty"`
	Replayed         int            `json:"replayed,omitempty"`
	Discarded        int            `json:"discarded,omitempty"`
	Failures         []Failure      `json:"failures,omitempty"`
	Queries          []QueryResult  `json:"queries,omitempty"` // SELECTs replayed by COMMIT
	Ignored          bool           `json:"ignored,omitempty"`
	ExecutionTimeSec float64        `json:"execution_time_sec"`
}

// ListResult is catalog output such as database or table listings.
type ListResult struct {
	Columns []string   `json:"columns"`
	Data    [][]string `json:"data"`
}

func (result QueryResult) Type() ResultType {
	return QueryResultType
}

func (result CommitResult) Type() ResultType {
	return CommitResultType
}

func (result ListResult) Type() ResultType {
	return ListResultType
}

// formatDuration formats a duration in human-readable form
func formatDuration(secs float64) string {
	if secs < 0.001 {
		return "<1ms"
	} else if secs < 1 {
		return fmt.Sprintf("%dms", int(secs*1000))
	} else if secs < 60 {
		if secs < 10 {
			return fmt.Sprintf("%.1fs", secs)
		}
		return fmt.Sprintf("%ds", int(secs))
	}
	mins := int(secs / 60)
	remainSecs := int(secs) % 60
	if remainSecs == 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dm%ds", mins, remainSecs)
}

func (result QueryResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

func (result CommitResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

// FormatRow left-justifies every field in a 15 character column with no
// separator between fields.
func FormatRow(fields []string) string {
	var b strings.Builder
	for _, field := range fields {
		fmt.Fprintf(&b, "%-15s", field)
	}
	return b.String()
}

func (result QueryResult) Display(w io.Writer) {
	fmt.Fprintln(w, FormatRow(result.Columns))
	for _, row := range result.Data {
		fmt.Fprintln(w, FormatRow(row))
	}
	fmt.Fprintf(w, "%d rows (%s)\n", len(result.Data), result.ExecutionTime())
}

func (result CommitResult) Summary() string {
	if result.Message != "" {
		return result.Message
	}

	var parts []string
	if result.DatabasesCreated > 0 {
		parts = append(parts, fmt.Sprintf("%d database(s) created", result.DatabasesCreated))
	}
	if result.TablesCreated > 0 {
		parts = append(parts, fmt.Sprintf("%d table(s) created", result.TablesCreated))
	}
	if result.RecordsWritten > 0 {
		parts = append(parts, fmt.Sprintf("%d record(s) written", result.RecordsWritten))
	}
	if result.RecordsUpdated > 0 {
		parts = append(parts, fmt.Sprintf("%d record(s) updated", result.RecordsUpdated))
	}
	if result.RecordsDeleted > 0 {
		parts = append(parts, fmt.Sprintf("%d record(s) deleted", result.RecordsDeleted))
	}
	if len(parts) == 0 {
		return "OK"
	}
	return strings.Join(parts, ", ")
}

func (result CommitResult) Display(w io.Writer) {
	if result.Ignored {
		return
	}
	for _, query := range result.Queries {
		query.Display(w)
	}
	fmt.Fprintf(w, "%s (%s)\n", result.Summary(), result.ExecutionTime())
	for _, failure := range result.Failures {
		fmt.Fprintf(w, "  failed: %s: %s\n", failure.Statement, failure.Error)
	}
}

func (result ListResult) Display(w io.Writer) {
	if len(result.Data) == 0 {
		fmt.Fprintln(w, "(empty)")
		return
	}
	table := NewTable(w)
	table.Header(result.Columns)
	table.Bulk(result.Data)
	table.Render()
}
