package command

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jmehdipour/worktimer/internal/model"
)

// Table is the tabular result of a command: ordered columns and rows.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

func NewTable(columns ...string) *Table {
	return &Table{Columns: columns, Rows: [][]any{}}
}

func (t *Table) Add(values ...any) {
	t.Rows = append(t.Rows, values)
}

// WriteText renders an aligned plain-text table.
func (t *Table) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Columns, "\t"))
	for _, r := range t.Rows {
		fmt.Fprintln(tw, strings.Join(cells(r), "\t"))
	}
	return tw.Flush()
}

func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	for _, r := range t.Rows {
		if err := cw.Write(cells(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func cells(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = cell(v)
	}
	return out
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case *string:
		if x == nil {
			return ""
		}
		return *x
	case *int64:
		if x == nil {
			return ""
		}
		return fmt.Sprint(*x)
	case float64:
		return fmt.Sprintf("%.2f", x)
	case *float64:
		if x == nil {
			return ""
		}
		return fmt.Sprintf("%.2f", *x)
	case time.Time:
		return x.Local().Format("2006-01-02 15:04")
	case *time.Time:
		if x == nil {
			return ""
		}
		return x.Local().Format("2006-01-02 15:04")
	case model.Date:
		return x.String()
	case *model.Date:
		if x == nil {
			return ""
		}
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}
