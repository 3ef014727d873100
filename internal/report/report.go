// Package report renders pivot matrices for humans and files: display
// formatting, CSV/JSON exports for the CLI, and a tabwriter dump for stdout.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/contactkeval/option-screener/internal/screener"
)

// FormatValue renders one pivot cell for display: annualized returns as a
// whole percentage, breakevens with one decimal, bids with two.
func FormatValue(metric string, v float64) string {
	switch metric {
	case screener.MetricAnnualizedReturn:
		return fmt.Sprintf("%.0f%%", v)
	case screener.MetricBreakevenPct:
		return fmt.Sprintf("%.1f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

// header renders a column label, e.g. "2026-02-20 bid".
func header(col screener.PivotColumn) string {
	return col.Expiration.UTC().Format("2006-01-02") + " " + col.Metric
}

// WriteCSV writes one pivot matrix as <name>.csv in outdir. Missing cells
// are left blank.
func WriteCSV(m screener.PivotMatrix, name, outdir string) error {
	f, err := os.Create(filepath.Join(outdir, name+".csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	headers := make([]string, 0, len(m.Columns)+1)
	headers = append(headers, "strike")
	for _, col := range m.Columns {
		headers = append(headers, header(col))
	}
	if err := w.Write(headers); err != nil {
		return err
	}

	for _, strike := range m.Strikes {
		row := make([]string, 0, len(m.Columns)+1)
		row = append(row, fmt.Sprintf("%g", strike))
		for _, col := range m.Columns {
			if v, ok := m.Cell(strike, col); ok {
				row = append(row, FormatValue(col.Metric, v))
			} else {
				row = append(row, "")
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

// PivotDoc is the JSON shape of one pivot matrix, shared by the file
// writer and the HTTP API.
type PivotDoc struct {
	Strikes []float64    `json:"strikes"`
	Columns []ColumnDoc  `json:"columns"`
	Cells   [][]*float64 `json:"cells"`
}

type ColumnDoc struct {
	Expiration string `json:"expiration"`
	Metric     string `json:"metric"`
}

// Doc converts a pivot matrix to its JSON document form.
func Doc(m screener.PivotMatrix) PivotDoc {
	doc := PivotDoc{Strikes: m.Strikes}
	for _, col := range m.Columns {
		doc.Columns = append(doc.Columns, ColumnDoc{
			Expiration: col.Expiration.UTC().Format("2006-01-02"),
			Metric:     col.Metric,
		})
	}
	for _, strike := range m.Strikes {
		row := make([]*float64, 0, len(m.Columns))
		for _, col := range m.Columns {
			if v, ok := m.Cell(strike, col); ok {
				row = append(row, &v)
			} else {
				row = append(row, nil)
			}
		}
		doc.Cells = append(doc.Cells, row)
	}
	return doc
}

// WriteJSON writes both pivots as pivots.json in outdir.
func WriteJSON(puts, calls screener.PivotMatrix, outdir string) error {
	out := struct {
		Puts  PivotDoc `json:"puts"`
		Calls PivotDoc `json:"calls"`
	}{
		Puts:  Doc(puts),
		Calls: Doc(calls),
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outdir, "pivots.json"), b, 0644)
}

// Fprint dumps a pivot matrix as an aligned text table.
func Fprint(w io.Writer, title string, m screener.PivotMatrix) {
	fmt.Fprintf(w, "\n%s\n", title)
	if m.Empty() {
		fmt.Fprintln(w, "  (no matching contracts)")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "strike")
	for _, col := range m.Columns {
		fmt.Fprint(tw, "\t", header(col))
	}
	fmt.Fprintln(tw)

	for _, strike := range m.Strikes {
		fmt.Fprintf(tw, "%g", strike)
		for _, col := range m.Columns {
			if v, ok := m.Cell(strike, col); ok {
				fmt.Fprint(tw, "\t", FormatValue(col.Metric, v))
			} else {
				fmt.Fprint(tw, "\t")
			}
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}
