package server

import (
	"net/http"

	"github.com/contactkeval/option-screener/internal/report"
	"github.com/contactkeval/option-screener/internal/screener"
)

// pageData feeds the index template. Form echoes the submitted request so
// the inputs keep their state next to the results.
type pageData struct {
	Form    scanRequest
	Warning string
	Puts    tableView
	Calls   tableView
}

// tableView is a pivot matrix flattened for HTML rendering: one expiration
// header spanning its three metric columns, then one row per strike.
type tableView struct {
	Title       string
	Expirations []string
	Metrics     []string
	Rows        []rowView
}

type rowView struct {
	Strike string
	Cells  []string
}

func (v tableView) Empty() bool {
	return len(v.Rows) == 0
}

func buildTableView(title string, m screener.PivotMatrix) tableView {
	view := tableView{Title: title}
	if m.Empty() {
		return view
	}

	for i, col := range m.Columns {
		if i%3 == 0 {
			view.Expirations = append(view.Expirations, col.Expiration.UTC().Format("2006-01-02"))
		}
		view.Metrics = append(view.Metrics, col.Metric)
	}

	for _, strike := range m.Strikes {
		row := rowView{Strike: report.FormatValue(screener.MetricBid, strike)}
		for _, col := range m.Columns {
			if v, ok := m.Cell(strike, col); ok {
				row.Cells = append(row.Cells, report.FormatValue(col.Metric, v))
			} else {
				row.Cells = append(row.Cells, "")
			}
		}
		view.Rows = append(view.Rows, row)
	}
	return view
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.Error().
			Err(err).
			Str("request_id", requestIDFrom(r.Context())).
			Msg("template render failed")
	}
}
