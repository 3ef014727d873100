package screener

import (
	"sort"
	"time"
)

// Metric names as they appear in pivot column headers. The byte-wise sort
// order "Annualized Return" < "Breakeven %" < "bid" determines the display
// column order within each expiration date.
const (
	MetricAnnualizedReturn = "Annualized Return"
	MetricBreakevenPct     = "Breakeven %"
	MetricBid              = "bid"
)

// MetricNames lists the pivot metrics in display order.
func MetricNames() []string {
	return []string{MetricAnnualizedReturn, MetricBreakevenPct, MetricBid}
}

// PivotColumn identifies one column of a PivotMatrix.
type PivotColumn struct {
	Expiration time.Time
	Metric     string
}

type cellKey struct {
	strike float64
	expiry int64
	metric string
}

// PivotMatrix is a strike-by-expiration table of aggregated metric values.
// Rows are the distinct strikes ascending; columns are the cartesian product
// of the distinct expiration dates and the three metrics, sorted by
// expiration then metric name. A missing (strike, expiration) combination
// simply has no cell.
type PivotMatrix struct {
	Strikes []float64
	Columns []PivotColumn

	cells map[cellKey]float64
}

// Empty reports whether the matrix has no rows.
func (m PivotMatrix) Empty() bool {
	return len(m.Strikes) == 0
}

// Cell returns the aggregated value for (strike, column). The second return
// is false when no quotes existed for that combination; callers render such
// cells blank, never as zero.
func (m PivotMatrix) Cell(strike float64, col PivotColumn) (float64, bool) {
	v, ok := m.cells[cellKey{strike: strike, expiry: col.Expiration.Unix(), metric: col.Metric}]
	return v, ok
}

// BuildPivot reshapes a table into a PivotMatrix. Rows sharing a
// (strike, expiration) pair are averaged per metric, not summed.
func BuildPivot(table Table) PivotMatrix {
	if len(table) == 0 {
		return PivotMatrix{}
	}

	type accum struct {
		bid, annualized, breakeven float64
		n                          int
	}
	type groupKey struct {
		strike float64
		expiry int64
	}

	groups := make(map[groupKey]*accum)
	expirySet := make(map[int64]time.Time)
	strikeSet := make(map[float64]struct{})

	for _, r := range table {
		k := groupKey{strike: r.Quote.Strike, expiry: r.Expiration.Unix()}
		g := groups[k]
		if g == nil {
			g = &accum{}
			groups[k] = g
		}
		g.bid += r.Quote.Bid
		g.annualized += r.AnnualizedReturn
		g.breakeven += r.BreakevenPct
		g.n++

		expirySet[r.Expiration.Unix()] = r.Expiration
		strikeSet[r.Quote.Strike] = struct{}{}
	}

	strikes := make([]float64, 0, len(strikeSet))
	for s := range strikeSet {
		strikes = append(strikes, s)
	}
	sort.Float64s(strikes)

	expiries := make([]time.Time, 0, len(expirySet))
	for _, dt := range expirySet {
		expiries = append(expiries, dt)
	}
	sort.Slice(expiries, func(i, j int) bool { return expiries[i].Before(expiries[j]) })

	columns := make([]PivotColumn, 0, len(expiries)*3)
	for _, dt := range expiries {
		for _, metric := range MetricNames() {
			columns = append(columns, PivotColumn{Expiration: dt, Metric: metric})
		}
	}

	cells := make(map[cellKey]float64, len(groups)*3)
	for k, g := range groups {
		n := float64(g.n)
		cells[cellKey{strike: k.strike, expiry: k.expiry, metric: MetricBid}] = g.bid / n
		cells[cellKey{strike: k.strike, expiry: k.expiry, metric: MetricAnnualizedReturn}] = g.annualized / n
		cells[cellKey{strike: k.strike, expiry: k.expiry, metric: MetricBreakevenPct}] = g.breakeven / n
	}

	return PivotMatrix{Strikes: strikes, Columns: columns, cells: cells}
}
