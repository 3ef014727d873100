// Package screener computes income metrics for cash-secured puts and
// covered calls across every listed expiration date of a ticker, filters
// the results, and reshapes them into strike-by-expiration pivot matrices.
package screener

import (
	"time"

	"github.com/contactkeval/option-screener/internal/data"
)

// DefaultReturnThreshold is the minimum annualized return (percent) applied
// when the caller enables the return filter without choosing a threshold.
const DefaultReturnThreshold = 15.0

// Row pairs one raw option quote with its derived metrics. The worker stamps
// Expiration and StockPrice once a row survives filtering; ComputeReturns
// leaves them zero.
type Row struct {
	Quote data.OptionQuote

	// AnnualizedReturn is the premium expressed as a yearly-rate percentage
	// of the capital at risk. Never NaN or infinite; normalized to 0 when
	// the denominator is invalid.
	AnnualizedReturn float64

	// BreakevenPct is the percentage move in the underlying required to
	// reach the contract's breakeven point.
	BreakevenPct float64

	Expiration time.Time
	StockPrice float64
}

// Table is an ordered collection of rows for one contract side. Row order
// across expiration dates is unspecified; consumers key on
// (strike, expiration) identity only.
type Table []Row

// FilterOptions controls which rows survive a scan.
type FilterOptions struct {
	// ReturnFilter keeps only rows whose annualized return strictly exceeds
	// ReturnThreshold.
	ReturnFilter    bool
	ReturnThreshold float64

	// IncludeInTheMoney keeps in-the-money contracts. When false (the
	// default) only out-of-the-money rows survive.
	IncludeInTheMoney bool

	// Where is an optional boolean expression applied as an extra
	// predicate per row, e.g. "bid >= 0.05 && strike < 500". See
	// NewRowPredicate for the available parameters.
	Where string
}

// DefaultFilterOptions returns the options used when a caller passes no
// explicit threshold.
func DefaultFilterOptions() FilterOptions {
	return FilterOptions{ReturnThreshold: DefaultReturnThreshold}
}
