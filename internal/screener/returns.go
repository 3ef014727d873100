package screener

import (
	"fmt"
	"math"

	"github.com/contactkeval/option-screener/internal/data"
)

// ComputeReturns derives the annualized return and breakeven percentage for
// every quote. Pure: the input slice is never mutated.
//
// Cash-secured put: the capital reserved is the strike, so
//
//	annualized = bid / strike * 365 / days * 100
//	breakeven  = (price - (strike - bid)) / price * 100
//
// Covered call: the capital at risk is the stock itself, so
//
//	annualized = bid / price * 365 / days * 100
//	breakeven  = (strike + bid - price) / price * 100
//
// An annualized return that comes out infinite or NaN (a zero strike, for
// example) is normalized to 0. The breakeven is left as computed; dividing
// by the stock price is always valid under the preconditions.
func ComputeReturns(quotes []data.OptionQuote, stockPrice float64, daysToExpiration int, contractType data.ContractType) ([]Row, error) {
	if daysToExpiration <= 0 {
		return nil, &InvalidInputError{Arg: "daysToExpiration", Reason: fmt.Sprintf("must be positive, got %d", daysToExpiration)}
	}
	if stockPrice <= 0 {
		return nil, &InvalidInputError{Arg: "stockPrice", Reason: fmt.Sprintf("must be positive, got %g", stockPrice)}
	}

	days := float64(daysToExpiration)
	rows := make([]Row, 0, len(quotes))
	for _, q := range quotes {
		var annualized, breakeven float64
		switch contractType {
		case data.ContractPut:
			annualized = q.Bid / q.Strike * 365 / days * 100
			breakeven = (stockPrice - (q.Strike - q.Bid)) / stockPrice * 100
		case data.ContractCall:
			annualized = q.Bid / stockPrice * 365 / days * 100
			breakeven = (q.Strike + q.Bid - stockPrice) / stockPrice * 100
		default:
			return nil, &InvalidInputError{Arg: "contractType", Reason: fmt.Sprintf("unknown contract type %q", contractType)}
		}

		if math.IsInf(annualized, 0) || math.IsNaN(annualized) {
			annualized = 0
		}

		rows = append(rows, Row{Quote: q, AnnualizedReturn: annualized, BreakevenPct: breakeven})
	}
	return rows, nil
}

// ApplyFilters drops rows according to opts. The two filters compose with
// logical AND and are order-independent, so applying the result a second
// time returns it unchanged.
func ApplyFilters(rows []Row, opts FilterOptions) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if opts.ReturnFilter && r.AnnualizedReturn <= opts.ReturnThreshold {
			continue
		}
		if !opts.IncludeInTheMoney && r.Quote.InTheMoney {
			continue
		}
		out = append(out, r)
	}
	return out
}
