package screener

import (
	"fmt"

	"github.com/Knetic/govaluate"
)

// RowPredicate is a user-supplied boolean expression evaluated against each
// row after the standard filters. Available parameters:
//
//	strike, bid, annualized_return, breakeven_pct (numbers)
//	in_the_money (boolean)
type RowPredicate struct {
	src  string
	expr *govaluate.EvaluableExpression
}

// NewRowPredicate compiles a where expression. A malformed expression is a
// caller mistake and yields *InvalidInputError.
func NewRowPredicate(where string) (*RowPredicate, error) {
	expr, err := govaluate.NewEvaluableExpression(where)
	if err != nil {
		return nil, &InvalidInputError{Arg: "where", Reason: err.Error()}
	}
	return &RowPredicate{src: where, expr: expr}, nil
}

// Keep reports whether the row satisfies the predicate.
func (p *RowPredicate) Keep(r Row) (bool, error) {
	params := map[string]interface{}{
		"strike":            r.Quote.Strike,
		"bid":               r.Quote.Bid,
		"in_the_money":      r.Quote.InTheMoney,
		"annualized_return": r.AnnualizedReturn,
		"breakeven_pct":     r.BreakevenPct,
	}

	result, err := p.expr.Evaluate(params)
	if err != nil {
		return false, fmt.Errorf("evaluating %q: %w", p.src, err)
	}

	keep, ok := result.(bool)
	if !ok {
		return false, &InvalidInputError{Arg: "where", Reason: fmt.Sprintf("%q does not evaluate to a boolean", p.src)}
	}
	return keep, nil
}

// Filter returns the rows satisfying the predicate.
func (p *RowPredicate) Filter(rows []Row) ([]Row, error) {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		keep, err := p.Keep(r)
		if err != nil {
			return nil, err
		}
		if keep {
			out = append(out, r)
		}
	}
	return out, nil
}
