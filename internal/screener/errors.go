package screener

import (
	"errors"
	"fmt"
)

// Expected, user-facing failures. The presentation layer maps these to
// specific warning messages; anything else is treated as unexpected and
// surfaced only generically.
var (
	// ErrNoPrice reports that the current stock price could not be resolved.
	ErrNoPrice = errors.New("unable to find the current stock price")

	// ErrNoExpirations reports a ticker with no listed options.
	ErrNoExpirations = errors.New("no options data available")

	// ErrNoMatchingOptions reports that every contract was filtered out.
	ErrNoMatchingOptions = errors.New("no options meet the specified criteria")
)

// InvalidInputError reports arguments that violate a precondition of one of
// the pure computation functions. It indicates a programmer error in the
// caller, not a bad ticker or an empty market.
type InvalidInputError struct {
	Arg    string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Arg, e.Reason)
}
