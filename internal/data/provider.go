// Package data provides market data provider implementations.
//
// A Provider answers three questions about a ticker: what does the stock
// trade at right now, which option expiration dates are listed, and what
// does the chain for one of those dates look like. Everything the screener
// computes is derived from those three calls.
package data

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ContractType distinguishes the two sides of an option chain.
type ContractType string

const (
	ContractCall ContractType = "call"
	ContractPut  ContractType = "put"
)

// OptionQuote is one raw option-chain row as returned by the data source.
// Rows are immutable once fetched; derived metrics live on screener rows.
type OptionQuote struct {
	Strike     float64
	Bid        float64
	InTheMoney bool
}

// Provider supplies market data for a single underlying.
type Provider interface {
	// CurrentPrice resolves the latest trade price and a human-readable
	// quote timestamp. Returns ErrNoPriceData when the source has no
	// recent price for the ticker.
	CurrentPrice(ctx context.Context, ticker string) (price float64, asOf string, err error)

	// ExpirationDates lists the option expiration dates available for the
	// ticker. An empty slice is a valid answer (no listed options).
	ExpirationDates(ctx context.Context, ticker string) ([]time.Time, error)

	// OptionChain fetches the raw call and put rows for one expiration date.
	OptionChain(ctx context.Context, ticker string, expiry time.Time) (calls, puts []OptionQuote, err error)
}

// ErrNoPriceData reports that the source answered but carried no usable
// price for the requested ticker.
var ErrNoPriceData = errors.New("no recent price data")

// APIError represents a non-success response from the market data API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("market data API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}
