package screener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/contactkeval/option-screener/internal/data"
)

// DefaultConcurrency bounds the number of expiration dates fetched in
// parallel when the caller does not choose a limit.
const DefaultConcurrency = 8

// Screener runs the fetch-compute-filter pipeline over every expiration
// date of a ticker. It holds no per-request state; one Screener serves any
// number of concurrent scans.
type Screener struct {
	prov        data.Provider
	logger      arbor.ILogger
	concurrency int
	now         func() time.Time
}

// Option configures a Screener.
type Option func(*Screener)

// WithLogger sets the logger used for scan progress.
func WithLogger(logger arbor.ILogger) Option {
	return func(s *Screener) {
		s.logger = logger
	}
}

// WithConcurrency bounds the per-expiration worker pool. Zero or negative
// means one worker per expiration date.
func WithConcurrency(n int) Option {
	return func(s *Screener) {
		s.concurrency = n
	}
}

// WithClock overrides the clock used for days-to-expiration, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Screener) {
		s.now = now
	}
}

// New constructs a Screener over the given market data provider.
func New(prov data.Provider, opts ...Option) *Screener {
	s := &Screener{
		prov:        prov,
		concurrency: DefaultConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = arbor.NewLogger()
	}
	return s
}

// daysUntil truncates toward zero, so anything inside the next 24 hours
// counts as zero days and is skipped as a same-day expiration.
func (s *Screener) daysUntil(expiry time.Time) int {
	return int(expiry.Sub(s.now()).Hours() / 24)
}

// computeSide runs the return engine and filter stage for one side of the
// chain and stamps the survivors with the expiration date and stock price.
func computeSide(raw []data.OptionQuote, contractType data.ContractType, stockPrice float64, days int, expiry time.Time, opts FilterOptions, pred *RowPredicate) (Table, error) {
	rows, err := ComputeReturns(raw, stockPrice, days, contractType)
	if err != nil {
		return nil, err
	}

	rows = ApplyFilters(rows, opts)
	if pred != nil {
		rows, err = pred.Filter(rows)
		if err != nil {
			return nil, err
		}
	}
	if len(rows) == 0 {
		return nil, nil
	}

	out := make(Table, len(rows))
	for i, r := range rows {
		r.Expiration = expiry
		r.StockPrice = stockPrice
		out[i] = r
	}
	return out, nil
}

// processExpiration handles one expiration date: skip if expired or
// same-day, otherwise fetch the chain and compute both sides independently.
// Empty post-filter results are valid and contribute nothing.
func (s *Screener) processExpiration(ctx context.Context, ticker string, expiry time.Time, stockPrice float64, opts FilterOptions, pred *RowPredicate) (calls, puts Table, err error) {
	days := s.daysUntil(expiry)
	if days <= 0 {
		s.logger.Debug().
			Str("ticker", ticker).
			Str("expiry", expiry.UTC().Format("2006-01-02")).
			Msg("skipping expired or same-day expiration")
		return nil, nil, nil
	}

	rawCalls, rawPuts, err := s.prov.OptionChain(ctx, ticker, expiry)
	if err != nil {
		return nil, nil, fmt.Errorf("option chain for %s: %w", expiry.UTC().Format("2006-01-02"), err)
	}

	calls, err = computeSide(rawCalls, data.ContractCall, stockPrice, days, expiry, opts, pred)
	if err != nil {
		return nil, nil, err
	}
	puts, err = computeSide(rawPuts, data.ContractPut, stockPrice, days, expiry, opts, pred)
	if err != nil {
		return nil, nil, err
	}
	return calls, puts, nil
}

// FetchAndCompute resolves the current price and expiration list, fans one
// worker out per expiration date, and concatenates the surviving rows into
// a puts table and a calls table.
//
// The first failing worker cancels the rest and aborts the scan; there are
// no retries and no partial results. Concatenation order across expiration
// dates is unspecified.
func (s *Screener) FetchAndCompute(ctx context.Context, ticker string, opts FilterOptions) (puts, calls Table, err error) {
	var pred *RowPredicate
	if opts.Where != "" {
		pred, err = NewRowPredicate(opts.Where)
		if err != nil {
			return nil, nil, err
		}
	}

	price, asOf, err := s.prov.CurrentPrice(ctx, ticker)
	if err != nil {
		if errors.Is(err, data.ErrNoPriceData) {
			return nil, nil, fmt.Errorf("%w for %s", ErrNoPrice, ticker)
		}
		return nil, nil, fmt.Errorf("resolving price for %s: %w", ticker, err)
	}
	if price <= 0 {
		return nil, nil, fmt.Errorf("%w for %s", ErrNoPrice, ticker)
	}

	expiries, err := s.prov.ExpirationDates(ctx, ticker)
	if err != nil {
		return nil, nil, fmt.Errorf("listing expirations for %s: %w", ticker, err)
	}
	if len(expiries) == 0 {
		return nil, nil, fmt.Errorf("%w for %s", ErrNoExpirations, ticker)
	}

	s.logger.Info().
		Str("ticker", ticker).
		Float64("price", price).
		Str("as_of", asOf).
		Int("expirations", len(expiries)).
		Msg("starting scan")

	type sides struct {
		calls, puts Table
	}
	results := make([]sides, len(expiries))

	g, gctx := errgroup.WithContext(ctx)
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}
	for i, expiry := range expiries {
		g.Go(func() error {
			c, p, err := s.processExpiration(gctx, ticker, expiry, price, opts, pred)
			if err != nil {
				return err
			}
			results[i] = sides{calls: c, puts: p}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	for _, r := range results {
		calls = append(calls, r.calls...)
		puts = append(puts, r.puts...)
	}
	if len(calls) == 0 && len(puts) == 0 {
		return nil, nil, fmt.Errorf("%w for %s", ErrNoMatchingOptions, ticker)
	}

	s.logger.Info().
		Str("ticker", ticker).
		Int("puts", len(puts)).
		Int("calls", len(calls)).
		Msg("scan complete")
	return puts, calls, nil
}

// Scan is the full pipeline: FetchAndCompute followed by a pivot per side.
func (s *Screener) Scan(ctx context.Context, ticker string, opts FilterOptions) (putsPivot, callsPivot PivotMatrix, err error) {
	puts, calls, err := s.FetchAndCompute(ctx, ticker, opts)
	if err != nil {
		return PivotMatrix{}, PivotMatrix{}, err
	}
	return BuildPivot(puts), BuildPivot(calls), nil
}
