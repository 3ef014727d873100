package screener

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/contactkeval/option-screener/internal/data"
)

// fakeProvider serves canned chains keyed by expiration date.
type fakeProvider struct {
	price    float64
	priceErr error

	expiries    []time.Time
	expiriesErr error

	chains   map[string]fakeChain
	chainErr error

	chainCalls atomic.Int64
}

type fakeChain struct {
	calls []data.OptionQuote
	puts  []data.OptionQuote
}

func (f *fakeProvider) CurrentPrice(context.Context, string) (float64, string, error) {
	if f.priceErr != nil {
		return 0, "", f.priceErr
	}
	return f.price, "2026-01-01 14:30:00 UTC", nil
}

func (f *fakeProvider) ExpirationDates(context.Context, string) ([]time.Time, error) {
	if f.expiriesErr != nil {
		return nil, f.expiriesErr
	}
	return f.expiries, nil
}

func (f *fakeProvider) OptionChain(_ context.Context, _ string, expiry time.Time) ([]data.OptionQuote, []data.OptionQuote, error) {
	f.chainCalls.Add(1)
	if f.chainErr != nil {
		return nil, nil, f.chainErr
	}
	ch := f.chains[expiry.Format("2006-01-02")]
	return ch.calls, ch.puts, nil
}

var scanNow = date("2026-01-01")

func testScreener(prov data.Provider) *Screener {
	return New(prov, WithClock(func() time.Time { return scanNow }), WithConcurrency(4))
}

// The end-to-end scenario from the worked example: QQQ at 100, one put
// 30 days out at strike 95 bid 2.0.
func TestFetchAndComputeEndToEnd(t *testing.T) {
	expiry := scanNow.AddDate(0, 0, 30)
	prov := &fakeProvider{
		price:    100,
		expiries: []time.Time{expiry},
		chains: map[string]fakeChain{
			expiry.Format("2006-01-02"): {
				puts: []data.OptionQuote{{Strike: 95, Bid: 2.0, InTheMoney: false}},
			},
		},
	}

	puts, calls, err := testScreener(prov).FetchAndCompute(context.Background(), "QQQ", FilterOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 0 {
		t.Fatalf("expected no call rows, got %d", len(calls))
	}
	if len(puts) != 1 {
		t.Fatalf("expected one put row, got %d", len(puts))
	}

	row := puts[0]
	wantAnnualized := 2.0 / 95 * 365 / 30 * 100 // ~25.6
	if math.Abs(row.AnnualizedReturn-wantAnnualized) > 1e-9 {
		t.Errorf("annualized return = %v, want %v", row.AnnualizedReturn, wantAnnualized)
	}
	if math.Abs(row.BreakevenPct-7.0) > 1e-9 {
		t.Errorf("breakeven = %v, want 7.0", row.BreakevenPct)
	}
	if !row.Expiration.Equal(expiry) {
		t.Errorf("row not stamped with expiration: %v", row.Expiration)
	}
	if row.StockPrice != 100 {
		t.Errorf("row not stamped with stock price: %v", row.StockPrice)
	}

	pivot := BuildPivot(puts)
	if len(pivot.Strikes) != 1 || pivot.Strikes[0] != 95 {
		t.Fatalf("pivot strikes = %v, want [95]", pivot.Strikes)
	}
	ann, ok := pivot.Cell(95, PivotColumn{Expiration: expiry, Metric: MetricAnnualizedReturn})
	if !ok || math.Abs(ann-wantAnnualized) > 1e-9 {
		t.Errorf("pivot annualized cell = %v (ok=%v), want %v", ann, ok, wantAnnualized)
	}
}

// With a 30% threshold the only contract (~25.6%) is excluded, so the scan
// reports no matching options.
func TestFetchAndComputeThresholdExcludesAll(t *testing.T) {
	expiry := scanNow.AddDate(0, 0, 30)
	prov := &fakeProvider{
		price:    100,
		expiries: []time.Time{expiry},
		chains: map[string]fakeChain{
			expiry.Format("2006-01-02"): {
				puts: []data.OptionQuote{{Strike: 95, Bid: 2.0}},
			},
		},
	}

	_, _, err := testScreener(prov).FetchAndCompute(context.Background(), "QQQ",
		FilterOptions{ReturnFilter: true, ReturnThreshold: 30.0})
	if !errors.Is(err, ErrNoMatchingOptions) {
		t.Fatalf("expected ErrNoMatchingOptions, got %v", err)
	}
}

// An expiration equal to the scan date contributes zero rows without
// raising an error, and its chain is never fetched.
func TestFetchAndComputeSkipsSameDayExpiration(t *testing.T) {
	future := scanNow.AddDate(0, 0, 30)
	prov := &fakeProvider{
		price:    100,
		expiries: []time.Time{scanNow, future},
		chains: map[string]fakeChain{
			future.Format("2006-01-02"): {
				puts: []data.OptionQuote{{Strike: 95, Bid: 2.0}},
			},
		},
	}

	puts, _, err := testScreener(prov).FetchAndCompute(context.Background(), "QQQ", FilterOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(puts) != 1 {
		t.Fatalf("expected one put row from the future expiration, got %d", len(puts))
	}
	if got := prov.chainCalls.Load(); got != 1 {
		t.Fatalf("expected 1 chain fetch, got %d", got)
	}
}

func TestFetchAndComputeNoPrice(t *testing.T) {
	prov := &fakeProvider{priceErr: data.ErrNoPriceData}

	_, _, err := testScreener(prov).FetchAndCompute(context.Background(), "ZZZZ", FilterOptions{})
	if !errors.Is(err, ErrNoPrice) {
		t.Fatalf("expected ErrNoPrice, got %v", err)
	}
}

func TestFetchAndComputeNoExpirations(t *testing.T) {
	prov := &fakeProvider{price: 100}

	_, _, err := testScreener(prov).FetchAndCompute(context.Background(), "QQQ", FilterOptions{})
	if !errors.Is(err, ErrNoExpirations) {
		t.Fatalf("expected ErrNoExpirations, got %v", err)
	}
}

// A single failing worker aborts the whole aggregation.
func TestFetchAndComputeWorkerFailureAborts(t *testing.T) {
	boom := errors.New("connection reset")
	prov := &fakeProvider{
		price: 100,
		expiries: []time.Time{
			scanNow.AddDate(0, 0, 7),
			scanNow.AddDate(0, 0, 14),
			scanNow.AddDate(0, 0, 21),
		},
		chainErr: boom,
	}

	_, _, err := testScreener(prov).FetchAndCompute(context.Background(), "QQQ", FilterOptions{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the worker error to propagate, got %v", err)
	}
}

// Rows from every expiration land in the concatenated tables.
func TestFetchAndComputeAggregatesAcrossExpirations(t *testing.T) {
	e1 := scanNow.AddDate(0, 0, 7)
	e2 := scanNow.AddDate(0, 0, 14)
	prov := &fakeProvider{
		price:    100,
		expiries: []time.Time{e1, e2},
		chains: map[string]fakeChain{
			e1.Format("2006-01-02"): {
				calls: []data.OptionQuote{{Strike: 105, Bid: 1.0}},
				puts:  []data.OptionQuote{{Strike: 95, Bid: 1.2}},
			},
			e2.Format("2006-01-02"): {
				calls: []data.OptionQuote{{Strike: 110, Bid: 1.4}},
			},
		},
	}

	puts, calls, err := testScreener(prov).FetchAndCompute(context.Background(), "QQQ", FilterOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("expected 2 call rows, got %d", len(calls))
	}
	if len(puts) != 1 {
		t.Fatalf("expected 1 put row, got %d", len(puts))
	}
}

func TestFetchAndComputeWhereExpression(t *testing.T) {
	expiry := scanNow.AddDate(0, 0, 30)
	prov := &fakeProvider{
		price:    100,
		expiries: []time.Time{expiry},
		chains: map[string]fakeChain{
			expiry.Format("2006-01-02"): {
				puts: []data.OptionQuote{
					{Strike: 95, Bid: 2.0},
					{Strike: 90, Bid: 0.02},
				},
			},
		},
	}

	puts, _, err := testScreener(prov).FetchAndCompute(context.Background(), "QQQ",
		FilterOptions{Where: "bid >= 0.05"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(puts) != 1 || puts[0].Quote.Strike != 95 {
		t.Fatalf("expected only the strike-95 row, got %+v", puts)
	}
}

func TestScanBuildsBothPivots(t *testing.T) {
	expiry := scanNow.AddDate(0, 0, 30)
	prov := &fakeProvider{
		price:    100,
		expiries: []time.Time{expiry},
		chains: map[string]fakeChain{
			expiry.Format("2006-01-02"): {
				calls: []data.OptionQuote{{Strike: 105, Bid: 1.0}},
				puts:  []data.OptionQuote{{Strike: 95, Bid: 2.0}},
			},
		},
	}

	putsPivot, callsPivot, err := testScreener(prov).Scan(context.Background(), "QQQ", FilterOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if putsPivot.Empty() || callsPivot.Empty() {
		t.Fatalf("expected both pivots populated")
	}
	if putsPivot.Strikes[0] != 95 || callsPivot.Strikes[0] != 105 {
		t.Fatalf("unexpected pivot strikes: puts=%v calls=%v", putsPivot.Strikes, callsPivot.Strikes)
	}
}
