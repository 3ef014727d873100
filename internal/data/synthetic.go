package data

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/contactkeval/option-screener/internal/pricing"
)

const (
	synthRiskFree   = 0.04
	synthVolatility = 0.25
	synthExpiries   = 8
)

// syntheticProvider generates a plausible option chain without touching any
// external API. The spot price is derived from a hash of the ticker so
// repeated requests for the same symbol agree with each other; premiums come
// from Black-Scholes so returns scale sensibly with strike distance and time.
type syntheticProvider struct {
	now func() time.Time
}

// NewSyntheticProvider returns a keyless Provider for offline runs and demos.
func NewSyntheticProvider() Provider {
	return &syntheticProvider{now: time.Now}
}

// newSyntheticProviderAt pins the provider clock, for tests.
func newSyntheticProviderAt(now func() time.Time) *syntheticProvider {
	return &syntheticProvider{now: now}
}

func (p *syntheticProvider) spot(ticker string) float64 {
	h := fnv.New64a()
	h.Write([]byte(strings.ToUpper(ticker)))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	return 20.0 + rng.Float64()*480.0
}

func (p *syntheticProvider) CurrentPrice(_ context.Context, ticker string) (float64, string, error) {
	price := math.Round(p.spot(ticker)*100) / 100
	asOf := p.now().UTC().Format("2006-01-02 15:04:05 MST")
	return price, asOf, nil
}

// ExpirationDates returns the next several weekly (Friday) expirations.
func (p *syntheticProvider) ExpirationDates(_ context.Context, _ string) ([]time.Time, error) {
	day := p.now().UTC().Truncate(24 * time.Hour)
	for day.Weekday() != time.Friday {
		day = day.AddDate(0, 0, 1)
	}

	dates := make([]time.Time, 0, synthExpiries)
	for i := 0; i < synthExpiries; i++ {
		dates = append(dates, day.AddDate(0, 0, 7*i))
	}
	return dates, nil
}

// OptionChain builds a strike ladder around the synthetic spot and prices
// each rung with Black-Scholes.
func (p *syntheticProvider) OptionChain(_ context.Context, ticker string, expiry time.Time) ([]OptionQuote, []OptionQuote, error) {
	spot := p.spot(ticker)
	years := expiry.Sub(p.now()).Hours() / 24.0 / 365.0

	step := ladderStep(spot)
	low := math.Floor(spot*0.8/step) * step
	high := math.Ceil(spot*1.2/step) * step

	var calls, puts []OptionQuote
	for strike := low; strike <= high+1e-9; strike += step {
		callBid := math.Round(pricing.BlackScholesPrice(true, spot, strike, years, synthRiskFree, synthVolatility)*100) / 100
		putBid := math.Round(pricing.BlackScholesPrice(false, spot, strike, years, synthRiskFree, synthVolatility)*100) / 100

		calls = append(calls, OptionQuote{Strike: strike, Bid: callBid, InTheMoney: strike < spot})
		puts = append(puts, OptionQuote{Strike: strike, Bid: putBid, InTheMoney: strike > spot})
	}
	return calls, puts, nil
}

// ladderStep picks a strike spacing that looks like a listed chain.
func ladderStep(spot float64) float64 {
	switch {
	case spot < 25:
		return 0.5
	case spot < 100:
		return 1
	case spot < 250:
		return 2.5
	default:
		return 5
	}
}
