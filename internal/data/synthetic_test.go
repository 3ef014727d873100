package data

import (
	"context"
	"testing"
	"time"
)

func synthNow() time.Time {
	return time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
}

func TestSyntheticPriceIsDeterministic(t *testing.T) {
	p := newSyntheticProviderAt(synthNow)

	a, _, err := p.CurrentPrice(context.Background(), "QQQ")
	if err != nil {
		t.Fatalf("CurrentPrice: %v", err)
	}
	b, _, err := p.CurrentPrice(context.Background(), "qqq")
	if err != nil {
		t.Fatalf("CurrentPrice: %v", err)
	}
	if a != b {
		t.Fatalf("same ticker priced differently: %v vs %v", a, b)
	}
	if a < 20 || a > 500 {
		t.Fatalf("spot %v outside expected range", a)
	}

	other, _, _ := p.CurrentPrice(context.Background(), "SPY")
	if other == a {
		t.Fatalf("distinct tickers collided on price %v", a)
	}
}

func TestSyntheticExpirationsAreFridays(t *testing.T) {
	p := newSyntheticProviderAt(synthNow)

	dates, err := p.ExpirationDates(context.Background(), "QQQ")
	if err != nil {
		t.Fatalf("ExpirationDates: %v", err)
	}
	if len(dates) != synthExpiries {
		t.Fatalf("got %d dates, want %d", len(dates), synthExpiries)
	}
	for i, d := range dates {
		if d.Weekday() != time.Friday {
			t.Errorf("dates[%d] = %v is a %v, want Friday", i, d, d.Weekday())
		}
		if i > 0 && !dates[i-1].AddDate(0, 0, 7).Equal(d) {
			t.Errorf("dates[%d] = %v is not one week after dates[%d]", i, d, i-1)
		}
	}
	// 2026-01-01 is a Thursday, so the first Friday is the next day.
	if want := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC); !dates[0].Equal(want) {
		t.Fatalf("dates[0] = %v, want %v", dates[0], want)
	}
}

func TestSyntheticOptionChain(t *testing.T) {
	p := newSyntheticProviderAt(synthNow)

	spot, _, err := p.CurrentPrice(context.Background(), "QQQ")
	if err != nil {
		t.Fatalf("CurrentPrice: %v", err)
	}

	expiry := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	calls, puts, err := p.OptionChain(context.Background(), "QQQ", expiry)
	if err != nil {
		t.Fatalf("OptionChain: %v", err)
	}
	if len(calls) == 0 || len(puts) == 0 {
		t.Fatalf("empty chain: %d calls, %d puts", len(calls), len(puts))
	}
	if len(calls) != len(puts) {
		t.Fatalf("ladder mismatch: %d calls vs %d puts", len(calls), len(puts))
	}

	for i, c := range calls {
		if c.Bid < 0 {
			t.Errorf("calls[%d] negative bid %v", i, c.Bid)
		}
		if got, want := c.InTheMoney, c.Strike < spot; got != want {
			t.Errorf("calls[%d] strike %v InTheMoney = %v, want %v (spot %v)", i, c.Strike, got, want, spot)
		}
	}
	for i, q := range puts {
		if got, want := q.InTheMoney, q.Strike > spot; got != want {
			t.Errorf("puts[%d] strike %v InTheMoney = %v, want %v (spot %v)", i, q.Strike, got, want, spot)
		}
	}

	// deeper OTM puts carry smaller premiums
	if puts[0].Bid > puts[len(puts)-1].Bid {
		t.Fatalf("put premium should rise with strike: first %v, last %v", puts[0].Bid, puts[len(puts)-1].Bid)
	}
}
