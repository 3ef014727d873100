package data

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

const (
	// DefaultYahooBaseURL is the base URL for the Yahoo Finance options API.
	DefaultYahooBaseURL = "https://query2.finance.yahoo.com"

	// DefaultYahooTimeout is the default HTTP timeout.
	DefaultYahooTimeout = 30 * time.Second

	// DefaultYahooRateLimit is the default rate limit (requests per second).
	DefaultYahooRateLimit = 5
)

// YahooClient implements Provider against the Yahoo Finance v7 options API.
// One chain request answers all three Provider questions: the quote block
// carries the underlying price, expirationDates lists the available dates,
// and requesting with ?date= returns the rows for that date.
type YahooClient struct {
	baseURL    string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter
}

// YahooOption configures the YahooClient.
type YahooOption func(*YahooClient)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) YahooOption {
	return func(c *YahooClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) YahooOption {
	return func(c *YahooClient) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) YahooOption {
	return func(c *YahooClient) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) YahooOption {
	return func(c *YahooClient) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewYahooClient constructs a Yahoo-backed data provider.
func NewYahooClient(opts ...YahooOption) *YahooClient {
	c := &YahooClient{
		baseURL: DefaultYahooBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultYahooTimeout,
			Transport: &http.Transport{
				ForceAttemptHTTP2: true,
				MaxIdleConns:      100,
				IdleConnTimeout:   90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultYahooRateLimit), DefaultYahooRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// yahooQuote is the quote block attached to every chain response.
type yahooQuote struct {
	RegularMarketPrice float64 `json:"regularMarketPrice"`
	RegularMarketTime  int64   `json:"regularMarketTime"`
	Currency           string  `json:"currency"`
	Symbol             string  `json:"symbol"`
}

// yahooContract is one option row in a chain response.
type yahooContract struct {
	ContractSymbol string  `json:"contractSymbol"`
	Strike         float64 `json:"strike"`
	Bid            float64 `json:"bid"`
	Ask            float64 `json:"ask"`
	InTheMoney     bool    `json:"inTheMoney"`
	Expiration     int64   `json:"expiration"`
}

// yahooOptionsBlock groups the rows for one expiration date.
type yahooOptionsBlock struct {
	ExpirationDate int64           `json:"expirationDate"`
	Calls          []yahooContract `json:"calls"`
	Puts           []yahooContract `json:"puts"`
}

// yahooChainResp models the /v7/finance/options response envelope.
type yahooChainResp struct {
	OptionChain struct {
		Result []struct {
			UnderlyingSymbol string              `json:"underlyingSymbol"`
			ExpirationDates  []int64             `json:"expirationDates"`
			Quote            yahooQuote          `json:"quote"`
			Options          []yahooOptionsBlock `json:"options"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"optionChain"`
}

// CurrentPrice resolves the latest trade price for the ticker.
func (c *YahooClient) CurrentPrice(ctx context.Context, ticker string) (float64, string, error) {
	resp, err := c.fetchChain(ctx, ticker, 0)
	if err != nil {
		return 0, "", err
	}

	q := resp.Quote
	if q.RegularMarketPrice <= 0 {
		return 0, "", fmt.Errorf("%w for %s", ErrNoPriceData, ticker)
	}

	asOf := time.Unix(q.RegularMarketTime, 0).UTC().Format("2006-01-02 15:04:05 MST")
	if c.logger != nil {
		c.logger.Debug().
			Str("ticker", ticker).
			Float64("price", q.RegularMarketPrice).
			Str("as_of", asOf).
			Msg("resolved current price")
	}
	return q.RegularMarketPrice, asOf, nil
}

// ExpirationDates lists the option expiration dates available for the ticker.
func (c *YahooClient) ExpirationDates(ctx context.Context, ticker string) ([]time.Time, error) {
	resp, err := c.fetchChain(ctx, ticker, 0)
	if err != nil {
		return nil, err
	}

	dates := make([]time.Time, 0, len(resp.ExpirationDates))
	for _, unix := range resp.ExpirationDates {
		dates = append(dates, time.Unix(unix, 0).UTC())
	}

	if c.logger != nil {
		c.logger.Debug().Str("ticker", ticker).Int("count", len(dates)).Msg("listed expiration dates")
	}
	return dates, nil
}

// OptionChain fetches the raw call and put rows for one expiration date.
func (c *YahooClient) OptionChain(ctx context.Context, ticker string, expiry time.Time) ([]OptionQuote, []OptionQuote, error) {
	resp, err := c.fetchChain(ctx, ticker, expiry.Unix())
	if err != nil {
		return nil, nil, err
	}

	var calls, puts []OptionQuote
	for _, block := range resp.Options {
		for _, row := range block.Calls {
			calls = append(calls, OptionQuote{Strike: row.Strike, Bid: row.Bid, InTheMoney: row.InTheMoney})
		}
		for _, row := range block.Puts {
			puts = append(puts, OptionQuote{Strike: row.Strike, Bid: row.Bid, InTheMoney: row.InTheMoney})
		}
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("ticker", ticker).
			Str("expiry", expiry.UTC().Format("2006-01-02")).
			Int("calls", len(calls)).
			Int("puts", len(puts)).
			Msg("fetched option chain")
	}
	return calls, puts, nil
}

// yahooChainResult is the single result element the caller works with.
type yahooChainResult struct {
	UnderlyingSymbol string
	ExpirationDates  []int64
	Quote            yahooQuote
	Options          []yahooOptionsBlock
}

// fetchChain performs one GET against the options endpoint. A zero date
// requests the default (front) chain, which carries the full expiration
// date list and the underlying quote.
func (c *YahooClient) fetchChain(ctx context.Context, ticker string, dateUnix int64) (*yahooChainResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := "/v7/finance/options/" + url.PathEscape(strings.ToUpper(ticker))

	query := url.Values{}
	if dateUnix > 0 {
		query.Set("date", fmt.Sprintf("%d", dateUnix))
	}

	reqURL := c.baseURL + endpoint
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "option-screener/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("market data request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var dbg struct {
			Finance struct {
				Error *struct {
					Description string `json:"description"`
				} `json:"error"`
			} `json:"finance"`
		}
		_ = json.Unmarshal(body, &dbg)

		msg := http.StatusText(resp.StatusCode)
		if dbg.Finance.Error != nil && dbg.Finance.Error.Description != "" {
			msg = dbg.Finance.Error.Description
		}
		if c.logger != nil {
			c.logger.Warn().Int("status", resp.StatusCode).Str("endpoint", endpoint).Msg("chain request rejected")
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg, Endpoint: endpoint}
	}

	var chain yahooChainResp
	if err := json.Unmarshal(body, &chain); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	if chain.OptionChain.Error != nil {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    chain.OptionChain.Error.Description,
			Endpoint:   endpoint,
		}
	}
	if len(chain.OptionChain.Result) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoPriceData, ticker)
	}

	r := chain.OptionChain.Result[0]
	return &yahooChainResult{
		UnderlyingSymbol: r.UnderlyingSymbol,
		ExpirationDates:  r.ExpirationDates,
		Quote:            r.Quote,
		Options:          r.Options,
	}, nil
}
