package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/contactkeval/option-screener/internal/config"
	"github.com/contactkeval/option-screener/internal/data"
	"github.com/contactkeval/option-screener/internal/logging"
	"github.com/contactkeval/option-screener/internal/report"
	"github.com/contactkeval/option-screener/internal/screener"
	"github.com/contactkeval/option-screener/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	serve := flag.Bool("serve", false, "run the HTTP server instead of a one-off scan")
	ticker := flag.String("ticker", "", "stock ticker symbol to scan")
	minReturn := flag.Float64("min-return", screener.DefaultReturnThreshold, "annualized return threshold (percent); overrides the config return_threshold")
	returnFilter := flag.Bool("filter", true, "drop contracts at or below the return threshold")
	includeITM := flag.Bool("itm", false, "include in-the-money contracts")
	where := flag.String("where", "", "row filter expression, e.g. 'bid >= 0.05'")
	outDir := flag.String("out", "", "directory for CSV/JSON exports (optional)")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging.Level)

	var prov data.Provider
	switch cfg.Provider.Source {
	case "synthetic":
		prov = data.NewSyntheticProvider()
		logger.Info().Msg("synthetic provider enabled")
	default:
		yOpts := []data.YahooOption{data.WithLogger(logger)}
		if cfg.Provider.BaseURL != "" {
			yOpts = append(yOpts, data.WithBaseURL(cfg.Provider.BaseURL))
		}
		if cfg.Provider.RateLimit > 0 {
			yOpts = append(yOpts, data.WithRateLimit(cfg.Provider.RateLimit))
		}
		if cfg.Provider.TimeoutSeconds > 0 {
			yOpts = append(yOpts, data.WithHTTPClient(&http.Client{
				Timeout: time.Duration(cfg.Provider.TimeoutSeconds) * time.Second,
			}))
		}
		prov = data.NewYahooClient(yOpts...)
		logger.Info().Msg("yahoo provider enabled")
	}

	scr := screener.New(prov,
		screener.WithLogger(logger),
		screener.WithConcurrency(cfg.Screener.Concurrency),
	)

	if *serve {
		srv := server.New(scr, logger, server.WithDefaults(screener.FilterOptions{
			ReturnThreshold: cfg.Screener.ReturnThreshold,
			Where:           cfg.Screener.Where,
		}))
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		logger.Info().Str("addr", addr).Msg("starting HTTP server")
		if err := http.ListenAndServe(addr, srv.Router()); err != nil {
			logger.Fatal().Err(err).Msg("server stopped")
		}
		return
	}

	if *ticker == "" {
		fmt.Fprintln(os.Stderr, "usage: option-screener -ticker QQQ [flags], or -serve")
		flag.PrintDefaults()
		os.Exit(2)
	}

	// flags override the config only when given on the command line
	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	opts := screener.FilterOptions{
		ReturnFilter:      *returnFilter,
		ReturnThreshold:   cfg.Screener.ReturnThreshold,
		IncludeInTheMoney: *includeITM,
		Where:             *where,
	}
	if setFlags["min-return"] {
		opts.ReturnThreshold = *minReturn
	}
	if opts.Where == "" {
		opts.Where = cfg.Screener.Where
	}

	start := time.Now()
	puts, calls, err := scr.Scan(context.Background(), *ticker, opts)
	if err != nil {
		switch {
		case errors.Is(err, screener.ErrNoPrice),
			errors.Is(err, screener.ErrNoExpirations),
			errors.Is(err, screener.ErrNoMatchingOptions):
			logger.Warn().Str("ticker", *ticker).Msg(err.Error())
			os.Exit(1)
		}
		logger.Fatal().Err(err).Str("ticker", *ticker).Msg("scan failed")
	}

	report.Fprint(os.Stdout, "Cash-Secured Puts", puts)
	report.Fprint(os.Stdout, "Covered Calls", calls)

	if *outDir != "" {
		if err := os.MkdirAll(*outDir, 0755); err != nil {
			logger.Fatal().Err(err).Str("dir", *outDir).Msg("could not create output dir")
		}
		if err := report.WriteCSV(puts, "puts", *outDir); err != nil {
			logger.Fatal().Err(err).Msg("writing puts.csv")
		}
		if err := report.WriteCSV(calls, "calls", *outDir); err != nil {
			logger.Fatal().Err(err).Msg("writing calls.csv")
		}
		if err := report.WriteJSON(puts, calls, *outDir); err != nil {
			logger.Fatal().Err(err).Msg("writing pivots.json")
		}
		logger.Info().Str("dir", *outDir).Msg("exports written")
	}

	logger.Info().
		Str("ticker", *ticker).
		Str("elapsed", time.Since(start).Round(time.Millisecond).String()).
		Msg("scan finished")
}
