package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/contactkeval/option-screener/internal/report"
	"github.com/contactkeval/option-screener/internal/screener"
)

// scanRequest carries the user's form or query parameters.
type scanRequest struct {
	Ticker            string  `validate:"required,max=12"`
	ReturnFilter      bool
	IncludeInTheMoney bool
	ReturnThreshold   float64 `validate:"min=0"`
	Where             string  `validate:"max=500"`
}

func (s *Server) parseScanRequest(r *http.Request) (scanRequest, error) {
	get := r.URL.Query().Get
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			return scanRequest{}, err
		}
		get = r.PostForm.Get
	}

	req := scanRequest{
		Ticker:            strings.ToUpper(strings.TrimSpace(get("ticker"))),
		ReturnFilter:      get("return_filter") == "on" || get("return_filter") == "true",
		IncludeInTheMoney: get("in_the_money") == "on" || get("in_the_money") == "true",
		ReturnThreshold:   s.defaults.ReturnThreshold,
		Where:             strings.TrimSpace(get("where")),
	}
	if req.Where == "" {
		req.Where = s.defaults.Where
	}
	if raw := get("return_threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return req, errors.New("return threshold must be a number")
		}
		req.ReturnThreshold = v
	}

	if err := s.validate.Struct(req); err != nil {
		return req, validationMessage(req, err)
	}
	return req, nil
}

// validationMessage rephrases struct validation failures for the warning
// banner; raw validator output never reaches the user.
func validationMessage(req scanRequest, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].StructField() {
		case "Ticker":
			if req.Ticker == "" {
				return errors.New("please enter a stock ticker symbol")
			}
			return errors.New("ticker symbols are at most 12 characters")
		case "ReturnThreshold":
			return errors.New("return threshold cannot be negative")
		case "Where":
			return errors.New("filter expression is too long")
		}
	}
	return errors.New("invalid scan parameters")
}

func (req scanRequest) filterOptions() screener.FilterOptions {
	return screener.FilterOptions{
		ReturnFilter:      req.ReturnFilter,
		ReturnThreshold:   req.ReturnThreshold,
		IncludeInTheMoney: req.IncludeInTheMoney,
		Where:             req.Where,
	}
}

// userMessage maps an error to the warning shown to the user, or "" when
// the failure is unexpected and must stay generic.
func userMessage(err error) string {
	switch {
	case errors.Is(err, screener.ErrNoPrice),
		errors.Is(err, screener.ErrNoExpirations),
		errors.Is(err, screener.ErrNoMatchingOptions):
		return err.Error()
	}
	var invalid *screener.InvalidInputError
	if errors.As(err, &invalid) {
		return invalid.Error()
	}
	return ""
}

const genericFailure = "an unexpected error occurred, please try again later"

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, pageData{Form: scanRequest{
		ReturnThreshold: s.defaults.ReturnThreshold,
		Where:           s.defaults.Where,
	}})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseScanRequest(r)
	if err != nil {
		s.renderPage(w, r, pageData{Form: req, Warning: err.Error()})
		return
	}

	puts, calls, err := s.scanner.Scan(r.Context(), req.Ticker, req.filterOptions())
	if err != nil {
		if msg := userMessage(err); msg != "" {
			s.renderPage(w, r, pageData{Form: req, Warning: msg})
			return
		}
		s.logger.Error().
			Err(err).
			Str("request_id", requestIDFrom(r.Context())).
			Str("ticker", req.Ticker).
			Msg("scan failed")
		s.renderPage(w, r, pageData{Form: req, Warning: genericFailure})
		return
	}

	s.renderPage(w, r, pageData{
		Form:  req,
		Puts:  buildTableView("Cash-Secured Puts", puts),
		Calls: buildTableView("Covered Calls", calls),
	})
}

func (s *Server) handleScanAPI(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseScanRequest(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	puts, calls, err := s.scanner.Scan(r.Context(), req.Ticker, req.filterOptions())
	if err != nil {
		if msg := userMessage(err); msg != "" {
			writeJSONError(w, http.StatusNotFound, msg)
			return
		}
		s.logger.Error().
			Err(err).
			Str("request_id", requestIDFrom(r.Context())).
			Str("ticker", req.Ticker).
			Msg("scan failed")
		writeJSONError(w, http.StatusInternalServerError, genericFailure)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Ticker string          `json:"ticker"`
		Puts   report.PivotDoc `json:"puts"`
		Calls  report.PivotDoc `json:"calls"`
	}{
		Ticker: req.Ticker,
		Puts:   report.Doc(puts),
		Calls:  report.Doc(calls),
	})
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
