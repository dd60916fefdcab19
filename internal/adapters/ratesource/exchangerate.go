package ratesource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/valutatrade/valutahub/internal/core/domain"
)

// SourceExchangeRateAPI is the name under which fiat rates are attributed.
const SourceExchangeRateAPI = "ExchangeRate-API"

// ExchangeRateAPISource fetches fiat rates from an ExchangeRate-API
// compatible latest-rates table and emits "CODE_BASE" pairs for the
// configured fiat currencies.
type ExchangeRateAPISource struct {
	baseURL      string
	apiKey       string
	baseCurrency string
	fiatCodes    []string
	client       *http.Client
}

// NewExchangeRateAPISource creates an ExchangeRateAPISource.
func NewExchangeRateAPISource(baseURL, apiKey, baseCurrency string, fiatCodes []string) *ExchangeRateAPISource {
	return &ExchangeRateAPISource{
		baseURL:      baseURL,
		apiKey:       apiKey,
		baseCurrency: strings.ToUpper(baseCurrency),
		fiatCodes:    fiatCodes,
		client:       &http.Client{},
	}
}

// Name implements ports.RateSource.
func (s *ExchangeRateAPISource) Name() string { return SourceExchangeRateAPI }

type exchangeRatePayload struct {
	Result    string                 `json:"result"`
	ErrorType string                 `json:"error-type"`
	Rates     map[string]json.Number `json:"rates"`
}

// FetchRates implements ports.RateSource.
func (s *ExchangeRateAPISource) FetchRates(ctx context.Context) (map[string]decimal.Decimal, error) {
	if s.apiKey == "" {
		return nil, errors.New("no API key configured")
	}

	endpoint := fmt.Sprintf("%s/%s/latest/%s", s.baseURL, s.apiKey, s.baseCurrency)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload exchangeRatePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if payload.Result != "success" {
		if payload.ErrorType == "" {
			payload.ErrorType = "unknown error"
		}
		return nil, fmt.Errorf("provider error: %s", payload.ErrorType)
	}

	rates := make(map[string]decimal.Decimal)
	for _, code := range s.fiatCodes {
		code = strings.ToUpper(code)
		raw, ok := payload.Rates[code]
		if !ok {
			continue
		}
		rate, err := decimal.NewFromString(raw.String())
		if err != nil {
			return nil, fmt.Errorf("bad rate for %s: %w", code, err)
		}
		rates[domain.PairKey(code, s.baseCurrency)] = rate
	}
	return rates, nil
}
