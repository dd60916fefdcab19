package ratesource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/valutatrade/valutahub/internal/core/domain"
)

// SourceCoinGecko is the name under which crypto rates are attributed.
const SourceCoinGecko = "CoinGecko"

// CoinGeckoSource fetches crypto prices from a CoinGecko-compatible
// simple-price endpoint and emits "CODE_BASE" pairs.
type CoinGeckoSource struct {
	baseURL      string
	baseCurrency string
	coinIDs      map[string]string // currency code -> provider coin id
	client       *http.Client
}

// NewCoinGeckoSource creates a CoinGeckoSource. coinIDs maps registry codes
// (e.g. "BTC") to provider coin identifiers (e.g. "bitcoin").
func NewCoinGeckoSource(baseURL, baseCurrency string, coinIDs map[string]string) *CoinGeckoSource {
	return &CoinGeckoSource{
		baseURL:      baseURL,
		baseCurrency: strings.ToUpper(baseCurrency),
		coinIDs:      coinIDs,
		client:       &http.Client{},
	}
}

// Name implements ports.RateSource.
func (s *CoinGeckoSource) Name() string { return SourceCoinGecko }

// FetchRates implements ports.RateSource. The caller bounds the request
// through ctx; a timeout is reported as a failed fetch, not a hang.
func (s *CoinGeckoSource) FetchRates(ctx context.Context) (map[string]decimal.Decimal, error) {
	ids := make([]string, 0, len(s.coinIDs))
	for _, id := range s.coinIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	params.Set("vs_currencies", strings.ToLower(s.baseCurrency))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
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

	// {"bitcoin": {"usd": 50000.12}, ...}
	var payload map[string]map[string]json.Number
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	vs := strings.ToLower(s.baseCurrency)
	rates := make(map[string]decimal.Decimal)
	for code, id := range s.coinIDs {
		prices, ok := payload[id]
		if !ok {
			continue
		}
		raw, ok := prices[vs]
		if !ok {
			continue
		}
		rate, err := decimal.NewFromString(raw.String())
		if err != nil {
			return nil, fmt.Errorf("bad rate for %s: %w", id, err)
		}
		rates[domain.PairKey(strings.ToUpper(code), s.baseCurrency)] = rate
	}
	return rates, nil
}
