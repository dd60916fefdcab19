package ratesource_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valutatrade/valutahub/internal/adapters/ratesource"
)

func TestExchangeRateAPIFetchRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/test-key/latest/USD", r.URL.Path)
		_, _ = w.Write([]byte(`{"result":"success","rates":{"EUR":0.9213,"GBP":0.7904,"CHF":0.8811}}`))
	}))
	defer srv.Close()

	source := ratesource.NewExchangeRateAPISource(srv.URL, "test-key", "USD", []string{"EUR", "GBP"})
	rates, err := source.FetchRates(context.Background())

	require.NoError(t, err)
	require.Len(t, rates, 2, "only configured fiat currencies are kept")
	assert.True(t, rates["EUR_USD"].Equal(decimal.RequireFromString("0.9213")))
	assert.True(t, rates["GBP_USD"].Equal(decimal.RequireFromString("0.7904")))
}

func TestExchangeRateAPIFetchRates_NoAPIKey(t *testing.T) {
	source := ratesource.NewExchangeRateAPISource("http://example.invalid", "", "USD", []string{"EUR"})

	_, err := source.FetchRates(context.Background())

	assert.ErrorContains(t, err, "no API key")
}

func TestExchangeRateAPIFetchRates_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"error","error-type":"invalid-key"}`))
	}))
	defer srv.Close()

	source := ratesource.NewExchangeRateAPISource(srv.URL, "bad-key", "USD", []string{"EUR"})
	_, err := source.FetchRates(context.Background())

	assert.ErrorContains(t, err, "invalid-key")
}

func TestExchangeRateAPIFetchRates_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	source := ratesource.NewExchangeRateAPISource(srv.URL, "test-key", "USD", []string{"EUR"})
	_, err := source.FetchRates(context.Background())

	assert.ErrorContains(t, err, "unexpected status 503")
}

func TestExchangeRateAPIName(t *testing.T) {
	source := ratesource.NewExchangeRateAPISource("http://example.invalid", "k", "USD", nil)
	assert.Equal(t, ratesource.SourceExchangeRateAPI, source.Name())
}
