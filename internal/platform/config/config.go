package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL  string
	Port         string
	IsProduction bool

	JWTSecret         string
	JWTExpiryDuration time.Duration
	JWTIssuer         string

	// Rate engine
	RatesTTL        time.Duration
	RefreshInterval time.Duration
	SourceTimeout   time.Duration
	BaseCurrency    string

	CoinGeckoURL       string
	CryptoCoinIDs      map[string]string // currency code -> provider coin id
	ExchangeRateAPIURL string
	ExchangeRateAPIKey string
	FiatCurrencies     []string

	// limiter format, e.g. "100-M" for 100 requests per minute
	RateLimit string
}

// LoadConfig loads configuration from environment variables and a .env file
// if present. Missing values fall back to documented defaults.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_EXPIRY_DURATION", "1h")
	viper.SetDefault("JWT_ISSUER", "valutahub")
	viper.SetDefault("RATES_TTL", "1h")
	viper.SetDefault("REFRESH_INTERVAL", "1h")
	viper.SetDefault("SOURCE_TIMEOUT", "10s")
	viper.SetDefault("BASE_CURRENCY", "USD")
	viper.SetDefault("COINGECKO_URL", "https://api.coingecko.com/api/v3/simple/price")
	viper.SetDefault("CRYPTO_COIN_IDS", "BTC:bitcoin,ETH:ethereum,SOL:solana")
	viper.SetDefault("EXCHANGERATE_API_URL", "https://v6.exchangerate-api.com/v6")
	viper.SetDefault("EXCHANGERATE_API_KEY", "")
	viper.SetDefault("FIAT_CURRENCIES", "EUR,GBP,RUB")
	viper.SetDefault("RATE_LIMIT", "100-M")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}
	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	cfg.JWTExpiryDuration = parseDuration("JWT_EXPIRY_DURATION", time.Hour)
	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")

	cfg.RatesTTL = parseDuration("RATES_TTL", time.Hour)
	cfg.RefreshInterval = parseDuration("REFRESH_INTERVAL", time.Hour)
	cfg.SourceTimeout = parseDuration("SOURCE_TIMEOUT", 10*time.Second)
	cfg.BaseCurrency = strings.ToUpper(viper.GetString("BASE_CURRENCY"))

	cfg.CoinGeckoURL = viper.GetString("COINGECKO_URL")
	cfg.CryptoCoinIDs = parseCoinIDs(viper.GetString("CRYPTO_COIN_IDS"))
	cfg.ExchangeRateAPIURL = viper.GetString("EXCHANGERATE_API_URL")
	cfg.ExchangeRateAPIKey = viper.GetString("EXCHANGERATE_API_KEY")
	if cfg.ExchangeRateAPIKey == "" {
		log.Println("Warning: EXCHANGERATE_API_KEY not set. Fiat rate source will fail until configured.")
	}
	cfg.FiatCurrencies = splitList(viper.GetString("FIAT_CURRENCIES"))
	cfg.RateLimit = viper.GetString("RATE_LIMIT")

	return cfg, nil
}

func parseDuration(key string, fallback time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		if raw != "" {
			log.Printf("Warning: Invalid value for %s (%q). Defaulting to %s.\n", key, raw, fallback)
		}
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseCoinIDs parses "BTC:bitcoin,ETH:ethereum" into a code -> id map.
func parseCoinIDs(raw string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		code, id, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			continue
		}
		code = strings.ToUpper(strings.TrimSpace(code))
		id = strings.ToLower(strings.TrimSpace(id))
		if code != "" && id != "" {
			out[code] = id
		}
	}
	return out
}
