package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/madao/pkg/retrier"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultPriceIndexURL      = "https://api.coingecko.com/api/v3"
	defaultPriceIndexTimeout  = 10 * time.Second
	defaultPriceIndexCacheTTL = time.Minute
	defaultPriceIndexRPS      = 0.5
)

// PriceIndexConfig settings of the external spot price API.
type PriceIndexConfig struct {
	BaseURL           string
	Currency          string
	Timeout           time.Duration
	CacheTTL          time.Duration
	RequestsPerSecond float64
	MaxRetries        int
	RetryInterval     time.Duration
}

// PriceIndexClient looks up spot prices on a CoinGecko compatible /simple/price endpoint.
type PriceIndexClient struct {
	baseURL    string
	currency   string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *gocache.Cache
	retrier    *retrier.Retrier
	l          *zap.Logger
}

// NewPriceIndexClient creates a client, filling unset config fields with defaults.
func NewPriceIndexClient(l *zap.Logger, cfg PriceIndexConfig) *PriceIndexClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultPriceIndexURL
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultPriceIndexTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultPriceIndexCacheTTL
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaultPriceIndexRPS
	}

	c := &PriceIndexClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		currency:   strings.ToLower(cfg.Currency),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		cache:      gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		l:          l,
	}

	opts := []retrier.Option{
		retrier.WithRetryIf(isRetryablePriceError),
		retrier.WithOnRetry(func(attempt int, err error) {
			l.Warn("price index request failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
		}),
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, retrier.WithMaxRetries(cfg.MaxRetries))
	}
	if cfg.RetryInterval > 0 {
		opts = append(opts, retrier.WithInitialInterval(cfg.RetryInterval))
	}
	c.retrier = retrier.New(opts...)

	return c
}

// StatusError non-200 answer of the price index.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("price index returned status %d: %s", e.Code, e.Body)
}

func isRetryablePriceError(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= http.StatusInternalServerError
	}
	return true
}

// GetPrice returns the spot price of tokenID in the configured currency.
func (c *PriceIndexClient) GetPrice(ctx context.Context, tokenID string) (decimal.Decimal, error) {
	if tokenID == "" {
		return decimal.Zero, errors.New("token id is empty")
	}

	key := tokenID + ":" + c.currency
	if cached, ok := c.cache.Get(key); ok {
		return cached.(decimal.Decimal), nil
	}

	price, err := retrier.DoWithData(ctx, c.retrier, func(ctx context.Context) (decimal.Decimal, error) {
		return c.fetch(ctx, tokenID)
	})
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "price of %s", tokenID)
	}

	c.cache.Set(key, price, gocache.DefaultExpiration)
	return price, nil
}

func (c *PriceIndexClient) fetch(ctx context.Context, tokenID string) (decimal.Decimal, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return decimal.Zero, retrier.Permanent(errors.Wrap(err, "rate limiter"))
	}

	q := url.Values{}
	q.Set("ids", tokenID)
	q.Set("vs_currencies", c.currency)
	endpoint := c.baseURL + "/simple/price?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, retrier.Permanent(errors.Wrap(err, "failed to create HTTP request"))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "HTTP request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "failed to read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	var result map[string]map[string]decimal.Decimal
	if err := json.Unmarshal(body, &result); err != nil {
		return decimal.Zero, retrier.Permanent(errors.Wrap(err, "failed to unmarshal response"))
	}

	price, ok := result[tokenID][c.currency]
	if !ok {
		return decimal.Zero, retrier.Permanent(errors.Errorf("no %s price for %s in response", c.currency, tokenID))
	}
	return price, nil
}
