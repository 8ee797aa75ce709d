package bybit

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"TradePulse/internal/domain/models"
	drepo "TradePulse/internal/domain/repository"
	"TradePulse/internal/service/cache"
	"TradePulse/internal/service/ratelimit"
	xhttp "TradePulse/pkg/http"
	"TradePulse/pkg/logger"
)

// intervalCode maps a timeframe to the exchange's kline interval parameter.
func intervalCode(tf models.Timeframe) string {
	switch tf {
	case models.TF1m:
		return "1"
	case models.TF5m:
		return "5"
	case models.TF15m:
		return "15"
	case models.TF30m:
		return "30"
	case models.TF1h:
		return "60"
	case models.TF4h:
		return "240"
	default:
		return ""
	}
}

// Client implements CandleSource against the Bybit v5 public market API,
// with a short-TTL cache in front and a token-bucket limiter behind it.
type Client struct {
	http     *xhttp.Client
	baseURL  string
	category string
	cache    *cache.CandleCache
	limiter  *ratelimit.Limiter
	rate     float64
	burst    float64
	log      *logger.Logger
}

var _ drepo.CandleSource = (*Client)(nil)

type Option func(*Client)

// WithCache puts a candle cache in front of the REST API.
func WithCache(c *cache.CandleCache) Option {
	return func(cl *Client) { cl.cache = c }
}

// WithRateLimit sets the per-endpoint token bucket.
func WithRateLimit(perSecond, burst int) Option {
	return func(cl *Client) {
		if perSecond > 0 {
			cl.rate = float64(perSecond)
		}
		if burst > 0 {
			cl.burst = float64(burst)
		}
	}
}

func NewClient(httpClient *xhttp.Client, baseURL, category string, log *logger.Logger, opts ...Option) *Client {
	if category == "" {
		category = "linear"
	}
	c := &Client{
		http:     httpClient,
		baseURL:  baseURL,
		category: category,
		limiter:  ratelimit.New(),
		rate:     10,
		burst:    20,
		log:      log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type klineResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List [][]string `json:"list"`
	} `json:"result"`
}

// Fetch returns up to limit candles, oldest first. Cache hits skip the REST
// call entirely.
func (c *Client) Fetch(ctx context.Context, symbol string, tf models.Timeframe, limit int) ([]models.Candle, error) {
	interval := intervalCode(tf)
	if interval == "" {
		return nil, fmt.Errorf("unsupported timeframe %q", tf)
	}
	if limit <= 0 {
		limit = 200
	}

	if c.cache != nil {
		if candles, ok := c.cache.Get(symbol, tf); ok && len(candles) >= limit {
			return candles[len(candles)-limit:], nil
		}
	}

	if !c.limiter.Allow("kline", c.burst, c.rate) {
		return nil, fmt.Errorf("kline rate limit exceeded")
	}

	var resp klineResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/v5/market/kline",
		QueryParams: map[string][]string{
			"category": {c.category},
			"symbol":   {symbol},
			"interval": {interval},
			"limit":    {strconv.Itoa(limit)},
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("kline request %s %s: %w", symbol, tf, err)
	}
	if resp.RetCode != 0 {
		return nil, fmt.Errorf("kline api %s %s: %s", symbol, tf, resp.RetMsg)
	}

	candles, err := parseKlineList(resp.Result.List)
	if err != nil {
		return nil, fmt.Errorf("kline parse %s %s: %w", symbol, tf, err)
	}

	if c.cache != nil && len(candles) > 0 {
		c.cache.Put(symbol, tf, candles)
	}
	return candles, nil
}

type tickerResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []struct {
			LastPrice string `json:"lastPrice"`
		} `json:"list"`
	} `json:"result"`
}

// LastPrice returns the latest traded price for symbol.
func (c *Client) LastPrice(ctx context.Context, symbol string) (float64, error) {
	if !c.limiter.Allow("ticker", c.burst, c.rate) {
		return 0, fmt.Errorf("ticker rate limit exceeded")
	}

	var resp tickerResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/v5/market/tickers",
		QueryParams: map[string][]string{
			"category": {c.category},
			"symbol":   {symbol},
		},
	}, &resp)
	if err != nil {
		return 0, fmt.Errorf("ticker request %s: %w", symbol, err)
	}
	if resp.RetCode != 0 || len(resp.Result.List) == 0 {
		return 0, fmt.Errorf("ticker api %s: %s", symbol, resp.RetMsg)
	}

	price, err := strconv.ParseFloat(resp.Result.List[0].LastPrice, 64)
	if err != nil {
		return 0, fmt.Errorf("ticker parse %s: %w", symbol, err)
	}
	return price, nil
}

// parseKlineList decodes the API's newest-first string rows into ascending
// candles.
func parseKlineList(rows [][]string) ([]models.Candle, error) {
	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("short kline row: %d fields", len(row))
		}
		ms, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("start time: %w", err)
		}
		vals := make([]float64, 5)
		for i := 0; i < 5; i++ {
			v, err := strconv.ParseFloat(row[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("field %d: %w", i+1, err)
			}
			vals[i] = v
		}
		candles = append(candles, models.Candle{
			Timestamp: time.UnixMilli(ms).UTC(),
			Open:      vals[0],
			High:      vals[1],
			Low:       vals[2],
			Close:     vals[3],
			Volume:    vals[4],
		})
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})
	return candles, nil
}
