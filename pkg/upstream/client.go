// Package upstream provides the HTTP client for the third-party exchange-rate
// provider. Every operation issues exactly one request; retries and caching
// belong to callers.
package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// Operation names used in metrics, logs and errors.
const (
	OperationLatest     = "latest"
	OperationCurrencies = "currencies"
)

// maxBodyBytes bounds how much of a provider response is read.
const maxBodyBytes = 1 << 20

// Prometheus metrics for provider calls.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fx_upstream_requests_total",
		Help: "Total rate provider requests by operation and status",
	}, []string{"operation", "status"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fx_upstream_request_duration_seconds",
		Help:    "Rate provider request duration in seconds by operation",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"operation"})

	upstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fx_upstream_errors_total",
		Help: "Total rate provider errors by class",
	}, []string{"class"})
)

// Config holds the client configuration.
type Config struct {
	// BaseURL of the provider, e.g. "https://api.frankfurter.app".
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout for a single request. Zero means no client-side timeout.
	Timeout time.Duration

	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
}

// DefaultConfig returns a configuration with a 10 second timeout.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: "fx-rates-proxy/0.1.0",
		Timeout:   10 * time.Second,
	}
}

// Client talks to the rate provider.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	userAgent  string
	logger     zerolog.Logger
}

// New creates a new provider client.
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		userAgent:  cfg.UserAgent,
		logger:     logger,
	}, nil
}

// FetchLatest returns the rates of symbols relative to base. The result
// contains exactly the requested symbols; a missing symbol fails the call
// with an error matching ErrRateNotFound.
func (c *Client) FetchLatest(ctx context.Context, base string, symbols []string) (map[string]float64, error) {
	query := url.Values{}
	query.Set("base", base)
	query.Set("symbols", strings.Join(symbols, ","))

	body, err := c.get(ctx, OperationLatest, "/latest", query)
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(body) {
		return nil, c.fail(&Error{Operation: OperationLatest, Class: ErrorClassMalformed, Message: "response is not valid JSON"})
	}

	ratesObj := gjson.GetBytes(body, "rates")
	if !ratesObj.IsObject() {
		return nil, c.fail(&Error{Operation: OperationLatest, Class: ErrorClassMalformed, Message: "response has no rates object"})
	}

	// iterate instead of querying by symbol so caller input never becomes a gjson path
	quoted := make(map[string]gjson.Result)
	ratesObj.ForEach(func(key, value gjson.Result) bool {
		quoted[key.String()] = value
		return true
	})

	rates := make(map[string]float64, len(symbols))
	for _, symbol := range symbols {
		value, ok := quoted[symbol]
		if !ok {
			return nil, c.fail(&Error{
				Operation: OperationLatest,
				Class:     ErrorClassNotFound,
				Message:   fmt.Sprintf("no rate for %s/%s", base, symbol),
			})
		}
		if value.Type != gjson.Number || value.Float() <= 0 {
			return nil, c.fail(&Error{
				Operation: OperationLatest,
				Class:     ErrorClassMalformed,
				Message:   fmt.Sprintf("invalid rate for %s/%s: %s", base, symbol, value.Raw),
			})
		}
		rates[symbol] = value.Float()
	}

	return rates, nil
}

// FetchCurrencyList returns the currency codes offered by the provider, in
// the order the provider lists them.
func (c *Client) FetchCurrencyList(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, OperationCurrencies, "/currencies", nil)
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(body) {
		return nil, c.fail(&Error{Operation: OperationCurrencies, Class: ErrorClassMalformed, Message: "response is not valid JSON"})
	}

	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return nil, c.fail(&Error{Operation: OperationCurrencies, Class: ErrorClassMalformed, Message: "response is not an object"})
	}

	codes := make([]string, 0, 32)
	parsed.ForEach(func(key, _ gjson.Result) bool {
		codes = append(codes, key.String())
		return true
	})

	return codes, nil
}

// get performs a single GET and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, operation, path string, query url.Values) ([]byte, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	startTime := time.Now()
	defer func() {
		upstreamRequestDuration.WithLabelValues(operation).Observe(time.Since(startTime).Seconds())
	}()

	c.logger.Debug().
		Str("operation", operation).
		Str("url", u.String()).
		Msg("Executing provider request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		upstreamRequestsTotal.WithLabelValues(operation, "network_error").Inc()
		return nil, c.fail(&Error{Operation: operation, Class: ErrorClassNetwork, Err: err})
	}
	defer resp.Body.Close()

	upstreamRequestsTotal.WithLabelValues(operation, strconv.Itoa(resp.StatusCode)).Inc()

	if class := classifyStatus(resp.StatusCode); class != "" {
		return nil, c.fail(&Error{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Class:      class,
			Message:    resp.Status,
		})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, c.fail(&Error{Operation: operation, StatusCode: resp.StatusCode, Class: ErrorClassNetwork, Message: "read body", Err: err})
	}

	return body, nil
}

// fail records and logs an upstream error and returns it.
func (c *Client) fail(err *Error) error {
	upstreamErrorsTotal.WithLabelValues(string(err.Class)).Inc()
	c.logger.Warn().
		Err(err).
		Str("operation", err.Operation).
		Str("error_class", string(err.Class)).
		Int("status", err.StatusCode).
		Msg("Provider request failed")
	return err
}

// classifyStatus returns the error class of a non-2xx status, or "" for 2xx.
func classifyStatus(status int) ErrorClass {
	switch {
	case status >= 200 && status < 300:
		return ""
	case status >= 400 && status < 500:
		return ErrorClassClient
	default:
		return ErrorClassServer
	}
}
