// Package client calls the Itigris Optima remote remains endpoint, one page
// per request.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/odl-optics/remains-relay/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for upstream calls.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_upstream_requests_total",
		Help: "Total remote remains requests by HTTP status",
	}, []string{"status"})

	upstreamRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relay_upstream_request_duration_seconds",
		Help:    "Remote remains request duration in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	upstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_upstream_errors_total",
		Help: "Total remote remains failures by class",
	}, []string{"class"})

	upstreamRecordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_upstream_records_total",
		Help: "Total records received from the remote remains API",
	})
)

// listPath is appended to {base}/{app}.
const listPath = "/remoteRemains/list"

// maxErrorBody bounds how much of a failed response is kept. Bodies up to
// this size are relayed verbatim; longer ones are cut at the bound.
const maxErrorBody = 1 << 20

// Config holds the client configuration.
type Config struct {
	// BaseURL is the Optima host, e.g. https://optima.itigris.ru
	BaseURL string

	// AppName is the tenant path segment (ITIGRIS_APP_NAME).
	AppName string

	// APIKey is sent as the key query parameter (ITIGRIS_API_KEY).
	APIKey string

	// Timeout applies to each HTTP request.
	Timeout time.Duration

	// UserAgent is sent on every request.
	UserAgent string
}

// DefaultConfig returns a configuration for the production Optima host.
func DefaultConfig(appName, apiKey string) Config {
	return Config{
		BaseURL:   "https://optima.itigris.ru",
		AppName:   appName,
		APIKey:    apiKey,
		Timeout:   30 * time.Second,
		UserAgent: "remains-relay/1.0",
	}
}

// Client is the remote remains API client. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	endpoint   string
	config     Config
	logger     zerolog.Logger
}

// New creates a client. It fails if credentials are missing.
func New(cfg Config) (*Client, error) {
	if cfg.AppName == "" {
		return nil, fmt.Errorf("app name is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	endpoint := strings.TrimRight(cfg.BaseURL, "/") + "/" + url.PathEscape(cfg.AppName) + listPath

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		endpoint: endpoint,
		config:   cfg,
		logger:   log.With().Str("component", "upstream-client").Logger(),
	}, nil
}

// Endpoint returns the list URL without the key.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// AppName returns the configured tenant.
func (c *Client) AppName() string {
	return c.config.AppName
}

// FetchPage posts payload with the given page number and decodes the
// returned records. Any status other than 200 is an *UpstreamError.
func (c *Client) FetchPage(ctx context.Context, payload pagination.Payload, page int) (pagination.Page, error) {
	body, err := json.Marshal(payload.Body(page))
	if err != nil {
		return pagination.Page{}, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?key="+url.QueryEscape(c.config.APIKey), bytes.NewReader(body))
	if err != nil {
		return pagination.Page{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	c.logger.Debug().
		Str("product", payload.Product).
		Int("page", page).
		Msg("Requesting remains page")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	upstreamRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		upstreamErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		upstreamRequestsTotal.WithLabelValues("network_error").Inc()
		return pagination.Page{}, fmt.Errorf("remains request: %w", err)
	}
	defer resp.Body.Close()

	upstreamRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		class := classifyStatus(resp.StatusCode)
		upstreamErrorsTotal.WithLabelValues(string(class)).Inc()

		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("error_class", string(class)).
			Int("page", page).
			Msg("Remote remains error")

		return pagination.Page{}, &UpstreamError{
			StatusCode: resp.StatusCode,
			Class:      class,
			Body:       string(raw),
		}
	}

	result, err := decodePage(resp.Body)
	if err != nil {
		upstreamErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return pagination.Page{}, err
	}
	upstreamRecordsTotal.Add(float64(len(result.Records)))

	return result, nil
}

// decodePage reads a JSON array of objects, keeping the order in which
// record fields first appear. A JSON null counts as an empty page.
func decodePage(r io.Reader) (pagination.Page, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return pagination.Page{}, fmt.Errorf("%w: empty body", ErrDecode)
		}
		return pagination.Page{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if tok == nil {
		return pagination.Page{}, nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return pagination.Page{}, fmt.Errorf("%w: expected array, got %v", ErrDecode, tok)
	}

	var page pagination.Page
	seen := make(map[string]struct{})
	for dec.More() {
		rec, keys, err := decodeRecord(dec)
		if err != nil {
			return pagination.Page{}, err
		}
		page.Records = append(page.Records, rec)
		for _, k := range keys {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				page.Keys = append(page.Keys, k)
			}
		}
	}
	if _, err := dec.Token(); err != nil {
		return pagination.Page{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return page, nil
}

// decodeRecord reads one object from dec and returns it with its keys in
// document order.
func decodeRecord(dec *json.Decoder) (pagination.Record, []string, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if tok == nil {
		return nil, nil, nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("%w: expected object, got %v", ErrDecode, tok)
	}

	rec := pagination.Record{}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("%w: unexpected token %v", ErrDecode, tok)
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return nil, nil, fmt.Errorf("%w: field %q: %v", ErrDecode, key, err)
		}
		if _, dup := rec[key]; !dup {
			keys = append(keys, key)
		}
		rec[key] = value
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return rec, keys, nil
}
