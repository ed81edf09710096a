package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"unidata-cache/internal/config"
	"unidata-cache/internal/interfaces"
	"unidata-cache/internal/metrics"
	"unidata-cache/internal/models"
)

// Ensure Client implements interfaces.UpstreamClient
var _ interfaces.UpstreamClient = (*Client)(nil)

// userAgentRoundTripper adds a User-Agent header to every request
type userAgentRoundTripper struct {
	wrapped   http.RoundTripper
	userAgent string
}

func (rt *userAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone request to avoid mutating the original
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", rt.userAgent)
	return rt.wrapped.RoundTrip(clone)
}

// Client queries the university directory API
type Client struct {
	baseURL    *url.URL
	queryParam string
	client     *http.Client
	logger     *zap.Logger
}

// NewClient builds a Client from the upstream configuration.
// A zero timeout leaves requests unbounded.
func NewClient(cfg *config.UpstreamConfig, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse upstream URL: %w", err)
	}

	return &Client{
		baseURL:    baseURL,
		queryParam: cfg.QueryParam,
		client: &http.Client{
			Timeout: timeout,
			Transport: &userAgentRoundTripper{
				wrapped:   http.DefaultTransport,
				userAgent: cfg.UserAgent,
			},
		},
		logger: logger,
	}, nil
}

// Fetch requests the records for country. Any HTTP status is returned as a response;
// only transport failures are errors.
func (c *Client) Fetch(ctx context.Context, country string) (*models.UpstreamResponse, error) {
	endpoint := c.buildURL(country)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RecordUpstreamRequest(0, time.Since(start))
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	metrics.RecordUpstreamRequest(resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream response: %w", err)
	}

	c.logger.Debug("Upstream responded",
		zap.String("country", country),
		zap.Int("status_code", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("duration", time.Since(start)))

	return &models.UpstreamResponse{
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}

// buildURL sets the country query parameter, keeping any parameters already on the base URL
func (c *Client) buildURL(country string) string {
	u := *c.baseURL
	query := u.Query()
	query.Set(c.queryParam, country)
	u.RawQuery = query.Encode()
	return u.String()
}
