// Package travelapi is the HTTP adapter for the Smart Travel Companion
// backend. It exposes one typed fetch method per endpoint and records
// request metrics per endpoint label.
package travelapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/sgcommute/travel-dashboard/internal/domain"
	"github.com/sgcommute/travel-dashboard/internal/observability"
)

// Endpoint labels used in metrics and logs.
const (
	endpointHealth        = "health"
	endpointWeather       = "weather"
	endpointAlerts        = "alerts"
	endpointCrowd         = "crowd"
	endpointCrowdForecast = "crowd_forecast"
	endpointBus           = "bus"
)

// Client talks to the travel backend over plain HTTP GET, no auth.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a backend client. requestRate > 0 throttles outbound
// requests to that many per second, with a burst of three matching the
// dashboard's initial triple fetch.
func NewClient(baseURL string, timeout time.Duration, requestRate float64, metrics *observability.Metrics, logger *slog.Logger) *Client {
	var limiter *rate.Limiter
	if requestRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestRate), 3)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: limiter,
		metrics: metrics,
		logger:  logger,
	}
}

// FetchHealth reads the backend liveness endpoint.
func (c *Client) FetchHealth(ctx context.Context) (domain.HealthStatus, error) {
	var out domain.HealthStatus
	err := c.getJSON(ctx, "/health", nil, endpointHealth, &out)
	return out, err
}

// FetchWeather reads the two-hour weather forecast for all areas.
func (c *Client) FetchWeather(ctx context.Context) (domain.WeatherSnapshot, error) {
	var out domain.WeatherSnapshot
	err := c.getJSON(ctx, "/weather", nil, endpointWeather, &out)
	return out, err
}

// FetchRailAlerts reads the current train service alerts.
func (c *Client) FetchRailAlerts(ctx context.Context) (domain.RailAlertSnapshot, error) {
	var out domain.RailAlertSnapshot
	err := c.getJSON(ctx, "/mrt", nil, endpointAlerts, &out)
	return out, err
}

// FetchCrowd reads realtime station crowd levels for one line.
func (c *Client) FetchCrowd(ctx context.Context, line string) (domain.CrowdSnapshot, error) {
	var out domain.CrowdSnapshot
	err := c.getJSON(ctx, "/mrt/crowd", url.Values{"line": {line}}, endpointCrowd, &out)
	return out, err
}

// FetchCrowdForecast reads the crowd forecast table for one line.
func (c *Client) FetchCrowdForecast(ctx context.Context, line string) (domain.CrowdForecastSnapshot, error) {
	var out domain.CrowdForecastSnapshot
	err := c.getJSON(ctx, "/mrt/crowd-forecast", url.Values{"line": {line}}, endpointCrowdForecast, &out)
	return out, err
}

// FetchBusArrivals reads arrival ETAs for one bus stop, optionally filtered
// to a single service number.
func (c *Client) FetchBusArrivals(ctx context.Context, stop, service string) (domain.BusArrivalsSnapshot, error) {
	params := url.Values{"stop": {stop}}
	if service != "" {
		params.Set("service", service)
	}

	var out domain.BusArrivalsSnapshot
	err := c.getJSON(ctx, "/bus/arrivals", params, endpointBus, &out)
	return out, err
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, endpoint string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("%s request: %w", endpoint, err)
	}
	defer resp.Body.Close()
	c.metrics.FetchDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		c.metrics.FetchRequests.WithLabelValues(endpoint, "error").Inc()
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("backend error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.metrics.FetchRequests.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}

	c.metrics.FetchRequests.WithLabelValues(endpoint, "success").Inc()
	c.logger.Debug("backend fetch", "endpoint", endpoint, "url", fullURL)
	return nil
}
