// Package owm fetches current conditions from the OpenWeatherMap API.
package owm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/lox/weatheretl/internal/httputil"
	"github.com/lox/weatheretl/internal/metrics"
)

const DefaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"

var (
	ErrNoAPIKey    = errors.New("openweathermap api key is not configured")
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// Observation is the subset of the current weather response we keep.
// Numbers stay as json.Number so decimals are never rounded.
type Observation struct {
	Name string `json:"name"`
	Dt   int64  `json:"dt"`
	Main struct {
		Temp      json.Number `json:"temp"`
		FeelsLike json.Number `json:"feels_like"`
		TempMin   json.Number `json:"temp_min"`
		TempMax   json.Number `json:"temp_max"`
		Pressure  json.Number `json:"pressure"`
		SeaLevel  json.Number `json:"sea_level"`
		Humidity  json.Number `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed json.Number `json:"speed"`
		Deg   json.Number `json:"deg"`
		Gust  json.Number `json:"gust"`
	} `json:"wind"`
	Clouds struct {
		All json.Number `json:"all"`
	} `json:"clouds"`
	Weather []Condition `json:"weather"`
	Sys     struct {
		Sunrise int64 `json:"sunrise"`
		Sunset  int64 `json:"sunset"`
	} `json:"sys"`
}

type Condition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

// Client calls the current weather endpoint. It never retries; a breaker
// trips after repeated failures so a warm process stops calling a dead API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	circuit    *gobreaker.CircuitBreaker
}

func NewClient(httpClient *http.Client, apiKey, baseURL string) *Client {
	if httpClient == nil {
		httpClient = httputil.NewClient(httputil.DefaultTimeout)
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweathermap",
		MaxRequests: 1,
		Interval:    5 * time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		circuit:    cb,
	}
}

// Current fetches current conditions for a "City,CC" query in metric units.
func (c *Client) Current(ctx context.Context, query string) (*Observation, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	values := url.Values{}
	values.Set("q", query)
	values.Set("appid", c.apiKey)
	values.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+values.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", httputil.UserAgent)

	start := time.Now()
	result, err := c.circuit.Execute(func() (interface{}, error) {
		return c.do(req)
	})
	metrics.ProviderLatency.Observe(time.Since(start).Seconds())

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.ProviderCallsTotal.WithLabelValues("circuit_open").Inc()
		return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	if err != nil {
		metrics.ProviderCallsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.ProviderCallsTotal.WithLabelValues("ok").Inc()
	return result.(*Observation), nil
}

func (c *Client) do(req *http.Request) (*Observation, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch current weather: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch current weather: status %d: %s", resp.StatusCode, string(b))
	}

	var obs Observation
	if err := json.NewDecoder(resp.Body).Decode(&obs); err != nil {
		return nil, fmt.Errorf("decode current weather: %w", err)
	}
	return &obs, nil
}

// Status returns the main condition group, e.g. "Clouds".
func (o *Observation) Status() string {
	if len(o.Weather) == 0 {
		return ""
	}
	return o.Weather[0].Main
}

// DetailedStatus returns the condition description, e.g. "broken clouds".
func (o *Observation) DetailedStatus() string {
	if len(o.Weather) == 0 {
		return ""
	}
	return o.Weather[0].Description
}
