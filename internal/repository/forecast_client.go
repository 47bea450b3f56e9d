package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fakhrymubarak/weather-viewer/internal/config"
	"github.com/fakhrymubarak/weather-viewer/internal/model"
)

// ClientConfig holds everything needed to build a forecast request.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Units   model.Units
	Days    int
}

// ClientConfigFromEnv reads the client settings from config.yaml and the environment.
func ClientConfigFromEnv() (ClientConfig, error) {
	units, err := model.ParseUnits(config.GetUnits())
	if err != nil {
		return ClientConfig{}, err
	}
	return ClientConfig{
		BaseURL: config.GetForecastApiUrl(),
		APIKey:  config.GetOpenWeatherMapAPIKey(),
		Units:   units,
		Days:    config.GetForecastDays(),
	}, nil
}

// ForecastClient builds forecast URLs and fetches the raw forecast envelope.
type ForecastClient struct {
	cfg        ClientConfig
	httpClient *http.Client
}

// NewForecastClient creates a new forecast client instance
func NewForecastClient(cfg ClientConfig, httpClient ...*http.Client) *ForecastClient {
	client := http.DefaultClient
	if len(httpClient) > 0 && httpClient[0] != nil {
		client = httpClient[0]
	}
	return &ForecastClient{
		cfg:        cfg,
		httpClient: client,
	}
}

// BuildURL returns the request URL for city. It fails with ErrInvalidRequest
// and touches no network when the city cannot be encoded.
func (c *ForecastClient) BuildURL(city string) (string, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return "", fmt.Errorf("%w: empty city name", ErrInvalidRequest)
	}
	if !utf8.ValidString(city) {
		return "", fmt.Errorf("%w: city name is not valid UTF-8", ErrInvalidRequest)
	}
	if c.cfg.Days < 1 {
		return "", fmt.Errorf("%w: day count must be positive, got %d", ErrInvalidRequest, c.cfg.Days)
	}

	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: bad base url %q", ErrInvalidRequest, c.cfg.BaseURL)
	}

	q := u.Query()
	q.Set("q", city)
	q.Set("units", string(c.cfg.Units))
	q.Set("cnt", strconv.Itoa(c.cfg.Days))
	q.Set("APPID", c.cfg.APIKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Fetch performs the GET and returns the body only if it is valid JSON.
func (c *ForecastClient) Fetch(ctx context.Context, requestURL string) ([]byte, error) {
	body, err := get(ctx, c.httpClient, requestURL)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: body is not JSON", ErrMalformedResponse)
	}
	return body, nil
}

// FetchForecast builds the URL for city and fetches it.
func (c *ForecastClient) FetchForecast(ctx context.Context, city string) ([]byte, error) {
	requestURL, err := c.BuildURL(city)
	if err != nil {
		return nil, err
	}
	return c.Fetch(ctx, requestURL)
}
