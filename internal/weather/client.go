// Package weather fetches current conditions and a daily forecast from
// open-meteo. Its errors are meant for the user: there is no cached forecast
// to fall back on.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const DefaultBaseURL = "https://api.open-meteo.com/v1/forecast"

var (
	ErrNetwork = errors.New("network error")
	ErrParsing = errors.New("could not parse weather data")
)

type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a Client with an explicit timeout. An empty base uses the
// public open-meteo endpoint.
func NewClient(base string, timeout time.Duration) *Client {
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    base,
	}
}

// Fetch requests current conditions and the daily forecast for a coordinate.
func (c *Client) Fetch(ctx context.Context, lat, lon float64) (*Forecast, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	q := u.Query()
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("current", "temperature_2m,relative_humidity_2m,wind_speed_10m,weather_code")
	q.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_sum")
	q.Set("timezone", "auto")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrNetwork, resp.StatusCode)
	}

	var raw apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParsing, err)
	}

	return &Forecast{
		Current: Current{
			Temperature: raw.Current.Temperature2m,
			Humidity:    raw.Current.RelativeHumidity2m,
			WindSpeed:   raw.Current.WindSpeed10m,
			WeatherCode: raw.Current.WeatherCode,
		},
		Daily: Daily{
			Dates:            raw.Daily.Time,
			TempMax:          raw.Daily.Temperature2mMax,
			TempMin:          raw.Daily.Temperature2mMin,
			PrecipitationSum: raw.Daily.PrecipitationSum,
		},
	}, nil
}
