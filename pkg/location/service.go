package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"weatherapp/pkg/geo"
)

const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// Location holds geocoded info about a place.
type Location struct {
	Name        string
	Coordinates geo.Coordinates
	City        string
	Country     string
	Type        string
	OsmID       int64
}

// Placename is the short label shown for a device fix.
func (l Location) Placename() string {
	if l.City != "" {
		return l.City
	}
	return l.Name
}

// nominatimPlace is shaped for one entry of the search and reverse responses.
type nominatimPlace struct {
	PlaceID     int64  `json:"place_id"`
	OsmType     string `json:"osm_type"`
	OsmID       int64  `json:"osm_id"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Type        string `json:"type"`
	AddressType string `json:"addresstype"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Address     struct {
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
		Suburb      string `json:"suburb"`
		Country     string `json:"country"`
		CountryCode string `json:"country_code"`
	} `json:"address"`
	Error string `json:"error"`
}

func (n nominatimPlace) location() (Location, error) {
	lat, err := strconv.ParseFloat(n.Lat, 64)
	if err != nil {
		return Location{}, fmt.Errorf("parse lat %q: %w", n.Lat, err)
	}
	lon, err := strconv.ParseFloat(n.Lon, 64)
	if err != nil {
		return Location{}, fmt.Errorf("parse lon %q: %w", n.Lon, err)
	}

	city := n.Address.City
	if city == "" {
		city = n.Address.Town
	}
	if city == "" {
		city = n.Address.Village
	}
	name := n.Name
	if name == "" {
		name = n.DisplayName
	}

	return Location{
		Name:        name,
		Coordinates: geo.Coordinates{Lat: lat, Lon: lon},
		City:        city,
		Country:     n.Address.Country,
		Type:        n.Type,
		OsmID:       n.OsmID,
	}, nil
}

// Client talks to a Nominatim instance.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		userAgent:  "weatherapp-favorites/1.0",
	}
}

// Search geocodes a free-form query, best match first.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Location, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("addressdetails", "1")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("accept-language", "en")

	var results []nominatimPlace
	if err := c.get(ctx, "/search", params, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no results for %s", query)
	}

	out := make([]Location, 0, len(results))
	for _, r := range results {
		loc, err := r.location()
		if err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
