package location

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	"weatherapp/pkg/geo"
)

// Reverse looks up the place at c.
func (cl *Client) Reverse(ctx context.Context, c geo.Coordinates) (*Location, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(c.Lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(c.Lon, 'f', -1, 64))
	params.Set("format", "json")
	params.Set("addressdetails", "1")
	params.Set("zoom", "10")
	params.Set("accept-language", "en")

	var result nominatimPlace
	if err := cl.get(ctx, "/reverse", params, &result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, errors.New(result.Error)
	}

	loc, err := result.location()
	if err != nil {
		return nil, err
	}
	return &loc, nil
}
