package geo

import (
	"fmt"
	"math"
)

const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

// JitterDegrees is the movement below which a device fix is treated as the
// same position and does not trigger another forecast fetch.
const JitterDegrees = 0.0005

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RangeError reports a coordinate component outside its valid range.
type RangeError struct {
	Field string
	Value float64
	Min   float64
	Max   float64
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %v out of range [%v, %v]", e.Field, e.Value, e.Min, e.Max)
}

func ValidLatitude(lat float64) bool {
	return !math.IsNaN(lat) && lat >= MinLatitude && lat <= MaxLatitude
}

func ValidLongitude(lon float64) bool {
	return !math.IsNaN(lon) && lon >= MinLongitude && lon <= MaxLongitude
}

// Validate returns a *RangeError for the first component out of range.
func (c Coordinates) Validate() error {
	if !ValidLatitude(c.Lat) {
		return &RangeError{Field: "latitude", Value: c.Lat, Min: MinLatitude, Max: MaxLatitude}
	}
	if !ValidLongitude(c.Lon) {
		return &RangeError{Field: "longitude", Value: c.Lon, Min: MinLongitude, Max: MaxLongitude}
	}
	return nil
}

// String formats the pair the way the forecast header shows it.
func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f, %.4f", c.Lat, c.Lon)
}

// Near reports whether both components differ by less than tolerance degrees.
func Near(a, b Coordinates, tolerance float64) bool {
	return math.Abs(a.Lat-b.Lat) < tolerance && math.Abs(a.Lon-b.Lon) < tolerance
}
