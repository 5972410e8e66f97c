package domain

import (
	"fmt"
	"math"
)

// Immutable geographic coordinates (longitude, latitude).
type Coordinates struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Return coordinates as [lon, lat] for external API compatibility.
func (c Coordinates) CoordsToList() []float64 { return []float64{c.Lon, c.Lat} }

// Rounded returns the coordinates rounded to the given number of decimals.
// Five decimals is roughly one meter and is what cache keys use.
func (c Coordinates) Rounded(decimals int) Coordinates {
	p := math.Pow(10, float64(decimals))
	return Coordinates{
		Lon: math.Round(c.Lon*p) / p,
		Lat: math.Round(c.Lat*p) / p,
	}
}

// Key renders the coordinates in a stable textual form for hashing.
func (c Coordinates) Key() string {
	r := c.Rounded(5)
	return fmt.Sprintf("%.5f,%.5f", r.Lon, r.Lat)
}

func (c Coordinates) Validate() error {
	if math.IsNaN(c.Lon) || math.IsNaN(c.Lat) {
		return &ValidationError{Op: "coordinates", Reason: "NaN component"}
	}
	if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		return &ValidationError{Op: "coordinates", Reason: fmt.Sprintf("out of range lon=%f lat=%f", c.Lon, c.Lat)}
	}
	return nil
}
