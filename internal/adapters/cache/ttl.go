package cache

import (
	"time"
	"vrp-route-service/internal/ports"
)

// TTLs holds the expiry of each cache kind.
type TTLs struct {
	Geocode    time.Duration
	Directions time.Duration
	Matrix     time.Duration
}

func DefaultTTLs() TTLs {
	return TTLs{
		Geocode:    30 * 24 * time.Hour,
		Directions: 24 * time.Hour,
		Matrix:     6 * time.Hour,
	}
}

// For returns the expiry of kind. Unknown kinds use the shortest TTL.
func (t TTLs) For(kind ports.CacheKind) time.Duration {
	switch kind {
	case ports.CacheGeocode:
		return t.Geocode
	case ports.CacheDirections:
		return t.Directions
	case ports.CacheMatrix:
		return t.Matrix
	}
	return min(t.Geocode, t.Directions, t.Matrix)
}
