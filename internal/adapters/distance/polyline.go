package distance

import (
	"math"
	"strings"
	"vrp-route-service/internal/domain"
)

// EncodePolyline renders a path in the encoded polyline format (precision 5,
// lat before lon) that ORS returns for directions geometry.
func EncodePolyline(path []domain.Coordinates) string {
	var b strings.Builder
	prevLat, prevLon := 0, 0
	for _, c := range path {
		lat := int(math.Round(c.Lat * 1e5))
		lon := int(math.Round(c.Lon * 1e5))
		encodeValue(&b, lat-prevLat)
		encodeValue(&b, lon-prevLon)
		prevLat, prevLon = lat, lon
	}
	return b.String()
}

func encodeValue(b *strings.Builder, v int) {
	u := v << 1
	if v < 0 {
		u = ^u
	}
	for u >= 0x20 {
		b.WriteByte(byte((0x20 | (u & 0x1f)) + 63))
		u >>= 5
	}
	b.WriteByte(byte(u + 63))
}
