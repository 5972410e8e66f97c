package services

import (
	"math"
	"vrp-route-service/internal/domain"
	"vrp-route-service/internal/ports"
)

// ComputeMetrics totals a depot -> stops -> depot tour. m is indexed over
// [depot, stop_0, ..., stop_n-1] with stops in sequence order. Duration
// includes StopServiceTime per stop. Legs the oracle could not price (missing,
// negative or non-finite) count as FallbackTravelTime; zero legs stay zero.
func ComputeMetrics(stops []domain.RouteStop, m ports.Matrix) domain.RouteMetrics {
	n := len(stops)
	if n == 0 {
		return domain.RouteMetrics{}
	}

	meters := 0.0
	travel := 0.0
	leg := func(from, to int) {
		if d := m.Distance(from, to); d > 0 && !math.IsInf(d, 0) {
			meters += d
		}
		secs := m.Duration(from, to)
		if math.IsNaN(secs) || math.IsInf(secs, 0) || secs < 0 || from >= len(m.Durations) || to >= len(m.Durations) {
			secs = FallbackTravelTime.Seconds()
		}
		travel += secs
	}

	leg(0, 1)
	for i := 1; i < n; i++ {
		leg(i, i+1)
	}
	leg(n, 0)

	service := float64(n) * StopServiceTime.Seconds()

	return domain.RouteMetrics{
		TotalDistanceMeters:      int(math.Round(meters)),
		EstimatedDurationSeconds: int(math.Round(travel + service)),
	}
}

// StopDurations drops the depot row and column from a [depot, stops...]
// matrix, leaving durations between sorted stop positions.
func StopDurations(m ports.Matrix) [][]float64 {
	if len(m.Durations) <= 1 {
		return nil
	}
	out := make([][]float64, 0, len(m.Durations)-1)
	for _, row := range m.Durations[1:] {
		if len(row) == 0 {
			out = append(out, nil)
			continue
		}
		out = append(out, row[1:])
	}
	return out
}

// StopLocations returns [depot, stop locations in sequence order...].
func StopLocations(depot domain.Coordinates, stops []domain.RouteStop) []domain.Coordinates {
	sorted := domain.SortStops(stops)
	locs := make([]domain.Coordinates, 0, len(sorted)+1)
	locs = append(locs, depot)
	for _, s := range sorted {
		locs = append(locs, s.Location)
	}
	return locs
}
