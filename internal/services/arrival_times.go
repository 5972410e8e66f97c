package services

import (
	"math"
	"time"
	"vrp-route-service/internal/domain"
)

// Fixed timing constants for arrival propagation. StopServiceTime is
// independent of the per-order estimate the problem builder uses.
const (
	StopServiceTime    = 5 * time.Minute
	FallbackTravelTime = 10 * time.Minute
)

// PropagateArrivals sorts stops by sequence and stamps each with an
// estimated arrival. The first stop arrives exactly at start. durations[i][j]
// is travel seconds between sorted positions i and j; a missing, zero,
// negative or non-finite entry advances the clock by FallbackTravelTime.
// Every stop adds StopServiceTime before the next leg.
//
// The result is ordered by sequence and non-decreasing in arrival time.
func PropagateArrivals(stops []domain.RouteStop, start time.Time, durations [][]float64) []domain.RouteStop {
	out := domain.SortStops(stops)
	clock := start

	for i := range out {
		if i > 0 {
			clock = clock.Add(legDuration(durations, i-1, i))
		}
		out[i].EstimatedArrival = clock
		clock = clock.Add(StopServiceTime)
	}

	return out
}

func legDuration(durations [][]float64, from, to int) time.Duration {
	if from < 0 || from >= len(durations) || to < 0 || to >= len(durations[from]) {
		return FallbackTravelTime
	}
	secs := durations[from][to]
	if math.IsNaN(secs) || math.IsInf(secs, 0) || secs <= 0 {
		return FallbackTravelTime
	}
	return time.Duration(math.Round(secs * float64(time.Second)))
}
