package services

import (
	"math"
	"testing"
	"time"
	"vrp-route-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stopsFor(ids ...string) []domain.RouteStop {
	out := make([]domain.RouteStop, len(ids))
	for i, id := range ids {
		out[i] = domain.RouteStop{OrderID: id, Sequence: i}
	}
	return out
}

func TestPropagateArrivalsSecondStop(t *testing.T) {
	start := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	durations := [][]float64{
		{0, 900},
		{900, 0},
	}

	out := PropagateArrivals(stopsFor("A", "B"), start, durations)
	require.Len(t, out, 2)

	assert.Equal(t, start, out[0].EstimatedArrival)
	assert.Equal(t, time.Date(2026, 3, 2, 12, 20, 0, 0, time.UTC), out[1].EstimatedArrival)
}

func TestPropagateArrivalsSortsBySequence(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	stops := []domain.RouteStop{
		{OrderID: "C", Sequence: 2},
		{OrderID: "A", Sequence: 0},
		{OrderID: "B", Sequence: 1},
	}
	durations := [][]float64{
		{0, 60, 0},
		{0, 0, 120},
		{0, 0, 0},
	}

	out := PropagateArrivals(stops, start, durations)

	assert.Equal(t, []string{"A", "B", "C"}, []string{out[0].OrderID, out[1].OrderID, out[2].OrderID})
	assert.Equal(t, start.Add(6*time.Minute), out[1].EstimatedArrival)
	assert.Equal(t, start.Add(13*time.Minute), out[2].EstimatedArrival)

	// input untouched
	assert.True(t, stops[0].EstimatedArrival.IsZero())
}

func TestPropagateArrivalsFallback(t *testing.T) {
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	durations := [][]float64{
		{0, -3, 0, 0},
		{0, 0, math.NaN(), 0},
		{0, 0, 0, math.Inf(1)},
		{0, 0, 0, 0},
	}

	out := PropagateArrivals(stopsFor("A", "B", "C", "D", "E"), start, durations)
	require.Len(t, out, 5)

	for i := 1; i < len(out); i++ {
		assert.Equal(t, 15*time.Minute, out[i].EstimatedArrival.Sub(out[i-1].EstimatedArrival), "stop %d", i)
	}
}

func TestPropagateArrivalsMonotonic(t *testing.T) {
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	n := 12
	durations := make([][]float64, n)
	for i := range durations {
		durations[i] = make([]float64, n)
		for j := range durations[i] {
			durations[i][j] = float64((i*7+j*13)%5-1) * 311.7
		}
	}

	ids := make([]string, n)
	for i := range ids {
		ids[i] = string(rune('A' + i))
	}

	out := PropagateArrivals(stopsFor(ids...), start, durations)
	for i := 1; i < len(out); i++ {
		assert.False(t, out[i].EstimatedArrival.Before(out[i-1].EstimatedArrival))
	}
}

func TestPropagateArrivalsEmpty(t *testing.T) {
	assert.Empty(t, PropagateArrivals(nil, time.Now(), nil))
}
