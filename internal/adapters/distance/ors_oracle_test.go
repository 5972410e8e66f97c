package distance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
	"vrp-route-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestORS(t *testing.T, h http.HandlerFunc) *ORSOracle {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	o, err := NewORSOracle("test-key", WithBaseURL(srv.URL), WithBackoff(time.Millisecond))
	require.NoError(t, err)
	return o
}

func TestNewORSOracleNeedsKey(t *testing.T) {
	_, err := NewORSOracle(" ")
	assert.Error(t, err)
}

func TestORSDistanceMatrix(t *testing.T) {
	o := newTestORS(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/matrix/driving-car", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))

		var req matrixRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, [][]float64{{-112.074, 33.4484}, {-111.94, 33.4255}}, req.Locations)
		assert.Equal(t, []string{"distance", "duration"}, req.Metrics)

		_, _ = w.Write([]byte(`{
			"distances": [[0, 12500.4], [12710.2, null]],
			"durations": [[0, 900.5], [940, 0]]
		}`))
	})

	m, err := o.DistanceMatrix(context.Background(), []domain.Coordinates{phx, tmp})
	require.NoError(t, err)

	assert.Equal(t, 12500.4, m.Distance(0, 1))
	assert.Equal(t, 900.5, m.Duration(0, 1))
	assert.Equal(t, float64(unroutable), m.Distance(1, 1))
}

func TestORSDistanceMatrixRejectsShortRows(t *testing.T) {
	o := newTestORS(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"distances": [[0]], "durations": [[0]]}`))
	})

	_, err := o.DistanceMatrix(context.Background(), []domain.Coordinates{phx, tmp})
	assert.ErrorContains(t, err, "got 1 rows, want 2")
}

func TestORSRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	o := newTestORS(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"distances": [[0]], "durations": [[0]]}`))
	})

	_, err := o.DistanceMatrix(context.Background(), []domain.Coordinates{phx})
	require.NoError(t, err)
	assert.EqualValues(t, 3, calls.Load())
}

func TestORSDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	o := newTestORS(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad coordinates", http.StatusBadRequest)
	})

	_, err := o.DistanceMatrix(context.Background(), []domain.Coordinates{phx})
	require.Error(t, err)
	assert.ErrorContains(t, err, "status 400")
	assert.EqualValues(t, 1, calls.Load())
}

func TestORSGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	o := newTestORS(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := o.DistanceMatrix(context.Background(), []domain.Coordinates{phx})
	require.Error(t, err)
	assert.EqualValues(t, maxAttempts, calls.Load())
}

func TestORSDirections(t *testing.T) {
	o := newTestORS(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/directions/driving-car", r.URL.Path)

		var req directionsRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Coordinates, 3)
		assert.Equal(t, mes.CoordsToList(), req.Coordinates[1])

		_, _ = w.Write([]byte(`{"routes": [{
			"summary": {"distance": 30100.5, "duration": 2100},
			"geometry": "_p~iF~ps|U_ulLnnqC",
			"segments": [
				{"steps": [{"instruction": "Head east", "distance": 100, "duration": 12}]},
				{"steps": [{"instruction": "Arrive", "distance": 0, "duration": 0}]}
			]
		}]}`))
	})

	d, err := o.Directions(context.Background(), phx, tmp, []domain.Coordinates{mes})
	require.NoError(t, err)

	assert.Equal(t, 30100.5, d.DistanceMeters)
	assert.Equal(t, "_p~iF~ps|U_ulLnnqC", d.Geometry)
	require.Len(t, d.Steps, 2)
	assert.Equal(t, "Head east", d.Steps[0].Instruction)
}

func TestORSDirectionsWithoutRoutes(t *testing.T) {
	o := newTestORS(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"routes": []}`))
	})

	_, err := o.Directions(context.Background(), phx, tmp, nil)
	assert.Error(t, err)
}

func TestORSGeocode(t *testing.T) {
	o := newTestORS(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocode/search", r.URL.Path)
		assert.Equal(t, "1901 W Madison St, Phoenix, AZ", r.URL.Query().Get("text"))
		_, _ = w.Write([]byte(`{"features": [{"geometry": {"coordinates": [-112.0996, 33.4483]}}]}`))
	})

	c, err := o.Geocode(context.Background(), "  1901 W Madison St,   Phoenix, AZ ")
	require.NoError(t, err)
	assert.Equal(t, domain.Coordinates{Lon: -112.0996, Lat: 33.4483}, c)
}

func TestORSGeocodeNoResults(t *testing.T) {
	o := newTestORS(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"features": []}`))
	})

	_, err := o.Geocode(context.Background(), "nowhere")
	assert.ErrorContains(t, err, "no geocode results")
}

func TestCachedORSGeocode(t *testing.T) {
	var calls atomic.Int32
	o := newTestORS(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"features": [{"geometry": {"coordinates": [-112.0996, 33.4483]}}]}`))
	})
	c := NewCachedOracle(o, newMemCache())

	for _, addr := range []string{"1 Main St", "1  MAIN st"} {
		_, err := c.Geocode(context.Background(), addr)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, calls.Load())
}
