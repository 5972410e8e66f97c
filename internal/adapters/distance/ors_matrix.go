package distance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"vrp-route-service/internal/domain"
	"vrp-route-service/internal/platform/obs"
	"vrp-route-service/internal/ports"
)

// Unroutable pairs come back as null. They are reported as -1 so that
// consumers apply their fallback travel time.
const unroutable = -1

type matrixRequest struct {
	Locations [][]float64 `json:"locations"`
	Metrics   []string    `json:"metrics"`
	Units     string      `json:"units"`
}

type matrixResponse struct {
	Distances [][]*float64 `json:"distances"`
	Durations [][]*float64 `json:"durations"`
}

// DistanceMatrix returns all-pairs distances (meters) and durations
// (seconds) over locations using the ORS matrix endpoint.
func (o *ORSOracle) DistanceMatrix(ctx context.Context, locations []domain.Coordinates) (_ ports.Matrix, err error) {
	defer obs.Time(ctx, "ors.DistanceMatrix")(&err)

	n := len(locations)
	if n == 0 {
		return ports.Matrix{Distances: [][]float64{}, Durations: [][]float64{}}, nil
	}

	endpoint := fmt.Sprintf("%s/v2/matrix/%s", o.baseURL, o.profile)

	coords := make([][]float64, 0, n)
	for _, c := range locations {
		coords = append(coords, c.CoordsToList())
	}

	payload, err := json.Marshal(matrixRequest{
		Locations: coords,
		Metrics:   []string{"distance", "duration"},
		Units:     "m",
	})
	if err != nil {
		return ports.Matrix{}, fmt.Errorf("marshal matrix request: %w", err)
	}

	resp, err := o.doWithRetry(ctx, "matrix", func() (*http.Request, error) {
		return o.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return ports.Matrix{}, fmt.Errorf("matrix request failed: %w", err)
	}
	defer resp.Body.Close()

	var mr matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return ports.Matrix{}, fmt.Errorf("decode matrix response: %w", err)
	}

	distances, err := denseRows(mr.Distances, n, "distances")
	if err != nil {
		return ports.Matrix{}, err
	}
	durations, err := denseRows(mr.Durations, n, "durations")
	if err != nil {
		return ports.Matrix{}, err
	}

	return ports.Matrix{Distances: distances, Durations: durations}, nil
}

func denseRows(rows [][]*float64, n int, name string) ([][]float64, error) {
	if len(rows) != n {
		return nil, fmt.Errorf("matrix %s: got %d rows, want %d", name, len(rows), n)
	}

	out := make([][]float64, n)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("matrix %s: row %d has %d entries, want %d", name, i, len(row), n)
		}
		out[i] = make([]float64, n)
		for j, v := range row {
			if v == nil {
				out[i][j] = unroutable
				continue
			}
			out[i][j] = *v
		}
	}
	return out, nil
}
