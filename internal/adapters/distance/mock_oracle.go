package distance

import (
	"context"
	"fmt"
	"math"
	"sync"
	"vrp-route-service/internal/domain"
	"vrp-route-service/internal/ports"
)

type MockPair struct {
	From, To domain.Coordinates
	Meters   float64
	Seconds  float64
}

// MockOracle answers from explicit pairs and falls back to scaled Euclidean
// distance (111km per degree, 10 m/s) for anything not listed. A fixed
// matrix, when set, is returned verbatim for any location list of its size.
type MockOracle struct {
	mu              sync.Mutex
	pairs           map[string]MockPair
	fixed           *ports.Matrix
	MatrixErr       error
	DirectionsErr   error
	matrixCalls     int
	directionsCalls int
}

func NewMockOracle(pairs []MockPair) *MockOracle {
	m := &MockOracle{pairs: make(map[string]MockPair, len(pairs))}
	for _, p := range pairs {
		m.pairs[p.From.Key()+"|"+p.To.Key()] = p
	}
	return m
}

func NewFixedMatrixOracle(matrix ports.Matrix) *MockOracle {
	m := NewMockOracle(nil)
	m.fixed = &matrix
	return m
}

func (m *MockOracle) MatrixCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matrixCalls
}

func (m *MockOracle) DirectionsCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.directionsCalls
}

func (m *MockOracle) lookup(from, to domain.Coordinates) (float64, float64) {
	if from.Key() == to.Key() {
		return 0, 0
	}
	if p, ok := m.pairs[from.Key()+"|"+to.Key()]; ok {
		return p.Meters, p.Seconds
	}
	dLon := to.Lon - from.Lon
	dLat := to.Lat - from.Lat
	meters := math.Sqrt(dLon*dLon+dLat*dLat) * 111000
	return meters, meters / 10
}

func (m *MockOracle) DistanceMatrix(ctx context.Context, locations []domain.Coordinates) (ports.Matrix, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matrixCalls++

	if err := ctx.Err(); err != nil {
		return ports.Matrix{}, err
	}
	if m.MatrixErr != nil {
		return ports.Matrix{}, m.MatrixErr
	}

	if m.fixed != nil {
		if m.fixed.Size() != len(locations) {
			return ports.Matrix{}, fmt.Errorf("mock oracle: fixed matrix is %d wide, asked for %d locations", m.fixed.Size(), len(locations))
		}
		return *m.fixed, nil
	}

	n := len(locations)
	out := ports.Matrix{
		Distances: make([][]float64, n),
		Durations: make([][]float64, n),
	}
	for i := range locations {
		out.Distances[i] = make([]float64, n)
		out.Durations[i] = make([]float64, n)
		for j := range locations {
			out.Distances[i][j], out.Durations[i][j] = m.lookup(locations[i], locations[j])
		}
	}
	return out, nil
}

func (m *MockOracle) Directions(
	ctx context.Context,
	origin, destination domain.Coordinates,
	waypoints []domain.Coordinates,
) (ports.Directions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.directionsCalls++

	if err := ctx.Err(); err != nil {
		return ports.Directions{}, err
	}
	if m.DirectionsErr != nil {
		return ports.Directions{}, m.DirectionsErr
	}

	path := make([]domain.Coordinates, 0, len(waypoints)+2)
	path = append(path, origin)
	path = append(path, waypoints...)
	path = append(path, destination)

	var out ports.Directions
	for i := 1; i < len(path); i++ {
		meters, seconds := m.lookup(path[i-1], path[i])
		out.DistanceMeters += meters
		out.DurationSeconds += seconds
		out.Steps = append(out.Steps, ports.DirectionsStep{
			Instruction:     fmt.Sprintf("leg %d", i),
			DistanceMeters:  meters,
			DurationSeconds: seconds,
		})
	}
	out.Geometry = EncodePolyline(path)
	return out, nil
}
