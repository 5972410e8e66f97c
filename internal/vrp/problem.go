// Package vrp builds capacitated vehicle-routing problem instances and solves
// them with the Clarke-Wright savings heuristic.
//
// Index 0 of every matrix is the depot; delivery point k (0-based in
// Problem.Points) is matrix index k+1.
package vrp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"vrp-route-service/internal/domain"
	"vrp-route-service/internal/platform/obs"
	"vrp-route-service/internal/ports"
)

// Service time estimate per delivery point, in minutes. Tunable constants,
// not measurements.
const (
	BaseServiceMinutes       = 5
	PerPackageServiceMinutes = 2
)

// DeliveryPoint is one order normalized for the solver. Immutable for the
// lifetime of a solve.
type DeliveryPoint struct {
	ID                 string
	OrderID            string
	Address            string
	DemandWeight       float64
	DemandVolume       float64
	Window             domain.Opt[domain.TimeWindow]
	ServiceTimeMinutes int
	Location           domain.Coordinates
}

// Problem is a normalized VRP instance. Matrix is (N+1)x(N+1).
type Problem struct {
	Points   []DeliveryPoint
	Vehicles []domain.Vehicle
	Matrix   ports.Matrix
	Depot    domain.Coordinates
}

// N is the number of delivery points.
func (p *Problem) N() int { return len(p.Points) }

// Point returns the delivery point at matrix index idx (1..N).
func (p *Problem) Point(idx int) DeliveryPoint { return p.Points[idx-1] }

// Locations returns [depot, point_1, ..., point_N].
func (p *Problem) Locations() []domain.Coordinates {
	locs := make([]domain.Coordinates, 0, len(p.Points)+1)
	locs = append(locs, p.Depot)
	for _, pt := range p.Points {
		locs = append(locs, pt.Location)
	}
	return locs
}

// Demand sums weight and volume over matrix indices, ignoring the depot.
func (p *Problem) Demand(indices []int) (weight, volume float64) {
	for _, idx := range indices {
		if idx <= 0 || idx > len(p.Points) {
			continue
		}
		pt := p.Points[idx-1]
		weight += pt.DemandWeight
		volume += pt.DemandVolume
	}
	return weight, volume
}

// ServiceMinutes estimates dwell time for an order with the given number of packages.
func ServiceMinutes(packages int) int {
	return BaseServiceMinutes + PerPackageServiceMinutes*packages
}

// BuildProblem turns orders, vehicles and a depot into a Problem. The
// distance matrix comes from the oracle; its failure aborts the build.
func BuildProblem(
	ctx context.Context,
	orders []domain.Order,
	vehicles []domain.Vehicle,
	depot domain.Coordinates,
	oracle ports.DistanceOracle,
) (_ *Problem, err error) {
	defer obs.Time(ctx, "vrp.BuildProblem")(&err)

	if oracle == nil {
		return nil, errors.New("build problem: oracle must be non-nil")
	}
	if len(vehicles) == 0 {
		return nil, errors.New("build problem: at least one vehicle is required")
	}
	for _, v := range vehicles {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("build problem: %w", err)
		}
	}

	points := make([]DeliveryPoint, 0, len(orders))
	seen := make(map[string]struct{}, len(orders))
	for i, o := range orders {
		id := strings.TrimSpace(o.ID)
		if id == "" {
			return nil, fmt.Errorf("build problem: order at index %d has empty id", i)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("build problem: order %s listed twice", id)
		}
		seen[id] = struct{}{}

		points = append(points, DeliveryPoint{
			ID:                 fmt.Sprintf("dp-%d", i+1),
			OrderID:            id,
			Address:            o.Address,
			DemandWeight:       o.TotalWeight(),
			DemandVolume:       o.TotalVolume(),
			Window:             o.Window,
			ServiceTimeMinutes: ServiceMinutes(len(o.Packages)),
			Location:           o.Location,
		})
	}

	p := &Problem{
		Points:   points,
		Vehicles: vehicles,
		Depot:    depot,
	}

	if len(points) == 0 {
		p.Matrix = ports.Matrix{Distances: [][]float64{{0}}, Durations: [][]float64{{0}}}
		return p, nil
	}

	m, err := oracle.DistanceMatrix(ctx, p.Locations())
	if err != nil {
		return nil, fmt.Errorf("build problem: %w", &domain.OracleError{Op: "distance matrix", Err: err})
	}

	n := len(points) + 1
	if len(m.Distances) != n || len(m.Durations) != n {
		return nil, fmt.Errorf("build problem: matrix has %d rows, want %d", len(m.Distances), n)
	}
	for i := 0; i < n; i++ {
		if len(m.Distances[i]) != n || len(m.Durations[i]) != n {
			return nil, fmt.Errorf("build problem: matrix row %d is not %d wide", i, n)
		}
	}
	p.Matrix = m

	return p, nil
}
