package vrp

import (
	"cmp"
	"fmt"
	"slices"
	"vrp-route-service/internal/domain"
)

// CapacityPolicy selects how merge feasibility is checked and how finished
// routes are mapped onto vehicles.
type CapacityPolicy int

const (
	// SharedCapacity checks every merge against the first vehicle's limits
	// and maps routes to vehicles round-robin. Later routes reuse vehicles
	// cyclically when routes outnumber vehicles. Heterogeneous fleets are
	// under-used under this policy.
	SharedCapacity CapacityPolicy = iota
	// PerVehicleCapacity admits a merge when at least one vehicle in the
	// fleet can carry it, then assigns routes best-fit-decreasing with each
	// vehicle used at most once. Routes no free vehicle can carry are
	// released to Unassigned.
	PerVehicleCapacity
)

func ParseCapacityPolicy(s string) (CapacityPolicy, error) {
	switch s {
	case "", "shared":
		return SharedCapacity, nil
	case "per-vehicle":
		return PerVehicleCapacity, nil
	}
	return 0, fmt.Errorf("unknown capacity policy %q", s)
}

func (p CapacityPolicy) String() string {
	if p == PerVehicleCapacity {
		return "per-vehicle"
	}
	return "shared"
}

type capacityStrategy interface {
	admit(vehicles []domain.Vehicle) func(weight, volume float64, stops int) bool
	assign(p *Problem, routes [][]int) Solution
}

func (p CapacityPolicy) strategy() capacityStrategy {
	if p == PerVehicleCapacity {
		return perVehicle{}
	}
	return shared{}
}

func fits(v domain.Vehicle, weight, volume float64, stops int) bool {
	if !v.CanCarry(weight, volume) {
		return false
	}
	if limit, ok := v.MaxStops.Get(); ok && stops > limit {
		return false
	}
	return true
}

type shared struct{}

func (shared) admit(vehicles []domain.Vehicle) func(float64, float64, int) bool {
	ref := vehicles[0]
	return func(weight, volume float64, stops int) bool {
		return fits(ref, weight, volume, stops)
	}
}

func (shared) assign(p *Problem, routes [][]int) Solution {
	sol := Solution{
		Routes:     routes,
		VehicleIDs: make([]string, len(routes)),
	}
	for i := range routes {
		sol.VehicleIDs[i] = p.Vehicles[i%len(p.Vehicles)].ID
	}
	return sol
}

type perVehicle struct{}

func (perVehicle) admit(vehicles []domain.Vehicle) func(float64, float64, int) bool {
	return func(weight, volume float64, stops int) bool {
		for _, v := range vehicles {
			if fits(v, weight, volume, stops) {
				return true
			}
		}
		return false
	}
}

func (perVehicle) assign(p *Problem, routes [][]int) Solution {
	order := make([]int, len(routes))
	weights := make([]float64, len(routes))
	for i, r := range routes {
		order[i] = i
		weights[i], _ = p.Demand(r)
	}
	// heaviest route picks first
	slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(weights[b], weights[a]) })

	used := make([]bool, len(p.Vehicles))
	chosen := make([]int, len(routes))
	for i := range chosen {
		chosen[i] = -1
	}

	for _, ri := range order {
		w, vol := p.Demand(routes[ri])
		stops := len(routes[ri]) - 2
		best := -1
		for vi, v := range p.Vehicles {
			if used[vi] || !fits(v, w, vol, stops) {
				continue
			}
			if best < 0 || v.MaxWeight < p.Vehicles[best].MaxWeight {
				best = vi
			}
		}
		if best >= 0 {
			used[best] = true
			chosen[ri] = best
		}
	}

	var sol Solution
	for ri, r := range routes {
		if chosen[ri] < 0 {
			sol.Unassigned = append(sol.Unassigned, r[1:len(r)-1]...)
			continue
		}
		sol.Routes = append(sol.Routes, r)
		sol.VehicleIDs = append(sol.VehicleIDs, p.Vehicles[chosen[ri]].ID)
	}
	return sol
}
