package services

import (
	"cmp"
	"slices"
	"vrp-route-service/internal/domain"
)

type VehicleAssignment struct {
	LoadID      string  `json:"load_id"`
	VehicleID   string  `json:"vehicle_id"`
	Utilization float64 `json:"utilization"`
}

// CanCarry reports whether vehicle fits load. Capacity shortfall is an
// answer, not an error.
func CanCarry(vehicle domain.Vehicle, load domain.Load) bool {
	return vehicle.CanCarry(load.Weight, load.Volume)
}

// AssignVehicles pairs loads with vehicles using a greedy utilization ranking.
//
// Loads are processed one at a time, heaviest first, and each claims the free
// vehicle it would fill the most. Processing is strictly sequential so two
// loads can never claim the same vehicle; callers must not run batches for the
// same fleet concurrently. Loads no free vehicle can carry are returned in
// unmatched, in processing order.
func AssignVehicles(loads []domain.Load, vehicles []domain.Vehicle) (assigned []VehicleAssignment, unmatched []string) {
	order := slices.Clone(loads)
	slices.SortStableFunc(order, func(a, b domain.Load) int {
		if c := cmp.Compare(b.Weight, a.Weight); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	claimed := make([]bool, len(vehicles))
	assigned = []VehicleAssignment{}
	unmatched = []string{}

	for _, load := range order {
		best := -1
		bestUtil := -1.0
		for vi, v := range vehicles {
			if claimed[vi] || !CanCarry(v, load) {
				continue
			}
			// Tighter fit wins; equal fits fall back to vehicle id.
			u := v.Utilization(load.Weight, load.Volume)
			if u > bestUtil || (u == bestUtil && v.ID < vehicles[best].ID) {
				best = vi
				bestUtil = u
			}
		}

		if best < 0 {
			unmatched = append(unmatched, load.ID)
			continue
		}

		claimed[best] = true
		assigned = append(assigned, VehicleAssignment{
			LoadID:      load.ID,
			VehicleID:   vehicles[best].ID,
			Utilization: bestUtil,
		})
	}

	return assigned, unmatched
}
