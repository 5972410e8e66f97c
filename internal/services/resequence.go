package services

import (
	"fmt"
	"math"
	"slices"
	"vrp-route-service/internal/domain"
	"vrp-route-service/internal/ports"
)

// Suffixes appended to the route id of generated alternatives.
const (
	ReversedSuffix = "-reversed"
	SwappedSuffix  = "-swapped"
)

// Alternatives returns the full reversal of the stop sequence and, for
// routes with at least four stops, a variant with only the first and last
// stops swapped. Sequences are renumbered; arrival times are left stale and
// must be re-propagated by the caller.
func Alternatives(route domain.Route) []domain.Route {
	sorted := route.SortedStops()
	if len(sorted) < 2 {
		return []domain.Route{}
	}

	out := make([]domain.Route, 0, 2)

	rev := slices.Clone(sorted)
	slices.Reverse(rev)
	reversed := route.Clone()
	reversed.ID = route.ID + ReversedSuffix
	reversed.Stops = domain.Renumber(rev)
	out = append(out, reversed)

	if len(sorted) >= 4 {
		sw := slices.Clone(sorted)
		sw[0], sw[len(sw)-1] = sw[len(sw)-1], sw[0]
		swapped := route.Clone()
		swapped.ID = route.ID + SwappedSuffix
		swapped.Stops = domain.Renumber(sw)
		out = append(out, swapped)
	}

	return out
}

// ResequenceByWindow orders windowed stops by window start; stops without a
// window go last. Equal keys keep their current relative order. Arrival
// times must be recomputed before the result is considered valid.
func ResequenceByWindow(stops []domain.RouteStop, windows map[string]domain.Opt[domain.TimeWindow]) []domain.RouteStop {
	out := domain.SortStops(stops)
	slices.SortStableFunc(out, func(a, b domain.RouteStop) int {
		wa, okA := windows[a.OrderID].Get()
		wb, okB := windows[b.OrderID].Get()
		switch {
		case okA && okB:
			return wa.Start.Compare(wb.Start)
		case okA:
			return -1
		case okB:
			return 1
		}
		return 0
	})
	return domain.Renumber(out)
}

// Reorder rebuilds the stop list in the order of orderIDs. Every id must be
// on the route and appear once; otherwise nothing changes and a
// *domain.ValidationError is returned. Stops left out of orderIDs are
// appended afterwards in their current order, so no stop is dropped.
func Reorder(route domain.Route, orderIDs []string) ([]domain.RouteStop, error) {
	sorted := route.SortedStops()
	byOrder := make(map[string]domain.RouteStop, len(sorted))
	for _, s := range sorted {
		byOrder[s.OrderID] = s
	}

	used := make(map[string]struct{}, len(orderIDs))
	out := make([]domain.RouteStop, 0, len(sorted))
	for _, id := range orderIDs {
		s, ok := byOrder[id]
		if !ok {
			return nil, &domain.ValidationError{
				Op:     domain.OpReorder,
				Reason: fmt.Sprintf("order %s is not a stop on route %s", id, route.ID),
			}
		}
		if _, dup := used[id]; dup {
			return nil, &domain.ValidationError{
				Op:     domain.OpReorder,
				Reason: fmt.Sprintf("order %s listed more than once", id),
			}
		}
		used[id] = struct{}{}
		out = append(out, s)
	}

	for _, s := range sorted {
		if _, ok := used[s.OrderID]; !ok {
			out = append(out, s)
		}
	}

	return domain.Renumber(out), nil
}

// NearestNeighborOrder resequences stops greedily by travel duration from
// the depot. m is indexed over [depot, stops in sequence order...]. Ties
// break on order id so the result is deterministic.
func NearestNeighborOrder(stops []domain.RouteStop, m ports.Matrix) []domain.RouteStop {
	sorted := domain.SortStops(stops)
	n := len(sorted)
	if n < 2 {
		return domain.Renumber(sorted)
	}

	remaining := make([]bool, n)
	for i := range remaining {
		remaining[i] = true
	}

	out := make([]domain.RouteStop, 0, n)
	current := 0 // depot
	for len(out) < n {
		best := -1
		bestDuration := math.Inf(1)
		for k := 0; k < n; k++ {
			if !remaining[k] {
				continue
			}
			d := m.Duration(current, k+1)
			if math.IsNaN(d) || d < 0 {
				d = math.Inf(1)
			}
			if best < 0 || d < bestDuration || (d == bestDuration && sorted[k].OrderID < sorted[best].OrderID) {
				best = k
				bestDuration = d
			}
		}

		remaining[best] = false
		out = append(out, sorted[best])
		current = best + 1
	}

	return domain.Renumber(out)
}
