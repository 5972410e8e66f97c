package vrp

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"vrp-route-service/internal/ports"
)

// Saving is the Clarke-Wright value of serving I and J on one route:
// d(0,I) + d(0,J) - d(I,J).
type Saving struct {
	I, J  int
	Value float64
}

// Savings lists the unordered pairs of delivery indices (1..n), sorted by
// value descending. Ties keep (I, J) ascending so that solves are repeatable.
// Pairs touching an unroutable leg (negative or non-finite distance) are left
// out, so they are never merged.
func Savings(m ports.Matrix, n int) []Saving {
	out := make([]Saving, 0, n*(n-1)/2)
	for i := 1; i <= n; i++ {
		for j := i + 1; j <= n; j++ {
			d0i, d0j, dij := m.Distance(0, i), m.Distance(0, j), m.Distance(i, j)
			if !routable(d0i) || !routable(d0j) || !routable(dij) || !routable(m.Distance(j, i)) {
				continue
			}
			out = append(out, Saving{I: i, J: j, Value: d0i + d0j - dij})
		}
	}

	slices.SortStableFunc(out, func(a, b Saving) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		if c := cmp.Compare(a.I, b.I); c != 0 {
			return c
		}
		return cmp.Compare(a.J, b.J)
	})

	return out
}

func routable(d float64) bool {
	return d >= 0 && !math.IsInf(d, 1)
}

// MergeEvent describes an accepted merge. Emitted through Options.OnMerge.
type MergeEvent struct {
	Saving    Saving
	IEndpoint bool
	JEndpoint bool
	Combined  []int
	Weight    float64
}

type Options struct {
	Policy CapacityPolicy
	// OnMerge, when set, observes every accepted merge.
	OnMerge func(MergeEvent)
}

// Solution holds routes as matrix-index sequences, each starting and ending
// at the depot (0). VehicleIDs runs parallel to Routes. Every index 1..N is in
// exactly one route or in Unassigned.
type Solution struct {
	Routes     [][]int
	VehicleIDs []string
	Unassigned []int
}

// Validate checks the coverage invariant for a problem with n delivery points.
func (s Solution) Validate(n int) error {
	if len(s.VehicleIDs) != len(s.Routes) {
		return fmt.Errorf("solution: %d routes but %d vehicle ids", len(s.Routes), len(s.VehicleIDs))
	}

	seen := make([]bool, n+1)
	mark := func(idx int) error {
		if idx < 1 || idx > n {
			return fmt.Errorf("solution: index %d out of range 1..%d", idx, n)
		}
		if seen[idx] {
			return fmt.Errorf("solution: index %d placed more than once", idx)
		}
		seen[idx] = true
		return nil
	}

	for r, route := range s.Routes {
		if len(route) < 3 || route[0] != 0 || route[len(route)-1] != 0 {
			return fmt.Errorf("solution: route %d must start and end at the depot and visit a point", r)
		}
		for _, idx := range route[1 : len(route)-1] {
			if err := mark(idx); err != nil {
				return err
			}
		}
	}
	for _, idx := range s.Unassigned {
		if err := mark(idx); err != nil {
			return err
		}
	}
	for idx := 1; idx <= n; idx++ {
		if !seen[idx] {
			return fmt.Errorf("solution: index %d neither routed nor unassigned", idx)
		}
	}
	return nil
}

// arena owns the route bookkeeping for one solve. Routes are addressed by
// handle; a nil route has been absorbed into another.
type arena struct {
	routes  [][]int
	weight  []float64
	volume  []float64
	routeOf []int // point index -> route handle, -1 when never placed
}

func newArena(p *Problem, admit func(weight, volume float64, stops int) bool) *arena {
	n := p.N()
	a := &arena{
		routes:  make([][]int, 0, n),
		weight:  make([]float64, 0, n),
		volume:  make([]float64, 0, n),
		routeOf: make([]int, n+1),
	}
	a.routeOf[0] = -1

	for idx := 1; idx <= n; idx++ {
		pt := p.Point(idx)
		if !admit(pt.DemandWeight, pt.DemandVolume, 1) {
			a.routeOf[idx] = -1
			continue
		}
		a.routeOf[idx] = len(a.routes)
		a.routes = append(a.routes, []int{idx})
		a.weight = append(a.weight, pt.DemandWeight)
		a.volume = append(a.volume, pt.DemandVolume)
	}
	return a
}

func (a *arena) isHead(idx int) bool {
	r := a.routes[a.routeOf[idx]]
	return r[0] == idx
}

func (a *arena) isTail(idx int) bool {
	r := a.routes[a.routeOf[idx]]
	return r[len(r)-1] == idx
}

// link joins the routes of i and j so that i and j become adjacent.
// Returns the combined sequence, or nil if either point is interior.
func (a *arena) link(i, j int) []int {
	ri, rj := a.routes[a.routeOf[i]], a.routes[a.routeOf[j]]

	switch {
	case a.isTail(i) && a.isHead(j):
		return concat(ri, rj)
	case a.isHead(i) && a.isTail(j):
		return concat(rj, ri)
	case a.isHead(i) && a.isHead(j):
		return concat(reversed(ri), rj)
	case a.isTail(i) && a.isTail(j):
		return concat(ri, reversed(rj))
	}
	return nil
}

func (a *arena) absorb(survivor, absorbed int, combined []int) {
	a.routes[survivor] = combined
	a.weight[survivor] += a.weight[absorbed]
	a.volume[survivor] += a.volume[absorbed]
	for _, idx := range a.routes[absorbed] {
		a.routeOf[idx] = survivor
	}
	a.routes[absorbed] = nil
}

// construct runs the savings merge loop. admit decides whether a route with
// the given demand and stop count is feasible.
func construct(p *Problem, admit func(weight, volume float64, stops int) bool, onMerge func(MergeEvent)) (routes [][]int, unassigned []int) {
	a := newArena(p, admit)

	for _, s := range Savings(p.Matrix, p.N()) {
		if s.Value <= 0 {
			// sorted descending: nothing after this can help
			break
		}

		hi, hj := a.routeOf[s.I], a.routeOf[s.J]
		if hi < 0 || hj < 0 || hi == hj {
			continue
		}

		iEnd := a.isHead(s.I) || a.isTail(s.I)
		jEnd := a.isHead(s.J) || a.isTail(s.J)
		if !iEnd || !jEnd {
			continue
		}

		weight := a.weight[hi] + a.weight[hj]
		volume := a.volume[hi] + a.volume[hj]
		stops := len(a.routes[hi]) + len(a.routes[hj])
		if !admit(weight, volume, stops) {
			continue
		}

		combined := a.link(s.I, s.J)
		if combined == nil {
			continue
		}
		a.absorb(hi, hj, combined)

		if onMerge != nil {
			onMerge(MergeEvent{Saving: s, IEndpoint: iEnd, JEndpoint: jEnd, Combined: slices.Clone(combined), Weight: weight})
		}
	}

	for _, r := range a.routes {
		if len(r) == 0 {
			continue
		}
		withDepot := make([]int, 0, len(r)+2)
		withDepot = append(withDepot, 0)
		withDepot = append(withDepot, r...)
		withDepot = append(withDepot, 0)
		routes = append(routes, withDepot)
	}

	for idx := 1; idx <= p.N(); idx++ {
		if a.routeOf[idx] < 0 {
			unassigned = append(unassigned, idx)
		}
	}

	return routes, unassigned
}

// Solve constructs routes with the savings heuristic and maps them onto
// vehicles according to opts.Policy.
func Solve(p *Problem, opts Options) (Solution, error) {
	if p == nil {
		return Solution{}, fmt.Errorf("solve: problem must be non-nil")
	}
	if len(p.Vehicles) == 0 {
		return Solution{}, fmt.Errorf("solve: at least one vehicle is required")
	}
	if p.N() == 0 {
		return Solution{Routes: [][]int{}, VehicleIDs: []string{}, Unassigned: []int{}}, nil
	}

	strategy := opts.Policy.strategy()
	routes, unassigned := construct(p, strategy.admit(p.Vehicles), opts.OnMerge)

	sol := strategy.assign(p, routes)
	sol.Unassigned = append(sol.Unassigned, unassigned...)
	slices.Sort(sol.Unassigned)

	if sol.Routes == nil {
		sol.Routes = [][]int{}
		sol.VehicleIDs = []string{}
	}
	if sol.Unassigned == nil {
		sol.Unassigned = []int{}
	}

	if err := sol.Validate(p.N()); err != nil {
		return Solution{}, fmt.Errorf("solve: %w", err)
	}
	return sol, nil
}

func concat(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

func reversed(r []int) []int {
	out := slices.Clone(r)
	slices.Reverse(out)
	return out
}
