package vrp

import (
	"math"
	"math/rand"
	"slices"
	"testing"
	"vrp-route-service/internal/domain"
	"vrp-route-service/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// matrixProblem builds a Problem straight from a distance matrix. demands[k]
// belongs to matrix index k+1.
func matrixProblem(dist [][]float64, demands []float64, vehicles ...domain.Vehicle) *Problem {
	points := make([]DeliveryPoint, len(demands))
	for k, d := range demands {
		points[k] = DeliveryPoint{OrderID: string(rune('A' + k)), DemandWeight: d}
	}
	return &Problem{
		Points:   points,
		Vehicles: vehicles,
		Matrix:   ports.Matrix{Distances: dist, Durations: dist},
	}
}

func randomProblem(rng *rand.Rand, n int, vehicles ...domain.Vehicle) *Problem {
	coords := make([][2]float64, n+1)
	for i := range coords {
		coords[i] = [2]float64{rng.Float64() * 100, rng.Float64() * 100}
	}
	dist := make([][]float64, n+1)
	for i := range dist {
		dist[i] = make([]float64, n+1)
		for j := range dist[i] {
			dx := coords[i][0] - coords[j][0]
			dy := coords[i][1] - coords[j][1]
			dist[i][j] = math.Sqrt(dx*dx + dy*dy)
		}
	}
	demands := make([]float64, n)
	for k := range demands {
		demands[k] = float64(1 + rng.Intn(300))
	}
	return matrixProblem(dist, demands, vehicles...)
}

func adjacent(route []int, a, b int) bool {
	for k := 1; k < len(route); k++ {
		if (route[k-1] == a && route[k] == b) || (route[k-1] == b && route[k] == a) {
			return true
		}
	}
	return false
}

func TestSolveMergesLargestSavingFirst(t *testing.T) {
	dist := [][]float64{
		{0, 10, 10, 10},
		{10, 0, 5, 15},
		{10, 5, 0, 15},
		{10, 15, 15, 0},
	}
	p := matrixProblem(dist, []float64{1, 1, 1}, domain.Vehicle{ID: "v1", MaxWeight: 100})

	sol, err := Solve(p, Options{})
	require.NoError(t, err)

	require.Len(t, sol.Routes, 1)
	assert.Empty(t, sol.Unassigned)
	assert.True(t, adjacent(sol.Routes[0], 1, 2), "route %v should place 1 and 2 side by side", sol.Routes[0])
	assert.Equal(t, []string{"v1"}, sol.VehicleIDs)

	savings := Savings(p.Matrix, 3)
	assert.Equal(t, Saving{I: 1, J: 2, Value: 15}, savings[0])
}

func TestSolveSplitsOnCapacity(t *testing.T) {
	dist := [][]float64{
		{0, 10, 10, 10},
		{10, 0, 2, 2},
		{10, 2, 0, 2},
		{10, 2, 2, 0},
	}
	p := matrixProblem(dist, []float64{400, 400, 400}, domain.Vehicle{ID: "v1", MaxWeight: 800})

	sol, err := Solve(p, Options{})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(sol.Routes), 2)
	for _, r := range sol.Routes {
		w, _ := p.Demand(r)
		assert.LessOrEqual(t, w, 800.0)
	}
	require.NoError(t, sol.Validate(3))
}

func TestSavingsAreNonIncreasing(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	p := randomProblem(rng, 40, domain.Vehicle{ID: "v", MaxWeight: 1000})

	savings := Savings(p.Matrix, p.N())
	require.Len(t, savings, 40*39/2)
	for k := 1; k < len(savings); k++ {
		assert.GreaterOrEqual(t, savings[k-1].Value, savings[k].Value)
	}
}

func TestUnroutablePairIsNeverMerged(t *testing.T) {
	dist := [][]float64{
		{0, 10, 10, 10},
		{10, 0, -1, 2},
		{10, -1, 0, 2},
		{10, 2, 2, 0},
	}
	p := matrixProblem(dist, []float64{1, 1, 1}, domain.Vehicle{ID: "v", MaxWeight: 100})

	savings := Savings(p.Matrix, 3)
	for _, s := range savings {
		assert.False(t, s.I == 1 && s.J == 2, "unroutable pair listed: %+v", s)
	}
	require.Len(t, savings, 2)

	sol, err := Solve(p, Options{})
	require.NoError(t, err)
	require.Len(t, sol.Routes, 1)
	assert.False(t, adjacent(sol.Routes[0], 1, 2))
	assert.Equal(t, []int{0, 1, 3, 2, 0}, sol.Routes[0])
}

func TestSavingsSkipNonFiniteLegs(t *testing.T) {
	dist := [][]float64{
		{0, 10, math.Inf(1)},
		{10, 0, 3},
		{math.NaN(), 3, 0},
	}
	p := matrixProblem(dist, []float64{1, 1}, domain.Vehicle{ID: "v", MaxWeight: 100})

	assert.Empty(t, Savings(p.Matrix, 2))
}

func TestSolveCoverageAndCapacityRandomized(t *testing.T) {
	fleet := []domain.Vehicle{
		{ID: "small", MaxWeight: 500},
		{ID: "large", MaxWeight: 1500},
		{ID: "mid", MaxWeight: 900},
	}
	capacityOf := map[string]float64{"small": 500, "large": 1500, "mid": 900}

	for seed := int64(1); seed <= 40; seed++ {
		rng := rand.New(rand.NewSource(seed))
		n := 1 + rng.Intn(30)
		p := randomProblem(rng, n, fleet...)

		for _, policy := range []CapacityPolicy{SharedCapacity, PerVehicleCapacity} {
			sol, err := Solve(p, Options{Policy: policy})
			require.NoError(t, err, "seed %d policy %s", seed, policy)
			require.NoError(t, sol.Validate(n), "seed %d policy %s", seed, policy)

			for r, route := range sol.Routes {
				w, _ := p.Demand(route)
				limit := fleet[0].MaxWeight
				if policy == PerVehicleCapacity {
					limit = capacityOf[sol.VehicleIDs[r]]
				}
				assert.LessOrEqual(t, w, limit, "seed %d policy %s route %v", seed, policy, route)
			}

			if policy == PerVehicleCapacity {
				assert.Equal(t, len(sol.VehicleIDs), len(slicesCompactSorted(sol.VehicleIDs)), "vehicle used twice")
			}
		}
	}
}

func slicesCompactSorted(ids []string) []string {
	c := slices.Clone(ids)
	slices.Sort(c)
	return slices.Compact(c)
}

func TestMergesOnlyJoinRouteEndpoints(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	p := randomProblem(rng, 25, domain.Vehicle{ID: "v", MaxWeight: 2000})

	merges := 0
	_, err := Solve(p, Options{OnMerge: func(e MergeEvent) {
		merges++
		assert.True(t, e.IEndpoint || e.JEndpoint)
		assert.True(t, adjacent(e.Combined, e.Saving.I, e.Saving.J), "merge %v did not link %d-%d", e.Combined, e.Saving.I, e.Saving.J)
		assert.LessOrEqual(t, e.Weight, 2000.0)
	}})
	require.NoError(t, err)
	assert.Positive(t, merges)
}

func TestOversizedPointIsUnassigned(t *testing.T) {
	dist := [][]float64{
		{0, 10, 10},
		{10, 0, 3},
		{10, 3, 0},
	}
	p := matrixProblem(dist, []float64{50, 900}, domain.Vehicle{ID: "v1", MaxWeight: 100})

	sol, err := Solve(p, Options{})
	require.NoError(t, err)

	assert.Equal(t, []int{2}, sol.Unassigned)
	require.Len(t, sol.Routes, 1)
	assert.Equal(t, []int{0, 1, 0}, sol.Routes[0])
}

func TestSharedPolicyReusesVehiclesRoundRobin(t *testing.T) {
	// no positive savings: every point stays on its own route
	dist := [][]float64{
		{0, 1, 1, 1},
		{1, 0, 5, 5},
		{1, 5, 0, 5},
		{1, 5, 5, 0},
	}
	p := matrixProblem(dist, []float64{1, 1, 1},
		domain.Vehicle{ID: "v1", MaxWeight: 10},
		domain.Vehicle{ID: "v2", MaxWeight: 10},
	)

	sol, err := Solve(p, Options{})
	require.NoError(t, err)

	require.Len(t, sol.Routes, 3)
	assert.Equal(t, []string{"v1", "v2", "v1"}, sol.VehicleIDs)
}

func TestPerVehiclePolicyReleasesRoutesWithoutVehicle(t *testing.T) {
	dist := [][]float64{
		{0, 1, 1, 1},
		{1, 0, 5, 5},
		{1, 5, 0, 5},
		{1, 5, 5, 0},
	}
	p := matrixProblem(dist, []float64{5, 8, 3},
		domain.Vehicle{ID: "big", MaxWeight: 10},
		domain.Vehicle{ID: "tiny", MaxWeight: 4},
	)

	sol, err := Solve(p, Options{Policy: PerVehicleCapacity})
	require.NoError(t, err)

	// heaviest (8) takes "big", 5 fits nothing left, 3 takes "tiny"
	require.Len(t, sol.Routes, 2)
	assert.Equal(t, []int{1}, sol.Unassigned)
	assert.ElementsMatch(t, []string{"big", "tiny"}, sol.VehicleIDs)
}

func TestMaxStopsBoundsMerges(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	p := randomProblem(rng, 12, domain.Vehicle{ID: "v", MaxWeight: 1e9, MaxStops: domain.Some(3)})

	sol, err := Solve(p, Options{})
	require.NoError(t, err)
	for _, r := range sol.Routes {
		assert.LessOrEqual(t, len(r)-2, 3)
	}
}

func TestSolveEmptyProblem(t *testing.T) {
	p := &Problem{Vehicles: []domain.Vehicle{{ID: "v", MaxWeight: 1}}}
	sol, err := Solve(p, Options{})
	require.NoError(t, err)
	assert.Empty(t, sol.Routes)
	assert.NotNil(t, sol.Unassigned)
}

func TestSolveIsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	p := randomProblem(rng, 20, domain.Vehicle{ID: "v", MaxWeight: 700})

	a, err := Solve(p, Options{})
	require.NoError(t, err)
	b, err := Solve(p, Options{})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestParseCapacityPolicy(t *testing.T) {
	p, err := ParseCapacityPolicy("per-vehicle")
	require.NoError(t, err)
	assert.Equal(t, PerVehicleCapacity, p)

	p, err = ParseCapacityPolicy("")
	require.NoError(t, err)
	assert.Equal(t, SharedCapacity, p)

	_, err = ParseCapacityPolicy("best-effort")
	assert.Error(t, err)
}
