package services

import (
	"testing"
	"vrp-route-service/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestCanCarry(t *testing.T) {
	v := domain.Vehicle{ID: "v", MaxWeight: 100, MaxVolume: 2}

	assert.True(t, CanCarry(v, domain.Load{Weight: 100, Volume: 2}))
	assert.False(t, CanCarry(v, domain.Load{Weight: 101}))
	assert.False(t, CanCarry(v, domain.Load{Weight: 10, Volume: 2.5}))
}

func TestAssignVehiclesPrefersTightestFit(t *testing.T) {
	vehicles := []domain.Vehicle{
		{ID: "van", MaxWeight: 500},
		{ID: "truck", MaxWeight: 2000},
		{ID: "bike", MaxWeight: 50},
	}
	loads := []domain.Load{
		{ID: "L-small", Weight: 40},
		{ID: "L-big", Weight: 1200},
		{ID: "L-mid", Weight: 300},
	}

	assigned, unmatched := AssignVehicles(loads, vehicles)

	assert.Empty(t, unmatched)
	assert.Equal(t, []VehicleAssignment{
		{LoadID: "L-big", VehicleID: "truck", Utilization: 0.6},
		{LoadID: "L-mid", VehicleID: "van", Utilization: 0.6},
		{LoadID: "L-small", VehicleID: "bike", Utilization: 0.8},
	}, assigned)
}

func TestAssignVehiclesNeverReusesVehicle(t *testing.T) {
	vehicles := []domain.Vehicle{{ID: "only", MaxWeight: 100}}
	loads := []domain.Load{{ID: "a", Weight: 10}, {ID: "b", Weight: 20}}

	assigned, unmatched := AssignVehicles(loads, vehicles)

	assert.Len(t, assigned, 1)
	assert.Equal(t, "b", assigned[0].LoadID)
	assert.Equal(t, []string{"a"}, unmatched)
}

func TestAssignVehiclesReportsUnmatched(t *testing.T) {
	assigned, unmatched := AssignVehicles(
		[]domain.Load{{ID: "heavy", Weight: 5000}},
		[]domain.Vehicle{{ID: "v", MaxWeight: 100}},
	)
	assert.NotNil(t, assigned)
	assert.Empty(t, assigned)
	assert.Equal(t, []string{"heavy"}, unmatched)
}
