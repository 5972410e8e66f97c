package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteStatusTransitions(t *testing.T) {
	assert.True(t, StatusPlanned.CanTransition(StatusDispatched))
	assert.True(t, StatusDispatched.CanTransition(StatusInProgress))
	assert.True(t, StatusInProgress.CanTransition(StatusCompleted))

	assert.False(t, StatusPlanned.CanTransition(StatusCompleted))
	assert.False(t, StatusCompleted.CanTransition(StatusPlanned))
	assert.False(t, StatusInProgress.CanTransition(StatusPlanned))

	assert.True(t, StatusPlanned.Editable())
	assert.True(t, StatusOptimized.Editable())
	assert.False(t, StatusDispatched.Editable())
	assert.False(t, StatusInProgress.Editable())
}

func TestParseRouteStatus(t *testing.T) {
	st, err := ParseRouteStatus("IN_PROGRESS")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, st)

	_, err = ParseRouteStatus("LOST")
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestRouteCloneDoesNotShareStops(t *testing.T) {
	r := Route{ID: "r1", Stops: []RouteStop{{OrderID: "A", Sequence: 0}}}
	c := r.Clone()
	c.Stops[0].OrderID = "B"

	assert.Equal(t, "A", r.Stops[0].OrderID)
}

func TestSortAndRenumberStops(t *testing.T) {
	stops := []RouteStop{
		{OrderID: "C", Sequence: 7},
		{OrderID: "A", Sequence: 2},
		{OrderID: "B", Sequence: 5},
	}

	sorted := SortStops(stops)
	assert.Equal(t, []string{"A", "B", "C"}, []string{sorted[0].OrderID, sorted[1].OrderID, sorted[2].OrderID})

	renumbered := Renumber(sorted)
	for i, s := range renumbered {
		assert.Equal(t, i, s.Sequence)
	}
	require.NoError(t, ValidateStops(renumbered))

	// input untouched
	assert.Equal(t, 7, stops[0].Sequence)
}

func TestValidateStopsRejectsGapsAndDuplicates(t *testing.T) {
	err := ValidateStops([]RouteStop{{OrderID: "A", Sequence: 0}, {OrderID: "B", Sequence: 2}})
	assert.True(t, IsValidation(err))

	err = ValidateStops([]RouteStop{{OrderID: "A", Sequence: 0}, {OrderID: "A", Sequence: 1}})
	assert.True(t, IsValidation(err))
}

func TestTimeWindow(t *testing.T) {
	start := time.Date(2026, 1, 1, 14, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	w, err := NewTimeWindow(start, end)
	require.NoError(t, err)
	assert.True(t, w.Contains(start))
	assert.True(t, w.Contains(end))
	assert.False(t, w.Contains(start.Add(-time.Minute)))

	_, err = NewTimeWindow(end, start)
	assert.True(t, IsValidation(err))
}

func TestOptJSON(t *testing.T) {
	type payload struct {
		Stops Opt[int] `json:"stops"`
	}

	b, err := json.Marshal(payload{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"stops":null}`, string(b))

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"stops":12}`), &p))
	v, ok := p.Stops.Get()
	assert.True(t, ok)
	assert.Equal(t, 12, v)

	assert.Nil(t, None[int]().Ptr())
	assert.Equal(t, 3, FromPtr(Some(3).Ptr()).OrElse(0))
}

func TestVehicleCapacity(t *testing.T) {
	v := Vehicle{ID: "v1", MaxWeight: 800, MaxVolume: 10}
	assert.True(t, v.CanCarry(800, 10))
	assert.False(t, v.CanCarry(801, 1))
	assert.False(t, v.CanCarry(100, 11))
	assert.InDelta(t, 0.5, v.Utilization(400, 2), 1e-9)

	noVolume := Vehicle{ID: "v2", MaxWeight: 100}
	assert.True(t, noVolume.CanCarry(50, 1000))
}

func TestValidationErrorMatchesReorderSentinel(t *testing.T) {
	err := &ValidationError{Op: OpReorder, Reason: "order X not on route"}
	assert.True(t, errors.Is(err, ErrInvalidStopOrder))

	other := &ValidationError{Op: "vehicle", Reason: "bad"}
	assert.False(t, errors.Is(other, ErrInvalidStopOrder))
}
