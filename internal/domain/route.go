package domain

import (
	"fmt"
	"slices"
	"time"
)

type RouteStatus string

const (
	StatusPlanned    RouteStatus = "PLANNED"
	StatusOptimized  RouteStatus = "OPTIMIZED"
	StatusDispatched RouteStatus = "DISPATCHED"
	StatusInProgress RouteStatus = "IN_PROGRESS"
	StatusCompleted  RouteStatus = "COMPLETED"
	StatusCancelled  RouteStatus = "CANCELLED"
)

var routeTransitions = map[RouteStatus][]RouteStatus{
	StatusPlanned:    {StatusOptimized, StatusDispatched, StatusCancelled},
	StatusOptimized:  {StatusPlanned, StatusDispatched, StatusCancelled},
	StatusDispatched: {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted},
}

func ParseRouteStatus(s string) (RouteStatus, error) {
	st := RouteStatus(s)
	switch st {
	case StatusPlanned, StatusOptimized, StatusDispatched, StatusInProgress, StatusCompleted, StatusCancelled:
		return st, nil
	}
	return "", &ValidationError{Op: "route status", Reason: fmt.Sprintf("unknown status %q", s)}
}

func (s RouteStatus) CanTransition(to RouteStatus) bool {
	return slices.Contains(routeTransitions[s], to)
}

// Editable reports whether resequencing and repair may be applied.
func (s RouteStatus) Editable() bool {
	return s == StatusPlanned || s == StatusOptimized
}

// Represents a single stop in a delivery route.
// Sequence is 0-based and dense within a route after every mutation.
type RouteStop struct {
	OrderID          string      `json:"order_id"`
	Address          string      `json:"address"`
	Location         Coordinates `json:"location"`
	Sequence         int         `json:"sequence"`
	EstimatedArrival time.Time   `json:"estimated_arrival"`
}

// RouteMetrics are derived from a stop sequence and are only ever written
// together with that sequence.
type RouteMetrics struct {
	TotalDistanceMeters      int `json:"total_distance_meters"`
	EstimatedDurationSeconds int `json:"estimated_duration_seconds"`
}

// Route is the unit of persistence. The core works on copies and hands back
// a new stop list plus metrics for the caller to commit.
type Route struct {
	ID        string       `json:"id"`
	LoadID    string       `json:"load_id"`
	VehicleID Opt[string]  `json:"vehicle_id"`
	Depot     Coordinates  `json:"depot"`
	Stops     []RouteStop  `json:"stops"`
	Metrics   RouteMetrics `json:"metrics"`
	Status    RouteStatus  `json:"status"`
	Version   int          `json:"version"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Clone returns a deep copy so that callers can mutate stops freely.
func (r Route) Clone() Route {
	c := r
	c.Stops = slices.Clone(r.Stops)
	return c
}

// SortedStops returns a copy of the stops ordered by Sequence.
func (r Route) SortedStops() []RouteStop {
	return SortStops(r.Stops)
}

// WithStops returns a copy of the route carrying the given stops and metrics.
func (r Route) WithStops(stops []RouteStop, m RouteMetrics) Route {
	c := r.Clone()
	c.Stops = slices.Clone(stops)
	c.Metrics = m
	return c
}

func SortStops(stops []RouteStop) []RouteStop {
	out := slices.Clone(stops)
	slices.SortStableFunc(out, func(a, b RouteStop) int { return a.Sequence - b.Sequence })
	return out
}

// Renumber assigns sequence 0..n-1 following slice order.
func Renumber(stops []RouteStop) []RouteStop {
	out := slices.Clone(stops)
	for i := range out {
		out[i].Sequence = i
	}
	return out
}

// ValidateStops checks that sequences form a dense 0..n-1 permutation and
// that no order appears twice.
func ValidateStops(stops []RouteStop) error {
	seenSeq := make([]bool, len(stops))
	seenOrder := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		if s.Sequence < 0 || s.Sequence >= len(stops) || seenSeq[s.Sequence] {
			return &ValidationError{Op: "route stops", Reason: fmt.Sprintf("sequence %d is out of range or duplicated", s.Sequence)}
		}
		seenSeq[s.Sequence] = true

		if s.OrderID == "" {
			return &ValidationError{Op: "route stops", Reason: "order id must be non-empty"}
		}
		if _, ok := seenOrder[s.OrderID]; ok {
			return &ValidationError{Op: "route stops", Reason: fmt.Sprintf("order %s appears more than once", s.OrderID)}
		}
		seenOrder[s.OrderID] = struct{}{}
	}
	return nil
}

// OrderIDs lists the route's orders in sequence order.
func (r Route) OrderIDs() []string {
	sorted := r.SortedStops()
	ids := make([]string, 0, len(sorted))
	for _, s := range sorted {
		ids = append(ids, s.OrderID)
	}
	return ids
}
