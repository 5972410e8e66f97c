package services

import (
	"fmt"
	"time"
	"vrp-route-service/internal/domain"
)

type ConflictKind string

const (
	ArrivesEarly ConflictKind = "early"
	ArrivesLate  ConflictKind = "late"
)

// Conflict is a stop whose estimated arrival falls outside its order's window.
type Conflict struct {
	OrderID  string
	Sequence int
	Kind     ConflictKind
	Arrival  time.Time
	Window   domain.TimeWindow
}

// Describe renders the conflict with times of day in loc.
func (c Conflict) Describe(loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	clock := func(t time.Time) string { return t.In(loc).Format("15:04") }

	if c.Kind == ArrivesEarly {
		return fmt.Sprintf(
			"Stop %d (order %s): estimated arrival %s is before the time window starts at %s",
			c.Sequence+1, c.OrderID, clock(c.Arrival), clock(c.Window.Start),
		)
	}
	return fmt.Sprintf(
		"Stop %d (order %s): estimated arrival %s is after the time window ends at %s",
		c.Sequence+1, c.OrderID, clock(c.Arrival), clock(c.Window.End),
	)
}

// FindConflicts checks every stop with a window, in sequence order. Stops
// whose order has no window, or no entry in windows, never conflict.
func FindConflicts(stops []domain.RouteStop, windows map[string]domain.Opt[domain.TimeWindow]) []Conflict {
	out := []Conflict{}
	for _, s := range domain.SortStops(stops) {
		w, ok := windows[s.OrderID].Get()
		if !ok {
			continue
		}

		switch {
		case s.EstimatedArrival.Before(w.Start):
			out = append(out, Conflict{OrderID: s.OrderID, Sequence: s.Sequence, Kind: ArrivesEarly, Arrival: s.EstimatedArrival, Window: w})
		case s.EstimatedArrival.After(w.End):
			out = append(out, Conflict{OrderID: s.OrderID, Sequence: s.Sequence, Kind: ArrivesLate, Arrival: s.EstimatedArrival, Window: w})
		}
	}
	return out
}

// DetectConflicts returns one human-readable entry per violating stop. The
// result is never nil; an empty slice means no conflicts.
func DetectConflicts(stops []domain.RouteStop, windows map[string]domain.Opt[domain.TimeWindow], loc *time.Location) []string {
	conflicts := FindConflicts(stops, windows)
	out := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, c.Describe(loc))
	}
	return out
}
