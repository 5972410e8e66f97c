package domain

import (
	"fmt"
	"time"
)

// TimeWindow is the interval within which a stop's arrival must fall.
// Start < End is enforced when orders are ingested.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewTimeWindow(start, end time.Time) (TimeWindow, error) {
	w := TimeWindow{Start: start, End: end}
	if err := w.Validate(); err != nil {
		return TimeWindow{}, err
	}
	return w, nil
}

func (w TimeWindow) Validate() error {
	if !w.Start.Before(w.End) {
		return &ValidationError{
			Op:     "time window",
			Reason: fmt.Sprintf("start %s must be before end %s", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339)),
		}
	}
	return nil
}

// Contains reports whether t falls inside the closed interval [Start, End].
func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Package is a single parcel belonging to an order.
type Package struct {
	ID       string  `json:"id"`
	WeightKg float64 `json:"weight_kg"`
	VolumeM3 float64 `json:"volume_m3"`
}

// Order is a delivery request for one address. An order becomes exactly one
// delivery point during an optimization run.
type Order struct {
	ID       string          `json:"id"`
	Address  string          `json:"address"`
	Location Coordinates     `json:"location"`
	Packages []Package       `json:"packages"`
	Window   Opt[TimeWindow] `json:"time_window"`
}

func (o Order) TotalWeight() float64 {
	total := 0.0
	for _, p := range o.Packages {
		total += p.WeightKg
	}
	return total
}

func (o Order) TotalVolume() float64 {
	total := 0.0
	for _, p := range o.Packages {
		total += p.VolumeM3
	}
	return total
}

// OrderWindow is the projection the time-window provider returns.
type OrderWindow struct {
	OrderID string
	Window  Opt[TimeWindow]
}

// WindowsByOrder indexes order windows by order id. Orders without a window
// are present with an absent Opt.
func WindowsByOrder(orders []Order) map[string]Opt[TimeWindow] {
	out := make(map[string]Opt[TimeWindow], len(orders))
	for _, o := range orders {
		out[o.ID] = o.Window
	}
	return out
}
