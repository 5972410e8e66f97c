package domain

import "fmt"

// Vehicle capacity limits considered by the solver and the load matcher.
type Vehicle struct {
	ID        string   `json:"id"`
	MaxWeight float64  `json:"max_weight"`
	MaxVolume float64  `json:"max_volume"`
	MaxStops  Opt[int] `json:"max_stops"`
}

func (v Vehicle) Validate() error {
	if v.ID == "" {
		return &ValidationError{Op: "vehicle", Reason: "id must be non-empty"}
	}
	if v.MaxWeight <= 0 {
		return &ValidationError{Op: "vehicle", Reason: fmt.Sprintf("vehicle %s max weight must be positive", v.ID)}
	}
	if v.MaxVolume < 0 {
		return &ValidationError{Op: "vehicle", Reason: fmt.Sprintf("vehicle %s max volume must not be negative", v.ID)}
	}
	return nil
}

// CanCarry reports whether the vehicle fits the given demand. A zero MaxVolume
// means volume is not tracked for this vehicle.
func (v Vehicle) CanCarry(weight, volume float64) bool {
	if weight > v.MaxWeight {
		return false
	}
	if v.MaxVolume > 0 && volume > v.MaxVolume {
		return false
	}
	return true
}

// Utilization is the tighter of the weight and volume ratios.
func (v Vehicle) Utilization(weight, volume float64) float64 {
	u := 0.0
	if v.MaxWeight > 0 {
		u = weight / v.MaxWeight
	}
	if v.MaxVolume > 0 {
		if uv := volume / v.MaxVolume; uv > u {
			u = uv
		}
	}
	return u
}

// Load is a consolidated set of orders that travels on one vehicle.
type Load struct {
	ID       string   `json:"id"`
	OrderIDs []string `json:"order_ids"`
	Weight   float64  `json:"weight"`
	Volume   float64  `json:"volume"`
}
