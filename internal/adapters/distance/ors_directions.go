package distance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"vrp-route-service/internal/domain"
	"vrp-route-service/internal/platform/obs"
	"vrp-route-service/internal/ports"
)

type directionsRequest struct {
	Coordinates  [][]float64 `json:"coordinates"`
	Instructions bool        `json:"instructions"`
	Units        string      `json:"units"`
}

type directionsResponse struct {
	Routes []struct {
		Summary struct {
			Distance float64 `json:"distance"`
			Duration float64 `json:"duration"`
		} `json:"summary"`
		Geometry string `json:"geometry"`
		Segments []struct {
			Steps []struct {
				Instruction string  `json:"instruction"`
				Distance    float64 `json:"distance"`
				Duration    float64 `json:"duration"`
			} `json:"steps"`
		} `json:"segments"`
	} `json:"routes"`
}

// Directions returns the driving path origin -> waypoints -> destination
// with an encoded polyline geometry and turn-by-turn steps.
func (o *ORSOracle) Directions(
	ctx context.Context,
	origin, destination domain.Coordinates,
	waypoints []domain.Coordinates,
) (_ ports.Directions, err error) {
	defer obs.Time(ctx, "ors.Directions")(&err)

	endpoint := fmt.Sprintf("%s/v2/directions/%s", o.baseURL, o.profile)

	coords := make([][]float64, 0, len(waypoints)+2)
	coords = append(coords, origin.CoordsToList())
	for _, w := range waypoints {
		coords = append(coords, w.CoordsToList())
	}
	coords = append(coords, destination.CoordsToList())

	payload, err := json.Marshal(directionsRequest{
		Coordinates:  coords,
		Instructions: true,
		Units:        "m",
	})
	if err != nil {
		return ports.Directions{}, fmt.Errorf("marshal directions request: %w", err)
	}

	resp, err := o.doWithRetry(ctx, "directions", func() (*http.Request, error) {
		return o.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	})
	if err != nil {
		return ports.Directions{}, fmt.Errorf("directions request failed: %w", err)
	}
	defer resp.Body.Close()

	var dr directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return ports.Directions{}, fmt.Errorf("decode directions response: %w", err)
	}
	if len(dr.Routes) == 0 {
		return ports.Directions{}, errors.New("directions response has no routes")
	}

	r := dr.Routes[0]
	out := ports.Directions{
		DistanceMeters:  r.Summary.Distance,
		DurationSeconds: r.Summary.Duration,
		Geometry:        r.Geometry,
		Steps:           []ports.DirectionsStep{},
	}
	for _, seg := range r.Segments {
		for _, st := range seg.Steps {
			out.Steps = append(out.Steps, ports.DirectionsStep{
				Instruction:     st.Instruction,
				DistanceMeters:  st.Distance,
				DurationSeconds: st.Duration,
			})
		}
	}

	return out, nil
}
