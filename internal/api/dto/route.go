package dto

import (
	"time"
	"vrp-route-service/internal/domain"
	"vrp-route-service/internal/services"
)

type OptimizeRoutesRequest struct {
	LoadID   string              `json:"load_id"`
	OrderIDs []string            `json:"order_ids"`
	Depot    *domain.Coordinates `json:"depot"`
	StartAt  *time.Time          `json:"start_at"`
}

type CreateRouteRequest struct {
	LoadID    string              `json:"load_id"`
	OrderIDs  []string            `json:"order_ids"`
	Depot     *domain.Coordinates `json:"depot"`
	VehicleID *string             `json:"vehicle_id"`
	StartAt   *time.Time          `json:"start_at"`
}

type UpdateStopsRequest struct {
	// Version of the route the stops were edited from. 0 skips the check.
	Version int                `json:"version"`
	Stops   []domain.RouteStop `json:"stops"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type ReorderRequest struct {
	OrderIDs []string `json:"order_ids"`
}

type ListRoutesResponse struct {
	Routes []domain.Route `json:"routes"`
}

type ConflictsResponse struct {
	RouteID   string   `json:"route_id"`
	Conflicts []string `json:"conflicts"`
}

type AlternativesResponse struct {
	RouteID      string                      `json:"route_id"`
	Alternatives []services.AlternativeRoute `json:"alternatives"`
}
