package ports

import (
	"context"
	"vrp-route-service/internal/domain"
)

// Port: durable persistence of the Route aggregate.
// Lookups of unknown ids return domain.ErrNotFound.
type RouteStore interface {
	Create(ctx context.Context, route domain.Route) error
	// Store every route or none of them.
	CreateMany(ctx context.Context, routes []domain.Route) error
	FindByID(ctx context.Context, id string) (domain.Route, error)
	FindByStatus(ctx context.Context, status domain.RouteStatus) ([]domain.Route, error)
	FindByLoadID(ctx context.Context, loadID string) ([]domain.Route, error)
	FindByVehicleID(ctx context.Context, vehicleID string) ([]domain.Route, error)
	// Replace the stop list and its metrics in one write. Fails with
	// domain.ErrVersionConflict when the stored version differs.
	UpdateStops(ctx context.Context, id string, expectedVersion int, stops []domain.RouteStop, metrics domain.RouteMetrics) error
	UpdateMetrics(ctx context.Context, id string, metrics domain.RouteMetrics) error
	UpdateStatus(ctx context.Context, id string, status domain.RouteStatus) error
	AssignVehicle(ctx context.Context, id string, vehicleID string) error
}
