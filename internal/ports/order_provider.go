package ports

import (
	"context"
	"vrp-route-service/internal/domain"
)

// Port: orders with delivery address and optional time window.
// Unknown ids are skipped, not reported as errors.
type OrderProvider interface {
	OrdersByIDs(ctx context.Context, ids []string) ([]domain.Order, error)
}

// Port: the fleet available for routing and load assignment.
type VehicleProvider interface {
	ListVehicles(ctx context.Context) ([]domain.Vehicle, error)
}
