package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"vrp-route-service/internal/domain"
)

// SQL-backed implementation of the VehicleProvider port.
type SQLVehicleRepository struct{ DB *sql.DB }

func NewSQLVehicleRepository(conn *sql.DB) *SQLVehicleRepository {
	return &SQLVehicleRepository{DB: conn}
}

// ListVehicles returns the fleet ordered by id.
func (r *SQLVehicleRepository) ListVehicles(ctx context.Context) ([]domain.Vehicle, error) {
	if r.DB == nil {
		return nil, errors.New("vehicle repository: DB is nil")
	}

	query := `
	SELECT
		id,
		max_weight,
		max_volume,
		max_stops
	FROM vehicles
	ORDER BY id;
	`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: query vehicles table: %w", err)
	}
	defer rows.Close()

	vehicles := make([]domain.Vehicle, 0, 16)
	for rows.Next() {
		var (
			v        domain.Vehicle
			maxStops sql.NullInt64
		)
		if err := rows.Scan(&v.ID, &v.MaxWeight, &v.MaxVolume, &maxStops); err != nil {
			return nil, fmt.Errorf("list vehicles: scan row: %w", err)
		}
		if maxStops.Valid {
			v.MaxStops = domain.Some(int(maxStops.Int64))
		}
		vehicles = append(vehicles, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list vehicles: row iteration: %w", err)
	}

	return vehicles, nil
}
