package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"vrp-route-service/internal/domain"
	"vrp-route-service/internal/platform/db"
)

// Timestamps are stored as RFC 3339 text in UTC so the same schema runs on
// SQLite and Postgres. The fraction is fixed width so text order is time
// order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var schema = []string{
	`
	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		address TEXT NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		window_start TEXT,
		window_end TEXT
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS packages (
		id TEXT PRIMARY KEY,
		order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		weight_kg DOUBLE PRECISION NOT NULL,
		volume_m3 DOUBLE PRECISION NOT NULL DEFAULT 0
	);
	`,
	`CREATE INDEX IF NOT EXISTS idx_packages_order_id ON packages(order_id);`,
	`
	CREATE TABLE IF NOT EXISTS vehicles (
		id TEXT PRIMARY KEY,
		max_weight DOUBLE PRECISION NOT NULL,
		max_volume DOUBLE PRECISION NOT NULL DEFAULT 0,
		max_stops INTEGER
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS routes (
		id TEXT PRIMARY KEY,
		load_id TEXT NOT NULL,
		vehicle_id TEXT,
		depot_lon DOUBLE PRECISION NOT NULL,
		depot_lat DOUBLE PRECISION NOT NULL,
		status TEXT NOT NULL,
		total_distance_meters INTEGER NOT NULL DEFAULT 0,
		estimated_duration_seconds INTEGER NOT NULL DEFAULT 0,
		version INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`,
	`CREATE INDEX IF NOT EXISTS idx_routes_status ON routes(status);`,
	`CREATE INDEX IF NOT EXISTS idx_routes_load_id ON routes(load_id);`,
	`CREATE INDEX IF NOT EXISTS idx_routes_vehicle_id ON routes(vehicle_id);`,
	`
	CREATE TABLE IF NOT EXISTS route_stops (
		route_id TEXT NOT NULL REFERENCES routes(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		order_id TEXT NOT NULL,
		address TEXT NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		estimated_arrival TEXT,
		PRIMARY KEY (route_id, seq)
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS oracle_cache (
		kind TEXT NOT NULL,
		cache_key TEXT NOT NULL,
		payload TEXT NOT NULL,
		expires_at BIGINT NOT NULL,
		PRIMARY KEY (kind, cache_key)
	);
	`,
	`CREATE INDEX IF NOT EXISTS idx_oracle_cache_expires_at ON oracle_cache(expires_at);`,
}

// InitSchema creates every table the service uses. Safe to run repeatedly.
func InitSchema(conn *sql.DB) error {
	if conn == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range schema {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// Seed is the JSON layout accepted by SeedFromJSON.
type Seed struct {
	Orders   []domain.Order   `json:"orders"`
	Vehicles []domain.Vehicle `json:"vehicles"`
}

// SeedFromJSON upserts orders (with their packages) and vehicles from a
// JSON file. Existing packages of a seeded order are replaced.
func SeedFromJSON(ctx context.Context, conn *sql.DB, driver, jsonPath string) error {
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed: read %q: %w", jsonPath, err)
	}

	var seed Seed
	if err := json.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("seed: parse json: %w", err)
	}

	return Apply(ctx, conn, driver, seed)
}

// Apply validates and writes a seed in one transaction.
func Apply(ctx context.Context, conn *sql.DB, driver string, seed Seed) error {
	for i, o := range seed.Orders {
		if err := validateOrder(o); err != nil {
			return fmt.Errorf("seed: order at index %d: %w", i+1, err)
		}
	}
	for i, v := range seed.Vehicles {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("seed: vehicle at index %d: %w", i+1, err)
		}
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	upsertOrder := db.Rebind(driver, `
	INSERT INTO orders (id, address, lon, lat, window_start, window_end)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE
	SET address = EXCLUDED.address,
		lon = EXCLUDED.lon,
		lat = EXCLUDED.lat,
		window_start = EXCLUDED.window_start,
		window_end = EXCLUDED.window_end;
	`)
	deletePackages := db.Rebind(driver, `DELETE FROM packages WHERE order_id = ?;`)
	insertPackage := db.Rebind(driver, `
	INSERT INTO packages (id, order_id, weight_kg, volume_m3)
	VALUES (?, ?, ?, ?);
	`)
	upsertVehicle := db.Rebind(driver, `
	INSERT INTO vehicles (id, max_weight, max_volume, max_stops)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE
	SET max_weight = EXCLUDED.max_weight,
		max_volume = EXCLUDED.max_volume,
		max_stops = EXCLUDED.max_stops;
	`)

	for _, o := range seed.Orders {
		var start, end *string
		if w, ok := o.Window.Get(); ok {
			s, e := formatTime(w.Start), formatTime(w.End)
			start, end = &s, &e
		}
		if _, err := tx.ExecContext(ctx, upsertOrder, o.ID, o.Address, o.Location.Lon, o.Location.Lat, start, end); err != nil {
			return fmt.Errorf("seed: upsert order %s: %w", o.ID, err)
		}
		if _, err := tx.ExecContext(ctx, deletePackages, o.ID); err != nil {
			return fmt.Errorf("seed: clear packages of %s: %w", o.ID, err)
		}
		for k, p := range o.Packages {
			id := p.ID
			if id == "" {
				id = fmt.Sprintf("%s-p%d", o.ID, k+1)
			}
			if _, err := tx.ExecContext(ctx, insertPackage, id, o.ID, p.WeightKg, p.VolumeM3); err != nil {
				return fmt.Errorf("seed: insert package %s: %w", id, err)
			}
		}
	}

	for _, v := range seed.Vehicles {
		if _, err := tx.ExecContext(ctx, upsertVehicle, v.ID, v.MaxWeight, v.MaxVolume, v.MaxStops.Ptr()); err != nil {
			return fmt.Errorf("seed: upsert vehicle %s: %w", v.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit tx: %w", err)
	}

	return nil
}

func validateOrder(o domain.Order) error {
	if strings.TrimSpace(o.ID) == "" {
		return errors.New("id cannot be empty")
	}
	if strings.TrimSpace(o.Address) == "" {
		return fmt.Errorf("order %s: address cannot be empty", o.ID)
	}
	if err := o.Location.Validate(); err != nil {
		return fmt.Errorf("order %s: %w", o.ID, err)
	}
	if w, ok := o.Window.Get(); ok {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("order %s: %w", o.ID, err)
		}
	}
	for _, p := range o.Packages {
		if p.WeightKg < 0 || p.VolumeM3 < 0 {
			return fmt.Errorf("order %s: package demand must not be negative", o.ID)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// nullTime maps an optional timestamp column; the zero time is stored as NULL.
func nullTime(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := formatTime(t)
	return &s
}
