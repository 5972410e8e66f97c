package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"vrp-route-service/internal/domain"
	"vrp-route-service/internal/platform/db"
	"vrp-route-service/internal/platform/obs"
)

// SQL-backed implementation of the OrderProvider port.
type SQLOrderRepository struct {
	DB     *sql.DB
	driver string
}

func NewSQLOrderRepository(conn *sql.DB, driver string) *SQLOrderRepository {
	return &SQLOrderRepository{DB: conn, driver: driver}
}

// OrdersByIDs returns the known orders in request order. Unknown and repeated
// ids are skipped.
func (r *SQLOrderRepository) OrdersByIDs(ctx context.Context, ids []string) (_ []domain.Order, err error) {
	defer obs.Time(ctx, "repo.OrdersByIDs")(&err)

	if r.DB == nil {
		return nil, errors.New("order repository: DB is nil")
	}

	uniq := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	if len(uniq) == 0 {
		return []domain.Order{}, nil
	}

	args := make([]any, 0, len(uniq))
	for _, id := range uniq {
		args = append(args, id)
	}

	// Only the placeholder list is interpolated; values stay parameterized.
	q := db.Rebind(r.driver, fmt.Sprintf(`
	SELECT id, address, lon, lat, window_start, window_end
	FROM orders
	WHERE id IN (%s);
	`, db.Placeholders(len(uniq))))

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("orders by ids: query orders: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*domain.Order, len(uniq))
	for rows.Next() {
		var (
			o          domain.Order
			start, end sql.NullString
		)
		if err := rows.Scan(&o.ID, &o.Address, &o.Location.Lon, &o.Location.Lat, &start, &end); err != nil {
			return nil, fmt.Errorf("orders by ids: scan order: %w", err)
		}
		if start.Valid && end.Valid {
			s, err := parseTime(start.String)
			if err != nil {
				return nil, fmt.Errorf("orders by ids: order %s: %w", o.ID, err)
			}
			e, err := parseTime(end.String)
			if err != nil {
				return nil, fmt.Errorf("orders by ids: order %s: %w", o.ID, err)
			}
			o.Window = domain.Some(domain.TimeWindow{Start: s, End: e})
		}
		o.Packages = []domain.Package{}
		byID[o.ID] = &o
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("orders by ids: row iteration: %w", err)
	}

	if err := r.loadPackages(ctx, byID, args); err != nil {
		return nil, err
	}

	out := make([]domain.Order, 0, len(byID))
	for _, id := range uniq {
		if o, ok := byID[id]; ok {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *SQLOrderRepository) loadPackages(ctx context.Context, byID map[string]*domain.Order, args []any) error {
	if len(byID) == 0 {
		return nil
	}

	q := db.Rebind(r.driver, fmt.Sprintf(`
	SELECT id, order_id, weight_kg, volume_m3
	FROM packages
	WHERE order_id IN (%s)
	ORDER BY order_id, id;
	`, db.Placeholders(len(args))))

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("orders by ids: query packages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p       domain.Package
			orderID string
		)
		if err := rows.Scan(&p.ID, &orderID, &p.WeightKg, &p.VolumeM3); err != nil {
			return fmt.Errorf("orders by ids: scan package: %w", err)
		}
		if o, ok := byID[orderID]; ok {
			o.Packages = append(o.Packages, p)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("orders by ids: package iteration: %w", err)
	}
	return nil
}
