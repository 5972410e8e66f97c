package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"vrp-route-service/internal/domain"
	"vrp-route-service/internal/platform/db"
	"vrp-route-service/internal/platform/obs"
)

const routeColumns = `
	id, load_id, vehicle_id, depot_lon, depot_lat, status,
	total_distance_meters, estimated_duration_seconds, version, created_at, updated_at`

// SQLRouteStore implements ports.RouteStore on database/sql. Every write bumps
// the route version; UpdateStops additionally requires the caller's version
// to match.
type SQLRouteStore struct {
	DB     *sql.DB
	driver string
	now    func() time.Time
}

func NewSQLRouteStore(conn *sql.DB, driver string) *SQLRouteStore {
	return &SQLRouteStore{DB: conn, driver: driver, now: time.Now}
}

func (s *SQLRouteStore) q(query string) string { return db.Rebind(s.driver, query) }

func (s *SQLRouteStore) Create(ctx context.Context, r domain.Route) (err error) {
	defer obs.Time(ctx, "repo.CreateRoute")(&err)

	if err := s.createAll(ctx, []domain.Route{r}); err != nil {
		return fmt.Errorf("create route %s: %w", r.ID, err)
	}
	return nil
}

// CreateMany inserts all routes in one transaction. A failure on any route
// leaves none of them stored.
func (s *SQLRouteStore) CreateMany(ctx context.Context, routes []domain.Route) (err error) {
	defer obs.Time(ctx, "repo.CreateRoutes")(&err)

	if err := s.createAll(ctx, routes); err != nil {
		return fmt.Errorf("create routes: %w", err)
	}
	return nil
}

func (s *SQLRouteStore) createAll(ctx context.Context, routes []domain.Route) error {
	if s.DB == nil {
		return errors.New("route store: DB is nil")
	}
	for _, r := range routes {
		if err := domain.ValidateStops(r.Stops); err != nil {
			return fmt.Errorf("route %s: %w", r.ID, err)
		}
	}
	if len(routes) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insert := s.q(`
	INSERT INTO routes (` + routeColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`)
	for _, r := range routes {
		_, err = tx.ExecContext(ctx, insert,
			r.ID, r.LoadID, r.VehicleID.Ptr(), r.Depot.Lon, r.Depot.Lat, string(r.Status),
			r.Metrics.TotalDistanceMeters, r.Metrics.EstimatedDurationSeconds, r.Version,
			formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("route %s: insert: %w", r.ID, err)
		}
		if err := s.insertStops(ctx, tx, r.ID, r.Stops); err != nil {
			return fmt.Errorf("route %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLRouteStore) insertStops(ctx context.Context, tx *sql.Tx, routeID string, stops []domain.RouteStop) error {
	stmt, err := tx.PrepareContext(ctx, s.q(`
	INSERT INTO route_stops (route_id, seq, order_id, address, lon, lat, estimated_arrival)
	VALUES (?, ?, ?, ?, ?, ?, ?);
	`))
	if err != nil {
		return fmt.Errorf("prepare stop insert: %w", err)
	}
	defer stmt.Close()

	for _, st := range stops {
		if _, err := stmt.ExecContext(ctx,
			routeID, st.Sequence, st.OrderID, st.Address, st.Location.Lon, st.Location.Lat, nullTime(st.EstimatedArrival),
		); err != nil {
			return fmt.Errorf("insert stop %d: %w", st.Sequence, err)
		}
	}
	return nil
}

func (s *SQLRouteStore) FindByID(ctx context.Context, id string) (_ domain.Route, err error) {
	defer obs.Time(ctx, "repo.FindRoute")(&err)

	routes, err := s.findWhere(ctx, "id", id)
	if err != nil {
		return domain.Route{}, err
	}
	if len(routes) == 0 {
		return domain.Route{}, domain.ErrNotFound
	}
	return routes[0], nil
}

func (s *SQLRouteStore) FindByStatus(ctx context.Context, status domain.RouteStatus) ([]domain.Route, error) {
	return s.findWhere(ctx, "status", string(status))
}

func (s *SQLRouteStore) FindByLoadID(ctx context.Context, loadID string) ([]domain.Route, error) {
	return s.findWhere(ctx, "load_id", loadID)
}

func (s *SQLRouteStore) FindByVehicleID(ctx context.Context, vehicleID string) ([]domain.Route, error) {
	return s.findWhere(ctx, "vehicle_id", vehicleID)
}

// findWhere loads routes matching column = value with their stops. column is
// always one of the constants above, never caller input.
func (s *SQLRouteStore) findWhere(ctx context.Context, column, value string) ([]domain.Route, error) {
	if s.DB == nil {
		return nil, errors.New("route store: DB is nil")
	}

	rows, err := s.DB.QueryContext(ctx, s.q(`
	SELECT `+routeColumns+`
	FROM routes
	WHERE `+column+` = ?
	ORDER BY created_at, id;
	`), value)
	if err != nil {
		return nil, fmt.Errorf("find routes by %s: query: %w", column, err)
	}
	defer rows.Close()

	routes := make([]domain.Route, 0, 8)
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("find routes by %s: %w", column, err)
		}
		routes = append(routes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find routes by %s: row iteration: %w", column, err)
	}
	rows.Close()

	if err := s.loadStops(ctx, routes); err != nil {
		return nil, fmt.Errorf("find routes by %s: %w", column, err)
	}
	return routes, nil
}

func scanRoute(rows *sql.Rows) (domain.Route, error) {
	var (
		r                domain.Route
		vehicleID        sql.NullString
		status           string
		created, updated string
	)
	if err := rows.Scan(
		&r.ID, &r.LoadID, &vehicleID, &r.Depot.Lon, &r.Depot.Lat, &status,
		&r.Metrics.TotalDistanceMeters, &r.Metrics.EstimatedDurationSeconds, &r.Version,
		&created, &updated,
	); err != nil {
		return domain.Route{}, fmt.Errorf("scan route: %w", err)
	}

	if vehicleID.Valid {
		r.VehicleID = domain.Some(vehicleID.String)
	}
	st, err := domain.ParseRouteStatus(status)
	if err != nil {
		return domain.Route{}, fmt.Errorf("route %s: %w", r.ID, err)
	}
	r.Status = st

	if r.CreatedAt, err = parseTime(created); err != nil {
		return domain.Route{}, fmt.Errorf("route %s: %w", r.ID, err)
	}
	if r.UpdatedAt, err = parseTime(updated); err != nil {
		return domain.Route{}, fmt.Errorf("route %s: %w", r.ID, err)
	}
	r.Stops = []domain.RouteStop{}
	return r, nil
}

func (s *SQLRouteStore) loadStops(ctx context.Context, routes []domain.Route) error {
	if len(routes) == 0 {
		return nil
	}

	idx := make(map[string]int, len(routes))
	args := make([]any, 0, len(routes))
	for i, r := range routes {
		idx[r.ID] = i
		args = append(args, r.ID)
	}

	rows, err := s.DB.QueryContext(ctx, s.q(fmt.Sprintf(`
	SELECT route_id, seq, order_id, address, lon, lat, estimated_arrival
	FROM route_stops
	WHERE route_id IN (%s)
	ORDER BY route_id, seq;
	`, db.Placeholders(len(args)))), args...)
	if err != nil {
		return fmt.Errorf("query stops: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			routeID string
			st      domain.RouteStop
			arrival sql.NullString
		)
		if err := rows.Scan(&routeID, &st.Sequence, &st.OrderID, &st.Address, &st.Location.Lon, &st.Location.Lat, &arrival); err != nil {
			return fmt.Errorf("scan stop: %w", err)
		}
		if arrival.Valid {
			t, err := parseTime(arrival.String)
			if err != nil {
				return fmt.Errorf("route %s stop %d: %w", routeID, st.Sequence, err)
			}
			st.EstimatedArrival = t
		}
		i := idx[routeID]
		routes[i].Stops = append(routes[i].Stops, st)
	}
	return rows.Err()
}

func (s *SQLRouteStore) UpdateStops(
	ctx context.Context,
	id string,
	expectedVersion int,
	stops []domain.RouteStop,
	metrics domain.RouteMetrics,
) (err error) {
	defer obs.Time(ctx, "repo.UpdateStops")(&err)

	if err := domain.ValidateStops(stops); err != nil {
		return fmt.Errorf("update stops %s: %w", id, err)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update stops: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, s.q(`
	UPDATE routes
	SET total_distance_meters = ?,
		estimated_duration_seconds = ?,
		version = version + 1,
		updated_at = ?
	WHERE id = ? AND version = ?;
	`), metrics.TotalDistanceMeters, metrics.EstimatedDurationSeconds, formatTime(s.now()), id, expectedVersion)
	if err != nil {
		return fmt.Errorf("update stops %s: %w", id, err)
	}
	if err := s.checkUpdated(ctx, tx, res, id, domain.ErrVersionConflict); err != nil {
		return fmt.Errorf("update stops %s: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM route_stops WHERE route_id = ?;`), id); err != nil {
		return fmt.Errorf("update stops %s: clear: %w", id, err)
	}
	if err := s.insertStops(ctx, tx, id, stops); err != nil {
		return fmt.Errorf("update stops %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update stops %s: commit: %w", id, err)
	}
	return nil
}

// checkUpdated turns a zero-row update into ErrNotFound, or into otherwise
// when the route exists.
func (s *SQLRouteStore) checkUpdated(ctx context.Context, tx *sql.Tx, res sql.Result, id string, otherwise error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var one int
	err = tx.QueryRowContext(ctx, s.q(`SELECT 1 FROM routes WHERE id = ?;`), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check route exists: %w", err)
	}
	return otherwise
}

func (s *SQLRouteStore) UpdateMetrics(ctx context.Context, id string, metrics domain.RouteMetrics) error {
	return s.updateRow(ctx, "update metrics", id, `
	UPDATE routes
	SET total_distance_meters = ?,
		estimated_duration_seconds = ?,
		version = version + 1,
		updated_at = ?
	WHERE id = ?;
	`, metrics.TotalDistanceMeters, metrics.EstimatedDurationSeconds, formatTime(s.now()), id)
}

func (s *SQLRouteStore) UpdateStatus(ctx context.Context, id string, status domain.RouteStatus) error {
	return s.updateRow(ctx, "update status", id, `
	UPDATE routes
	SET status = ?,
		version = version + 1,
		updated_at = ?
	WHERE id = ?;
	`, string(status), formatTime(s.now()), id)
}

func (s *SQLRouteStore) AssignVehicle(ctx context.Context, id string, vehicleID string) error {
	return s.updateRow(ctx, "assign vehicle", id, `
	UPDATE routes
	SET vehicle_id = ?,
		version = version + 1,
		updated_at = ?
	WHERE id = ?;
	`, vehicleID, formatTime(s.now()), id)
}

func (s *SQLRouteStore) updateRow(ctx context.Context, op, id, query string, args ...any) (err error) {
	defer obs.Time(ctx, "repo."+op)(&err)

	if s.DB == nil {
		return errors.New("route store: DB is nil")
	}

	res, err := s.DB.ExecContext(ctx, s.q(query), args...)
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: rows affected: %w", op, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", op, id, domain.ErrNotFound)
	}
	return nil
}
