package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"
	"vrp-route-service/internal/domain"
	"vrp-route-service/internal/platform/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, InitSchema(conn))
	return conn
}

func seeded(t *testing.T) *sql.DB {
	t.Helper()
	conn := openTestDB(t)
	require.NoError(t, SeedFromJSON(context.Background(), conn, db.DriverSQLite, "testdata/seed.json"))
	return conn
}

func TestInitSchemaIsIdempotent(t *testing.T) {
	conn := openTestDB(t)
	assert.NoError(t, InitSchema(conn))
}

func TestSeedAndLoadOrders(t *testing.T) {
	conn := seeded(t)
	repo := NewSQLOrderRepository(conn, db.DriverSQLite)

	orders, err := repo.OrdersByIDs(context.Background(), []string{"ORD-2", "missing", "ORD-1", "ORD-2"})
	require.NoError(t, err)
	require.Len(t, orders, 2)

	assert.Equal(t, "ORD-2", orders[0].ID)
	assert.False(t, orders[0].Window.IsSome())
	require.Len(t, orders[0].Packages, 1)
	assert.Equal(t, "ORD-2-p1", orders[0].Packages[0].ID)

	first := orders[1]
	assert.Equal(t, "ORD-1", first.ID)
	assert.InDelta(t, 16.5, first.TotalWeight(), 1e-9)
	w, ok := first.Window.Get()
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, domain.Coordinates{Lon: -112.0730, Lat: 33.4465}, first.Location)
}

func TestOrdersByIDsEmpty(t *testing.T) {
	repo := NewSQLOrderRepository(openTestDB(t), db.DriverSQLite)
	orders, err := repo.OrdersByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
}

func TestReseedReplacesPackages(t *testing.T) {
	conn := seeded(t)
	ctx := context.Background()

	require.NoError(t, Apply(ctx, conn, db.DriverSQLite, Seed{Orders: []domain.Order{{
		ID:       "ORD-1",
		Address:  "moved",
		Location: domain.Coordinates{Lon: -112, Lat: 33},
		Packages: []domain.Package{{ID: "PKG-9", WeightKg: 1}},
	}}}))

	orders, err := NewSQLOrderRepository(conn, db.DriverSQLite).OrdersByIDs(ctx, []string{"ORD-1"})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "moved", orders[0].Address)
	assert.Equal(t, []domain.Package{{ID: "PKG-9", WeightKg: 1}}, orders[0].Packages)
	assert.False(t, orders[0].Window.IsSome())
}

func TestSeedRejectsInvalidInput(t *testing.T) {
	conn := openTestDB(t)
	ctx := context.Background()

	err := Apply(ctx, conn, db.DriverSQLite, Seed{Orders: []domain.Order{{ID: "x", Address: "a", Location: domain.Coordinates{Lat: 200}}}})
	assert.Error(t, err)

	err = Apply(ctx, conn, db.DriverSQLite, Seed{Vehicles: []domain.Vehicle{{ID: "v", MaxWeight: 0}}})
	assert.Error(t, err)

	assert.Error(t, SeedFromJSON(ctx, conn, db.DriverSQLite, "testdata/missing.json"))
}

func TestListVehicles(t *testing.T) {
	repo := NewSQLVehicleRepository(seeded(t))

	vehicles, err := repo.ListVehicles(context.Background())
	require.NoError(t, err)
	require.Len(t, vehicles, 2)

	assert.Equal(t, "VAN-1", vehicles[0].ID)
	assert.False(t, vehicles[0].MaxStops.IsSome())
	assert.Equal(t, domain.Some(25), vehicles[1].MaxStops)
	assert.Equal(t, 10.0, vehicles[1].MaxVolume)
}

func sampleRoute(id string) domain.Route {
	created := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	return domain.Route{
		ID:        id,
		LoadID:    "load-1",
		VehicleID: domain.Some("VAN-1"),
		Depot:     domain.Coordinates{Lon: -112.0996, Lat: 33.4483},
		Stops: []domain.RouteStop{
			{OrderID: "ORD-1", Address: "a", Location: domain.Coordinates{Lon: -112.07, Lat: 33.44}, Sequence: 0, EstimatedArrival: created.Add(time.Hour)},
			{OrderID: "ORD-2", Address: "b", Location: domain.Coordinates{Lon: -111.94, Lat: 33.42}, Sequence: 1},
		},
		Metrics:   domain.RouteMetrics{TotalDistanceMeters: 31000, EstimatedDurationSeconds: 2700},
		Status:    domain.StatusPlanned,
		Version:   1,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func newStore(t *testing.T) *SQLRouteStore {
	t.Helper()
	s := NewSQLRouteStore(openTestDB(t), db.DriverSQLite)
	s.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }
	return s
}

func TestRouteStoreRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	r := sampleRoute("r1")

	require.NoError(t, s.Create(ctx, r))

	got, err := s.FindByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestRouteStoreCreateManyIsAllOrNothing(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, sampleRoute("taken")))

	err := s.CreateMany(ctx, []domain.Route{sampleRoute("fresh"), sampleRoute("taken")})
	require.Error(t, err)

	_, err = s.FindByID(ctx, "fresh")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.CreateMany(ctx, []domain.Route{sampleRoute("x"), sampleRoute("y")}))
	byLoad, err := s.FindByLoadID(ctx, "load-1")
	require.NoError(t, err)
	assert.Len(t, byLoad, 3)
	assert.NoError(t, s.CreateMany(ctx, nil))
}

func TestRouteStoreOrdersByCreationTime(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	late := sampleRoute("a")
	late.CreatedAt = late.CreatedAt.Add(100 * time.Millisecond)
	early := sampleRoute("b")
	require.NoError(t, s.Create(ctx, late))
	require.NoError(t, s.Create(ctx, early))

	byLoad, err := s.FindByLoadID(ctx, "load-1")
	require.NoError(t, err)
	require.Len(t, byLoad, 2)
	assert.Equal(t, "b", byLoad[0].ID)
	assert.Equal(t, "a", byLoad[1].ID)
	assert.Equal(t, late.CreatedAt, byLoad[1].CreatedAt)

	assert.Len(t, formatTime(early.CreatedAt), len(formatTime(late.CreatedAt)))
}

func TestRouteStoreNotFound(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.FindByID(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, s.UpdateStatus(ctx, "nope", domain.StatusCancelled), domain.ErrNotFound)
	assert.ErrorIs(t, s.UpdateStops(ctx, "nope", 1, nil, domain.RouteMetrics{}), domain.ErrNotFound)
}

func TestRouteStoreFinders(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	a := sampleRoute("a")
	b := sampleRoute("b")
	b.LoadID = "load-2"
	b.VehicleID = domain.None[string]()
	b.Status = domain.StatusDispatched
	require.NoError(t, s.Create(ctx, a))
	require.NoError(t, s.Create(ctx, b))

	byStatus, err := s.FindByStatus(ctx, domain.StatusDispatched)
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "b", byStatus[0].ID)
	assert.Len(t, byStatus[0].Stops, 2)

	byLoad, err := s.FindByLoadID(ctx, "load-1")
	require.NoError(t, err)
	require.Len(t, byLoad, 1)
	assert.Equal(t, "a", byLoad[0].ID)

	byVehicle, err := s.FindByVehicleID(ctx, "VAN-1")
	require.NoError(t, err)
	require.Len(t, byVehicle, 1)

	none, err := s.FindByVehicleID(ctx, "VAN-9")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestRouteStoreUpdateStopsChecksVersion(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, sampleRoute("r1")))

	stops := []domain.RouteStop{
		{OrderID: "ORD-2", Address: "b", Sequence: 0},
		{OrderID: "ORD-1", Address: "a", Sequence: 1},
	}
	metrics := domain.RouteMetrics{TotalDistanceMeters: 1, EstimatedDurationSeconds: 2}

	require.NoError(t, s.UpdateStops(ctx, "r1", 1, stops, metrics))
	assert.ErrorIs(t, s.UpdateStops(ctx, "r1", 1, stops, metrics), domain.ErrVersionConflict)

	got, err := s.FindByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, metrics, got.Metrics)
	assert.Equal(t, []string{"ORD-2", "ORD-1"}, got.OrderIDs())
	assert.True(t, got.Stops[0].EstimatedArrival.IsZero())
	assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), got.UpdatedAt)
}

func TestRouteStoreRejectsBrokenStops(t *testing.T) {
	s := newStore(t)
	r := sampleRoute("r1")
	r.Stops[1].Sequence = 0
	assert.Error(t, s.Create(context.Background(), r))
}

func TestRouteStoreStatusMetricsAndVehicle(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, sampleRoute("r1")))

	require.NoError(t, s.UpdateStatus(ctx, "r1", domain.StatusOptimized))
	require.NoError(t, s.UpdateMetrics(ctx, "r1", domain.RouteMetrics{TotalDistanceMeters: 5}))
	require.NoError(t, s.AssignVehicle(ctx, "r1", "VAN-2"))

	got, err := s.FindByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOptimized, got.Status)
	assert.Equal(t, 5, got.Metrics.TotalDistanceMeters)
	assert.Equal(t, domain.Some("VAN-2"), got.VehicleID)
	assert.Equal(t, 4, got.Version)
}
