package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"vrp-route-service/internal/domain"
	"vrp-route-service/internal/platform/obs"
	"vrp-route-service/internal/ports"
	"vrp-route-service/internal/vrp"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	defaultOracleTimeout = 10 * time.Second
	maxParallelRoutes    = 5
)

type RouteServiceOptions struct {
	OracleTimeout time.Duration
	// Timezone renders conflict messages. Defaults to time.Local.
	Timezone *time.Location
	Policy   vrp.CapacityPolicy
	Now      func() time.Time
	NewID    func() string
}

// RouteService coordinates the store, the order and fleet providers and the
// distance oracle. Mutations of one route are serialized; different routes
// proceed independently.
type RouteService struct {
	store    ports.RouteStore
	orders   ports.OrderProvider
	vehicles ports.VehicleProvider
	oracle   ports.DistanceOracle
	opts     RouteServiceOptions

	locks   *keyedMutex
	batchMu sync.Mutex
}

func NewRouteService(
	store ports.RouteStore,
	orders ports.OrderProvider,
	vehicles ports.VehicleProvider,
	oracle ports.DistanceOracle,
	opts RouteServiceOptions,
) *RouteService {
	if opts.OracleTimeout <= 0 {
		opts.OracleTimeout = defaultOracleTimeout
	}
	if opts.Timezone == nil {
		opts.Timezone = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	return &RouteService{
		store:    store,
		orders:   orders,
		vehicles: vehicles,
		oracle:   oracle,
		opts:     opts,
		locks:    newKeyedMutex(),
	}
}

type OptimizeRequest struct {
	LoadID   string
	OrderIDs []string
	Depot    domain.Coordinates
	// StartAt is the departure time of every route. Zero means now.
	StartAt time.Time
}

type OptimizeResult struct {
	Routes []domain.Route `json:"routes"`
	// Orders the solver could not place on any feasible route.
	Unassigned []string `json:"unassigned"`
	// Requested ids the order provider does not know.
	UnknownOrders []string `json:"unknown_orders"`
}

// OptimizeRoutes builds a routing problem for the requested orders, solves it
// and persists one PLANNED route per solver route. Routes are timed
// concurrently and stored together; a failed write stores none of them.
func (s *RouteService) OptimizeRoutes(ctx context.Context, req OptimizeRequest) (_ OptimizeResult, err error) {
	defer obs.Time(ctx, "services.OptimizeRoutes")(&err)

	if strings.TrimSpace(req.LoadID) == "" {
		return OptimizeResult{}, &domain.ValidationError{Op: "optimize routes", Reason: "load id must be non-empty"}
	}
	if err := req.Depot.Validate(); err != nil {
		return OptimizeResult{}, fmt.Errorf("optimize routes: depot: %w", err)
	}

	orders, err := s.orders.OrdersByIDs(ctx, req.OrderIDs)
	if err != nil {
		return OptimizeResult{}, fmt.Errorf("optimize routes: load orders: %w", err)
	}
	fleet, err := s.vehicles.ListVehicles(ctx)
	if err != nil {
		return OptimizeResult{}, fmt.Errorf("optimize routes: list vehicles: %w", err)
	}

	oracleCtx, cancel := context.WithTimeout(ctx, s.opts.OracleTimeout)
	problem, err := vrp.BuildProblem(oracleCtx, orders, fleet, req.Depot, s.oracle)
	cancel()
	if err != nil {
		return OptimizeResult{}, fmt.Errorf("optimize routes: %w", err)
	}

	sol, err := vrp.Solve(problem, vrp.Options{Policy: s.opts.Policy})
	if err != nil {
		return OptimizeResult{}, fmt.Errorf("optimize routes: %w", err)
	}

	start := req.StartAt
	if start.IsZero() {
		start = s.opts.Now()
	}

	index := make(map[string]int, problem.N())
	for i := 1; i <= problem.N(); i++ {
		index[problem.Point(i).OrderID] = i
	}
	windows := domain.WindowsByOrder(orders)

	routes := make([]domain.Route, len(sol.Routes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelRoutes)

	for r, seq := range sol.Routes {
		g.Go(func() error {
			stops := make([]domain.RouteStop, 0, len(seq))
			for _, idx := range seq {
				if idx == 0 {
					continue
				}
				pt := problem.Point(idx)
				stops = append(stops, domain.RouteStop{
					OrderID:  pt.OrderID,
					Address:  pt.Address,
					Location: pt.Location,
					Sequence: len(stops),
				})
			}

			p := s.evaluate(problem.Matrix, index, stops, start, windows)
			now := s.opts.Now()
			route := domain.Route{
				ID:        s.opts.NewID(),
				LoadID:    req.LoadID,
				VehicleID: domain.Some(sol.VehicleIDs[r]),
				Depot:     req.Depot,
				Stops:     p.stops,
				Metrics:   p.metrics,
				Status:    domain.StatusPlanned,
				Version:   1,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := domain.ValidateStops(route.Stops); err != nil {
				return fmt.Errorf("route %s: %w", route.ID, err)
			}
			routes[r] = route
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return OptimizeResult{}, fmt.Errorf("optimize routes: %w", err)
	}

	if err := s.store.CreateMany(ctx, routes); err != nil {
		return OptimizeResult{}, fmt.Errorf("optimize routes: %w", err)
	}

	unassigned := make([]string, 0, len(sol.Unassigned))
	for _, idx := range sol.Unassigned {
		unassigned = append(unassigned, problem.Point(idx).OrderID)
	}

	obs.Logger(ctx).WithFields(logrus.Fields{
		"load_id":    req.LoadID,
		"routes":     len(routes),
		"unassigned": len(unassigned),
	}).Info("routes optimized")

	return OptimizeResult{
		Routes:        routes,
		Unassigned:    unassigned,
		UnknownOrders: missingOrders(req.OrderIDs, orders),
	}, nil
}

type CreateRouteRequest struct {
	LoadID    string
	OrderIDs  []string
	Depot     domain.Coordinates
	VehicleID domain.Opt[string]
	StartAt   time.Time
}

// CreateRoute stores a PLANNED route visiting the orders in the given order.
func (s *RouteService) CreateRoute(ctx context.Context, req CreateRouteRequest) (_ domain.Route, err error) {
	defer obs.Time(ctx, "services.CreateRoute")(&err)

	if strings.TrimSpace(req.LoadID) == "" {
		return domain.Route{}, &domain.ValidationError{Op: "create route", Reason: "load id must be non-empty"}
	}
	if err := req.Depot.Validate(); err != nil {
		return domain.Route{}, fmt.Errorf("create route: depot: %w", err)
	}

	orders, err := s.orders.OrdersByIDs(ctx, req.OrderIDs)
	if err != nil {
		return domain.Route{}, fmt.Errorf("create route: load orders: %w", err)
	}
	if missing := missingOrders(req.OrderIDs, orders); len(missing) > 0 {
		return domain.Route{}, &domain.ValidationError{
			Op:     "create route",
			Reason: fmt.Sprintf("unknown orders %s", strings.Join(missing, ", ")),
		}
	}

	byID := make(map[string]domain.Order, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
	}
	stops := make([]domain.RouteStop, 0, len(req.OrderIDs))
	for i, id := range req.OrderIDs {
		o := byID[id]
		stops = append(stops, domain.RouteStop{OrderID: o.ID, Address: o.Address, Location: o.Location, Sequence: i})
	}
	if err := domain.ValidateStops(stops); err != nil {
		return domain.Route{}, fmt.Errorf("create route: %w", err)
	}

	now := s.opts.Now()
	route := domain.Route{
		ID:        s.opts.NewID(),
		LoadID:    req.LoadID,
		VehicleID: req.VehicleID,
		Depot:     req.Depot,
		Stops:     stops,
		Status:    domain.StatusPlanned,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	start := req.StartAt
	if start.IsZero() {
		start = now
	}
	base, index, err := s.baseMatrix(ctx, route)
	if err != nil {
		return domain.Route{}, fmt.Errorf("create route: %w", err)
	}
	p := s.evaluate(base, index, stops, start, domain.WindowsByOrder(orders))
	route.Stops = p.stops
	route.Metrics = p.metrics

	if err := s.store.Create(ctx, route); err != nil {
		return domain.Route{}, fmt.Errorf("create route: %w", err)
	}
	return route, nil
}

func (s *RouteService) GetRoute(ctx context.Context, id string) (domain.Route, error) {
	route, err := s.store.FindByID(ctx, id)
	if err != nil {
		return domain.Route{}, fmt.Errorf("get route %s: %w", id, err)
	}
	return route, nil
}

// RouteFilter selects routes by exactly one field.
type RouteFilter struct {
	Status    domain.Opt[domain.RouteStatus]
	LoadID    domain.Opt[string]
	VehicleID domain.Opt[string]
}

func (s *RouteService) ListRoutes(ctx context.Context, f RouteFilter) ([]domain.Route, error) {
	set := 0
	for _, ok := range []bool{f.Status.IsSome(), f.LoadID.IsSome(), f.VehicleID.IsSome()} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return nil, &domain.ValidationError{Op: "list routes", Reason: "exactly one of status, load_id or vehicle_id is required"}
	}

	var (
		routes []domain.Route
		err    error
	)
	if st, ok := f.Status.Get(); ok {
		routes, err = s.store.FindByStatus(ctx, st)
	} else if id, ok := f.LoadID.Get(); ok {
		routes, err = s.store.FindByLoadID(ctx, id)
	} else if id, ok := f.VehicleID.Get(); ok {
		routes, err = s.store.FindByVehicleID(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	if routes == nil {
		routes = []domain.Route{}
	}
	return routes, nil
}

// UpdateStops replaces the stop list of an editable route, re-times it and
// recomputes metrics. expectedVersion 0 skips the staleness check.
func (s *RouteService) UpdateStops(ctx context.Context, id string, expectedVersion int, stops []domain.RouteStop) (_ domain.Route, err error) {
	defer obs.Time(ctx, "services.UpdateStops")(&err)

	if err := domain.ValidateStops(stops); err != nil {
		return domain.Route{}, fmt.Errorf("update stops: %w", err)
	}

	return s.mutateStops(ctx, id, "update stops", func(route domain.Route) ([]domain.RouteStop, error) {
		if expectedVersion != 0 && expectedVersion != route.Version {
			return nil, domain.ErrVersionConflict
		}
		return domain.SortStops(stops), nil
	})
}

// UpdateStatus moves a route along its lifecycle.
func (s *RouteService) UpdateStatus(ctx context.Context, id string, to domain.RouteStatus) (domain.Route, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	route, err := s.store.FindByID(ctx, id)
	if err != nil {
		return domain.Route{}, fmt.Errorf("update status %s: %w", id, err)
	}
	if !route.Status.CanTransition(to) {
		return domain.Route{}, fmt.Errorf("update status %s: %s -> %s: %w", id, route.Status, to, domain.ErrInvalidTransition)
	}
	if err := s.store.UpdateStatus(ctx, id, to); err != nil {
		return domain.Route{}, fmt.Errorf("update status %s: %w", id, err)
	}

	obs.Logger(ctx).WithFields(logrus.Fields{
		"route_id": id,
		"from":     route.Status,
		"to":       to,
	}).Info("route status changed")

	return s.GetRoute(ctx, id)
}

// Reorder applies a caller-chosen stop order. See Reorder.
func (s *RouteService) Reorder(ctx context.Context, id string, orderIDs []string) (_ domain.Route, err error) {
	defer obs.Time(ctx, "services.Reorder")(&err)

	return s.mutateStops(ctx, id, "reorder", func(route domain.Route) ([]domain.RouteStop, error) {
		return Reorder(route, orderIDs)
	})
}

// ResequenceByWindow orders the route's stops by window start.
func (s *RouteService) ResequenceByWindow(ctx context.Context, id string) (_ domain.Route, err error) {
	defer obs.Time(ctx, "services.ResequenceByWindow")(&err)

	return s.mutateStops(ctx, id, "resequence", func(route domain.Route) ([]domain.RouteStop, error) {
		windows, err := s.windows(ctx, route)
		if err != nil {
			return nil, err
		}
		return ResequenceByWindow(route.Stops, windows), nil
	})
}

// OptimizeSequence evaluates the current order, the window order, the
// reversal, the first/last swap and a nearest-neighbor tour, keeps the one
// with the fewest window conflicts (then the shortest distance) and marks
// the route OPTIMIZED.
func (s *RouteService) OptimizeSequence(ctx context.Context, id string) (_ domain.Route, err error) {
	defer obs.Time(ctx, "services.OptimizeSequence")(&err)

	unlock := s.locks.Lock(id)
	defer unlock()

	route, err := s.editableRoute(ctx, id, "optimize sequence")
	if err != nil {
		return domain.Route{}, err
	}
	windows, err := s.windows(ctx, route)
	if err != nil {
		return domain.Route{}, fmt.Errorf("optimize sequence %s: %w", id, err)
	}
	base, index, err := s.baseMatrix(ctx, route)
	if err != nil {
		return domain.Route{}, fmt.Errorf("optimize sequence %s: %w", id, err)
	}

	candidates := [][]domain.RouteStop{
		route.SortedStops(),
		ResequenceByWindow(route.Stops, windows),
		NearestNeighborOrder(route.Stops, base),
	}
	for _, alt := range Alternatives(route) {
		candidates = append(candidates, alt.Stops)
	}

	start := s.startOf(route)
	best := s.evaluate(base, index, candidates[0], start, windows)
	for _, c := range candidates[1:] {
		p := s.evaluate(base, index, c, start, windows)
		if p.betterThan(best) {
			best = p
		}
	}

	if err := s.store.UpdateStops(ctx, id, route.Version, best.stops, best.metrics); err != nil {
		return domain.Route{}, fmt.Errorf("optimize sequence %s: %w", id, err)
	}
	if route.Status != domain.StatusOptimized {
		if err := s.store.UpdateStatus(ctx, id, domain.StatusOptimized); err != nil {
			return domain.Route{}, fmt.Errorf("optimize sequence %s: %w", id, err)
		}
	}

	return s.GetRoute(ctx, id)
}

// TimeWindowConflicts lists the window violations of a stored route. A
// route with no violations yields an empty, non-nil slice; an unknown route
// yields domain.ErrNotFound.
func (s *RouteService) TimeWindowConflicts(ctx context.Context, id string) ([]string, error) {
	route, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("time window conflicts %s: %w", id, err)
	}
	windows, err := s.windows(ctx, route)
	if err != nil {
		return nil, fmt.Errorf("time window conflicts %s: %w", id, err)
	}
	return DetectConflicts(route.Stops, windows, s.opts.Timezone), nil
}

type AlternativeRoute struct {
	Route     domain.Route `json:"route"`
	Conflicts []string     `json:"conflicts"`
}

// Alternatives proposes re-timed variants of a route without storing them.
func (s *RouteService) Alternatives(ctx context.Context, id string) (_ []AlternativeRoute, err error) {
	defer obs.Time(ctx, "services.Alternatives")(&err)

	route, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("alternatives %s: %w", id, err)
	}
	alts := Alternatives(route)
	if len(alts) == 0 {
		return []AlternativeRoute{}, nil
	}

	windows, err := s.windows(ctx, route)
	if err != nil {
		return nil, fmt.Errorf("alternatives %s: %w", id, err)
	}
	base, index, err := s.baseMatrix(ctx, route)
	if err != nil {
		return nil, fmt.Errorf("alternatives %s: %w", id, err)
	}

	start := s.startOf(route)
	out := make([]AlternativeRoute, 0, len(alts))
	for _, alt := range alts {
		p := s.evaluate(base, index, alt.Stops, start, windows)
		out = append(out, AlternativeRoute{
			Route:     alt.WithStops(p.stops, p.metrics),
			Conflicts: p.conflicts,
		})
	}
	return out, nil
}

// RecalculateMetrics recomputes distance and duration for the stored stop
// order. Calling it twice against an unchanged matrix writes the same values.
func (s *RouteService) RecalculateMetrics(ctx context.Context, id string) (_ domain.Route, err error) {
	defer obs.Time(ctx, "services.RecalculateMetrics")(&err)

	unlock := s.locks.Lock(id)
	defer unlock()

	route, err := s.store.FindByID(ctx, id)
	if err != nil {
		return domain.Route{}, fmt.Errorf("recalculate metrics %s: %w", id, err)
	}
	base, _, err := s.baseMatrix(ctx, route)
	if err != nil {
		return domain.Route{}, fmt.Errorf("recalculate metrics %s: %w", id, err)
	}

	metrics := ComputeMetrics(route.SortedStops(), base)
	if err := s.store.UpdateMetrics(ctx, id, metrics); err != nil {
		return domain.Route{}, fmt.Errorf("recalculate metrics %s: %w", id, err)
	}
	route.Metrics = metrics
	return route, nil
}

type MapData struct {
	RouteID  string                 `json:"route_id"`
	Depot    domain.Coordinates     `json:"depot"`
	Stops    []domain.RouteStop     `json:"stops"`
	Geometry string                 `json:"geometry"`
	Steps    []ports.DirectionsStep `json:"steps"`
	// Degraded is set when the path could not be fetched and Geometry is empty.
	Degraded bool `json:"degraded"`
}

// MapData returns the stops with the driving path depot -> stops -> depot.
// An oracle failure leaves Geometry empty and is only logged.
func (s *RouteService) MapData(ctx context.Context, id string) (MapData, error) {
	route, err := s.store.FindByID(ctx, id)
	if err != nil {
		return MapData{}, fmt.Errorf("map data %s: %w", id, err)
	}

	out := MapData{
		RouteID: route.ID,
		Depot:   route.Depot,
		Stops:   route.SortedStops(),
		Steps:   []ports.DirectionsStep{},
	}
	if len(out.Stops) == 0 {
		return out, nil
	}

	waypoints := StopLocations(route.Depot, out.Stops)[1:]

	oracleCtx, cancel := context.WithTimeout(ctx, s.opts.OracleTimeout)
	defer cancel()

	dir, err := s.oracle.Directions(oracleCtx, route.Depot, route.Depot, waypoints)
	if err != nil {
		oe := &domain.OracleError{Op: "directions", Degraded: true, Err: err}
		obs.Logger(ctx).WithField("route_id", id).WithError(oe).Warn("map data without path geometry")
		out.Degraded = true
		return out, nil
	}

	out.Geometry = dir.Geometry
	if dir.Steps != nil {
		out.Steps = dir.Steps
	}
	return out, nil
}

type AssignLoadsResult struct {
	Assigned  []VehicleAssignment `json:"assigned"`
	Unmatched []string            `json:"unmatched"`
}

// AssignLoads matches each route's load with a vehicle that is not already
// on the road. Batches never overlap so a vehicle is claimed at most once.
func (s *RouteService) AssignLoads(ctx context.Context, routeIDs []string) (_ AssignLoadsResult, err error) {
	defer obs.Time(ctx, "services.AssignLoads")(&err)

	s.batchMu.Lock()
	defer s.batchMu.Unlock()

	for i, id := range routeIDs {
		if slices.Contains(routeIDs[:i], id) {
			return AssignLoadsResult{}, &domain.ValidationError{Op: "assign loads", Reason: fmt.Sprintf("route %s listed more than once", id)}
		}
	}

	// Routes stay locked from the editable check through the vehicle write.
	ordered := slices.Sorted(slices.Values(routeIDs))
	for _, id := range ordered {
		defer s.locks.Lock(id)()
	}

	loads := make([]domain.Load, 0, len(routeIDs))
	for _, id := range routeIDs {
		route, err := s.editableRoute(ctx, id, "assign loads")
		if err != nil {
			return AssignLoadsResult{}, err
		}
		load, err := s.loadOf(ctx, route)
		if err != nil {
			return AssignLoadsResult{}, fmt.Errorf("assign loads: %w", err)
		}
		loads = append(loads, load)
	}

	fleet, err := s.availableVehicles(ctx)
	if err != nil {
		return AssignLoadsResult{}, fmt.Errorf("assign loads: %w", err)
	}

	assigned, unmatched := AssignVehicles(loads, fleet)
	for _, a := range assigned {
		if err := s.store.AssignVehicle(ctx, a.LoadID, a.VehicleID); err != nil {
			return AssignLoadsResult{}, fmt.Errorf("assign loads: route %s: %w", a.LoadID, err)
		}
	}

	for _, id := range unmatched {
		obs.Logger(ctx).WithField("route_id", id).WithError(domain.ErrNoSuitableVehicle).Warn("load left unassigned")
	}

	return AssignLoadsResult{Assigned: assigned, Unmatched: unmatched}, nil
}

// loadOf sums package demand over the route's orders. The load id is the
// route id.
func (s *RouteService) loadOf(ctx context.Context, route domain.Route) (domain.Load, error) {
	ids := route.OrderIDs()
	orders, err := s.orders.OrdersByIDs(ctx, ids)
	if err != nil {
		return domain.Load{}, fmt.Errorf("load orders of route %s: %w", route.ID, err)
	}

	load := domain.Load{ID: route.ID, OrderIDs: ids}
	for _, o := range orders {
		load.Weight += o.TotalWeight()
		load.Volume += o.TotalVolume()
	}
	return load, nil
}

func (s *RouteService) availableVehicles(ctx context.Context) ([]domain.Vehicle, error) {
	fleet, err := s.vehicles.ListVehicles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}

	busy := make(map[string]struct{})
	for _, st := range []domain.RouteStatus{domain.StatusDispatched, domain.StatusInProgress} {
		routes, err := s.store.FindByStatus(ctx, st)
		if err != nil {
			return nil, fmt.Errorf("find %s routes: %w", st, err)
		}
		for _, r := range routes {
			if v, ok := r.VehicleID.Get(); ok {
				busy[v] = struct{}{}
			}
		}
	}

	return slices.DeleteFunc(fleet, func(v domain.Vehicle) bool {
		_, ok := busy[v.ID]
		return ok
	}), nil
}

// mutateStops runs one locked read-modify-write of an editable route's stops.
// fn must not mutate the route it is given.
func (s *RouteService) mutateStops(
	ctx context.Context,
	id string,
	op string,
	fn func(domain.Route) ([]domain.RouteStop, error),
) (domain.Route, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	route, err := s.editableRoute(ctx, id, op)
	if err != nil {
		return domain.Route{}, err
	}

	stops, err := fn(route.Clone())
	if err != nil {
		return domain.Route{}, fmt.Errorf("%s %s: %w", op, id, err)
	}

	// the new stop set may differ from the stored one
	priced := route.WithStops(stops, route.Metrics)
	windows, err := s.windows(ctx, priced)
	if err != nil {
		return domain.Route{}, fmt.Errorf("%s %s: %w", op, id, err)
	}
	base, index, err := s.baseMatrix(ctx, priced)
	if err != nil {
		return domain.Route{}, fmt.Errorf("%s %s: %w", op, id, err)
	}
	p := s.evaluate(base, index, stops, s.startOf(route), windows)

	if err := s.store.UpdateStops(ctx, id, route.Version, p.stops, p.metrics); err != nil {
		return domain.Route{}, fmt.Errorf("%s %s: %w", op, id, err)
	}
	return s.GetRoute(ctx, id)
}

func (s *RouteService) editableRoute(ctx context.Context, id, op string) (domain.Route, error) {
	route, err := s.store.FindByID(ctx, id)
	if err != nil {
		return domain.Route{}, fmt.Errorf("%s %s: %w", op, id, err)
	}
	if !route.Status.Editable() {
		return domain.Route{}, fmt.Errorf("%s %s: status %s: %w", op, id, route.Status, domain.ErrRouteNotEditable)
	}
	return route, nil
}

func (s *RouteService) windows(ctx context.Context, route domain.Route) (map[string]domain.Opt[domain.TimeWindow], error) {
	orders, err := s.orders.OrdersByIDs(ctx, route.OrderIDs())
	if err != nil {
		return nil, fmt.Errorf("load time windows: %w", err)
	}
	return domain.WindowsByOrder(orders), nil
}

// startOf keeps the route's departure anchored to its first stop.
func (s *RouteService) startOf(route domain.Route) time.Time {
	sorted := route.SortedStops()
	if len(sorted) > 0 && !sorted[0].EstimatedArrival.IsZero() {
		return sorted[0].EstimatedArrival
	}
	return s.opts.Now()
}

// baseMatrix prices [depot, stops in sequence order] and returns the matrix
// index of every order on the route.
func (s *RouteService) baseMatrix(ctx context.Context, route domain.Route) (ports.Matrix, map[string]int, error) {
	sorted := route.SortedStops()
	index := make(map[string]int, len(sorted))
	for i, st := range sorted {
		index[st.OrderID] = i + 1
	}
	if len(sorted) == 0 {
		return ports.Matrix{Distances: [][]float64{{0}}, Durations: [][]float64{{0}}}, index, nil
	}

	oracleCtx, cancel := context.WithTimeout(ctx, s.opts.OracleTimeout)
	defer cancel()

	locs := StopLocations(route.Depot, sorted)
	m, err := s.oracle.DistanceMatrix(oracleCtx, locs)
	if err != nil {
		return ports.Matrix{}, nil, &domain.OracleError{Op: "distance matrix", Err: err}
	}
	if m.Size() != len(locs) || len(m.Durations) != len(locs) {
		return ports.Matrix{}, nil, &domain.OracleError{
			Op:  "distance matrix",
			Err: fmt.Errorf("got %d rows for %d locations", m.Size(), len(locs)),
		}
	}
	return m, index, nil
}

type evaluation struct {
	stops     []domain.RouteStop
	metrics   domain.RouteMetrics
	conflicts []string
}

func (e evaluation) betterThan(o evaluation) bool {
	if len(e.conflicts) != len(o.conflicts) {
		return len(e.conflicts) < len(o.conflicts)
	}
	return e.metrics.TotalDistanceMeters < o.metrics.TotalDistanceMeters
}

// evaluate times stops against base without calling the oracle. index maps
// each order id to its row in base; row 0 is the depot.
func (s *RouteService) evaluate(
	base ports.Matrix,
	index map[string]int,
	stops []domain.RouteStop,
	start time.Time,
	windows map[string]domain.Opt[domain.TimeWindow],
) evaluation {
	sorted := domain.SortStops(stops)
	rows := make([]int, 0, len(sorted)+1)
	rows = append(rows, 0)
	for _, st := range sorted {
		rows = append(rows, index[st.OrderID])
	}
	m := subMatrix(base, rows)

	timed := PropagateArrivals(sorted, start, StopDurations(m))
	return evaluation{
		stops:     timed,
		metrics:   ComputeMetrics(timed, m),
		conflicts: DetectConflicts(timed, windows, s.opts.Timezone),
	}
}

func subMatrix(m ports.Matrix, rows []int) ports.Matrix {
	out := ports.Matrix{
		Distances: make([][]float64, len(rows)),
		Durations: make([][]float64, len(rows)),
	}
	for a, i := range rows {
		out.Distances[a] = make([]float64, len(rows))
		out.Durations[a] = make([]float64, len(rows))
		for b, j := range rows {
			out.Distances[a][b] = m.Distance(i, j)
			out.Durations[a][b] = m.Duration(i, j)
		}
	}
	return out
}

func missingOrders(requested []string, found []domain.Order) []string {
	known := make(map[string]struct{}, len(found))
	for _, o := range found {
		known[o.ID] = struct{}{}
	}
	missing := []string{}
	for _, id := range requested {
		if _, ok := known[id]; !ok && !slices.Contains(missing, id) {
			missing = append(missing, id)
		}
	}
	return missing
}
