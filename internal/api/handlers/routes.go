package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"
	"vrp-route-service/internal/api/dto"
	"vrp-route-service/internal/domain"
	"vrp-route-service/internal/services"
)

// RouteService is the part of services.RouteService the HTTP layer uses.
type RouteService interface {
	OptimizeRoutes(ctx context.Context, req services.OptimizeRequest) (services.OptimizeResult, error)
	CreateRoute(ctx context.Context, req services.CreateRouteRequest) (domain.Route, error)
	GetRoute(ctx context.Context, id string) (domain.Route, error)
	ListRoutes(ctx context.Context, f services.RouteFilter) ([]domain.Route, error)
	UpdateStops(ctx context.Context, id string, expectedVersion int, stops []domain.RouteStop) (domain.Route, error)
	UpdateStatus(ctx context.Context, id string, to domain.RouteStatus) (domain.Route, error)
	Reorder(ctx context.Context, id string, orderIDs []string) (domain.Route, error)
	ResequenceByWindow(ctx context.Context, id string) (domain.Route, error)
	OptimizeSequence(ctx context.Context, id string) (domain.Route, error)
	TimeWindowConflicts(ctx context.Context, id string) ([]string, error)
	Alternatives(ctx context.Context, id string) ([]services.AlternativeRoute, error)
	RecalculateMetrics(ctx context.Context, id string) (domain.Route, error)
	MapData(ctx context.Context, id string) (services.MapData, error)
	AssignLoads(ctx context.Context, routeIDs []string) (services.AssignLoadsResult, error)
}

type RouteHandler struct {
	Service      RouteService
	DefaultDepot domain.Coordinates
}

func (h *RouteHandler) depot(d *domain.Coordinates) domain.Coordinates {
	if d != nil {
		return *d
	}
	return h.DefaultDepot
}

func startAt(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func (h *RouteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateRouteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.OrderIDs) == 0 {
		writeError(w, r, http.StatusBadRequest, "order_ids is required")
		return
	}

	route, err := h.Service.CreateRoute(r.Context(), services.CreateRouteRequest{
		LoadID:    strings.TrimSpace(req.LoadID),
		OrderIDs:  req.OrderIDs,
		Depot:     h.depot(req.Depot),
		VehicleID: domain.FromPtr(req.VehicleID),
		StartAt:   startAt(req.StartAt),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, route)
}

func (h *RouteHandler) Get(w http.ResponseWriter, r *http.Request) {
	route, err := h.Service.GetRoute(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, route)
}

// List serves GET /routes filtered by exactly one of status, load_id or
// vehicle_id.
func (h *RouteHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var f services.RouteFilter
	if v := q.Get("status"); v != "" {
		st, err := domain.ParseRouteStatus(strings.ToUpper(v))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		f.Status = domain.Some(st)
	}
	if v := q.Get("load_id"); v != "" {
		f.LoadID = domain.Some(v)
	}
	if v := q.Get("vehicle_id"); v != "" {
		f.VehicleID = domain.Some(v)
	}

	routes, err := h.Service.ListRoutes(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.ListRoutesResponse{Routes: routes})
}

func (h *RouteHandler) UpdateStops(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateStopsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	route, err := h.Service.UpdateStops(r.Context(), r.PathValue("id"), req.Version, req.Stops)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, route)
}

func (h *RouteHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	to, err := domain.ParseRouteStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	route, err := h.Service.UpdateStatus(r.Context(), r.PathValue("id"), to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, route)
}

func (h *RouteHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req dto.ReorderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	route, err := h.Service.Reorder(r.Context(), r.PathValue("id"), req.OrderIDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, route)
}

func (h *RouteHandler) Resequence(w http.ResponseWriter, r *http.Request) {
	h.routeAction(w, r, h.Service.ResequenceByWindow)
}

func (h *RouteHandler) OptimizeSequence(w http.ResponseWriter, r *http.Request) {
	h.routeAction(w, r, h.Service.OptimizeSequence)
}

func (h *RouteHandler) RecalculateMetrics(w http.ResponseWriter, r *http.Request) {
	h.routeAction(w, r, h.Service.RecalculateMetrics)
}

// routeAction runs a body-less operation on the route named in the path.
func (h *RouteHandler) routeAction(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, id string) (domain.Route, error),
) {
	route, err := op(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, route)
}

func (h *RouteHandler) Conflicts(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	conflicts, err := h.Service.TimeWindowConflicts(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.ConflictsResponse{RouteID: id, Conflicts: conflicts})
}

func (h *RouteHandler) Alternatives(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	alts, err := h.Service.Alternatives(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.AlternativesResponse{RouteID: id, Alternatives: alts})
}

func (h *RouteHandler) Map(w http.ResponseWriter, r *http.Request) {
	data, err := h.Service.MapData(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, data)
}
