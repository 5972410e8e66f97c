package handlers

import (
	"net/http"
	"strings"
	"vrp-route-service/internal/api/dto"
	"vrp-route-service/internal/services"
)

const maxOrdersPerRun = 500

// Optimize builds and stores routes for a batch of orders.
func (h *RouteHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	var req dto.OptimizeRoutesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	loadID := strings.TrimSpace(req.LoadID)
	if loadID == "" {
		writeError(w, r, http.StatusBadRequest, "load_id is required")
		return
	}
	if len(req.OrderIDs) == 0 {
		writeError(w, r, http.StatusBadRequest, "order_ids is required")
		return
	}
	if len(req.OrderIDs) > maxOrdersPerRun {
		writeError(w, r, http.StatusBadRequest, "order_ids must not exceed 500 entries")
		return
	}

	res, err := h.Service.OptimizeRoutes(r.Context(), services.OptimizeRequest{
		LoadID:   loadID,
		OrderIDs: req.OrderIDs,
		Depot:    h.depot(req.Depot),
		StartAt:  startAt(req.StartAt),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, res)
}

// Assign matches vehicles to the loads of the given routes.
func (h *RouteHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req dto.AssignLoadsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.RouteIDs) == 0 {
		writeError(w, r, http.StatusBadRequest, "route_ids is required")
		return
	}

	res, err := h.Service.AssignLoads(r.Context(), req.RouteIDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}
