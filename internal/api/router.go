package api

import (
	"net/http"
	"vrp-route-service/internal/api/handlers"
	"vrp-route-service/internal/domain"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// Handlers stay unaware of concrete adapters.
func NewRouter(svc handlers.RouteService, depot domain.Coordinates) http.Handler {
	mux := http.NewServeMux()

	rh := &handlers.RouteHandler{Service: svc, DefaultDepot: depot}

	mux.HandleFunc("GET /health", handlers.Health)

	mux.HandleFunc("POST /routes/optimize", rh.Optimize)
	mux.HandleFunc("POST /routes", rh.Create)
	mux.HandleFunc("GET /routes", rh.List)
	mux.HandleFunc("GET /routes/{id}", rh.Get)
	mux.HandleFunc("PUT /routes/{id}/stops", rh.UpdateStops)
	mux.HandleFunc("PATCH /routes/{id}/status", rh.UpdateStatus)
	mux.HandleFunc("POST /routes/{id}/reorder", rh.Reorder)
	mux.HandleFunc("POST /routes/{id}/resequence", rh.Resequence)
	mux.HandleFunc("POST /routes/{id}/optimize", rh.OptimizeSequence)
	mux.HandleFunc("POST /routes/{id}/metrics", rh.RecalculateMetrics)
	mux.HandleFunc("GET /routes/{id}/conflicts", rh.Conflicts)
	mux.HandleFunc("GET /routes/{id}/alternatives", rh.Alternatives)
	mux.HandleFunc("GET /routes/{id}/map", rh.Map)

	mux.HandleFunc("POST /assignments", rh.Assign)

	return requestID(loggingMiddleware(mux))
}
