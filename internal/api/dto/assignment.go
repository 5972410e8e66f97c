package dto

type AssignLoadsRequest struct {
	RouteIDs []string `json:"route_ids"`
}
