package models

// SavedRoute is a saved route between two stations.
type SavedRoute struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	RouteNo   string    `json:"routeNo"`
	CreatedAt Timestamp `json:"createdAt"`
}

// SavedRouteRequest is the request body for saving or toggling a route.
type SavedRouteRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	RouteNo string `json:"routeNo"`
}

// SavedRoutesResponse lists a device's saved routes, oldest first.
type SavedRoutesResponse struct {
	Items []SavedRoute `json:"items"`
}

// SavedStatusResponse reports whether a route is saved.
type SavedStatusResponse struct {
	Saved bool `json:"saved"`
}

// RemovedResponse reports how many saved routes were removed.
type RemovedResponse struct {
	Removed int `json:"removed"`
}
