package handler

import "net/http"

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Health reports process liveness only. External tool availability has
// its own endpoint and dependency state is visible through metrics.
func Health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, HealthResponse{Status: "ok", Service: "mediaforge"})
}
