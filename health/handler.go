package health

import (
	"encoding/json"
	"net/http"
)

// Handler serves the checker's aggregate status as JSON, returning 503
// when any registered check is unhealthy or degraded.
func (h *HealthChecker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := h.GetSystemHealth(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if result.Status != StatusHealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(result)
	}
}
