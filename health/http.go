package health

import (
	"encoding/json"
	"net/http"
	"time"
)

// Response is the JSON body of the health endpoint.
type Response struct {
	Status    string                   `json:"status"`
	Service   string                   `json:"service,omitempty"`
	Version   string                   `json:"version,omitempty"`
	Timestamp string                   `json:"timestamp"`
	Checks    map[string]CheckResponse `json:"checks,omitempty"`
}

// CheckResponse is one check's entry in the health response.
type CheckResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Handler serves the aggregate health of the service as JSON.
// Unhealthy overall status maps to 503, everything else to 200.
func Handler(registry *Registry, service, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results := registry.CheckAll(r.Context())
		overall := Overall(results)

		resp := Response{
			Status:    overall.String(),
			Service:   service,
			Version:   version,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    make(map[string]CheckResponse, len(results)),
		}
		for name, result := range results {
			check := CheckResponse{
				Status:  result.Status.String(),
				Message: result.Message,
			}
			if result.Error != nil {
				check.Error = result.Error.Error()
			}
			resp.Checks[name] = check
		}

		w.Header().Set("Content-Type", "application/json")
		if overall == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(resp)
	}
}
