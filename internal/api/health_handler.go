package api

import (
	"net/http"

	"github.com/phrazzld/questboard-api/internal/api/shared"
)

// ConnectionStats reports live conversation counts.
type ConnectionStats interface {
	Stats() (sessions, conversations int)
}

// HealthHandler handles GET /health.
func HealthHandler(stats ConnectionStats) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions, conversations := stats.Stats()
		shared.RespondWithJSON(w, r, http.StatusOK, HealthResponse{
			Status:            "ok",
			ActiveConnections: sessions,
			Conversations:     conversations,
		})
	}
}
