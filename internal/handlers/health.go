package handlers

import (
	"context"
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/warden/pkg/http"
)

// Pinger reports database reachability.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// Health answers 200 when the database responds within two seconds, 503 otherwise.
func Health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			pkghttp.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "down"})
			return
		}
		pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "up"})
	}
}
