package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/tavern-gate/pkg/http"
)

// HealthChecker is satisfied by *database.DB
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
	Stats() sql.DBStats
}

// HealthResponse is the body of /health
type HealthResponse struct {
	Status      string    `json:"status"`
	Database    string    `json:"database"`
	Connections PoolStats `json:"connections"`
}

// PoolStats is the connection pool snapshot reported by /health
type PoolStats struct {
	Open      int   `json:"open"`
	InUse     int   `json:"inUse"`
	Idle      int   `json:"idle"`
	WaitCount int64 `json:"waitCount"`
}

// Health reports whether the attempt store is reachable
func Health(db HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		s := db.Stats()
		resp := HealthResponse{
			Status:   "healthy",
			Database: "up",
			Connections: PoolStats{
				Open:      s.OpenConnections,
				InUse:     s.InUse,
				Idle:      s.Idle,
				WaitCount: s.WaitCount,
			},
		}

		if err := db.HealthCheck(ctx); err != nil {
			resp.Status, resp.Database = "unhealthy", "down"
			pkghttp.WriteJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		pkghttp.WriteJSON(w, http.StatusOK, resp)
	}
}
