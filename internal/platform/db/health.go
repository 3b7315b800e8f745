package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolHealth is the connection pool snapshot reported by the health endpoint.
type PoolHealth struct {
	TotalConns int32 `json:"total_conns"`
	IdleConns  int32 `json:"idle_conns"`
	InUseConns int32 `json:"in_use_conns"`
	MaxConns   int32 `json:"max_conns"`
}

// SnapshotPool reads the current pool statistics.
func SnapshotPool(pool *pgxpool.Pool) *PoolHealth {
	stat := pool.Stat()
	return &PoolHealth{
		TotalConns: stat.TotalConns(),
		IdleConns:  stat.IdleConns(),
		InUseConns: stat.AcquiredConns(),
		MaxConns:   stat.MaxConns(),
	}
}

// HealthHandler serves the liveness endpoint. A failed ping reports 503 with
// the pool snapshot so operators can see whether the pool is exhausted or the
// database is gone.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
		defer cancel()

		if err := pool.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status": "degraded",
				"error":  err.Error(),
				"pool":   SnapshotPool(pool),
			})
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"status": "ok",
			"pool":   SnapshotPool(pool),
		})
	}
}
