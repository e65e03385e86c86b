package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/animalportal/server/internal/httpx"
)

// HealthHandler reports service liveness and database reachability.
type HealthHandler struct {
	db      *sql.DB
	started time.Time
}

func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{db: db, started: time.Now()}
}

// HandleHealth handles GET /health
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbStatus := "ok"
	status := http.StatusOK
	if err := h.db.PingContext(ctx); err != nil {
		dbStatus = "unreachable"
		status = http.StatusServiceUnavailable
	}

	data := map[string]interface{}{
		"database": dbStatus,
		"uptime":   time.Since(h.started).Round(time.Second).String(),
	}
	if status == http.StatusOK {
		httpx.WriteSuccess(w, status, "Service healthy", data)
		return
	}
	httpx.WriteJSON(w, status, httpx.Envelope{Success: false, Message: "Service degraded", Data: data})
}
