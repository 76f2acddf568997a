package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/collegehub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Pinger is satisfied by every document store backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	Store   Pinger
	Backend string
	Log     *zap.Logger
}

// NewHandler constructs a health Handler for the configured store backend.
func NewHandler(store Pinger, backend string, logger *zap.Logger) *Handler {
	return &Handler{
		Store:   store,
		Backend: backend,
		Log:     logger,
	}
}

type healthResponse struct {
	Status   string `json:"status"`
	Backend  string `json:"backend"`
	Database string `json:"database"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "backend":"mongo", "database":"connected" }
//
// On store failure: 503 and
//
//	{ "status":"error", "database":"disconnected", "message":"Database unavailable", "error":"…"}
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{
		Status:   "ok",
		Backend:  h.Backend,
		Database: "connected",
	}

	if err := h.Store.Ping(ctx); err != nil {
		h.Log.Error("health-check: store ping failed", zap.String("backend", h.Backend), zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		resp.Error = err.Error()
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	_ = json.NewEncoder(w).Encode(resp)
}
