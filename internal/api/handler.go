// Package api provides the HTTP endpoints served next to the MCP transport.
//
//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ashureev/odoo-mcp/internal/domain"
	"github.com/go-chi/chi/v5"
)

const (
	healthCheckTimeout = 5 * time.Second
	defaultListLimit   = 50
)

// Pinger checks that the Odoo server is reachable.
type Pinger interface {
	Ping(ctx context.Context) (json.RawMessage, error)
}

// CallLister reads the audit log.
type CallLister interface {
	ListCalls(ctx context.Context, tool string, limit int) ([]*domain.CallRecord, error)
	Ping(ctx context.Context) error
}

// Handler serves health and audit endpoints.
type Handler struct {
	odoo     Pinger
	calls    CallLister // nil when auditing is disabled
	maxLimit int
}

// NewHandler creates a new Handler. calls may be nil.
func NewHandler(odoo Pinger, calls CallLister, maxLimit int) *Handler {
	if maxLimit <= 0 {
		maxLimit = defaultListLimit
	}
	return &Handler{odoo: odoo, calls: calls, maxLimit: maxLimit}
}

// RegisterRoutes registers the API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/health", h.Health)
	r.Get("/api/calls", h.ListCalls)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// Health returns the health status of the server and its dependencies.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := map[string]interface{}{
		"status": "healthy",
		"checks": checks,
	}
	statusCode := http.StatusOK

	if version, err := h.odoo.Ping(ctx); err != nil {
		slog.Error("Health check failed", "dependency", "odoo", "error", err)
		status["status"] = "degraded"
		checks["odoo"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["odoo"] = "ok"
		var info struct {
			ServerVersion string `json:"server_version"`
		}
		if json.Unmarshal(version, &info) == nil && info.ServerVersion != "" {
			status["odoo_version"] = info.ServerVersion
		}
	}

	if h.calls != nil {
		if err := h.calls.Ping(ctx); err != nil {
			slog.Error("Health check failed", "dependency", "audit_db", "error", err)
			status["status"] = "degraded"
			checks["audit_db"] = "unreachable"
			statusCode = http.StatusServiceUnavailable
		} else {
			checks["audit_db"] = "ok"
		}
	}

	JSON(w, statusCode, status)
}

type callResponse struct {
	ID         string          `json:"id"`
	Tool       string          `json:"tool"`
	Model      string          `json:"model,omitempty"`
	Arguments  json.RawMessage `json:"arguments,omitempty"`
	IsError    bool            `json:"is_error"`
	Message    string          `json:"message,omitempty"`
	DurationMS int64           `json:"duration_ms"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ListCalls returns recent audited tool calls. Query: tool, limit.
func (h *Handler) ListCalls(w http.ResponseWriter, r *http.Request) {
	if h.calls == nil {
		Error(w, http.StatusNotFound, "audit log is disabled")
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}

	records, err := h.calls.ListCalls(r.Context(), r.URL.Query().Get("tool"), limit)
	if err != nil {
		slog.Error("Failed to list tool calls", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list calls")
		return
	}

	out := make([]callResponse, 0, len(records))
	for _, rec := range records {
		resp := callResponse{
			ID:         rec.ID,
			Tool:       rec.Tool,
			Model:      rec.Model,
			IsError:    rec.IsError,
			Message:    rec.Message,
			DurationMS: rec.Duration.Milliseconds(),
			CreatedAt:  rec.CreatedAt.UTC(),
		}
		if json.Valid([]byte(rec.Arguments)) {
			resp.Arguments = json.RawMessage(rec.Arguments)
		}
		out = append(out, resp)
	}

	JSON(w, http.StatusOK, map[string]interface{}{"calls": out})
}
