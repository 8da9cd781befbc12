// Package gateway implements the Tool Gateway: the HTTP endpoint that
// exposes every tool in the registry to code running inside the
// sandbox, under a uniform envelope.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kadirpekel/agentkernel/internal/mcpserver"
)

// Dispatcher is the subset of *registry.ToolRegistry the Gateway needs.
// Kept as an interface so the registry package never has to import the
// gateway package.
type Dispatcher interface {
	GatewayDispatch(ctx context.Context, name string, args map[string]any) (result *mcpserver.CallResult, argErr bool, execErr error, found bool)
}

// Gateway is the HTTP server described by spec §4.3. It holds only a
// reference to the registry, injected at construction; it takes no lock
// of its own because the registry is safe for concurrent dispatch.
type Gateway struct {
	registry Dispatcher
	router   chi.Router
}

// New builds a Gateway backed by registry.
func New(registry Dispatcher) *Gateway {
	g := &Gateway{registry: registry}
	r := chi.NewRouter()
	r.Post("/mcp_tool_call", g.handleToolCall)
	g.router = r
	return g
}

// ServeHTTP implements http.Handler so Gateway can be wired directly
// into an http.Server.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.router.ServeHTTP(w, r)
}

type callRequest struct {
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments"`
}

type successResponse struct {
	Status string               `json:"status"`
	Result *mcpserver.CallResult `json:"result"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
}

func (g *Gateway) handleToolCall(w http.ResponseWriter, r *http.Request) {
	var req callRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Status: "error", Type: "INVALID_TOOL_ARGUMENTS",
			Message: fmt.Sprintf("invalid request body: %v", err),
		})
		return
	}

	result, argErr, execErr, found := g.registry.GatewayDispatch(r.Context(), req.ToolName, req.Arguments)

	if !found {
		writeJSON(w, http.StatusNotFound, errorResponse{
			Status: "error", Type: "TOOL_NOT_FOUND",
			Message: fmt.Sprintf("Tool '%s' not found.", req.ToolName),
		})
		return
	}
	if argErr {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Status: "error", Type: "INVALID_TOOL_ARGUMENTS",
			Message: fmt.Sprintf("Invalid arguments for '%s': %v", req.ToolName, execErr),
		})
		return
	}
	if execErr != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Status: "error", Type: "TOOL_EXECUTION_ERROR",
			Message: execErr.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Status: "success", Result: result})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
