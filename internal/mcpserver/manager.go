// Package mcpserver implements the Tool Server Manager: it spawns,
// initializes, monitors, and shuts down child processes that speak
// line-delimited JSON-RPC 2.0 over stdio, merges their published tools
// into a single name→server map, and dispatches tools/call requests.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kadirpekel/agentkernel/internal/toolspec"
)

// Manager is the Tool Server Manager. It is safe for concurrent use:
// the name→server map is written only during Startup/Reload and read
// during Dispatch.
type Manager struct {
	logger *slog.Logger

	mu           sync.RWMutex
	servers      map[string]*serverConnection
	toolToServer map[string]string
	toolPatches  map[string]map[string]any
}

// NewManager creates a Manager with no servers configured. Call Startup
// to bring up a configuration.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger:       logger,
		servers:      make(map[string]*serverConnection),
		toolToServer: make(map[string]string),
	}
}

// Startup spawns every configured server, performs the initialize
// handshake, and runs paginated tool discovery. A server whose config
// is invalid or whose handshake fails is logged and skipped; it never
// fails the process.
func (m *Manager) Startup(ctx context.Context, cfg Config) {
	m.logger.Info("tool server manager starting up")

	m.mu.Lock()
	m.toolPatches = cfg.ToolPatches
	servers := make(map[string]*serverConnection, len(cfg.MCPServers))
	m.mu.Unlock()

	for name, sc := range cfg.MCPServers {
		argv, env, err := sc.resolve()
		if err != nil {
			m.logger.Error("invalid server config, disabling", "server", name, "error", err)
			continue
		}
		conn := newServerConnection(name, argv, env, m.logger.With("server", name))
		if !conn.start() {
			continue
		}
		if !m.handshake(ctx, conn) {
			conn.stop()
			continue
		}
		servers[name] = conn
	}

	m.mu.Lock()
	m.servers = servers
	toolToServer := make(map[string]string)
	for name, conn := range servers {
		for _, t := range conn.tools {
			toolToServer[t.Name] = name
		}
	}
	m.toolToServer = toolToServer
	m.mu.Unlock()

	m.logger.Info("tool server manager startup complete", "servers", len(servers))
}

func (m *Manager) handshake(ctx context.Context, conn *serverConnection) bool {
	initParams := map[string]any{
		"protocolVersion": protocolVersion,
		"clientInfo":      map[string]any{"name": "agentkernel", "version": "1.0"},
		"capabilities":    map[string]any{},
	}
	result, err := conn.sendRequest(ctx, "initialize", initParams)
	if err != nil {
		m.logger.Error("initialization failed, shutting down server", "server", conn.name, "error", err)
		return false
	}

	var parsed initializeResult
	if err := json.Unmarshal(result, &parsed); err != nil {
		m.logger.Error("malformed initialize result", "server", conn.name, "error", err)
		return false
	}
	conn.serverInfo = parsed.ServerInfo
	conn.capabilities = parsed.Capabilities

	if err := conn.sendNotification("notifications/initialized", map[string]any{}); err != nil {
		m.logger.Error("failed to send initialized notification", "server", conn.name, "error", err)
		return false
	}
	m.logger.Info("handshake complete", "server", conn.name)

	if _, hasTools := conn.capabilities["tools"]; hasTools {
		m.fetchTools(ctx, conn)
	}
	return true
}

func (m *Manager) fetchTools(ctx context.Context, conn *serverConnection) {
	var all []rawTool
	var cursor string
	for {
		params := map[string]any{}
		if cursor != "" {
			params["cursor"] = cursor
		}
		result, err := conn.sendRequest(ctx, "tools/list", params)
		if err != nil {
			m.logger.Error("failed to fetch tools/list", "server", conn.name, "error", err)
			break
		}
		var page toolsListResult
		if err := json.Unmarshal(result, &page); err != nil {
			m.logger.Error("malformed tools/list result", "server", conn.name, "error", err)
			break
		}
		all = append(all, page.Tools...)
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	m.mu.RLock()
	patches := m.toolPatches
	m.mu.RUnlock()

	for i, t := range all {
		if patch, ok := patches[t.Name]; ok {
			m.logger.Info("patching tool metadata", "server", conn.name, "tool", t.Name)
			applyPatch(&all[i], patch)
		}
		_ = t
	}
	conn.tools = all
}

// applyPatch shallow-merges a tool_patches entry over a tool descriptor:
// a name, description, inputSchema or outputSchema key of the right type
// overwrites that field; any other key in the patch is ignored.
func applyPatch(t *rawTool, patch map[string]any) {
	if v, ok := patch["name"].(string); ok {
		t.Name = v
	}
	if v, ok := patch["description"].(string); ok {
		t.Description = v
	}
	if v, ok := patch["inputSchema"].(map[string]any); ok {
		t.InputSchema = v
	}
	if v, ok := patch["outputSchema"].(map[string]any); ok {
		t.OutputSchema = v
	}
}

// HasTool reports whether name is published by any configured server,
// regardless of whether that server is currently alive.
func (m *Manager) HasTool(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.toolToServer[name]
	return ok
}

// Dispatch issues a tools/call request to the server that owns name. A
// non-nil error means the tool is unknown, the owning server is not
// currently running, the request failed or timed out, or the result
// could not be decoded; the Registry converts this into an error
// envelope.
func (m *Manager) Dispatch(ctx context.Context, name string, args map[string]any) (*CallResult, error) {
	m.mu.RLock()
	serverName, ok := m.toolToServer[name]
	var conn *serverConnection
	if ok {
		conn = m.servers[serverName]
	}
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("tool %q not found on any tool server", name)
	}
	if conn == nil || !conn.isRunning() {
		return nil, fmt.Errorf("server %q for tool %q is not running", serverName, name)
	}

	m.logger.Info("dispatching tool call", "tool", name, "server", serverName)
	result, err := conn.sendRequest(ctx, "tools/call", map[string]any{"name": name, "arguments": args})
	if err != nil {
		return nil, fmt.Errorf("dispatch %q to %q: %w", name, serverName, err)
	}

	var call CallResult
	if err := json.Unmarshal(result, &call); err != nil {
		return nil, fmt.Errorf("malformed tools/call result from %q: %w", serverName, err)
	}
	return &call, nil
}

// AllToolsMetadata returns the descriptors published by every currently
// running server, tagged with its mcp:<server> origin.
func (m *Manager) AllToolsMetadata() []toolspec.Descriptor {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []toolspec.Descriptor
	for name, conn := range m.servers {
		if !conn.isRunning() {
			continue
		}
		for _, t := range conn.tools {
			out = append(out, toolspec.Descriptor{
				Name:         t.Name,
				Description:  t.Description,
				InputSchema:  t.InputSchema,
				OutputSchema: t.OutputSchema,
				Origin:       toolspec.MCPOrigin(name),
			})
		}
	}
	return out
}

// Reload performs a full stop-then-start against a new configuration.
func (m *Manager) Reload(ctx context.Context, cfg Config) {
	m.logger.Info("tool server manager reloading")
	m.Shutdown()
	m.Startup(ctx, cfg)
	m.logger.Info("tool server manager reload complete")
}

// Shutdown terminates every configured server.
func (m *Manager) Shutdown() {
	m.logger.Info("tool server manager shutting down")
	m.mu.RLock()
	servers := make([]*serverConnection, 0, len(m.servers))
	for _, conn := range m.servers {
		servers = append(servers, conn)
	}
	m.mu.RUnlock()

	for _, conn := range servers {
		conn.stop()
	}
	m.logger.Info("tool server manager shutdown complete")
}
