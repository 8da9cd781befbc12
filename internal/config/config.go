// Package config loads the tool-server configuration file and watches
// it for changes, triggering a live reload of the Tool Server Manager
// without restarting the process.
package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kadirpekel/agentkernel/internal/mcpserver"
)

// rawServerConfig mirrors the JSON shape of a single mcpServers entry.
type rawServerConfig struct {
	Run     string            `koanf:"run"`
	Command string            `koanf:"command"`
	Args    []string          `koanf:"args"`
	Env     map[string]string `koanf:"env"`
}

// Load reads path and converts it into an mcpserver.Config.
func Load(path string) (mcpserver.Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), json.Parser()); err != nil {
		return mcpserver.Config{}, fmt.Errorf("load tool config %s: %w", path, err)
	}

	var raw struct {
		MCPServers  map[string]rawServerConfig `koanf:"mcpServers"`
		ToolPatches map[string]map[string]any  `koanf:"tool_patches"`
	}
	if err := k.Unmarshal("", &raw); err != nil {
		return mcpserver.Config{}, fmt.Errorf("parse tool config %s: %w", path, err)
	}

	cfg := mcpserver.Config{
		MCPServers:  make(map[string]mcpserver.ServerConfig, len(raw.MCPServers)),
		ToolPatches: raw.ToolPatches,
	}
	for name, sc := range raw.MCPServers {
		cfg.MCPServers[name] = mcpserver.ServerConfig{
			Run:     sc.Run,
			Command: sc.Command,
			Args:    sc.Args,
			Env:     sc.Env,
		}
	}
	return cfg, nil
}

// Watcher watches a tool config file and calls Manager.Reload whenever
// it changes on disk.
type Watcher struct {
	path    string
	manager *mcpserver.Manager
	logger  *slog.Logger
	watcher *fsnotify.Watcher
}

// NewWatcher creates a Watcher for path, driving manager's reloads.
func NewWatcher(path string, manager *mcpserver.Manager, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch config file %s: %w", path, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{path: path, manager: manager, logger: logger, watcher: fw}, nil
}

// Run blocks, reloading the manager on every write/create event until
// ctx is cancelled. Call it from its own goroutine.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.logger.Info("tool config changed, reloading", "path", w.path)
			cfg, err := Load(w.path)
			if err != nil {
				w.logger.Error("failed to reload tool config, keeping previous", "error", err)
				continue
			}
			w.manager.Reload(ctx, cfg)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", "error", err)
		}
	}
}
