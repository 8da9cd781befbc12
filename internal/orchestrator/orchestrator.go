// Package orchestrator wires every component together: it builds the
// registry, starts the Tool Server Manager and Gateway, seeds the root
// agent, and runs the outer REPL loop that drives the Kernel.
package orchestrator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strings"

	"github.com/kadirpekel/agentkernel/internal/agentstate"
	"github.com/kadirpekel/agentkernel/internal/builtintools"
	"github.com/kadirpekel/agentkernel/internal/config"
	"github.com/kadirpekel/agentkernel/internal/gateway"
	"github.com/kadirpekel/agentkernel/internal/kernel"
	"github.com/kadirpekel/agentkernel/internal/llmtransport"
	"github.com/kadirpekel/agentkernel/internal/mcpserver"
	"github.com/kadirpekel/agentkernel/internal/prompt"
	"github.com/kadirpekel/agentkernel/internal/registry"
	"github.com/kadirpekel/agentkernel/internal/sandbox"
	"github.com/kadirpekel/agentkernel/internal/toolspec"
)

// Options carries everything the CLI collects before handing off to
// the Orchestrator.
type Options struct {
	Model          string
	BaseURL        string
	Temperature    float64
	ToolConfigPath string
	AutoAcceptCode bool
	GatewayHost    string
	GatewayPort    int
	ToolTagStart   string
	ToolTagEnd     string
	WorkDir        string
	Logger         *slog.Logger
	Stdin          io.Reader
	Stdout         io.Writer
}

// Orchestrator owns the wired components and runs the outer loop.
type Orchestrator struct {
	opts     Options
	store    *agentstate.Store
	registry *registry.ToolRegistry
	manager  *mcpserver.Manager
	kernel   *kernel.Kernel
	server   *http.Server
	stdin    *bufio.Reader
	promptFor func(role string) string
}

// New builds every component but does not start any background
// process; call Run to start the gateway, the tool servers, and the
// REPL loop.
func New(opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	store := agentstate.NewStore()
	manager := mcpserver.NewManager(opts.Logger.With("component", "mcpserver"))
	reg := registry.NewToolRegistry(manager)

	systemPromptFor := func(role string) string {
		return prompt.Render(prompt.Config{
			Role:         role,
			ToolTagStart: opts.ToolTagStart,
			ToolTagEnd:   opts.ToolTagEnd,
		}, reg.AllDescriptors())
	}

	registerBuiltins(reg, opts.WorkDir, store, systemPromptFor)

	llm := llmtransport.New(opts.BaseURL, opts.Model, opts.Temperature)
	sb := sandbox.NewRunner(opts.GatewayHost, opts.GatewayPort, opts.Logger.With("component", "sandbox"))

	stdin := bufio.NewReader(opts.Stdin)
	confirm := func(call toolspec.Call) bool {
		return confirmPrompt(stdin, opts.Stdout, call)
	}
	streamToUser := func(chunk string) {
		fmt.Fprint(opts.Stdout, chunk)
	}

	k := kernel.New(reg, store, llm, sb, confirm, systemPromptFor, opts.AutoAcceptCode,
		opts.ToolTagStart, opts.ToolTagEnd, streamToUser, opts.Logger.With("component", "kernel"))

	gw := gateway.New(reg)
	addr := fmt.Sprintf("%s:%d", opts.GatewayHost, opts.GatewayPort)
	server := &http.Server{Addr: addr, Handler: gw}

	return &Orchestrator{opts: opts, store: store, registry: reg, manager: manager, kernel: k, server: server, stdin: stdin, promptFor: systemPromptFor}
}

func registerBuiltins(reg *registry.ToolRegistry, workDir string, store *agentstate.Store, systemPromptFor func(string) string) {
	spawnSystemPrompt := func() string { return systemPromptFor("") }
	for _, t := range []toolspec.Tool{
		builtintools.WeatherTool(),
		builtintools.MultiplyNumbersTool(),
		builtintools.ReadFileTool(workDir),
		builtintools.WriteFileTool(workDir),
		builtintools.ShellTool(),
		builtintools.SpawnAgentTool(store, spawnSystemPrompt),
		builtintools.LLMRequestTool(store, spawnSystemPrompt),
	} {
		if err := reg.RegisterInternal(t); err != nil {
			panic(fmt.Sprintf("duplicate built-in tool registration: %v", err))
		}
	}
}

// Run starts the tool config load and watch, the Gateway listener, and
// blocks on the outer REPL loop until stdin closes or ctx is cancelled;
// cancellation is noticed once the pending read of an input line returns.
// It returns a nonzero-exit error for the fatal conditions spec §7
// names: missing prerequisite or failure to bind the gateway port.
func (o *Orchestrator) Run(ctx context.Context) error {
	if _, err := exec.LookPath("uv"); err != nil {
		return fmt.Errorf("interpreter launcher %q not found on PATH: %w", "uv", err)
	}

	if o.opts.ToolConfigPath != "" {
		cfg, err := config.Load(o.opts.ToolConfigPath)
		if err != nil {
			o.opts.Logger.Warn("failed to load tool config, starting with no tool servers", "error", err)
		} else {
			o.manager.Startup(ctx, cfg)
			if watcher, err := config.NewWatcher(o.opts.ToolConfigPath, o.manager, o.opts.Logger); err == nil {
				go watcher.Run(ctx)
			}
		}
	}
	defer o.manager.Shutdown()

	listener, err := newListener(o.server.Addr)
	if err != nil {
		return fmt.Errorf("gateway failed to bind %s: %w", o.server.Addr, err)
	}
	go func() {
		if err := o.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			o.opts.Logger.Error("gateway server error", "error", err)
		}
	}()
	defer o.server.Close()

	root := o.store.Create("main", "", o.promptFor("main"), nil)

	return o.repl(ctx, root)
}

func (o *Orchestrator) repl(ctx context.Context, root *agentstate.Agent) error {
	for {
		fmt.Fprint(o.opts.Stdout, "\n> ")
		line, err := o.stdin.ReadString('\n')
		if ctx.Err() != nil {
			return nil
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if err != nil {
				return nil
			}
			continue
		}

		root.AppendUser(line)
		o.store.SetStatus(root.ID, agentstate.StatusReady)
		root.Status = agentstate.StatusReady

		for {
			next := o.store.NextReady()
			if next == nil {
				if root.Status == agentstate.StatusWaiting && o.store.AllChildrenDone(root.ID) {
					o.store.SetStatus(root.ID, agentstate.StatusReady)
					root.Status = agentstate.StatusReady
					continue
				}
				break
			}
			o.kernel.RunTurn(ctx, next)
		}

		fmt.Fprintln(o.opts.Stdout)
	}
}

func confirmPrompt(stdin *bufio.Reader, stdout io.Writer, call toolspec.Call) bool {
	fmt.Fprintf(stdout, "\nRun tool %q? [y/N] ", call.ToolName)
	line, _ := stdin.ReadString('\n')
	switch strings.TrimSpace(line) {
	case "y", "Y", "yes":
		return true
	default:
		return false
	}
}

func newListener(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}
