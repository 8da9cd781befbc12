// Command agentkernel runs the local code-executing AI agent runtime:
// an interactive REPL backed by an Ollama-compatible model, a Tool
// Gateway for sandboxed code, and an optional set of JSON-RPC tool
// servers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/agentkernel/internal/logging"
	"github.com/kadirpekel/agentkernel/internal/orchestrator"
)

// CLI is the top-level kong command tree: global flags shared by every
// subcommand, plus one subcommand per entry point the binary exposes.
type CLI struct {
	Run RunCmd `cmd:"" help:"Start the interactive agent runtime."`

	LogLevel  string `help:"Log level: debug, info, warn, error." default:"info" name:"log-level"`
	LogFormat string `help:"Log format: text or json." default:"text" name:"log-format"`
}

// RunCmd starts the REPL, the Tool Gateway, and the Tool Server Manager.
type RunCmd struct {
	Model          string  `help:"Model identifier to request from the LLM transport." required:""`
	BaseURL        string  `help:"Base URL of the Ollama-compatible chat endpoint." default:"http://localhost:11434" name:"base-url"`
	ToolConfig     string  `help:"Path to the tool-server JSON configuration file." name:"tool-config"`
	AutoAcceptCode bool    `help:"Skip the confirmation prompt for execute_python_code calls." name:"auto-accept-code"`
	Temperature    float64 `help:"Sampling temperature passed to the model." default:"0.7"`
	GatewayHost    string  `help:"Host the Tool Gateway binds to." default:"localhost" name:"gateway-host"`
	GatewayPort    int     `help:"Port the Tool Gateway binds to." default:"8989" name:"gateway-port"`
	ToolTagStart   string  `help:"Opening tag delimiting a tool-call block in model output." default:"<tool>" name:"tool-tag-start"`
	ToolTagEnd     string  `help:"Closing tag delimiting a tool-call block in model output." default:"</tool>" name:"tool-tag-end"`
	WorkDir        string  `help:"Directory read_file/write_file operate relative to." default:"." name:"workdir"`
}

// Run executes the run subcommand, taking the parent CLI for the flags
// (log level/format) shared across every subcommand.
func (c *RunCmd) Run(cli *CLI) error {
	logger := logging.New(os.Stderr, logging.ParseLevel(cli.LogLevel), logging.ParseFormat(cli.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch := orchestrator.New(orchestrator.Options{
		Model:          c.Model,
		BaseURL:        c.BaseURL,
		Temperature:    c.Temperature,
		ToolConfigPath: c.ToolConfig,
		AutoAcceptCode: c.AutoAcceptCode,
		GatewayHost:    c.GatewayHost,
		GatewayPort:    c.GatewayPort,
		ToolTagStart:   c.ToolTagStart,
		ToolTagEnd:     c.ToolTagEnd,
		WorkDir:        c.WorkDir,
		Logger:         logger,
	})

	return orch.Run(ctx)
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("agentkernel"),
		kong.Description("A local code-executing AI agent runtime."),
	)

	err := kctx.Run(&cli)
	if err != nil {
		fmt.Fprintln(os.Stderr, "agentkernel:", err)
		os.Exit(1)
	}
}
