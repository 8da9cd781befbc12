package builtintools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/kadirpekel/agentkernel/internal/toolspec"
)

// allowedCommands is the base-command allow list run_shell_command
// checks before ever invoking the shell.
var allowedCommands = map[string]bool{
	"ls": true, "cat": true, "echo": true, "pwd": true, "grep": true,
	"find": true, "wc": true, "head": true, "tail": true, "sort": true,
	"uniq": true, "diff": true, "mkdir": true, "touch": true,
}

// extractBaseCommand returns the first whitespace-separated token of a
// command line, the part validated against the allow list.
func extractBaseCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func isCommandAllowed(command string) bool {
	return allowedCommands[extractBaseCommand(command)]
}

// ShellTool returns the run_shell_command built-in: executes an
// allow-listed command line through the system shell and returns its
// combined output.
func ShellTool() toolspec.Tool {
	return toolspec.Tool{
		Descriptor: toolspec.Descriptor{
			Name:        "run_shell_command",
			Description: "Run an allow-listed shell command and return its output.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"command": map[string]any{"type": "string"},
				},
				"required": []any{"command"},
			},
			Origin: toolspec.OriginInternal,
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			command, _ := args["command"].(string)
			if command == "" {
				return nil, &toolspec.ArgError{Msg: "command is required"}
			}
			if !isCommandAllowed(command) {
				return nil, &toolspec.ArgError{Msg: fmt.Sprintf("command %q is not allow-listed", extractBaseCommand(command))}
			}

			cmd := exec.CommandContext(ctx, "sh", "-c", command)
			out, err := cmd.CombinedOutput()
			if err != nil {
				return nil, fmt.Errorf("command failed: %w: %s", err, strings.TrimSpace(string(out)))
			}
			return string(out), nil
		},
	}
}
