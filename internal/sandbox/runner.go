// Package sandbox implements the Code Sandbox Runner: a hermetic
// per-invocation executor that writes a generated tool-proxy source
// plus the model's code into a fresh temp directory and runs it under
// an external interpreter launcher.
package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/kadirpekel/agentkernel/internal/toolspec"
)

// Mode selects captured (stdout/stderr piped back, timeout-bounded) or
// interactive (inherits the parent's stdio, no timeout) execution.
type Mode int

const (
	ModeCaptured Mode = iota
	ModeInteractive
)

// DefaultTimeout is the wall-clock bound on a captured execution.
const DefaultTimeout = 120 * time.Second

// launcherBinary is the external interpreter launcher; Execute returns
// an error when it cannot be located on PATH.
const launcherBinary = "uv"

// Result is the envelope Execute returns.
type Result struct {
	Stdout string
	Stderr string
	Error  string
}

// installerNoisePrefixes are stderr line prefixes the launcher emits
// while resolving dependencies, filtered out of the returned stderr so
// the agent isn't distracted by routine package-manager chatter.
var installerNoisePrefixes = []string{"Installed ", "Resolved ", "Downloaded ", "Audited "}

// Runner executes model-generated code in a fresh temp directory.
type Runner struct {
	GatewayHost string
	GatewayPort int
	Timeout     time.Duration
	Logger      *slog.Logger
}

// NewRunner builds a Runner targeting the given Gateway address.
func NewRunner(gatewayHost string, gatewayPort int, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		GatewayHost: gatewayHost,
		GatewayPort: gatewayPort,
		Timeout:     DefaultTimeout,
		Logger:      logger,
	}
}

// Execute runs code against the given tool metadata. The temp directory
// is guaranteed removed on every exit path, success or failure.
func (r *Runner) Execute(ctx context.Context, code string, descriptors []toolspec.Descriptor, mode Mode) (Result, error) {
	if _, err := exec.LookPath(launcherBinary); err != nil {
		return Result{}, fmt.Errorf("interpreter launcher %q not found on PATH: %w", launcherBinary, err)
	}

	processed := ProcessToolCode(code)

	dir, err := os.MkdirTemp("", "agentkernel_tool_run_")
	if err != nil {
		return Result{}, fmt.Errorf("create sandbox directory: %w", err)
	}
	defer os.RemoveAll(dir)

	proxySource := GenerateProxySource(descriptors, r.GatewayHost, r.GatewayPort)
	if err := os.WriteFile(filepath.Join(dir, ProxyFilename), []byte(proxySource), 0o644); err != nil {
		return Result{}, fmt.Errorf("write proxy source: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main.py"), []byte(processed), 0o644); err != nil {
		return Result{}, fmt.Errorf("write code: %w", err)
	}

	if mode == ModeInteractive {
		return r.runInteractive(ctx, dir)
	}
	return r.runCaptured(ctx, dir)
}

func (r *Runner) runCaptured(ctx context.Context, dir string) (Result, error) {
	timeout := r.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, launcherBinary, "run", "main.py")
	cmd.Dir = dir

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.Logger.Info("executing sandboxed code")
	err := cmd.Run()

	result := Result{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: filterInstallerNoise(stderr.String()),
	}

	if exitErr, ok := err.(*exec.ExitError); ok {
		result.Error = fmt.Sprintf("Script exited with code %d.", exitErr.ExitCode())
	} else if err != nil {
		result.Error = err.Error()
	}

	r.Logger.Info("sandboxed code execution finished")
	return result, nil
}

func (r *Runner) runInteractive(ctx context.Context, dir string) (Result, error) {
	cmd := exec.CommandContext(ctx, launcherBinary, "run", "main.py")
	cmd.Dir = dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	exitCode := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	}

	result := Result{
		Stdout: "Interactive session completed.",
		Stderr: fmt.Sprintf("Process exited with return code %d.", exitCode),
	}
	if exitCode != 0 {
		result.Error = fmt.Sprintf("Script exited with code %d.", exitCode)
	}
	return result, nil
}

func filterInstallerNoise(stderr string) string {
	lines := strings.Split(stderr, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		noisy := false
		for _, prefix := range installerNoisePrefixes {
			if strings.HasPrefix(line, prefix) {
				noisy = true
				break
			}
		}
		if !noisy {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
