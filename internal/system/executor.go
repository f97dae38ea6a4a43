package system

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ExecError carries the output of a failed command so callers can
// surface what the tool printed.
type ExecError struct {
	Name   string
	Args   []string
	Output string
	Err    error
}

func (e *ExecError) Error() string {
	msg := strings.TrimSpace(e.Output)
	if msg == "" {
		return fmt.Sprintf("%s %s: %v", e.Name, firstArg(e.Args), e.Err)
	}
	return fmt.Sprintf("%s %s: %v: %s", e.Name, firstArg(e.Args), e.Err, msg)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// osExecutor implements CommandExecutor using real OS operations.
type osExecutor struct{}

func (e *osExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, &ExecError{Name: name, Args: args, Output: string(out), Err: err}
	}
	return out, nil
}

func (e *osExecutor) ExecuteInteractive(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
