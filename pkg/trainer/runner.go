package trainer

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Runner executes a trainer command and blocks until it exits
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs the trainer as a child process. Its output goes straight to the
// configured writers and is never captured; there is no timeout.
type ExecRunner struct {
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner returns an ExecRunner inheriting the current stdout and stderr
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run starts the process and waits for it
func (r *ExecRunner) Run(ctx context.Context, cmd Command) error {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = r.Dir
	c.Stdout = r.Stdout
	c.Stderr = r.Stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("trainer exited: %w", err)
	}
	return nil
}

// DryRunner writes each command line instead of running it
type DryRunner struct {
	Out io.Writer
}

// Run prints the command
func (r DryRunner) Run(_ context.Context, cmd Command) error {
	out := r.Out
	if out == nil {
		out = os.Stdout
	}
	_, err := fmt.Fprintln(out, cmd.String())
	return err
}
