// Package checker invokes the external nullability checker that serializes
// facts for a pass.
package checker

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Checker runs one checker pass that writes its fact files into outDir.
type Checker interface {
	Run(ctx context.Context, outDir string) error
}

// InvocationError reports a failed checker run.
type InvocationError struct {
	Command string
	Attempt int
	Output  string
	Err     error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("checker %q failed (attempt %d): %v", e.Command, e.Attempt, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// Environment variables exported to the checker command.
const (
	EnvOutputDir = "NULLFIX_OUTPUT_DIR"
	EnvNullable  = "NULLFIX_NULLABLE"
)

// Exec runs a shell command in the project directory.
type Exec struct {
	Command  string
	Dir      string
	Nullable string
	Timeout  time.Duration
	Env      []string
}

func (c *Exec) Run(ctx context.Context, outDir string) error {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return &InvocationError{Command: c.Command, Attempt: 1, Err: err}
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", c.Command)
	cmd.Dir = c.Dir
	// Build tools fork children that keep the output pipes open after the
	// shell is killed.
	cmd.WaitDelay = 2 * time.Second
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Env = append(cmd.Env, EnvOutputDir+"="+outDir, EnvNullable+"="+c.Nullable)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}
		return &InvocationError{Command: c.Command, Attempt: 1, Output: tail(out.String(), 4096), Err: err}
	}
	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
