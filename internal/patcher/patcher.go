// Package patcher hands accepted fixes to the external source rewriter.
package patcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"nullfix/internal/fix"
	"nullfix/internal/location"
)

// Patcher applies fixes to source files. Each fix gets its own Result so a
// failure on one file leaves the others applied.
type Patcher interface {
	Apply(ctx context.Context, fixes []fix.Fix, keepStyle bool) []Result
}

// Result is the outcome of one fix. Err is nil when the fix was applied.
type Result struct {
	Fix fix.Fix
	Err error
}

// ErrNoSourcePath is returned for a fix whose class cannot be mapped to a
// source file.
var ErrNoSourcePath = errors.New("no source file for class")

// ApplicationError reports a fix that could not be applied.
type ApplicationError struct {
	Fix fix.Fix
	Err error
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("failed to apply %s: %v", e.Fix, e.Err)
}

func (e *ApplicationError) Unwrap() error { return e.Err }

// Verifier checks that a location is still declared in the sources.
type Verifier interface {
	Verify(loc location.Location) error
}

// Resolver finds the source file declaring a class.
type Resolver interface {
	ResolvePath(class string) (string, bool)
}

// Annotations are the fully qualified annotation names written into the
// sources.
type Annotations struct {
	Nullable string `json:"nullable"`
	Nonnull  string `json:"nonnull"`
}

// request is written to the patch command's stdin, one per work list.
type request struct {
	WorkList
	KeepStyle   bool        `json:"keep_style"`
	Annotations Annotations `json:"annotations"`
}

// Exec runs a shell command once per work list. The command receives the
// work list as JSON on stdin and must rewrite the file atomically.
type Exec struct {
	Command     string
	Dir         string
	Timeout     time.Duration
	Annotations Annotations
	Verifier    Verifier
	Resolver    Resolver
}

func (p *Exec) Apply(ctx context.Context, fixes []fix.Fix, keepStyle bool) []Result {
	results := make([]Result, 0, len(fixes))
	located := make([]fix.Fix, 0, len(fixes))
	for _, f := range fixes {
		f, err := p.locate(f)
		if err != nil {
			results = append(results, Result{Fix: f, Err: &ApplicationError{Fix: f, Err: err}})
			continue
		}
		located = append(located, f)
	}

	for _, wl := range BuildWorkLists(located) {
		var ready []fix.Fix
		for _, f := range wl.Fixes {
			if p.Verifier != nil {
				if err := p.Verifier.Verify(f.Location); err != nil {
					results = append(results, Result{Fix: f, Err: &ApplicationError{Fix: f, Err: err}})
					continue
				}
			}
			ready = append(ready, f)
		}
		if len(ready) == 0 {
			continue
		}

		err := p.run(ctx, request{
			WorkList:    WorkList{Path: wl.Path, Fixes: ready},
			KeepStyle:   keepStyle,
			Annotations: p.Annotations,
		})
		for _, f := range ready {
			r := Result{Fix: f}
			if err != nil {
				r.Err = &ApplicationError{Fix: f, Err: err}
			}
			results = append(results, r)
		}
	}
	return results
}

// locate fills in the source path of a fix that has none. Work lists are
// per file, so a fix without a path cannot be patched.
func (p *Exec) locate(f fix.Fix) (fix.Fix, error) {
	if f.Location.Path != "" {
		return f, nil
	}
	if p.Resolver != nil {
		if path, ok := p.Resolver.ResolvePath(f.Location.Class); ok {
			f.Location.Path = path
			return f, nil
		}
	}
	return f, fmt.Errorf("%w: %s", ErrNoSourcePath, f.Location.Class)
}

func (p *Exec) run(ctx context.Context, req request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode work list: %w", err)
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", p.Command)
	cmd.Dir = p.Dir
	cmd.WaitDelay = 2 * time.Second
	cmd.Env = os.Environ()
	cmd.Stdin = bytes.NewReader(payload)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("patch command on %s: %w: %s", req.Path, err, bytes.TrimSpace(out.Bytes()))
	}
	return nil
}

// Failed returns the results that carry an error.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
