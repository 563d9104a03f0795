// Package hooks runs user-configured shell commands at experiment lifecycle
// points (before and after a run). Hook failure policy is per-hook: by
// default a failing hook only warns, with error_on_fail promoting it to a
// hard error.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// HookConfig defines a single hook command.
type HookConfig struct {
	Command          string `yaml:"command" json:"command"`
	WorkingDirectory string `yaml:"working_directory,omitempty" json:"working_directory,omitempty"`
	ExitCodes        []int  `yaml:"exit_codes,omitempty" json:"exit_codes,omitempty"`
	ErrorOnFail      bool   `yaml:"error_on_fail,omitempty" json:"error_on_fail,omitempty"`
}

// HooksConfig holds the experiment lifecycle hooks.
type HooksConfig struct {
	BeforeRun []HookConfig `yaml:"before_run,omitempty" json:"before_run,omitempty"`
	AfterRun  []HookConfig `yaml:"after_run,omitempty" json:"after_run,omitempty"`
}

// Runner executes hook commands at lifecycle points.
type Runner struct {
	Verbose bool
}

// Execute runs all hooks for a given lifecycle point. name identifies the
// point (e.g. "before_run") for logging and error context.
func (r *Runner) Execute(ctx context.Context, name string, hooks []HookConfig) error {
	for i, h := range hooks {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("hook %s: context canceled: %w", name, err)
		}
		if err := r.runHook(ctx, name, i, h); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runHook(ctx context.Context, name string, index int, h HookConfig) error {
	if strings.TrimSpace(h.Command) == "" {
		return fmt.Errorf("hook %s[%d]: empty command", name, index)
	}

	parts := strings.Fields(h.Command)
	//nolint:gosec // hook commands are user-configured in the experiment YAML, not untrusted input
	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)

	if h.WorkingDirectory != "" {
		cmd.Dir = h.WorkingDirectory
	}

	output, err := cmd.CombinedOutput()

	if r.Verbose && len(output) > 0 {
		fmt.Printf("[hook:%s] %s\n", name, string(output))
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode := exitErr.ExitCode()
			if !isAcceptableExit(exitCode, h.ExitCodes) {
				if h.ErrorOnFail {
					return fmt.Errorf("hook %s[%d]: command exited with code %d", name, index, exitCode)
				}
				fmt.Printf("[WARN] hook %s[%d] exited with code %d (continuing)\n", name, index, exitCode)
			}
		} else {
			// Non-exit error (e.g. command not found)
			if h.ErrorOnFail {
				return fmt.Errorf("hook %s[%d]: %w", name, index, err)
			}
			fmt.Printf("[WARN] hook %s[%d]: %v (continuing)\n", name, index, err)
		}
	}

	return nil
}

// isAcceptableExit reports whether code is acceptable. An empty allow-list
// accepts only zero.
func isAcceptableExit(code int, allowed []int) bool {
	if len(allowed) == 0 {
		return code == 0
	}
	for _, a := range allowed {
		if code == a {
			return true
		}
	}
	return false
}
