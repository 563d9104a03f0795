// Package execution provides agent-function adapters for the CLI. The core
// runner only knows the AgentFunc boundary; this package supplies a concrete
// implementation that shells out to an external program per item.
package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spboyer/gauntlet/internal/models"
	"github.com/spboyer/gauntlet/internal/orchestration"
)

// programRequest is the JSON document written to the agent program's stdin,
// one invocation per (item, run) pair.
type programRequest struct {
	Item     models.DatasetItem `json:"item"`
	Index    int                `json:"index"`
	RunIndex int                `json:"run_index"`
}

// ProgramAgent runs an external program as the agent function. The item
// context arrives as JSON on stdin; stdout is the agent output. If stdout
// parses as a JSON object with an "output" field it is decoded as a
// structured AgentOutput, otherwise the raw text is used.
type ProgramAgent struct {
	Command string
	Args    []string
	// Env entries are appended to the parent environment.
	Env []string
}

// NewProgramAgent builds a ProgramAgent from an agent spec.
func NewProgramAgent(spec models.AgentSpec) (*ProgramAgent, error) {
	if spec.Command == "" {
		return nil, fmt.Errorf("program agent requires a command")
	}
	return &ProgramAgent{
		Command: spec.Command,
		Args:    spec.Args,
		Env:     spec.Env,
	}, nil
}

// Func adapts the agent to the runner's boundary.
func (p *ProgramAgent) Func() orchestration.AgentFunc {
	return p.invoke
}

func (p *ProgramAgent) invoke(ctx context.Context, ac orchestration.AgentContext) (models.AgentOutput, error) {
	stdin, err := json.Marshal(programRequest{
		Item:     ac.Item,
		Index:    ac.Index,
		RunIndex: ac.RunIndex,
	})
	if err != nil {
		return models.AgentOutput{}, fmt.Errorf("encoding agent request: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.Command, p.Args...)
	cmd.Stdin = bytes.NewReader(stdin)
	if len(p.Env) > 0 {
		cmd.Env = append(os.Environ(), p.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return models.AgentOutput{}, fmt.Errorf("agent program failed: %s", msg)
	}

	return parseProgramOutput(stdout.Bytes()), nil
}

// parseProgramOutput accepts either a structured JSON response or plain text.
func parseProgramOutput(raw []byte) models.AgentOutput {
	text := strings.TrimSpace(string(raw))

	if strings.HasPrefix(text, "{") {
		var out models.AgentOutput
		if err := json.Unmarshal([]byte(text), &out); err == nil && (out.Output != "" || out.Data != nil || out.Metadata != nil) {
			return out
		}
	}

	return models.AgentOutput{Output: text}
}
