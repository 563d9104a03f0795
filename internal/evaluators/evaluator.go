// Package evaluators defines the scoring contract and its built-in
// implementations. An evaluator maps an (item, agent output) pair to a score
// in [0,1] plus an optional rationale. Dispatch goes through an explicit
// Registry so there is no process-wide mutable state; additional kinds can be
// registered by name before a run starts.
package evaluators

import (
	"context"

	"github.com/spboyer/gauntlet/internal/models"
)

// Context carries everything an evaluator may inspect for one (item, run)
// pair.
type Context struct {
	// Item is the dataset item the agent was invoked with.
	Item models.DatasetItem
	// Index is the item's position in the dataset.
	Index int
	// Output is the agent's output for this run.
	Output models.AgentOutput
	// Metadata is the agent-reported metadata, aliased from Output for
	// convenience.
	Metadata map[string]any
}

// Evaluator scores a single agent output.
type Evaluator interface {
	// Name returns the evaluator name used to index results.
	Name() string

	// Kind returns the evaluator kind.
	Kind() models.EvaluatorKind

	// Evaluate scores the output. Score must land in [0,1]; anything outside
	// that range is a contract violation handled by the dispatcher.
	Evaluate(ctx context.Context, ec *Context) (*models.EvalResult, error)
}

// Func is the signature for function-kind evaluators supplied directly as Go
// code rather than declarative configuration.
type Func func(ctx context.Context, ec *Context) (*models.EvalResult, error)
