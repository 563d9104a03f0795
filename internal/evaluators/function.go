package evaluators

import (
	"context"
	"fmt"

	"github.com/spboyer/gauntlet/internal/models"
)

// handlerParam is the parameter key a function-kind config carries its Go
// handler under.
const handlerParam = "handler"

// NewFunctionConfig builds the config for a function-kind evaluator backed by
// fn. Function evaluators are assembled in code, not YAML.
func NewFunctionConfig(name string, fn Func) models.EvaluatorConfig {
	return models.EvaluatorConfig{
		Name:       name,
		Kind:       models.EvaluatorKindFunction,
		Parameters: map[string]any{handlerParam: fn},
	}
}

// functionEvaluator delegates scoring to a user-supplied Go function.
type functionEvaluator struct {
	name string
	fn   Func
}

func newFunctionEvaluator(cfg models.EvaluatorConfig) (Evaluator, error) {
	raw, ok := cfg.Parameters[handlerParam]
	if !ok || raw == nil {
		return nil, fmt.Errorf("function evaluator %q requires a handler", cfg.Name)
	}

	var fn Func
	switch h := raw.(type) {
	case Func:
		fn = h
	case func(context.Context, *Context) (*models.EvalResult, error):
		fn = h
	default:
		return nil, fmt.Errorf("function evaluator %q handler has type %T, want evaluators.Func", cfg.Name, raw)
	}

	return &functionEvaluator{name: cfg.Name, fn: fn}, nil
}

func (e *functionEvaluator) Name() string               { return e.name }
func (e *functionEvaluator) Kind() models.EvaluatorKind { return models.EvaluatorKindFunction }

func (e *functionEvaluator) Evaluate(ctx context.Context, ec *Context) (*models.EvalResult, error) {
	return e.fn(ctx, ec)
}
