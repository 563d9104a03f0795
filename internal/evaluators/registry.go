package evaluators

import (
	"context"
	"fmt"

	"github.com/spboyer/gauntlet/internal/models"
)

// Factory builds an evaluator from its configuration.
type Factory func(cfg models.EvaluatorConfig) (Evaluator, error)

// Registry resolves evaluator kinds to factories. It replaces ambient global
// registration: construct one, register any plugin kinds, and hand it to the
// runner. Registration is last-write-wins per kind and must finish before the
// run starts; the registry is not safe for concurrent mutation afterwards.
type Registry struct {
	factories map[models.EvaluatorKind]Factory
	judge     JudgeClient
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithJudgeClient supplies the model client used by judge-kind evaluators.
func WithJudgeClient(client JudgeClient) RegistryOption {
	return func(r *Registry) {
		r.judge = client
	}
}

// NewRegistry creates a registry with every built-in kind pre-registered.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		factories: make(map[models.EvaluatorKind]Factory),
	}
	for _, o := range opts {
		o(r)
	}

	r.Register(models.EvaluatorKindExactMatch, newExactMatchEvaluator)
	r.Register(models.EvaluatorKindSimilarity, newSimilarityEvaluator)
	r.Register(models.EvaluatorKindJSONSchema, newJSONSchemaEvaluator)
	r.Register(models.EvaluatorKindFunction, newFunctionEvaluator)
	r.Register(models.EvaluatorKindJudge, func(cfg models.EvaluatorConfig) (Evaluator, error) {
		return newJudgeEvaluator(cfg, r.judge)
	})

	return r
}

// Register adds or replaces the factory for a kind.
func (r *Registry) Register(kind models.EvaluatorKind, factory Factory) {
	r.factories[kind] = factory
}

// Evaluate resolves the config's kind, builds the evaluator, and scores the
// output. Every failure mode (unknown kind, factory error, evaluator error,
// panic, or a score outside [0,1]) degrades to a zero-score result with a
// diagnostic reason. Evaluator failure never aborts the run.
func (r *Registry) Evaluate(ctx context.Context, cfg models.EvaluatorConfig, ec *Context) (result models.EvalResult) {
	defer func() {
		if p := recover(); p != nil {
			result = evaluationError(fmt.Errorf("panic: %v", p))
		}
	}()

	kind := cfg.EffectiveKind()
	factory, ok := r.factories[kind]
	if !ok {
		return evaluationError(fmt.Errorf("unknown evaluator kind %q", kind))
	}

	ev, err := factory(cfg)
	if err != nil {
		return evaluationError(err)
	}

	res, err := ev.Evaluate(ctx, ec)
	if err != nil {
		return evaluationError(err)
	}
	if res == nil {
		return evaluationError(fmt.Errorf("evaluator %q returned no result", cfg.Name))
	}
	if res.Score < 0 || res.Score > 1 {
		return evaluationError(fmt.Errorf("evaluator %q returned score %g outside [0,1]", cfg.Name, res.Score))
	}

	return *res
}

func evaluationError(err error) models.EvalResult {
	return models.EvalResult{
		Score:  0,
		Reason: fmt.Sprintf("Evaluation error: %v", err),
	}
}
