package evaluators

import (
	"context"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spboyer/gauntlet/internal/models"
)

// JudgeRequest is what a judge evaluator hands to its model client. Prompt
// construction beyond passing the configured template through is the
// client's concern.
type JudgeRequest struct {
	// Prompt is the configured scoring prompt, passed through verbatim.
	Prompt string
	// Model is the model override for this evaluator, empty for the client's
	// default.
	Model string
	// Item is the dataset item under evaluation.
	Item models.DatasetItem
	// Output is the agent output being scored.
	Output models.AgentOutput
}

// JudgeClient delegates scoring to an external model. Implementations live
// outside this module; the harness only defines the boundary.
type JudgeClient interface {
	Judge(ctx context.Context, req JudgeRequest) (*models.EvalResult, error)
}

// JudgeArgs holds the parameters for a judge evaluator.
type JudgeArgs struct {
	Prompt string `mapstructure:"prompt"`
	Model  string `mapstructure:"model"`
}

// judgeEvaluator forwards the item and output to a JudgeClient with the
// configured prompt.
type judgeEvaluator struct {
	name   string
	prompt string
	model  string
	client JudgeClient
}

func newJudgeEvaluator(cfg models.EvaluatorConfig, client JudgeClient) (Evaluator, error) {
	var args JudgeArgs
	if err := mapstructure.Decode(cfg.Parameters, &args); err != nil {
		return nil, fmt.Errorf("judge evaluator %q: %w", cfg.Name, err)
	}

	prompt := args.Prompt
	if prompt == "" {
		prompt = cfg.Prompt
	}
	if prompt == "" {
		return nil, fmt.Errorf("judge evaluator %q has no prompt", cfg.Name)
	}

	model := args.Model
	if model == "" {
		model = cfg.Model
	}

	if client == nil {
		return nil, fmt.Errorf("judge evaluator %q: no judge client configured", cfg.Name)
	}

	return &judgeEvaluator{
		name:   cfg.Name,
		prompt: prompt,
		model:  model,
		client: client,
	}, nil
}

func (e *judgeEvaluator) Name() string               { return e.name }
func (e *judgeEvaluator) Kind() models.EvaluatorKind { return models.EvaluatorKindJudge }

func (e *judgeEvaluator) Evaluate(ctx context.Context, ec *Context) (*models.EvalResult, error) {
	return e.client.Judge(ctx, JudgeRequest{
		Prompt: e.prompt,
		Model:  e.model,
		Item:   ec.Item,
		Output: ec.Output,
	})
}
