package evaluators

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spboyer/gauntlet/internal/models"
)

// defaultExpectedField is the dataset field evaluators compare against when
// no field is configured.
const defaultExpectedField = "expectedOutput"

// ExactMatchArgs holds the parameters for an exact-match evaluator.
type ExactMatchArgs struct {
	// Field names the dataset field holding the expected output. Defaults to
	// "expectedOutput".
	Field string `mapstructure:"field"`
	// IgnoreCase compares case-insensitively when true.
	IgnoreCase bool `mapstructure:"ignore_case"`
}

// exactMatchEvaluator scores 1 when the agent output equals the expected
// field (after trimming surrounding whitespace), 0 otherwise.
type exactMatchEvaluator struct {
	name       string
	field      string
	ignoreCase bool
}

func newExactMatchEvaluator(cfg models.EvaluatorConfig) (Evaluator, error) {
	var args ExactMatchArgs
	if err := mapstructure.Decode(cfg.Parameters, &args); err != nil {
		return nil, fmt.Errorf("exact_match evaluator %q: %w", cfg.Name, err)
	}
	if args.Field == "" {
		args.Field = defaultExpectedField
	}

	return &exactMatchEvaluator{
		name:       cfg.Name,
		field:      args.Field,
		ignoreCase: args.IgnoreCase,
	}, nil
}

func (e *exactMatchEvaluator) Name() string               { return e.name }
func (e *exactMatchEvaluator) Kind() models.EvaluatorKind { return models.EvaluatorKindExactMatch }

func (e *exactMatchEvaluator) Evaluate(ctx context.Context, ec *Context) (*models.EvalResult, error) {
	expected := strings.TrimSpace(ec.Item.Field(e.field))
	actual := strings.TrimSpace(ec.Output.Output)

	if e.ignoreCase {
		expected = strings.ToLower(expected)
		actual = strings.ToLower(actual)
	}

	if actual == expected {
		return &models.EvalResult{Score: 1, Reason: "output matches expected value"}, nil
	}
	return &models.EvalResult{
		Score:  0,
		Reason: fmt.Sprintf("output %q does not match expected %q", actual, expected),
	}, nil
}
