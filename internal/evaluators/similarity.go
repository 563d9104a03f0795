package evaluators

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spboyer/gauntlet/internal/models"
)

// SimilarityArgs holds the parameters for a similarity evaluator.
type SimilarityArgs struct {
	// Field names the dataset field holding the expected output. Defaults to
	// "expectedOutput".
	Field string `mapstructure:"field"`
}

// similarityEvaluator scores lexical overlap between the agent output and the
// expected field using the Sørensen–Dice coefficient over lowercased word
// tokens. It is the in-scope stand-in for semantic similarity; embedding
// computation lives outside this module.
type similarityEvaluator struct {
	name  string
	field string
}

func newSimilarityEvaluator(cfg models.EvaluatorConfig) (Evaluator, error) {
	var args SimilarityArgs
	if err := mapstructure.Decode(cfg.Parameters, &args); err != nil {
		return nil, fmt.Errorf("similarity evaluator %q: %w", cfg.Name, err)
	}
	if args.Field == "" {
		args.Field = defaultExpectedField
	}

	return &similarityEvaluator{name: cfg.Name, field: args.Field}, nil
}

func (e *similarityEvaluator) Name() string               { return e.name }
func (e *similarityEvaluator) Kind() models.EvaluatorKind { return models.EvaluatorKindSimilarity }

func (e *similarityEvaluator) Evaluate(ctx context.Context, ec *Context) (*models.EvalResult, error) {
	expected := tokenSet(ec.Item.Field(e.field))
	actual := tokenSet(ec.Output.Output)

	score := diceCoefficient(expected, actual)
	return &models.EvalResult{
		Score:  score,
		Reason: fmt.Sprintf("token overlap %.2f against field %q", score, e.field),
	}, nil
}

func tokenSet(s string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

// diceCoefficient returns 2|A∩B| / (|A|+|B|). Two empty sets are identical.
func diceCoefficient(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	common := 0
	for tok := range a {
		if b[tok] {
			common++
		}
	}
	return 2 * float64(common) / float64(len(a)+len(b))
}
