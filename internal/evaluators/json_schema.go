package evaluators

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-viper/mapstructure/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/spboyer/gauntlet/internal/models"
)

// JSONSchemaArgs holds the parameters for a json_schema evaluator.
type JSONSchemaArgs struct {
	// Schema is an inline JSON schema object used for validation.
	Schema map[string]any `mapstructure:"schema"`
	// SchemaFile is a path to a JSON schema file, used when Schema is unset.
	SchemaFile string `mapstructure:"schema_file"`
}

// jsonSchemaEvaluator scores 1 when the agent's structured output (or its
// textual output parsed as JSON) validates against the schema, 0 otherwise.
type jsonSchemaEvaluator struct {
	name       string
	schema     map[string]any
	schemaFile string
}

func newJSONSchemaEvaluator(cfg models.EvaluatorConfig) (Evaluator, error) {
	var args JSONSchemaArgs
	if err := mapstructure.Decode(cfg.Parameters, &args); err != nil {
		return nil, fmt.Errorf("json_schema evaluator %q: %w", cfg.Name, err)
	}
	if args.Schema == nil && args.SchemaFile == "" {
		return nil, fmt.Errorf("json_schema evaluator %q must have either 'schema' or 'schema_file'", cfg.Name)
	}

	return &jsonSchemaEvaluator{
		name:       cfg.Name,
		schema:     args.Schema,
		schemaFile: args.SchemaFile,
	}, nil
}

func (e *jsonSchemaEvaluator) Name() string               { return e.name }
func (e *jsonSchemaEvaluator) Kind() models.EvaluatorKind { return models.EvaluatorKindJSONSchema }

func (e *jsonSchemaEvaluator) Evaluate(ctx context.Context, ec *Context) (*models.EvalResult, error) {
	value := ec.Output.Data
	if value == nil {
		if err := json.Unmarshal([]byte(ec.Output.Output), &value); err != nil {
			return &models.EvalResult{
				Score:  0,
				Reason: fmt.Sprintf("output is not valid JSON: %v", err),
			}, nil
		}
	}

	schemaMap, err := e.resolveSchema()
	if err != nil {
		return nil, err
	}

	if verr := validateAgainstSchema(value, schemaMap); verr != nil {
		return &models.EvalResult{
			Score:  0,
			Reason: fmt.Sprintf("schema validation failed: %v", verr),
		}, nil
	}

	return &models.EvalResult{Score: 1, Reason: "output matches JSON schema"}, nil
}

// resolveSchema returns the schema map, loading from file if necessary.
func (e *jsonSchemaEvaluator) resolveSchema() (map[string]any, error) {
	if e.schema != nil {
		return e.schema, nil
	}

	data, err := os.ReadFile(e.schemaFile)
	if err != nil {
		return nil, fmt.Errorf("reading schema file %q: %w", e.schemaFile, err)
	}

	var schemaMap map[string]any
	if err := json.Unmarshal(data, &schemaMap); err != nil {
		return nil, fmt.Errorf("parsing schema file %q: %w", e.schemaFile, err)
	}
	return schemaMap, nil
}

// validateAgainstSchema compiles the schema map and validates value against
// it. A non-nil return is the validation failure, suitable for a reason
// string; compile problems come back as errors from the evaluator instead.
func validateAgainstSchema(value any, schemaMap map[string]any) error {
	schemaJSON, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("serializing schema: %w", err)
	}

	var schemaValue any
	if err := json.Unmarshal(schemaJSON, &schemaValue); err != nil {
		return fmt.Errorf("parsing schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", schemaValue); err != nil {
		return fmt.Errorf("adding schema resource: %w", err)
	}

	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compiling JSON schema: %w", err)
	}

	return schema.Validate(value)
}
