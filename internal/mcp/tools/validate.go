package tools

import (
	"context"
	"path/filepath"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/baselib/internal/app"
	"github.com/usestring/baselib/internal/query"
	"github.com/usestring/baselib/pkg/errors"
	"github.com/usestring/baselib/pkg/gate"
	"github.com/usestring/baselib/pkg/schema"
	"github.com/usestring/baselib/pkg/types"
)

// ValidateParametersInput is the input for baselib_validate_parameters.
type ValidateParametersInput struct {
	Family     string `json:"family" jsonschema:"required,Driver family, e.g. kvm or hypervisors/kvm (only the last segment selects the schema directory)"`
	Operation  string `json:"operation" jsonschema:"required,Operation name: init, start, stop, hotplug or reboot"`
	Parameters any    `json:"parameters,omitempty" jsonschema:"Parameters mapping to validate (default: empty mapping)"`
	Document   string `json:"document,omitempty" jsonschema:"JSON or YAML document to select the parameters from, instead of parameters"`
	Query      string `json:"query,omitempty" jsonschema:"JQ expression selecting the parameters from document or parameters (default: .)"`
	Validator  string `json:"validator,omitempty" jsonschema:"Validator engine: jsonschema or openapi3 (default: configured default)"`
}

// ValidateParametersOutput is the output for baselib_validate_parameters.
type ValidateParametersOutput struct {
	Family     string                 `json:"family"`
	Operation  string                 `json:"operation"`
	Validator  string                 `json:"validator"`
	SchemaPath string                 `json:"schema_path"`
	Result     types.ValidationResult `json:"result"`
	Parameters any                    `json:"parameters,omitempty"`
}

// ToolValidateParameters checks a parameters mapping against the schema of a
// driver operation. Schema violations are reported in the output; missing
// schemas, malformed schemas and unknown validators are tool errors.
func ToolValidateParameters(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input ValidateParametersInput) (*sdkmcp.CallToolResult, ValidateParametersOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input ValidateParametersInput) (*sdkmcp.CallToolResult, ValidateParametersOutput, error) {
		if input.Family == "" {
			return nil, ValidateParametersOutput{}, ErrInvalidInput("family is required")
		}
		if input.Operation == "" {
			return nil, ValidateParametersOutput{}, ErrInvalidInput("operation is required")
		}
		if input.Parameters != nil && input.Document != "" {
			return nil, ValidateParametersOutput{}, ErrInvalidInput("parameters and document are mutually exclusive")
		}

		doc := input.Parameters
		if input.Document != "" {
			decoded, err := query.Decode([]byte(input.Document))
			if err != nil {
				return nil, ValidateParametersOutput{}, ErrInvalidInput(err.Error())
			}
			doc = decoded
		}
		if doc == nil {
			doc = types.Parameters{}
		}

		desc, err := d.App.Gate.Describe(gate.Family{Name: input.Family}, gate.Signature{
			Operation: input.Operation,
			Args:      []string{types.ParametersArg},
		})
		if err != nil {
			return nil, ValidateParametersOutput{}, WrapError(err)
		}

		validator := input.Validator
		if validator == "" {
			validator = d.App.Validators.DefaultID()
		}
		out := ValidateParametersOutput{
			Family:     schema.FamilySegment(input.Family),
			Operation:  input.Operation,
			Validator:  validator,
			SchemaPath: desc.SchemaPath,
		}
		if abs, err := filepath.Abs(desc.SchemaPath); err == nil {
			out.Result.SchemaID = schema.FileScheme + abs
		}

		params, err := d.App.Validate(ctx, app.ValidateRequest{
			Family:    input.Family,
			Operation: input.Operation,
			Document:  doc,
			Query:     input.Query,
			Validator: input.Validator,
		})
		out.Parameters = params
		switch {
		case err == nil:
			out.Result.Valid = true
		case errors.HasCode(err, errors.ErrCodeValidation):
			out.Result.Errors = errors.Violations(err)
			if len(out.Result.Errors) == 0 {
				out.Result.Errors = []string{err.Error()}
			}
		default:
			return nil, ValidateParametersOutput{}, WrapError(err)
		}

		return nil, out, nil
	}
}
