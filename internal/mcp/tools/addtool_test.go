package tools

import (
	"context"
	"encoding/json"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"

	"github.com/usestring/baselib/internal/app"
	"github.com/usestring/baselib/pkg/types"
)

func TestCheckOutputSchema_toolOutputs(t *testing.T) {
	assert.NoError(t, CheckOutputSchema[ValidateParametersOutput]())
	assert.NoError(t, CheckOutputSchema[ResolveSchemaOutput]())
	assert.NoError(t, CheckOutputSchema[ListOperationsOutput]())
	assert.NoError(t, CheckOutputSchema[*ListDriversOutput]())
	assert.NoError(t, CheckOutputSchema[any]())
}

func TestCheckOutput_populatedToolOutputs(t *testing.T) {
	tests := []struct {
		name string
		out  any
	}{
		{
			name: "invalid parameters",
			out: ValidateParametersOutput{
				Family:     "hypervisors/hmc",
				Operation:  "stop",
				Validator:  "jsonschema",
				SchemaPath: "/schemas/hmc/actions/stop.json",
				Result: types.ValidationResult{
					SchemaID: "file:///schemas/hmc/actions/stop.json",
					Errors:   []string{"at '': missing property 'cpc_name'"},
				},
				Parameters: map[string]any{"timeout": 60.0, "boot_params": map[string]any{"boot_method": "dasd"}},
			},
		},
		{
			name: "scalar parameters",
			out:  ValidateParametersOutput{Family: "kvm", Operation: "start", Parameters: []any{"not", "a", "mapping"}},
		},
		{
			name: "resolved schema",
			out: &ResolveSchemaOutput{
				SchemaPath: "/schemas/linux/actions/hotplug.json",
				Exists:     true,
				ID:         "file:///schemas/linux/actions/hotplug.json",
				IDKeyword:  "id",
				Draft:      "http://json-schema.org/draft-04/schema#",
				Schema:     map[string]any{"type": "object", "additionalProperties": false},
			},
		},
		{
			name: "operations",
			out: ListOperationsOutput{
				Operations: []app.OperationInfo{{
					Kind:       "hypervisor",
					Driver:     "kvm",
					Family:     "hypervisors/kvm",
					Operation:  "reboot",
					Args:       []string{"guest_name", "parameters"},
					SchemaPath: "/schemas/kvm/actions/reboot.json",
					Present:    true,
				}},
				Total: 1,
			},
		},
		{
			name: "drivers",
			out: ListDriversOutput{
				Hypervisors: []string{"hmc", "kvm", "zvm"},
				Guests:      []string{"cms", "linux"},
				Validators:  []string{"jsonschema", "openapi3"},
				SchemasDir:  "/schemas",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, CheckOutput(tt.out))
		})
	}
}

func TestCheckOutput_rejects(t *testing.T) {
	type nilArgs struct {
		Args []string `json:"args"`
	}
	err := CheckOutputSchema[nilArgs]()
	assert.ErrorContains(t, err, "omitzero")

	type rawSchema struct {
		Resolved struct {
			Schema json.RawMessage `json:"schema,omitempty"`
		} `json:"resolved"`
	}
	err = CheckOutputSchema[rawSchema]()
	assert.ErrorContains(t, err, "Resolved.Schema")

	type rawParameters struct {
		Parameters []json.RawMessage `json:"parameters,omitzero"`
	}
	err = CheckOutput(rawParameters{Parameters: []json.RawMessage{json.RawMessage(`{}`)}})
	assert.ErrorContains(t, err, "Parameters.[]")
}

func TestAddTool_panicsOnBadOutput(t *testing.T) {
	type nilArgs struct {
		Args []string `json:"args"`
	}
	assert.PanicsWithValue(t,
		`tool "bad": `+CheckOutputSchema[nilArgs]().Error(),
		func() {
			AddTool(nil, &sdkmcp.Tool{Name: "bad"}, func(ctx context.Context, req *sdkmcp.CallToolRequest, in struct{}) (*sdkmcp.CallToolResult, nilArgs, error) {
				return nil, nilArgs{}, nil
			})
		})
}
