package tools

import (
	"context"
	"os"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/baselib/internal/app"
)

// ResolveSchemaInput is the input for baselib_resolve_schema.
type ResolveSchemaInput struct {
	Family    string `json:"family" jsonschema:"required,Driver family, e.g. hmc or hypervisors/hmc"`
	Operation string `json:"operation" jsonschema:"required,Operation name: init, start, stop, hotplug or reboot"`
	Category  string `json:"category,omitempty" jsonschema:"Schema subdirectory (default: configured category, actions)"`
}

// ResolveSchemaOutput is the output for baselib_resolve_schema.
type ResolveSchemaOutput struct {
	SchemaPath string `json:"schema_path"`
	Exists     bool   `json:"exists"`
	ID         string `json:"id,omitempty"`
	IDKeyword  string `json:"id_keyword,omitempty"`
	Draft      string `json:"draft,omitempty"`
	Schema     any    `json:"schema,omitempty"`
}

// ToolResolveSchema resolves the schema file of an operation and returns the
// document with its assigned identifier.
func ToolResolveSchema(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input ResolveSchemaInput) (*sdkmcp.CallToolResult, ResolveSchemaOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input ResolveSchemaInput) (*sdkmcp.CallToolResult, ResolveSchemaOutput, error) {
		if input.Family == "" {
			return nil, ResolveSchemaOutput{}, ErrInvalidInput("family is required")
		}
		if input.Operation == "" {
			return nil, ResolveSchemaOutput{}, ErrInvalidInput("operation is required")
		}

		path, err := d.App.Store.Resolve(input.Family, input.Category, input.Operation)
		if err != nil {
			return nil, ResolveSchemaOutput{}, WrapError(err)
		}
		out := ResolveSchemaOutput{SchemaPath: path}
		if _, err := os.Stat(path); err != nil {
			return nil, out, nil
		}

		doc, err := d.App.Loader.Load(path)
		if err != nil {
			return nil, ResolveSchemaOutput{}, WrapError(err)
		}
		out.Exists = true
		out.ID = doc.ID
		out.IDKeyword = doc.IDKeyword()
		out.Draft = doc.Draft
		out.Schema = doc.Raw
		return nil, out, nil
	}
}

// ListOperationsInput is the input for baselib_list_operations.
type ListOperationsInput struct {
	Kind   string `json:"kind,omitempty" jsonschema:"Only list drivers of this kind: hypervisor or guest"`
	Driver string `json:"driver,omitempty" jsonschema:"Only list operations of this driver id"`
}

// ListOperationsOutput is the output for baselib_list_operations.
type ListOperationsOutput struct {
	Operations []app.OperationInfo `json:"operations,omitzero"`
	Total      int                 `json:"total"`
	Missing    int                 `json:"missing"`
}

// ToolListOperations lists the validated operations of every registered
// driver and whether their schema files are present.
func ToolListOperations(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input ListOperationsInput) (*sdkmcp.CallToolResult, ListOperationsOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input ListOperationsInput) (*sdkmcp.CallToolResult, ListOperationsOutput, error) {
		switch input.Kind {
		case "", app.KindHypervisor, app.KindGuest:
		default:
			return nil, ListOperationsOutput{}, ErrInvalidInput("kind must be hypervisor or guest")
		}

		ops, err := d.App.Operations()
		if err != nil {
			return nil, ListOperationsOutput{}, WrapError(err)
		}

		var out ListOperationsOutput
		for _, op := range ops {
			if input.Kind != "" && op.Kind != input.Kind {
				continue
			}
			if input.Driver != "" && op.Driver != input.Driver {
				continue
			}
			out.Operations = append(out.Operations, op)
			if !op.Present {
				out.Missing++
			}
		}
		out.Total = len(out.Operations)
		return nil, out, nil
	}
}
