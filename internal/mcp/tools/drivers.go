package tools

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ListDriversInput is the input for baselib_list_drivers.
type ListDriversInput struct{}

// ListDriversOutput is the output for baselib_list_drivers.
type ListDriversOutput struct {
	Hypervisors      []string `json:"hypervisors,omitzero"`
	Guests           []string `json:"guests,omitzero"`
	Validators       []string `json:"validators,omitzero"`
	DefaultValidator string   `json:"default_validator,omitempty"`
	SchemasDir       string   `json:"schemas_dir"`
}

// ToolListDrivers lists the supported driver ids and validator engines.
func ToolListDrivers(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input ListDriversInput) (*sdkmcp.CallToolResult, ListDriversOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input ListDriversInput) (*sdkmcp.CallToolResult, ListDriversOutput, error) {
		return nil, ListDriversOutput{
			Hypervisors:      d.App.Hypervisors.Supported(),
			Guests:           d.App.Guests.Supported(),
			Validators:       d.App.Validators.Registry().IDs(),
			DefaultValidator: d.App.Validators.DefaultID(),
			SchemasDir:       d.App.Store.BaseDir(),
		}, nil
	}
}
