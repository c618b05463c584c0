package tools

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register registers all tools with the MCP server.
func Register(srv *sdkmcp.Server, d *Deps) {
	// Tool 1: baselib_list_drivers
	AddTool(srv, &sdkmcp.Tool{
		Name:        "baselib_list_drivers",
		Description: "List the supported hypervisor and guest driver ids, the registered schema validators and the configured default validator.",
	}, ToolListDrivers(d))

	// Tool 2: baselib_list_operations
	AddTool(srv, &sdkmcp.Tool{
		Name:        "baselib_list_operations",
		Description: "List the validated operations of every driver with their declared arguments and the schema file each resolves to. Entries with present=false have no schema file and fail at call time.",
	}, ToolListOperations(d))

	// Tool 3: baselib_resolve_schema
	AddTool(srv, &sdkmcp.Tool{
		Name:        "baselib_resolve_schema",
		Description: "Resolve the schema file of a driver operation (<schemas>/<family>/<category>/<operation>.json) and return the document with its file:// identifier. Returns exists=false when no file is present.",
	}, ToolResolveSchema(d))

	// Tool 4: baselib_validate_parameters
	AddTool(srv, &sdkmcp.Tool{
		Name:        "baselib_validate_parameters",
		Description: "Validate operation parameters against the schema of a driver operation. Pass parameters directly, or a JSON/YAML document plus a JQ query selecting them. Returns result.valid and the schema violations; a missing or malformed schema is an error.",
	}, ToolValidateParameters(d))
}
