// Package mcpsrv provides an extensible MCP server for baselib.
//
// This package exposes a high-level API for creating and running an MCP server
// with the builtin parameter validation tools and schema resources. Users can
// extend the server with custom tools, prompts, and resources using functional
// options.
//
// # Basic Usage
//
// Create a server with configuration from the environment:
//
//	server, err := mcpsrv.NewServer()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer server.Close()
//	server.Run(ctx)
//
// # Extension
//
// Custom tools reach the validation gate and the driver factories through
// Deps:
//
//	server, err := mcpsrv.NewServer(
//	    mcpsrv.WithSchemasDir("/etc/baselib/schemas"),
//	    mcpsrv.WithDepsTool(
//	        &mcp.Tool{Name: "check_start", Description: "Check KVM start parameters"},
//	        func(d *mcpsrv.Deps) func(ctx context.Context, req *mcp.CallToolRequest, in MyInput) (*mcp.CallToolResult, MyOutput, error) {
//	            return func(ctx context.Context, req *mcp.CallToolRequest, in MyInput) (*mcp.CallToolResult, MyOutput, error) {
//	                err := d.Gate.Validate(ctx, gate.Family{Name: "kvm"}, "start", in.Parameters)
//	                return nil, MyOutput{Valid: err == nil}, nil
//	            }
//	        },
//	    ),
//	)
//
// # Configuration
//
// Configure logging and validation:
//
//	server, err := mcpsrv.NewServer(
//	    mcpsrv.WithConfigFile("/etc/baselib/config.yaml"),
//	    mcpsrv.WithDefaultValidator("openapi3"),
//	    mcpsrv.WithLogLevel("debug"),
//	    mcpsrv.WithLogFile("/var/log/baselib.log"),
//	)
package mcpsrv
