package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/baselib/internal/mcp/tools"
	"github.com/usestring/baselib/pkg/types"
)

// Resource URI scheme: baselib://
// Supported URIs:
//   baselib://operations
//   baselib://schema/{family}/{operation}

const resourceScheme = "baselib://"

// registerResources registers resources, resource templates and their handlers.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(&sdkmcp.Resource{
		URI:         resourceScheme + "operations",
		Name:        "Validated Operations",
		Description: "Every validated driver operation with its arguments and schema path. The list_operations tool returns the same data with filters.",
		MIMEType:    tools.MimeJSON,
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"assistant"},
			Priority: 0.5,
		},
	}, s.handleResourceOperations)

	s.mcpServer.AddResourceTemplate(&sdkmcp.ResourceTemplate{
		URITemplate: resourceScheme + "schema/{family}/{operation}",
		Name:        "Operation Schema",
		Description: "Schema document of a driver operation in the default category, with its file:// identifier assigned.",
		MIMEType:    tools.MimeJSON,
		Annotations: &sdkmcp.Annotations{
			Audience: []sdkmcp.Role{"assistant"},
			Priority: 0.8,
		},
	}, s.handleResourceSchema)
}

// Resource handlers

func (s *Server) handleResourceOperations(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	ops, err := s.deps.App.Operations()
	if err != nil {
		return nil, tools.WrapError(err)
	}
	return toResourceResult(req.Params.URI, ops)
}

func (s *Server) handleResourceSchema(ctx context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	params, err := parseResourceURI(req.Params.URI)
	if err != nil {
		return nil, err
	}

	path, err := s.deps.App.Store.Resolve(params["family"], "", params["operation"])
	if err != nil {
		return nil, tools.WrapError(err)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, sdkmcp.ResourceNotFoundError(req.Params.URI)
	}

	doc, err := s.deps.App.Loader.Load(path)
	if err != nil {
		return nil, tools.WrapError(err)
	}
	return toResourceResult(req.Params.URI, doc.Raw)
}

// Helper functions

// parseResourceURI extracts parameters from a baselib:// URI.
func parseResourceURI(uri string) (map[string]string, error) {
	if !strings.HasPrefix(uri, resourceScheme) {
		return nil, tools.ErrInvalidInput("invalid URI scheme: expected " + resourceScheme)
	}

	path := strings.TrimPrefix(uri, resourceScheme)
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		return nil, tools.ErrInvalidInput("empty resource path")
	}

	params := make(map[string]string)
	resourceType := parts[0]

	switch resourceType {
	case "schema":
		if len(parts) != 3 || parts[1] == "" {
			return nil, tools.ErrInvalidInput("schema URI requires family and operation")
		}
		if !types.IsOperation(parts[2]) {
			return nil, tools.ErrNotFound("operation", parts[2])
		}
		params["family"] = parts[1]
		params["operation"] = parts[2]

	default:
		return nil, tools.ErrInvalidInput(fmt.Sprintf("unknown resource type: %s", resourceType))
	}

	return params, nil
}

// toResourceResult serializes content to a ReadResourceResult.
func toResourceResult(uri string, content any) (*sdkmcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serializing resource: %w", err)
	}

	return &sdkmcp.ReadResourceResult{
		Contents: []*sdkmcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: tools.MimeJSON,
				Text:     string(data),
			},
		},
	}, nil
}
