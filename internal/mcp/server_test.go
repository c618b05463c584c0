package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/baselib/internal/app"
	"github.com/usestring/baselib/internal/config"
	"github.com/usestring/baselib/internal/mcp/tools"
)

func newServer(t *testing.T, opts ...ServerOption) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.SchemasDir = filepath.Join("..", "..", "schemas")
	a, err := app.New(cfg)
	require.NoError(t, err)
	s, err := NewServer(&tools.Deps{App: a}, opts...)
	require.NoError(t, err)
	return s
}

func readRequest(uri string) *sdkmcp.ReadResourceRequest {
	return &sdkmcp.ReadResourceRequest{Params: &sdkmcp.ReadResourceParams{URI: uri}}
}

func TestNewServer_requiresApp(t *testing.T) {
	_, err := NewServer(nil)
	assert.Error(t, err)
	_, err = NewServer(&tools.Deps{})
	assert.Error(t, err)
}

func TestParseResourceURI(t *testing.T) {
	params, err := parseResourceURI("baselib://schema/kvm/start")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"family": "kvm", "operation": "start"}, params)

	for _, uri := range []string{
		"http://schema/kvm/start",
		"baselib://",
		"baselib://schema/kvm",
		"baselib://schema/kvm/migrate",
		"baselib://catalog/abc",
	} {
		_, err := parseResourceURI(uri)
		assert.Error(t, err, uri)
	}
}

func TestHandleResourceSchema(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	res, err := s.handleResourceSchema(ctx, readRequest("baselib://schema/zvm/init"))
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, tools.MimeJSON, res.Contents[0].MIMEType)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &doc))
	assert.Equal(t, "object", doc["type"])

	_, err = s.handleResourceSchema(ctx, readRequest("baselib://schema/zvm/start"))
	assert.Error(t, err)
}

func TestHandleResourceOperations(t *testing.T) {
	s := newServer(t)
	res, err := s.handleResourceOperations(context.Background(), readRequest("baselib://operations"))
	require.NoError(t, err)

	var ops []app.OperationInfo
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &ops))
	assert.Len(t, ops, 10)
}

func TestServer_callTool(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var custom bool
	s := newServer(t, WithBuiltinTools(), WithCustomRegistration(func(*sdkmcp.Server) { custom = true }))
	assert.True(t, custom)

	clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()
	serverSession, err := s.MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer serverSession.Close()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test", Version: "v0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer session.Close()

	list, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range list.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"baselib_list_drivers",
		"baselib_list_operations",
		"baselib_resolve_schema",
		"baselib_validate_parameters",
	}, names)

	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name: "baselib_validate_parameters",
		Arguments: map[string]any{
			"family":     "kvm",
			"operation":  "stop",
			"parameters": map[string]any{},
		},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "baselib_validate_parameters",
		Arguments: map[string]any{"family": "kvm", "operation": "migrate"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
