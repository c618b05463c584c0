package mcpsrv

import (
	"context"
	"path/filepath"
	"testing"

	mcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/baselib/pkg/errors"
	"github.com/usestring/baselib/pkg/gate"
)

type checkInput struct {
	Parameters map[string]any `json:"parameters"`
}

type checkOutput struct {
	Valid bool `json:"valid"`
}

func newServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	opts = append([]Option{
		WithSchemasDir(filepath.Join("..", "..", "schemas")),
		WithLogFile(filepath.Join(t.TempDir(), "baselib.log")),
	}, opts...)
	s, err := NewServer(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewServer_overrides(t *testing.T) {
	s := newServer(t, WithDefaultValidator("openapi3"), WithLogLevel("debug"))

	deps := s.Deps()
	require.NotNil(t, deps)
	assert.Equal(t, "openapi3", deps.Validators.DefaultID())
	assert.Equal(t, filepath.Join("..", "..", "schemas"), deps.Store.BaseDir())
	assert.Equal(t, []string{"hmc", "kvm", "zvm"}, deps.Hypervisors.Supported())

	err := deps.Gate.Validate(context.Background(), gate.Family{Name: "hmc"}, "stop", map[string]any{})
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation), err)
}

func TestNewServer_undefinedDefaultValidator(t *testing.T) {
	s := newServer(t, WithDefaultValidator(""))
	err := s.Deps().Gate.Validate(context.Background(), gate.Family{Name: "kvm"}, "stop", map[string]any{})
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfiguration), err)
}

func TestNewServer_missingConfigFile(t *testing.T) {
	_, err := NewServer(WithConfigFile(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfiguration), err)
}

func TestNewServer_customTools(t *testing.T) {
	var built bool
	s := newServer(t,
		WithoutBuiltinTools(),
		WithTool(&mcp.Tool{Name: "ping", Description: "Ping"},
			func(ctx context.Context, req *mcp.CallToolRequest, in struct{}) (*mcp.CallToolResult, checkOutput, error) {
				return nil, checkOutput{Valid: true}, nil
			}),
		WithDepsTool(&mcp.Tool{Name: "check_stop", Description: "Check KVM stop parameters"},
			func(d *Deps) func(context.Context, *mcp.CallToolRequest, checkInput) (*mcp.CallToolResult, checkOutput, error) {
				built = d != nil && d.Gate != nil
				return func(ctx context.Context, req *mcp.CallToolRequest, in checkInput) (*mcp.CallToolResult, checkOutput, error) {
					err := d.Gate.Validate(ctx, gate.Family{Name: "kvm"}, "stop", in.Parameters)
					return nil, checkOutput{Valid: err == nil}, nil
				}
			}),
	)
	assert.True(t, built)
	assert.NotNil(t, s.MCPServer())
}
