package mcpsrv

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/baselib/internal/app"
	"github.com/usestring/baselib/internal/config"
	"github.com/usestring/baselib/internal/logging"
	"github.com/usestring/baselib/internal/mcp"
	"github.com/usestring/baselib/internal/mcp/tools"
)

// Server is the baselib MCP server.
// It wraps the internal implementation and provides extension points.
type Server struct {
	internal   *mcp.Server
	app        *app.App
	deps       *Deps
	logCleanup func() error
}

// NewServer creates a new MCP server with the builtin validation tools.
//
// Configuration comes from the optional file given with WithConfigFile and the
// environment, then the explicit options override it.
func NewServer(opts ...Option) (*Server, error) {
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	conf, err := config.Load(cfg.configPath)
	if err != nil {
		return nil, err
	}
	if cfg.schemasDir != "" {
		conf.SchemasDir = cfg.schemasDir
	}
	if cfg.defaultValidator != nil {
		conf.DefaultSchemaValidator = *cfg.defaultValidator
	}
	if cfg.logLevel != "" {
		conf.LogLevel = cfg.logLevel
	}
	if cfg.logFile != "" {
		conf.LogFile = cfg.logFile
	}

	logCleanup, err := logging.Setup(logging.FromConfig(conf))
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}

	a, err := app.New(conf,
		app.WithHypervisorDeps(cfg.hypervisorDeps),
		app.WithGuestDeps(cfg.guestDeps),
	)
	if err != nil {
		_ = logCleanup()
		return nil, err
	}

	deps := &Deps{
		Store:       a.Store,
		Loader:      a.Loader,
		Validators:  a.Validators,
		Gate:        a.Gate,
		Hypervisors: a.Hypervisors,
		Guests:      a.Guests,
	}

	var internalOpts []mcp.ServerOption
	if !cfg.disableBuiltinTools {
		internalOpts = append(internalOpts, mcp.WithBuiltinTools())
	}
	for _, fn := range cfg.toolRegistrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(fn))
	}
	for _, fn := range cfg.promptRegistrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(fn))
	}
	for _, fn := range cfg.resourceRegistrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(fn))
	}
	for _, fn := range cfg.deferredToolRegistrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(func(srv *sdkmcp.Server) {
			fn(srv, deps)
		}))
	}

	internal, err := mcp.NewServer(&tools.Deps{App: a}, internalOpts...)
	if err != nil {
		_ = logCleanup()
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	return &Server{
		internal:   internal,
		app:        a,
		deps:       deps,
		logCleanup: logCleanup,
	}, nil
}

// Run starts the MCP server with stdio transport.
// The server runs until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.internal.Run(ctx)
}

// RunTransport serves a single client over t.
func (s *Server) RunTransport(ctx context.Context, t sdkmcp.Transport) error {
	return s.internal.RunTransport(ctx, t)
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *sdkmcp.Server {
	return s.internal.MCPServer()
}

// Close cleans up server resources.
func (s *Server) Close() error {
	if s.logCleanup != nil {
		return s.logCleanup()
	}
	return nil
}

// Deps returns the dependencies for building custom tools.
func (s *Server) Deps() *Deps {
	return s.deps
}
