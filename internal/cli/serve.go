package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/usestring/baselib/internal/mcp"
	"github.com/usestring/baselib/internal/mcp/tools"
)

const shutdownTimeout = 5 * time.Second

func serveCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the validation tools over MCP on stdio",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Address of the Prometheus metrics endpoint, e.g. :9090 (default: configured address, disabled when empty)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			server, err := mcp.NewServer(&tools.Deps{App: e.app}, mcp.WithBuiltinTools())
			if err != nil {
				return err
			}

			addr := cmd.String("metrics-addr")
			if addr == "" {
				addr = e.app.Config.MetricsAddr
			}

			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			g, gctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				defer cancel()
				slog.Info("starting MCP server on stdio", "name", mcp.ServerName, "version", version)
				err := server.Run(gctx)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})

			if addr != "" {
				httpServer := &http.Server{
					Addr:              addr,
					Handler:           metricsMux(e),
					ReadHeaderTimeout: 5 * time.Second,
				}
				g.Go(func() error {
					slog.Info("serving metrics", "addr", addr)
					if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return fmt.Errorf("metrics server: %w", err)
					}
					return nil
				})
				g.Go(func() error {
					<-gctx.Done()
					shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
					defer stop()
					return httpServer.Shutdown(shutdownCtx)
				})
			}

			if err := g.Wait(); err != nil {
				return err
			}
			slog.Info("server stopped")
			return nil
		},
	}
}

func metricsMux(e *env) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", e.app.MetricsHandler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}
