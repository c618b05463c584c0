// Package cli implements the baselib command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/usestring/baselib/internal/app"
	"github.com/usestring/baselib/internal/config"
	"github.com/usestring/baselib/internal/logging"
)

const name = "baselib"

// overridden during build with ldflags
var version = "dev"

// Output formats.
const (
	formatJSON  = "json"
	formatYAML  = "yaml"
	formatTable = "table"
)

// env carries what the root Before hook builds to the subcommands.
type env struct {
	in  io.Reader
	out io.Writer

	app        *app.App
	logCleanup func() error
}

// Command returns the root command reading from in and writing results to
// out. Logs go to stderr or the configured log file.
func Command(in io.Reader, out io.Writer) *cli.Command {
	e := &env{in: in, out: out}
	return &cli.Command{
		Name:    name,
		Usage:   "Validate driver operation parameters against their schemas",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
				Sources: cli.EnvVars("BASELIB_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "schemas-dir",
				Usage: "Base directory of the schema files (overrides the configuration)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error (overrides the configuration)",
			},
		},
		Before: e.before,
		After:  e.after,
		Commands: []*cli.Command{
			validateCmd(e),
			resolveCmd(e),
			operationsCmd(e),
			driversCmd(e),
			schemasCmd(e),
			serveCmd(e),
		},
	}
}

// Execute runs the command line with the process arguments.
func Execute(ctx context.Context) error {
	return Command(os.Stdin, os.Stdout).Run(ctx, os.Args)
}

func (e *env) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return ctx, err
	}
	if dir := cmd.String("schemas-dir"); dir != "" {
		cfg.SchemasDir = dir
	}
	if level := cmd.String("log-level"); level != "" {
		cfg.LogLevel = level
	}

	cleanup, err := logging.Setup(logging.FromConfig(cfg))
	if err != nil {
		return ctx, fmt.Errorf("failed to setup logging: %w", err)
	}
	e.logCleanup = cleanup

	e.app, err = app.New(cfg)
	if err != nil {
		return ctx, err
	}
	return ctx, nil
}

func (e *env) after(ctx context.Context, cmd *cli.Command) error {
	if e.logCleanup != nil {
		return e.logCleanup()
	}
	return nil
}

var formatFlag = &cli.StringFlag{
	Name:  "format",
	Usage: "Output format: json or yaml",
	Value: formatJSON,
}

// write serializes v to the command output in format.
func (e *env) write(format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(e.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(e.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format: %q", format)
	}
}
