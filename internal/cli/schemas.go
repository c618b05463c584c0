package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/usestring/baselib/internal/query"
	"github.com/usestring/baselib/pkg/params"
	"github.com/usestring/baselib/pkg/schema"
)

func schemasCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "schemas",
		Usage: "Generate and check the schema files",
		Commands: []*cli.Command{
			schemasGenerateCmd(e),
			schemasCheckCmd(e),
			schemasInferCmd(e),
		},
	}
}

func schemasGenerateCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Write the schema files of the built-in drivers from their parameter types",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "out",
				Usage: "Base directory to write to (default: the schemas directory)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			base := cmd.String("out")
			if base == "" {
				base = e.app.Store.BaseDir()
			}
			store := schema.NewStore(base, e.app.Store.Category())

			for _, key := range params.Keys() {
				data, err := params.Generate(key)
				if err != nil {
					return err
				}
				path, err := store.Resolve(key.Family, "", key.Operation)
				if err != nil {
					return err
				}
				if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
					return fmt.Errorf("failed to create schema directory: %w", err)
				}
				if err := os.WriteFile(path, data, 0o644); err != nil {
					return fmt.Errorf("failed to write %q: %w", path, err)
				}
				slog.Info("wrote schema", "key", key.String(), "path", path)
				fmt.Fprintln(e.out, path)
			}
			return nil
		},
	}
}

func schemasCheckCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Compile the schema of every validated operation with every validator engine",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ops, err := e.app.Operations()
			if err != nil {
				return err
			}
			ids := e.app.Validators.Registry().IDs()

			var (
				mu       sync.Mutex
				failures []string
			)
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(runtime.GOMAXPROCS(0))
			for _, op := range ops {
				for _, id := range ids {
					g.Go(func() error {
						if err := gctx.Err(); err != nil {
							return err
						}
						if _, err := e.app.Validators.Create(op.SchemaPath, id); err != nil {
							mu.Lock()
							failures = append(failures, fmt.Sprintf("%s %s %s (%s): %v", op.Kind, op.Driver, op.Operation, id, err))
							mu.Unlock()
						}
						return nil
					})
				}
			}
			if err := g.Wait(); err != nil {
				return err
			}

			sort.Strings(failures)
			for _, f := range failures {
				fmt.Fprintln(e.out, f)
			}
			if len(failures) > 0 {
				return fmt.Errorf("%d of %d schema checks failed", len(failures), len(ops)*len(ids))
			}
			fmt.Fprintf(e.out, "%d schemas ok with %d validators\n", len(ops), len(ids))
			return nil
		},
	}
}

func schemasInferCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "infer",
		Usage:     "Infer a draft-04 schema from sample parameter documents",
		ArgsUsage: "FILE...",
		Description: `Infer a schema accepting every sample. Each FILE is a JSON or YAML document;
with --query the parameters are selected from it first. The schema is written
to stdout, or to the schema file of --family and --operation with --write.

# Examples

  baselib schemas infer -q '.jobs[0].parameters' job1.yaml job2.yaml
  baselib schemas infer -f kvm -o reboot --write samples/*.json`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "JQ expression selecting the parameters from each document",
				Value:   query.Identity,
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Allow properties not seen in the samples",
			},
			&cli.BoolFlag{
				Name:  "optional",
				Usage: "Mark no property as required",
			},
			&cli.BoolFlag{
				Name:  "write",
				Usage: "Write the schema file of --family and --operation instead of printing",
			},
			&cli.StringFlag{
				Name:    "family",
				Aliases: []string{"f"},
				Usage:   "Driver family, with --write",
			},
			&cli.StringFlag{
				Name:    "operation",
				Aliases: []string{"o"},
				Usage:   "Operation name, with --write",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				return fmt.Errorf("at least one sample file is required")
			}

			samples := make([]any, 0, len(files))
			for _, f := range files {
				data, err := e.readInput(f)
				if err != nil {
					return err
				}
				doc, err := query.Decode(data)
				if err != nil {
					return fmt.Errorf("failed to decode %q: %w", f, err)
				}
				sample, err := e.app.Query.Select(doc, cmd.String("query"))
				if err != nil {
					return fmt.Errorf("%s: %w", f, err)
				}
				samples = append(samples, sample)
			}

			inferred, err := params.Infer(params.InferOptions{
				Open:     cmd.Bool("open"),
				Optional: cmd.Bool("optional"),
			}, samples...)
			if err != nil {
				return err
			}
			data, err := inferred.MarshalIndent()
			if err != nil {
				return err
			}

			if !cmd.Bool("write") {
				_, err = e.out.Write(data)
				return err
			}
			path, err := e.app.Store.Resolve(cmd.String("family"), "", cmd.String("operation"))
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("failed to create schema directory: %w", err)
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %q: %w", path, err)
			}
			slog.Info("wrote inferred schema", "path", path, "samples", inferred.Samples)
			fmt.Fprintln(e.out, path)
			return nil
		},
	}
}
