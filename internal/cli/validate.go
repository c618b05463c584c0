package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/usestring/baselib/internal/app"
	"github.com/usestring/baselib/internal/query"
	"github.com/usestring/baselib/pkg/errors"
)

// validationReport is the output of the validate command.
type validationReport struct {
	Family     string   `json:"family" yaml:"family"`
	Operation  string   `json:"operation" yaml:"operation"`
	Valid      bool     `json:"valid" yaml:"valid"`
	Violations []string `json:"violations,omitempty" yaml:"violations,omitempty"`
	Parameters any      `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

func validateCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate operation parameters against the operation schema",
		ArgsUsage: "[FILE]",
		Description: `Validate a parameters document against the schema of a driver operation.

The document is read from FILE, or from stdin when FILE is omitted or "-".
JSON and YAML documents are accepted. With --query the parameters are
selected from the document with a JQ expression that must yield exactly one
value.

# Examples

Validate KVM start parameters:
  baselib validate -f kvm -o start params.json

Select the parameters of a job from a YAML file:
  baselib validate -f hmc -o stop -q '.jobs[0].parameters' jobs.yaml

Use the OpenAPI 3 engine instead of the configured default:
  baselib validate -f zvm -o init --validator openapi3 init.yaml`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "family",
				Aliases:  []string{"f"},
				Required: true,
				Usage:    "Driver family, e.g. kvm or hypervisors/kvm",
			},
			&cli.StringFlag{
				Name:     "operation",
				Aliases:  []string{"o"},
				Required: true,
				Usage:    "Operation name: init, start, stop, hotplug or reboot",
			},
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "JQ expression selecting the parameters from the document",
				Value:   query.Identity,
			},
			&cli.StringFlag{
				Name:  "validator",
				Usage: "Validator engine: jsonschema or openapi3 (default: configured default)",
			},
			formatFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			data, err := e.readInput(cmd.Args().First())
			if err != nil {
				return err
			}
			doc, err := query.Decode(data)
			if err != nil {
				return fmt.Errorf("failed to decode document: %w", err)
			}

			report := validationReport{
				Family:    cmd.String("family"),
				Operation: cmd.String("operation"),
			}
			params, err := e.app.Validate(ctx, app.ValidateRequest{
				Family:    report.Family,
				Operation: report.Operation,
				Document:  doc,
				Query:     cmd.String("query"),
				Validator: cmd.String("validator"),
			})
			report.Parameters = params
			switch {
			case err == nil:
				report.Valid = true
			case errors.HasCode(err, errors.ErrCodeValidation):
				report.Violations = errors.Violations(err)
			default:
				return err
			}

			if err := e.write(cmd.String("format"), report); err != nil {
				return err
			}
			if !report.Valid {
				slog.Debug("parameters rejected", "family", report.Family, "operation", report.Operation)
				return fmt.Errorf("%s %s: parameters do not match the schema", report.Family, report.Operation)
			}
			return nil
		},
	}
}

// readInput reads path, or the command input when path is empty or "-".
func (e *env) readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(e.in)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	return data, nil
}
