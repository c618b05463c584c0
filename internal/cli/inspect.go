package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
)

// resolution is the output of the resolve command.
type resolution struct {
	SchemaPath string `json:"schema_path" yaml:"schema_path"`
	Exists     bool   `json:"exists" yaml:"exists"`
	ID         string `json:"id,omitempty" yaml:"id,omitempty"`
	Draft      string `json:"draft,omitempty" yaml:"draft,omitempty"`
}

func resolveCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Print the schema file of a driver operation",
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
				Name:  "category",
				Usage: "Schema subdirectory (default: configured category)",
			},
			formatFlag,
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path, err := e.app.Store.Resolve(cmd.String("family"), cmd.String("category"), cmd.String("operation"))
			if err != nil {
				return err
			}
			res := resolution{SchemaPath: path}
			if _, err := os.Stat(path); err == nil {
				doc, err := e.app.Loader.Load(path)
				if err != nil {
					return err
				}
				res.Exists = true
				res.ID = doc.ID
				res.Draft = doc.Draft
			}
			return e.write(cmd.String("format"), res)
		},
	}
}

func operationsCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "operations",
		Usage: "List the validated operations of every driver",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "format",
				Usage: "Output format: table, json or yaml",
				Value: formatTable,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ops, err := e.app.Operations()
			if err != nil {
				return err
			}
			if format := cmd.String("format"); format != formatTable {
				return e.write(format, ops)
			}

			tw := tabwriter.NewWriter(e.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tDRIVER\tOPERATION\tARGS\tSCHEMA\tPRESENT")
			for _, op := range ops {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\n",
					op.Kind, op.Driver, op.Operation, strings.Join(op.Args, ","), op.SchemaPath, op.Present)
			}
			return tw.Flush()
		},
	}
}

// driverList is the output of the drivers command.
type driverList struct {
	Hypervisors      []string `json:"hypervisors" yaml:"hypervisors"`
	Guests           []string `json:"guests" yaml:"guests"`
	Validators       []string `json:"validators" yaml:"validators"`
	DefaultValidator string   `json:"default_validator" yaml:"default_validator"`
}

func driversCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "drivers",
		Usage: "List the supported drivers and validator engines",
		Flags: []cli.Flag{formatFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return e.write(cmd.String("format"), driverList{
				Hypervisors:      e.app.Hypervisors.Supported(),
				Guests:           e.app.Guests.Supported(),
				Validators:       e.app.Validators.Registry().IDs(),
				DefaultValidator: e.app.Validators.DefaultID(),
			})
		},
	}
}
