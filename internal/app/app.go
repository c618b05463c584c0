// Package app assembles the validation gate and the driver factories from a
// loaded configuration. The CLI and the MCP server share one App.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"slices"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/usestring/baselib/internal/cache"
	"github.com/usestring/baselib/internal/config"
	"github.com/usestring/baselib/internal/query"
	"github.com/usestring/baselib/pkg/errors"
	"github.com/usestring/baselib/pkg/gate"
	"github.com/usestring/baselib/pkg/guestfactory"
	"github.com/usestring/baselib/pkg/guests"
	"github.com/usestring/baselib/pkg/hypervisorfactory"
	"github.com/usestring/baselib/pkg/hypervisors"
	"github.com/usestring/baselib/pkg/schema"
	"github.com/usestring/baselib/pkg/validators"
)

// Driver kinds.
const (
	KindHypervisor = "hypervisor"
	KindGuest      = "guest"
)

// App holds the long-lived components built from a Config.
type App struct {
	Config      *config.Config
	Loader      *schema.Loader
	Store       *schema.Store
	Validators  *validators.Factory
	Gate        *gate.Gate
	Registry    *prometheus.Registry
	Metrics     *gate.Metrics
	Hypervisors *hypervisorfactory.Factory
	Guests      *guestfactory.Factory
	Query       *query.Engine
}

// Option configures New.
type Option func(*options)

type options struct {
	hypervisorDeps hypervisorfactory.Deps
	guestDeps      guestfactory.Deps
}

// WithHypervisorDeps supplies the collaborators of hypervisor drivers.
func WithHypervisorDeps(d hypervisorfactory.Deps) Option {
	return func(o *options) {
		o.hypervisorDeps = d
	}
}

// WithGuestDeps supplies the collaborators of guest drivers.
func WithGuestDeps(d guestfactory.Deps) Option {
	return func(o *options) {
		o.guestDeps = d
	}
}

// New builds an App. Drivers can be listed and validated without
// collaborators; they are only needed to build drivers.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	loaderOpts, err := cache.LoaderOptions(cfg.SchemaCacheMaxItems)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfiguration, "invalid schema cache size", err)
	}
	loader := schema.NewLoader(loaderOpts...)
	store := schema.NewStore(cfg.SchemasDir, cfg.SchemaCategory)
	factory := validators.NewFactory(validators.Builtin(loader), cfg.DefaultSchemaValidator)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := gate.NewMetrics(registry)
	g := gate.New(store, factory, gate.WithMetrics(metrics))

	return &App{
		Config:      cfg,
		Loader:      loader,
		Store:       store,
		Validators:  factory,
		Gate:        g,
		Registry:    registry,
		Metrics:     metrics,
		Hypervisors: hypervisorfactory.New(g, o.hypervisorDeps),
		Guests:      guestfactory.New(g, o.guestDeps),
		Query:       query.NewEngine(),
	}, nil
}

// MetricsHandler serves the registry in the Prometheus exposition format.
func (a *App) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

// OperationInfo describes one validated operation of a driver.
type OperationInfo struct {
	Kind       string   `json:"kind"`
	Driver     string   `json:"driver"`
	Family     string   `json:"family"`
	Operation  string   `json:"operation"`
	Args       []string `json:"args"`
	SchemaPath string   `json:"schema_path"`
	Present    bool     `json:"present"`
}

// Operations lists the validated operations of every registered driver with
// the schema file each resolves to, sorted by kind, driver and operation.
func (a *App) Operations() ([]OperationInfo, error) {
	var out []OperationInfo

	add := func(kind, id string, family gate.Family, validated []string, sigs map[string]gate.Signature) error {
		for _, op := range validated {
			sig, ok := sigs[op]
			if !ok {
				return errors.NewWithContext(errors.ErrCodeContract,
					fmt.Sprintf("%s driver %q validates unknown operation %q", kind, id, op),
					map[string]any{"driver": id})
			}
			desc, err := a.Gate.Describe(family, sig)
			if err != nil {
				return err
			}
			_, statErr := os.Stat(desc.SchemaPath)
			out = append(out, OperationInfo{
				Kind:       kind,
				Driver:     id,
				Family:     desc.Family.Name,
				Operation:  op,
				Args:       desc.Args,
				SchemaPath: desc.SchemaPath,
				Present:    statErr == nil,
			})
		}
		return nil
	}

	for _, id := range a.Hypervisors.Supported() {
		reg, _ := a.Hypervisors.Registration(id)
		if err := add(KindHypervisor, id, reg.Family, reg.Validated, hypervisors.Signatures); err != nil {
			return nil, err
		}
	}
	for _, id := range a.Guests.Supported() {
		reg, _ := a.Guests.Registration(id)
		if err := add(KindGuest, id, reg.Family, reg.Validated, guests.Signatures); err != nil {
			return nil, err
		}
	}

	slices.SortFunc(out, func(x, y OperationInfo) int {
		if c := strings.Compare(x.Kind, y.Kind); c != 0 {
			return c
		}
		if c := strings.Compare(x.Driver, y.Driver); c != 0 {
			return c
		}
		return strings.Compare(x.Operation, y.Operation)
	})
	return out, nil
}

// ValidateRequest is a parameters check outside any driver call.
type ValidateRequest struct {
	Family    string
	Operation string
	Document  any
	Query     string
	Validator string
}

// Validate selects the parameters from req.Document with req.Query and checks
// them against the schema of the operation. It returns the selected
// parameters.
func (a *App) Validate(ctx context.Context, req ValidateRequest) (any, error) {
	params, err := a.Query.Select(req.Document, req.Query)
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeContract, "cannot select parameters", err,
			map[string]any{"query": req.Query})
	}
	err = a.Gate.WithValidator(req.Validator).Validate(ctx, gate.Family{Name: req.Family}, req.Operation, params)
	return params, err
}
