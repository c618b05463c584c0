// Package hypervisorfactory builds hypervisor drivers by identifier and serves
// them through the validating proxy.
package hypervisorfactory

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/usestring/baselib/pkg/driver"
	"github.com/usestring/baselib/pkg/errors"
	"github.com/usestring/baselib/pkg/gate"
	"github.com/usestring/baselib/pkg/hypervisors"
	"github.com/usestring/baselib/pkg/hypervisors/hmc"
	"github.com/usestring/baselib/pkg/hypervisors/kvm"
	"github.com/usestring/baselib/pkg/hypervisors/zvm"
	"github.com/usestring/baselib/pkg/session"
	"github.com/usestring/baselib/pkg/types"
)

// Deps supplies the collaborators drivers talk through. Constructors are
// called once per driver instance; only the ones used by requested drivers
// need to be set.
type Deps struct {
	Console   func() session.Console
	Connector session.Connector
	Terminal  func() session.Terminal
}

// Registration binds a driver identifier to its family and constructor.
type Registration struct {
	Family    gate.Family
	Validated []string
	New       func(cfg driver.Config) (hypervisors.Hypervisor, error)
}

// Factory builds hypervisor drivers. Its registrations are fixed at creation.
type Factory struct {
	gate          *gate.Gate
	registrations map[string]Registration
}

// New creates a factory knowing the hmc, kvm and zvm drivers. A driver whose
// collaborator is missing from deps fails to build with a configuration error.
func New(g *gate.Gate, deps Deps) *Factory {
	return NewWithRegistrations(g, map[string]Registration{
		hmc.ID: {
			Family:    hmc.Family,
			Validated: hmc.Validated,
			New: func(cfg driver.Config) (hypervisors.Hypervisor, error) {
				if deps.Console == nil {
					return nil, missingDep(hmc.ID, "console")
				}
				return hmc.New(cfg, deps.Console()), nil
			},
		},
		kvm.ID: {
			Family:    kvm.Family,
			Validated: kvm.Validated,
			New: func(cfg driver.Config) (hypervisors.Hypervisor, error) {
				if deps.Connector == nil {
					return nil, missingDep(kvm.ID, "connector")
				}
				return kvm.New(cfg, deps.Connector), nil
			},
		},
		zvm.ID: {
			Family:    zvm.Family,
			Validated: zvm.Validated,
			New: func(cfg driver.Config) (hypervisors.Hypervisor, error) {
				if deps.Terminal == nil {
					return nil, missingDep(zvm.ID, "terminal")
				}
				return zvm.New(cfg, deps.Terminal()), nil
			},
		},
	})
}

func missingDep(id, collaborator string) error {
	return errors.NewWithContext(errors.ErrCodeConfiguration,
		fmt.Sprintf("%s driver requires a %s collaborator", id, collaborator),
		map[string]any{"driver": id})
}

// NewWithRegistrations creates a factory from an explicit registration set.
func NewWithRegistrations(g *gate.Gate, registrations map[string]Registration) *Factory {
	return &Factory{gate: g, registrations: maps.Clone(registrations)}
}

// Supported returns the known identifiers, sorted.
func (f *Factory) Supported() []string {
	return slices.Sorted(maps.Keys(f.registrations))
}

// Registration returns the registration of id.
func (f *Factory) Registration(id string) (Registration, bool) {
	r, ok := f.registrations[id]
	return r, ok
}

// New builds the driver registered under id. When the family validates
// init, cfg.Parameters is checked before the driver is constructed.
func (f *Factory) New(ctx context.Context, id string, cfg driver.Config) (hypervisors.Hypervisor, error) {
	reg, ok := f.registrations[id]
	if !ok {
		return nil, errors.NewWithContext(errors.ErrCodeUnsupported,
			fmt.Sprintf("hypervisor type %q is not supported, use one of: %s", id, strings.Join(f.Supported(), ", ")),
			map[string]any{"driver": id})
	}

	if cfg.Parameters == nil {
		cfg.Parameters = map[string]any{}
	}
	table := f.gate.NewTable(reg.Family)

	var impl hypervisors.Hypervisor
	if slices.Contains(reg.Validated, types.OpInit) {
		err := table.Register(hypervisors.InitSignature, func(_ context.Context, _ ...any) (any, error) {
			return reg.New(cfg)
		})
		if err != nil {
			return nil, err
		}
		out, err := table.Call(ctx, types.OpInit, cfg.SystemName, cfg.HostName, cfg.User, cfg.Passwd, cfg.Parameters)
		if err != nil {
			return nil, err
		}
		impl = out.(hypervisors.Hypervisor)
	} else {
		var err error
		if impl, err = reg.New(cfg); err != nil {
			return nil, err
		}
	}

	proxy, err := hypervisors.NewProxy(table, impl, reg.Validated)
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "hypervisor created", "driver", id, "system", cfg.SystemName)
	return proxy, nil
}
