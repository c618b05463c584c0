package hypervisors

import (
	"context"
	"fmt"
	"time"

	"github.com/usestring/baselib/pkg/driver"
	"github.com/usestring/baselib/pkg/errors"
	"github.com/usestring/baselib/pkg/gate"
	"github.com/usestring/baselib/pkg/types"
)

// Proxy serves a Hypervisor through a gate table and a lifecycle. Operations
// registered in the table have their parameters validated before the driver
// sees them; every operation requires the Ready state.
type Proxy struct {
	impl      Hypervisor
	table     *gate.Table
	lifecycle driver.Lifecycle
}

var _ Hypervisor = (*Proxy)(nil)

// NewProxy registers the validated operations of impl in table and returns
// the ready proxy. Only start, stop and reboot can be registered here.
func NewProxy(table *gate.Table, impl Hypervisor, validated []string) (*Proxy, error) {
	p := &Proxy{impl: impl, table: table}

	for _, op := range validated {
		var err error
		switch op {
		case types.OpInit:
			// bound by the factory before the driver exists
			continue
		case types.OpStart:
			err = table.Register(StartSignature, p.start)
		case types.OpStop:
			err = table.Register(StopSignature, p.stop)
		case types.OpReboot:
			err = table.Register(RebootSignature, p.reboot)
		default:
			err = errors.NewWithContext(errors.ErrCodeContract,
				fmt.Sprintf("hypervisors have no %q operation", op),
				map[string]any{"driver": impl.ID()})
		}
		if err != nil {
			return nil, err
		}
	}

	if err := p.lifecycle.MarkReady(); err != nil {
		return nil, err
	}
	return p, nil
}

// Descriptors returns the validated operations of the driver.
func (p *Proxy) Descriptors() []*gate.Descriptor {
	return p.table.Descriptors()
}

// State returns the lifecycle state.
func (p *Proxy) State() driver.State {
	return p.lifecycle.State()
}

// Unwrap returns the driver behind the proxy.
func (p *Proxy) Unwrap() Hypervisor {
	return p.impl
}

// ID implements Hypervisor.
func (p *Proxy) ID() string {
	return p.impl.ID()
}

// Login implements Hypervisor.
func (p *Proxy) Login(ctx context.Context, timeout time.Duration) error {
	if err := p.lifecycle.Require("login"); err != nil {
		return err
	}
	return p.impl.Login(ctx, timeout)
}

// Logoff implements Hypervisor.
func (p *Proxy) Logoff(ctx context.Context) error {
	if err := p.lifecycle.Require("logoff"); err != nil {
		return err
	}
	return p.impl.Logoff(ctx)
}

// Start implements Hypervisor.
func (p *Proxy) Start(ctx context.Context, guestName string, cpu, memory int, parameters map[string]any) error {
	if err := p.lifecycle.Require(types.OpStart); err != nil {
		return err
	}
	if p.table.Has(types.OpStart) {
		_, err := p.table.Call(ctx, types.OpStart, guestName, cpu, memory, parameters)
		return err
	}
	return p.impl.Start(ctx, guestName, cpu, memory, parameters)
}

// Stop implements Hypervisor.
func (p *Proxy) Stop(ctx context.Context, guestName string, parameters map[string]any) error {
	if err := p.lifecycle.Require(types.OpStop); err != nil {
		return err
	}
	if p.table.Has(types.OpStop) {
		_, err := p.table.Call(ctx, types.OpStop, guestName, parameters)
		return err
	}
	return p.impl.Stop(ctx, guestName, parameters)
}

// Reboot implements Hypervisor.
func (p *Proxy) Reboot(ctx context.Context, guestName string, parameters map[string]any) error {
	if err := p.lifecycle.Require(types.OpReboot); err != nil {
		return err
	}
	if p.table.Has(types.OpReboot) {
		_, err := p.table.Call(ctx, types.OpReboot, guestName, parameters)
		return err
	}
	return p.impl.Reboot(ctx, guestName, parameters)
}

// Close implements Hypervisor.
func (p *Proxy) Close() error {
	if err := p.lifecycle.Close(); err != nil {
		return err
	}
	return p.impl.Close()
}

func (p *Proxy) start(ctx context.Context, args ...any) (any, error) {
	return nil, p.impl.Start(ctx, args[0].(string), args[1].(int), args[2].(int), args[3].(map[string]any))
}

func (p *Proxy) stop(ctx context.Context, args ...any) (any, error) {
	return nil, p.impl.Stop(ctx, args[0].(string), args[1].(map[string]any))
}

func (p *Proxy) reboot(ctx context.Context, args ...any) (any, error) {
	return nil, p.impl.Reboot(ctx, args[0].(string), args[1].(map[string]any))
}
