package guests

import (
	"context"
	"fmt"
	"time"

	"github.com/usestring/baselib/pkg/driver"
	"github.com/usestring/baselib/pkg/errors"
	"github.com/usestring/baselib/pkg/gate"
	"github.com/usestring/baselib/pkg/session"
	"github.com/usestring/baselib/pkg/types"
)

// Proxy serves a Guest through a gate table and a lifecycle.
type Proxy struct {
	impl      Guest
	table     *gate.Table
	lifecycle driver.Lifecycle
}

var _ Guest = (*Proxy)(nil)

// NewProxy registers the validated operations of impl in table and returns
// the ready proxy. Only hotplug can be registered here.
func NewProxy(table *gate.Table, impl Guest, validated []string) (*Proxy, error) {
	p := &Proxy{impl: impl, table: table}

	for _, op := range validated {
		switch op {
		case types.OpInit:
			continue
		case types.OpHotplug:
			if err := table.Register(HotplugSignature, p.hotplug); err != nil {
				return nil, err
			}
		default:
			return nil, errors.NewWithContext(errors.ErrCodeContract,
				fmt.Sprintf("guests have no validated %q operation", op),
				map[string]any{"driver": impl.ID()})
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
func (p *Proxy) Unwrap() Guest {
	return p.impl
}

// ID implements Guest.
func (p *Proxy) ID() string {
	return p.impl.ID()
}

// Login implements Guest.
func (p *Proxy) Login(ctx context.Context, timeout time.Duration) error {
	if err := p.lifecycle.Require("login"); err != nil {
		return err
	}
	return p.impl.Login(ctx, timeout)
}

// Logoff implements Guest.
func (p *Proxy) Logoff(ctx context.Context) error {
	if err := p.lifecycle.Require("logoff"); err != nil {
		return err
	}
	return p.impl.Logoff(ctx)
}

// Hotplug implements Guest.
func (p *Proxy) Hotplug(ctx context.Context, method string, resources, parameters map[string]any) error {
	if err := p.lifecycle.Require(types.OpHotplug); err != nil {
		return err
	}
	if p.table.Has(types.OpHotplug) {
		_, err := p.table.Call(ctx, types.OpHotplug, method, resources, parameters)
		return err
	}
	return p.impl.Hotplug(ctx, method, resources, parameters)
}

// InstallPackages implements Guest.
func (p *Proxy) InstallPackages(ctx context.Context, packages []string) error {
	if err := p.lifecycle.Require("install_packages"); err != nil {
		return err
	}
	return p.impl.InstallPackages(ctx, packages)
}

// OpenSession implements Guest.
func (p *Proxy) OpenSession(ctx context.Context, parameters map[string]any) (session.Session, error) {
	if err := p.lifecycle.Require("open_session"); err != nil {
		return nil, err
	}
	return p.impl.OpenSession(ctx, parameters)
}

// PullFile implements Guest.
func (p *Proxy) PullFile(ctx context.Context, sourcePath, targetURL string) error {
	if err := p.lifecycle.Require("pull_file"); err != nil {
		return err
	}
	return p.impl.PullFile(ctx, sourcePath, targetURL)
}

// PushFile implements Guest.
func (p *Proxy) PushFile(ctx context.Context, sourceURL, targetPath string, mode WriteMode) error {
	if err := p.lifecycle.Require("push_file"); err != nil {
		return err
	}
	return p.impl.PushFile(ctx, sourceURL, targetPath, mode)
}

// Stop implements Guest.
func (p *Proxy) Stop(ctx context.Context) error {
	if err := p.lifecycle.Require(types.OpStop); err != nil {
		return err
	}
	return p.impl.Stop(ctx)
}

// Close implements Guest.
func (p *Proxy) Close() error {
	if err := p.lifecycle.Close(); err != nil {
		return err
	}
	return p.impl.Close()
}

func (p *Proxy) hotplug(ctx context.Context, args ...any) (any, error) {
	return nil, p.impl.Hotplug(ctx, args[0].(string), args[1].(map[string]any), args[2].(map[string]any))
}
