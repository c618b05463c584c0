// Package zvm implements the hypervisor driver for z/VM guests operated
// through a 3270 terminal.
package zvm

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/usestring/baselib/pkg/driver"
	"github.com/usestring/baselib/pkg/errors"
	"github.com/usestring/baselib/pkg/gate"
	"github.com/usestring/baselib/pkg/hypervisors"
	"github.com/usestring/baselib/pkg/session"
	"github.com/usestring/baselib/pkg/types"
)

// ID is the driver identifier.
const ID = "zvm"

// Family is the schema family of the driver.
var Family = gate.Family{Name: "hypervisors/zvm"}

// Validated lists the operations whose parameters are checked against schemas.
var Validated = []string{types.OpInit, types.OpStop}

// Hypervisor logs into a z/VM guest through a terminal. Starting and
// rebooting guests is not supported.
type Hypervisor struct {
	driver.Base
	hypervisors.Unimplemented

	terminal session.Terminal
}

var _ hypervisors.Hypervisor = (*Hypervisor)(nil)

// New creates a z/VM driver using terminal. z/VM user ids are upper case.
func New(cfg driver.Config, terminal session.Terminal) *Hypervisor {
	cfg.User = strings.ToUpper(cfg.User)
	h := &Hypervisor{Base: driver.NewBase(cfg), terminal: terminal}
	slog.Debug("create zvm hypervisor", "driver", h.Base)
	return h
}

// ID implements hypervisors.Hypervisor.
func (h *Hypervisor) ID() string {
	return ID
}

// Login implements hypervisors.Hypervisor.
func (h *Hypervisor) Login(ctx context.Context, timeout time.Duration) error {
	slog.DebugContext(ctx, "performing login", "driver", h.Base)
	output, err := h.terminal.Login(ctx, h.HostName, h.User, h.Passwd, h.Parameters, timeout)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDriver, "zvm login failed", err)
	}
	slog.DebugContext(ctx, "login process", "output", output)
	return nil
}

// Logoff implements hypervisors.Hypervisor.
func (h *Hypervisor) Logoff(ctx context.Context) error {
	slog.DebugContext(ctx, "performing logoff", "driver", h.Base)
	if err := h.terminal.Logoff(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeDriver, "could not logoff from guest", err)
	}
	return nil
}

// Stop clears the guest system and logs off.
func (h *Hypervisor) Stop(ctx context.Context, guestName string, _ map[string]any) error {
	slog.DebugContext(ctx, "performing stop", "guest", guestName)
	if _, err := h.terminal.SendCommand(ctx, "system clear"); err != nil {
		return errors.Wrap(errors.ErrCodeDriver, "could not clear guest", err)
	}
	if err := h.terminal.Logoff(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeDriver, "could not stop guest", err)
	}
	return nil
}

// Close implements hypervisors.Hypervisor.
func (h *Hypervisor) Close() error {
	return nil
}
