// Package cms implements the guest driver for CMS systems operated through a
// 3270 terminal.
package cms

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/usestring/baselib/pkg/driver"
	"github.com/usestring/baselib/pkg/errors"
	"github.com/usestring/baselib/pkg/gate"
	"github.com/usestring/baselib/pkg/guests"
	"github.com/usestring/baselib/pkg/session"
	"github.com/usestring/baselib/pkg/types"
)

// ID is the driver identifier.
const ID = "cms"

// Family is the schema family of the driver.
var Family = gate.Family{Name: "guests/cms"}

// Validated lists the operations whose parameters are checked against schemas.
var Validated = []string{types.OpHotplug}

// Guest logs into a CMS user through a terminal. Only login, logoff and stop
// are supported.
type Guest struct {
	driver.Base
	guests.Unimplemented

	terminal session.Terminal
}

var _ guests.Guest = (*Guest)(nil)

// New creates a CMS guest driver using terminal. User ids are upper case.
func New(cfg driver.Config, terminal session.Terminal) *Guest {
	cfg.User = strings.ToUpper(cfg.User)
	g := &Guest{Base: driver.NewBase(cfg), terminal: terminal}
	slog.Debug("create cms guest", "driver", g.Base)
	return g
}

// ID implements guests.Guest.
func (g *Guest) ID() string {
	return ID
}

// Login implements guests.Guest.
func (g *Guest) Login(ctx context.Context, timeout time.Duration) error {
	output, err := g.terminal.Login(ctx, g.HostName, g.User, g.Passwd, g.Parameters, timeout)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDriver, "cms login failed", err)
	}
	slog.DebugContext(ctx, "login process", "output", output)
	return nil
}

// Logoff implements guests.Guest.
func (g *Guest) Logoff(ctx context.Context) error {
	if err := g.terminal.Logoff(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeDriver, "could not logoff from guest", err)
	}
	return nil
}

// Stop logs the user off with the CP LOGOFF command, ending the guest.
func (g *Guest) Stop(ctx context.Context) error {
	if _, err := g.terminal.SendCommand(ctx, "#cp logoff"); err != nil {
		return errors.Wrap(errors.ErrCodeDriver, "could not stop guest", err)
	}
	return nil
}

// Close implements guests.Guest.
func (g *Guest) Close() error {
	return nil
}
