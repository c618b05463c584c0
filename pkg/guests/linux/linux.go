// Package linux implements the guest driver for Linux systems reached over a
// shell connection.
package linux

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/url"
	"os"
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
const ID = "linux"

// Family is the schema family of the driver.
var Family = gate.Family{Name: "guests/linux"}

// Validated lists the operations whose parameters are checked against schemas.
var Validated = []string{types.OpHotplug}

const commandTimeout = 120 * time.Second

// packageManagers are probed in order; the value is the install command.
var packageManagers = []struct{ name, install string }{
	{"apt-get", "apt-get install -yq --no-install-recommends"},
	{"yum", "yum -q -y install"},
	{"zypper", "zypper -q -n install"},
}

// Guest drives a Linux system. Pulling files is not supported.
type Guest struct {
	driver.Base
	guests.Unimplemented

	connector  session.Connector
	conn       session.Conn
	pkgInstall string
}

var _ guests.Guest = (*Guest)(nil)

// New creates a Linux guest driver reaching the system through connector.
func New(cfg driver.Config, connector session.Connector) *Guest {
	g := &Guest{Base: driver.NewBase(cfg), connector: connector}
	slog.Debug("create linux guest", "driver", g.Base)
	return g
}

// ID implements guests.Guest.
func (g *Guest) ID() string {
	return ID
}

// Login connects to the system and confirms it runs a Linux kernel.
func (g *Guest) Login(ctx context.Context, timeout time.Duration) error {
	conn, err := g.connector.Connect(ctx, g.HostName, g.User, g.Passwd, timeout)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDriver, "cannot connect to guest", err)
	}

	sess, err := conn.OpenSession(ctx)
	if err != nil {
		_ = conn.Close()
		return errors.Wrap(errors.ErrCodeDriver, "cannot open session on guest", err)
	}
	defer sess.Close()

	_, output, err := sess.Run(ctx, "uname -a", commandTimeout)
	if err != nil {
		_ = conn.Close()
		return errors.Wrap(errors.ErrCodeDriver, "cannot identify guest system", err)
	}
	fields := strings.Fields(output)
	if len(fields) == 0 || !strings.EqualFold(fields[0], "linux") {
		_ = conn.Close()
		return errors.NewWithContext(errors.ErrCodeDriver, "target system is not Linux",
			map[string]any{"uname": strings.TrimSpace(output)})
	}

	g.conn = conn
	g.pkgInstall = ""
	return nil
}

// Logoff implements guests.Guest.
func (g *Guest) Logoff(ctx context.Context) error {
	if err := g.requireLogin(); err != nil {
		return err
	}
	slog.DebugContext(ctx, "logoff", "system", g.SystemName)
	err := g.conn.Close()
	g.conn = nil
	return err
}

// OpenSession implements guests.Guest.
func (g *Guest) OpenSession(ctx context.Context, _ map[string]any) (session.Session, error) {
	if err := g.requireLogin(); err != nil {
		return nil, err
	}
	return g.conn.OpenSession(ctx)
}

// InstallPackages installs packages with the first package manager found.
func (g *Guest) InstallPackages(ctx context.Context, packages []string) error {
	return g.withSession(ctx, func(sess session.Session) error {
		if g.pkgInstall == "" {
			for _, pm := range packageManagers {
				if status, _, err := sess.Run(ctx, "which "+pm.name, commandTimeout); err == nil && status == 0 {
					g.pkgInstall = pm.install
					break
				}
			}
			if g.pkgInstall == "" {
				return errors.New(errors.ErrCodeDriver, "no supported package manager found")
			}
		}
		slog.DebugContext(ctx, "installing packages", "command", g.pkgInstall, "packages", packages)
		return run(ctx, sess, g.pkgInstall+" "+strings.Join(packages, " "), "failed to install packages")
	})
}

// PushFile copies sourceURL to targetPath. http, https and ftp sources are
// downloaded by the guest; file sources are read locally and streamed.
func (g *Guest) PushFile(ctx context.Context, sourceURL, targetPath string, mode guests.WriteMode) error {
	redirect := ">"
	switch mode {
	case guests.WriteTruncate, "":
	case guests.WriteAppend:
		redirect = ">>"
	default:
		return errors.New(errors.ErrCodeDriver, fmt.Sprintf("invalid write mode %q", mode))
	}

	u, err := url.Parse(sourceURL)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDriver, "invalid source url", err)
	}

	var cmd string
	switch u.Scheme {
	case "http", "https", "ftp":
		cmd = fmt.Sprintf("curl -sSfL '%s' %s %s", sourceURL, redirect, targetPath)
	case "file":
		data, err := os.ReadFile(u.Path)
		if err != nil {
			return errors.Wrap(errors.ErrCodeResource, "cannot read source file", err)
		}
		cmd = fmt.Sprintf("echo '%s' | base64 -d %s %s", base64.StdEncoding.EncodeToString(data), redirect, targetPath)
	default:
		return errors.NewWithContext(errors.ErrCodeUnsupported,
			fmt.Sprintf("url scheme %q is not supported", u.Scheme),
			map[string]any{"url": sourceURL})
	}

	return g.withSession(ctx, func(sess session.Session) error {
		return run(ctx, sess, cmd, "failed to push file")
	})
}

// Stop powers the system off without waiting for the command to return.
func (g *Guest) Stop(ctx context.Context) error {
	return g.withSession(ctx, func(sess session.Session) error {
		_, _, err := sess.Run(ctx, "nohup poweroff &", commandTimeout)
		return err
	})
}

// Close implements guests.Guest.
func (g *Guest) Close() error {
	if g.conn == nil {
		return nil
	}
	err := g.conn.Close()
	g.conn = nil
	return err
}

func (g *Guest) requireLogin() error {
	if g.conn == nil {
		return errors.New(errors.ErrCodeDriver, "not connected to the linux guest")
	}
	return nil
}

func (g *Guest) withSession(ctx context.Context, fn func(session.Session) error) error {
	if err := g.requireLogin(); err != nil {
		return err
	}
	sess, err := g.conn.OpenSession(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDriver, "cannot open session on guest", err)
	}
	defer sess.Close()
	return fn(sess)
}

func run(ctx context.Context, sess session.Session, cmd, failure string) error {
	status, output, err := sess.Run(ctx, cmd, commandTimeout)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDriver, failure, err)
	}
	if status != 0 {
		return errors.NewWithContext(errors.ErrCodeDriver,
			fmt.Sprintf("%s: %s", failure, strings.TrimSpace(output)),
			map[string]any{"status": status})
	}
	return nil
}
