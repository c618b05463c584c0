// Package kvm implements the hypervisor driver for libvirt/KVM hosts reached
// over a shell connection.
package kvm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/usestring/baselib/pkg/driver"
	"github.com/usestring/baselib/pkg/errors"
	"github.com/usestring/baselib/pkg/gate"
	"github.com/usestring/baselib/pkg/hypervisors"
	"github.com/usestring/baselib/pkg/session"
	"github.com/usestring/baselib/pkg/types"
)

// ID is the driver identifier.
const ID = "kvm"

// Family is the schema family of the driver.
var Family = gate.Family{Name: "hypervisors/kvm"}

// Validated lists the operations whose parameters are checked against schemas.
var Validated = []string{types.OpInit, types.OpStart, types.OpStop, types.OpReboot}

// Hypervisor manages libvirt domains on a KVM host.
type Hypervisor struct {
	driver.Base

	connector session.Connector
	conn      session.Conn
	sess      session.Session
}

var _ hypervisors.Hypervisor = (*Hypervisor)(nil)

// New creates a KVM driver reaching its host through connector.
func New(cfg driver.Config, connector session.Connector) *Hypervisor {
	h := &Hypervisor{Base: driver.NewBase(cfg), connector: connector}
	slog.Debug("create kvm hypervisor", "driver", h.Base)
	return h
}

// ID implements hypervisors.Hypervisor.
func (h *Hypervisor) ID() string {
	return ID
}

// Login implements hypervisors.Hypervisor.
func (h *Hypervisor) Login(ctx context.Context, timeout time.Duration) error {
	slog.DebugContext(ctx, "performing login", "driver", h.Base)
	if h.sess != nil {
		slog.WarnContext(ctx, "login called with connection already active, dropping previous connection")
		h.release()
	}

	conn, err := h.connector.Connect(ctx, h.HostName, h.User, h.Passwd, timeout)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDriver, "cannot connect to kvm host", err)
	}
	sess, err := conn.OpenSession(ctx)
	if err != nil {
		_ = conn.Close()
		return errors.Wrap(errors.ErrCodeDriver, "cannot open session on kvm host", err)
	}
	h.conn, h.sess = conn, sess
	return nil
}

// Logoff implements hypervisors.Hypervisor.
func (h *Hypervisor) Logoff(ctx context.Context) error {
	if err := h.requireLogin(); err != nil {
		return err
	}
	slog.DebugContext(ctx, "performing logoff", "driver", h.Base)
	return h.release()
}

// Start (re)defines guestName from the storage_volumes and ifaces parameters
// and starts it. A running domain is destroyed first. With
// parameters.boot_method "network" the domain boots the kernel and initrd
// named in parameters.boot_options once, then is redefined without them.
func (h *Hypervisor) Start(ctx context.Context, guestName string, cpu, memory int, parameters map[string]any) error {
	if err := h.requireLogin(); err != nil {
		return err
	}
	slog.DebugContext(ctx, "performing start", "guest", guestName, "cpu", cpu, "memory", memory)

	v := virsh{sess: h.sess}
	if v.isRunning(ctx, guestName) {
		if err := v.destroy(ctx, guestName); err != nil {
			return err
		}
	}

	dom, err := newGuestDomain(guestName, cpu, memory, parameters)
	if err != nil {
		return err
	}
	domainXML, err := dom.XML(nil)
	if err != nil {
		return err
	}

	if v.isDefined(ctx, guestName) {
		if err := v.undefine(ctx, guestName); err != nil {
			return err
		}
	}

	opts, _ := parameters["parameters"].(map[string]any)
	if method, _ := opts["boot_method"].(string); method != "network" {
		if err := v.define(ctx, domainXML); err != nil {
			return err
		}
		return v.start(ctx, guestName)
	}

	bootOpts, _ := opts["boot_options"].(map[string]any)
	return h.netboot(ctx, v, dom, domainXML, bootOpts)
}

func (h *Hypervisor) netboot(ctx context.Context, v virsh, dom *guestDomain, domainXML string, opts map[string]any) error {
	str := func(k string) string { s, _ := opts[k].(string); return s }

	dir, err := v.mktemp(ctx, true)
	if err != nil {
		return err
	}
	defer v.removeAll(ctx, dir)

	boot := &netboot{Cmdline: str("cmdline")}
	if boot.Kernel, err = v.fetch(ctx, dir, "kernel", str("kernel_uri")); err != nil {
		return err
	}
	if boot.Initrd, err = v.fetch(ctx, dir, "initrd", str("initrd_uri")); err != nil {
		return err
	}

	bootXML, err := dom.XML(boot)
	if err != nil {
		return err
	}
	if err := v.define(ctx, bootXML); err != nil {
		return err
	}
	if err := v.start(ctx, dom.name); err != nil {
		return err
	}
	// later boots use the regular disks
	return v.define(ctx, domainXML)
}

// Stop destroys the running domain guestName.
func (h *Hypervisor) Stop(ctx context.Context, guestName string, _ map[string]any) error {
	v, err := h.activeDomain(ctx, guestName)
	if err != nil {
		return err
	}
	slog.DebugContext(ctx, "performing stop", "guest", guestName)
	return v.destroy(ctx, guestName)
}

// Reboot destroys and starts the running domain guestName.
func (h *Hypervisor) Reboot(ctx context.Context, guestName string, _ map[string]any) error {
	v, err := h.activeDomain(ctx, guestName)
	if err != nil {
		return err
	}
	slog.DebugContext(ctx, "performing reboot", "guest", guestName)
	if err := v.destroy(ctx, guestName); err != nil {
		return err
	}
	return v.start(ctx, guestName)
}

// Close implements hypervisors.Hypervisor.
func (h *Hypervisor) Close() error {
	if h.sess == nil {
		return nil
	}
	return h.release()
}

func (h *Hypervisor) activeDomain(ctx context.Context, guestName string) (virsh, error) {
	if err := h.requireLogin(); err != nil {
		return virsh{}, err
	}
	v := virsh{sess: h.sess}
	if !v.isDefined(ctx, guestName) {
		return v, errors.New(errors.ErrCodeDriver, fmt.Sprintf("domain %s is not defined", guestName))
	}
	if !v.isRunning(ctx, guestName) {
		return v, errors.New(errors.ErrCodeDriver, fmt.Sprintf("domain %s is not running", guestName))
	}
	return v, nil
}

func (h *Hypervisor) requireLogin() error {
	if h.sess == nil {
		return errors.New(errors.ErrCodeDriver, "you must login first")
	}
	return nil
}

func (h *Hypervisor) release() error {
	sessErr := h.sess.Close()
	connErr := h.conn.Close()
	h.sess, h.conn = nil, nil
	if sessErr != nil {
		return errors.Wrap(errors.ErrCodeDriver, "cannot close host session", sessErr)
	}
	if connErr != nil {
		return errors.Wrap(errors.ErrCodeDriver, "cannot close host connection", connErr)
	}
	return nil
}
