// Package hmc implements the hypervisor driver for logical partitions managed
// through a hardware management console.
package hmc

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
const ID = "hmc"

// Family is the schema family of the driver.
var Family = gate.Family{Name: "hypervisors/hmc"}

// Validated lists the operations whose parameters are checked against schemas.
var Validated = []string{types.OpStart, types.OpStop}

const statusOperating = "operating"

// Hypervisor drives LPARs through an HMC console session.
type Hypervisor struct {
	driver.Base
	hypervisors.Unimplemented

	console  session.Console
	loggedIn bool
}

var _ hypervisors.Hypervisor = (*Hypervisor)(nil)

// New creates an HMC driver talking to console.
func New(cfg driver.Config, console session.Console) *Hypervisor {
	h := &Hypervisor{Base: driver.NewBase(cfg), console: console}
	slog.Debug("create hmc hypervisor", "driver", h.Base)
	return h
}

// ID implements hypervisors.Hypervisor.
func (h *Hypervisor) ID() string {
	return ID
}

// Login implements hypervisors.Hypervisor. The optional "port" parameter
// selects the console API port.
func (h *Hypervisor) Login(ctx context.Context, timeout time.Duration) error {
	slog.DebugContext(ctx, "performing login", "driver", h.Base)
	if h.loggedIn {
		slog.WarnContext(ctx, "login called with connection already active, dropping previous session")
	}
	if err := h.console.Login(ctx, h.HostName, h.User, h.Passwd, h.Int("port", 0), timeout); err != nil {
		return errors.Wrap(errors.ErrCodeDriver, "hmc login failed", err)
	}
	h.loggedIn = true
	return nil
}

// Logoff implements hypervisors.Hypervisor.
func (h *Hypervisor) Logoff(ctx context.Context) error {
	if err := h.requireLogin(); err != nil {
		return err
	}
	h.loggedIn = false
	return h.console.Logoff(ctx)
}

// Start activates (when needed) and loads the LPAR guestName. Parameters:
// cpc_name, ifl_cpus and boot_params (boot_method "scsi" with
// iface_devicenr, wwpn and lun, otherwise devicenr).
func (h *Hypervisor) Start(ctx context.Context, guestName string, cpu, memory int, parameters map[string]any) error {
	if err := h.requireLogin(); err != nil {
		return err
	}
	slog.DebugContext(ctx, "performing start", "guest", guestName, "cpu", cpu, "memory", memory)

	cpc, _ := parameters["cpc_name"].(string)
	lpar, err := h.console.LPAR(ctx, cpc, guestName)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDriver, "cannot get lpar", err)
	}
	// image profiles are named after their LPAR
	profile, err := h.console.ImageProfile(ctx, cpc, guestName)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDriver, "cannot get image profile", err)
	}

	wanted := Resources(cpu, driver.IntParam(parameters, "ifl_cpus", 0), memory)
	updated, err := updateResources(ctx, profile, wanted)
	if err != nil {
		return err
	}

	if updated {
		// new resources only apply on activation
		err = lpar.Activate(ctx, true)
	} else {
		var status string
		status, err = lpar.Status(ctx)
		if err == nil && status == "not-activated" {
			err = lpar.Activate(ctx, false)
		}
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeDriver, "cannot activate lpar", err)
	}

	boot, _ := parameters["boot_params"].(map[string]any)
	str := func(k string) string { s, _ := boot[k].(string); return s }
	if str("boot_method") == "scsi" {
		err = lpar.SCSILoad(ctx, str("iface_devicenr"), str("wwpn"), str("lun"))
	} else {
		err = lpar.Load(ctx, str("devicenr"))
	}
	if err != nil {
		if updated {
			slog.WarnContext(ctx, "load failed after image profile update, profile left as updated", "guest", guestName)
		}
		return errors.Wrap(errors.ErrCodeDriver, "cannot load lpar", err)
	}
	return nil
}

// Stop stops and clears the LPAR guestName, which must be operating.
func (h *Hypervisor) Stop(ctx context.Context, guestName string, parameters map[string]any) error {
	if err := h.requireLogin(); err != nil {
		return err
	}
	slog.DebugContext(ctx, "performing stop", "guest", guestName)

	cpc, _ := parameters["cpc_name"].(string)
	lpar, err := h.console.LPAR(ctx, cpc, guestName)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDriver, "cannot get lpar", err)
	}
	status, err := lpar.Status(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDriver, "cannot get lpar status", err)
	}
	if status != statusOperating {
		return errors.NewWithContext(errors.ErrCodeDriver,
			fmt.Sprintf("operation not allowed on lpar with status %q", status),
			map[string]any{"guest": guestName})
	}
	if err := lpar.Stop(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeDriver, "cannot stop lpar", err)
	}
	if err := lpar.ResetClear(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeDriver, "cannot reset lpar", err)
	}
	return nil
}

// Close implements hypervisors.Hypervisor.
func (h *Hypervisor) Close() error {
	h.loggedIn = false
	return nil
}

func (h *Hypervisor) requireLogin() error {
	if !h.loggedIn {
		return errors.New(errors.ErrCodeDriver, "you need to login first")
	}
	return nil
}

// Resources computes the image profile processor and storage values for a
// total of cpu processors of which ifl are IFLs.
func Resources(cpu, ifl, memory int) session.ProfileProperties {
	return session.ProfileProperties{
		CentralStorage: memory,
		SharedCP:       cpu - ifl,
		SharedIFL:      ifl,
	}
}

// updateResources writes wanted to profile when it differs and reports
// whether an update happened.
func updateResources(ctx context.Context, profile session.ImageProfile, wanted session.ProfileProperties) (bool, error) {
	current, err := profile.Properties(ctx)
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeDriver, "cannot read image profile", err)
	}
	if current == wanted {
		return false, nil
	}
	slog.DebugContext(ctx, "updating image profile", "from", current, "to", wanted)
	if err := profile.Update(ctx, wanted); err != nil {
		return false, errors.Wrap(errors.ErrCodeDriver, "cannot update image profile", err)
	}
	return true, nil
}
