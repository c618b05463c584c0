// Package hypervisors defines the contract implemented by every hypervisor
// driver and the validating proxy drivers are served through.
//
// Hypervisor drivers live in subpackages (hmc, kvm, zvm) and are built by
// the hypervisorfactory package, which callers use instead of the concrete
// types:
//
//	hyp, err := factory.New(ctx, "kvm", driver.Config{HostName: "kvm01", ...})
//	if err != nil {
//	    return err
//	}
//	defer hyp.Close()
//
//	if err := hyp.Login(ctx, time.Minute); err != nil {
//	    return err
//	}
//	err = hyp.Start(ctx, "vm01", 2, 4096, parameters)
package hypervisors

import (
	"context"
	"time"

	"github.com/usestring/baselib/pkg/gate"
	"github.com/usestring/baselib/pkg/types"
)

// Hypervisor is the interface every hypervisor driver implements.
type Hypervisor interface {
	// ID returns the driver identifier, for example "kvm".
	ID() string

	// Login connects to the hypervisor with the credentials given at
	// construction.
	Login(ctx context.Context, timeout time.Duration) error

	// Logoff closes the connection opened by Login.
	Logoff(ctx context.Context) error

	// Start activates guestName with cpu processors and memory MiB of memory.
	Start(ctx context.Context, guestName string, cpu, memory int, parameters map[string]any) error

	// Stop deactivates guestName.
	Stop(ctx context.Context, guestName string, parameters map[string]any) error

	// Reboot restarts guestName.
	Reboot(ctx context.Context, guestName string, parameters map[string]any) error

	// Close releases the driver. No operation is accepted afterwards.
	Close() error
}

// Operation signatures as seen by the validation gate.
var (
	InitSignature = gate.Signature{
		Operation: types.OpInit,
		Args:      []string{"system_name", "host_name", "user", "passwd", types.ParametersArg},
	}
	StartSignature = gate.Signature{
		Operation: types.OpStart,
		Args:      []string{"guest_name", "cpu", "memory", types.ParametersArg},
	}
	StopSignature = gate.Signature{
		Operation: types.OpStop,
		Args:      []string{"guest_name", types.ParametersArg},
	}
	RebootSignature = gate.Signature{
		Operation: types.OpReboot,
		Args:      []string{"guest_name", types.ParametersArg},
	}
)

// Signatures maps each hypervisor operation to its signature.
var Signatures = map[string]gate.Signature{
	types.OpInit:   InitSignature,
	types.OpStart:  StartSignature,
	types.OpStop:   StopSignature,
	types.OpReboot: RebootSignature,
}
