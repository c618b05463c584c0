package hypervisors

import (
	"context"
	"time"

	"github.com/usestring/baselib/pkg/driver"
	"github.com/usestring/baselib/pkg/types"
)

const kind = "hypervisor"

// Unimplemented can be embedded by drivers that only provide part of the
// Hypervisor interface. Every method fails with a not-implemented error.
type Unimplemented struct{}

// Login implements Hypervisor.
func (Unimplemented) Login(context.Context, time.Duration) error {
	return driver.NotImplemented(kind, "login")
}

// Logoff implements Hypervisor.
func (Unimplemented) Logoff(context.Context) error {
	return driver.NotImplemented(kind, "logoff")
}

// Start implements Hypervisor.
func (Unimplemented) Start(context.Context, string, int, int, map[string]any) error {
	return driver.NotImplemented(kind, types.OpStart)
}

// Stop implements Hypervisor.
func (Unimplemented) Stop(context.Context, string, map[string]any) error {
	return driver.NotImplemented(kind, types.OpStop)
}

// Reboot implements Hypervisor.
func (Unimplemented) Reboot(context.Context, string, map[string]any) error {
	return driver.NotImplemented(kind, types.OpReboot)
}
