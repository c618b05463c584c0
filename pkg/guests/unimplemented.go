package guests

import (
	"context"
	"time"

	"github.com/usestring/baselib/pkg/driver"
	"github.com/usestring/baselib/pkg/session"
	"github.com/usestring/baselib/pkg/types"
)

const kind = "guest"

// Unimplemented can be embedded by drivers that only provide part of the
// Guest interface. Every method fails with a not-implemented error.
type Unimplemented struct{}

// Login implements Guest.
func (Unimplemented) Login(context.Context, time.Duration) error {
	return driver.NotImplemented(kind, "login")
}

// Logoff implements Guest.
func (Unimplemented) Logoff(context.Context) error {
	return driver.NotImplemented(kind, "logoff")
}

// Hotplug implements Guest.
func (Unimplemented) Hotplug(context.Context, string, map[string]any, map[string]any) error {
	return driver.NotImplemented(kind, types.OpHotplug)
}

// InstallPackages implements Guest.
func (Unimplemented) InstallPackages(context.Context, []string) error {
	return driver.NotImplemented(kind, "install_packages")
}

// OpenSession implements Guest.
func (Unimplemented) OpenSession(context.Context, map[string]any) (session.Session, error) {
	return nil, driver.NotImplemented(kind, "open_session")
}

// PullFile implements Guest.
func (Unimplemented) PullFile(context.Context, string, string) error {
	return driver.NotImplemented(kind, "pull_file")
}

// PushFile implements Guest.
func (Unimplemented) PushFile(context.Context, string, string, WriteMode) error {
	return driver.NotImplemented(kind, "push_file")
}

// Stop implements Guest.
func (Unimplemented) Stop(context.Context) error {
	return driver.NotImplemented(kind, types.OpStop)
}
