// Package guests defines the contract implemented by every guest operating
// system driver and the validating proxy drivers are served through.
//
// Guest drivers live in subpackages (cms, linux) and are built by the
// guestfactory package.
package guests

import (
	"context"
	"time"

	"github.com/usestring/baselib/pkg/gate"
	"github.com/usestring/baselib/pkg/session"
	"github.com/usestring/baselib/pkg/types"
)

// Hotplug methods.
const (
	MethodAttach = "attach"
	MethodDetach = "detach"
)

// WriteMode selects how PushFile writes its target.
type WriteMode string

const (
	// WriteTruncate replaces the target file.
	WriteTruncate WriteMode = "wb"
	// WriteAppend appends to the target file.
	WriteAppend WriteMode = "ab"
)

// Guest is the interface every guest driver implements.
type Guest interface {
	// ID returns the driver identifier, for example "linux".
	ID() string

	// Login connects to the guest with the credentials given at construction.
	Login(ctx context.Context, timeout time.Duration) error

	// Logoff closes the connection opened by Login.
	Logoff(ctx context.Context) error

	// Hotplug attaches or detaches resources, a mapping such as
	// {"cpu": 2, "memory": 512}. method is MethodAttach or MethodDetach.
	Hotplug(ctx context.Context, method string, resources, parameters map[string]any) error

	// InstallPackages installs packages with the guest package manager.
	InstallPackages(ctx context.Context, packages []string) error

	// OpenSession returns a command session on the guest.
	OpenSession(ctx context.Context, parameters map[string]any) (session.Session, error)

	// PullFile copies sourcePath from the guest to targetURL.
	PullFile(ctx context.Context, sourcePath, targetURL string) error

	// PushFile copies sourceURL to targetPath on the guest.
	PushFile(ctx context.Context, sourceURL, targetPath string, mode WriteMode) error

	// Stop shuts the guest down.
	Stop(ctx context.Context) error

	// Close releases the driver. No operation is accepted afterwards.
	Close() error
}

// Operation signatures as seen by the validation gate.
var (
	InitSignature = gate.Signature{
		Operation: types.OpInit,
		Args:      []string{"system_name", "host_name", "user", "passwd", types.ParametersArg},
	}
	HotplugSignature = gate.Signature{
		Operation: types.OpHotplug,
		Args:      []string{"method", "resources", types.ParametersArg},
	}
)

// Signatures maps each guest operation to its signature.
var Signatures = map[string]gate.Signature{
	types.OpInit:    InitSignature,
	types.OpHotplug: HotplugSignature,
}
