package mcpsrv

import (
	"github.com/usestring/baselib/pkg/gate"
	"github.com/usestring/baselib/pkg/guestfactory"
	"github.com/usestring/baselib/pkg/hypervisorfactory"
	"github.com/usestring/baselib/pkg/schema"
	"github.com/usestring/baselib/pkg/validators"
)

// Deps contains all dependencies available to custom tools.
// This gives custom tools access to the same infrastructure as builtin tools.
type Deps struct {
	Store       *schema.Store
	Loader      *schema.Loader
	Validators  *validators.Factory
	Gate        *gate.Gate
	Hypervisors *hypervisorfactory.Factory
	Guests      *guestfactory.Factory
}
