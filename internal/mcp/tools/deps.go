package tools

import (
	"github.com/usestring/baselib/internal/app"
)

// Deps contains all dependencies needed by tool handlers.
type Deps struct {
	App *app.App
}
