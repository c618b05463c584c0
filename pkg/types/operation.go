package types

import "slices"

// Recognized operation names. Only these operations may be registered with
// the validation gate.
const (
	OpInit    = "init"
	OpStart   = "start"
	OpStop    = "stop"
	OpHotplug = "hotplug"
	OpReboot  = "reboot"
)

// ParametersArg is the declared argument name that carries the parameters
// mapping of a validated operation.
const ParametersArg = "parameters"

var operations = []string{OpHotplug, OpInit, OpReboot, OpStart, OpStop}

// Parameters is the structured mapping handed to validated operations.
type Parameters = map[string]any

// IsOperation reports whether name is a recognized operation name.
func IsOperation(name string) bool {
	_, found := slices.BinarySearch(operations, name)
	return found
}

// Operations returns the recognized operation names in sorted order.
func Operations() []string {
	return slices.Clone(operations)
}
