// Package validators provides the pluggable parameter validator engines and
// the factory that selects one of them by identifier.
//
// The choice of constraint-checking library is a deployment decision: the
// factory is built from an immutable Registry and the configured default
// identifier, and callers only ever see the Engine interface.
package validators

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/usestring/baselib/pkg/errors"
	"github.com/usestring/baselib/pkg/schema"
)

// Built-in validator identifiers.
const (
	IDJSONSchema = "jsonschema"
	IDOpenAPI3   = "openapi3"
)

// Engine validates candidate values against one loaded schema. An engine is
// fully checked at construction; Validate keeps no state between calls.
type Engine interface {
	// Validate returns an ErrCodeValidation error listing the violated
	// constraints when candidate does not conform to the schema.
	Validate(candidate any) error

	// SchemaID returns the self-reference identifier of the loaded schema.
	SchemaID() string
}

// Constructor builds an Engine from a schema file path.
type Constructor func(schemaPath string) (Engine, error)

// Registry is an immutable mapping from validator identifier to constructor.
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry creates a registry holding a copy of constructors.
func NewRegistry(constructors map[string]Constructor) *Registry {
	return &Registry{constructors: maps.Clone(constructors)}
}

// Builtin returns the registry of the engines shipped with this module, all
// reading schemas through loader.
func Builtin(loader *schema.Loader) *Registry {
	return NewRegistry(map[string]Constructor{
		IDJSONSchema: NewJSONSchema(loader),
		IDOpenAPI3:   NewOpenAPI3(loader),
	})
}

// Lookup returns the constructor registered under id.
func (r *Registry) Lookup(id string) (Constructor, bool) {
	c, ok := r.constructors[id]
	return c, ok
}

// IDs returns the registered identifiers in sorted order.
func (r *Registry) IDs() []string {
	return slices.Sorted(maps.Keys(r.constructors))
}

// Factory creates engines by identifier, falling back to a configured default.
type Factory struct {
	registry  *Registry
	defaultID string
}

// NewFactory creates a factory. An empty defaultID means no default is
// configured and Create requires an explicit identifier.
func NewFactory(registry *Registry, defaultID string) *Factory {
	return &Factory{registry: registry, defaultID: defaultID}
}

// DefaultID returns the configured default identifier.
func (f *Factory) DefaultID() string {
	return f.defaultID
}

// Registry returns the registry the factory selects from.
func (f *Factory) Registry() *Registry {
	return f.registry
}

// Create instantiates the engine registered under id for the schema at
// schemaPath. An empty id selects the configured default.
func (f *Factory) Create(schemaPath, id string) (Engine, error) {
	if id == "" {
		if f.defaultID == "" {
			return nil, errors.New(errors.ErrCodeConfiguration,
				"default schema validator not defined in configuration")
		}
		id = f.defaultID
	}

	construct, ok := f.registry.Lookup(id)
	if !ok {
		return nil, errors.NewWithContext(errors.ErrCodeConfiguration,
			fmt.Sprintf("%q is not a valid validator, use one of: %s", id, strings.Join(f.registry.IDs(), ", ")),
			map[string]any{"validator": id})
	}

	return construct(schemaPath)
}

// normalize converts candidate to plain JSON values (map[string]any, []any,
// float64, string, bool, nil) without touching the caller's value.
func normalize(candidate any) (any, error) {
	return normalizeWith(candidate, func(data []byte) (any, error) {
		var value any
		err := json.Unmarshal(data, &value)
		return value, err
	})
}

func normalizeWith(candidate any, decode func([]byte) (any, error)) (any, error) {
	data, err := json.Marshal(candidate)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeValidation, "parameters are not JSON serializable", err)
	}
	value, err := decode(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeValidation, "parameters are not JSON serializable", err)
	}
	return value, nil
}

// validationError builds the structural-validation error for violations.
func validationError(schemaID string, violations []string, cause error) error {
	msg := "parameters do not conform to schema"
	if len(violations) > 0 {
		msg += ": " + strings.Join(violations, "; ")
	}
	return errors.WrapWithContext(errors.ErrCodeValidation, msg, cause, map[string]any{
		"schema":                    schemaID,
		errors.ContextKeyViolations: violations,
	})
}
