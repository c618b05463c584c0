// Package gate validates the parameters of driver operations before they run.
//
// Binding happens in two phases. At registration time Describe checks the
// operation name and signature and computes a Descriptor (parameter position
// and schema path). At call time Check builds a fresh validator engine from the
// descriptor and validates the designated argument; the wrapped operation runs
// only when validation succeeds, with its arguments unchanged.
package gate

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/usestring/baselib/pkg/errors"
	"github.com/usestring/baselib/pkg/schema"
	"github.com/usestring/baselib/pkg/types"
	"github.com/usestring/baselib/pkg/validators"
)

// Family identifies a driver family and the schema category of its operations.
type Family struct {
	// Name is the family identifier or module path, only its last segment
	// selects the schema directory.
	Name string
	// Category is the schema subdirectory, empty for the store default.
	Category string
}

// Signature is the declared shape of an operation: its name and the ordered
// names of its arguments.
type Signature struct {
	Operation string
	Args      []string
}

// Descriptor is the registration-time binding of an operation to its schema.
type Descriptor struct {
	Family     Family
	Operation  string
	Args       []string
	ParamIndex int
	SchemaPath string
}

// Info returns the serializable view of the descriptor.
func (d *Descriptor) Info() types.OperationInfo {
	return types.OperationInfo{
		Family:     schema.FamilySegment(d.Family.Name),
		Category:   d.Family.Category,
		Operation:  d.Operation,
		Args:       slices.Clone(d.Args),
		ParamIndex: d.ParamIndex,
		SchemaPath: d.SchemaPath,
	}
}

// Operation is a driver operation taking positional arguments.
type Operation func(ctx context.Context, args ...any) (any, error)

// Gate binds operations to schemas and validates their parameters.
type Gate struct {
	store   *schema.Store
	factory *validators.Factory
	metrics *Metrics
}

// Option configures a Gate.
type Option func(*Gate)

// WithMetrics records every validation in m.
func WithMetrics(m *Metrics) Option {
	return func(g *Gate) {
		g.metrics = m
	}
}

// New creates a gate resolving schemas in store and building engines with
// factory's default validator.
func New(store *schema.Store, factory *validators.Factory, opts ...Option) *Gate {
	g := &Gate{store: store, factory: factory}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Store returns the schema store used to resolve schema paths.
func (g *Gate) Store() *schema.Store {
	return g.store
}

// WithValidator returns a gate sharing g's store and metrics whose engines
// are built with the validator id instead of the configured default.
func (g *Gate) WithValidator(id string) *Gate {
	if id == "" {
		return g
	}
	clone := *g
	clone.factory = validators.NewFactory(g.factory.Registry(), id)
	return &clone
}

// Describe computes the descriptor of an operation. It fails with a contract
// error when the operation name is not recognized or when no argument is
// named "parameters".
func (g *Gate) Describe(family Family, sig Signature) (*Descriptor, error) {
	if !types.IsOperation(sig.Operation) {
		return nil, errors.NewWithContext(errors.ErrCodeContract,
			fmt.Sprintf("%q is not a recognized operation, use one of: %s",
				sig.Operation, strings.Join(types.Operations(), ", ")),
			map[string]any{"family": family.Name, "operation": sig.Operation})
	}

	idx := slices.Index(sig.Args, types.ParametersArg)
	if idx < 0 {
		return nil, errors.NewWithContext(errors.ErrCodeContract,
			fmt.Sprintf("operation %q declares no %q argument", sig.Operation, types.ParametersArg),
			map[string]any{"family": family.Name, "operation": sig.Operation, "args": sig.Args})
	}

	path, err := g.store.Resolve(family.Name, family.Category, sig.Operation)
	if err != nil {
		return nil, err
	}

	category := family.Category
	if category == "" {
		category = g.store.Category()
	}
	return &Descriptor{
		Family:     Family{Name: family.Name, Category: category},
		Operation:  sig.Operation,
		Args:       slices.Clone(sig.Args),
		ParamIndex: idx,
		SchemaPath: path,
	}, nil
}

// Wrap describes op and returns it guarded by Check.
func (g *Gate) Wrap(family Family, sig Signature, op Operation) (Operation, *Descriptor, error) {
	desc, err := g.Describe(family, sig)
	if err != nil {
		return nil, nil, err
	}
	wrapped := func(ctx context.Context, args ...any) (any, error) {
		if err := g.Check(ctx, desc, args); err != nil {
			return nil, err
		}
		return op(ctx, args...)
	}
	return wrapped, desc, nil
}

// Check validates the parameters argument of a call described by desc. Each
// call builds its own engine, so schema changes on disk apply immediately.
func (g *Gate) Check(ctx context.Context, desc *Descriptor, args []any) error {
	if desc.ParamIndex >= len(args) {
		return errors.NewWithContext(errors.ErrCodeContract,
			fmt.Sprintf("operation %q called with %d arguments, %q is argument %d",
				desc.Operation, len(args), types.ParametersArg, desc.ParamIndex),
			map[string]any{"operation": desc.Operation})
	}
	return g.validate(ctx, desc, args[desc.ParamIndex])
}

// Validate checks parameters against the schema of operation in family
// without invoking anything.
func (g *Gate) Validate(ctx context.Context, family Family, operation string, parameters any) error {
	desc, err := g.Describe(family, Signature{Operation: operation, Args: []string{types.ParametersArg}})
	if err != nil {
		return err
	}
	return g.validate(ctx, desc, parameters)
}

func (g *Gate) validate(ctx context.Context, desc *Descriptor, parameters any) error {
	callID := uuid.NewString()
	family := schema.FamilySegment(desc.Family.Name)
	start := time.Now()

	slog.DebugContext(ctx, "validating operation parameters",
		"call_id", callID,
		"family", family,
		"operation", desc.Operation,
		"schema", desc.SchemaPath,
	)

	result := ResultValid
	engine, err := g.factory.Create(desc.SchemaPath, "")
	if err == nil {
		err = engine.Validate(parameters)
	}
	if err != nil {
		result = ResultError
		if errors.HasCode(err, errors.ErrCodeValidation) {
			result = ResultInvalid
		}
	}
	g.metrics.RecordValidation(family, desc.Operation, result, time.Since(start))

	if err != nil {
		slog.DebugContext(ctx, "operation parameters rejected",
			"call_id", callID,
			"operation", desc.Operation,
			"result", result,
			"error", err,
		)
		return err
	}
	return nil
}
