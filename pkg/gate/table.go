package gate

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/usestring/baselib/pkg/errors"
)

type entry struct {
	desc *Descriptor
	op   Operation
}

// Table is the wrapped-operation table of one driver family. It is filled
// during registration and only read afterwards.
type Table struct {
	gate   *Gate
	family Family
	ops    map[string]entry
}

// NewTable creates an empty table for family.
func (g *Gate) NewTable(family Family) *Table {
	return &Table{gate: g, family: family, ops: make(map[string]entry)}
}

// Family returns the family the table was created for.
func (t *Table) Family() Family {
	return t.family
}

// Register binds op under sig.Operation. Registering the same operation twice
// is a contract error.
func (t *Table) Register(sig Signature, op Operation) error {
	if _, ok := t.ops[sig.Operation]; ok {
		return errors.NewWithContext(errors.ErrCodeContract,
			fmt.Sprintf("operation %q already registered", sig.Operation),
			map[string]any{"family": t.family.Name})
	}
	wrapped, desc, err := t.gate.Wrap(t.family, sig, op)
	if err != nil {
		return err
	}
	t.ops[sig.Operation] = entry{desc: desc, op: wrapped}
	return nil
}

// MustRegister is like Register but panics on error. It is meant for
// registrations whose signatures are fixed in code.
func (t *Table) MustRegister(sig Signature, op Operation) {
	if err := t.Register(sig, op); err != nil {
		panic(err)
	}
}

// Has reports whether operation is registered.
func (t *Table) Has(operation string) bool {
	_, ok := t.ops[operation]
	return ok
}

// Call validates args and invokes the operation registered under name.
func (t *Table) Call(ctx context.Context, operation string, args ...any) (any, error) {
	e, ok := t.ops[operation]
	if !ok {
		return nil, errors.NewWithContext(errors.ErrCodeContract,
			fmt.Sprintf("operation %q is not registered", operation),
			map[string]any{"family": t.family.Name})
	}
	return e.op(ctx, args...)
}

// Descriptors returns the registered descriptors sorted by operation name.
func (t *Table) Descriptors() []*Descriptor {
	out := make([]*Descriptor, 0, len(t.ops))
	for _, name := range slices.Sorted(maps.Keys(t.ops)) {
		out = append(out, t.ops[name].desc)
	}
	return out
}
