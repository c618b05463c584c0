package gate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/baselib/pkg/errors"
	"github.com/usestring/baselib/pkg/schema"
	"github.com/usestring/baselib/pkg/validators"
)

var kvm = Family{Name: "hypervisors/kvm"}

func newGate(t *testing.T, defaultID string, opts ...Option) (*Gate, string) {
	t.Helper()
	base := t.TempDir()
	dir := filepath.Join(base, "kvm", "actions")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "start.json"),
		[]byte(`{"type": "object", "required": ["action"]}`), 0o644))

	factory := validators.NewFactory(validators.Builtin(schema.NewLoader()), defaultID)
	return New(schema.NewStore(base, ""), factory, opts...), base
}

func TestGate_Describe(t *testing.T) {
	g, base := newGate(t, validators.IDJSONSchema)

	desc, err := g.Describe(kvm, Signature{Operation: "start", Args: []string{"guest_name", "cpu", "memory", "parameters"}})
	require.NoError(t, err)
	assert.Equal(t, 3, desc.ParamIndex)
	assert.Equal(t, filepath.Join(base, "kvm", "actions", "start.json"), desc.SchemaPath)
	assert.Equal(t, "actions", desc.Family.Category)

	info := desc.Info()
	assert.Equal(t, "kvm", info.Family)
	assert.Equal(t, "start", info.Operation)

	desc, err = g.Describe(Family{Name: "zvm", Category: "commands"}, Signature{Operation: "init", Args: []string{"parameters"}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "zvm", "commands", "init.json"), desc.SchemaPath)
}

func TestGate_Describe_contractErrors(t *testing.T) {
	g, _ := newGate(t, validators.IDJSONSchema)

	tests := []struct {
		name   string
		family Family
		sig    Signature
	}{
		{"unknown operation", kvm, Signature{Operation: "migrate", Args: []string{"parameters"}}},
		{"missing parameters argument", kvm, Signature{Operation: "start", Args: []string{"guest_name", "params"}}},
		{"no arguments", kvm, Signature{Operation: "stop"}},
		{"empty family", Family{Name: "/"}, Signature{Operation: "stop", Args: []string{"parameters"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			op, _, err := g.Wrap(tt.family, tt.sig, func(context.Context, ...any) (any, error) {
				called = true
				return nil, nil
			})
			require.Error(t, err)
			assert.Nil(t, op)
			assert.True(t, errors.HasCode(err, errors.ErrCodeContract), err)
			assert.False(t, called)
		})
	}
}

func TestGate_Wrap_rejectsBeforeInvoking(t *testing.T) {
	g, _ := newGate(t, validators.IDJSONSchema)

	calls := 0
	start, _, err := g.Wrap(kvm, Signature{Operation: "start", Args: []string{"guest_name", "parameters"}},
		func(_ context.Context, args ...any) (any, error) {
			calls++
			return args[0], nil
		})
	require.NoError(t, err)

	_, err = start(context.Background(), "vm01", map[string]any{})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
	assert.Equal(t, 0, calls)

	got, err := start(context.Background(), "vm01", map[string]any{"action": "boot"})
	require.NoError(t, err)
	assert.Equal(t, "vm01", got)
	assert.Equal(t, 1, calls)

	_, err = start(context.Background(), "vm01")
	assert.True(t, errors.HasCode(err, errors.ErrCodeContract))
	assert.Equal(t, 1, calls)
}

func TestGate_Wrap_forwardsArgumentsUnchanged(t *testing.T) {
	g, _ := newGate(t, validators.IDJSONSchema)

	params := map[string]any{"action": "boot", "nested": map[string]any{"disks": []any{"a", "b"}}}
	var seen []any
	start, _, err := g.Wrap(kvm, Signature{Operation: "start", Args: []string{"parameters", "cpu"}},
		func(_ context.Context, args ...any) (any, error) {
			seen = args
			return "ok", nil
		})
	require.NoError(t, err)

	for range 2 {
		got, err := start(context.Background(), params, 4)
		require.NoError(t, err)
		assert.Equal(t, "ok", got)
	}

	require.Len(t, seen, 2)
	assert.Equal(t, 4, seen[1])
	assert.Equal(t, map[string]any{"action": "boot", "nested": map[string]any{"disks": []any{"a", "b"}}}, params)
	// the wrapped operation receives the caller's own map
	seen[0].(map[string]any)["marker"] = true
	assert.Contains(t, params, "marker")
}

func TestGate_Check_failures(t *testing.T) {
	g, base := newGate(t, "")

	desc, err := g.Describe(kvm, Signature{Operation: "start", Args: []string{"parameters"}})
	require.NoError(t, err)
	err = g.Check(context.Background(), desc, []any{map[string]any{"action": "boot"}})
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfiguration), err)

	g, _ = newGate(t, validators.IDJSONSchema)
	err = g.Validate(context.Background(), kvm, "stop", map[string]any{})
	assert.True(t, errors.HasCode(err, errors.ErrCodeResource), err)

	require.NoError(t, os.WriteFile(filepath.Join(base, "kvm", "actions", "start.json"), []byte(`{"type": 1}`), 0o644))
	g = New(schema.NewStore(base, ""), validators.NewFactory(validators.Builtin(schema.NewLoader()), validators.IDJSONSchema))
	err = g.Validate(context.Background(), kvm, "start", map[string]any{"action": "boot"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeSchemaMalformed), err)
}

func TestGate_metrics(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())
	g, _ := newGate(t, validators.IDJSONSchema, WithMetrics(metrics))
	ctx := context.Background()

	require.NoError(t, g.Validate(ctx, kvm, "start", map[string]any{"action": "boot"}))
	require.Error(t, g.Validate(ctx, kvm, "start", map[string]any{}))
	require.Error(t, g.Validate(ctx, kvm, "stop", map[string]any{}))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.validationsTotal.WithLabelValues("kvm", "start", ResultValid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.validationsTotal.WithLabelValues("kvm", "start", ResultInvalid)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.validationsTotal.WithLabelValues("kvm", "stop", ResultError)))
}

func TestTable(t *testing.T) {
	g, _ := newGate(t, validators.IDJSONSchema)
	table := g.NewTable(kvm)

	calls := 0
	table.MustRegister(Signature{Operation: "start", Args: []string{"parameters"}}, func(context.Context, ...any) (any, error) {
		calls++
		return nil, nil
	})

	assert.True(t, table.Has("start"))
	assert.False(t, table.Has("stop"))
	assert.Equal(t, kvm, table.Family())

	err := table.Register(Signature{Operation: "start", Args: []string{"parameters"}}, nil)
	assert.True(t, errors.HasCode(err, errors.ErrCodeContract))

	assert.Panics(t, func() {
		table.MustRegister(Signature{Operation: "reset", Args: []string{"parameters"}}, nil)
	})

	_, err = table.Call(context.Background(), "start", map[string]any{})
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
	_, err = table.Call(context.Background(), "start", map[string]any{"action": "boot"})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	_, err = table.Call(context.Background(), "stop", map[string]any{})
	assert.True(t, errors.HasCode(err, errors.ErrCodeContract))

	descs := table.Descriptors()
	require.Len(t, descs, 1)
	assert.Equal(t, "start", descs[0].Operation)
}

func TestGate_WithValidator(t *testing.T) {
	g, _ := newGate(t, "")
	ctx := context.Background()

	err := g.Validate(ctx, kvm, "start", map[string]any{"action": "boot"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfiguration), err)

	assert.Same(t, g, g.WithValidator(""))
	openapi := g.WithValidator(validators.IDOpenAPI3)
	require.NoError(t, openapi.Validate(ctx, kvm, "start", map[string]any{"action": "boot"}))
	assert.Same(t, g.Store(), openapi.Store())

	err = g.WithValidator("xsd").Validate(ctx, kvm, "start", map[string]any{"action": "boot"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeConfiguration), err)
}
