package hypervisors

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/baselib/pkg/driver"
	"github.com/usestring/baselib/pkg/errors"
	"github.com/usestring/baselib/pkg/gate"
	"github.com/usestring/baselib/pkg/schema"
	"github.com/usestring/baselib/pkg/types"
	"github.com/usestring/baselib/pkg/validators"
)

// bare provides nothing beyond identity.
type bare struct {
	Unimplemented
}

func (bare) ID() string   { return "bare" }
func (bare) Close() error { return nil }

// full overrides every operation and records the calls it receives.
type full struct {
	calls  []string
	params map[string]any
	closed bool
}

func (f *full) ID() string { return "full" }
func (f *full) Login(context.Context, time.Duration) error {
	f.calls = append(f.calls, "login")
	return nil
}
func (f *full) Logoff(context.Context) error {
	f.calls = append(f.calls, "logoff")
	return nil
}
func (f *full) Start(_ context.Context, guest string, _, _ int, p map[string]any) error {
	f.calls = append(f.calls, "start "+guest)
	f.params = p
	return nil
}
func (f *full) Stop(_ context.Context, guest string, _ map[string]any) error {
	f.calls = append(f.calls, "stop "+guest)
	return nil
}
func (f *full) Reboot(_ context.Context, guest string, _ map[string]any) error {
	f.calls = append(f.calls, "reboot "+guest)
	return nil
}
func (f *full) Close() error {
	f.closed = true
	return nil
}

func newTable(t *testing.T) *gate.Table {
	t.Helper()
	base := t.TempDir()
	dir := filepath.Join(base, "full", "actions")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "start.json"), []byte(`{
		"type": "object",
		"required": ["image"],
		"properties": {"image": {"type": "string"}}
	}`), 0o644))

	factory := validators.NewFactory(validators.Builtin(schema.NewLoader()), validators.IDJSONSchema)
	g := gate.New(schema.NewStore(base, ""), factory)
	return g.NewTable(gate.Family{Name: "hypervisors/full"})
}

func TestUnimplemented(t *testing.T) {
	var h Hypervisor = bare{}
	ctx := context.Background()

	errs := []error{
		h.Login(ctx, time.Second),
		h.Logoff(ctx),
		h.Start(ctx, "guest", 1, 1024, nil),
		h.Stop(ctx, "guest", nil),
		h.Reboot(ctx, "guest", nil),
	}
	for _, err := range errs {
		assert.True(t, errors.HasCode(err, errors.ErrCodeNotImplemented), err)
	}
}

func TestProxy_unimplementedThroughProxy(t *testing.T) {
	p, err := NewProxy(newTable(t), bare{}, nil)
	require.NoError(t, err)

	err = p.Reboot(context.Background(), "guest", map[string]any{})
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotImplemented), err)
}

func TestProxy_validatesRegisteredOperations(t *testing.T) {
	impl := &full{}
	p, err := NewProxy(newTable(t), impl, []string{types.OpInit, types.OpStart})
	require.NoError(t, err)
	assert.Equal(t, driver.StateReady, p.State())
	require.Len(t, p.Descriptors(), 1)
	assert.Equal(t, types.OpStart, p.Descriptors()[0].Operation)

	ctx := context.Background()
	err = p.Start(ctx, "guest01", 2, 1024, map[string]any{"image": 7})
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation), err)
	assert.Empty(t, impl.calls)

	params := map[string]any{"image": "rhel9"}
	require.NoError(t, p.Start(ctx, "guest01", 2, 1024, params))
	assert.Equal(t, params, impl.params)

	// not registered, forwarded without a schema
	require.NoError(t, p.Stop(ctx, "guest01", nil))
	assert.Equal(t, []string{"start guest01", "stop guest01"}, impl.calls)
	assert.Same(t, impl, p.Unwrap())
}

func TestProxy_missingSchemaFailsAtCall(t *testing.T) {
	impl := &full{}
	p, err := NewProxy(newTable(t), impl, []string{types.OpReboot})
	require.NoError(t, err)

	err = p.Reboot(context.Background(), "guest01", map[string]any{})
	assert.True(t, errors.HasCode(err, errors.ErrCodeResource), err)
	assert.Empty(t, impl.calls)
}

func TestProxy_rejectsUnknownValidatedOperation(t *testing.T) {
	_, err := NewProxy(newTable(t), &full{}, []string{types.OpHotplug})
	assert.True(t, errors.HasCode(err, errors.ErrCodeContract), err)
}

func TestProxy_close(t *testing.T) {
	impl := &full{}
	p, err := NewProxy(newTable(t), impl, nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, p.Login(ctx, time.Second))
	require.NoError(t, p.Close())
	assert.True(t, impl.closed)
	assert.Equal(t, driver.StateClosed, p.State())

	for _, err := range []error{
		p.Login(ctx, time.Second),
		p.Logoff(ctx),
		p.Start(ctx, "guest01", 1, 512, map[string]any{"image": "x"}),
		p.Stop(ctx, "guest01", nil),
		p.Reboot(ctx, "guest01", nil),
		p.Close(),
	} {
		assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidState), err)
	}
	assert.Equal(t, []string{"login"}, impl.calls)
}
