package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/baselib/pkg/errors"
)

func TestLifecycle(t *testing.T) {
	var l Lifecycle
	assert.Equal(t, StateUninitialized, l.State())

	err := l.Require("start")
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidState))
	assert.Contains(t, err.Error(), "uninitialized")

	require.NoError(t, l.MarkReady())
	require.NoError(t, l.Require("start"))
	assert.True(t, errors.HasCode(l.MarkReady(), errors.ErrCodeInvalidState))

	require.NoError(t, l.Close())
	assert.Equal(t, StateClosed, l.State())
	assert.True(t, errors.HasCode(l.Require("stop"), errors.ErrCodeInvalidState))
	assert.True(t, errors.HasCode(l.Close(), errors.ErrCodeInvalidState))
	assert.True(t, errors.HasCode(l.MarkReady(), errors.ErrCodeInvalidState))
}

func TestNewBase_copiesParameters(t *testing.T) {
	params := map[string]any{"port": 6794.0, "cpc_name": "CPC3"}
	b := NewBase(Config{SystemName: "hmc01", Parameters: params})
	params["port"] = 1.0

	assert.Equal(t, 6794, b.Int("port", 0))
	assert.Equal(t, "CPC3", b.Param("cpc_name"))
	assert.Equal(t, "", b.Param("missing"))
	assert.Equal(t, 22, b.Int("missing", 22))

	assert.NotNil(t, NewBase(Config{}).Parameters)
}

func TestBase_LogValue_omitsPassword(t *testing.T) {
	b := NewBase(Config{SystemName: "kvm01", Passwd: "secret"})
	assert.NotContains(t, b.LogValue().String(), "secret")
}

func TestNotImplemented(t *testing.T) {
	err := NotImplemented("hypervisor", "reboot")
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotImplemented))
	assert.Contains(t, err.Error(), "reboot")
}
