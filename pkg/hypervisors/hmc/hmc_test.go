package hmc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/baselib/pkg/driver"
	"github.com/usestring/baselib/pkg/errors"
	"github.com/usestring/baselib/pkg/session"
	"github.com/usestring/baselib/pkg/session/sessiontest"
)

func newDriver(t *testing.T, lpar *sessiontest.LPAR, profile *sessiontest.Profile) (*Hypervisor, *sessiontest.Console) {
	t.Helper()
	console := sessiontest.NewConsole("LP01", lpar, profile)
	h := New(driver.Config{
		SystemName: "cpc3",
		HostName:   "hmc.example.com",
		User:       "operator",
		Passwd:     "secret",
		Parameters: map[string]any{"port": 6794},
	}, console)
	require.NoError(t, h.Login(context.Background(), time.Second))
	return h, console
}

func TestResources(t *testing.T) {
	assert.Equal(t, session.ProfileProperties{CentralStorage: 4096, SharedCP: 1, SharedIFL: 3}, Resources(4, 3, 4096))
}

func TestLogin_usesPort(t *testing.T) {
	_, console := newDriver(t, &sessiontest.LPAR{}, &sessiontest.Profile{})
	assert.True(t, console.LoggedIn)
	assert.Equal(t, 6794, console.Port)
}

func TestRequiresLogin(t *testing.T) {
	h := New(driver.Config{}, sessiontest.NewConsole("LP01", &sessiontest.LPAR{}, &sessiontest.Profile{}))
	ctx := context.Background()
	assert.True(t, errors.HasCode(h.Start(ctx, "LP01", 1, 1024, map[string]any{}), errors.ErrCodeDriver))
	assert.True(t, errors.HasCode(h.Stop(ctx, "LP01", map[string]any{}), errors.ErrCodeDriver))
	assert.True(t, errors.HasCode(h.Logoff(ctx), errors.ErrCodeDriver))
}

func TestStart(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		current session.ProfileProperties
		boot    map[string]any
		want    []string
		updates int
	}{
		{
			name:    "profile updated forces activation",
			status:  "operating",
			current: session.ProfileProperties{CentralStorage: 2048, SharedCP: 2},
			boot:    map[string]any{"boot_method": "dasd", "devicenr": "0.0.3961"},
			want:    []string{"activate force=true", "load 0.0.3961"},
			updates: 1,
		},
		{
			name:    "not activated",
			status:  "not-activated",
			current: session.ProfileProperties{CentralStorage: 4096, SharedCP: 2},
			boot:    map[string]any{"boot_method": "dasd", "devicenr": "3961"},
			want:    []string{"activate force=false", "load 3961"},
		},
		{
			name:    "already active with scsi",
			status:  "not-operating",
			current: session.ProfileProperties{CentralStorage: 4096, SharedCP: 2},
			boot: map[string]any{
				"boot_method":    "scsi",
				"iface_devicenr": "0.0.1800",
				"wwpn":           "500507630b0a1234",
				"lun":            "0x4001400000000000",
			},
			want: []string{"scsi-load 0.0.1800 500507630b0a1234 0x4001400000000000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lpar := &sessiontest.LPAR{State: tt.status}
			profile := &sessiontest.Profile{Props: tt.current}
			h, _ := newDriver(t, lpar, profile)

			err := h.Start(context.Background(), "LP01", 2, 4096, map[string]any{
				"cpc_name":    "CPC3",
				"boot_params": tt.boot,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, lpar.Calls)
			assert.Equal(t, tt.updates, profile.Updates)
			assert.Equal(t, session.ProfileProperties{CentralStorage: 4096, SharedCP: 2}, profile.Props)
		})
	}
}

func TestStart_unknownLPAR(t *testing.T) {
	h, _ := newDriver(t, &sessiontest.LPAR{}, &sessiontest.Profile{})
	err := h.Start(context.Background(), "LP99", 1, 1024, map[string]any{"cpc_name": "CPC3"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeDriver), err)
}

func TestStop(t *testing.T) {
	lpar := &sessiontest.LPAR{State: "operating"}
	h, _ := newDriver(t, lpar, &sessiontest.Profile{})
	ctx := context.Background()

	require.NoError(t, h.Stop(ctx, "LP01", map[string]any{"cpc_name": "CPC3"}))
	assert.Equal(t, []string{"stop", "reset-clear"}, lpar.Calls)

	err := h.Stop(ctx, "LP01", map[string]any{"cpc_name": "CPC3"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeDriver), err)
	assert.Contains(t, err.Error(), `"not-operating"`)
}

func TestRebootNotImplemented(t *testing.T) {
	h, _ := newDriver(t, &sessiontest.LPAR{}, &sessiontest.Profile{})
	err := h.Reboot(context.Background(), "LP01", map[string]any{})
	assert.True(t, errors.HasCode(err, errors.ErrCodeNotImplemented), err)
}
