package kvm

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/baselib/pkg/driver"
	"github.com/usestring/baselib/pkg/errors"
	"github.com/usestring/baselib/pkg/session/sessiontest"
)

const ifaceXML = `<interface type="bridge"><source bridge="br0"/><model type="virtio"/></interface>`

func startParams() map[string]any {
	return map[string]any{
		"storage_volumes": []any{
			map[string]any{"path": "/dev/disk/by-id/dm-uuid-mpath-3600507", "boot_device": true},
			map[string]any{"libvirt": `<disk type="file" device="cdrom"/>`},
		},
		"ifaces": []any{
			map[string]any{"attributes": map[string]any{"libvirt": ifaceXML}},
		},
	}
}

func newDriver(t *testing.T, shell *sessiontest.Shell) *Hypervisor {
	t.Helper()
	h := New(driver.Config{SystemName: "kvm54", HostName: "kvm54.example.com", User: "root", Passwd: "x"}, shell)
	require.NoError(t, h.Login(context.Background(), time.Second))
	return h
}

func TestGuestDomain_XML(t *testing.T) {
	dom, err := newGuestDomain("guest01", 2, 2048, startParams())
	require.NoError(t, err)

	out, err := dom.XML(nil)
	require.NoError(t, err)
	assert.Contains(t, out, `<domain type="kvm">`)
	assert.Contains(t, out, `<name>guest01</name>`)
	assert.Contains(t, out, `<memory unit="MiB">2048</memory>`)
	assert.Contains(t, out, `<vcpu>2</vcpu>`)
	assert.Contains(t, out, `<source dev="/dev/disk/by-id/dm-uuid-mpath-3600507"/><target dev="vda" bus="virtio"/><boot order="1"/>`)
	assert.Contains(t, out, `<disk type="file" device="cdrom"/>`)
	assert.Contains(t, out, ifaceXML)
	assert.NotContains(t, out, "<kernel>")

	out, err = dom.XML(&netboot{Kernel: "/tmp/d/kernel", Initrd: "/tmp/d/initrd", Cmdline: "ro"})
	require.NoError(t, err)
	assert.Contains(t, out, "<kernel>/tmp/d/kernel</kernel>")
	assert.Contains(t, out, "<initrd>/tmp/d/initrd</initrd>")
	assert.Contains(t, out, "<cmdline>ro</cmdline>")
}

func TestGuestDomain_volumeWithoutPath(t *testing.T) {
	_, err := newGuestDomain("guest01", 1, 1024, map[string]any{
		"storage_volumes": []any{map[string]any{"boot_device": true}},
	})
	assert.True(t, errors.HasCode(err, errors.ErrCodeDriver), err)
}

func TestStart_newDomain(t *testing.T) {
	shell := sessiontest.NewShell().
		On("virsh dominfo", sessiontest.Reply{Status: 1, Output: "error: failed to get domain"}).
		On("mktemp", sessiontest.Reply{Output: "/tmp/tmp.abc.xml\n"})
	h := newDriver(t, shell)

	require.NoError(t, h.Start(context.Background(), "guest01", 2, 2048, startParams()))

	assert.False(t, shell.Ran("virsh destroy"))
	assert.False(t, shell.Ran("virsh undefine"))
	assert.True(t, shell.Ran("cat > /tmp/tmp.abc.xml <<'"+heredocMarker+"'"))
	assert.True(t, shell.Ran("virsh define /tmp/tmp.abc.xml"))
	assert.True(t, shell.Ran("rm /tmp/tmp.abc.xml"))
	cmds := shell.Commands()
	assert.Equal(t, "virsh start guest01", cmds[len(cmds)-1])
}

func TestStart_runningDomainIsReplaced(t *testing.T) {
	shell := sessiontest.NewShell().
		On("virsh dominfo", sessiontest.Reply{Output: "Id: 3\nName: guest01\nState: running\n"}).
		On("mktemp", sessiontest.Reply{Output: "/tmp/tmp.abc.xml"})
	h := newDriver(t, shell)

	require.NoError(t, h.Start(context.Background(), "guest01", 1, 1024, map[string]any{}))
	assert.True(t, shell.Ran("virsh destroy guest01"))
	assert.True(t, shell.Ran("virsh undefine guest01"))
	assert.True(t, shell.Ran("virsh start guest01"))
}

func TestStart_networkBoot(t *testing.T) {
	shell := sessiontest.NewShell().
		On("virsh dominfo", sessiontest.Reply{Status: 1}).
		On("mktemp -d", sessiontest.Reply{Output: "/tmp/boot.dir"}).
		On("mktemp", sessiontest.Reply{Output: "/tmp/tmp.abc.xml"})
	h := newDriver(t, shell)

	params := startParams()
	params["parameters"] = map[string]any{
		"boot_method": "network",
		"boot_options": map[string]any{
			"kernel_uri": "http://repo/kernel.img",
			"initrd_uri": "http://repo/initrd.img",
			"cmdline":    "inst.repo=http://repo",
		},
	}
	require.NoError(t, h.Start(context.Background(), "guest01", 2, 2048, params))

	assert.True(t, shell.Ran("curl -sSf -o /tmp/boot.dir/kernel 'http://repo/kernel.img'"))
	assert.True(t, shell.Ran("curl -sSf -o /tmp/boot.dir/initrd 'http://repo/initrd.img'"))
	assert.True(t, shell.Ran("<kernel>/tmp/boot.dir/kernel</kernel>"))
	assert.True(t, shell.Ran("rm -rf /tmp/boot.dir"))

	defines := 0
	for _, c := range shell.Commands() {
		if c == "virsh define /tmp/tmp.abc.xml" {
			defines++
		}
	}
	assert.Equal(t, 2, defines)
}

func TestStart_downloadFailure(t *testing.T) {
	shell := sessiontest.NewShell().
		On("virsh dominfo", sessiontest.Reply{Status: 1}).
		On("mktemp -d", sessiontest.Reply{Output: "/tmp/boot.dir"}).
		On("curl", sessiontest.Reply{Status: 22, Output: "curl: (22) 404"})
	h := newDriver(t, shell)

	err := h.Start(context.Background(), "guest01", 1, 1024, map[string]any{
		"parameters": map[string]any{"boot_method": "network", "boot_options": map[string]any{}},
	})
	assert.True(t, errors.HasCode(err, errors.ErrCodeDriver), err)
	assert.False(t, shell.Ran("virsh start"))
	assert.True(t, shell.Ran("rm -rf /tmp/boot.dir"))
}

func TestStopAndReboot(t *testing.T) {
	tests := []struct {
		name    string
		dominfo sessiontest.Reply
		wantErr string
	}{
		{"running", sessiontest.Reply{Output: "State: running"}, ""},
		{"shut off", sessiontest.Reply{Output: "State: shut off"}, "is not running"},
		{"undefined", sessiontest.Reply{Status: 1}, "is not defined"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shell := sessiontest.NewShell().On("virsh dominfo", tt.dominfo)
			h := newDriver(t, shell)
			ctx := context.Background()

			for _, op := range []func() error{
				func() error { return h.Stop(ctx, "guest01", nil) },
				func() error { return h.Reboot(ctx, "guest01", nil) },
			} {
				err := op()
				if tt.wantErr != "" {
					require.Error(t, err)
					assert.Contains(t, err.Error(), tt.wantErr)
					continue
				}
				require.NoError(t, err)
			}
			if tt.wantErr == "" {
				assert.True(t, shell.Ran("virsh destroy guest01"))
				assert.True(t, shell.Ran("virsh start guest01"))
			}
		})
	}
}

func TestLoginFailureAndLogoff(t *testing.T) {
	shell := sessiontest.NewShell()
	shell.ConnectErr = fmt.Errorf("connection refused")
	h := New(driver.Config{HostName: "kvm54"}, shell)
	ctx := context.Background()

	assert.True(t, errors.HasCode(h.Login(ctx, time.Second), errors.ErrCodeDriver))
	assert.True(t, errors.HasCode(h.Stop(ctx, "guest01", nil), errors.ErrCodeDriver))

	shell.ConnectErr = nil
	require.NoError(t, h.Login(ctx, time.Second))
	require.NoError(t, h.Logoff(ctx))
	assert.Equal(t, 1, shell.Closed)
	assert.Error(t, h.Logoff(ctx))
	assert.NoError(t, h.Close())
}
