package kvm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/usestring/baselib/pkg/errors"
	"github.com/usestring/baselib/pkg/session"
)

const commandTimeout = 120 * time.Second

// heredocMarker terminates the here-document used to write files on the host.
const heredocMarker = "BASELIB_EOF"

// virsh runs libvirt commands through a host shell session.
type virsh struct {
	sess session.Session
}

func (v virsh) run(ctx context.Context, cmd string) (string, error) {
	status, output, err := v.sess.Run(ctx, cmd, commandTimeout)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeDriver, "cannot run command on host", err)
	}
	if status != 0 {
		return output, errors.NewWithContext(errors.ErrCodeDriver,
			fmt.Sprintf("command failed with status %d: %s", status, strings.TrimSpace(output)),
			map[string]any{"command": cmd})
	}
	return output, nil
}

// dominfo returns the key/value pairs printed by virsh dominfo.
func (v virsh) dominfo(ctx context.Context, domain string) (map[string]string, error) {
	output, err := v.run(ctx, "virsh dominfo "+domain)
	if err != nil {
		return nil, err
	}
	info := make(map[string]string)
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		key, value, _ := strings.Cut(line, ":")
		info[key] = strings.TrimSpace(value)
	}
	return info, nil
}

func (v virsh) isDefined(ctx context.Context, domain string) bool {
	_, err := v.dominfo(ctx, domain)
	return err == nil
}

func (v virsh) isRunning(ctx context.Context, domain string) bool {
	info, err := v.dominfo(ctx, domain)
	return err == nil && info["State"] == "running"
}

func (v virsh) destroy(ctx context.Context, domain string) error {
	slog.DebugContext(ctx, "destroying domain", "domain", domain)
	_, err := v.run(ctx, "virsh destroy "+domain)
	return err
}

func (v virsh) undefine(ctx context.Context, domain string) error {
	_, err := v.run(ctx, "virsh undefine "+domain)
	return err
}

func (v virsh) start(ctx context.Context, domain string) error {
	_, err := v.run(ctx, "virsh start "+domain)
	return err
}

// mktemp creates a temporary file (or directory when dir is set) on the host.
func (v virsh) mktemp(ctx context.Context, dir bool) (string, error) {
	cmd := "mktemp --suffix='.xml'"
	if dir {
		cmd = "mktemp -d"
	}
	output, err := v.run(ctx, cmd)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeDriver, "cannot create temporary file on host", err)
	}
	return strings.TrimSpace(output), nil
}

// define writes domainXML to a temporary host file and defines it.
func (v virsh) define(ctx context.Context, domainXML string) error {
	slog.DebugContext(ctx, "defining domain", "xml", domainXML)

	path, err := v.mktemp(ctx, false)
	if err != nil {
		return err
	}
	write := fmt.Sprintf("cat > %s <<'%s'\n%s\n%s", path, heredocMarker, domainXML, heredocMarker)
	if _, err := v.run(ctx, write); err != nil {
		return err
	}
	if _, err := v.run(ctx, "virsh define "+path); err != nil {
		return errors.Wrap(errors.ErrCodeDriver, "cannot define domain", err)
	}
	if _, err := v.run(ctx, "rm "+path); err != nil {
		slog.WarnContext(ctx, "unable to remove temporary file on host", "path", path)
	}
	return nil
}

// fetch downloads url into dir on the host and returns the file path.
func (v virsh) fetch(ctx context.Context, dir, name, url string) (string, error) {
	path := dir + "/" + name
	if _, err := v.run(ctx, fmt.Sprintf("curl -sSf -o %s '%s'", path, url)); err != nil {
		return "", errors.Wrap(errors.ErrCodeDriver, "cannot download boot file", err)
	}
	return path, nil
}

func (v virsh) removeAll(ctx context.Context, dir string) {
	if _, err := v.run(ctx, "rm -rf "+dir); err != nil {
		slog.WarnContext(ctx, "unable to remove temporary directory on host", "path", dir)
	}
}
