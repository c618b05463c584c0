package linux

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/usestring/baselib/pkg/driver"
	"github.com/usestring/baselib/pkg/errors"
	"github.com/usestring/baselib/pkg/guests"
	"github.com/usestring/baselib/pkg/session"
)

const (
	cpuGlob    = "/sys/devices/system/cpu/cpu[1-9]*/online"
	memoryGlob = "/sys/devices/system/memory/memory[0-9]*/state"
	blockSize  = "/sys/devices/system/memory/block_size_bytes"
)

// Hotplug brings resources["cpu"] processors and resources["memory"] MiB of
// memory online (attach) or offline (detach) through sysfs. Processor 0 is
// never taken offline.
func (g *Guest) Hotplug(ctx context.Context, method string, resources, _ map[string]any) error {
	var from, to, memFrom, memTo string
	switch method {
	case guests.MethodAttach:
		from, to, memFrom, memTo = "0", "1", "offline", "online"
	case guests.MethodDetach:
		from, to, memFrom, memTo = "1", "0", "online", "offline"
	default:
		return errors.New(errors.ErrCodeDriver, fmt.Sprintf("invalid hotplug method %q", method))
	}

	cpu := driver.IntParam(resources, "cpu", 0)
	memory := driver.IntParam(resources, "memory", 0)
	slog.DebugContext(ctx, "hotplug", "method", method, "cpu", cpu, "memory", memory)

	return g.withSession(ctx, func(sess session.Session) error {
		if cpu > 0 {
			if err := run(ctx, sess, switchCmd(cpuGlob, from, to, cpu), "cpu hotplug failed"); err != nil {
				return err
			}
		}
		if memory > 0 {
			blocks, err := memoryBlocks(ctx, sess, memory)
			if err != nil {
				return err
			}
			if err := run(ctx, sess, switchCmd(memoryGlob, memFrom, memTo, blocks), "memory hotplug failed"); err != nil {
				return err
			}
		}
		return nil
	})
}

// switchCmd writes to to the first count sysfs files matching glob whose
// content is from, failing unless count files were switched.
func switchCmd(glob, from, to string, count int) string {
	return fmt.Sprintf(
		`n=0; for f in %s; do [ "$n" -ge %d ] && break; `+
			`if [ "$(cat "$f")" = "%s" ] && echo %s > "$f"; then n=$((n+1)); fi; done; [ "$n" -eq %d ]`,
		glob, count, from, to, count)
}

// memoryBlocks converts mib to a number of memory blocks of the guest.
func memoryBlocks(ctx context.Context, sess session.Session, mib int) (int, error) {
	status, output, err := sess.Run(ctx, "cat "+blockSize, commandTimeout)
	if err != nil || status != 0 {
		return 0, errors.Wrap(errors.ErrCodeDriver, "cannot read memory block size", err)
	}
	size, err := strconv.ParseInt(strings.TrimSpace(output), 16, 64)
	if err != nil || size <= 0 {
		return 0, errors.NewWithContext(errors.ErrCodeDriver, "invalid memory block size",
			map[string]any{"output": strings.TrimSpace(output)})
	}
	bytes := int64(mib) << 20
	return int((bytes + size - 1) / size), nil
}
