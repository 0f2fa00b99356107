// Package platform answers questions about the running system: boot mode,
// memory, architecture, and pending configuration changes.
package platform

import (
	"context"
	"os"
	"strings"

	"github.com/c2h5oh/datasize"
	"golang.org/x/sys/unix"

	"github.com/vyos/image-tools/lib/cmdrun"
)

// Host exposes the facts the workflows gate on. Behind an interface so the
// workflows can be tested off a live system.
type Host interface {
	// IsLiveBoot reports whether the system runs from removable media
	// without a local installation.
	IsLiveBoot() bool

	// TotalMemory returns the total RAM of the machine.
	TotalMemory() (datasize.ByteSize, error)

	// UnsavedChanges reports whether the running configuration has changes
	// that were not committed to disk.
	UnsavedChanges(ctx context.Context) bool

	// Sync flushes all pending writes to stable storage.
	Sync()
}

type host struct {
	runner cmdrun.Runner
}

// NewHost returns the live-system Host implementation.
func NewHost(runner cmdrun.Runner) Host {
	return &host{runner: runner}
}

func (h *host) IsLiveBoot() bool {
	cmdline, err := os.ReadFile("/proc/cmdline")
	if err != nil {
		return false
	}
	return strings.Contains(string(cmdline), "boot=live")
}

func (h *host) TotalMemory() (datasize.ByteSize, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, err
	}
	return datasize.ByteSize(uint64(info.Totalram) * uint64(info.Unit)), nil
}

func (h *host) UnsavedChanges(ctx context.Context) bool {
	// cli-shell-api exits non-zero when the session has no uncommitted
	// changes, zero when it does.
	_, err := h.runner.Run(ctx, "cli-shell-api", "sessionChanged")
	return err == nil
}

func (h *host) Sync() {
	unix.Sync()
}
