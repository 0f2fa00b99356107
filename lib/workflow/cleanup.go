package workflow

import (
	"context"
	"log/slog"
	"os"

	"github.com/vyos/image-tools/lib/disk"
)

// cleanup tracks the mount points and temporary artifacts owned by one
// workflow run and releases them on every exit path. Failures during release
// are logged, never escalated: cleanup must not mask the error that brought
// us here.
type cleanup struct {
	mounter disk.Mounter
	logger  *slog.Logger

	mounts  []string
	removes []string
}

func newCleanup(mounter disk.Mounter, logger *slog.Logger) *cleanup {
	return &cleanup{mounter: mounter, logger: logger}
}

// pushMount records a mount point to be unmounted. Mounts are released in
// reverse order so nested mounts (boot/efi under the install root) unwind
// correctly.
func (c *cleanup) pushMount(target string) {
	c.mounts = append(c.mounts, target)
}

// pushRemove records a file or directory tree to remove after unmounting.
func (c *cleanup) pushRemove(path string) {
	c.removes = append(c.removes, path)
}

// run releases everything recorded so far and forgets it, which makes run
// idempotent. It deliberately ignores the caller's cancellation: cleanup
// still has to happen after an interrupt.
func (c *cleanup) run(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	for i := len(c.mounts) - 1; i >= 0; i-- {
		if err := c.mounter.Unmount(ctx, c.mounts[i]); err != nil {
			c.logger.Warn("failed to unmount", "target", c.mounts[i], "error", err)
		}
	}
	c.mounts = nil

	for _, path := range c.removes {
		if err := os.RemoveAll(path); err != nil {
			c.logger.Warn("failed to remove", "path", path, "error", err)
		}
	}
	c.removes = nil
}
