package disk

import (
	"context"
	"fmt"
	"os"

	"github.com/vyos/image-tools/lib/cmdrun"
)

// Mounter mounts and unmounts filesystems.
type Mounter interface {
	// Mount mounts source at target, creating the target directory if needed.
	Mount(ctx context.Context, source, target, fstype string, options ...string) error

	// MountISO loop-mounts an ISO 9660 image file read-only at target.
	MountISO(ctx context.Context, imagePath, target string) error

	// Unmount unmounts target.
	Unmount(ctx context.Context, target string) error
}

type cliMounter struct {
	runner cmdrun.Runner
}

// NewMounter returns a Mounter shelling out to mount/umount. The mount(8)
// front-end is used deliberately: it handles loop device setup for ISO files.
func NewMounter(runner cmdrun.Runner) Mounter {
	return &cliMounter{runner: runner}
}

func (m *cliMounter) Mount(ctx context.Context, source, target, fstype string, options ...string) error {
	if err := os.MkdirAll(target, 0755); err != nil {
		return fmt.Errorf("create mount point %s: %w", target, err)
	}
	args := []string{"-t", fstype}
	for _, opt := range options {
		args = append(args, "-o", opt)
	}
	args = append(args, source, target)
	if _, err := m.runner.Run(ctx, "mount", args...); err != nil {
		return fmt.Errorf("mount %s at %s: %w", source, target, err)
	}
	return nil
}

func (m *cliMounter) MountISO(ctx context.Context, imagePath, target string) error {
	return m.Mount(ctx, imagePath, target, "iso9660", "loop", "ro")
}

func (m *cliMounter) Unmount(ctx context.Context, target string) error {
	if _, err := m.runner.Run(ctx, "umount", target); err != nil {
		return fmt.Errorf("unmount %s: %w", target, err)
	}
	return nil
}
