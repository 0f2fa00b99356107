package workflow

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/c2h5oh/datasize"
	"github.com/stretchr/testify/require"

	"github.com/vyos/image-tools/lib/disk"
)

const testMetadata = `{"version": "1.4-rolling-202405210020", "architecture": "amd64", "flavor": "generic"}`

type installFixture struct {
	deps        Deps
	host        *fakeHost
	mounter     *fakeMounter
	partitioner *fakePartitioner
	boot        *fakeBoot
	decider     *scriptDecider
}

func newInstallFixture(t *testing.T) *installFixture {
	cfg := newTestConfig(t)
	seedLiveDir(t, cfg.LiveMediumDir, testMetadata)

	f := &installFixture{
		host:        &fakeHost{live: true, memory: 8 * datasize.GB},
		mounter:     &fakeMounter{},
		partitioner: &fakePartitioner{devices: []string{"/dev/sda1", "/dev/sda2"}},
		boot:        &fakeBoot{},
		decider: &scriptDecider{
			confirm:    true,
			password:   "insecure-but-long",
			console:    "kvm",
			setDefault: true,
		},
	}
	f.deps = Deps{
		Config: cfg,
		Host:   f.host,
		Inventory: &fakeInventory{candidates: []disk.Disk{
			{Path: "/dev/sda", Size: 32 * datasize.GB},
		}},
		Planner: &disk.Planner{
			Reserve: cfg.DiskReserve,
			EFISize: cfg.EFISize,
			MinRoot: cfg.MinRootSize,
			Logger:  testWorkflowLogger(),
		},
		Partitioner: f.partitioner,
		Mounter:     f.mounter,
		Boot:        f.boot,
		Hasher:      fakeHasher{},
		Decider:     f.decider,
		Logger:      testWorkflowLogger(),
	}
	return f
}

func TestInstallHappyPath(t *testing.T) {
	f := newInstallFixture(t)
	root := f.deps.Config.InstallRoot

	// Snapshot the installed tree when the root is quiesced; the mount point
	// directory itself is removed afterwards.
	var seenSeed, seenRootfs, seenKernel bool
	f.mounter.onUnmount = func(target string) {
		if target != root {
			return
		}
		imageDir := filepath.Join(root, "boot", "1.4-rolling-202405210020")
		seenKernel = fileExists(filepath.Join(imageDir, "vmlinuz-6.6.0"))
		seenRootfs = fileExists(filepath.Join(imageDir, "1.4-rolling-202405210020.squashfs"))
		seenSeed = fileExists(filepath.Join(imageDir, "rw", "opt", "vyatta", "etc", "config", ".vyatta_config"))
	}

	require.NoError(t, NewInstaller(f.deps).Run(context.Background()))

	require.True(t, seenKernel, "kernel not copied")
	require.True(t, seenRootfs, "root filesystem not copied under the image name")
	require.True(t, seenSeed, "config seed not written")

	// partitioning used the full disk minus the reserve
	require.Len(t, f.partitioner.applied, 1)
	plan := f.partitioner.applied[0]
	require.Equal(t, "/dev/sda", plan.Disk)
	require.Equal(t, disk.PurposeEFI, plan.Entries[0].Purpose)
	require.Equal(t, 30*datasize.GB, plan.Entries[1].Size)
	require.Equal(t, [][]string{{"/dev/sda1", "/dev/sda2"}}, f.partitioner.formatted)

	require.Equal(t, []string{"install", "set_console", "add_version", "set_default"}, f.boot.ops())
	require.Empty(t, f.mounter.active(), "mounts left behind")
	require.True(t, f.host.synced)
	require.NoDirExists(t, root)
}

func TestInstallRefusedOnInstalledSystem(t *testing.T) {
	f := newInstallFixture(t)
	f.host.live = false

	err := NewInstaller(f.deps).Run(context.Background())
	require.ErrorIs(t, err, ErrNotLiveBoot)
	require.Empty(t, f.partitioner.applied)
}

func TestInstallNoSuitableDisk(t *testing.T) {
	f := newInstallFixture(t)
	f.deps.Inventory = &fakeInventory{}

	err := NewInstaller(f.deps).Run(context.Background())
	require.ErrorIs(t, err, disk.ErrNoSuitableDisk)
}

func TestInstallDeclinedConfirmation(t *testing.T) {
	f := newInstallFixture(t)
	f.decider.confirm = false

	err := NewInstaller(f.deps).Run(context.Background())
	require.ErrorIs(t, err, ErrAborted)
	require.Empty(t, f.partitioner.applied, "declined install must not touch the disk")
}

func TestInstallPartitionFailure(t *testing.T) {
	f := newInstallFixture(t)
	f.partitioner.err = errors.New("sgdisk: device busy")

	err := NewInstaller(f.deps).Run(context.Background())
	require.ErrorContains(t, err, "partition:")
	require.Empty(t, f.mounter.mounted)
	require.NoDirExists(t, f.deps.Config.InstallRoot)
}

func TestInstallFormatFailure(t *testing.T) {
	f := newInstallFixture(t)
	f.partitioner.formatErr = errors.New("mkfs.ext4: no such device")

	err := NewInstaller(f.deps).Run(context.Background())
	require.ErrorContains(t, err, "format:")
	require.Empty(t, f.mounter.mounted)
	require.NoDirExists(t, f.deps.Config.InstallRoot)
}

func TestInstallMountFailureUnwindsRoot(t *testing.T) {
	f := newInstallFixture(t)
	root := f.deps.Config.InstallRoot
	efiDir := filepath.Join(root, "boot", "efi")
	f.mounter.failMount = map[string]error{efiDir: errors.New("mount: wrong fs type")}

	err := NewInstaller(f.deps).Run(context.Background())
	require.ErrorContains(t, err, "mount:")

	require.Equal(t, []string{root}, f.mounter.unmounted)
	require.Empty(t, f.mounter.active())
	require.NoDirExists(t, root)
}

func TestInstallInterruptRunsCleanup(t *testing.T) {
	f := newInstallFixture(t)
	root := f.deps.Config.InstallRoot
	efiDir := filepath.Join(root, "boot", "efi")

	ctx, cancel := context.WithCancel(context.Background())
	f.mounter.onMount = func(target string) {
		if target == efiDir {
			cancel()
		}
	}

	err := NewInstaller(f.deps).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	// cleanup still ran despite the cancelled context
	require.Equal(t, []string{efiDir, root}, f.mounter.unmounted)
	require.NoDirExists(t, root)
	require.Empty(t, f.boot.calls, "no bootloader work after an interrupt during mounting")
}

func TestInstallDefaultPasswordFallback(t *testing.T) {
	f := newInstallFixture(t)
	f.decider.password = ""

	var seed string
	f.mounter.onUnmount = func(target string) {
		if target != f.deps.Config.InstallRoot {
			return
		}
		raw, _ := os.ReadFile(filepath.Join(f.deps.Config.InstallRoot,
			"boot", "1.4-rolling-202405210020", "rw", "opt", "vyatta", "etc", "config", ".vyatta_config"))
		seed = string(raw)
	}

	require.NoError(t, NewInstaller(f.deps).Run(context.Background()))
	require.Contains(t, seed, "user vyos")
	require.Contains(t, seed, "$fake$vyos")
}

func TestInstallInvalidConsoleFallsBack(t *testing.T) {
	f := newInstallFixture(t)
	f.decider.console = "vga"

	require.NoError(t, NewInstaller(f.deps).Run(context.Background()))

	for _, call := range f.boot.calls {
		if call.op == "set_console" {
			require.Equal(t, "kvm", call.name)
			return
		}
	}
	t.Fatal("console type was never configured")
}

func TestInstallInvalidImageName(t *testing.T) {
	f := newInstallFixture(t)
	f.decider.name = "bad name!"

	err := NewInstaller(f.deps).Run(context.Background())
	require.ErrorContains(t, err, "copy_files:")
	require.Empty(t, f.mounter.active())
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
