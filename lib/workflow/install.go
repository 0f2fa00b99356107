package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vyos/image-tools/lib/auth"
	"github.com/vyos/image-tools/lib/disk"
	"github.com/vyos/image-tools/lib/registry"
	"github.com/vyos/image-tools/lib/version"
)

// ErrNotLiveBoot is the install precondition failure: installation targets a
// live-booted system only.
var ErrNotLiveBoot = errors.New(`the system is already installed, please use "add system image" instead`)

// ErrAborted means the operator declined to continue.
var ErrAborted = errors.New("installation aborted")

// InstallState names one phase of the fresh-install workflow. Every state
// has a universal failure edge into cleanup.
type InstallState int

const (
	StatePrecheck InstallState = iota
	StateDiskSelect
	StateConfirm
	StatePartition
	StateFormat
	StateMount
	StateCopyFiles
	StateConfigureBoot
	StateCreateUser
	StateFinalize
	StateDone
)

var installStateNames = map[InstallState]string{
	StatePrecheck:      "precheck",
	StateDiskSelect:    "disk_select",
	StateConfirm:       "confirm",
	StatePartition:     "partition",
	StateFormat:        "format",
	StateMount:         "mount",
	StateCopyFiles:     "copy_files",
	StateConfigureBoot: "configure_boot",
	StateCreateUser:    "create_user",
	StateFinalize:      "finalize",
	StateDone:          "done",
}

func (s InstallState) String() string {
	return installStateNames[s]
}

// Installer is the fresh-install workflow: partition a disk, materialize the
// live system's image onto it, and register it with the bootloader.
type Installer struct {
	deps Deps

	// run state, valid for the duration of one Run call
	target    disk.Disk
	plan      disk.Plan
	devices   []string
	imageName string
	record    *registry.Record
	cleanup   *cleanup
}

// NewInstaller builds an Installer from its collaborators.
func NewInstaller(deps Deps) *Installer {
	return &Installer{deps: deps}
}

// Run drives the install state machine to completion. On any failure,
// including interrupt, every mount point created during the run is released
// and the installation root is removed before the error is returned.
func (i *Installer) Run(ctx context.Context) error {
	i.cleanup = newCleanup(i.deps.Mounter, i.deps.Logger)
	defer i.cleanup.run(ctx)

	steps := []struct {
		state InstallState
		fn    func(context.Context) error
	}{
		{StatePrecheck, i.precheck},
		{StateDiskSelect, i.selectDisk},
		{StateConfirm, i.confirm},
		{StatePartition, i.partition},
		{StateFormat, i.format},
		{StateMount, i.mount},
		{StateCopyFiles, i.copyFiles},
		{StateConfigureBoot, i.configureBoot},
		{StateCreateUser, i.createUser},
		{StateFinalize, i.finalize},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		i.deps.Logger.Debug("entering state", "state", step.state.String())
		if err := step.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", step.state, err)
		}
	}

	i.deps.Logger.Info("the image installed successfully; please reboot now")
	return nil
}

func (i *Installer) precheck(ctx context.Context) error {
	if !i.deps.Host.IsLiveBoot() {
		return ErrNotLiveBoot
	}

	total, err := i.deps.Host.TotalMemory()
	if err == nil && total < i.deps.Config.LowMemThreshold {
		i.deps.Logger.Warn("your system has less than 4GB of RAM, installation may fail if you continue")
	}
	return nil
}

func (i *Installer) selectDisk(ctx context.Context) error {
	candidates, err := i.deps.Inventory.ListCandidates(ctx, i.deps.Config.MinDiskSize)
	if err != nil {
		return err
	}
	target, err := i.deps.Decider.SelectDisk(candidates)
	if err != nil {
		return err
	}
	i.target = target
	i.deps.Logger.Info("using disk", "disk", target.Path, "size", target.Size.HumanReadable())
	return nil
}

func (i *Installer) confirm(ctx context.Context) error {
	confirmed, err := i.deps.Decider.ConfirmWipe(i.target.Path)
	if err != nil {
		return err
	}
	if !confirmed {
		return ErrAborted
	}
	return nil
}

func (i *Installer) partition(ctx context.Context) error {
	requested, err := i.deps.Decider.RootSize(i.deps.Planner.AvailableSpace(i.target))
	if err != nil {
		return err
	}

	i.deps.Logger.Info("creating partition table", "disk", i.target.Path)
	i.plan = i.deps.Planner.Plan(i.target, requested)

	devices, err := i.deps.Partitioner.Apply(ctx, i.plan)
	if err != nil {
		return err
	}
	i.devices = devices
	return nil
}

func (i *Installer) format(ctx context.Context) error {
	i.deps.Logger.Info("creating filesystems")
	return i.deps.Partitioner.Format(ctx, i.plan, i.devices)
}

func (i *Installer) mount(ctx context.Context) error {
	root := i.deps.Config.InstallRoot
	i.cleanup.pushRemove(root)

	// plan order: EFI first, root second
	efiDevice, rootDevice := i.devices[0], i.devices[1]

	if err := i.deps.Mounter.Mount(ctx, rootDevice, root, "ext4"); err != nil {
		return err
	}
	i.cleanup.pushMount(root)

	efiDir := filepath.Join(root, "boot", "efi")
	if err := i.deps.Mounter.Mount(ctx, efiDevice, efiDir, "vfat"); err != nil {
		return err
	}
	i.cleanup.pushMount(efiDir)
	return nil
}

func (i *Installer) copyFiles(ctx context.Context) error {
	liveDir := filepath.Join(i.deps.Config.LiveMediumDir, "live")

	data, err := version.ReadMounted(i.deps.Config.LiveMediumDir)
	if err != nil {
		return err
	}

	suggested := registry.DefaultName(data.Version)
	name, err := i.deps.Decider.ImageName(suggested)
	if err != nil {
		return err
	}
	if err := registry.ValidateName(name); err != nil {
		return err
	}
	i.imageName = name

	record, err := registry.Create(i.deps.Config.InstallRoot, name)
	if err != nil {
		return err
	}
	i.record = record

	i.deps.Logger.Info("copying system files", "image", name)
	return copyImageFiles(liveDir, record.Dir, name)
}

func (i *Installer) configureBoot(ctx context.Context) error {
	root := i.deps.Config.InstallRoot
	bootDir := filepath.Join(root, "boot")
	efiDir := filepath.Join(bootDir, "efi")

	if err := i.deps.Boot.Install(ctx, i.target.Path, bootDir, efiDir); err != nil {
		return err
	}

	console, err := i.deps.Decider.ConsoleType()
	if err != nil {
		return err
	}
	if console != "kvm" && console != "serial" {
		i.deps.Logger.Warn("invalid console type, using default KVM console", "console", console)
		console = "kvm"
	}
	if err := i.deps.Boot.SetConsoleType(console, root); err != nil {
		return err
	}

	if err := i.deps.Boot.AddVersion(i.imageName, root); err != nil {
		return err
	}

	setDefault, err := i.deps.Decider.SetDefaultBoot(i.imageName)
	if err != nil {
		return err
	}
	if setDefault {
		if err := i.deps.Boot.SetDefault(i.imageName, root); err != nil {
			return err
		}
	}
	return nil
}

func (i *Installer) createUser(ctx context.Context) error {
	password, err := i.deps.Decider.Password()
	if err != nil {
		return err
	}
	if password == "" {
		password = i.deps.Config.DefaultPassword
		i.deps.Logger.Warn("no password supplied, using the default password")
	}
	if auth.Evaluate(password) == auth.StrengthWeak {
		i.deps.Logger.Warn("password is weak, recommended to use a strong password")
	}

	hashed, err := i.deps.Hasher.Hash(password)
	if err != nil {
		return err
	}
	return writeConfigSeed(i.record.RWDir, i.deps.Config.AdminUser, hashed)
}

func (i *Installer) finalize(ctx context.Context) error {
	// Unmount before sync so the filesystems are quiesced; the run may be
	// followed immediately by a reboot.
	i.cleanup.run(ctx)
	i.deps.Host.Sync()
	return nil
}

// writeConfigSeed seeds the new image's configuration with the initial
// administrative account and its encrypted password.
func writeConfigSeed(rwDir, user, encryptedPassword string) error {
	seedDir := filepath.Join(rwDir, "opt", "vyatta", "etc", "config")
	if err := os.MkdirAll(seedDir, 0775); err != nil {
		return fmt.Errorf("create config seed directory: %w", err)
	}

	seed := fmt.Sprintf(`system {
  login {
    user %s {
      authentication {
        encrypted-password %q
      }
    }
  }
}
`, user, encryptedPassword)

	path := filepath.Join(seedDir, ".vyatta_config")
	if err := os.WriteFile(path, []byte(seed), 0660); err != nil {
		return fmt.Errorf("write config seed: %w", err)
	}
	return nil
}
