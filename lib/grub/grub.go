// Package grub registers installed images with the GRUB bootloader: one
// config snippet per image version, a default pointer, and the console
// setup. The workflows consume it through the Integrator interface.
package grub

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vyos/image-tools/lib/cmdrun"
)

// Integrator is the bootloader side of an install or image addition.
type Integrator interface {
	// Install installs the bootloader onto the target disk with its files
	// under bootDir and the EFI binaries under efiDir.
	Install(ctx context.Context, diskDevice, bootDir, efiDir string) error

	// AddVersion registers an installed image as a boot menu entry.
	AddVersion(name, rootDir string) error

	// SetDefault atomically points the default boot selection at an image.
	// At most one image is default at any time.
	SetDefault(name, rootDir string) error

	// SetConsoleType records which console the boot entries use. Accepted
	// values are "kvm" and "serial".
	SetConsoleType(console, rootDir string) error
}

type integrator struct {
	runner cmdrun.Runner
}

// New returns an Integrator shelling out to grub-install and managing the
// config tree under boot/grub.
func New(runner cmdrun.Runner) Integrator {
	return &integrator{runner: runner}
}

func (g *integrator) Install(ctx context.Context, diskDevice, bootDir, efiDir string) error {
	if err := os.MkdirAll(filepath.Join(bootDir, "grub", "versions"), 0755); err != nil {
		return fmt.Errorf("create grub directory: %w", err)
	}

	// EFI install; --removable also writes the fallback BOOTX64.EFI so the
	// image boots on firmware without a persistent boot entry.
	_, err := g.runner.Run(ctx, "grub-install",
		"--target=x86_64-efi",
		"--boot-directory="+bootDir,
		"--efi-directory="+efiDir,
		"--removable",
		"--recheck",
		diskDevice)
	if err != nil {
		return fmt.Errorf("install bootloader on %s: %w", diskDevice, err)
	}

	if err := writeMainConfig(bootDir); err != nil {
		return err
	}
	return nil
}

func (g *integrator) AddVersion(name, rootDir string) error {
	entry, err := buildMenuEntry(name, rootDir)
	if err != nil {
		return err
	}
	path := versionConfigPath(rootDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create versions directory: %w", err)
	}
	if err := writeFileAtomic(path, []byte(entry), 0644); err != nil {
		return fmt.Errorf("register image version %s: %w", name, err)
	}
	return nil
}

func (g *integrator) SetDefault(name, rootDir string) error {
	if err := setEnvValue(envPath(rootDir), "default", name); err != nil {
		return fmt.Errorf("set default image %s: %w", name, err)
	}
	return nil
}

func (g *integrator) SetConsoleType(console, rootDir string) error {
	if err := setEnvValue(envPath(rootDir), "console_type", console); err != nil {
		return fmt.Errorf("set console type: %w", err)
	}
	return writeConsoleConfig(rootDir, console)
}

func grubDir(rootDir string) string {
	return filepath.Join(rootDir, "boot", "grub")
}

func envPath(rootDir string) string {
	return filepath.Join(grubDir(rootDir), "grubenv")
}

func versionConfigPath(rootDir, name string) string {
	return filepath.Join(grubDir(rootDir), "versions", name+".cfg")
}

// writeFileAtomic writes via a temp file and rename so a crash mid-write
// never leaves a truncated bootloader config.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, perm); err != nil {
		return err
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return err
	}
	return nil
}
