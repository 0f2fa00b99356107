package workflow

import (
	"github.com/c2h5oh/datasize"

	"github.com/vyos/image-tools/lib/disk"
)

// Decider is the source of every decision a workflow needs from outside:
// either a human at a terminal or a deterministic resolver driven by CLI
// flags. Workflow logic is identical regardless of which one is plugged in.
type Decider interface {
	// SelectDisk picks the installation target from the candidate set.
	SelectDisk(candidates []disk.Disk) (disk.Disk, error)

	// ConfirmWipe asks for affirmative confirmation before the partition
	// table on diskPath is destroyed.
	ConfirmWipe(diskPath string) (bool, error)

	// RootSize returns the requested root partition size; zero means all
	// available space.
	RootSize(available datasize.ByteSize) (datasize.ByteSize, error)

	// ImageName returns the name for the new image, given a derived
	// suggestion.
	ImageName(suggested string) (string, error)

	// Password returns the initial administrative password.
	Password() (string, error)

	// ConsoleType returns "kvm" or "serial".
	ConsoleType() (string, error)

	// SetDefaultBoot decides whether the new image becomes the default boot
	// selection.
	SetDefaultBoot(name string) (bool, error)

	// ContinueUnsaved decides whether to proceed despite uncommitted
	// configuration changes.
	ContinueUnsaved() (bool, error)
}
