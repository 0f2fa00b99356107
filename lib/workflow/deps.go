package workflow

import (
	"log/slog"

	"github.com/vyos/image-tools/lib/auth"
	"github.com/vyos/image-tools/lib/compat"
	"github.com/vyos/image-tools/lib/config"
	"github.com/vyos/image-tools/lib/disk"
	"github.com/vyos/image-tools/lib/grub"
	"github.com/vyos/image-tools/lib/platform"
	"github.com/vyos/image-tools/lib/remote"
	"github.com/vyos/image-tools/lib/version"
)

// Deps bundles the collaborators a workflow orchestrates. Everything
// destructive or host-dependent sits behind one of these interfaces.
type Deps struct {
	Config      *config.Config
	Host        platform.Host
	Inventory   disk.Inventory
	Planner     *disk.Planner
	Partitioner disk.Partitioner
	Mounter     disk.Mounter
	Boot        grub.Integrator
	Hasher      auth.Hasher
	Downloader  remote.Downloader
	Verifier    compat.Verifier
	Decider     Decider
	Logger      *slog.Logger

	// RunningVersion reads the running image's version metadata. Overridable
	// in tests.
	RunningVersion func() (version.Data, error)
}

func (d *Deps) runningVersion() (version.Data, error) {
	if d.RunningVersion != nil {
		return d.RunningVersion()
	}
	return version.Running()
}
