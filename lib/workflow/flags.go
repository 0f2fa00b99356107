package workflow

import (
	"log/slog"

	"github.com/c2h5oh/datasize"
	"github.com/samber/lo"

	"github.com/vyos/image-tools/lib/disk"
)

// FlagDecider resolves every decision deterministically from CLI flags.
// It is the non-interactive decision source: confirmation is implicit,
// fallbacks are applied with advisories instead of failing.
type FlagDecider struct {
	TargetDisk    string
	RootSizeBytes datasize.ByteSize
	Name          string
	Pass          string
	Console       string
	SetDefault    bool
	AcceptUnsaved bool

	Logger *slog.Logger
}

var _ Decider = (*FlagDecider)(nil)

func (d *FlagDecider) SelectDisk(candidates []disk.Disk) (disk.Disk, error) {
	if d.TargetDisk != "" {
		paths := lo.Map(candidates, func(c disk.Disk, _ int) string { return c.Path })
		if idx := lo.IndexOf(paths, d.TargetDisk); idx >= 0 {
			return candidates[idx], nil
		}
		d.Logger.Warn("target disk not among candidates, using first candidate",
			"target", d.TargetDisk, "selected", candidates[0].Path)
	}
	return candidates[0], nil
}

// ConfirmWipe is implicit consent: requesting a non-interactive install is
// the confirmation.
func (d *FlagDecider) ConfirmWipe(string) (bool, error) {
	return true, nil
}

func (d *FlagDecider) RootSize(datasize.ByteSize) (datasize.ByteSize, error) {
	return d.RootSizeBytes, nil
}

func (d *FlagDecider) ImageName(suggested string) (string, error) {
	if d.Name != "" {
		return d.Name, nil
	}
	return suggested, nil
}

func (d *FlagDecider) Password() (string, error) {
	return d.Pass, nil
}

func (d *FlagDecider) ConsoleType() (string, error) {
	return d.Console, nil
}

func (d *FlagDecider) SetDefaultBoot(string) (bool, error) {
	return d.SetDefault, nil
}

func (d *FlagDecider) ContinueUnsaved() (bool, error) {
	return d.AcceptUnsaved, nil
}
