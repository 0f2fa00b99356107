package disk

import (
	"log/slog"

	"github.com/c2h5oh/datasize"
)

// Planner computes partition layouts. Thresholds are injected at construction
// so they can differ per deployment without touching the planning logic.
type Planner struct {
	Reserve datasize.ByteSize
	EFISize datasize.ByteSize
	MinRoot datasize.ByteSize

	Logger *slog.Logger
}

// AvailableSpace returns the space usable for the root partition: disk size
// minus the fixed reserve, which covers the EFI partition and GPT overhead.
func (p *Planner) AvailableSpace(d Disk) datasize.ByteSize {
	if d.Size <= p.Reserve {
		return 0
	}
	return d.Size - p.Reserve
}

// Plan produces a GPT layout with a fixed-size EFI partition and a root
// partition. A requested root size outside [MinRoot, available space] falls
// back to using all available space with an advisory, never an error; sizing
// mistakes must not abort an installation that passed every other check.
// requestedRoot == 0 means use all available space.
func (p *Planner) Plan(d Disk, requestedRoot datasize.ByteSize) Plan {
	available := p.AvailableSpace(d)

	rootSize := available
	if requestedRoot != 0 {
		if requestedRoot < p.MinRoot || requestedRoot > available {
			p.Logger.Warn("invalid root size, using all available space",
				"requested", requestedRoot.HumanReadable(),
				"available", available.HumanReadable())
		} else {
			rootSize = requestedRoot
		}
	}

	return Plan{
		Disk: d.Path,
		Entries: []PlanEntry{
			{Purpose: PurposeEFI, Size: p.EFISize, Filesystem: "vfat", Label: "EFI"},
			{Purpose: PurposeRoot, Size: rootSize, Filesystem: "ext4", Label: PersistenceLabel},
		},
	}
}
