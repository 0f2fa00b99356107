package disk

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/c2h5oh/datasize"

	"github.com/vyos/image-tools/lib/cmdrun"
)

// PersistenceLabel is the GPT partition label marking the root partition of
// an installed system.
const PersistenceLabel = "persistence"

// Inventory enumerates block devices on the running system.
type Inventory interface {
	// ListCandidates returns disks at or above minSize, excluding disks that
	// back the running system. An empty result is reported as
	// ErrNoSuitableDisk.
	ListCandidates(ctx context.Context, minSize datasize.ByteSize) ([]Disk, error)

	// FindPersistence scans partition tables for a partition labeled
	// "persistence" and returns its mount point, or "" when the partition is
	// present but not mounted. ErrNoPersistence when no disk carries one.
	FindPersistence(ctx context.Context) (string, error)
}

type lsblkInventory struct {
	runner cmdrun.Runner
}

// NewInventory returns an Inventory backed by lsblk.
func NewInventory(runner cmdrun.Runner) Inventory {
	return &lsblkInventory{runner: runner}
}

// lsblkDevice mirrors one entry of `lsblk -J -b` output.
type lsblkDevice struct {
	Path       string        `json:"path"`
	Type       string        `json:"type"`
	Size       int64         `json:"size"`
	MountPoint string        `json:"mountpoint"`
	PartLabel  string        `json:"partlabel"`
	Children   []lsblkDevice `json:"children"`
}

type lsblkOutput struct {
	BlockDevices []lsblkDevice `json:"blockdevices"`
}

func (inv *lsblkInventory) list(ctx context.Context) ([]Disk, error) {
	output, err := inv.runner.Run(ctx, "lsblk",
		"-J", "-b", "-o", "PATH,TYPE,SIZE,MOUNTPOINT,PARTLABEL")
	if err != nil {
		return nil, fmt.Errorf("enumerate block devices: %w", err)
	}

	var parsed lsblkOutput
	if err := json.Unmarshal(output, &parsed); err != nil {
		return nil, fmt.Errorf("parse lsblk output: %w", err)
	}

	var disks []Disk
	for _, dev := range parsed.BlockDevices {
		if dev.Type != "disk" {
			continue
		}
		d := Disk{
			Path: dev.Path,
			Size: datasize.ByteSize(dev.Size),
		}
		for _, child := range dev.Children {
			if child.Type != "part" {
				continue
			}
			d.Partitions = append(d.Partitions, Partition{
				Path:       child.Path,
				Label:      child.PartLabel,
				Size:       datasize.ByteSize(child.Size),
				MountPoint: child.MountPoint,
			})
		}
		disks = append(disks, d)
	}
	return disks, nil
}

func (inv *lsblkInventory) ListCandidates(ctx context.Context, minSize datasize.ByteSize) ([]Disk, error) {
	disks, err := inv.list(ctx)
	if err != nil {
		return nil, err
	}

	var candidates []Disk
	for _, d := range disks {
		if d.Size < minSize {
			continue
		}
		if holdsRunningSystem(d) {
			continue
		}
		candidates = append(candidates, d)
	}
	if len(candidates) == 0 {
		return nil, ErrNoSuitableDisk
	}
	return candidates, nil
}

func (inv *lsblkInventory) FindPersistence(ctx context.Context) (string, error) {
	disks, err := inv.list(ctx)
	if err != nil {
		return "", err
	}
	for _, d := range disks {
		for _, p := range d.Partitions {
			if p.Label == PersistenceLabel {
				return p.MountPoint, nil
			}
		}
	}
	return "", ErrNoPersistence
}

// holdsRunningSystem reports whether any partition of the disk backs the
// running root or the live boot medium.
func holdsRunningSystem(d Disk) bool {
	for _, p := range d.Partitions {
		if p.MountPoint == "/" || strings.HasPrefix(p.MountPoint, "/run/live") {
			return true
		}
	}
	return false
}
