package disk

import "github.com/c2h5oh/datasize"

// Disk is a candidate installation target. Queried fresh on every run, never
// cached across invocations.
type Disk struct {
	Path       string
	Size       datasize.ByteSize
	Partitions []Partition
}

// Partition is an existing partition on a disk.
type Partition struct {
	Path       string
	Label      string
	Size       datasize.ByteSize
	MountPoint string
}

// Purpose identifies what a planned partition is for.
type Purpose string

const (
	PurposeEFI  Purpose = "efi"
	PurposeRoot Purpose = "root"
)

// PlanEntry is one partition in a Plan, in creation order.
type PlanEntry struct {
	Purpose    Purpose
	Size       datasize.ByteSize
	Filesystem string
	Label      string
}

// Plan is the partition layout to apply to a disk. Applying a plan destroys
// any existing partition table.
type Plan struct {
	Disk    string
	Entries []PlanEntry
}
