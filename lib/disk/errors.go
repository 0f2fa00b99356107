package disk

import "errors"

var (
	// ErrNoSuitableDisk is returned when no disk meets the minimum size.
	ErrNoSuitableDisk = errors.New("no suitable disk was found, there must be at least one disk of 2GB or greater size")

	// ErrNoPersistence is returned when no partition labeled persistence
	// exists on any disk.
	ErrNoPersistence = errors.New("no persistence partition found")
)
