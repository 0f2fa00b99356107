// Package compat decides whether a new image may be installed next to the
// running one. Architecture mismatches are never overridable; flavor
// mismatches may be forced.
package compat

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/vyos/image-tools/lib/version"
)

var (
	// ErrCorruptCurrent means the running image's own metadata lacks
	// architecture or flavor; compatibility cannot be established at all.
	ErrCorruptCurrent = errors.New("version data in the current image is malformed: missing flavor and/or architecture fields, upgrade compatibility cannot be checked")

	// ErrMissingArchitecture means the new image does not state its
	// architecture. A cross-architecture install is unrecoverable, so this is
	// fatal even when forced.
	ErrMissingArchitecture = errors.New("the new image version data does not specify architecture, cannot check compatibility (is it a legacy release image?)")

	// ErrMissingFlavor means the new image does not state its flavor.
	ErrMissingFlavor = errors.New("the new image version data does not specify flavor, cannot check compatibility (is it a legacy release image?)")

	// ErrArchitectureMismatch is never overridable.
	ErrArchitectureMismatch = errors.New("architecture mismatch")

	// ErrFlavorMismatch is overridable with force.
	ErrFlavorMismatch = errors.New("flavor mismatch")
)

// Check gates an upgrade on the compatibility of the new image with the
// current one. force relaxes flavor requirements only; architecture problems
// are always fatal.
func Check(current, next version.Data, force bool, logger *slog.Logger) error {
	if current.Architecture == "" || current.Flavor == "" {
		return ErrCorruptCurrent
	}

	if next.Architecture == "" {
		return ErrMissingArchitecture
	}
	if next.Architecture != current.Architecture {
		return fmt.Errorf("%w: the current architecture is %q, the new image is for %q; upgrading to a different image architecture will break your system",
			ErrArchitectureMismatch, current.Architecture, next.Architecture)
	}

	if next.Flavor == "" {
		if !force {
			return ErrMissingFlavor
		}
		logger.Warn("new image does not specify flavor, proceeding because --force was specified")
		return nil
	}
	if next.Flavor != current.Flavor {
		if !force {
			return fmt.Errorf("%w: the current image flavor is %q, the new image is %q; upgrading to a non-matching flavor can have unpredictable consequences",
				ErrFlavorMismatch, current.Flavor, next.Flavor)
		}
		logger.Warn("flavor mismatch, proceeding because --force was specified",
			"current", current.Flavor, "new", next.Flavor)
	}

	return nil
}
