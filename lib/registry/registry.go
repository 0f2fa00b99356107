// Package registry manages the versioned image directory layout under
// boot/: one directory per installed image, each with a writable rw/
// overlay. The registry is the sole writer of image records.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/samber/lo"
)

// Record is one installed image. Created once, never mutated in place.
type Record struct {
	Name  string
	Dir   string // boot/<name>
	RWDir string // boot/<name>/rw
}

// MaxNameLength bounds image names.
const MaxNameLength = 64

var nameRe = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// nonNameChars matches everything that may not appear in an image name.
var nonNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ValidateName reports whether name is usable as an image name: 1-64
// characters, alphanumeric, hyphens, underscores and dots (dots also appear
// in collision-suffixed names).
func ValidateName(name string) error {
	if len(name) == 0 || len(name) > MaxNameLength {
		return ErrInvalidName
	}
	if !nameRe.MatchString(name) {
		return ErrInvalidName
	}
	return nil
}

// DefaultName derives an image name from a version string, replacing
// unsupported characters and truncating to the name length bound.
func DefaultName(versionString string) string {
	name := nonNameChars.ReplaceAllString(versionString, "-")
	name = strings.Trim(name, "-")
	if name == "" {
		name = "unknown"
	}
	if len(name) > MaxNameLength {
		name = name[:MaxNameLength]
	}
	return name
}

// UniqueName resolves name against the set of installed images by appending
// the lowest unused numeric suffix: foo, foo.1, foo.2, ...
func UniqueName(name string, installed []string) string {
	if !lo.Contains(installed, name) {
		return name
	}
	for counter := 1; ; counter++ {
		candidate := fmt.Sprintf("%s.%d", name, counter)
		if !lo.Contains(installed, candidate) {
			return candidate
		}
	}
}

// List returns the names of images installed under rootDir/boot. Bootloader
// directories are not images.
func List(rootDir string) ([]string, error) {
	bootDir := filepath.Join(rootDir, "boot")
	entries, err := os.ReadDir(bootDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read boot directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		switch entry.Name() {
		case "grub", "efi":
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// Create materializes the directory layout for a new image record under
// rootDir/boot. The name must already be validated and unique.
func Create(rootDir, name string) (*Record, error) {
	dir := filepath.Join(rootDir, "boot", name)
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	}
	rwDir := filepath.Join(dir, "rw")
	if err := os.MkdirAll(rwDir, 0755); err != nil {
		return nil, fmt.Errorf("create image directories: %w", err)
	}
	return &Record{Name: name, Dir: dir, RWDir: rwDir}, nil
}
