package version

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kdomanski/iso9660"
)

// ErrNotISO is returned when a source file is not a readable ISO 9660 image.
var ErrNotISO = errors.New("not a valid ISO 9660 image")

// ProbeISO validates that path is an ISO 9660 image and returns its version
// metadata without mounting it. Images without metadata yield the unknown
// version, same as ReadMounted.
func ProbeISO(path string) (Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return Data{}, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, err := iso9660.OpenImage(f)
	if err != nil {
		return Data{}, fmt.Errorf("%w: %s", ErrNotISO, path)
	}

	root, err := img.RootDir()
	if err != nil {
		return Data{}, fmt.Errorf("%w: %s", ErrNotISO, path)
	}

	entry, err := lookup(root, strings.Split(MetadataFile, "/"))
	if err != nil {
		return Data{}, err
	}
	if entry == nil {
		return Data{Version: UnknownVersion}, nil
	}

	raw, err := io.ReadAll(entry.Reader())
	if err != nil {
		return Data{}, fmt.Errorf("read version data from image: %w", err)
	}
	data, err := parse(raw, path)
	if err != nil {
		return Data{}, err
	}
	if data.Version == "" {
		data.Version = UnknownVersion
	}
	return data, nil
}

// lookup descends the ISO directory tree along the given path elements.
// Returns nil without error when an element is absent.
func lookup(dir *iso9660.File, elements []string) (*iso9660.File, error) {
	if len(elements) == 0 {
		return dir, nil
	}
	if !dir.IsDir() {
		return nil, nil
	}
	children, err := dir.GetChildren()
	if err != nil {
		return nil, fmt.Errorf("read image directory: %w", err)
	}
	for _, child := range children {
		if strings.EqualFold(child.Name(), elements[0]) {
			return lookup(child, elements[1:])
		}
	}
	return nil, nil
}
