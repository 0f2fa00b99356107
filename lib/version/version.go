package version

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Data is the version metadata carried by an image. Legacy images may lack
// architecture and flavor, which degrades compatibility checking.
type Data struct {
	Version      string `json:"version"`
	Architecture string `json:"architecture,omitempty"`
	Flavor       string `json:"flavor,omitempty"`
	BuiltOn      string `json:"built_on,omitempty"`
	BuildID      string `json:"build_id,omitempty"`
}

const (
	// UnknownVersion substitutes for images that ship no version metadata.
	UnknownVersion = "unknown"

	// MetadataFile is the metadata path relative to an image root.
	MetadataFile = "live/version.json"

	// RunningFile is where the running system keeps its own version data.
	RunningFile = "/usr/share/vyos/version.json"
)

// Read parses version metadata from a file.
func Read(path string) (Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Data{}, fmt.Errorf("read version data: %w", err)
	}
	return parse(raw, path)
}

func parse(raw []byte, source string) (Data, error) {
	var data Data
	if err := json.Unmarshal(raw, &data); err != nil {
		return Data{}, fmt.Errorf("parse version data %s: %w", source, err)
	}
	return data, nil
}

// ReadMounted reads version metadata from a mounted image root. A missing
// metadata file is tolerated (legacy images) by substituting the unknown
// version; any other failure is an error.
func ReadMounted(mountDir string) (Data, error) {
	path := filepath.Join(mountDir, MetadataFile)
	data, err := Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Data{Version: UnknownVersion}, nil
		}
		return Data{}, err
	}
	if data.Version == "" {
		data.Version = UnknownVersion
	}
	return data, nil
}

// Running reads the running system's version metadata.
func Running() (Data, error) {
	return Read(RunningFile)
}
