package grub

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// GRUB environment blocks are exactly this size, padded with '#'.
const envBlockSize = 1024

const envBlockHeader = "# GRUB Environment Block\n"

// readEnvBlock parses a GRUB environment block into key/value pairs. A
// missing file yields an empty map.
func readEnvBlock(path string) (map[string]string, error) {
	values := map[string]string{}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return values, nil
		}
		return nil, fmt.Errorf("read grub environment: %w", err)
	}

	for _, line := range strings.Split(string(raw), "\n") {
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		values[key] = value
	}
	return values, nil
}

// writeEnvBlock serializes key/value pairs into a fixed-size environment
// block. Keys are written in sorted order so the block is reproducible.
func writeEnvBlock(path string, values map[string]string) error {
	var b strings.Builder
	b.WriteString(envBlockHeader)
	for _, key := range sortedKeys(values) {
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(values[key])
		b.WriteByte('\n')
	}
	if b.Len() > envBlockSize {
		return fmt.Errorf("grub environment exceeds %d bytes", envBlockSize)
	}
	content := b.String() + strings.Repeat("#", envBlockSize-b.Len())

	return writeFileAtomic(path, []byte(content), 0644)
}

func setEnvValue(path, key, value string) error {
	values, err := readEnvBlock(path)
	if err != nil {
		return err
	}
	values[key] = value
	return writeEnvBlock(path, values)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
