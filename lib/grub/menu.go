package grub

import (
	"fmt"
	"os"
	"path/filepath"
)

// mainConfig boots through the environment block: the default pointer and
// console type are mutable state, the per-version entries are immutable
// snippets sourced from versions/.
const mainConfig = `# Generated by image-installer, do not edit.
load_env

if [ -n "$default" ]; then
  set default="$default"
fi
set timeout=5

if [ "$console_type" = "serial" ]; then
  serial --unit=0 --speed=115200
  terminal_input serial
  terminal_output serial
fi

for version in $prefix/versions/*.cfg; do
  source "$version"
done
`

func writeMainConfig(bootDir string) error {
	path := filepath.Join(bootDir, "grub", "grub.cfg")
	if err := writeFileAtomic(path, []byte(mainConfig), 0644); err != nil {
		return fmt.Errorf("write grub config: %w", err)
	}
	return nil
}

// buildMenuEntry renders the boot entry for an installed image, referencing
// the kernel and initrd files actually present in its directory.
func buildMenuEntry(name, rootDir string) (string, error) {
	imageDir := filepath.Join(rootDir, "boot", name)

	kernel, err := findBootFile(imageDir, "vmlinuz*")
	if err != nil {
		return "", err
	}
	initrd, err := findBootFile(imageDir, "initrd*")
	if err != nil {
		return "", err
	}

	bootPath := "/boot/" + name
	entry := fmt.Sprintf(`menuentry "%s" --id %s {
  linux %s/%s boot=live rootdelay=5 noautologin net.ifnames=0 biosdevname=0 vyos-union=%s $console_args
  initrd %s/%s
}
`, name, name, bootPath, kernel, bootPath, bootPath, initrd)
	return entry, nil
}

func findBootFile(imageDir, pattern string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(imageDir, pattern))
	if err != nil {
		return "", err
	}
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		return filepath.Base(match), nil
	}
	return "", fmt.Errorf("no %s found in %s", pattern, imageDir)
}

// consoleArgs maps a console type to the kernel arguments baked into the
// environment for menu entries.
var consoleArgs = map[string]string{
	"kvm":    "console=tty0",
	"serial": "console=ttyS0,115200",
}

func writeConsoleConfig(rootDir, console string) error {
	args, ok := consoleArgs[console]
	if !ok {
		args = consoleArgs["kvm"]
	}
	return setEnvValue(envPath(rootDir), "console_args", args)
}
